package main

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/hickeroar/ngrambayes/bayes"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

const requestIDHeader = "X-Request-Id"

var categoryPathPattern = regexp.MustCompile(`^[-_A-Za-z0-9]+$`)

// ClassifierAPI serves classifier HTTP endpoints and shared classifier state.
type ClassifierAPI struct {
	classifier   *bayes.Classifier
	autoFinalize bool
	// mu keeps train-then-finalize atomic with respect to classification.
	mu    sync.RWMutex
	ready atomic.Bool
}

// NewClassifierAPI wraps classifier. With autoFinalize set, every training
// request finalizes the model before it returns.
func NewClassifierAPI(classifier *bayes.Classifier, autoFinalize bool) *ClassifierAPI {
	return &ClassifierAPI{classifier: classifier, autoFinalize: autoFinalize}
}

// RegisterRoutes registers all API routes on the provided ServeMux.
func (c *ClassifierAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/info", c.InfoHandler)
	mux.HandleFunc("/train", c.TrainShardsHandler)
	mux.HandleFunc("/train/", c.TrainHandler)
	mux.HandleFunc("/finalize", c.FinalizeHandler)
	mux.HandleFunc("/classify", c.ClassifyHandler)
	mux.HandleFunc("/score", c.ScoreHandler)
	mux.HandleFunc("/flush", c.FlushHandler)
	mux.HandleFunc("/healthz", HealthHandler)
	mux.HandleFunc("/readyz", c.ReadyHandler)
}

// newHandler wraps the API routes with request logging and, when token is
// set, bearer authorization.
func newHandler(api *ClassifierAPI, logger zerolog.Logger, token string) http.Handler {
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	var handler http.Handler = withAuthorizationToken(mux, token)
	handler = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(handler)
	handler = withRequestID(handler)
	return hlog.NewHandler(logger)(handler)
}

// withRequestID tags the request logger and the response with a ULID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(requestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(requestIDHeader, id)

		logger := zerolog.Ctx(req.Context())
		logger.UpdateContext(func(ctx zerolog.Context) zerolog.Context {
			return ctx.Str("req_id", id)
		})
		next.ServeHTTP(w, req)
	})
}

// withAuthorizationToken requires "Authorization: Bearer <token>" on every
// route except the health and readiness probes. An empty token disables it.
func withAuthorizationToken(next http.Handler, token string) http.Handler {
	if token == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/healthz" || req.URL.Path == "/readyz" {
			next.ServeHTTP(w, req)
			return
		}

		scheme, presented, ok := strings.Cut(req.Header.Get("Authorization"), " ")
		if !ok || scheme != "Bearer" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ngrambayes"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	jsonResponse, err := json.Marshal(value)
	if err != nil {
		http.Error(w, `{"error":"failed to marshal response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonResponse); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeClassifierError maps classifier errors to HTTP statuses.
func writeClassifierError(w http.ResponseWriter, req *http.Request, err error) {
	var notTrained *bayes.NotTrainedError
	if errors.As(err, &notTrained) {
		writeError(w, http.StatusConflict, notTrained.Error())
		return
	}

	event := hlog.FromRequest(req).Error().Err(err)
	var shardErr *bayes.ShardFailure
	if errors.As(err, &shardErr) {
		event = event.EmbedObject(shardErr)
	}
	event.Msg("classifier request failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

func readBody(w http.ResponseWriter, req *http.Request) (string, bool) {
	req.Body = http.MaxBytesReader(w, req.Body, maxRequestBodyBytes)
	defer req.Body.Close()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return "", false
		}
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return "", false
	}

	return string(body), true
}

func categoryFromPath(path, prefix string) (string, bool) {
	category := strings.TrimPrefix(path, prefix)
	if category == "" || strings.Contains(category, "/") {
		return "", false
	}

	if !categoryPathPattern.MatchString(category) {
		return "", false
	}

	return category, true
}

func requireMethod(w http.ResponseWriter, req *http.Request, method string) bool {
	if req.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// InfoHandler returns the current classifier training state.
func (c *ClassifierAPI) InfoHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}

	c.mu.RLock()
	response := NewInfoClassifierResponse(c)
	c.mu.RUnlock()

	writeJSON(w, http.StatusOK, response)
}

// TrainHandler trains a category using request body text as one document.
func (c *ClassifierAPI) TrainHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	category, ok := categoryFromPath(req.URL.Path, "/train/")
	if !ok {
		writeError(w, http.StatusNotFound, "invalid category route")
		return
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	c.mu.Lock()
	err := c.classifier.TrainText(body, category)
	if err == nil && c.autoFinalize {
		c.classifier.FinalizeTraining()
	}
	response := NewTrainingClassifierResponse(c, err == nil)
	c.mu.Unlock()

	if err != nil {
		writeClassifierError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// TrainShardsRequest is the body of POST /train.
type TrainShardsRequest struct {
	Shards []struct {
		Category  string   `json:"category"`
		Documents []string `json:"documents"`
	} `json:"shards"`
}

// TrainShardsHandler trains every shard in parallel, merges the counts and finalizes.
func (c *ClassifierAPI) TrainShardsHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	var payload TrainShardsRequest
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(payload.Shards) == 0 {
		writeError(w, http.StatusBadRequest, "no shards")
		return
	}

	shards := make([]bayes.Shard, len(payload.Shards))
	for i, shard := range payload.Shards {
		if !categoryPathPattern.MatchString(shard.Category) {
			writeError(w, http.StatusBadRequest, "invalid category in shard "+strconv.Itoa(i))
			return
		}
		if len(shard.Documents) == 0 {
			writeError(w, http.StatusBadRequest, "no documents in shard "+strconv.Itoa(i))
			return
		}
		shards[i] = bayes.Shard{Category: shard.Category, Documents: shard.Documents}
	}

	c.mu.Lock()
	err := c.classifier.TrainParallel(req.Context(), shards)
	response := NewTrainingClassifierResponse(c, err == nil)
	c.mu.Unlock()

	if err != nil {
		writeClassifierError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// FinalizeHandler computes probabilities from the current counts.
func (c *ClassifierAPI) FinalizeHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	c.mu.Lock()
	c.classifier.FinalizeTraining()
	response := NewTrainingClassifierResponse(c, true)
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, response)
}

// ClassifyHandler classifies request body text and returns the top match.
func (c *ClassifierAPI) ClassifyHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	c.mu.RLock()
	result, err := c.classifier.Best(body)
	c.mu.RUnlock()

	if err != nil {
		writeClassifierError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ScoreHandler returns per-category log-scores for request body text, or
// probabilities when the softmax query parameter is set.
func (c *ClassifierAPI) ScoreHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	var transform bayes.ScoreTransform
	if softmax, _ := strconv.ParseBool(req.URL.Query().Get("softmax")); softmax {
		transform = bayes.Softmax
	}

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	c.mu.RLock()
	result, err := c.classifier.Classify(body, transform)
	c.mu.RUnlock()

	if err != nil {
		writeClassifierError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// FlushHandler deletes all training data and gives us a fresh slate.
func (c *ClassifierAPI) FlushHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodPost) {
		return
	}

	c.mu.Lock()
	c.classifier.Flush()
	response := NewTrainingClassifierResponse(c, true)
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, response)
}

// HealthHandler returns liveness status for process health checks.
func HealthHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler returns readiness status for traffic checks.
func (c *ClassifierAPI) ReadyHandler(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}
	if !c.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
