package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hickeroar/ngrambayes/bayes"
	"github.com/hickeroar/ngrambayes/config"
	"github.com/hickeroar/ngrambayes/corpus"
)

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var errNoCorpus = errors.New("no corpus: pass --corpus or --sqlite")

var (
	makeSignalChannel = func() chan os.Signal { return make(chan os.Signal, 1) }
	notifySignals     = func(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }
	newServer         = func(addr string, handler http.Handler) httpServer {
		return &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       30 * time.Second,
		}
	}
	logFatal = func(v ...interface{}) { log.Fatal().Msg(fmt.Sprint(v...)) }
	runMain  = func() error {
		return newRootCommand().Execute()
	}
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ngrambayes",
		Short: "Naive Bayes text classification over stemmed n-grams",
		Long: `ngrambayes trains a multinomial Naive Bayes model on categorized text and
classifies new documents against it.

Examples:
  ngrambayes serve --port 8000 --corpus ./corpus
  ngrambayes train --sqlite corpus.db --ngram-depth 2
  ngrambayes classify --corpus ./corpus --softmax "some text to classify"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file.")
	flags.String("log-level", "", "Log level: trace, debug, info, warn or error.")
	flags.String("log-format", "", "Log format: json or console.")
	flags.Int("ngram-depth", 0, "Longest n-gram counted as a feature.")
	flags.Float64("alpha", 0, "Additive smoothing constant.")
	flags.String("stemmer", "", "Stemmer: porter, snowball or none.")
	flags.String("stopwords", "", "Path to a stopword file.")
	flags.Bool("fold-accents", false, "Strip accents before tokenizing.")
	flags.Int("workers", 0, "Concurrent shard computations (0 uses GOMAXPROCS).")
	flags.String("corpus", "", "Corpus directory or file to train from.")
	flags.String("sqlite", "", "SQLite database to train from.")
	flags.String("query", "", "Query returning (category, body) rows from --sqlite.")

	root.AddCommand(newServeCommand(), newTrainCommand(), newClassifyCommand())
	return root
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the classifier over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "The port the server should listen on.")
	cmd.Flags().String("auth-token", "", "Require this bearer token on all non-probe endpoints.")
	cmd.Flags().Bool("auto-finalize", true, "Finalize the model after every training request.")
	return cmd
}

func newTrainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train on a corpus and print model statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			classifier, err := trainedClassifier(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd, statsResponse(classifier))
		},
	}
}

// ClassifyOutput is printed by the classify command.
type ClassifyOutput struct {
	Category string
	Scores   map[string]float64
}

func newClassifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify TEXT...",
		Short: "Train on a corpus and classify text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier, err := trainedClassifier(cmd)
			if err != nil {
				return err
			}

			var transform bayes.ScoreTransform
			if softmax, _ := cmd.Flags().GetBool("softmax"); softmax {
				transform = bayes.Softmax
			}
			scores, err := classifier.Classify(strings.Join(args, " "), transform)
			if err != nil {
				return err
			}
			return printJSON(cmd, ClassifyOutput{
				Category: classifier.MostLikely(scores),
				Scores:   scores,
			})
		},
	}
	cmd.Flags().Bool("softmax", false, "Print probabilities instead of log-scores.")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	classifier, err := buildClassifier(cfg, logger)
	if err != nil {
		return err
	}
	if err := pretrain(cmd.Context(), classifier, cfg); err != nil && !errors.Is(err, errNoCorpus) {
		return err
	}

	api := NewClassifierAPI(classifier, cfg.AutoFinalize)
	api.ready.Store(true)

	server := newServer(":"+cfg.Port, newHandler(api, logger, cfg.AuthToken))
	logger.Info().Str("port", cfg.Port).Msg("server is listening")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logFatal(err)
		}
	}()

	sigCh := makeSignalChannel()
	notifySignals(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	api.ready.Store(false)
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}

// setup resolves the configuration and installs the process logger.
func setup(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())
	log.Logger = logger
	return cfg, logger, nil
}

// loadConfig reads --config and overlays every flag set on the command line.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	stringFlags := map[string]*string{
		"log-level":  &cfg.Log.Level,
		"log-format": &cfg.Log.Format,
		"stemmer":    &cfg.Classifier.Stemmer,
		"stopwords":  &cfg.Classifier.StopwordsFile,
		"corpus":     &cfg.Corpus.Dir,
		"sqlite":     &cfg.Corpus.SQLite,
		"query":      &cfg.Corpus.Query,
		"port":       &cfg.Port,
		"auth-token": &cfg.AuthToken,
	}
	for name, dst := range stringFlags {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	if flags.Changed("ngram-depth") {
		cfg.Classifier.NgramDepth, _ = flags.GetInt("ngram-depth")
	}
	if flags.Changed("workers") {
		cfg.Classifier.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("alpha") {
		cfg.Classifier.Alpha, _ = flags.GetFloat64("alpha")
	}
	if flags.Changed("fold-accents") {
		cfg.Classifier.FoldAccents, _ = flags.GetBool("fold-accents")
	}
	if flags.Changed("auto-finalize") {
		cfg.AutoFinalize, _ = flags.GetBool("auto-finalize")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, errors.Wrap(err, "configuration error")
	}
	return cfg, nil
}

func buildClassifier(cfg config.Config, logger zerolog.Logger) (*bayes.Classifier, error) {
	opts, err := cfg.Classifier.Options(logger)
	if err != nil {
		return nil, err
	}
	return bayes.NewClassifier(opts...)
}

func loadShards(ctx context.Context, cfg config.Config) ([]bayes.Shard, error) {
	switch {
	case cfg.Corpus.Dir != "":
		return corpus.LoadDir(cfg.Corpus.Dir)
	case cfg.Corpus.SQLite != "":
		return corpus.LoadSQLite(ctx, cfg.Corpus.SQLite, cfg.Corpus.Query)
	default:
		return nil, errNoCorpus
	}
}

// pretrain trains classifier on the configured corpus.
func pretrain(ctx context.Context, classifier *bayes.Classifier, cfg config.Config) error {
	shards, err := loadShards(ctx, cfg)
	if err != nil {
		return err
	}
	return classifier.TrainParallel(ctx, shards)
}

func trainedClassifier(cmd *cobra.Command) (*bayes.Classifier, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	classifier, err := buildClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := pretrain(cmd.Context(), classifier, cfg); err != nil {
		return nil, err
	}
	return classifier, nil
}

func printJSON(cmd *cobra.Command, value interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func main() {
	if err := runMain(); err != nil {
		logFatal(err)
	}
}
