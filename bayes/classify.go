package bayes

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// ScoreTransform rewrites one category's raw log-score given every raw
// score, listed in category insertion order.
type ScoreTransform func(score float64, all []float64) float64

// Classification is the best category for a document and its raw log-score.
type Classification struct {
	Category string
	Score    float64
}

// Softmax turns log-scores into probabilities that sum to one.
func Softmax(score float64, all []float64) float64 {
	return math.Exp(score - floats.LogSumExp(all))
}

// Classify scores document against every category. Each score starts at
// ln(prior) and adds ln(P(feature|category)) for every extracted feature,
// using the smoothing floor alpha/(tally+alpha*|V|) for features the
// category never counted. A non-nil transform is applied to every score.
func (c *Classifier) Classify(document string, transform ScoreTransform) (map[string]float64, error) {
	features := c.tokenizer.FeatureList(document)

	c.mu.RLock()
	defer c.mu.RUnlock()

	names, raw, err := c.scoreLocked(features)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(names))
	for i, name := range names {
		if transform != nil {
			scores[name] = transform(raw[i], slices.Clone(raw))
		} else {
			scores[name] = raw[i]
		}
	}
	return scores, nil
}

// MostLikely returns the category with the highest score. Ties go to the
// category trained first; categories missing from scores are ignored. It
// returns "" when no score beats negative infinity.
func (c *Classifier) MostLikely(scores map[string]float64) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := c.categories.Names()
	values := make([]float64, len(names))
	present := make([]bool, len(names))
	for i, name := range names {
		values[i], present[i] = scores[name]
	}
	i := argmax(values, present)
	if i < 0 {
		return ""
	}
	return names[i]
}

// Best classifies document and returns its most likely category with the raw score.
func (c *Classifier) Best(document string) (Classification, error) {
	features := c.tokenizer.FeatureList(document)

	c.mu.RLock()
	defer c.mu.RUnlock()

	names, raw, err := c.scoreLocked(features)
	if err != nil {
		return Classification{}, err
	}
	i := argmax(raw, nil)
	if i < 0 {
		return Classification{}, nil
	}
	return Classification{Category: names[i], Score: raw[i]}, nil
}

func (c *Classifier) scoreLocked(features []string) ([]string, []float64, error) {
	if len(c.vocabulary) == 0 || c.documents == 0 || !c.finalized {
		return nil, nil, newNotTrainedError(len(c.vocabulary), c.documents, c.finalized)
	}

	names := c.categories.Names()
	raw := make([]float64, len(names))
	vocabulary := len(c.vocabulary)
	for i, name := range names {
		cat, _ := c.categories.LookupCategory(name)
		floor := math.Log(cat.UnseenLikelihood(c.alpha, vocabulary))

		score := math.Log(cat.GetPrior())
		for _, feature := range features {
			if p, ok := cat.Likelihood(feature); ok {
				score += math.Log(p)
			} else {
				score += floor
			}
		}
		raw[i] = score
	}
	return names, raw, nil
}

// argmax returns the first index holding the strictly greatest value above
// negative infinity, or -1. A nil present slice treats every value as present.
func argmax(values []float64, present []bool) int {
	best := -1
	bestScore := math.Inf(-1)
	for i, v := range values {
		if present != nil && !present[i] {
			continue
		}
		if v > bestScore {
			best = i
			bestScore = v
		}
	}
	return best
}
