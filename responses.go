package main

import "github.com/hickeroar/ngrambayes/bayes"

// CategorySummary describes one trained category.
type CategorySummary struct {
	DocumentCount int
	TokenTally    int
	TokenCount    int
	Prior         float64
}

func getCategorySummaries(c *ClassifierAPI) (map[string]CategorySummary, []string) {
	stats := c.classifier.Stats()
	summaries := make(map[string]CategorySummary, len(stats.Categories))
	order := make([]string, 0, len(stats.Categories))
	for _, cat := range stats.Categories {
		summaries[cat.Name] = CategorySummary{
			DocumentCount: cat.DocumentCount,
			TokenTally:    cat.TokenTally,
			TokenCount:    cat.TokenCount,
			Prior:         cat.Prior,
		}
		order = append(order, cat.Name)
	}
	return summaries, order
}

// InfoClassifierResponse reports the model state.
type InfoClassifierResponse struct {
	Categories     map[string]CategorySummary
	CategoryOrder  []string
	DocumentCount  int
	VocabularySize int
	Finalized      bool
	Generation     string
	NgramDepth     int
	Alpha          float64
}

// NewInfoClassifierResponse gets an assembled instance of InfoClassifierResponse
func NewInfoClassifierResponse(c *ClassifierAPI) *InfoClassifierResponse {
	stats := c.classifier.Stats()
	categories, order := getCategorySummaries(c)
	return &InfoClassifierResponse{
		Categories:     categories,
		CategoryOrder:  order,
		DocumentCount:  stats.DocumentCount,
		VocabularySize: stats.VocabularySize,
		Finalized:      stats.Finalized,
		Generation:     stats.Generation,
		NgramDepth:     stats.NgramDepth,
		Alpha:          stats.Alpha,
	}
}

// TrainingClassifierResponse is returned by the training endpoints.
type TrainingClassifierResponse struct {
	Success    bool
	Finalized  bool
	Categories map[string]CategorySummary
}

// NewTrainingClassifierResponse gets an assembled instance of TrainingClassifierResponse
func NewTrainingClassifierResponse(c *ClassifierAPI, success bool) *TrainingClassifierResponse {
	categories, _ := getCategorySummaries(c)
	return &TrainingClassifierResponse{
		Success:    success,
		Finalized:  c.classifier.IsFinalized(),
		Categories: categories,
	}
}

// statsResponse is printed by the train and classify commands.
func statsResponse(classifier *bayes.Classifier) *InfoClassifierResponse {
	return NewInfoClassifierResponse(&ClassifierAPI{classifier: classifier})
}
