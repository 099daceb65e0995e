package bayes

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestClassifyRequiresFinalizedModel(t *testing.T) {
	classifier := newTestClassifier(t)

	_, err := classifier.Classify("anything", nil)
	var notTrained *NotTrainedError
	if !errors.As(err, &notTrained) {
		t.Fatalf("expected NotTrainedError on empty model, got %v", err)
	}

	_ = classifier.TrainText("run fast", "sports")
	_, err = classifier.Classify("run", nil)
	if !errors.As(err, &notTrained) {
		t.Fatalf("expected NotTrainedError before finalize, got %v", err)
	}
	if notTrained.Finalized || notTrained.DocumentCount != 1 {
		t.Fatalf("unexpected error state: %+v", notTrained)
	}

	classifier.FinalizeTraining()
	if _, err := classifier.Classify("run", nil); err != nil {
		t.Fatalf("expected classification after finalize, got %v", err)
	}
	if _, err := classifier.Best("run"); err != nil {
		t.Fatalf("expected Best after finalize, got %v", err)
	}
}

func TestClassifyRejectsModelWithoutVocabulary(t *testing.T) {
	classifier := newTestClassifier(t)
	_ = classifier.TrainText("", "empty")
	classifier.FinalizeTraining()

	var notTrained *NotTrainedError
	if _, err := classifier.Classify("hello", nil); !errors.As(err, &notTrained) {
		t.Fatalf("expected NotTrainedError for empty vocabulary, got %v", err)
	}
}

func TestClassifySportsAndCooking(t *testing.T) {
	classifier := newTestClassifier(t)
	_ = classifier.TrainText("run run fast", "sports")
	_ = classifier.TrainText("bake bake slow", "cooking")
	classifier.FinalizeTraining()

	scores, err := classifier.Classify("run fast", nil)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}

	// |V| = 4 and each category has a tally of 3.
	wantSports := math.Log(0.5) + math.Log(3.0/7.0) + math.Log(2.0/7.0)
	wantCooking := math.Log(0.5) + 2*math.Log(1.0/7.0)
	if math.Abs(scores["sports"]-wantSports) > 1e-9 {
		t.Fatalf("unexpected sports score: got %f, want %f", scores["sports"], wantSports)
	}
	if math.Abs(scores["cooking"]-wantCooking) > 1e-9 {
		t.Fatalf("unexpected cooking score: got %f, want %f", scores["cooking"], wantCooking)
	}
	if got := classifier.MostLikely(scores); got != "sports" {
		t.Fatalf("unexpected most likely category: got %q, want %q", got, "sports")
	}

	best, err := classifier.Best("slow bake")
	if err != nil {
		t.Fatalf("Best returned error: %v", err)
	}
	if best.Category != "cooking" {
		t.Fatalf("unexpected best category: got %q, want %q", best.Category, "cooking")
	}
}

func TestClassifyUnseenFeatureUsesSmoothingFloor(t *testing.T) {
	classifier := newTestClassifier(t, WithStemmerName("none"))
	_ = classifier.TrainText("a a a b", "x")
	classifier.FinalizeTraining()

	scores, err := classifier.Classify("c", nil)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	want := math.Log(1) + math.Log(1.0/6.0)
	if math.Abs(scores["x"]-want) > 1e-12 {
		t.Fatalf("unexpected score: got %f, want %f", scores["x"], want)
	}
}

func TestClassifyDisjointVocabularies(t *testing.T) {
	classifier := newTestClassifier(t)
	_ = classifier.TrainText("kernel scheduler interrupt", "systems")
	_ = classifier.TrainText("saffron risotto parmesan", "cooking")
	classifier.FinalizeTraining()

	tests := []struct {
		sample string
		want   string
	}{
		{sample: "scheduler interrupt latency", want: "systems"},
		{sample: "parmesan risotto dinner", want: "cooking"},
	}
	for _, tt := range tests {
		best, err := classifier.Best(tt.sample)
		if err != nil {
			t.Fatalf("Best returned error: %v", err)
		}
		if best.Category != tt.want {
			t.Fatalf("unexpected category for %q: got %q, want %q", tt.sample, best.Category, tt.want)
		}
	}
}

func TestClassifyWithBigrams(t *testing.T) {
	classifier := newTestClassifier(t, WithNgramDepth(2), WithStemmerName("none"))
	_ = classifier.TrainText("new york", "city")
	_ = classifier.TrainText("york new", "reversed")
	classifier.FinalizeTraining()

	if got := classifier.TokenCount("city", "new york"); got != 1 {
		t.Fatalf("expected bigram to be counted, got %d", got)
	}

	best, err := classifier.Best("new york")
	if err != nil {
		t.Fatalf("Best returned error: %v", err)
	}
	if best.Category != "city" {
		t.Fatalf("bigram order should decide the category, got %q", best.Category)
	}
}

func TestSoftmaxTransform(t *testing.T) {
	classifier := newTestClassifier(t)
	_ = classifier.TrainText("free prize click now", "spam")
	_ = classifier.TrainText("team meeting schedule project", "ham")
	_ = classifier.TrainText("goal match referee", "sports")
	classifier.FinalizeTraining()

	raw, err := classifier.Classify("free meeting", nil)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	probabilities, err := classifier.Classify("free meeting", Softmax)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}

	sum := 0.0
	for _, p := range probabilities {
		if p < 0 || p > 1 {
			t.Fatalf("probability out of range: %f", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities should sum to 1, got %f", sum)
	}
	if classifier.MostLikely(raw) != classifier.MostLikely(probabilities) {
		t.Fatal("softmax must not change the most likely category")
	}
}

func TestClassifyTransformCannotCorruptScores(t *testing.T) {
	classifier := newTestClassifier(t)
	_ = classifier.TrainText("alpha", "a")
	_ = classifier.TrainText("beta", "b")
	classifier.FinalizeTraining()

	scribble := func(score float64, all []float64) float64 {
		for i := range all {
			all[i] = 0
		}
		return score
	}
	scribbled, err := classifier.Classify("alpha", scribble)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	raw, _ := classifier.Classify("alpha", nil)
	for name, score := range raw {
		if scribbled[name] != score {
			t.Fatalf("transform input leaked between categories: %q %f != %f", name, scribbled[name], score)
		}
	}
}

func TestMostLikelyTieBreaksByTrainingOrder(t *testing.T) {
	classifier := newTestClassifier(t)
	_ = classifier.TrainText("shared", "zeta")
	_ = classifier.TrainText("shared", "alpha")
	classifier.FinalizeTraining()

	scores, err := classifier.Classify("shared", nil)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if scores["zeta"] != scores["alpha"] {
		t.Fatalf("expected tied scores, got %v", scores)
	}
	if got := classifier.MostLikely(scores); got != "zeta" {
		t.Fatalf("tie should go to the first trained category, got %q", got)
	}
	best, _ := classifier.Best("shared")
	if best.Category != "zeta" {
		t.Fatalf("Best should break ties the same way, got %q", best.Category)
	}
}

func TestMostLikelyEdgeCases(t *testing.T) {
	classifier := newTestClassifier(t)
	_ = classifier.TrainText("one", "first")
	_ = classifier.TrainText("two", "second")

	tests := []struct {
		name   string
		scores map[string]float64
		want   string
	}{
		{name: "empty", scores: map[string]float64{}, want: ""},
		{name: "unknown only", scores: map[string]float64{"other": 5}, want: ""},
		{name: "negative infinity", scores: map[string]float64{"first": math.Inf(-1)}, want: ""},
		{name: "missing category ignored", scores: map[string]float64{"second": -3, "other": 10}, want: "second"},
		{name: "highest wins", scores: map[string]float64{"first": -9, "second": -3}, want: "second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifier.MostLikely(tt.scores); got != tt.want {
				t.Fatalf("unexpected result: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConcurrentClassify(t *testing.T) {
	classifier := newTestClassifier(t)
	_ = classifier.TrainText("free prize click now", "spam")
	_ = classifier.TrainText("team meeting schedule project", "ham")
	classifier.FinalizeTraining()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			best, err := classifier.Best("free prize")
			if err != nil {
				errs <- err
				return
			}
			if best.Category != "spam" {
				errs <- errors.New("unexpected category " + best.Category)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
