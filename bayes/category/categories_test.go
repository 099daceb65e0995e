package category

import (
	"reflect"
	"testing"
)

func TestAddCategoryCreatesAndReturnsCategory(t *testing.T) {
	cats := NewCategories()
	cat := cats.AddCategory("spam")

	if cat == nil {
		t.Fatal("expected non-nil category")
	}
	if cat.Name() != "spam" {
		t.Fatalf("unexpected category name: got %q, want %q", cat.Name(), "spam")
	}
	if _, ok := cats.LookupCategory("spam"); !ok {
		t.Fatal("expected spam category to exist")
	}
}

func TestAddCategoryKeepsExisting(t *testing.T) {
	cats := NewCategories()
	first := cats.AddCategory("spam")
	if err := first.TrainToken("buy", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := cats.AddCategory("spam")
	if first != second {
		t.Fatal("expected AddCategory to return the existing category")
	}
	if cats.Len() != 1 {
		t.Fatalf("unexpected category count: got %d, want 1", cats.Len())
	}
}

func TestGetCategoryReturnsExistingAndCreatesMissing(t *testing.T) {
	cats := NewCategories()

	first := cats.GetCategory("ham")
	second := cats.GetCategory("ham")

	if first != second {
		t.Fatal("expected GetCategory to return same pointer for existing category")
	}

	missing := cats.GetCategory("spam")
	if missing == nil || missing.Name() != "spam" {
		t.Fatal("expected missing category to be lazily created")
	}
}

func TestLookupCategoryDoesNotCreate(t *testing.T) {
	cats := NewCategories()
	if _, ok := cats.LookupCategory("ghost"); ok {
		t.Fatal("expected lookup of unknown category to fail")
	}
	if cats.Len() != 0 {
		t.Fatal("expected lookup not to create a category")
	}
}

func TestNamesKeepInsertionOrder(t *testing.T) {
	cats := NewCategories()
	for _, name := range []string{"zeta", "alpha", "mid", "alpha"} {
		cats.GetCategory(name)
	}

	want := []string{"zeta", "alpha", "mid"}
	if got := cats.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected names: got %v, want %v", got, want)
	}

	names := cats.Names()
	names[0] = "mutated"
	if cats.Names()[0] != "zeta" {
		t.Fatal("expected Names to return a copy")
	}
}

func TestSummariesReturnsValueSnapshot(t *testing.T) {
	cats := NewCategories()
	created := cats.AddCategory("spam")
	if err := created.TrainToken("buy", 2); err != nil {
		t.Fatalf("unexpected error training token: %v", err)
	}

	snapshot := cats.Summaries()
	snapshot[0].TokenTally = 999

	real := cats.GetCategory("spam")
	if got := real.GetTally(); got != 2 {
		t.Fatalf("expected internal state unchanged by snapshot mutation: got %d, want %d", got, 2)
	}
}
