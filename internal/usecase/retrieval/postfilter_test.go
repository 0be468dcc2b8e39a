package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/trialscope/trialscope/internal/db"
	"github.com/trialscope/trialscope/internal/domain/filter"
)

func augmentedHits(ids []string, docs []string, metas []map[string]any) *db.QueryResult {
	return &db.QueryResult{
		IDs:       [][]string{ids},
		Documents: [][]string{docs},
		Metadatas: [][]map[string]any{metas},
	}
}

func msOf(date string) int64 {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t.UnixMilli()
}

func TestPostFilter_PhaseIntersection(t *testing.T) {
	hits := augmentedHits(
		[]string{"a", "b", "c"},
		[]string{"da", "db", "dc"},
		[]map[string]any{
			{"study_phases": "PHASE1, PHASE2"},
			{"study_phases": "PHASE3"},
			{"study_phases": "PHASE2, PHASE3"},
		},
	)

	// One common token suffices; the stored set need not be a subset of the
	// requested set.
	out := postFilter(context.Background(), hits, filter.Set{
		StudyPhases: []string{"PHASE2"},
	})

	if len(out.IDs) != 2 || out.IDs[0] != "a" || out.IDs[1] != "c" {
		t.Errorf("kept = %v, want [a c]", out.IDs)
	}
	if out.Documents[0] != "da" || out.Documents[1] != "dc" {
		t.Errorf("documents = %v", out.Documents)
	}
}

func TestPostFilter_PhaseMissingFailsClosed(t *testing.T) {
	hits := augmentedHits(
		[]string{"a", "b", "c"},
		[]string{"da", "db", "dc"},
		[]map[string]any{
			{},                         // field absent
			{"study_phases": 42},       // wrong type
			{"study_phases": "PHASE1"}, // valid
		},
	)

	out := postFilter(context.Background(), hits, filter.Set{
		StudyPhases: []string{"PHASE1"},
	})

	if len(out.IDs) != 1 || out.IDs[0] != "c" {
		t.Errorf("kept = %v, want [c]", out.IDs)
	}
}

func TestPostFilter_DateRangeInclusive(t *testing.T) {
	stored := msOf("2021-06-15")
	hits := augmentedHits(
		[]string{"a"},
		[]string{"da"},
		[]map[string]any{{"last_update_date_posted": "2021-06-15"}},
	)

	cases := map[string]struct {
		window filter.DateRange
		keep   bool
	}{
		"exact bounds":    {filter.DateRange{From: stored, To: stored}, true},
		"inside":          {filter.DateRange{From: stored - 1000, To: stored + 1000}, true},
		"one ms too late": {filter.DateRange{From: stored + 1, To: stored + 1000}, false},
		"one ms too soon": {filter.DateRange{From: stored - 1000, To: stored - 1}, false},
	}

	for name, tc := range cases {
		out := postFilter(context.Background(), hits, filter.Set{
			LastUpdateDatePosted: &tc.window,
		})
		if kept := len(out.IDs) == 1; kept != tc.keep {
			t.Errorf("%s: kept = %v, want %v", name, kept, tc.keep)
		}
	}
}

func TestPostFilter_BadDateFailsClosed(t *testing.T) {
	hits := augmentedHits(
		[]string{"a", "b", "c", "d"},
		[]string{"da", "db", "dc", "dd"},
		[]map[string]any{
			{},                                       // absent
			{"results_date_posted": ""},              // empty
			{"results_date_posted": "June 15, 2021"}, // unparseable
			{"results_date_posted": "2021-06-15"},    // valid
		},
	)

	out := postFilter(context.Background(), hits, filter.Set{
		ResultsDatePosted: &filter.DateRange{From: 0, To: msOf("2030-01-01")},
	})

	if len(out.IDs) != 1 || out.IDs[0] != "d" {
		t.Errorf("kept = %v, want [d]", out.IDs)
	}
}

func TestPostFilter_DimensionsConjoined(t *testing.T) {
	hits := augmentedHits(
		[]string{"a", "b"},
		[]string{"da", "db"},
		[]map[string]any{
			{"study_phases": "PHASE2", "last_update_date_posted": "2022-01-01"},
			{"study_phases": "PHASE2", "last_update_date_posted": "1999-01-01"},
		},
	)

	out := postFilter(context.Background(), hits, filter.Set{
		StudyPhases:          []string{"PHASE2"},
		LastUpdateDatePosted: &filter.DateRange{From: msOf("2020-01-01"), To: msOf("2023-01-01")},
	})

	if len(out.IDs) != 1 || out.IDs[0] != "a" {
		t.Errorf("kept = %v, want [a]", out.IDs)
	}
}

func TestPostFilter_PreservesRankOrder(t *testing.T) {
	hits := augmentedHits(
		[]string{"z", "m", "a"},
		[]string{"dz", "dm", "da"},
		[]map[string]any{
			{"study_phases": "PHASE1"},
			{"study_phases": "PHASE1"},
			{"study_phases": "PHASE1"},
		},
	)

	out := postFilter(context.Background(), hits, filter.Set{
		StudyPhases: []string{"PHASE1"},
	})

	if len(out.IDs) != 3 || out.IDs[0] != "z" || out.IDs[1] != "m" || out.IDs[2] != "a" {
		t.Errorf("order not preserved: %v", out.IDs)
	}
}

func TestPostFilter_AllExcludedYieldsEmptyNotNil(t *testing.T) {
	hits := augmentedHits(
		[]string{"a"},
		[]string{"da"},
		[]map[string]any{{"study_phases": "PHASE4"}},
	)

	out := postFilter(context.Background(), hits, filter.Set{
		StudyPhases: []string{"PHASE1"},
	})

	if out.IDs == nil || out.Documents == nil {
		t.Error("result slices must never be nil")
	}
	if len(out.IDs) != 0 {
		t.Errorf("kept = %v, want empty", out.IDs)
	}
}

func TestPostFilter_RaggedPayloadExcluded(t *testing.T) {
	// Fewer metadata entries than ids: the tail rows have nothing sound to
	// evaluate and are dropped.
	hits := augmentedHits(
		[]string{"a", "b"},
		[]string{"da", "db"},
		[]map[string]any{{"study_phases": "PHASE1"}},
	)

	out := postFilter(context.Background(), hits, filter.Set{
		StudyPhases: []string{"PHASE1"},
	})

	if len(out.IDs) != 1 || out.IDs[0] != "a" {
		t.Errorf("kept = %v, want [a]", out.IDs)
	}
}
