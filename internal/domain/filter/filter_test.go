package filter

import (
	"encoding/json"
	"testing"
)

func TestSetUnmarshal_FullPayload(t *testing.T) {
	raw := `{
		"studyType": "INTERVENTIONAL",
		"acceptsHealthy": false,
		"eligibleSex": "FEMALE",
		"ageRange": [18, 65],
		"studyPhases": ["PHASE1", "PHASE2"],
		"lastUpdateDatePosted": [1600000000000, 1700000000000],
		"resultsDatePosted": [1500000000000, 1600000000000]
	}`

	var s Set
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if s.StudyType == nil || *s.StudyType != "INTERVENTIONAL" {
		t.Errorf("studyType = %v", s.StudyType)
	}
	if s.AcceptsHealthy == nil || *s.AcceptsHealthy {
		t.Errorf("acceptsHealthy = %v", s.AcceptsHealthy)
	}
	if s.AgeRange == nil || s.AgeRange.Min != 18 || s.AgeRange.Max != 65 {
		t.Errorf("ageRange = %v", s.AgeRange)
	}
	if len(s.StudyPhases) != 2 || s.StudyPhases[0] != "PHASE1" {
		t.Errorf("studyPhases = %v", s.StudyPhases)
	}
	if s.LastUpdateDatePosted == nil || s.LastUpdateDatePosted.From != 1600000000000 {
		t.Errorf("lastUpdateDatePosted = %v", s.LastUpdateDatePosted)
	}
	if s.ResultsDatePosted == nil || s.ResultsDatePosted.To != 1600000000000 {
		t.Errorf("resultsDatePosted = %v", s.ResultsDatePosted)
	}
}

func TestSetUnmarshal_EmptyObject(t *testing.T) {
	var s Set
	if err := json.Unmarshal([]byte(`{}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.StudyType != nil || s.AcceptsHealthy != nil || s.EligibleSex != nil ||
		s.AgeRange != nil || s.StudyPhases != nil ||
		s.LastUpdateDatePosted != nil || s.ResultsDatePosted != nil {
		t.Errorf("empty object must decode to the zero set: %+v", s)
	}
	if s.HasPostFilter() {
		t.Error("zero set must not need post-filtering")
	}
}

func TestSetUnmarshal_UnknownKeysDropped(t *testing.T) {
	var s Set
	raw := `{"studyType": "EXPANDED_ACCESS", "futureKnob": 42}`
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.StudyType == nil || *s.StudyType != "EXPANDED_ACCESS" {
		t.Errorf("studyType = %v", s.StudyType)
	}
}

func TestSetUnmarshal_MalformedRange(t *testing.T) {
	var s Set
	if err := json.Unmarshal([]byte(`{"ageRange": [18]}`), &s); err == nil {
		t.Error("expected error for one-element range")
	}
}

func TestSet_HasPostFilter(t *testing.T) {
	cases := map[string]struct {
		set  Set
		want bool
	}{
		"pushdown only": {Set{StudyType: strPtr("X"), AgeRange: &AgeRange{Min: 1, Max: 2}}, false},
		"phases":        {Set{StudyPhases: []string{"PHASE1"}}, true},
		"empty phases":  {Set{StudyPhases: []string{}}, true},
		"last update":   {Set{LastUpdateDatePosted: &DateRange{}}, true},
		"results date":  {Set{ResultsDatePosted: &DateRange{}}, true},
	}
	for name, tc := range cases {
		if got := tc.set.HasPostFilter(); got != tc.want {
			t.Errorf("%s: HasPostFilter() = %v, want %v", name, got, tc.want)
		}
	}
}

func TestSetMarshal_RoundTrip(t *testing.T) {
	orig := Set{
		EligibleSex: strPtr("MALE"),
		AgeRange:    &AgeRange{Min: 21, Max: 40},
		StudyPhases: []string{"PHASE3"},
	}
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Set
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if *back.EligibleSex != "MALE" || back.AgeRange.Max != 40 || back.StudyPhases[0] != "PHASE3" {
		t.Errorf("round trip lost data: %+v", back)
	}
}
