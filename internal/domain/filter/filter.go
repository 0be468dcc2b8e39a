// Package filter defines the structured retrieval filter set and its
// compilation into the vector store's native where-clause language.
package filter

import "encoding/json"

// AgeRange is a requested eligible-age window in years, inclusive both ends.
type AgeRange struct {
	Min int
	Max int
}

// DateRange is a requested posting-date window in unix milliseconds,
// inclusive both ends.
type DateRange struct {
	From int64
	To   int64
}

// Set is the per-request filter record. Every dimension is optional; a nil
// member means "no constraint", not "match empty". Canonicalization (case
// folding of enum-like values) happens once, in Compile.
type Set struct {
	StudyType            *string
	AcceptsHealthy       *bool
	EligibleSex          *string
	AgeRange             *AgeRange
	StudyPhases          []string
	LastUpdateDatePosted *DateRange
	ResultsDatePosted    *DateRange
}

// setJSON is the wire shape: ranges arrive as two-element arrays. Unknown
// keys are dropped by construction, which keeps the format forward-compatible.
type setJSON struct {
	StudyType            *string   `json:"studyType"`
	AcceptsHealthy       *bool     `json:"acceptsHealthy"`
	EligibleSex          *string   `json:"eligibleSex"`
	AgeRange             *[2]int   `json:"ageRange"`
	StudyPhases          *[]string `json:"studyPhases"`
	LastUpdateDatePosted *[2]int64 `json:"lastUpdateDatePosted"`
	ResultsDatePosted    *[2]int64 `json:"resultsDatePosted"`
}

// UnmarshalJSON decodes the serialized filter set.
func (s *Set) UnmarshalJSON(data []byte) error {
	var aux setJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*s = Set{
		StudyType:      aux.StudyType,
		AcceptsHealthy: aux.AcceptsHealthy,
		EligibleSex:    aux.EligibleSex,
	}
	if aux.AgeRange != nil {
		s.AgeRange = &AgeRange{Min: aux.AgeRange[0], Max: aux.AgeRange[1]}
	}
	if aux.StudyPhases != nil {
		s.StudyPhases = *aux.StudyPhases
	}
	if aux.LastUpdateDatePosted != nil {
		s.LastUpdateDatePosted = &DateRange{From: aux.LastUpdateDatePosted[0], To: aux.LastUpdateDatePosted[1]}
	}
	if aux.ResultsDatePosted != nil {
		s.ResultsDatePosted = &DateRange{From: aux.ResultsDatePosted[0], To: aux.ResultsDatePosted[1]}
	}
	return nil
}

// MarshalJSON re-encodes the filter set in its wire shape.
func (s Set) MarshalJSON() ([]byte, error) {
	aux := setJSON{
		StudyType:      s.StudyType,
		AcceptsHealthy: s.AcceptsHealthy,
		EligibleSex:    s.EligibleSex,
	}
	if s.AgeRange != nil {
		aux.AgeRange = &[2]int{s.AgeRange.Min, s.AgeRange.Max}
	}
	if s.StudyPhases != nil {
		phases := s.StudyPhases
		aux.StudyPhases = &phases
	}
	if s.LastUpdateDatePosted != nil {
		aux.LastUpdateDatePosted = &[2]int64{s.LastUpdateDatePosted.From, s.LastUpdateDatePosted.To}
	}
	if s.ResultsDatePosted != nil {
		aux.ResultsDatePosted = &[2]int64{s.ResultsDatePosted.From, s.ResultsDatePosted.To}
	}
	return json.Marshal(aux)
}

// HasPostFilter reports whether any dimension requires evaluation after
// retrieval: phase membership and date ranges cannot be expressed in the
// store's native predicate language.
func (s Set) HasPostFilter() bool {
	return s.StudyPhases != nil || s.LastUpdateDatePosted != nil || s.ResultsDatePosted != nil
}
