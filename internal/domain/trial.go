package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PhaseSeparator joins phase tokens in the stored study_phases field. The
// stored value is semantically a set; ordering is an upstream artifact.
const PhaseSeparator = ", "

// Metadata field names as stored in the vector store. The store only accepts
// scalar values, so composite fields are kept as JSON-encoded strings and
// decoded on read.
const (
	FieldStudyType            = "study_type"
	FieldStudyPhases          = "study_phases"
	FieldEligibleSex          = "eligible_sex"
	FieldAcceptsHealthy       = "accepts_healthy"
	FieldMinAge               = "min_age"
	FieldMaxAge               = "max_age"
	FieldLastUpdateDatePosted = "last_update_date_posted"
	FieldResultsDatePosted    = "results_date_posted"
)

// Intervention is a treatment arm of a trial.
type Intervention struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MeasureOutcome is a primary/secondary/other outcome measure.
type MeasureOutcome struct {
	Measure     string `json:"measure"`
	Description string `json:"description"`
	TimeFrame   string `json:"timeFrame"`
}

// Reference is a publication linked to a trial.
type Reference struct {
	PMID     string `json:"pmid"`
	Citation string `json:"citation"`
}

// TrialDocument is a downloadable study document.
type TrialDocument struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// TrialMetadata is the full structured record of one clinical trial as
// exposed over the API. Field names follow the public JSON contract.
type TrialMetadata struct {
	ShortTitle               string           `json:"shortTitle"`
	LongTitle                string           `json:"longTitle"`
	Organization             string           `json:"organization"`
	SubmitDate               string           `json:"submitDate"`
	SubmitDateQC             string           `json:"submitDateQc"`
	SubmitDatePosted         string           `json:"submitDatePosted"`
	ResultsDate              string           `json:"resultsDate"`
	ResultsDateQC            string           `json:"resultsDateQc"`
	ResultsDatePosted        string           `json:"resultsDatePosted"`
	LastUpdateDate           string           `json:"lastUpdateDate"`
	LastUpdateDatePosted     string           `json:"lastUpdateDatePosted"`
	VerifyDate               string           `json:"verifyDate"`
	Sponsor                  string           `json:"sponsor"`
	Collaborators            []string         `json:"collaborators"`
	Summary                  string           `json:"summary"`
	Details                  string           `json:"details"`
	Conditions               []string         `json:"conditions"`
	StudyPhases              string           `json:"studyPhases"`
	StudyType                string           `json:"studyType"`
	EnrollmentCount          int              `json:"enrollmentCount"`
	Allocation               string           `json:"allocation"`
	InterventionModel        string           `json:"interventionModel"`
	ObservationalModel       string           `json:"observationalModel"`
	PrimaryPurpose           string           `json:"primaryPurpose"`
	WhoMasked                string           `json:"whoMasked"`
	Interventions            []Intervention   `json:"interventions"`
	PrimaryMeasureOutcomes   []MeasureOutcome `json:"primaryMeasureOutcomes"`
	SecondaryMeasureOutcomes []MeasureOutcome `json:"secondaryMeasureOutcomes"`
	OtherMeasureOutcomes     []MeasureOutcome `json:"otherMeasureOutcomes"`
	MinAge                   int              `json:"minAge"`
	MaxAge                   int              `json:"maxAge"`
	EligibleSex              string           `json:"eligibleSex"`
	AcceptsHealthy           bool             `json:"acceptsHealthy"`
	InclusionCriteria        string           `json:"inclusionCriteria"`
	ExclusionCriteria        string           `json:"exclusionCriteria"`
	Officials                []string         `json:"officials"`
	Locations                []string         `json:"locations"`
	References               []Reference      `json:"references"`
	Documents                []TrialDocument  `json:"documents"`
}

// DecodePhases splits a stored comma-joined phase string into its token set.
// An empty stored value decodes to no phases.
func DecodePhases(stored string) []string {
	if stored == "" {
		return nil
	}
	return strings.Split(stored, PhaseSeparator)
}

// DecodeTrialMetadata converts a scalar-only metadata map from the store into
// the structured record. Composite fields arrive as JSON-encoded strings.
func DecodeTrialMetadata(raw map[string]any) (*TrialMetadata, error) {
	d := decoder{raw: raw}

	m := &TrialMetadata{
		ShortTitle:           d.str("short_title"),
		LongTitle:            d.str("long_title"),
		Organization:         d.str("organization"),
		SubmitDate:           d.str("submit_date"),
		SubmitDateQC:         d.str("submit_date_qc"),
		SubmitDatePosted:     d.str("submit_date_posted"),
		ResultsDate:          d.str("results_date"),
		ResultsDateQC:        d.str("results_date_qc"),
		ResultsDatePosted:    d.str(FieldResultsDatePosted),
		LastUpdateDate:       d.str("last_update_date"),
		LastUpdateDatePosted: d.str(FieldLastUpdateDatePosted),
		VerifyDate:           d.str("verify_date"),
		Sponsor:              d.str("sponsor"),
		Summary:              d.str("summary"),
		Details:              d.str("details"),
		StudyPhases:          d.str(FieldStudyPhases),
		StudyType:            d.str(FieldStudyType),
		EnrollmentCount:      d.num("enrollment_count"),
		Allocation:           d.str("allocation"),
		InterventionModel:    d.str("intervention_model"),
		ObservationalModel:   d.str("observational_model"),
		PrimaryPurpose:       d.str("primary_purpose"),
		WhoMasked:            d.str("who_masked"),
		MinAge:               d.num(FieldMinAge),
		MaxAge:               d.num(FieldMaxAge),
		EligibleSex:          d.str(FieldEligibleSex),
		AcceptsHealthy:       d.boolean(FieldAcceptsHealthy),
		InclusionCriteria:    d.str("inclusion_criteria"),
		ExclusionCriteria:    d.str("exclusion_criteria"),
	}

	d.jsonList("collaborators", &m.Collaborators)
	d.jsonList("conditions", &m.Conditions)
	d.jsonList("interventions", &m.Interventions)
	d.jsonList("primary_measure_outcomes", &m.PrimaryMeasureOutcomes)
	d.jsonList("secondary_measure_outcomes", &m.SecondaryMeasureOutcomes)
	d.jsonList("other_measure_outcomes", &m.OtherMeasureOutcomes)
	d.jsonList("officials", &m.Officials)
	d.jsonList("locations", &m.Locations)
	d.jsonList("references", &m.References)
	d.jsonList("documents", &m.Documents)

	if d.err != nil {
		return nil, d.err
	}
	return m, nil
}

// decoder accumulates the first decode error instead of failing per field.
type decoder struct {
	raw map[string]any
	err error
}

func (d *decoder) str(key string) string {
	if s, ok := d.raw[key].(string); ok {
		return s
	}
	return ""
}

func (d *decoder) num(key string) int {
	switch v := d.raw[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (d *decoder) boolean(key string) bool {
	b, _ := d.raw[key].(bool)
	return b
}

func (d *decoder) jsonList(key string, out any) {
	if d.err != nil {
		return
	}
	s, ok := d.raw[key].(string)
	if !ok || s == "" {
		return
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		d.err = fmt.Errorf("decode metadata field %q: %w", key, err)
	}
}
