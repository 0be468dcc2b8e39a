package filter

import (
	"strings"

	"github.com/trialscope/trialscope/internal/domain"
)

// Compile translates a filter set into a pushdown predicate for the store
// plus a flag for dimensions that must be evaluated after retrieval.
//
// Per-key rules are applied independently and conjoined:
//
//   - studyType / eligibleSex: equality on the upper-cased value.
//   - acceptsHealthy=false: equality predicate. acceptsHealthy=true compiles
//     to nothing at all — trials accepting healthy volunteers are a superset
//     of all trials, so the filter is a semantic no-op.
//   - ageRange: interval intersection, not containment. A trial matches when
//     its eligible window overlaps the requested window at all, hence
//     stored min_age <= requested max AND stored max_age >= requested min.
//   - studyPhases and the two posted-date ranges defer to the post-filter:
//     the store matches the phase field only as a whole string, and cannot
//     range-compare string dates.
//
// An ageRange with min > max is passed through as given; domain sanity is
// the caller's concern.
func Compile(s Set) (Predicate, bool) {
	var preds []Predicate

	if s.StudyType != nil {
		preds = append(preds, Eq(domain.FieldStudyType, strings.ToUpper(*s.StudyType)))
	}

	if s.AcceptsHealthy != nil && !*s.AcceptsHealthy {
		preds = append(preds, Eq(domain.FieldAcceptsHealthy, false))
	}

	if s.EligibleSex != nil {
		preds = append(preds, Eq(domain.FieldEligibleSex, strings.ToUpper(*s.EligibleSex)))
	}

	if s.AgeRange != nil {
		preds = append(preds,
			Lte(domain.FieldMinAge, s.AgeRange.Max),
			Gte(domain.FieldMaxAge, s.AgeRange.Min),
		)
	}

	return And(preds...), s.HasPostFilter()
}
