package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/trialscope/trialscope/internal/db"
	"github.com/trialscope/trialscope/internal/domain"
	"github.com/trialscope/trialscope/internal/domain/filter"
	"github.com/trialscope/trialscope/internal/logger"
	"github.com/trialscope/trialscope/internal/metrics"
)

// storedDateLayout is the calendar-date format of posted-date metadata.
const storedDateLayout = "2006-01-02"

// decision is the typed outcome of evaluating one row. Exclusion carries a
// reason for the metrics side channel; it never becomes an error.
type decision struct {
	keep   bool
	reason string
}

func exclude(reason string) decision { return decision{reason: reason} }

var kept = decision{keep: true}

// postFilter retains rows satisfying every active post-filter dimension, in
// original store rank order. Rows with missing or malformed metadata under an
// active dimension fail closed: they are excluded, logged, and counted, and
// evaluation continues.
func postFilter(ctx context.Context, hits *db.QueryResult, filters filter.Set) Result {
	ids := hits.RowIDs()
	docs := hits.RowDocuments()
	metas := hits.RowMetadatas()
	log := logger.FromContext(ctx)

	out := Result{IDs: []string{}, Documents: []string{}}
	for i, id := range ids {
		if i >= len(docs) || i >= len(metas) {
			// Store returned ragged payloads; nothing sound to evaluate.
			metrics.PostFilterRowsTotal.WithLabelValues("excluded").Inc()
			metrics.PostFilterExclusionsTotal.WithLabelValues("bad_metadata").Inc()
			log.Debug("post-filter: row missing payload", zap.String("trial_id", id))
			continue
		}

		d := evaluateRow(metas[i], filters)
		if d.keep {
			metrics.PostFilterRowsTotal.WithLabelValues("kept").Inc()
			out.IDs = append(out.IDs, id)
			out.Documents = append(out.Documents, docs[i])
			continue
		}

		metrics.PostFilterRowsTotal.WithLabelValues("excluded").Inc()
		metrics.PostFilterExclusionsTotal.WithLabelValues(d.reason).Inc()
		log.Debug("post-filter: row excluded",
			zap.String("trial_id", id),
			zap.String("reason", d.reason),
		)
	}
	return out
}

// evaluateRow conjoins all active post-filter dimensions.
func evaluateRow(meta map[string]any, filters filter.Set) decision {
	if filters.StudyPhases != nil {
		if d := evaluatePhases(meta, filters.StudyPhases); !d.keep {
			return d
		}
	}
	if filters.LastUpdateDatePosted != nil {
		if d := evaluateDate(meta, domain.FieldLastUpdateDatePosted, *filters.LastUpdateDatePosted); !d.keep {
			return d
		}
	}
	if filters.ResultsDatePosted != nil {
		if d := evaluateDate(meta, domain.FieldResultsDatePosted, *filters.ResultsDatePosted); !d.keep {
			return d
		}
	}
	return kept
}

// evaluatePhases accepts a row whose stored phase set intersects the
// requested set. Intersection, not subset: one common token suffices.
func evaluatePhases(meta map[string]any, wanted []string) decision {
	stored, ok := meta[domain.FieldStudyPhases].(string)
	if !ok {
		return exclude("bad_metadata")
	}
	for _, phase := range domain.DecodePhases(stored) {
		for _, w := range wanted {
			if phase == w {
				return kept
			}
		}
	}
	return exclude("phase_mismatch")
}

// evaluateDate accepts a row whose stored date lies within the requested
// window, inclusive both ends. Missing or unparseable dates fail closed.
func evaluateDate(meta map[string]any, key string, window filter.DateRange) decision {
	raw, ok := meta[key].(string)
	if !ok || raw == "" {
		return exclude("bad_date")
	}
	t, err := time.Parse(storedDateLayout, raw)
	if err != nil {
		return exclude("bad_date")
	}
	ms := t.UnixMilli()
	if ms < window.From || ms > window.To {
		return exclude("date_out_of_range")
	}
	return kept
}
