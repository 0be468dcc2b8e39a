package retrieval

import "github.com/trialscope/trialscope/internal/db"

// reconcile normalizes a store response into the response contract: two
// equal-length, never-nil sequences in store rank order. The store returns
// null for fields that were not requested; the row accessors already map
// that to empty slices, so only the length invariant is enforced here.
func reconcile(hits *db.QueryResult) Result {
	ids := hits.RowIDs()
	docs := hits.RowDocuments()

	if len(ids) != len(docs) {
		n := min(len(ids), len(docs))
		ids = ids[:n]
		docs = docs[:n]
	}
	return Result{IDs: ids, Documents: docs}
}
