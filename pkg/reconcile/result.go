package reconcile

import "fmt"

// Audit actions. One entry is appended per terminal state; ambiguous
// matches additionally get their own mandatory entry before the item is
// re-processed as a create.
const (
	ActionCreate       = "create"
	ActionCreateFailed = "create_failed"
	ActionUpdate       = "update"
	ActionSkip         = "skip"
	ActionAmbiguous    = "name_match_ambiguous"
)

// Stats are the run-level counters. Every processed item lands in exactly
// one of Created, Updated, Skipped or Errors.
type Stats struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`

	// Informational counters, not terminal states.
	AmbiguousNames    int `json:"ambiguous_names"`
	FieldsWritten     int `json:"fields_written"`
	FieldFailures     int `json:"field_failures"`
	FilesCopied       int `json:"files_copied"`
	AnnotationsCopied int `json:"annotations_copied"`
}

// FieldAction records what happened to one column during an item's
// processing.
type FieldAction struct {
	ColumnID string `json:"column_id"`
	Action   string `json:"action"` // "write", "deferred", "deferred_failed", "write_failed"
	Error    string `json:"error,omitempty"`
}

// AuditEntry explains one decision of the run. Flat and serializable; no
// further interpretation is needed to render or persist it.
type AuditEntry struct {
	Action         string        `json:"action"`
	ItemName       string        `json:"item_name"`
	SourceID       string        `json:"source_item_id"`
	TargetID       string        `json:"target_item_id,omitempty"`
	MatchKind      string        `json:"match_kind,omitempty"`
	NormalizedName string        `json:"normalized_name,omitempty"`
	Candidates     []string      `json:"candidates,omitempty"`
	Fields         []FieldAction `json:"fields,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// Result is the outcome of one merge run: counters plus the ordered
// audit log, one entry per decision in processing order.
type Result struct {
	Stats  Stats        `json:"stats"`
	Audit  []AuditEntry `json:"entries"`
	DryRun bool         `json:"dry_run"`
}

// NewResult creates an empty run result.
func NewResult(dryRun bool) *Result {
	return &Result{DryRun: dryRun}
}

// append adds an audit entry preserving processing order.
func (r *Result) append(entry AuditEntry) {
	r.Audit = append(r.Audit, entry)
}

// Summary returns a one-line human-readable run summary.
func (r *Result) Summary() string {
	prefix := ""
	if r.DryRun {
		prefix = "(dry run) "
	}
	return fmt.Sprintf("%s%d processed: %d created, %d updated, %d skipped, %d errors",
		prefix, r.Stats.Processed, r.Stats.Created, r.Stats.Updated, r.Stats.Skipped, r.Stats.Errors)
}
