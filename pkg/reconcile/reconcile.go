// Package reconcile drives a merge run: it streams source items, matches
// each against the duplicate index, resolves a write plan through the
// merge engine, and hands create-or-update intents to the board store,
// accumulating run statistics and an ordered audit log as it goes.
//
// Processing is strictly sequential, one item at a time, so a run never
// races with itself. Every failure is recorded and processing continues
// with the next item; only context cancellation stops a run early, and
// only between items.
package reconcile

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/duplicate"
	"github.com/meridianlabs/boardsync/pkg/errors"
	"github.com/meridianlabs/boardsync/pkg/merge"
)

// Source streams the items of a board. Implementations paginate lazily;
// the callback is invoked once per item in board order, and a callback
// error stops the stream and is returned unchanged.
type Source interface {
	ForEachItem(ctx context.Context, boardID string, fn func(*boards.Item) error) error
}

// Writer applies mutations to the board store. Each call is one external
// write; retries with backoff live behind this interface, never in the
// reconciler's decision logic.
type Writer interface {
	// CreateItem creates an item with the given column values and
	// returns its id.
	CreateItem(ctx context.Context, boardID, name string, values map[string]any) (string, error)

	// ChangeColumnValue sets a single column of an existing item.
	ChangeColumnValue(ctx context.Context, boardID, itemID, columnID string, value any) error

	// AttachFile uploads an attachment to an item's file column.
	AttachFile(ctx context.Context, itemID, columnID, filename string, r io.Reader) error

	// CopyAsset copies an existing stored asset onto an item's file
	// column without re-uploading through the caller.
	CopyAsset(ctx context.Context, assetID, itemID, columnID, filename string) error

	// AddAnnotation appends a textual annotation to an item.
	AddAnnotation(ctx context.Context, itemID, body string) error
}

// Reconciler merges one source board into a target board.
type Reconciler struct {
	source Source
	writer Writer
	index  *duplicate.Index
	mapper *merge.Mapper

	sourceBoard string
	targetBoard string
	columns     duplicate.Columns

	opts options
}

// New creates a reconciler. The duplicate index must already be built
// from a full scan of the target board; it is treated as a read-only
// snapshot for the whole run.
func New(source Source, writer Writer, index *duplicate.Index, mapper *merge.Mapper,
	sourceBoard, targetBoard string, columns duplicate.Columns, opts ...Option) (*Reconciler, error) {
	if source == nil || writer == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "source and writer are required"}
	}
	if index == nil {
		return nil, &errors.ValidationError{Field: "index", Message: "duplicate index is required"}
	}
	if mapper == nil {
		return nil, &errors.ValidationError{Field: "mapper", Message: "field mapper is required"}
	}

	r := &Reconciler{
		source:      source,
		writer:      writer,
		index:       index,
		mapper:      mapper,
		sourceBoard: sourceBoard,
		targetBoard: targetBoard,
		columns:     columns,
		opts:        defaultOptions(),
	}
	for _, opt := range opts {
		opt(&r.opts)
	}

	return r, nil
}

// Run processes the source board once, forward-only. It returns the run
// result even when ctx is canceled mid-run: the result covers every item
// fully processed before cancellation.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	result := NewResult(r.opts.dryRun)
	log := r.opts.logger

	log.Info().
		Str("source_board", r.sourceBoard).
		Str("target_board", r.targetBoard).
		Int("indexed_items", r.index.Len()).
		Bool("dry_run", r.opts.dryRun).
		Msg("starting merge run")

	err := r.source.ForEachItem(ctx, r.sourceBoard, func(item *boards.Item) error {
		// Items are the unit of work; cancellation takes effect at item
		// boundaries so no item is left half-written.
		if err := ctx.Err(); err != nil {
			return errors.ErrCanceled
		}
		if r.opts.limit > 0 && result.Stats.Processed >= r.opts.limit {
			return errStopIteration
		}

		r.processItem(ctx, item, result)
		result.Stats.Processed++
		return nil
	})

	switch {
	case err == nil || err == errStopIteration:
	case errors.IsCanceled(err):
		log.Warn().Int("processed", result.Stats.Processed).Msg("merge run canceled")
		return result, err
	default:
		return result, err
	}

	log.Info().
		Int("processed", result.Stats.Processed).
		Int("created", result.Stats.Created).
		Int("updated", result.Stats.Updated).
		Int("skipped", result.Stats.Skipped).
		Int("errors", result.Stats.Errors).
		Msg("merge run finished")

	return result, nil
}

// errStopIteration stops the source stream once the item limit is hit.
var errStopIteration = stderrors.New("stop iteration")

// processItem runs the per-item state machine: match, then either the
// update path or the create path. Every item increments exactly one
// terminal counter and appends exactly one terminal audit entry;
// ambiguous matches append an extra informational entry first.
func (r *Reconciler) processItem(ctx context.Context, item *boards.Item, result *Result) {
	match := duplicate.Match(item, r.index, r.columns)

	if match.Kind == duplicate.MatchAmbiguousName {
		// Terminal non-match: never resolved to a winner. Logged, then
		// the item falls through to create-new behavior.
		r.opts.logger.Warn().
			Str("item", item.Name).
			Str("normalized_name", match.NormalizedName).
			Strs("candidates", match.Candidates).
			Msg("ambiguous name-only match, treating as new item")
		result.Stats.AmbiguousNames++
		result.append(AuditEntry{
			Action:         ActionAmbiguous,
			ItemName:       item.Name,
			SourceID:       item.ID,
			MatchKind:      match.Kind.String(),
			NormalizedName: match.NormalizedName,
			Candidates:     match.Candidates,
		})
	}

	if match.Matched() {
		r.updateExisting(ctx, item, match, result)
		return
	}

	r.createNew(ctx, item, result)
}
