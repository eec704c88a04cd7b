package reconcile

import (
	"context"
	"strconv"
	"strings"

	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/duplicate"
	"github.com/meridianlabs/boardsync/pkg/merge"
)

// annotationSeparator joins transferred annotations into one body.
const annotationSeparator = "<br><br><hr><br><br>"

// updateExisting applies the update path for a matched source item.
func (r *Reconciler) updateExisting(ctx context.Context, item *boards.Item, match duplicate.Result, result *Result) {
	target := r.index.Item(match.TargetID)
	if target == nil {
		result.Stats.Errors++
		result.append(AuditEntry{
			Action:    ActionUpdate,
			ItemName:  item.Name,
			SourceID:  item.ID,
			TargetID:  match.TargetID,
			MatchKind: match.Kind.String(),
			Error:     "matched target item missing from index snapshot",
		})
		return
	}

	plan := r.mapper.PlanUpdate(item, target)
	hasAnnotations := r.opts.annotationTransfer && len(item.Updates) > 0

	if len(plan.Writes) == 0 && !hasAnnotations {
		result.Stats.Skipped++
		result.append(AuditEntry{
			Action:    ActionSkip,
			ItemName:  item.Name,
			SourceID:  item.ID,
			TargetID:  match.TargetID,
			MatchKind: match.Kind.String(),
		})
		return
	}

	entry := AuditEntry{
		Action:    ActionUpdate,
		ItemName:  item.Name,
		SourceID:  item.ID,
		TargetID:  match.TargetID,
		MatchKind: match.Kind.String(),
	}

	if r.opts.dryRun {
		for _, w := range plan.Writes {
			entry.Fields = append(entry.Fields, FieldAction{ColumnID: w.ColumnID, Action: "write"})
		}
		result.Stats.Updated++
		result.append(entry)
		return
	}

	for _, w := range plan.Writes {
		if err := r.writer.ChangeColumnValue(ctx, r.targetBoard, match.TargetID, w.ColumnID, w.Value); err != nil {
			r.opts.logger.Error().Err(err).
				Str("item", match.TargetID).
				Str("column", w.ColumnID).
				Msg("column write rejected")
			result.Stats.FieldFailures++
			entry.Fields = append(entry.Fields, FieldAction{ColumnID: w.ColumnID, Action: "write_failed", Error: err.Error()})
			continue
		}
		result.Stats.FieldsWritten++
		entry.Fields = append(entry.Fields, FieldAction{ColumnID: w.ColumnID, Action: "write"})
	}

	r.linkSource(ctx, item, match.TargetID)
	if hasAnnotations {
		r.transferAnnotations(ctx, item, match.TargetID, result)
	}

	result.Stats.Updated++
	result.append(entry)
}

// createNew applies the create path for an unmatched source item. The
// primary create call carries every immediately writable column; file and
// email columns follow as independent deferred writes whose failures are
// field-level only and leave the created record standing.
func (r *Reconciler) createNew(ctx context.Context, item *boards.Item, result *Result) {
	plan := r.mapper.PlanCreate(item)

	entry := AuditEntry{
		Action:   ActionCreate,
		ItemName: item.Name,
		SourceID: item.ID,
	}

	if r.opts.dryRun {
		for _, w := range plan.Writes {
			entry.Fields = append(entry.Fields, FieldAction{ColumnID: w.ColumnID, Action: "write"})
		}
		result.Stats.Created++
		result.append(entry)
		return
	}

	values := make(map[string]any, len(plan.Writes))
	for _, w := range plan.Writes {
		values[w.ColumnID] = w.Value
		entry.Fields = append(entry.Fields, FieldAction{ColumnID: w.ColumnID, Action: "write"})
	}

	newID, err := r.writer.CreateItem(ctx, r.targetBoard, item.Name, values)
	if err != nil {
		r.opts.logger.Error().Err(err).Str("item", item.Name).Msg("create rejected")
		result.Stats.Errors++
		entry.Action = ActionCreateFailed
		entry.Error = err.Error()
		entry.Fields = nil
		result.append(entry)
		return
	}
	entry.TargetID = newID

	for _, d := range plan.Deferred {
		if err := r.applyDeferred(ctx, newID, d, result); err != nil {
			// Field-level failure on an already-created record; the
			// record itself counts as created.
			result.Stats.FieldFailures++
			entry.Fields = append(entry.Fields, FieldAction{ColumnID: d.ColumnID, Action: "deferred_failed", Error: err.Error()})
			continue
		}
		entry.Fields = append(entry.Fields, FieldAction{ColumnID: d.ColumnID, Action: "deferred"})
	}

	r.linkSource(ctx, item, newID)
	if r.opts.annotationTransfer && len(item.Updates) > 0 {
		r.transferAnnotations(ctx, item, newID, result)
	}

	result.Stats.Created++
	result.append(entry)
}

// applyDeferred performs one post-create write.
func (r *Reconciler) applyDeferred(ctx context.Context, itemID string, d merge.Deferred, result *Result) error {
	switch d.Kind {
	case merge.DeferredFile:
		if err := r.writer.CopyAsset(ctx, d.AssetID, itemID, d.ColumnID, d.Filename); err != nil {
			return err
		}
		result.Stats.FilesCopied++
		return nil
	case merge.DeferredEmail:
		value := boards.EmailValue{Email: d.Email, Text: d.Email}
		return r.writer.ChangeColumnValue(ctx, r.targetBoard, itemID, d.ColumnID, value)
	default:
		return nil
	}
}

// linkSource points the configured relation column of the source item at
// its target counterpart. Best effort: a failure is logged, not counted.
func (r *Reconciler) linkSource(ctx context.Context, item *boards.Item, targetID string) {
	if r.opts.linkColumn == "" {
		return
	}

	id, err := strconv.ParseInt(targetID, 10, 64)
	if err != nil {
		return
	}

	value := merge.RelationWrite{ItemIDs: []int64{id}}
	if err := r.writer.ChangeColumnValue(ctx, r.sourceBoard, item.ID, r.opts.linkColumn, value); err != nil {
		r.opts.logger.Warn().Err(err).
			Str("source_item", item.ID).
			Str("target_item", targetID).
			Msg("linking source item to target failed")
	}
}

// transferAnnotations copies the source item's annotations onto the
// target as one combined annotation, oldest first. The API returns
// annotations newest first, so the order is reversed before joining.
func (r *Reconciler) transferAnnotations(ctx context.Context, item *boards.Item, targetID string, result *Result) {
	parts := make([]string, 0, len(item.Updates))
	for i := len(item.Updates) - 1; i >= 0; i-- {
		parts = append(parts, item.Updates[i].Body)
	}

	body := r.opts.annotationHeader + "<br><br>" + strings.Join(parts, annotationSeparator)
	if err := r.writer.AddAnnotation(ctx, targetID, body); err != nil {
		r.opts.logger.Warn().Err(err).
			Str("target_item", targetID).
			Msg("annotation transfer failed")
		return
	}
	result.Stats.AnnotationsCopied++
}
