package reconcile_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/boardsync/internal/boardapi/memory"
	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/duplicate"
	"github.com/meridianlabs/boardsync/pkg/errors"
	"github.com/meridianlabs/boardsync/pkg/merge"
	"github.com/meridianlabs/boardsync/pkg/reconcile"
	"github.com/meridianlabs/boardsync/pkg/transform"
)

const (
	sourceBoard = "100"
	targetBoard = "200"
)

var idColumns = duplicate.Columns{Email: "email", Reference: "ref"}

var testRules = []merge.Rule{
	{SourceColumn: "email", TargetColumn: "t_email"},
	{SourceColumn: "notes", TargetColumn: "t_notes", Strategy: merge.OnlyIfEmpty},
	{SourceColumn: "phone", TargetColumn: "t_phone", Strategy: merge.Overwrite},
	{SourceColumn: "cv", TargetColumn: "t_cv"},
}

func emailCV(id, email string) boards.ColumnValue {
	payload, _ := json.Marshal(map[string]string{"email": email, "text": email})
	return boards.ColumnValue{ID: id, Text: email, Value: payload}
}

func fileCV(id string, assetID int, name string) boards.ColumnValue {
	payload, _ := json.Marshal(map[string]any{"files": []map[string]any{{"assetId": assetID, "name": name}}})
	return boards.ColumnValue{ID: id, Text: name, Value: payload}
}

func newReconciler(t *testing.T, store *memory.Store, targetItems []boards.Item, opts ...reconcile.Option) *reconcile.Reconciler {
	t.Helper()
	index := duplicate.BuildIndex(targetItems, idColumns)
	mapper := merge.NewMapper(transform.NewRegistry(transform.DefaultTables()), testRules, nil)

	r, err := reconcile.New(store, store, index, mapper, sourceBoard, targetBoard, idColumns, opts...)
	require.NoError(t, err)
	return r
}

func TestRunCreatesUnmatchedItems(t *testing.T) {
	store := memory.New()
	store.AddItem(sourceBoard, &boards.Item{
		ID:   "s1",
		Name: "Anna Schmidt",
		ColumnValues: []boards.ColumnValue{
			emailCV("email", "anna@example.com"),
			{ID: "notes", Text: "first contact"},
			fileCV("cv", 4711, "cv.pdf"),
		},
		Updates: []boards.Update{{Body: "second"}, {Body: "first"}},
	})

	r := newReconciler(t, store, nil)
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Processed)
	assert.Equal(t, 1, result.Stats.Created)
	assert.Equal(t, 0, result.Stats.Updated)
	assert.Equal(t, 0, result.Stats.Errors)
	assert.Equal(t, 1, result.Stats.FilesCopied)
	assert.Equal(t, 1, result.Stats.AnnotationsCopied)

	created := store.Items(targetBoard)
	require.Len(t, created, 1)
	assert.Equal(t, "Anna Schmidt", created[0].Name)
	// Notes ride along with the create; the email column is written
	// afterwards as a deferred call.
	assert.Equal(t, "first contact", created[0].ColumnValue("t_notes").TrimmedText())
	require.NotNil(t, created[0].ColumnValue("t_email"))

	require.Len(t, store.FileCopies, 1)
	assert.Equal(t, "4711", store.FileCopies[0].AssetID)
	assert.Equal(t, "t_cv", store.FileCopies[0].ColumnID)

	// Annotations are combined oldest first into one body.
	require.Len(t, store.Annotations, 1)
	assert.Contains(t, store.Annotations[0].Body, "first")
	assert.Contains(t, store.Annotations[0].Body, "second")
	assert.Less(t,
		indexOf(store.Annotations[0].Body, "first"),
		indexOf(store.Annotations[0].Body, "second"))

	require.Len(t, result.Audit, 1)
	assert.Equal(t, reconcile.ActionCreate, result.Audit[0].Action)
	assert.NotEmpty(t, result.Audit[0].TargetID)
}

func TestRunUpdatesMatchedItems(t *testing.T) {
	store := memory.New()
	store.AddItem(sourceBoard, &boards.Item{
		ID:   "s1",
		Name: "Anna Schmidt",
		ColumnValues: []boards.ColumnValue{
			emailCV("email", "anna@example.com"),
			{ID: "notes", Text: "new note"},
			{ID: "phone", Text: "+49 30 999"},
		},
	})

	target := boards.Item{
		ID:   "t1",
		Name: "Anna Schmidt",
		ColumnValues: []boards.ColumnValue{
			emailCV("email", "anna@example.com"),
			{ID: "t_notes", Text: "existing note"},
			{ID: "t_phone", Text: "+49 30 111"},
		},
	}
	store.AddItem(targetBoard, &target)

	r := newReconciler(t, store, []boards.Item{target})
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Updated)
	assert.Equal(t, 0, result.Stats.Created)
	// Phone overwritten; notes guarded by only_if_empty; the email write
	// replaces the identical address, which is fine.
	updated := store.Item("t1")
	assert.Equal(t, "+49 30 999", updated.ColumnValue("t_phone").TrimmedText())
	assert.Equal(t, "existing note", updated.ColumnValue("t_notes").TrimmedText())

	require.Len(t, result.Audit, 1)
	assert.Equal(t, reconcile.ActionUpdate, result.Audit[0].Action)
	assert.Equal(t, "t1", result.Audit[0].TargetID)
	assert.Equal(t, "email", result.Audit[0].MatchKind)
}

func TestRunSkipsWhenNothingToWrite(t *testing.T) {
	store := memory.New()
	store.AddItem(sourceBoard, &boards.Item{
		ID:   "s1",
		Name: "Anna Schmidt",
		ColumnValues: []boards.ColumnValue{
			emailCV("email", "anna@example.com"),
			{ID: "notes", Text: "new note"},
		},
	})

	// Target already has every mapped field filled.
	target := boards.Item{
		ID:   "t1",
		Name: "Anna Schmidt",
		ColumnValues: []boards.ColumnValue{
			emailCV("email", "anna@example.com"),
			{ID: "t_email", Text: "anna@example.com"},
			{ID: "t_notes", Text: "existing"},
			{ID: "t_phone", Text: "kept"},
		},
	}
	store.AddItem(targetBoard, &target)

	// Every mapped target field is filled and the phone column is absent
	// on the source. Disable annotation transfer so nothing at all is
	// written.
	r := newReconciler(t, store, []boards.Item{target}, reconcile.WithAnnotationTransfer(false))
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Skipped)
	assert.Equal(t, 0, result.Stats.Updated)
	require.Len(t, result.Audit, 1)
	assert.Equal(t, reconcile.ActionSkip, result.Audit[0].Action)
}

func TestRunAmbiguousNameCreatesNew(t *testing.T) {
	store := memory.New()
	// Two source items carry only a name, and two target items share it.
	store.AddItem(sourceBoard, &boards.Item{ID: "s1", Name: "Anna Schmidt"})
	store.AddItem(sourceBoard, &boards.Item{ID: "s2", Name: "Anna Schmidt"})

	targets := []boards.Item{
		{ID: "t1", Name: "Anna Schmidt"},
		{ID: "t2", Name: "Anna Schmidt"},
	}
	for i := range targets {
		store.AddItem(targetBoard, &targets[i])
	}

	r := newReconciler(t, store, targets)
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	// Never resolved to a winner: each is logged, then created as new.
	assert.Equal(t, 2, result.Stats.AmbiguousNames)
	assert.Equal(t, 2, result.Stats.Created)
	assert.Equal(t, 0, result.Stats.Updated)
	assert.Len(t, store.Items(targetBoard), 4)

	require.Len(t, result.Audit, 4)
	assert.Equal(t, reconcile.ActionAmbiguous, result.Audit[0].Action)
	assert.ElementsMatch(t, []string{"t1", "t2"}, result.Audit[0].Candidates)
	assert.Equal(t, reconcile.ActionCreate, result.Audit[1].Action)

	// The index is a snapshot: the record created for s1 is not a
	// candidate for s2, and s2 never matches it.
	assert.Equal(t, reconcile.ActionAmbiguous, result.Audit[2].Action)
	assert.Equal(t, "s2", result.Audit[2].SourceID)
	assert.ElementsMatch(t, []string{"t1", "t2"}, result.Audit[2].Candidates)
	assert.Equal(t, reconcile.ActionCreate, result.Audit[3].Action)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	store := memory.New()
	store.AddItem(sourceBoard, &boards.Item{
		ID:   "s1",
		Name: "Anna Schmidt",
		ColumnValues: []boards.ColumnValue{
			emailCV("email", "anna@example.com"),
			{ID: "notes", Text: "note"},
		},
		Updates: []boards.Update{{Body: "an update"}},
	})

	r := newReconciler(t, store, nil, reconcile.WithDryRun(true))
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Stats.Created)
	assert.Empty(t, store.Items(targetBoard))
	assert.Empty(t, store.Annotations)
	assert.Empty(t, store.FileCopies)
}

func TestRunLimit(t *testing.T) {
	store := memory.New()
	for _, name := range []string{"Anna Schmidt", "Bernd Maier", "Clara Vogel"} {
		store.AddItem(sourceBoard, &boards.Item{ID: name, Name: name})
	}

	r := newReconciler(t, store, nil, reconcile.WithLimit(2))
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.Processed)
	assert.Equal(t, 2, result.Stats.Created)
}

func TestRunCreateFailureIsRecordLevel(t *testing.T) {
	store := memory.New()
	store.FailCreates = map[string]error{"Anna Schmidt": stderrors.New("boom")}
	store.AddItem(sourceBoard, &boards.Item{ID: "s1", Name: "Anna Schmidt"})
	store.AddItem(sourceBoard, &boards.Item{ID: "s2", Name: "Bernd Maier"})

	r := newReconciler(t, store, nil)
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	// The failed item is an error; the run continues with the next one.
	assert.Equal(t, 2, result.Stats.Processed)
	assert.Equal(t, 1, result.Stats.Errors)
	assert.Equal(t, 1, result.Stats.Created)

	require.Len(t, result.Audit, 2)
	assert.Equal(t, reconcile.ActionCreateFailed, result.Audit[0].Action)
	assert.Equal(t, "boom", result.Audit[0].Error)
}

func TestRunFieldFailureDoesNotFailItem(t *testing.T) {
	store := memory.New()
	store.FailColumns = map[string]error{"t_phone": stderrors.New("column rejected")}
	store.AddItem(sourceBoard, &boards.Item{
		ID:   "s1",
		Name: "Anna Schmidt",
		ColumnValues: []boards.ColumnValue{
			emailCV("email", "anna@example.com"),
			{ID: "phone", Text: "+49 30 999"},
			{ID: "notes", Text: "note"},
		},
	})
	target := boards.Item{
		ID:           "t1",
		Name:         "Anna Schmidt",
		ColumnValues: []boards.ColumnValue{emailCV("email", "anna@example.com")},
	}
	store.AddItem(targetBoard, &target)

	r := newReconciler(t, store, []boards.Item{target})
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	// The rejected phone write is field-level; the item still updates.
	assert.Equal(t, 1, result.Stats.Updated)
	assert.Equal(t, 0, result.Stats.Errors)
	assert.Equal(t, 1, result.Stats.FieldFailures)
	assert.GreaterOrEqual(t, result.Stats.FieldsWritten, 1)
	assert.Equal(t, "note", store.Item("t1").ColumnValue("t_notes").TrimmedText())
}

func TestRunCanceledBetweenItems(t *testing.T) {
	store := memory.New()
	store.AddItem(sourceBoard, &boards.Item{ID: "s1", Name: "Anna Schmidt"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newReconciler(t, store, nil)
	result, err := r.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
	assert.Equal(t, 0, result.Stats.Processed)
}

func TestRunLinkColumn(t *testing.T) {
	store := memory.New()
	store.AddItem(sourceBoard, &boards.Item{
		ID:           "s1",
		Name:         "Anna Schmidt",
		ColumnValues: []boards.ColumnValue{emailCV("email", "anna@example.com")},
	})
	target := boards.Item{
		ID:           "4242",
		Name:         "Anna Schmidt",
		ColumnValues: []boards.ColumnValue{emailCV("email", "anna@example.com")},
	}
	store.AddItem(targetBoard, &target)

	r := newReconciler(t, store, []boards.Item{target}, reconcile.WithLinkColumn("link_col"))
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	// The source item now points at its duplicate.
	source := store.Item("s1")
	require.NotNil(t, source.ColumnValue("link_col"))
	assert.Contains(t, source.ColumnValue("link_col").TrimmedText(), "4242")
}

func TestNewValidation(t *testing.T) {
	store := memory.New()
	index := duplicate.BuildIndex(nil, idColumns)
	mapper := merge.NewMapper(transform.NewRegistry(transform.DefaultTables()), nil, nil)

	_, err := reconcile.New(nil, store, index, mapper, sourceBoard, targetBoard, idColumns)
	assert.Error(t, err)

	_, err = reconcile.New(store, store, nil, mapper, sourceBoard, targetBoard, idColumns)
	assert.Error(t, err)

	_, err = reconcile.New(store, store, index, nil, sourceBoard, targetBoard, idColumns)
	assert.Error(t, err)
}

// indexOf is strings.Index spelled out for readability in assertions.
func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
