package seswi_test

import (
	"context"
	"errors"
	"testing"

	"seswi-go/internal/seswi"
	"seswi-go/internal/testutil"
)

// failingInsertStore fails bulk inserts while Fail is set.
type failingInsertStore struct {
	seswi.SessionStore
	Fail bool
}

func (s *failingInsertStore) InsertRecords(ctx context.Context, recs []seswi.SessionRecord) error {
	if s.Fail {
		return errors.New("disk full")
	}
	return s.SessionStore.InsertRecords(ctx, recs)
}

func newTestFlow(t *testing.T) (*seswi.RestoreFlow, *seswi.SessionRepository, *failingInsertStore) {
	t.Helper()
	store := &failingInsertStore{SessionStore: testutil.NewTestDatabase(t)}
	repo := seswi.NewSessionRepository(store, seswi.NewNopLogger())
	return seswi.NewRestoreFlow(newTestCodec(), repo, seswi.NewNopLogger()), repo, store
}

func backupOf(t *testing.T, sessions ...*seswi.Session) []byte {
	t.Helper()
	data, err := newTestCodec().EncodePlain(sessions)
	if err != nil {
		t.Fatalf("EncodePlain() error = %v", err)
	}
	return data
}

func TestRestoreFlow_Plaintext(t *testing.T) {
	ctx := context.Background()
	flow, repo, _ := newTestFlow(t)

	if err := repo.Save(ctx, testutil.NewSession("a.com", "work", 100)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data := backupOf(t,
		testutil.NewSession("a.com", "WORK", 200),
		testutil.NewSession("a.com", "home", 300),
		testutil.NewSession("b.com", "work", 400),
	)

	if err := flow.SelectFile(ctx, "backup.json", data); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	if flow.State() != seswi.StateVerified {
		t.Fatalf("State() = %v, want %v", flow.State(), seswi.StateVerified)
	}
	items := flow.Items()
	if len(items) != 3 || !items[0].DuplicateName || items[0].Selected || !items[1].Selected || !items[2].Selected {
		t.Fatalf("Items() = %+v, want the first flagged and deselected", items)
	}

	res, err := flow.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if res.RestoredCount != 2 || res.SkippedCount != 1 || res.TotalCount != 3 {
		t.Errorf("Restore() = %+v, want 2 restored, 1 skipped, 3 total", res)
	}
	if flow.State() != seswi.StateDone {
		t.Errorf("State() = %v, want %v", flow.State(), seswi.StateDone)
	}
	if all, _ := repo.GetAll(ctx); len(all) != 3 {
		t.Errorf("GetAll() = %d sessions, want 3", len(all))
	}
}

func TestRestoreFlow_Encrypted(t *testing.T) {
	ctx := context.Background()
	flow, repo, _ := newTestFlow(t)

	data, err := newTestCodec().EncodeOWI([]*seswi.Session{testutil.NewSession("a.com", "work", 100)}, "right")
	if err != nil {
		t.Fatalf("EncodeOWI() error = %v", err)
	}

	if err := flow.SelectFile(ctx, "backup.owi", data); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	if flow.State() != seswi.StatePendingPassword {
		t.Fatalf("State() = %v, want %v", flow.State(), seswi.StatePendingPassword)
	}

	if err := flow.Verify(ctx, "wrong"); !errors.Is(err, seswi.ErrDecryption) {
		t.Fatalf("Verify(wrong) error = %v, want ErrDecryption", err)
	}
	if flow.State() != seswi.StatePendingPassword || flow.FileName() != "backup.owi" {
		t.Fatalf("after wrong password: state %v, file %q", flow.State(), flow.FileName())
	}

	if err := flow.Verify(ctx, "right"); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if flow.State() != seswi.StateVerified {
		t.Fatalf("State() = %v, want %v", flow.State(), seswi.StateVerified)
	}
	if err := flow.Verify(ctx, "right"); !errors.Is(err, seswi.ErrInvalidTransition) {
		t.Errorf("Verify() twice error = %v, want ErrInvalidTransition", err)
	}

	if _, err := flow.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if got, _ := repo.Get(ctx, 100); got == nil {
		t.Error("restored session not stored")
	}
}

func TestRestoreFlow_SelectFileFailures(t *testing.T) {
	ctx := context.Background()
	valid := backupOf(t, testutil.NewSession("a.com", "x", 1))

	tests := []struct {
		name string
		file string
		data []byte
		want error
	}{
		{name: "wrong extension", file: "backup.txt", data: valid, want: seswi.ErrInvalidInput},
		{name: "plaintext named owi", file: "backup.owi", data: valid, want: seswi.ErrInvalidPayload},
		{name: "corrupt json", file: "backup.json", data: []byte("{"), want: seswi.ErrInvalidPayload},
		{name: "no valid sessions", file: "backup.json", data: []byte(`{"sessions":[{"name":"x"}]}`), want: seswi.ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, _, _ := newTestFlow(t)
			err := flow.SelectFile(ctx, tt.file, tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("SelectFile() error = %v, want %v", err, tt.want)
			}
			if flow.State() != seswi.StateFailed {
				t.Errorf("State() = %v, want %v", flow.State(), seswi.StateFailed)
			}
			if !errors.Is(flow.Err(), tt.want) {
				t.Errorf("Err() = %v, want %v", flow.Err(), tt.want)
			}
		})
	}
}

func TestRestoreFlow_InspectAndSelection(t *testing.T) {
	ctx := context.Background()
	flow, repo, _ := newTestFlow(t)

	if err := flow.Inspect(); !errors.Is(err, seswi.ErrInvalidTransition) {
		t.Errorf("Inspect() from idle error = %v, want ErrInvalidTransition", err)
	}

	if err := repo.Save(ctx, testutil.NewSession("a.com", "work", 100)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data := backupOf(t, testutil.NewSession("a.com", "work", 200), testutil.NewSession("a.com", "new", 300))
	if err := flow.SelectFile(ctx, "b.json", data); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}

	if err := flow.Inspect(); err != nil || flow.State() != seswi.StateInspecting {
		t.Fatalf("Inspect() error = %v, state %v", err, flow.State())
	}
	if err := flow.SetSelected(1, false); err != nil {
		t.Fatalf("SetSelected() error = %v", err)
	}
	if err := flow.SetSelected(5, true); !errors.Is(err, seswi.ErrInvalidInput) {
		t.Errorf("SetSelected(out of range) error = %v, want ErrInvalidInput", err)
	}

	_, err := flow.Restore(ctx)
	if !errors.Is(err, seswi.ErrValidation) {
		t.Fatalf("Restore() with nothing selected error = %v, want ErrValidation", err)
	}
	if flow.State() != seswi.StateInspecting {
		t.Errorf("State() = %v, want %v", flow.State(), seswi.StateInspecting)
	}

	if err := flow.SelectAll(); err != nil {
		t.Fatalf("SelectAll() error = %v", err)
	}
	res, err := flow.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if res.RestoredCount != 2 {
		t.Errorf("RestoredCount = %d, want 2", res.RestoredCount)
	}

	// The opted-in duplicate now sits beside the original.
	all, _ := repo.GetAll(ctx)
	if len(all) != 3 {
		t.Errorf("GetAll() = %d sessions, want 3", len(all))
	}

	flow.Reset()
	if flow.State() != seswi.StateIdle || flow.Items() != nil || flow.Result() != nil {
		t.Errorf("Reset() left state %v, %d items", flow.State(), len(flow.Items()))
	}
}

func TestRestoreFlow_RestoreFailureKeepsItems(t *testing.T) {
	ctx := context.Background()
	flow, repo, store := newTestFlow(t)

	data := backupOf(t, testutil.NewSession("a.com", "x", 1))
	if err := flow.SelectFile(ctx, "b.json", data); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}

	store.Fail = true
	if _, err := flow.Restore(ctx); err == nil {
		t.Fatal("Restore() error = nil, want failure")
	}
	if flow.State() != seswi.StateVerified || len(flow.Items()) != 1 || flow.Err() == nil {
		t.Fatalf("after failure: state %v, %d items, err %v", flow.State(), len(flow.Items()), flow.Err())
	}

	store.Fail = false
	if _, err := flow.Restore(ctx); err != nil {
		t.Fatalf("Restore() retry error = %v", err)
	}
	if got, _ := repo.Get(ctx, 1); got == nil {
		t.Error("retried restore did not store the session")
	}
	if err := flow.SetSelected(0, true); !errors.Is(err, seswi.ErrInvalidTransition) {
		t.Errorf("SetSelected() after done error = %v, want ErrInvalidTransition", err)
	}
}

func TestRestoreState_String(t *testing.T) {
	t.Parallel()
	if got := seswi.StatePendingPassword.String(); got != "pending-password" {
		t.Errorf("String() = %q, want %q", got, "pending-password")
	}
	if got := seswi.RestoreState(99).String(); got != "state(99)" {
		t.Errorf("String() = %q, want %q", got, "state(99)")
	}
}
