package seswi

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// RestoreState is a step of the backup import flow.
type RestoreState int

const (
	StateIdle RestoreState = iota
	StateFileSelected
	StatePendingPassword
	StateVerified
	StateInspecting
	StateRestoring
	StateDone
	StateFailed
)

var restoreStateNames = map[RestoreState]string{
	StateIdle:            "idle",
	StateFileSelected:    "file-selected",
	StatePendingPassword: "pending-password",
	StateVerified:        "verified",
	StateInspecting:      "inspecting",
	StateRestoring:       "restoring",
	StateDone:            "done",
	StateFailed:          "failed",
}

func (s RestoreState) String() string {
	if name, ok := restoreStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrInvalidTransition is returned when an action is not allowed in the
// flow's current state.
var ErrInvalidTransition = errors.New("action not allowed in current restore state")

// ImportResult reports a committed import. RestoredCount plus SkippedCount
// always equals TotalCount.
type ImportResult struct {
	RestoredCount int `json:"restoredCount"`
	SkippedCount  int `json:"skippedCount"`
	TotalCount    int `json:"totalCount"`
}

// RestoreFlow drives the import of one backup file. Parsed data survives a
// wrong password or a failed restore so the user can retry.
type RestoreFlow struct {
	codec  *BackupCodec
	repo   *SessionRepository
	logger Logger

	mu        sync.Mutex
	state     RestoreState
	fileName  string
	data      []byte
	encrypted bool
	items     []ImportItem
	invalid   int
	lastErr   error
	result    *ImportResult
}

// NewRestoreFlow creates a flow in StateIdle.
func NewRestoreFlow(codec *BackupCodec, repo *SessionRepository, logger Logger) *RestoreFlow {
	return &RestoreFlow{codec: codec, repo: repo, logger: logger}
}

// State returns the current state.
func (f *RestoreFlow) State() RestoreState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the error that caused the last failed action.
func (f *RestoreFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// FileName returns the selected file's name.
func (f *RestoreFlow) FileName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fileName
}

// Invalid returns how many entries of the file failed validation.
func (f *RestoreFlow) Invalid() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalid
}

// Result returns the import result once the flow is done.
func (f *RestoreFlow) Result() *ImportResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// SelectFile loads a backup file. Plaintext files are parsed immediately and
// end in StateVerified or StateFailed; OWI files wait in
// StatePendingPassword. Selecting a file is refused while restoring.
func (f *RestoreFlow) SelectFile(ctx context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateRestoring {
		return ErrInvalidTransition
	}
	f.reset()

	encrypted, err := CheckBackupFile(name, int64(len(data)))
	if err != nil {
		return f.fail(err)
	}
	f.state = StateFileSelected
	f.fileName = name
	f.data = data
	f.encrypted = encrypted

	if !f.encrypted {
		return f.parse(ctx, "")
	}
	if !IsEncrypted(data) {
		return f.fail(opError("decryptOWI", kindError(ErrInvalidPayload, "invalid OWI file")))
	}
	f.state = StatePendingPassword
	return nil
}

// Verify decrypts a pending OWI file. A wrong password leaves the flow in
// StatePendingPassword with the file still selected.
func (f *RestoreFlow) Verify(ctx context.Context, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StatePendingPassword {
		return ErrInvalidTransition
	}
	err := f.parse(ctx, password)
	if err != nil && (errors.Is(err, ErrDecryption) || errors.Is(err, ErrValidation)) {
		f.state = StatePendingPassword
	}
	return err
}

// parse decodes the selected file and computes conflict flags. The caller
// holds f.mu.
func (f *RestoreFlow) parse(ctx context.Context, password string) error {
	decoded, err := f.codec.Decode(f.data, password)
	if err != nil {
		return f.fail(err)
	}
	if len(decoded.Sessions) == 0 {
		return f.fail(opError("validateFileBeforeImport", kindError(ErrInvalidPayload, "backup contains no valid sessions")))
	}

	existing, err := f.repo.GetAll(ctx)
	if err != nil {
		return f.fail(err)
	}

	f.items = DetectConflicts(decoded.Sessions, existing)
	f.invalid = decoded.Invalid
	f.lastErr = nil
	f.state = StateVerified
	return nil
}

// Inspect toggles between StateVerified and StateInspecting. It never
// touches persisted state.
func (f *RestoreFlow) Inspect() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateVerified:
		f.state = StateInspecting
	case StateInspecting:
		f.state = StateVerified
	default:
		return ErrInvalidTransition
	}
	return nil
}

// Items returns a copy of the parsed items with their selection.
func (f *RestoreFlow) Items() []ImportItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ImportItem(nil), f.items...)
}

// SetSelected includes or excludes item i from the restore set.
func (f *RestoreFlow) SetSelected(i int, selected bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateVerified && f.state != StateInspecting {
		return ErrInvalidTransition
	}
	if i < 0 || i >= len(f.items) {
		return kindError(ErrInvalidInput, "item %d out of range", i)
	}
	f.items[i].Selected = selected
	return nil
}

// SelectAll includes every item, duplicates too.
func (f *RestoreFlow) SelectAll() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateVerified && f.state != StateInspecting {
		return ErrInvalidTransition
	}
	for i := range f.items {
		f.items[i].Selected = true
	}
	return nil
}

// Restore merges the selected items into the repository. On failure the
// flow returns to the state it was in, keeping the parsed items.
func (f *RestoreFlow) Restore(ctx context.Context) (*ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateVerified && f.state != StateInspecting {
		return nil, ErrInvalidTransition
	}
	prev := f.state

	var selected []*Session
	for _, it := range f.items {
		if it.Selected {
			selected = append(selected, it.Session)
		}
	}
	if len(selected) == 0 {
		f.lastErr = opError("restoreSessions", kindError(ErrValidation, "no sessions selected"))
		return nil, f.lastErr
	}

	f.state = StateRestoring
	merged, err := f.repo.Merge(ctx, selected)
	if err != nil {
		f.state = prev
		f.lastErr = err
		f.logger.Warn("restore failed", "file", f.fileName, "error", err)
		return nil, err
	}

	total := len(f.items)
	f.result = &ImportResult{
		RestoredCount: merged.RestoredCount,
		SkippedCount:  total - merged.RestoredCount,
		TotalCount:    total,
	}
	f.state = StateDone
	f.lastErr = nil
	f.data = nil
	f.logger.Info("backup restored", "file", f.fileName, "restored", f.result.RestoredCount, "skipped", f.result.SkippedCount)
	return f.result, nil
}

// Reset returns the flow to StateIdle and drops the selected file.
func (f *RestoreFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *RestoreFlow) reset() {
	f.state = StateIdle
	f.fileName = ""
	f.data = nil
	f.encrypted = false
	f.items = nil
	f.invalid = 0
	f.lastErr = nil
	f.result = nil
}

func (f *RestoreFlow) fail(err error) error {
	f.state = StateFailed
	f.lastErr = err
	return err
}
