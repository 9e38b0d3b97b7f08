package ledger

import "fmt"

// StoreCorruptError reports a ledger file that exists but cannot be parsed.
// It is fatal for a run; no partial recovery is attempted.
type StoreCorruptError struct {
	Path string
	Err  error
}

func (e *StoreCorruptError) Error() string {
	return fmt.Sprintf("ledger: corrupt store %s: %v", e.Path, e.Err)
}

func (e *StoreCorruptError) Unwrap() error {
	return e.Err
}

// PersistError reports a failed write of the ledger. RolledBack is true when
// the two representations were restored to their previous, identical state.
type PersistError struct {
	Stage      string
	RolledBack bool
	Err        error
}

func (e *PersistError) Error() string {
	if e.RolledBack {
		return fmt.Sprintf("ledger: persist %s failed (rolled back): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("ledger: persist %s failed: %v", e.Stage, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
