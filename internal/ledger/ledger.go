// Package ledger is the content-addressed durable record store. Records are
// keyed by the SHA-256 of their raw bytes and written as two synchronized
// representations: a JSON document and a flat CSV table.
package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/model"
)

// Ledger owns the durable record files.
type Ledger struct {
	fs       afero.Fs
	jsonPath string
	csvPath  string
}

// New creates a Ledger rooted at cfg.Dir on the given filesystem.
func New(fs afero.Fs, cfg config.LedgerConfig) *Ledger {
	return &Ledger{
		fs:       fs,
		jsonPath: filepath.Join(cfg.Dir, cfg.JSONName),
		csvPath:  filepath.Join(cfg.Dir, cfg.CSVName),
	}
}

// NewOS creates a Ledger on the operating system filesystem.
func NewOS(cfg config.LedgerConfig) *Ledger {
	return New(afero.NewOsFs(), cfg)
}

// JSONPath returns the structured representation's path.
func (l *Ledger) JSONPath() string { return l.jsonPath }

// CSVPath returns the tabular representation's path.
func (l *Ledger) CSVPath() string { return l.csvPath }

// Load reads the structured ledger. A missing ledger yields an empty
// snapshot; an unparseable one yields *StoreCorruptError.
func (l *Ledger) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ledger: load")
	}

	data, err := afero.ReadFile(l.fs, l.jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			return newSnapshot(nil), nil
		}
		return nil, eris.Wrapf(err, "ledger: read %s", l.jsonPath)
	}

	var records []model.CandidateRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &StoreCorruptError{Path: l.jsonPath, Err: err}
	}

	snap := newSnapshot(nil)
	for i, r := range records {
		if r.SHA == "" {
			return nil, &StoreCorruptError{Path: l.jsonPath, Err: eris.Errorf("record %d has no sha", i)}
		}
		if snap.Contains(r.SHA) {
			return nil, &StoreCorruptError{Path: l.jsonPath, Err: eris.Errorf("duplicate sha %s", r.SHA)}
		}
		snap.add(r)
	}

	zap.L().Debug("ledger: loaded", zap.String("path", l.jsonPath), zap.Int("records", snap.Len()))
	return snap, nil
}

// AppendAndPersist writes existing records followed by newRecords (in the
// order given) to both representations and returns the resulting snapshot.
// Either both files describe the new record set, or neither changes and a
// *PersistError is returned.
func (l *Ledger) AppendAndPersist(ctx context.Context, existing *Snapshot, newRecords []model.CandidateRecord) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, &PersistError{Stage: "prepare", RolledBack: true, Err: err}
	}
	if existing == nil {
		existing = newSnapshot(nil)
	}

	next := existing.clone()
	for _, r := range newRecords {
		if next.Contains(r.SHA) {
			return nil, &PersistError{Stage: "prepare", RolledBack: true, Err: eris.Errorf("sha %s already in ledger", r.SHA)}
		}
		next.add(r)
	}

	if err := l.write(next.records); err != nil {
		return nil, err
	}

	zap.L().Info("ledger: persisted",
		zap.Int("existing", existing.Len()),
		zap.Int("appended", len(newRecords)),
		zap.String("json", l.jsonPath),
		zap.String("csv", l.csvPath),
	)
	return next, nil
}

func (l *Ledger) write(records []model.CandidateRecord) error {
	jsonData, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &PersistError{Stage: "encode json", RolledBack: true, Err: err}
	}
	csvData, err := csvutil.Marshal(records)
	if err != nil {
		return &PersistError{Stage: "encode csv", RolledBack: true, Err: err}
	}

	if err := l.fs.MkdirAll(filepath.Dir(l.jsonPath), 0o755); err != nil {
		return &PersistError{Stage: "mkdir", RolledBack: true, Err: err}
	}

	tmpJSON := l.jsonPath + ".tmp"
	tmpCSV := l.csvPath + ".tmp"
	cleanup := func() {
		_ = l.fs.Remove(tmpJSON)
		_ = l.fs.Remove(tmpCSV)
	}

	if err := afero.WriteFile(l.fs, tmpJSON, jsonData, 0o644); err != nil {
		cleanup()
		return &PersistError{Stage: "write json", RolledBack: true, Err: err}
	}
	if err := afero.WriteFile(l.fs, tmpCSV, csvData, 0o644); err != nil {
		cleanup()
		return &PersistError{Stage: "write csv", RolledBack: true, Err: err}
	}

	prevJSON, readErr := afero.ReadFile(l.fs, l.jsonPath)
	hadJSON := readErr == nil
	if readErr != nil && !os.IsNotExist(readErr) {
		cleanup()
		return &PersistError{Stage: "snapshot json", RolledBack: true, Err: readErr}
	}

	if err := l.fs.Rename(tmpJSON, l.jsonPath); err != nil {
		cleanup()
		return &PersistError{Stage: "swap json", RolledBack: true, Err: err}
	}

	if err := l.fs.Rename(tmpCSV, l.csvPath); err != nil {
		cleanup()
		var restoreErr error
		if hadJSON {
			restoreErr = afero.WriteFile(l.fs, l.jsonPath, prevJSON, 0o644)
		} else {
			restoreErr = l.fs.Remove(l.jsonPath)
		}
		if restoreErr != nil {
			zap.L().Error("ledger: rollback failed, json and csv may disagree",
				zap.String("json", l.jsonPath),
				zap.String("csv", l.csvPath),
				zap.Error(restoreErr),
			)
			return &PersistError{Stage: "swap csv", Err: eris.Wrapf(err, "rollback: %v", restoreErr)}
		}
		return &PersistError{Stage: "swap csv", RolledBack: true, Err: err}
	}

	return nil
}
