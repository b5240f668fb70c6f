// Package transfer moves ledger data in and out of the application: JSON
// backups, CSV transaction exports and imports, and the row layout used by
// the spreadsheet export target.
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"moneytracker/internal/core"
)

// BackupVersion is written into every backup; ReadBackup rejects newer ones.
const BackupVersion = 1

// ErrMalformed wraps every decoding failure of imported data.
var ErrMalformed = errors.New("malformed import data")

// Backup is the on-disk layout of a full JSON backup.
type Backup struct {
	Version    int       `json:"version"`
	ExportDate time.Time `json:"exportDate"`
	core.Snapshot
}

// WriteBackup writes snap as an indented JSON backup stamped with at.
func WriteBackup(w io.Writer, snap core.Snapshot, at time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Backup{Version: BackupVersion, ExportDate: at, Snapshot: snap}); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// ReadBackup decodes a backup written by WriteBackup. A document without a
// version is accepted as a bare snapshot.
func ReadBackup(r io.Reader) (Backup, error) {
	var b Backup
	dec := json.NewDecoder(r)
	if err := dec.Decode(&b); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if b.Version > BackupVersion {
		return Backup{}, fmt.Errorf("%w: backup version %d is newer than supported version %d",
			ErrMalformed, b.Version, BackupVersion)
	}
	return b, nil
}
