package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	errpkg "github.com/a-busman/DigitalFoundryUpdater/internal/errors"
)

// Ledger is the durable record of already-retrieved item identifiers,
// one per line, append-only. It is read in full on each cycle and only
// ever grows; a partially written trailing line just causes a harmless
// re-check of that item on the next cycle.
type Ledger struct {
	mu   sync.Mutex
	file string
}

// NewLedger creates a Ledger backed by the given file path. The file is
// not required to exist yet.
func NewLedger(filePath string) *Ledger {
	l := &Ledger{file: filepath.Clean(filePath)}
	slog.Info("ledger initialized", "file_path", l.file)
	return l
}

// Load returns the full text of the ledger file. A missing file is not
// an error; it loads as empty. Other read failures are reported as
// ErrLedgerUnreadable so callers can fail open.
func (l *Ledger) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.file)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %s: %v", errpkg.ErrLedgerUnreadable, l.file, err)
	}
	return string(data), nil
}

// Contains reports whether id was previously recorded. Matching is on
// whole lines so one identifier can never shadow another that merely
// contains it as a substring.
func (l *Ledger) Contains(ctx context.Context, id string) (bool, error) {
	text, err := l.Load(ctx)
	if err != nil {
		return false, err
	}
	return containsLine(text, id), nil
}

// Append records id as retrieved. It opens the file for append, writes
// a single line and closes it, so a crash can at worst lose the line,
// never corrupt earlier entries.
func (l *Ledger) Append(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.file, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger for append: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("failed to append to ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to flush ledger: %w", err)
	}

	slog.Debug("ledger entry appended", "id", id, "file_path", l.file)
	return nil
}

func containsLine(text, id string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimRight(line, "\r") == id {
			return true
		}
	}
	return false
}
