package workflow

import (
	"strings"

	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// Ledger is the append-only progress history of a request. The only
// destructive operation is Reset, used by vendor reassignment.
type Ledger struct {
	entries []domain.ProgressUpdate
}

// NewLedger wraps existing entries.
func NewLedger(entries []domain.ProgressUpdate) Ledger {
	return Ledger{entries: append([]domain.ProgressUpdate(nil), entries...)}
}

// Append returns a ledger with entry added at the end.
// Entries without an evidence attachment are rejected.
func (l Ledger) Append(entry domain.ProgressUpdate) (Ledger, error) {
	if strings.TrimSpace(entry.Attachment) == "" {
		return l, apperrors.NewPreconditionFailed("progress update requires an attachment", nil)
	}
	if strings.TrimSpace(entry.AuthorID) == "" {
		return l, apperrors.NewPreconditionFailed("progress update requires an author", nil)
	}
	next := make([]domain.ProgressUpdate, len(l.entries), len(l.entries)+1)
	copy(next, l.entries)
	return Ledger{entries: append(next, entry)}, nil
}

// Reset returns an empty ledger.
func (l Ledger) Reset() Ledger {
	return Ledger{entries: []domain.ProgressUpdate{}}
}

// Entries returns a copy of the entries in order.
func (l Ledger) Entries() []domain.ProgressUpdate {
	out := make([]domain.ProgressUpdate, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l Ledger) Len() int {
	return len(l.entries)
}
