package repository

import "context"

// LedgerRepo defines the interface for the retrieved-item ledger.
type LedgerRepo interface {
	Append(ctx context.Context, id string) error
	Load(ctx context.Context) (string, error)
	Contains(ctx context.Context, id string) (bool, error)
}
