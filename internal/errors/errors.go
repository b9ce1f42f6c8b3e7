package errors

import "errors"

var (
	// ErrUnauthenticated means no usable credential exists for the
	// source domain; the cycle must not proceed.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrSourceUnreachable means the archive page could not be fetched;
	// the cycle aborts and the scheduler retries at the next interval.
	ErrSourceUnreachable = errors.New("source unreachable")
	// ErrNotFound means the item's binary no longer exists upstream.
	ErrNotFound = errors.New("download not found")
	// ErrSizeMismatch means the streamed byte count disagreed with the
	// declared content length.
	ErrSizeMismatch = errors.New("file size mismatch")
	// ErrLedgerUnreadable means the ledger file could not be read; the
	// resolver degrades to treating it as empty.
	ErrLedgerUnreadable = errors.New("ledger unreadable")
	// ErrNoDownload means the item page offered neither an HEVC nor an
	// h.264 option.
	ErrNoDownload = errors.New("no download found")
)
