package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-busman/DigitalFoundryUpdater/internal/domain"
	errpkg "github.com/a-busman/DigitalFoundryUpdater/internal/errors"
	"github.com/a-busman/DigitalFoundryUpdater/internal/notify"
	"github.com/a-busman/DigitalFoundryUpdater/internal/repository"
	"github.com/a-busman/DigitalFoundryUpdater/internal/session"
)

type stubCreds struct {
	cred *domain.Credential
}

func (s *stubCreds) CredentialsForDomain(host string) (*domain.Credential, error) {
	return s.cred, nil
}

type fakeSource struct {
	items []domain.WorkItem
	err   error
	calls int
}

func (f *fakeSource) Candidates(ctx context.Context) ([]domain.WorkItem, error) {
	f.calls++
	return f.items, f.err
}

type fakeRetriever struct {
	statuses map[string]domain.OutcomeStatus
	calls    []string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, item domain.WorkItem, current, total int) domain.DownloadOutcome {
	f.calls = append(f.calls, item.ID)

	status, ok := f.statuses[item.ID]
	if !ok {
		status = domain.StatusSuccess
	}
	return domain.DownloadOutcome{
		Item:     item,
		FileName: item.Title() + ".mp4",
		Status:   status,
	}
}

type recordingNotifier struct {
	msgs []string
}

func (r *recordingNotifier) Notify(ctx context.Context, msg string) {
	r.msgs = append(r.msgs, msg)
}

func validCreds() *stubCreds {
	return &stubCreds{cred: &domain.Credential{
		Name:    "sid",
		Domain:  "www.digitalfoundry.net",
		Expires: time.Now().Add(time.Hour),
	}}
}

func items(ids ...string) []domain.WorkItem {
	out := make([]domain.WorkItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.WorkItem{
			ID:       id,
			Locator:  id,
			Metadata: map[string]string{domain.MetaTitle: strings.TrimPrefix(id, "/")},
		})
	}
	return out
}

func newTestCycle(t *testing.T, creds session.CredentialSource, source CandidateSource, retriever Retriever, notifier notify.Notifier, logs *bytes.Buffer) (*Cycle, *repository.Ledger) {
	t.Helper()

	var w = logs
	if w == nil {
		w = &bytes.Buffer{}
	}
	logger := slog.New(slog.NewTextHandler(w, nil))

	ledger := repository.NewLedger(filepath.Join(t.TempDir(), "cache"))
	validator := session.NewValidator(creds, "www.digitalfoundry.net")
	return NewCycle(validator, source, ledger, retriever, notifier, logger), ledger
}

func TestCycle_EndToEnd(t *testing.T) {
	var logs bytes.Buffer
	source := &fakeSource{items: items("/a", "/b", "/c")}
	retriever := &fakeRetriever{}
	notifier := &recordingNotifier{}

	cycle, ledger := newTestCycle(t, validCreds(), source, retriever, notifier, &logs)

	require.NoError(t, cycle.Run(context.Background()))

	// Items processed strictly in source order.
	assert.Equal(t, []string{"/a", "/b", "/c"}, retriever.calls)

	// Ledger grew to exactly three entries.
	text, err := ledger.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/a\n/b\n/c\n", text)

	// One success notification per item, nothing else.
	require.Len(t, notifier.msgs, 3)
	for _, msg := range notifier.msgs {
		assert.Contains(t, msg, "New video downloaded:")
	}

	assert.Contains(t, logs.String(), "Found 3 new videos!")
	assert.Contains(t, logs.String(), "All videos downloaded.")

	summary := cycle.Status()
	assert.Equal(t, domain.CycleIdle, summary.State)
	assert.Equal(t, 3, summary.Found)
	assert.Equal(t, 3, summary.Downloaded)
	assert.Equal(t, 0, summary.Failed)
}

func TestCycle_DedupAgainstLedger(t *testing.T) {
	source := &fakeSource{items: items("/a", "/b", "/c")}
	retriever := &fakeRetriever{}

	cycle, ledger := newTestCycle(t, validCreds(), source, retriever, notify.Noop{}, nil)
	require.NoError(t, ledger.Append(context.Background(), "/b"))

	require.NoError(t, cycle.Run(context.Background()))
	assert.Equal(t, []string{"/a", "/c"}, retriever.calls)

	// A second run re-queues nothing.
	retriever.calls = nil
	require.NoError(t, cycle.Run(context.Background()))
	assert.Empty(t, retriever.calls)
}

func TestCycle_Unauthenticated(t *testing.T) {
	creds := &stubCreds{}
	source := &fakeSource{items: items("/a")}
	retriever := &fakeRetriever{}
	notifier := &recordingNotifier{}

	cycle, _ := newTestCycle(t, creds, source, retriever, notifier, nil)

	err := cycle.Run(context.Background())
	assert.ErrorIs(t, err, errpkg.ErrUnauthenticated)
	assert.Zero(t, source.calls)
	assert.Empty(t, retriever.calls)
	require.Len(t, notifier.msgs, 1)

	// Repeated invalid cycles do not renotify.
	_ = cycle.Run(context.Background())
	_ = cycle.Run(context.Background())
	assert.Len(t, notifier.msgs, 1)

	// Once the session recovers and breaks again, the warning fires anew.
	creds.cred = &domain.Credential{Domain: "www.digitalfoundry.net", Expires: time.Now().Add(time.Hour)}
	require.NoError(t, cycle.Run(context.Background()))
	creds.cred = nil
	_ = cycle.Run(context.Background())
	assert.Len(t, notifier.msgs, 2)
}

func TestCycle_SourceUnreachable(t *testing.T) {
	source := &fakeSource{err: errpkg.ErrSourceUnreachable}
	retriever := &fakeRetriever{}
	notifier := &recordingNotifier{}

	cycle, _ := newTestCycle(t, validCreds(), source, retriever, notifier, nil)

	err := cycle.Run(context.Background())
	assert.ErrorIs(t, err, errpkg.ErrSourceUnreachable)
	assert.Empty(t, retriever.calls)
	require.Len(t, notifier.msgs, 1)
	assert.Contains(t, notifier.msgs[0], "Can't reach")
}

func TestCycle_ItemFailureDoesNotAbort(t *testing.T) {
	source := &fakeSource{items: items("/a", "/b", "/c")}
	retriever := &fakeRetriever{statuses: map[string]domain.OutcomeStatus{
		"/b": domain.StatusTransportError,
	}}
	notifier := &recordingNotifier{}

	cycle, ledger := newTestCycle(t, validCreds(), source, retriever, notifier, nil)

	require.NoError(t, cycle.Run(context.Background()))
	assert.Equal(t, []string{"/a", "/b", "/c"}, retriever.calls)

	text, err := ledger.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/a\n/c\n", text)

	summary := cycle.Status()
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 1, summary.Failed)
}

func TestCycle_NotFoundAndSkippedNotRecorded(t *testing.T) {
	source := &fakeSource{items: items("/gone", "/article")}
	retriever := &fakeRetriever{statuses: map[string]domain.OutcomeStatus{
		"/gone":    domain.StatusNotFound,
		"/article": domain.StatusSkipped,
	}}
	notifier := &recordingNotifier{}

	cycle, ledger := newTestCycle(t, validCreds(), source, retriever, notifier, nil)

	require.NoError(t, cycle.Run(context.Background()))

	text, err := ledger.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, text)

	// NotFound is notified; a skipped item is log-only.
	require.Len(t, notifier.msgs, 1)
	assert.Contains(t, notifier.msgs[0], "returned 404")
}

func TestCycle_LedgerFailOpen(t *testing.T) {
	var logs bytes.Buffer
	source := &fakeSource{items: items("/a")}
	retriever := &fakeRetriever{}

	// Point the ledger at a directory so loading it fails.
	dir := t.TempDir()
	ledger := repository.NewLedger(dir)
	validator := session.NewValidator(validCreds(), "www.digitalfoundry.net")
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	cycle := NewCycle(validator, source, ledger, retriever, notify.Noop{}, logger)

	_ = cycle.Run(context.Background())

	// The candidate is still attempted even though the ledger was unreadable.
	assert.Equal(t, []string{"/a"}, retriever.calls)
	assert.Contains(t, logs.String(), "ledger unreadable")
}

func TestCycle_NoNewItems(t *testing.T) {
	var logs bytes.Buffer
	source := &fakeSource{}
	notifier := &recordingNotifier{}

	cycle, _ := newTestCycle(t, validCreds(), source, &fakeRetriever{}, notifier, &logs)

	require.NoError(t, cycle.Run(context.Background()))
	assert.Empty(t, notifier.msgs)
	assert.Contains(t, logs.String(), "no new videos found")
}

func TestCycle_ContextCanceledMidCycle(t *testing.T) {
	source := &fakeSource{items: items("/a", "/b")}
	retriever := &fakeRetriever{}

	ctx, cancel := context.WithCancel(context.Background())

	canceling := &cancelAfterFirst{inner: retriever, cancel: cancel}
	cycle, ledger := newTestCycle(t, validCreds(), source, canceling, notify.Noop{}, nil)

	err := cycle.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))

	// The first item completed and was recorded; the second never started.
	assert.Equal(t, []string{"/a"}, retriever.calls)
	text, _ := ledger.Load(context.Background())
	assert.Equal(t, "/a\n", text)
}

type cancelAfterFirst struct {
	inner  *fakeRetriever
	cancel context.CancelFunc
}

func (c *cancelAfterFirst) Retrieve(ctx context.Context, item domain.WorkItem, current, total int) domain.DownloadOutcome {
	outcome := c.inner.Retrieve(ctx, item, current, total)
	c.cancel()
	return outcome
}
