package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/a-busman/DigitalFoundryUpdater/internal/domain"
	errpkg "github.com/a-busman/DigitalFoundryUpdater/internal/errors"
	"github.com/a-busman/DigitalFoundryUpdater/internal/metrics"
	"github.com/a-busman/DigitalFoundryUpdater/internal/notify"
	"github.com/a-busman/DigitalFoundryUpdater/internal/repository"
	"github.com/a-busman/DigitalFoundryUpdater/internal/session"
)

// CandidateSource yields raw download candidates in page order.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]domain.WorkItem, error)
}

// Retriever downloads one work item to storage.
type Retriever interface {
	Retrieve(ctx context.Context, item domain.WorkItem, current, total int) domain.DownloadOutcome
}

// Cycle orchestrates one check-and-download pass: validate the session,
// resolve new links against the ledger, then drain the work list in
// order. Per-item failures never abort the cycle.
type Cycle struct {
	session   *session.Validator
	source    CandidateSource
	ledger    repository.LedgerRepo
	retriever Retriever
	notifier  notify.Notifier
	log       *slog.Logger

	mu         sync.Mutex
	summary    domain.CycleSummary
	authWarned bool
}

// NewCycle wires the cycle controller.
func NewCycle(
	sessionValidator *session.Validator,
	source CandidateSource,
	ledger repository.LedgerRepo,
	retriever Retriever,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Cycle {
	return &Cycle{
		session:   sessionValidator,
		source:    source,
		ledger:    ledger,
		retriever: retriever,
		notifier:  notifier,
		log:       logger,
		summary:   domain.CycleSummary{State: domain.CycleIdle},
	}
}

// Status returns a snapshot of the most recent cycle.
func (c *Cycle) Status() domain.CycleSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

// Run executes one full cycle. The returned error describes why the
// cycle aborted early; it is informational, never process-fatal.
func (c *Cycle) Run(ctx context.Context) error {
	metrics.CyclesTotal.Inc()

	id := uuid.New()
	log := c.log.With("cycle_id", id)

	c.setSummary(domain.CycleSummary{
		ID:        id,
		State:     domain.CycleValidating,
		StartedAt: time.Now(),
	})

	if err := c.session.Validate(); err != nil {
		return c.abortUnauthenticated(ctx, log, err)
	}
	c.clearAuthWarning()

	c.updateSummary(func(s *domain.CycleSummary) { s.State = domain.CycleResolving })

	candidates, err := c.source.Candidates(ctx)
	if err != nil {
		if errors.Is(err, errpkg.ErrUnauthenticated) {
			return c.abortUnauthenticated(ctx, log, err)
		}
		metrics.CyclesSourceErrors.Inc()
		msg := "Can't reach Digital Foundry homepage."
		log.Warn(msg, "error", err)
		c.notifier.Notify(ctx, msg)
		c.finish(err)
		return err
	}

	work := c.filterNew(ctx, log, candidates)
	n := len(work)
	if n == 0 {
		log.Info("no new videos found")
		c.finish(nil)
		return nil
	}

	c.updateSummary(func(s *domain.CycleSummary) {
		s.State = domain.CycleDownloading
		s.Found = n
	})
	metrics.ItemsFound.Add(float64(n))
	log.Info(fmt.Sprintf("Found %d new video%s!", n, plural(n)))

	for i, item := range work {
		if err := ctx.Err(); err != nil {
			log.Info("cycle interrupted", "completed", i, "total", n)
			c.finish(err)
			return err
		}

		c.updateSummary(func(s *domain.CycleSummary) { s.Current = i + 1 })
		outcome := c.retriever.Retrieve(ctx, item, i+1, n)
		c.recordOutcome(ctx, log, outcome)
	}

	log.Info("All videos downloaded.")
	c.finish(nil)
	return nil
}

func (c *Cycle) recordOutcome(ctx context.Context, log *slog.Logger, outcome domain.DownloadOutcome) {
	name := outcome.FileName
	if name == "" {
		name = outcome.Item.Title()
	}

	switch outcome.Status {
	case domain.StatusSuccess:
		if err := c.ledger.Append(ctx, outcome.Item.ID); err != nil {
			log.Error("failed to record download in ledger", "id", outcome.Item.ID, "error", err)
		}
		c.updateSummary(func(s *domain.CycleSummary) { s.Downloaded++ })
		c.notifier.Notify(ctx, "New video downloaded: "+name)
	case domain.StatusNotFound:
		c.updateSummary(func(s *domain.CycleSummary) { s.Failed++ })
		c.notifier.Notify(ctx, name+" returned 404")
	case domain.StatusSkipped:
		// Already logged by the retriever; re-checked next cycle.
	default:
		c.updateSummary(func(s *domain.CycleSummary) { s.Failed++ })
		c.notifier.Notify(ctx, "Failed to download "+name)
	}
}

// filterNew drops every candidate already present in the ledger,
// preserving source order. An unreadable ledger fails open: no
// candidate is skipped, the degraded condition is logged.
func (c *Cycle) filterNew(ctx context.Context, log *slog.Logger, candidates []domain.WorkItem) []domain.WorkItem {
	text, err := c.ledger.Load(ctx)
	if err != nil {
		log.Warn("ledger unreadable, treating as empty", "error", err)
		text = ""
	}

	seen := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			seen[line] = struct{}{}
		}
	}

	var fresh []domain.WorkItem
	for _, cand := range candidates {
		if _, ok := seen[cand.ID]; ok {
			continue
		}
		fresh = append(fresh, cand)
	}
	return fresh
}

func (c *Cycle) abortUnauthenticated(ctx context.Context, log *slog.Logger, err error) error {
	metrics.CyclesUnauthenticated.Inc()
	msg := "Please log in to Digital Foundry in your browser and re-export cookies."
	log.Warn(msg, "error", err)

	c.mu.Lock()
	warned := c.authWarned
	c.authWarned = true
	c.mu.Unlock()

	// Notify only on the first cycle of an invalid streak; re-raising
	// it every interval is just noise.
	if !warned {
		c.notifier.Notify(ctx, msg)
	}

	c.finish(err)
	return err
}

func (c *Cycle) clearAuthWarning() {
	c.mu.Lock()
	c.authWarned = false
	c.mu.Unlock()
}

func (c *Cycle) setSummary(s domain.CycleSummary) {
	c.mu.Lock()
	c.summary = s
	c.mu.Unlock()
}

func (c *Cycle) updateSummary(fn func(*domain.CycleSummary)) {
	c.mu.Lock()
	fn(&c.summary)
	c.mu.Unlock()
}

func (c *Cycle) finish(err error) {
	c.mu.Lock()
	c.summary.State = domain.CycleIdle
	c.summary.FinishedAt = time.Now()
	c.summary.Current = 0
	if err != nil {
		c.summary.Error = err.Error()
	}
	c.mu.Unlock()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
