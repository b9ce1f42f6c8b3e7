package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/a-busman/DigitalFoundryUpdater/internal/config"
	"github.com/a-busman/DigitalFoundryUpdater/internal/domain"
	errpkg "github.com/a-busman/DigitalFoundryUpdater/internal/errors"
	"github.com/a-busman/DigitalFoundryUpdater/internal/metrics"
	"github.com/a-busman/DigitalFoundryUpdater/internal/scrape"
	"github.com/a-busman/DigitalFoundryUpdater/internal/storage"
	"github.com/a-busman/DigitalFoundryUpdater/internal/validation"
)

const (
	hevcLabel = "HEVC"
	avcLabel  = "h.264"
	// Some pages label the fallback encoding AVC instead of h.264.
	avcAltLabel = "AVC"

	defaultVideoExt = ".mp4"
	defaultCoverExt = ".jpg"
)

// PageResolver resolves an item locator into a parsed landing page.
type PageResolver interface {
	ItemPage(ctx context.Context, locator string) (*scrape.ItemPage, error)
}

// Retriever resolves work items to their binary and streams them to
// storage with size verification and bounded retry.
type Retriever struct {
	pages    PageResolver
	files    *storage.FileStorage
	client   *http.Client
	cfg      *config.Config
	progress io.Writer
	log      *slog.Logger
}

// NewRetriever creates a Retriever that downloads through the given
// cookie jar so transfers carry the session.
func NewRetriever(pages PageResolver, files *storage.FileStorage, jar http.CookieJar, cfg *config.Config, logger *slog.Logger) *Retriever {
	return &Retriever{
		pages: pages,
		files: files,
		client: &http.Client{
			Jar:     jar,
			Timeout: cfg.DownloadTimeout,
		},
		cfg:      cfg,
		progress: os.Stdout,
		log:      logger,
	}
}

// SetProgress redirects the textual progress indicator, which defaults
// to stdout.
func (r *Retriever) SetProgress(w io.Writer) {
	r.progress = w
}

// Retrieve resolves one work item to its binary and downloads it.
// current and total drive the "i/total" progress line. The returned
// outcome is always terminal: either Success, Skipped, NotFound, or the
// failure left after the retry ceiling is exhausted.
func (r *Retriever) Retrieve(ctx context.Context, item domain.WorkItem, current, total int) domain.DownloadOutcome {
	outcome := domain.DownloadOutcome{Item: item, ExpectedBytes: -1}

	title, binURL, err := r.resolveBinary(ctx, item)
	if err != nil {
		outcome.Status = domain.StatusTransportError
		outcome.Err = err
		r.log.Error("failed to resolve download page", "id", item.ID, "error", err)
		return outcome
	}
	if binURL == "" {
		outcome.Status = domain.StatusSkipped
		outcome.Err = fmt.Errorf("%w: %s", errpkg.ErrNoDownload, item.ID)
		r.log.Info("no download found", "id", item.ID, "title", title)
		return outcome
	}

	fileName := validation.SanitizeTitle(title) + extOf(binURL, defaultVideoExt)
	outcome.FileName = fileName

	r.log.Info("downloading", "progress", fmt.Sprintf("%d/%d", current, total), "title", validation.SanitizeTitle(title))

	start := time.Now()
	for attempt := 1; attempt <= r.cfg.RetryLimit; attempt++ {
		metrics.DownloadsTotal.Inc()
		outcome = r.transfer(ctx, item, binURL, fileName)

		switch outcome.Status {
		case domain.StatusSuccess:
			metrics.DownloadsSuccess.Inc()
			metrics.DownloadBytes.Add(float64(outcome.BytesWritten))
			metrics.DownloadDuration.Observe(time.Since(start).Seconds())
			r.fetchCover(ctx, item, fileName)
			return outcome
		case domain.StatusNotFound:
			// Gone upstream; retrying cannot help.
			metrics.DownloadsFailed.Inc()
			return outcome
		case domain.StatusSizeMismatch:
			r.log.Error("file size mismatch, redownloading",
				"got", outcome.BytesWritten, "expected", outcome.ExpectedBytes, "attempt", attempt)
		case domain.StatusTransportError:
			r.log.Error("transfer failed, redownloading", "error", outcome.Err, "attempt", attempt)
		}

		if attempt < r.cfg.RetryLimit {
			metrics.DownloadRetries.Inc()
		}
	}

	metrics.DownloadsFailed.Inc()
	if err := r.files.Remove(fileName); err != nil && !os.IsNotExist(err) {
		r.log.Warn("failed to remove partial file", "file_name", fileName, "error", err)
	}
	r.log.Error("download failed after retries",
		"id", item.ID, "file_name", fileName, "retries", r.cfg.RetryLimit, "status", outcome.Status)
	return outcome
}

// resolveBinary follows at most two landing pages to a final binary
// locator, preferring the HEVC encoding over h.264. An empty URL with a
// nil error means neither encoding was offered.
func (r *Retriever) resolveBinary(ctx context.Context, item domain.WorkItem) (title, binURL string, err error) {
	page, err := r.pages.ItemPage(ctx, item.Locator)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch item page: %w", err)
	}

	title = page.Title
	opts := page.Options

	if pickOption(opts) == nil && page.MoreOptions != "" {
		more, err := r.pages.ItemPage(ctx, page.MoreOptions)
		if err != nil {
			return title, "", fmt.Errorf("failed to fetch download options page: %w", err)
		}
		if more.Title != "" {
			title = more.Title
		}
		opts = more.Options
	}

	if title == "" {
		title = item.Title()
	}

	if opt := pickOption(opts); opt != nil {
		return title, opt.URL, nil
	}
	return title, "", nil
}

// pickOption selects the preferred encoding: HEVC when offered, the
// h.264/AVC fallback otherwise.
func pickOption(opts []scrape.DownloadOption) *scrape.DownloadOption {
	var avc *scrape.DownloadOption
	for i := range opts {
		switch {
		case strings.Contains(opts[i].Label, hevcLabel):
			return &opts[i]
		case strings.Contains(opts[i].Label, avcLabel) || strings.Contains(opts[i].Label, avcAltLabel):
			if avc == nil {
				avc = &opts[i]
			}
		}
	}
	return avc
}

// transfer performs one streamed download attempt against the final
// binary locator.
func (r *Retriever) transfer(ctx context.Context, item domain.WorkItem, binURL, fileName string) domain.DownloadOutcome {
	outcome := domain.DownloadOutcome{Item: item, FileName: fileName, ExpectedBytes: -1}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, binURL, nil)
	if err != nil {
		outcome.Status = domain.StatusTransportError
		outcome.Err = fmt.Errorf("failed to create request: %w", err)
		return outcome
	}

	resp, err := r.client.Do(req)
	if err != nil {
		outcome.Status = domain.StatusTransportError
		outcome.Err = fmt.Errorf("failed to download: %w", err)
		return outcome
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		outcome.Status = domain.StatusNotFound
		outcome.Err = fmt.Errorf("%w: %s", errpkg.ErrNotFound, binURL)
		return outcome
	case resp.StatusCode != http.StatusOK:
		outcome.Status = domain.StatusTransportError
		outcome.Err = fmt.Errorf("unexpected status code: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		return outcome
	}

	// Without a declared length there is nothing to verify; write the
	// whole body in one shot and accept whatever arrives.
	if resp.ContentLength < 0 {
		written, err := r.files.CopyFile(resp.Body, fileName)
		outcome.BytesWritten = written
		if err != nil {
			outcome.Status = domain.StatusTransportError
			outcome.Err = fmt.Errorf("failed to save file: %w", err)
			return outcome
		}
		outcome.Status = domain.StatusSuccess
		return outcome
	}

	outcome.ExpectedBytes = resp.ContentLength

	file, err := r.files.CreateFile(fileName)
	if err != nil {
		outcome.Status = domain.StatusTransportError
		outcome.Err = fmt.Errorf("failed to create file: %w", err)
		return outcome
	}
	defer file.Close()

	meter := NewMeter(r.progress, resp.ContentLength)
	written, err := r.copyWithProgress(ctx, file, resp.Body, meter)
	meter.Finish()
	outcome.BytesWritten = written

	if err != nil {
		outcome.Status = domain.StatusTransportError
		outcome.Err = fmt.Errorf("failed to save file: %w", err)
		return outcome
	}
	if written != resp.ContentLength {
		outcome.Status = domain.StatusSizeMismatch
		outcome.Err = fmt.Errorf("%w: got %d, expected %d", errpkg.ErrSizeMismatch, written, resp.ContentLength)
		return outcome
	}

	outcome.Status = domain.StatusSuccess
	return outcome
}

func (r *Retriever) copyWithProgress(ctx context.Context, dst *os.File, src io.Reader, meter *Meter) (int64, error) {
	buf := make([]byte, r.cfg.ChunkSize)
	var total int64

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
			nr, err := src.Read(buf)
			if nr > 0 {
				nw, werr := dst.Write(buf[0:nr])
				if nw > 0 {
					total += int64(nw)
					meter.Add(nw)
				}
				if werr != nil {
					return total, werr
				}
				if nr != nw {
					return total, io.ErrShortWrite
				}
			}
			if err != nil {
				if err == io.EOF {
					return total, nil
				}
				return total, err
			}
		}
	}
}

// fetchCover grabs the companion cover image, if the candidate carried
// one. Failures only get logged; they never fail the download itself.
func (r *Retriever) fetchCover(ctx context.Context, item domain.WorkItem, videoName string) {
	coverURL, ok := item.Metadata[domain.MetaCover]
	if !ok || coverURL == "" {
		return
	}

	base := strings.TrimSuffix(videoName, path.Ext(videoName))
	coverName := base + extOf(coverURL, defaultCoverExt)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		r.log.Warn("failed to create cover request", "id", item.ID, "error", err)
		return
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn("failed to fetch cover", "id", item.ID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.Warn("failed to fetch cover", "id", item.ID, "status", resp.Status)
		return
	}

	written, err := r.files.CopyFile(resp.Body, coverName)
	if err != nil {
		r.log.Warn("failed to save cover", "id", item.ID, "error", err)
		return
	}
	r.log.Debug("cover saved", "file_name", coverName, "size", humanize.IBytes(uint64(written)))
}

// extOf returns the file extension of a URL path, or fallback when it
// has none.
func extOf(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	if ext := path.Ext(u.Path); ext != "" {
		return ext
	}
	return fallback
}
