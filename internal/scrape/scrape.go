// Package scrape fetches and parses Digital Foundry pages into typed
// candidate descriptors. It is the upstream of the link resolver; the
// rest of the pipeline never touches HTML.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/a-busman/DigitalFoundryUpdater/internal/domain"
	errpkg "github.com/a-busman/DigitalFoundryUpdater/internal/errors"
)

const (
	archivePath = "/archive"
	browsePath  = "/browse/"
	signUpHref  = "/sign-up"

	moreOptionsText = "See more download options"

	// Fewer candidates than this on the archive page usually means the
	// session only sees the free tier.
	lowCandidateThreshold = 2
)

// DownloadOption is one labeled encoding offered on an item page.
type DownloadOption struct {
	Label string
	URL   string
}

// ItemPage is the parsed form of an item's landing page: its title, the
// download options it offers directly, and an optional link to a page
// with further options.
type ItemPage struct {
	Title       string
	Options     []DownloadOption
	MoreOptions string
}

// Client fetches site pages with an authenticated cookie jar.
type Client struct {
	base       *url.URL
	collection string
	http       *http.Client
	log        *slog.Logger
}

// NewClient creates a scrape client for the given base URL. When
// collection is non-empty, candidates come from /browse/<collection>
// instead of the archive.
func NewClient(base, collection string, jar http.CookieJar, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL %q: %w", base, err)
	}
	return &Client{
		base:       u,
		collection: collection,
		http: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		log: logger,
	}, nil
}

// Candidates fetches the archive (or collection) page and returns its
// download candidates in page order. It returns ErrUnauthenticated when
// the page shows the signed-out sign-up prompt and ErrSourceUnreachable
// when the page cannot be fetched at all.
func (c *Client) Candidates(ctx context.Context) ([]domain.WorkItem, error) {
	pageURL := c.base.JoinPath(archivePath)
	itemClass := "summary"
	checking := "archive"
	if c.collection != "" {
		pageURL = c.base.JoinPath(browsePath + c.collection)
		itemClass = "video-grid-item"
		checking = c.collection + " collection"
	}

	c.log.Info("checking for new videos", "page", checking, "url", pageURL.String())

	root, err := c.fetch(ctx, pageURL.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errpkg.ErrSourceUnreachable, err)
	}

	if hasSignUpPrompt(root) {
		return nil, fmt.Errorf("%w: sign-up prompt found on %s", errpkg.ErrUnauthenticated, checking)
	}

	var items []domain.WorkItem
	for _, div := range findAll(root, byClass("div", itemClass)) {
		overlay := findFirst(div, byClass("a", "link_overlay"))
		if overlay == nil {
			continue
		}
		href := attr(overlay, "href")
		if href == "" {
			continue
		}
		loc, err := c.base.Parse(href)
		if err != nil {
			c.log.Warn("skipping candidate with unparsable href", "href", href, "error", err)
			continue
		}

		meta := map[string]string{}
		if title := attr(overlay, "title"); title != "" {
			meta[domain.MetaTitle] = title
		}
		if img := findFirst(div, byTag("img")); img != nil {
			if src := attr(img, "src"); src != "" {
				if cover, err := c.base.Parse(src); err == nil {
					meta[domain.MetaCover] = cover.String()
				}
			}
		}

		items = append(items, domain.WorkItem{
			ID:       loc.Path,
			Locator:  loc.String(),
			Metadata: meta,
		})
	}

	if len(items) <= lowCandidateThreshold {
		c.log.Warn("very few downloads visible, the session may only see the free tier",
			"count", len(items))
	}

	return items, nil
}

// ItemPage fetches and parses one item's landing page.
func (c *Client) ItemPage(ctx context.Context, locator string) (*ItemPage, error) {
	pageURL, err := c.base.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("invalid item locator %q: %w", locator, err)
	}

	root, err := c.fetch(ctx, pageURL.String())
	if err != nil {
		return nil, err
	}

	page := &ItemPage{Title: pageTitle(root)}

	for _, a := range findAll(root, byTag("a")) {
		href := attr(a, "href")
		if href == "" {
			continue
		}
		abs, err := c.base.Parse(href)
		if err != nil {
			continue
		}
		label := strings.TrimSpace(text(a))

		switch {
		case label == moreOptionsText:
			page.MoreOptions = abs.String()
		case hasClass(a, "download") || strings.HasPrefix(label, "Download "):
			page.Options = append(page.Options, DownloadOption{
				Label: label,
				URL:   abs.String(),
			})
		}
	}

	return page, nil
}

func (c *Client) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return root, nil
}

func hasSignUpPrompt(root *html.Node) bool {
	for _, a := range findAll(root, byTag("a")) {
		if attr(a, "href") == signUpHref {
			return true
		}
	}
	return false
}

func pageTitle(root *html.Node) string {
	if t := findFirst(root, byTag("title")); t != nil {
		return strings.TrimSpace(text(t))
	}
	return ""
}
