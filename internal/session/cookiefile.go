package session

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/a-busman/DigitalFoundryUpdater/internal/domain"
)

const httpOnlyPrefix = "#HttpOnly_"

// FileStore reads session cookies from a Netscape-format cookies.txt
// export, the portable way to hand a browser login to the updater.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore for the given cookies.txt path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// CredentialsForDomain returns the longest-lived cookie scoped to the
// given domain, or nil when the file holds none.
func (s *FileStore) CredentialsForDomain(host string) (*domain.Credential, error) {
	creds, err := s.load()
	if err != nil {
		return nil, err
	}

	var best *domain.Credential
	for i := range creds {
		if !domainMatches(creds[i].Domain, host) {
			continue
		}
		if best == nil || laterExpiry(creds[i], *best) {
			best = &creds[i]
		}
	}
	return best, nil
}

// Jar builds a cookie jar for the source site from the stored cookies
// so page fetches and downloads carry the session.
func (s *FileStore) Jar(base *url.URL) (http.CookieJar, error) {
	creds, err := s.load()
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var cookies []*http.Cookie
	for _, c := range creds {
		cookies = append(cookies, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  strings.TrimPrefix(c.Domain, "."),
			Path:    "/",
			Expires: c.Expires,
		})
	}
	jar.SetCookies(base, cookies)
	return jar, nil
}

func (s *FileStore) load() ([]domain.Credential, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cookie file: %w", err)
	}
	defer f.Close()

	var creds []domain.Credential

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		// HttpOnly cookies are exported behind a comment marker.
		line = strings.TrimPrefix(line, httpOnlyPrefix)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}

		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			continue
		}
		var expires time.Time
		if expiry > 0 {
			expires = time.Unix(expiry, 0)
		}

		creds = append(creds, domain.Credential{
			Domain:  fields[0],
			Name:    fields[5],
			Value:   fields[6],
			Expires: expires,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	return creds, nil
}

// domainMatches implements cookie domain scoping: an exact host match,
// or a dot-prefixed cookie domain matching the host or any subdomain.
func domainMatches(cookieDomain, host string) bool {
	if cookieDomain == host {
		return true
	}
	d := strings.TrimPrefix(cookieDomain, ".")
	return d == host || strings.HasSuffix(host, "."+d)
}

// laterExpiry prefers session cookies (no expiry) over dated ones, and
// later expiries over earlier.
func laterExpiry(a, b domain.Credential) bool {
	if a.Expires.IsZero() {
		return !b.Expires.IsZero()
	}
	if b.Expires.IsZero() {
		return false
	}
	return a.Expires.After(b.Expires)
}
