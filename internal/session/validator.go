package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/a-busman/DigitalFoundryUpdater/internal/domain"
	errpkg "github.com/a-busman/DigitalFoundryUpdater/internal/errors"
)

// CredentialSource supplies session credentials scoped to a domain.
// A nil credential with a nil error means none exists.
type CredentialSource interface {
	CredentialsForDomain(host string) (*domain.Credential, error)
}

// Validator checks that a usable credential exists for the source
// domain before a cycle is allowed to proceed.
type Validator struct {
	src    CredentialSource
	domain string
	now    func() time.Time
}

// NewValidator creates a Validator for the given domain.
func NewValidator(src CredentialSource, host string) *Validator {
	return &Validator{
		src:    src,
		domain: host,
		now:    time.Now,
	}
}

// Validate returns nil when a credential for the target domain exists
// and its expiry is strictly in the future. Otherwise it returns an
// error wrapping ErrUnauthenticated.
func (v *Validator) Validate() error {
	cred, err := v.src.CredentialsForDomain(v.domain)
	if err != nil {
		return fmt.Errorf("%w: credential lookup failed: %v", errpkg.ErrUnauthenticated, err)
	}
	if cred == nil {
		return fmt.Errorf("%w: no credential for %s", errpkg.ErrUnauthenticated, v.domain)
	}
	if cred.Expired(v.now()) {
		return fmt.Errorf("%w: credential for %s expired at %s",
			errpkg.ErrUnauthenticated, v.domain, cred.Expires.Format(time.RFC3339))
	}

	slog.Debug("session credential valid", "domain", v.domain, "cookie", cred.Name)
	return nil
}
