package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// Verifier is the interface for the shared-secret check gating mutating
// endpoints. Failures carry no detail beyond invalid credentials; the
// reason is for the server log, never the response.
type Verifier interface {

	// Verify checks the request's bearer credential against the admin
	// secret.
	Verify(r *http.Request) error
}

// NewVerifier creates a shared-secret verifier, returning a pointer to the
// concrete implementation.
func NewVerifier(secret string) Verifier {
	return &verifier{
		secret: secret,
	}
}

var _ Verifier = (*verifier)(nil)

// verifier is the concrete implementation of the Verifier interface.
type verifier struct {
	secret string
}

// Verify is the concrete implementation of the interface method which
// checks the request's bearer credential.
func (v *verifier) Verify(r *http.Request) error {

	if v.secret == "" {
		return fmt.Errorf("admin secret not configured")
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return fmt.Errorf("missing or malformed authorization header")
	}

	candidate := strings.TrimPrefix(header, "Bearer ")
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(v.secret)) != 1 {
		return fmt.Errorf("invalid credentials")
	}

	return nil
}
