package httpapi

import (
	"errors"
	"net/http"

	"walletd/go-backend/internal/challenge"
	"walletd/go-backend/internal/derivation"
	"walletd/go-backend/internal/session"
	"walletd/go-backend/internal/signing"
	"walletd/go-backend/internal/vault"
)

var errBadRequestBody = errors.New("malformed request body")

// statusFor maps domain errors to HTTP. Every session and ceremony failure
// shares one status and body so callers cannot tell them apart.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, vault.ErrRootWalletLocked):
		return http.StatusServiceUnavailable, "wallet locked"
	case errors.Is(err, signing.ErrWalletClosed),
		errors.Is(err, session.ErrTokenInvalid),
		errors.Is(err, derivation.ErrDerivationFailed),
		errors.Is(err, challenge.ErrChallengeInvalid),
		errors.Is(err, challenge.ErrAssertionInvalid),
		errors.Is(err, challenge.ErrCredentialExists):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, challenge.ErrMissingParameter),
		errors.Is(err, signing.ErrInvalidUser),
		errors.Is(err, errBadRequestBody):
		return http.StatusBadRequest, "bad request"
	case errors.Is(err, challenge.ErrStoreFull):
		return http.StatusServiceUnavailable, "try again later"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// metricResult is the low-cardinality label recorded for a sign outcome.
func metricResult(err error) string {
	if err == nil {
		return "ok"
	}
	switch status, _ := statusFor(err); status {
	case http.StatusServiceUnavailable:
		return "locked"
	case http.StatusUnauthorized:
		return "unauthorized"
	default:
		return "error"
	}
}
