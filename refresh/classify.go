package refresh

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/payload"
)

// Outcome is how a failed refresh affects the session.
type Outcome int

const (
	// Transient failures keep the credentials; the caller decides whether to retry.
	Transient Outcome = iota
	// Expired refresh tokens end the session.
	Expired
	// Invalid refresh tokens (malformed, revoked, unknown) end the session.
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Expired:
		return "expired"
	case Invalid:
		return "invalid"
	default:
		return "transient"
	}
}

// Terminal reports whether the outcome requires clearing credentials.
func (o Outcome) Terminal() bool {
	return o == Expired || o == Invalid
}

// Backend wording. Compared verbatim, ignoring case and surrounding space.
var (
	ExpiredMessages = []string{
		"Refresh token has expired. Please login again",
		"Refresh token expired",
	}
	InvalidMessages = []string{
		"Invalid refresh token",
		"Refresh token is invalid",
		"Refresh token not found",
	}
)

// Structured codes take precedence over message matching when the backend sends them.
const (
	CodeRefreshTokenExpired = "REFRESH_TOKEN_EXPIRED"
	CodeRefreshTokenInvalid = "REFRESH_TOKEN_INVALID"
)

// Classify maps a refresh endpoint failure to an Outcome. Only 401s can be terminal.
func Classify(status int, body []byte) Outcome {
	if status != http.StatusUnauthorized {
		return Transient
	}

	switch payload.Code(body) {
	case CodeRefreshTokenExpired:
		return Expired
	case CodeRefreshTokenInvalid:
		return Invalid
	}

	msg := payload.Message(body)
	switch {
	case payload.MatchesAny(msg, ExpiredMessages...):
		return Expired
	case payload.MatchesAny(msg, InvalidMessages...):
		return Invalid
	default:
		return Transient
	}
}

// Error is a failed call to the refresh endpoint.
type Error struct {
	Status  int
	Message string
	Code    string
	Outcome Outcome
	Err     error // transport error, when no response was received
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("refresh request failed: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("refresh rejected (%d, %s): %s", e.Status, e.Outcome, e.Message)
	}
	return fmt.Sprintf("refresh rejected (%d, %s)", e.Status, e.Outcome)
}

// Is lets callers use errors.Is with the session sentinels.
func (e *Error) Is(target error) bool {
	switch e.Outcome {
	case Expired:
		return target == errors.ErrRefreshTokenExpired
	case Invalid:
		return target == errors.ErrInvalidRefreshToken
	default:
		return target == errors.ErrTransientRefresh
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// OutcomeOf classifies any error returned by a Refresher.
func OutcomeOf(err error) Outcome {
	var re *Error
	if errors.As(err, &re) {
		return re.Outcome
	}
	switch {
	case errors.Is(err, errors.ErrRefreshTokenExpired):
		return Expired
	case errors.Is(err, errors.ErrInvalidRefreshToken):
		return Invalid
	default:
		return Transient
	}
}

func newError(status int, body []byte) *Error {
	return &Error{
		Status:  status,
		Message: payload.Message(body),
		Code:    payload.Code(body),
		Outcome: Classify(status, body),
	}
}
