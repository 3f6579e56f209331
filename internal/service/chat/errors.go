package chat

import (
	"errors"

	"github.com/KMohnishM/Deep-Shiva/internal/config"
	"github.com/KMohnishM/Deep-Shiva/internal/service/ai"
)

var (
	// ErrInvalidInput rejects empty messages and missing session ids before any remote call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionNotFound is returned by read operations on unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUpstreamUnavailable matches failed remote completions.
	ErrUpstreamUnavailable = ai.ErrUpstreamUnavailable
	// ErrConfiguration matches sessions that could not be created from the current configuration.
	ErrConfiguration = config.ErrConfiguration
)

// errConversationClosed is returned by an exchange on a conversation that was
// cleared or swept while the exchange waited for it.
var errConversationClosed = errors.New("conversation closed")

// asUpstream makes sure every completion failure carries the upstream kind.
func asUpstream(err error) error {
	if errors.Is(err, ErrUpstreamUnavailable) {
		return err
	}
	return &ai.UpstreamError{Cause: err}
}
