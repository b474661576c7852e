package audio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"comicreel/types"
)

// SpeechRequest is one synthesis call
type SpeechRequest struct {
	Text     string
	VoiceID  string
	Settings types.VoiceSettings
}

// SpeechProvider turns text into a playable MP3 clip
type SpeechProvider interface {
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// ProviderError is an unsuccessful response from the speech provider
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("speech provider error (%d): %s", e.StatusCode, e.Body)
}

// Transient reports whether retrying the same request may succeed
func (e *ProviderError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient classifies rate limits, server errors and network failures as retryable
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Transient()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
