package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error types for common playback failure scenarios.
var (
	// ErrAuthFailure indicates a credential fetch or refresh failed. Fatal
	// for the current command; the next command retries the fetch.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrDeviceUnavailable indicates no device id is known yet, or the
	// device-transfer protocol failed after exhausting retries.
	ErrDeviceUnavailable = errors.New("playback device unavailable")

	// ErrPlaybackRestricted indicates the provider refused the command
	// outright (forbidden). Never retried.
	ErrPlaybackRestricted = errors.New("playback restricted")

	// ErrTransient indicates a provider-side failure worth retrying.
	ErrTransient = errors.New("transient provider error")

	// ErrPreviewUnavailable indicates the track carries no preview clip, so
	// fallback playback is impossible.
	ErrPreviewUnavailable = errors.New("no preview available")

	// ErrPlaybackFailed is the catch-all after retries are exhausted.
	ErrPlaybackFailed = errors.New("failed to start playback")

	// ErrTransportNotReady indicates a command arrived before the transport
	// finished acquisition.
	ErrTransportNotReady = errors.New("transport not ready")

	// ErrTrackNotFound indicates the catalog could not resolve the id.
	ErrTrackNotFound = errors.New("track not found")
)

// Classify maps a device-API HTTP status code onto the failure taxonomy.
// Success codes return nil.
func Classify(statusCode int) error {
	switch {
	case statusCode == http.StatusOK || statusCode == http.StatusNoContent:
		return nil
	case statusCode == http.StatusNotFound:
		return ErrDeviceUnavailable
	case statusCode == http.StatusUnauthorized:
		return ErrAuthFailure
	case statusCode == http.StatusForbidden:
		return ErrPlaybackRestricted
	case statusCode >= 500:
		return ErrTransient
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrPlaybackFailed, statusCode)
	}
}

// Retriable reports whether the command dispatcher should attempt the
// command again, assuming attempts remain in the budget.
func Retriable(err error) bool {
	return errors.Is(err, ErrDeviceUnavailable) ||
		errors.Is(err, ErrAuthFailure) ||
		errors.Is(err, ErrTransient)
}

// Fatal reports whether the failure must stop the command immediately,
// skipping any remaining retry budget.
func Fatal(err error) bool {
	return errors.Is(err, ErrPlaybackRestricted)
}

// UserMessage returns the short human-readable reason surfaced to the UI.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPlaybackRestricted):
		return "Playback restricted for this account"
	case errors.Is(err, ErrPreviewUnavailable):
		return "No preview available for this track"
	case errors.Is(err, ErrAuthFailure):
		return "Could not refresh credentials"
	case errors.Is(err, ErrDeviceUnavailable):
		return "No playback device available"
	case errors.Is(err, ErrTrackNotFound):
		return "Track not found"
	default:
		return "Failed to start playback"
	}
}

// Suggestion returns a next-step hint for the given error, if one applies.
func Suggestion(err error) string {
	if err == nil {
		return ""
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, ErrAuthFailure) || strings.Contains(errStr, "token") {
		return "Check your session credentials and try again"
	}
	if errors.Is(err, ErrDeviceUnavailable) {
		return "Wait for the device to come online, or restart the player"
	}
	if errors.Is(err, ErrPlaybackRestricted) {
		return "Full playback requires a premium subscription"
	}
	if errors.Is(err, ErrPreviewUnavailable) {
		return "This track has no preview clip; premium playback is required"
	}
	if errors.Is(err, ErrTransient) || strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") {
		return "The provider is having issues. Try again in a moment"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	if s := Suggestion(err); s != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), s)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}
