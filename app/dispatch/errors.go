package dispatch

import (
	"errors"
	"net/http"

	"github.com/openpromo/pubflow/app/publish"
)

// Error is a publish request failure with the HTTP status the API layer
// should answer with. Messages are short and safe to return to the end user.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func errMissingContentID() *Error {
	return &Error{Code: "missing_content_id", Status: http.StatusBadRequest, Message: "content id is required"}
}

func errUnsupportedPlatform(platform string) *Error {
	return &Error{Code: "unsupported_platform", Status: http.StatusBadRequest, Message: "unsupported platform: " + platform}
}

func errContentNotFound() *Error {
	return &Error{Code: "content_not_found", Status: http.StatusNotFound, Message: "content not found"}
}

func errEmptyContent() *Error {
	return &Error{Code: "empty_content", Status: http.StatusBadRequest, Message: "content has no text to publish"}
}

func errPlatformNotConnected(platform string) *Error {
	return &Error{Code: "platform_not_connected", Status: http.StatusBadRequest, Message: platform + " account is not connected"}
}

func errTokenRefresh(platform string) *Error {
	return &Error{Code: "token_refresh_failed", Status: http.StatusUnauthorized, Message: platform + " access expired and could not be refreshed; please reconnect"}
}

func errCredentials() *Error {
	return &Error{Code: "credential_error", Status: http.StatusInternalServerError, Message: "stored credentials could not be read"}
}

func errMissingAccountID() *Error {
	return &Error{Code: "missing_account_id", Status: http.StatusInternalServerError, Message: "connection has no platform account id"}
}

func errImageRequired(platform string) *Error {
	return &Error{Code: "image_required", Status: http.StatusBadRequest, Message: platform + " requires an image for publishing"}
}

func errInternal() *Error {
	return &Error{Code: "internal_error", Status: http.StatusInternalServerError, Message: "publish failed due to an internal error"}
}

// fromPublishError maps an adapter failure to a caller-facing Error, keeping
// the adapter-suggested status when one exists.
func fromPublishError(platform string, err error) *Error {
	if errors.Is(err, publish.ErrImageRequired) {
		return errImageRequired(platform)
	}

	var apiErr *publish.APIError
	if errors.As(err, &apiErr) {
		return &Error{
			Code:    "platform_error",
			Status:  apiErr.StatusCode(),
			Message: "publishing to " + platform + " failed: " + publish.Truncate(apiErr.Message, 120),
		}
	}

	return errInternal()
}
