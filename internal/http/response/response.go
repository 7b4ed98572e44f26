package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/draftlane/draftlane-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr maps a classified error onto its HTTP status. Unclassified
// errors come back as a plain 500 without leaking internals.
func RespondErr(c *gin.Context, err error) {
	code := apierr.CodeOf(err)
	status := apierr.HTTPStatus(err)
	if code == apierr.CodeInternal {
		RespondError(c, status, string(code), errInternal)
		return
	}
	RespondError(c, status, string(code), err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

type internalError struct{}

func (internalError) Error() string { return "internal error" }

var errInternal = internalError{}
