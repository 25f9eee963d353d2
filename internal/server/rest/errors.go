package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pd15/saocontacts/internal/common"
	"github.com/pd15/saocontacts/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler renders every error as {"error": "<message>"}. Auth
// errors map by kind; anything else is logged and reported generically.
func NewHTTPErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err)
		if code == http.StatusInternalServerError {
			log.Error(c.Request().Context(), "request failed",
				"err", err,
				"method", c.Request().Method,
				"path", c.Path(),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}
	return statusFor(common.KindOf(err)), common.Message(err)
}

func statusFor(k common.Kind) int {
	switch k {
	case common.KindValidation, common.KindInvalidCode, common.KindCodeExpired:
		return http.StatusBadRequest
	case common.KindAlreadyExists:
		return http.StatusConflict
	case common.KindNotFoundOrUnverified, common.KindNotFound:
		return http.StatusNotFound
	case common.KindInvalidCredential, common.KindPINExpired, common.KindNotAuthenticated:
		return http.StatusUnauthorized
	case common.KindForbidden:
		return http.StatusForbidden
	case common.KindAccountLocked:
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}
