package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/studyroom/internal/service"
	"github.com/immxrtalbeast/studyroom/lib/logger/sl"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as a generic 500.
func respondError(ctx *gin.Context, log *slog.Logger, err error) {
	status, code := classifyError(err)
	message := err.Error()

	if status == http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("method", ctx.Request.Method),
			slog.String("path", ctx.Request.URL.Path),
			slog.String("request_id", ctx.GetString(requestIDKey)),
			sl.Err(err),
		)
		message = "internal server error"
	}

	ctx.AbortWithStatusJSON(status, errorResponse{Error: message, Code: code})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, service.ErrUserNotProvisioned):
		return http.StatusUnauthorized, "user_not_provisioned"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrMembershipNotFound),
		errors.Is(err, service.ErrMediaNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func badRequest(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: message, Code: "validation_error"})
}
