package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clinicnotes/internal/domain"
	"clinicnotes/internal/validation"
)

const (
	msgInternal         = "Internal server error"
	msgInvalidAPIKey    = "Invalid API key"
	msgRateLimited      = "Too many requests, please try again later"
	msgNotFound         = "Not found"
	msgValidationFailed = "Validation failed"
	msgBodyTooLarge     = "Request body too large"
)

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindReferenceNotFound, domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAlreadyExists, domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError is the only place failures become HTTP statuses.
func (a *API) respondError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondMessage(c, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return
	}

	var derr *domain.Error
	if !errors.As(err, &derr) {
		if verr, ok := validation.AsError(err); ok {
			derr = &domain.Error{Kind: domain.KindValidation, Message: msgValidationFailed, Fields: verr.Fields, Err: err}
		} else {
			derr = domain.Internal(err)
		}
	}

	if derr.Kind == domain.KindInternal {
		a.logger.Error("request failed",
			zap.String("requestId", requestID(c)),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		respondMessage(c, http.StatusInternalServerError, msgInternal)
		return
	}

	body := gin.H{"error": derr.Message}
	if len(derr.Fields) > 0 {
		body["details"] = derr.Fields
	}
	c.AbortWithStatusJSON(statusFor(derr.Kind), body)
}

func respondMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
