package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Message string `json:"message"`
}

type validationErrorResponse struct {
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInsufficientBalance), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		fields := validation.Fields
		if fields == nil {
			fields = []domain.FieldError{}
		}
		c.JSON(http.StatusBadRequest, validationErrorResponse{Message: validation.Message, Errors: fields})
		return
	}
	c.JSON(statusFor(err), errorResponse{Message: err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Message: message})
}
