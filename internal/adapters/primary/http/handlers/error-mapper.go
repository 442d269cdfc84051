package handlers

import (
	"errors"
	"net/http"

	"status-notification/internal/adapters/primary/http/dto"
	"status-notification/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrObjectNotFound),
		errors.Is(err, domain.ErrSubObjectNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Detail: err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrMissingTarget),
		errors.Is(err, domain.ErrMissingObjectName):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Detail: err.Error()})

	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Detail: err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: "internal server error"})
	}
}
