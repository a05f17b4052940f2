package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resto-system/internal/engine"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// respondError maps the engine's failure kinds onto status codes.
func respondError(c *gin.Context, err error) {
	var (
		validation *engine.ValidationError
		conflict   *engine.ConflictError
		notFound   *engine.NotFoundError
		forbidden  *engine.AuthorizationError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, errorResponse(validation.Message))
	case errors.As(err, &conflict):
		c.JSON(http.StatusBadRequest, errorResponse(conflict.Message))
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, errorResponse(notFound.Message))
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, errorResponse(forbidden.Message))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("Internal server error"))
	}
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid "+name))
		return 0, false
	}
	return id, true
}
