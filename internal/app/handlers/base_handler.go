package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/terrawatt/terrawatt/internal/app/middleware"
	"github.com/terrawatt/terrawatt/internal/domain/services"
)

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Details string `json:"details,omitempty"`
}

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	config *HandlerConfig
}

// NewBaseHandler creates a new base handler. A nil config falls back to the
// environment defaults.
func NewBaseHandler(cfg *HandlerConfig) *BaseHandler {
	if cfg == nil {
		cfg = NewHandlerConfig()
	}
	return &BaseHandler{
		config: cfg,
	}
}

// AuthenticateUser extracts and validates user context
func (b *BaseHandler) AuthenticateUser(c *gin.Context) (*middleware.UserContext, bool) {
	userCtx := middleware.GetUserContext(c)
	if userCtx == nil {
		b.RespondUnauthorized(c, "User authentication required")
		return nil, false
	}
	return userCtx, true
}

// RespondError sends a standardized error response
func (b *BaseHandler) RespondError(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	response := ErrorResponse{
		Error:   errorCode,
		Message: message,
		Status:  statusCode,
	}

	// Include details based on environment
	if len(details) > 0 && b.config.EnableDebugErrors {
		response.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// RespondUnauthorized sends a standardized unauthorized response
func (b *BaseHandler) RespondUnauthorized(c *gin.Context, message string) {
	b.RespondError(c, http.StatusUnauthorized, "unauthorized", message)
}

// RespondBadRequest sends a standardized bad request response
func (b *BaseHandler) RespondBadRequest(c *gin.Context, message string, details ...string) {
	b.RespondError(c, http.StatusBadRequest, "invalid_request", message, details...)
}

// RespondNotFound sends a standardized not found response
func (b *BaseHandler) RespondNotFound(c *gin.Context, message string) {
	b.RespondError(c, http.StatusNotFound, "not_found", message)
}

// RespondInternalError sends a standardized internal server error response
func (b *BaseHandler) RespondInternalError(c *gin.Context, message string, details ...string) {
	b.RespondError(c, http.StatusInternalServerError, "internal_error", message, details...)
}

// RespondSuccess sends a standardized success response
func (b *BaseHandler) RespondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// RespondCreated sends a standardized created response
func (b *BaseHandler) RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// RespondDomainError maps ledger service errors onto HTTP status codes.
// Unknown errors come back as 500 without leaking internals.
func (b *BaseHandler) RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrVersionNotFound),
		errors.Is(err, services.ErrLandNotFound):
		b.RespondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrLockConflict):
		b.RespondError(c, http.StatusConflict, "lock_conflict", err.Error())
	case errors.Is(err, services.ErrUploadConflict):
		b.RespondError(c, http.StatusConflict, "upload_conflict", err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		b.RespondError(c, http.StatusUnprocessableEntity, "invalid_transition", err.Error())
	case errors.Is(err, services.ErrInvalidReference):
		b.RespondError(c, http.StatusUnprocessableEntity, "invalid_reference", err.Error())
	case errors.Is(err, services.ErrUnauthorizedActor):
		b.RespondError(c, http.StatusForbidden, "not_lock_holder", err.Error())
	default:
		b.RespondInternalError(c, "Operation failed", err.Error())
	}
}

// ParsePagination extracts and validates pagination parameters
func (b *BaseHandler) ParsePagination(c *gin.Context) (page, pageSize int) {
	page = getIntParam(c, "page", 1)
	pageSize = getIntParam(c, "page_size", b.config.DefaultPageSize)

	if page < 1 {
		page = 1
	}
	pageSize = b.config.ValidatePageSize(pageSize)

	return page, pageSize
}

// ValidateUUID validates UUID parameter and responds with error if invalid
func (b *BaseHandler) ValidateUUID(c *gin.Context, paramName, uuidStr string) (uuid.UUID, bool) {
	id, err := uuid.Parse(uuidStr)
	if err != nil {
		b.RespondBadRequest(c, "Invalid "+paramName+" format")
		return uuid.Nil, false
	}
	return id, true
}
