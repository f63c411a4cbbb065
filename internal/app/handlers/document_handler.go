package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/terrawatt/terrawatt/internal/app/middleware"
	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/domain/services"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

// DocumentHandler serves the version ledger endpoints: uploads, status
// summaries, review locking and the audit trail.
type DocumentHandler struct {
	*BaseHandler
	versionService *services.VersionService
	storage        services.StorageService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(versionService *services.VersionService, storage services.StorageService, cfg *HandlerConfig) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler:    NewBaseHandler(cfg),
		versionService: versionService,
		storage:        storage,
	}
}

// RegisterRoutes registers document routes
func (h *DocumentHandler) RegisterRoutes(router *gin.RouterGroup) {
	lands := router.Group("/lands")
	{
		lands.POST("/:id/documents", h.UploadDocument)
		lands.GET("/:id/documents", h.GetStatusSummary)
		lands.GET("/:id/documents/:type/versions", h.ListVersions)
		lands.GET("/:id/audit", h.GetAuditTrail)
	}

	docs := router.Group("/documents")
	{
		docs.GET("/:id", h.GetVersion)
		docs.GET("/:id/download", h.DownloadDocument)
		docs.POST("/:id/lock", h.LockDocument)
		docs.POST("/:id/unlock", h.UnlockDocument)
		docs.POST("/:id/review", h.CompleteReview)
		docs.POST("/:id/archive", h.ArchiveDocument)
	}
}

// UploadDocumentRequest carries the multipart form fields beside the file
type UploadDocumentRequest struct {
	DocumentType string `form:"document_type" binding:"required"`
	Notes        string `form:"notes"`
}

// UploadDocument stores the payload and appends a new ledger version.
// The payload is written to storage before the ledger row exists; a failed
// ledger insert cleans the orphan up.
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}

	landID, ok := h.ValidateUUID(c, "land ID", c.Param("id"))
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.RespondBadRequest(c, "No file uploaded or invalid file", err.Error())
		return
	}
	defer file.Close()

	var req UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		h.RespondBadRequest(c, "Invalid form data", err.Error())
		return
	}

	docType := models.DocumentType(req.DocumentType)
	if !isValidDocumentType(docType) {
		h.RespondBadRequest(c, "Unknown document type: "+req.DocumentType)
		return
	}

	if err := validateFileSize(header.Size, h.config.MaxFileSize); err != nil {
		h.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", err.Error())
		return
	}
	if err := validateFileExtension(header.Filename, h.config.AllowedFileTypes); err != nil {
		h.RespondError(c, http.StatusUnsupportedMediaType, "unsupported_format", err.Error())
		return
	}

	storagePath, err := h.storage.Store(c.Request.Context(), services.StorageParams{
		LandID:      landID,
		FileReader:  file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	})
	if err != nil {
		h.RespondInternalError(c, "Failed to store file", err.Error())
		return
	}

	version, err := h.versionService.RecordUpload(c.Request.Context(), services.RecordUploadParams{
		LandID:       landID,
		DocumentType: docType,
		UploadedBy:   userCtx.UserID,
		StoragePath:  storagePath,
		FileSize:     header.Size,
		Notes:        req.Notes,
	})
	if err != nil {
		_ = h.storage.Delete(c.Request.Context(), storagePath)
		h.RespondDomainError(c, err)
		return
	}

	h.RespondCreated(c, version)
}

// GetStatusSummary returns the per-document-type aggregate for a land
func (h *DocumentHandler) GetStatusSummary(c *gin.Context) {
	if _, ok := h.AuthenticateUser(c); !ok {
		return
	}

	landID, ok := h.ValidateUUID(c, "land ID", c.Param("id"))
	if !ok {
		return
	}

	summary, err := h.versionService.GetStatusSummary(c.Request.Context(), landID)
	if err != nil {
		h.RespondDomainError(c, err)
		return
	}

	h.RespondSuccess(c, gin.H{
		"land_id":        landID,
		"document_types": summary,
	})
}

// ListVersions returns the full ledger for one document type, newest first
func (h *DocumentHandler) ListVersions(c *gin.Context) {
	if _, ok := h.AuthenticateUser(c); !ok {
		return
	}

	landID, ok := h.ValidateUUID(c, "land ID", c.Param("id"))
	if !ok {
		return
	}

	docType := models.DocumentType(c.Param("type"))
	if !isValidDocumentType(docType) {
		h.RespondBadRequest(c, "Unknown document type: "+c.Param("type"))
		return
	}

	versions, err := h.versionService.ListVersions(c.Request.Context(), landID, docType)
	if err != nil {
		h.RespondDomainError(c, err)
		return
	}

	h.RespondSuccess(c, gin.H{
		"land_id":       landID,
		"document_type": docType,
		"versions":      versions,
	})
}

// GetVersion returns a single ledger entry
func (h *DocumentHandler) GetVersion(c *gin.Context) {
	if _, ok := h.AuthenticateUser(c); !ok {
		return
	}

	versionID, ok := h.ValidateUUID(c, "document ID", c.Param("id"))
	if !ok {
		return
	}

	version, err := h.versionService.GetVersion(c.Request.Context(), versionID)
	if err != nil {
		h.RespondDomainError(c, err)
		return
	}

	h.RespondSuccess(c, version)
}

// DownloadDocument streams the stored payload for a version
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	if _, ok := h.AuthenticateUser(c); !ok {
		return
	}

	versionID, ok := h.ValidateUUID(c, "document ID", c.Param("id"))
	if !ok {
		return
	}

	version, err := h.versionService.GetVersion(c.Request.Context(), versionID)
	if err != nil {
		h.RespondDomainError(c, err)
		return
	}

	reader, err := h.storage.Get(c.Request.Context(), version.StoragePath)
	if err != nil {
		h.RespondInternalError(c, "Failed to retrieve file", err.Error())
		return
	}
	defer reader.Close()

	filename := fmt.Sprintf("%s_v%d", version.DocumentType, version.VersionNumber)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.DataFromReader(http.StatusOK, version.FileSize, "application/octet-stream", reader, nil)
}

// ReviewActionRequest carries the optional free-text reason for a state change
type ReviewActionRequest struct {
	Reason string `json:"reason"`
}

// LockDocument claims a version for exclusive review
func (h *DocumentHandler) LockDocument(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}

	versionID, ok := h.ValidateUUID(c, "document ID", c.Param("id"))
	if !ok {
		return
	}

	var req ReviewActionRequest
	_ = c.ShouldBindJSON(&req)

	version, err := h.versionService.Lock(c.Request.Context(), versionID, userCtx.UserID, req.Reason)
	if err != nil {
		h.RespondDomainError(c, err)
		return
	}

	h.RespondSuccess(c, version)
}

// UnlockDocument releases a review claim without a verdict
func (h *DocumentHandler) UnlockDocument(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}

	versionID, ok := h.ValidateUUID(c, "document ID", c.Param("id"))
	if !ok {
		return
	}

	var req ReviewActionRequest
	_ = c.ShouldBindJSON(&req)

	version, err := h.versionService.Unlock(c.Request.Context(), versionID, actorFromContext(userCtx), req.Reason)
	if err != nil {
		h.RespondDomainError(c, err)
		return
	}

	h.RespondSuccess(c, version)
}

// CompleteReviewRequest carries the review verdict
type CompleteReviewRequest struct {
	Result string `json:"result" binding:"required"`
	Reason string `json:"reason"`
}

// CompleteReview ends a review: approve keeps the version, reject archives it
func (h *DocumentHandler) CompleteReview(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}

	versionID, ok := h.ValidateUUID(c, "document ID", c.Param("id"))
	if !ok {
		return
	}

	var req CompleteReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	result := services.ReviewResult(req.Result)
	if result != services.ReviewApprove && result != services.ReviewReject {
		h.RespondBadRequest(c, "Result must be 'approve' or 'reject'")
		return
	}

	version, err := h.versionService.CompleteReview(c.Request.Context(), versionID, actorFromContext(userCtx), result, req.Reason)
	if err != nil {
		h.RespondDomainError(c, err)
		return
	}

	h.RespondSuccess(c, version)
}

// ArchiveDocument soft-deletes a superseded version
func (h *DocumentHandler) ArchiveDocument(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}

	versionID, ok := h.ValidateUUID(c, "document ID", c.Param("id"))
	if !ok {
		return
	}

	var req ReviewActionRequest
	_ = c.ShouldBindJSON(&req)

	version, err := h.versionService.Archive(c.Request.Context(), versionID, userCtx.UserID, req.Reason)
	if err != nil {
		h.RespondDomainError(c, err)
		return
	}

	h.RespondSuccess(c, version)
}

// GetAuditTrail returns the review audit entries for a land, newest first
func (h *DocumentHandler) GetAuditTrail(c *gin.Context) {
	if _, ok := h.AuthenticateUser(c); !ok {
		return
	}

	landID, ok := h.ValidateUUID(c, "land ID", c.Param("id"))
	if !ok {
		return
	}

	filter := repositories.AuditFilter{
		LandID: landID,
		Limit:  getIntParam(c, "limit", 50),
		Offset: getIntParam(c, "offset", 0),
	}
	if docType := c.Query("document_type"); docType != "" {
		parsed := models.DocumentType(docType)
		if !isValidDocumentType(parsed) {
			h.RespondBadRequest(c, "Unknown document type: "+docType)
			return
		}
		filter.DocumentType = &parsed
	}
	if action := c.Query("action_type"); action != "" {
		parsed := models.AuditAction(action)
		filter.Action = &parsed
	}
	filter.ActorID = getUUIDParam(c, "actor_id")

	entries, total, err := h.versionService.QueryAudit(c.Request.Context(), filter)
	if err != nil {
		h.RespondDomainError(c, err)
		return
	}

	h.RespondSuccess(c, gin.H{
		"land_id": landID,
		"entries": entries,
		"total":   total,
	})
}

// actorFromContext builds the actor record the service layer authorizes
// against. Role and ID are all it needs.
func actorFromContext(userCtx *middleware.UserContext) *models.User {
	return &models.User{
		ID:    userCtx.UserID,
		Email: userCtx.Email,
		Role:  userCtx.Role,
	}
}

func isValidDocumentType(t models.DocumentType) bool {
	switch t {
	case models.DocTypeSurveyReport,
		models.DocTypeOwnershipDeed,
		models.DocTypeEnvironmental,
		models.DocTypeGridConnection,
		models.DocTypeZoningCert,
		models.DocTypeFinancialModel,
		models.DocTypeLeaseAgreement,
		models.DocTypeGeneral:
		return true
	}
	return false
}
