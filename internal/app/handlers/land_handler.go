package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/terrawatt/terrawatt/internal/domain/repositories"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

// LandHandler serves the land listing endpoints
type LandHandler struct {
	*BaseHandler
	landRepo repositories.LandRepository
}

// NewLandHandler creates a new land handler
func NewLandHandler(landRepo repositories.LandRepository, cfg *HandlerConfig) *LandHandler {
	return &LandHandler{
		BaseHandler: NewBaseHandler(cfg),
		landRepo:    landRepo,
	}
}

// RegisterRoutes registers land routes
func (h *LandHandler) RegisterRoutes(router *gin.RouterGroup) {
	lands := router.Group("/lands")
	{
		lands.POST("", h.CreateLand)
		lands.GET("", h.ListLands)
		lands.GET("/:id", h.GetLand)
	}
}

// CreateLandRequest carries the fields for a new land listing
type CreateLandRequest struct {
	Name       string  `json:"name" binding:"required"`
	EnergyType string  `json:"energy_type" binding:"required"`
	AreaAcres  float64 `json:"area_acres" binding:"required"`
	Location   string  `json:"location"`
}

// CreateLand registers a new land listing owned by the caller
func (h *LandHandler) CreateLand(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}

	var req CreateLandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	energyType := models.EnergyType(req.EnergyType)
	switch energyType {
	case models.EnergySolar, models.EnergyWind, models.EnergyHydro, models.EnergyGeothermal:
	default:
		h.RespondBadRequest(c, "Unknown energy type: "+req.EnergyType)
		return
	}

	if req.AreaAcres <= 0 {
		h.RespondBadRequest(c, "Area must be positive")
		return
	}

	land := &models.Land{
		OwnerID:    userCtx.UserID,
		Name:       req.Name,
		EnergyType: energyType,
		AreaAcres:  req.AreaAcres,
		Location:   req.Location,
		Status:     models.LandListed,
	}

	if err := h.landRepo.Create(c.Request.Context(), land); err != nil {
		h.RespondInternalError(c, "Failed to create land", err.Error())
		return
	}

	h.RespondCreated(c, land)
}

// ListLands returns a paginated list of land listings
func (h *LandHandler) ListLands(c *gin.Context) {
	if _, ok := h.AuthenticateUser(c); !ok {
		return
	}

	page, pageSize := h.ParsePagination(c)
	params := repositories.ListParams{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		SortBy:   c.DefaultQuery("sort_by", "created_at"),
		SortDesc: getBoolParam(c, "sort_desc", true),
	}

	lands, total, err := h.landRepo.List(c.Request.Context(), params)
	if err != nil {
		h.RespondInternalError(c, "Failed to list lands", err.Error())
		return
	}

	h.RespondSuccess(c, gin.H{
		"lands":     lands,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetLand returns a single land listing
func (h *LandHandler) GetLand(c *gin.Context) {
	if _, ok := h.AuthenticateUser(c); !ok {
		return
	}

	landID, ok := h.ValidateUUID(c, "land ID", c.Param("id"))
	if !ok {
		return
	}

	land, err := h.landRepo.GetByID(c.Request.Context(), landID)
	if err != nil {
		h.RespondNotFound(c, "Land not found")
		return
	}

	h.RespondSuccess(c, land)
}
