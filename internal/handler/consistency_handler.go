package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/volunteer-roster-api/internal/dto"
	"github.com/noah-isme/volunteer-roster-api/pkg/response"
)

type consistencyService interface {
	Check(ctx context.Context) (*dto.ConsistencyReport, error)
	Repair(ctx context.Context) (*dto.ConsistencyReport, error)
}

// ConsistencyHandler lets superadmins scan and repair back-references.
type ConsistencyHandler struct {
	service consistencyService
}

// NewConsistencyHandler builds a new handler.
func NewConsistencyHandler(service consistencyService) *ConsistencyHandler {
	return &ConsistencyHandler{service: service}
}

// Check godoc
// @Summary Report back-reference inconsistencies
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/consistency [get]
func (h *ConsistencyHandler) Check(c *gin.Context) {
	report, err := h.service.Check(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Repair godoc
// @Summary Repair back-reference inconsistencies
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/consistency/repair [post]
func (h *ConsistencyHandler) Repair(c *gin.Context) {
	report, err := h.service.Repair(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
