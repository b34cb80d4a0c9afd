package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/volunteer-roster-api/internal/dto"
	"github.com/noah-isme/volunteer-roster-api/pkg/response"
)

type exportService interface {
	ExportAssignments(ctx context.Context, req dto.ExportRequest) (*dto.ExportFile, error)
}

// ExportHandler streams volunteer hour reports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export an organization's volunteer hours
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Param orgId path string true "Organization ID"
// @Param format query string true "csv or pdf"
// @Param verified_only query bool false "Only verified assignments"
// @Success 200 {file} file
// @Router /organizations/{orgId}/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, bindError(err, "invalid export query"))
		return
	}
	req.OrganizationID = c.Param("orgId")
	file, err := h.service.ExportAssignments(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
