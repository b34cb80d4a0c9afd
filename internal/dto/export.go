package dto

// ExportFormat selects the rendering of an assignment export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportRequest describes an hours export for one organization.
type ExportRequest struct {
	OrganizationID string       `validate:"required"`
	Format         ExportFormat `form:"format" validate:"required,oneof=csv pdf"`
	VerifiedOnly   bool         `form:"verified_only"`
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
