package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/internal/dto"
	"github.com/noah-isme/volunteer-roster-api/internal/models"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
	"github.com/noah-isme/volunteer-roster-api/pkg/export"
)

var exportHeaders = []string{"Volunteer", "Email", "Event", "Shift Start", "Shift End", "Hours", "Verified"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders an organization's assignments with their volunteer hours.
type ExportService struct {
	stores    Stores
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(stores Stores, csv csvRenderer, pdf pdfRenderer, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{stores: stores, csv: csv, pdf: pdf, validator: validate, logger: logger}
}

// ExportAssignments builds the hours report for an organization.
func (s *ExportService) ExportAssignments(ctx context.Context, req dto.ExportRequest) (*dto.ExportFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid export request")
	}
	org, err := s.stores.Organizations.FindByID(ctx, req.OrganizationID)
	if err != nil {
		return nil, storeError(err, "organization not found", "failed to load organization")
	}
	assignments, err := s.stores.Assignments.List(ctx, models.AssignmentFilter{OrganizationID: org.ID, VerifiedOnly: req.VerifiedOnly})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list assignments")
	}

	dataset, err := s.buildDataset(ctx, assignments)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to build export")
	}

	stamp := time.Now().UTC().Format("20060102")
	file := &dto.ExportFile{Filename: fmt.Sprintf("hours-%s-%s.%s", org.ID, stamp, req.Format)}
	switch req.Format {
	case dto.ExportFormatCSV:
		file.ContentType = "text/csv"
		file.Body, err = s.csv.Render(dataset)
	case dto.ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Body, err = s.pdf.Render(dataset, org.Name+" volunteer hours")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	s.logger.Info("assignments exported",
		zap.String("organization_id", org.ID),
		zap.String("format", string(req.Format)),
		zap.Int("rows", len(dataset.Rows)),
	)
	return file, nil
}

func (s *ExportService) buildDataset(ctx context.Context, assignments []models.ShiftAssignment) (export.Dataset, error) {
	table := export.NewHoursTable(exportHeaders, "Volunteer", "Hours")

	volunteerIDs := make([]string, 0, len(assignments))
	for _, a := range assignments {
		volunteerIDs = append(volunteerIDs, a.VolunteerID)
	}
	vols, err := s.stores.Volunteers.FindByIDs(ctx, volunteerIDs)
	if err != nil {
		return export.Dataset{}, err
	}
	volunteers := make(map[string]models.Volunteer, len(vols))
	for _, v := range vols {
		volunteers[v.ID] = v
	}

	shifts := map[string]*models.Shift{}
	events := map[string]*models.Event{}
	for _, a := range assignments {
		shift, ok := shifts[a.ShiftID]
		if !ok {
			if shift, err = s.stores.Shifts.FindByID(ctx, a.ShiftID); err != nil {
				if !isNotFound(err) {
					return export.Dataset{}, err
				}
				shift = nil
			}
			shifts[a.ShiftID] = shift
		}
		event, ok := events[a.EventID]
		if !ok {
			if event, err = s.stores.Events.FindByID(ctx, a.EventID); err != nil {
				if !isNotFound(err) {
					return export.Dataset{}, err
				}
				event = nil
			}
			events[a.EventID] = event
		}

		row := map[string]string{
			"Volunteer": a.VolunteerID,
			"Verified":  strconv.FormatBool(a.Verified),
		}
		if v, ok := volunteers[a.VolunteerID]; ok {
			row["Volunteer"] = v.FullName()
			row["Email"] = v.Email
		}
		if event != nil {
			row["Event"] = event.Name
		}
		var hours *float64
		if shift != nil {
			credited := roundedHours(shift.StartTime, shift.EndTime)
			hours = &credited
			row["Shift Start"] = shift.StartTime.Format(time.RFC3339)
			row["Shift End"] = shift.EndTime.Format(time.RFC3339)
		}
		table.Add(row, hours)
	}
	return table.Dataset(), nil
}

// roundedHours credits a shift with its length rounded to whole hours.
func roundedHours(start, end time.Time) float64 {
	return math.Abs(math.Round(end.Sub(start).Hours()))
}
