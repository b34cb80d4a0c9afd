package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/volunteer-roster-api/internal/dto"
	"github.com/noah-isme/volunteer-roster-api/internal/middleware"
	"github.com/noah-isme/volunteer-roster-api/internal/models"
	"github.com/noah-isme/volunteer-roster-api/pkg/response"
)

type schedulingService interface {
	CreateEvent(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context, organizationID string) ([]models.Event, bool, error)
	UpdateEvent(ctx context.Context, id string, req dto.UpdateEventRequest) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	CreateShift(ctx context.Context, req dto.CreateShiftRequest) (*models.Shift, error)
	GenerateShifts(ctx context.Context, eventID string) ([]models.Shift, error)
	UpdateShift(ctx context.Context, id string, req dto.UpdateShiftRequest) (*models.Shift, error)
	GetShift(ctx context.Context, id string) (*models.Shift, error)
	ListShifts(ctx context.Context, eventID string) ([]models.Shift, bool, error)
	ListShiftVolunteers(ctx context.Context, shiftID string) ([]models.Volunteer, error)
	DeleteShift(ctx context.Context, id string) error
	SignUp(ctx context.Context, req dto.SignUpRequest) (*models.ShiftAssignment, error)
	CancelAssignment(ctx context.Context, id string, actor *models.JWTClaims) error
}

// SchedulingHandler exposes events, shifts and sign-ups.
type SchedulingHandler struct {
	service schedulingService
}

// NewSchedulingHandler builds a new handler.
func NewSchedulingHandler(service schedulingService) *SchedulingHandler {
	return &SchedulingHandler{service: service}
}

// CreateEvent godoc
// @Summary Post an event under an organization
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events [post]
func (h *SchedulingHandler) CreateEvent(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid event payload"))
		return
	}
	if err := checkOrganizationScope(claimsFromContext(c), req.OrganizationID); err != nil {
		response.Error(c, err)
		return
	}
	event, err := h.service.CreateEvent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// ListEvents godoc
// @Summary List an organization's events by start time
// @Tags Events
// @Produce json
// @Param orgId path string true "Organization ID"
// @Success 200 {object} response.Envelope
// @Router /organizations/{orgId}/events [get]
func (h *SchedulingHandler) ListEvents(c *gin.Context) {
	start := time.Now()
	events, hit, err := h.service.ListEvents(c.Request.Context(), c.Param("orgId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, events, nil, middleware.ResponseMeta(c, start))
}

// GetEvent godoc
// @Summary Get an event
// @Tags Events
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId} [get]
func (h *SchedulingHandler) GetEvent(c *gin.Context) {
	event, err := h.service.GetEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description The new range must still contain every shift of the event.
// @Tags Events
// @Accept json
// @Produce json
// @Param eventId path string true "Event ID"
// @Param payload body dto.UpdateEventRequest true "Event payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /events/{eventId} [put]
func (h *SchedulingHandler) UpdateEvent(c *gin.Context) {
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid event payload"))
		return
	}
	if !h.ownsEvent(c, c.Param("eventId")) {
		return
	}
	event, err := h.service.UpdateEvent(c.Request.Context(), c.Param("eventId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// DeleteEvent godoc
// @Summary Delete an event with its shifts and assignments
// @Tags Events
// @Param eventId path string true "Event ID"
// @Success 204
// @Router /events/{eventId} [delete]
func (h *SchedulingHandler) DeleteEvent(c *gin.Context) {
	if !h.ownsEvent(c, c.Param("eventId")) {
		return
	}
	if err := h.service.DeleteEvent(c.Request.Context(), c.Param("eventId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GenerateShifts godoc
// @Summary Divide an event into one-hour shifts
// @Tags Shifts
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 201 {object} response.Envelope
// @Router /events/{eventId}/shifts/generate [post]
func (h *SchedulingHandler) GenerateShifts(c *gin.Context) {
	if !h.ownsEvent(c, c.Param("eventId")) {
		return
	}
	shifts, err := h.service.GenerateShifts(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, shifts)
}

// ListShifts godoc
// @Summary List an event's shifts by start time
// @Tags Shifts
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/shifts [get]
func (h *SchedulingHandler) ListShifts(c *gin.Context) {
	start := time.Now()
	shifts, hit, err := h.service.ListShifts(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, shifts, nil, middleware.ResponseMeta(c, start))
}

// CreateShift godoc
// @Summary Add a shift to an event
// @Tags Shifts
// @Accept json
// @Produce json
// @Param payload body dto.CreateShiftRequest true "Shift payload"
// @Success 201 {object} response.Envelope
// @Router /shifts [post]
func (h *SchedulingHandler) CreateShift(c *gin.Context) {
	var req dto.CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid shift payload"))
		return
	}
	if !h.ownsEvent(c, req.EventID) {
		return
	}
	shift, err := h.service.CreateShift(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, shift)
}

// GetShift godoc
// @Summary Get a shift
// @Tags Shifts
// @Produce json
// @Param shiftId path string true "Shift ID"
// @Success 200 {object} response.Envelope
// @Router /shifts/{shiftId} [get]
func (h *SchedulingHandler) GetShift(c *gin.Context) {
	shift, err := h.service.GetShift(c.Request.Context(), c.Param("shiftId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shift, nil)
}

// UpdateShift godoc
// @Summary Update a shift's time range and capacity
// @Tags Shifts
// @Accept json
// @Produce json
// @Param shiftId path string true "Shift ID"
// @Param payload body dto.UpdateShiftRequest true "Shift payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /shifts/{shiftId} [put]
func (h *SchedulingHandler) UpdateShift(c *gin.Context) {
	var req dto.UpdateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid shift payload"))
		return
	}
	if !h.ownsShift(c, c.Param("shiftId")) {
		return
	}
	shift, err := h.service.UpdateShift(c.Request.Context(), c.Param("shiftId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shift, nil)
}

// DeleteShift godoc
// @Summary Delete a shift and its assignments
// @Tags Shifts
// @Param shiftId path string true "Shift ID"
// @Success 204
// @Router /shifts/{shiftId} [delete]
func (h *SchedulingHandler) DeleteShift(c *gin.Context) {
	if !h.ownsShift(c, c.Param("shiftId")) {
		return
	}
	if err := h.service.DeleteShift(c.Request.Context(), c.Param("shiftId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListShiftVolunteers godoc
// @Summary List volunteers signed up for a shift
// @Tags Shifts
// @Produce json
// @Param shiftId path string true "Shift ID"
// @Success 200 {object} response.Envelope
// @Router /shifts/{shiftId}/volunteers [get]
func (h *SchedulingHandler) ListShiftVolunteers(c *gin.Context) {
	if !h.ownsShift(c, c.Param("shiftId")) {
		return
	}
	vols, err := h.service.ListShiftVolunteers(c.Request.Context(), c.Param("shiftId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vols, nil)
}

// SignUp godoc
// @Summary Sign up for a shift
// @Description Repeating a sign-up returns the existing assignment.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param shiftId path string true "Shift ID"
// @Param payload body dto.MembershipRequest false "Volunteer (admins only)"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /shifts/{shiftId}/signups [post]
func (h *SchedulingHandler) SignUp(c *gin.Context) {
	if !h.ownsShift(c, c.Param("shiftId")) {
		return
	}
	var req dto.MembershipRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid sign-up payload"))
			return
		}
	}
	volunteerID, err := actingVolunteer(claimsFromContext(c), req.VolunteerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	assignment, err := h.service.SignUp(c.Request.Context(), dto.SignUpRequest{VolunteerID: volunteerID, ShiftID: c.Param("shiftId")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// CancelAssignment godoc
// @Summary Cancel a shift assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /assignments/{id} [delete]
func (h *SchedulingHandler) CancelAssignment(c *gin.Context) {
	if err := h.service.CancelAssignment(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ownsEvent writes a 403 or 404 and returns false when the caller may not manage the event.
func (h *SchedulingHandler) ownsEvent(c *gin.Context, eventID string) bool {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleAdmin || claims.OrganizationID == "" {
		return true
	}
	event, err := h.service.GetEvent(c.Request.Context(), eventID)
	if err == nil {
		err = checkOrganizationScope(claims, event.OrganizationID)
	}
	if err != nil {
		response.Error(c, err)
		return false
	}
	return true
}

func (h *SchedulingHandler) ownsShift(c *gin.Context, shiftID string) bool {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleAdmin || claims.OrganizationID == "" {
		return true
	}
	shift, err := h.service.GetShift(c.Request.Context(), shiftID)
	if err == nil {
		err = checkOrganizationScope(claims, shift.OrganizationID)
	}
	if err != nil {
		response.Error(c, err)
		return false
	}
	return true
}
