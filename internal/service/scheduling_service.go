package service

import (
	"context"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/internal/dto"
	"github.com/noah-isme/volunteer-roster-api/internal/models"
	"github.com/noah-isme/volunteer-roster-api/pkg/config"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
)

// SchedulingConfig tunes event and shift creation.
type SchedulingConfig struct {
	ShiftPolicy string
}

// SchedulingService owns the event, shift and assignment lifecycle.
type SchedulingService struct {
	orgs        OrganizationStore
	volunteers  VolunteerStore
	events      EventStore
	shifts      ShiftStore
	assignments AssignmentStore
	maintainer  *RelationshipMaintainer
	cache       *CacheService
	metrics     *MetricsService
	cfg         SchedulingConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSchedulingService builds a SchedulingService.
func NewSchedulingService(stores Stores, maintainer *RelationshipMaintainer, cache *CacheService, metrics *MetricsService, cfg SchedulingConfig, validate *validator.Validate, logger *zap.Logger) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShiftPolicy == "" {
		cfg.ShiftPolicy = config.ShiftPolicyExplicit
	}
	return &SchedulingService{
		orgs:        stores.Organizations,
		volunteers:  stores.Volunteers,
		events:      stores.Events,
		shifts:      stores.Shifts,
		assignments: stores.Assignments,
		maintainer:  maintainer,
		cache:       cache,
		metrics:     metrics,
		cfg:         cfg,
		validator:   validate,
		logger:      logger,
	}
}

// CreateEvent posts an event under its organization. Under the hourly policy the event
// is also divided into one-hour shifts.
func (s *SchedulingService) CreateEvent(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid event payload")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if _, err := s.orgs.FindByID(ctx, req.OrganizationID); err != nil {
		return nil, storeError(err, "organization not found", "failed to load organization")
	}

	// the id is needed by the back-reference before the record exists
	event := &models.Event{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Location:       req.Location,
		StartTime:      req.StartTime.UTC(),
		EndTime:        req.EndTime.UTC(),
		OrganizationID: req.OrganizationID,
	}
	err := s.maintainer.Commit(ctx, PairedUpdate{
		Operation: "createEvent",
		Primary:   func(ctx context.Context) error { return s.events.Create(ctx, event) },
		Refs:      []models.RefOp{models.AddRef(models.RefOrganizationEvents, event.OrganizationID, event.ID)},
	})
	s.cache.Invalidate(ctx, eventsCacheKey(event.OrganizationID))
	if err != nil {
		if appErrors.Is(err, appErrors.ErrInconsistentState) {
			return nil, err
		}
		return nil, appErrors.Internal(err, "failed to create event")
	}

	if s.cfg.ShiftPolicy == config.ShiftPolicyHourly {
		if _, err := s.generateShifts(ctx, event); err != nil {
			return nil, err
		}
	}
	return s.GetEvent(ctx, event.ID)
}

// GetEvent loads one event.
func (s *SchedulingService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "event not found", "failed to load event")
	}
	return event, nil
}

// ListEvents returns the organization's events ordered by start time. The boolean
// reports a cache hit.
func (s *SchedulingService) ListEvents(ctx context.Context, organizationID string) ([]models.Event, bool, error) {
	var cached []models.Event
	if s.cache.Get(ctx, eventsCacheKey(organizationID), &cached) {
		return cached, true, nil
	}
	if _, err := s.orgs.FindByID(ctx, organizationID); err != nil {
		return nil, false, storeError(err, "organization not found", "failed to load organization")
	}
	events, err := s.events.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list events")
	}
	s.cache.Set(ctx, eventsCacheKey(organizationID), events)
	return events, false, nil
}

// UpdateEvent replaces the editable fields of an event. A new time range must still
// contain every existing shift.
func (s *SchedulingService) UpdateEvent(ctx context.Context, id string, req dto.UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid event payload")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	event.Name = req.Name
	event.Location = req.Location
	if !req.StartTime.Equal(event.StartTime) || !req.EndTime.Equal(event.EndTime) {
		event.StartTime = req.StartTime.UTC()
		event.EndTime = req.EndTime.UTC()
		shifts, err := s.shifts.ListByEvent(ctx, id)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list shifts")
		}
		for _, shift := range shifts {
			if !event.Covers(shift.StartTime, shift.EndTime) {
				return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "new time range excludes existing shift "+shift.ID)
			}
		}
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, storeError(err, "event not found", "failed to update event")
	}
	s.cache.Invalidate(ctx, eventsCacheKey(event.OrganizationID))
	return event, nil
}

// DeleteEvent removes an event with all of its shifts and their assignments.
func (s *SchedulingService) DeleteEvent(ctx context.Context, id string) error {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	shifts, err := s.shifts.ListByEvent(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to list shifts")
	}

	var inconsistent error
	for i := range shifts {
		if err := s.deleteShift(ctx, &shifts[i], false); err != nil {
			if !appErrors.Is(err, appErrors.ErrInconsistentState) {
				return err
			}
			inconsistent = err
		}
	}

	err = s.maintainer.Commit(ctx, PairedUpdate{
		Operation: "deleteEvent",
		Primary:   func(ctx context.Context) error { return s.events.Delete(ctx, id) },
		Refs:      []models.RefOp{models.RemoveRef(models.RefOrganizationEvents, event.OrganizationID, id)},
	})
	s.cache.Invalidate(ctx, eventsCacheKey(event.OrganizationID), shiftsCacheKey(id))
	if err != nil {
		if appErrors.Is(err, appErrors.ErrInconsistentState) {
			return err
		}
		return storeError(err, "event not found", "failed to delete event")
	}
	return inconsistent
}

// CreateShift adds a shift inside its event's time range.
func (s *SchedulingService) CreateShift(ctx context.Context, req dto.CreateShiftRequest) (*models.Shift, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid shift payload")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	event, err := s.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if req.OrganizationID != "" && req.OrganizationID != event.OrganizationID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "organization_id does not match the event")
	}
	if !event.Covers(req.StartTime, req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "shift must lie within the event time range")
	}

	shift := &models.Shift{
		StartTime:      req.StartTime.UTC(),
		EndTime:        req.EndTime.UTC(),
		EventID:        event.ID,
		OrganizationID: event.OrganizationID,
		MaxSpots:       req.MaxSpots,
	}
	if err := s.createShift(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// GenerateShifts divides an event into one-hour shifts. Slots that already have a shift
// with the same bounds are skipped, so repeated calls do not duplicate shifts.
func (s *SchedulingService) GenerateShifts(ctx context.Context, eventID string) ([]models.Shift, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.generateShifts(ctx, event)
}

// UpdateShift replaces a shift's time range and capacity. The parent event is fixed.
func (s *SchedulingService) UpdateShift(ctx context.Context, id string, req dto.UpdateShiftRequest) (*models.Shift, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid shift payload")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	shift, err := s.GetShift(ctx, id)
	if err != nil {
		return nil, err
	}
	event, err := s.GetEvent(ctx, shift.EventID)
	if err != nil {
		return nil, err
	}
	if !event.Covers(req.StartTime, req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "shift must lie within the event time range")
	}
	if req.MaxSpots != nil && *req.MaxSpots < len(shift.Volunteers) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "max_spots is below the current number of sign-ups")
	}

	shift.StartTime = req.StartTime.UTC()
	shift.EndTime = req.EndTime.UTC()
	shift.MaxSpots = req.MaxSpots
	if err := s.shifts.Update(ctx, shift); err != nil {
		if !isNotFound(err) {
			return nil, appErrors.Internal(err, "failed to update shift")
		}
		// the capacity guard lost to a concurrent sign-up unless the shift itself is gone
		if _, findErr := s.shifts.FindByID(ctx, id); findErr == nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "max_spots is below the current number of sign-ups")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
	}
	s.cache.Invalidate(ctx, shiftsCacheKey(shift.EventID))
	return s.GetShift(ctx, id)
}

// GetShift loads one shift.
func (s *SchedulingService) GetShift(ctx context.Context, id string) (*models.Shift, error) {
	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "shift not found", "failed to load shift")
	}
	return shift, nil
}

// ListShifts returns an event's shifts ordered by start time. The boolean reports a
// cache hit.
func (s *SchedulingService) ListShifts(ctx context.Context, eventID string) ([]models.Shift, bool, error) {
	var cached []models.Shift
	if s.cache.Get(ctx, shiftsCacheKey(eventID), &cached) {
		return cached, true, nil
	}
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, false, err
	}
	shifts, err := s.shifts.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list shifts")
	}
	s.cache.Set(ctx, shiftsCacheKey(eventID), shifts)
	return shifts, false, nil
}

// ListShiftVolunteers returns the volunteers signed up for a shift ordered by name.
func (s *SchedulingService) ListShiftVolunteers(ctx context.Context, shiftID string) ([]models.Volunteer, error) {
	shift, err := s.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	vols, err := s.volunteers.FindByIDs(ctx, shift.Volunteers)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load volunteers")
	}
	return vols, nil
}

// DeleteShift removes a shift with its assignments and detaches it from its event.
func (s *SchedulingService) DeleteShift(ctx context.Context, id string) error {
	shift, err := s.GetShift(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteShift(ctx, shift, true)
}

// SignUp gives the volunteer a spot on the shift. Signing up twice returns the existing
// assignment after re-applying its references.
func (s *SchedulingService) SignUp(ctx context.Context, req dto.SignUpRequest) (*models.ShiftAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid sign-up payload")
	}
	shift, err := s.GetShift(ctx, req.ShiftID)
	if err != nil {
		return nil, err
	}
	if _, err := s.volunteers.FindByID(ctx, req.VolunteerID); err != nil {
		return nil, storeError(err, "volunteer not found", "failed to load volunteer")
	}

	existing, err := s.assignments.FindByVolunteerAndShift(ctx, req.VolunteerID, req.ShiftID)
	switch {
	case err == nil:
		// the spot goes through the capacity guard again in case the shift list lost it
		claim, err := s.shifts.ClaimSpot(ctx, shift.ID, req.VolunteerID)
		if err != nil {
			return nil, storeError(err, "shift not found", "failed to claim shift spot")
		}
		if claim == models.SpotFull {
			s.metrics.RecordCapacityRejection()
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "shift has no open spots for existing assignment "+existing.ID)
		}
		err = s.maintainer.Apply(ctx, "shiftSignUp", signUpRefs(existing)...)
		s.cache.Invalidate(ctx, shiftsCacheKey(shift.EventID))
		if err != nil {
			return nil, err
		}
		return existing, nil
	case !isNotFound(err):
		return nil, appErrors.Internal(err, "failed to look up assignment")
	}

	claim, err := s.shifts.ClaimSpot(ctx, shift.ID, req.VolunteerID)
	if err != nil {
		return nil, storeError(err, "shift not found", "failed to claim shift spot")
	}
	if claim == models.SpotFull {
		s.metrics.RecordCapacityRejection()
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "shift has no open spots")
	}
	s.cache.Invalidate(ctx, shiftsCacheKey(shift.EventID))

	assignment := &models.ShiftAssignment{
		VolunteerID:    req.VolunteerID,
		ShiftID:        shift.ID,
		EventID:        shift.EventID,
		OrganizationID: shift.OrganizationID,
	}
	created, err := s.assignments.Create(ctx, assignment)
	if err != nil {
		if claim == models.SpotClaimed {
			s.releaseSpot(ctx, shift.ID, req.VolunteerID)
		}
		return nil, appErrors.Internal(err, "failed to create assignment")
	}
	if !created {
		// a concurrent sign-up for the same pair won the insert
		assignment, err = s.assignments.FindByVolunteerAndShift(ctx, req.VolunteerID, req.ShiftID)
		if err != nil {
			return nil, storeError(err, "assignment not found", "failed to load assignment")
		}
	}

	if err := s.maintainer.Apply(ctx, "shiftSignUp", signUpRefs(assignment)...); err != nil {
		return nil, err
	}
	if created {
		s.metrics.RecordSignUp()
	}
	return assignment, nil
}

// CancelAssignment removes an assignment and every reference to it. A volunteer actor
// may only cancel their own assignments and an organization admin only those of their
// organization.
func (s *SchedulingService) CancelAssignment(ctx context.Context, id string, actor *models.JWTClaims) error {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "assignment not found", "failed to load assignment")
	}
	if actor != nil {
		switch actor.Role {
		case models.RoleVolunteer:
			if actor.VolunteerID != assignment.VolunteerID {
				return appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another volunteer")
			}
		case models.RoleAdmin:
			if actor.OrganizationID != "" && actor.OrganizationID != assignment.OrganizationID {
				return appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another organization")
			}
		}
	}

	err = s.maintainer.Commit(ctx, PairedUpdate{
		Operation: "volShiftDelete",
		Primary:   func(ctx context.Context) error { return s.assignments.Delete(ctx, id) },
		Refs: []models.RefOp{
			models.RemoveRef(models.RefShiftVolunteers, assignment.ShiftID, assignment.VolunteerID),
			models.RemoveRef(models.RefShiftAssignments, assignment.ShiftID, assignment.ID),
			models.RemoveRef(models.RefVolunteerAssignments, assignment.VolunteerID, assignment.ID),
		},
	})
	s.cache.Invalidate(ctx, shiftsCacheKey(assignment.EventID))
	if err != nil && !appErrors.Is(err, appErrors.ErrInconsistentState) {
		return storeError(err, "assignment not found", "failed to delete assignment")
	}

	pruneErr := s.pruneEventVolunteers(ctx, "volShiftDelete", assignment.EventID, assignment.VolunteerID)
	if err != nil {
		return err
	}
	return pruneErr
}

func (s *SchedulingService) createShift(ctx context.Context, shift *models.Shift) error {
	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	err := s.maintainer.Commit(ctx, PairedUpdate{
		Operation: "createShift",
		Primary:   func(ctx context.Context) error { return s.shifts.Create(ctx, shift) },
		Refs:      []models.RefOp{models.AddRef(models.RefEventShifts, shift.EventID, shift.ID)},
	})
	s.cache.Invalidate(ctx, shiftsCacheKey(shift.EventID))
	if err != nil {
		if appErrors.Is(err, appErrors.ErrInconsistentState) {
			return err
		}
		return appErrors.Internal(err, "failed to create shift")
	}
	return nil
}

func (s *SchedulingService) generateShifts(ctx context.Context, event *models.Event) ([]models.Shift, error) {
	existing, err := s.shifts.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list shifts")
	}
	taken := make(map[[2]int64]bool, len(existing))
	for _, shift := range existing {
		taken[[2]int64{shift.StartTime.Unix(), shift.EndTime.Unix()}] = true
	}

	created := []models.Shift{}
	for _, slot := range hourlySlots(event.StartTime, event.EndTime) {
		if taken[[2]int64{slot[0].Unix(), slot[1].Unix()}] {
			continue
		}
		shift := &models.Shift{
			StartTime:      slot[0],
			EndTime:        slot[1],
			EventID:        event.ID,
			OrganizationID: event.OrganizationID,
		}
		if err := s.createShift(ctx, shift); err != nil {
			return created, err
		}
		created = append(created, *shift)
	}
	return created, nil
}

// hourlySlots splits [start, end] into |round(duration in hours)| one-hour slots. The
// last slot is clamped to end.
func hourlySlots(start, end time.Time) [][2]time.Time {
	hours := int(math.Abs(math.Round(end.Sub(start).Hours())))
	slots := make([][2]time.Time, 0, hours)
	for i := 0; i < hours; i++ {
		slotStart := start.Add(time.Duration(i) * time.Hour)
		if !slotStart.Before(end) {
			break
		}
		slotEnd := slotStart.Add(time.Hour)
		if slotEnd.After(end) {
			slotEnd = end
		}
		slots = append(slots, [2]time.Time{slotStart, slotEnd})
	}
	return slots
}

// deleteShift cascades a shift: assignments first, then the shift itself. When detach
// is false the parent event is being deleted and keeps no bookkeeping.
func (s *SchedulingService) deleteShift(ctx context.Context, shift *models.Shift, detach bool) error {
	assignments, err := s.assignments.List(ctx, models.AssignmentFilter{ShiftID: shift.ID})
	if err != nil {
		return appErrors.Internal(err, "failed to list assignments")
	}

	var inconsistent error
	affected := map[string]bool{}
	for _, volunteerID := range shift.Volunteers {
		affected[volunteerID] = true
	}
	for _, assignment := range assignments {
		affected[assignment.VolunteerID] = true
		err := s.maintainer.Commit(ctx, PairedUpdate{
			Operation: "deleteShift",
			Primary:   func(ctx context.Context) error { return s.assignments.Delete(ctx, assignment.ID) },
			Refs:      []models.RefOp{models.RemoveRef(models.RefVolunteerAssignments, assignment.VolunteerID, assignment.ID)},
		})
		switch {
		case err == nil, isNotFound(err):
		case appErrors.Is(err, appErrors.ErrInconsistentState):
			inconsistent = err
		default:
			return appErrors.Internal(err, "failed to delete assignment")
		}
	}

	update := PairedUpdate{
		Operation: "deleteShift",
		Primary:   func(ctx context.Context) error { return s.shifts.Delete(ctx, shift.ID) },
	}
	if detach {
		update.Refs = []models.RefOp{models.RemoveRef(models.RefEventShifts, shift.EventID, shift.ID)}
	}
	err = s.maintainer.Commit(ctx, update)
	s.cache.Invalidate(ctx, shiftsCacheKey(shift.EventID))
	switch {
	case err == nil:
	case appErrors.Is(err, appErrors.ErrInconsistentState):
		inconsistent = err
	default:
		return storeError(err, "shift not found", "failed to delete shift")
	}

	if detach {
		for volunteerID := range affected {
			if err := s.pruneEventVolunteers(ctx, "deleteShift", shift.EventID, volunteerID); err != nil {
				inconsistent = err
			}
		}
	}
	return inconsistent
}

// pruneEventVolunteers drops the volunteer from the event aggregate once they hold no
// assignment in the event.
func (s *SchedulingService) pruneEventVolunteers(ctx context.Context, operation, eventID, volunteerID string) error {
	remaining, err := s.assignments.CountByVolunteerAndEvent(ctx, volunteerID, eventID)
	if err != nil {
		return appErrors.Internal(err, "failed to count assignments")
	}
	if remaining > 0 {
		return nil
	}
	return s.maintainer.Apply(ctx, operation, models.RemoveRef(models.RefEventVolunteers, eventID, volunteerID))
}

func (s *SchedulingService) releaseSpot(ctx context.Context, shiftID, volunteerID string) {
	op := models.RemoveRef(models.RefShiftVolunteers, shiftID, volunteerID)
	if err := s.maintainer.Apply(ctx, "shiftSignUp", op); err != nil {
		s.logger.Warn("release shift spot", zap.String("shift_id", shiftID), zap.String("volunteer_id", volunteerID), zap.Error(err))
	}
}

func signUpRefs(assignment *models.ShiftAssignment) []models.RefOp {
	return []models.RefOp{
		models.AddRef(models.RefShiftAssignments, assignment.ShiftID, assignment.ID),
		models.AddRef(models.RefEventVolunteers, assignment.EventID, assignment.VolunteerID),
		models.AddRef(models.RefVolunteerAssignments, assignment.VolunteerID, assignment.ID),
	}
}
