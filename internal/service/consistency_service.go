package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/internal/dto"
	"github.com/noah-isme/volunteer-roster-api/internal/models"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
)

// ConsistencyService scans every reference list and derives the updates that restore the
// bidirectional invariants. Assignments are the source of truth for shift, event and
// volunteer bookkeeping; child records carry the authoritative parent id for
// organization.events and event.shifts; organization.volunteers owns membership.
type ConsistencyService struct {
	stores Stores
	cache  *CacheService
	logger *zap.Logger
}

// NewConsistencyService constructs a ConsistencyService.
func NewConsistencyService(stores Stores, cache *CacheService, logger *zap.Logger) *ConsistencyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsistencyService{stores: stores, cache: cache, logger: logger}
}

type snapshot struct {
	orgs       map[string]*models.Organization
	volunteers map[string]*models.Volunteer
	events     map[string]*models.Event
	shifts     map[string]*models.Shift
	orgList    []models.Organization
	volList    []models.Volunteer
	eventList  []models.Event
	shiftList  []models.Shift
	assignList []models.ShiftAssignment
}

// Check reports every inconsistency without changing anything.
func (s *ConsistencyService) Check(ctx context.Context) (*dto.ConsistencyReport, error) {
	return s.run(ctx, true)
}

// Repair applies the fix for every inconsistency found.
func (s *ConsistencyService) Repair(ctx context.Context) (*dto.ConsistencyReport, error) {
	return s.run(ctx, false)
}

func (s *ConsistencyService) run(ctx context.Context, dryRun bool) (*dto.ConsistencyReport, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load roster for consistency scan")
	}

	report := &dto.ConsistencyReport{
		DryRun:        dryRun,
		Organizations: len(snap.orgList),
		Volunteers:    len(snap.volList),
		Events:        len(snap.eventList),
		Shifts:        len(snap.shiftList),
		Assignments:   len(snap.assignList),
		Issues:        diff(snap),
		GeneratedAt:   time.Now().UTC(),
	}
	if dryRun {
		return report, nil
	}

	for i := range report.Issues {
		issue := &report.Issues[i]
		if err := s.fix(ctx, *issue); err != nil {
			issue.Error = err.Error()
			s.logger.Warn("consistency fix failed", zap.String("op", issue.Action()), zap.Error(err))
			continue
		}
		report.Fixed++
	}
	if report.Fixed > 0 {
		s.invalidate(ctx, snap)
	}
	s.logger.Info("consistency repair finished", zap.Int("issues", len(report.Issues)), zap.Int("fixed", report.Fixed))
	return report, nil
}

// fix applies one issue. Removing what is already gone counts as fixed.
func (s *ConsistencyService) fix(ctx context.Context, issue dto.ConsistencyIssue) error {
	if issue.DeleteAssignment != "" {
		if err := s.stores.Assignments.Delete(ctx, issue.DeleteAssignment); err != nil && !isNotFound(err) {
			return err
		}
		return nil
	}
	if err := s.stores.References.Apply(ctx, issue.Fix); err != nil && !(isNotFound(err) && issue.Fix.Action == models.RefRemove) {
		return err
	}
	return nil
}

func (s *ConsistencyService) load(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{}
	var err error
	if snap.orgList, err = s.stores.Organizations.List(ctx); err != nil {
		return nil, err
	}
	if snap.volList, err = s.stores.Volunteers.List(ctx); err != nil {
		return nil, err
	}
	if snap.eventList, err = s.stores.Events.List(ctx); err != nil {
		return nil, err
	}
	if snap.shiftList, err = s.stores.Shifts.List(ctx); err != nil {
		return nil, err
	}
	if snap.assignList, err = s.stores.Assignments.List(ctx, models.AssignmentFilter{}); err != nil {
		return nil, err
	}

	snap.orgs = make(map[string]*models.Organization, len(snap.orgList))
	for i := range snap.orgList {
		snap.orgs[snap.orgList[i].ID] = &snap.orgList[i]
	}
	snap.volunteers = make(map[string]*models.Volunteer, len(snap.volList))
	for i := range snap.volList {
		snap.volunteers[snap.volList[i].ID] = &snap.volList[i]
	}
	snap.events = make(map[string]*models.Event, len(snap.eventList))
	for i := range snap.eventList {
		snap.events[snap.eventList[i].ID] = &snap.eventList[i]
	}
	snap.shifts = make(map[string]*models.Shift, len(snap.shiftList))
	for i := range snap.shiftList {
		snap.shifts[snap.shiftList[i].ID] = &snap.shiftList[i]
	}
	return snap, nil
}

// diff computes the fixes in a stable order: entity lists are already sorted by the stores.
// Orphaned assignments are deleted first and count as absent for every other check, so the
// references still pointing at them are pulled in the same pass.
func diff(snap *snapshot) []dto.ConsistencyIssue {
	issues := []dto.ConsistencyIssue{}
	add := func(op models.RefOp, format string, args ...interface{}) {
		issues = append(issues, dto.ConsistencyIssue{Reason: fmt.Sprintf(format, args...), Fix: op})
	}

	live := make(map[string]*models.ShiftAssignment, len(snap.assignList))
	liveList := make([]models.ShiftAssignment, 0, len(snap.assignList))
	for _, a := range snap.assignList {
		if missing := orphanedBy(snap, a); missing != "" {
			issues = append(issues, dto.ConsistencyIssue{
				Reason:           fmt.Sprintf("assignment %s points at missing %s", a.ID, missing),
				DeleteAssignment: a.ID,
			})
			continue
		}
		liveList = append(liveList, a)
		live[a.ID] = &liveList[len(liveList)-1]
	}

	for _, org := range snap.orgList {
		for _, volID := range org.Volunteers {
			vol, ok := snap.volunteers[volID]
			switch {
			case !ok:
				add(models.RemoveRef(models.RefOrganizationVolunteers, org.ID, volID), "organization %s lists missing volunteer %s", org.ID, volID)
			case !models.Contains(vol.Organizations, org.ID):
				add(models.AddRef(models.RefVolunteerOrganizations, volID, org.ID), "volunteer %s is a member of %s but does not list it", volID, org.ID)
			}
		}
		for _, volID := range org.PendingVolunteers {
			if _, ok := snap.volunteers[volID]; !ok || models.Contains(org.Volunteers, volID) {
				add(models.RemoveRef(models.RefOrganizationPendingVolunteers, org.ID, volID), "organization %s has stale pending entry %s", org.ID, volID)
			}
		}
		for _, eventID := range org.Events {
			if event, ok := snap.events[eventID]; !ok || event.OrganizationID != org.ID {
				add(models.RemoveRef(models.RefOrganizationEvents, org.ID, eventID), "organization %s lists foreign or missing event %s", org.ID, eventID)
			}
		}
	}

	for _, vol := range snap.volList {
		for _, orgID := range vol.Organizations {
			if org, ok := snap.orgs[orgID]; !ok || !models.Contains(org.Volunteers, vol.ID) {
				add(models.RemoveRef(models.RefVolunteerOrganizations, vol.ID, orgID), "volunteer %s lists organization %s without membership", vol.ID, orgID)
			}
		}
		for _, assignmentID := range vol.Assignments {
			if a, ok := live[assignmentID]; !ok || a.VolunteerID != vol.ID {
				add(models.RemoveRef(models.RefVolunteerAssignments, vol.ID, assignmentID), "volunteer %s lists foreign or missing assignment %s", vol.ID, assignmentID)
			}
		}
	}

	heldInEvent := map[string]map[string]bool{}
	heldOnShift := map[string]map[string]bool{}
	for _, a := range liveList {
		if heldInEvent[a.EventID] == nil {
			heldInEvent[a.EventID] = map[string]bool{}
		}
		heldInEvent[a.EventID][a.VolunteerID] = true
		if heldOnShift[a.ShiftID] == nil {
			heldOnShift[a.ShiftID] = map[string]bool{}
		}
		heldOnShift[a.ShiftID][a.VolunteerID] = true
	}

	for _, event := range snap.eventList {
		if org, ok := snap.orgs[event.OrganizationID]; ok && !models.Contains(org.Events, event.ID) {
			add(models.AddRef(models.RefOrganizationEvents, org.ID, event.ID), "organization %s does not list event %s", org.ID, event.ID)
		}
		for _, shiftID := range event.Shifts {
			if shift, ok := snap.shifts[shiftID]; !ok || shift.EventID != event.ID {
				add(models.RemoveRef(models.RefEventShifts, event.ID, shiftID), "event %s lists foreign or missing shift %s", event.ID, shiftID)
			}
		}
		for _, volID := range event.Volunteers {
			if !heldInEvent[event.ID][volID] {
				add(models.RemoveRef(models.RefEventVolunteers, event.ID, volID), "event %s lists volunteer %s without an assignment", event.ID, volID)
			}
		}
	}

	for _, shift := range snap.shiftList {
		if event, ok := snap.events[shift.EventID]; ok && !models.Contains(event.Shifts, shift.ID) {
			add(models.AddRef(models.RefEventShifts, event.ID, shift.ID), "event %s does not list shift %s", event.ID, shift.ID)
		}
		for _, volID := range shift.Volunteers {
			if !heldOnShift[shift.ID][volID] {
				add(models.RemoveRef(models.RefShiftVolunteers, shift.ID, volID), "shift %s lists volunteer %s without an assignment", shift.ID, volID)
			}
		}
		for _, assignmentID := range shift.Assignments {
			if a, ok := live[assignmentID]; !ok || a.ShiftID != shift.ID {
				add(models.RemoveRef(models.RefShiftAssignments, shift.ID, assignmentID), "shift %s lists foreign or missing assignment %s", shift.ID, assignmentID)
			}
		}
	}

	for _, a := range liveList {
		if shift, ok := snap.shifts[a.ShiftID]; ok {
			if !models.Contains(shift.Volunteers, a.VolunteerID) {
				add(models.AddRef(models.RefShiftVolunteers, shift.ID, a.VolunteerID), "shift %s is missing volunteer %s of assignment %s", shift.ID, a.VolunteerID, a.ID)
			}
			if !models.Contains(shift.Assignments, a.ID) {
				add(models.AddRef(models.RefShiftAssignments, shift.ID, a.ID), "shift %s does not list assignment %s", shift.ID, a.ID)
			}
		}
		if event, ok := snap.events[a.EventID]; ok && !models.Contains(event.Volunteers, a.VolunteerID) {
			add(models.AddRef(models.RefEventVolunteers, event.ID, a.VolunteerID), "event %s is missing volunteer %s", event.ID, a.VolunteerID)
		}
		if vol, ok := snap.volunteers[a.VolunteerID]; ok && !models.Contains(vol.Assignments, a.ID) {
			add(models.AddRef(models.RefVolunteerAssignments, vol.ID, a.ID), "volunteer %s does not list assignment %s", vol.ID, a.ID)
		}
	}

	return issues
}

// orphanedBy names the parent record an assignment refers to that no longer exists.
func orphanedBy(snap *snapshot, a models.ShiftAssignment) string {
	switch {
	case snap.shifts[a.ShiftID] == nil:
		return "shift " + a.ShiftID
	case snap.events[a.EventID] == nil:
		return "event " + a.EventID
	case snap.volunteers[a.VolunteerID] == nil:
		return "volunteer " + a.VolunteerID
	}
	return ""
}

func (s *ConsistencyService) invalidate(ctx context.Context, snap *snapshot) {
	keys := []string{organizationsCacheKey()}
	for _, org := range snap.orgList {
		keys = append(keys, eventsCacheKey(org.ID))
	}
	for _, event := range snap.eventList {
		keys = append(keys, shiftsCacheKey(event.ID))
	}
	s.cache.Invalidate(ctx, keys...)
}
