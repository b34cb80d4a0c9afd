package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
)

// memStore is an in-memory driver used by the service tests. Reads return copies so
// callers never alias stored lists.
type memStore struct {
	mu      sync.Mutex
	seq     int
	clock   time.Time
	orgs    map[string]*models.Organization
	vols    map[string]*models.Volunteer
	events  map[string]*models.Event
	shifts  map[string]*models.Shift
	assigns map[string]*models.ShiftAssignment
	repairs map[string]*models.RepairTask

	// failApply, when set, is consulted before every reference update.
	failApply func(op models.RefOp) error
}

func newMemStore() *memStore {
	return &memStore{
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		orgs:    map[string]*models.Organization{},
		vols:    map[string]*models.Volunteer{},
		events:  map[string]*models.Event{},
		shifts:  map[string]*models.Shift{},
		assigns: map[string]*models.ShiftAssignment{},
		repairs: map[string]*models.RepairTask{},
	}
}

func (m *memStore) stores() Stores {
	return Stores{
		Organizations: memOrgs{m},
		Volunteers:    memVolunteers{m},
		Events:        memEvents{m},
		Shifts:        memShifts{m},
		Assignments:   memAssignments{m},
		Repairs:       memRepairs{m},
		References:    memRefs{m},
	}
}

func (m *memStore) nextID(prefix string) (string, time.Time) {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq), m.clock.Add(time.Duration(m.seq) * time.Second)
}

// stamp keeps a caller-assigned id like the real stores and returns the creation time.
func (m *memStore) stamp(id *string, prefix string) time.Time {
	generated, at := m.nextID(prefix)
	if *id == "" {
		*id = generated
	}
	return at
}

func missing(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, appErrors.ErrRecordNotFound)
}

func ids(list pq.StringArray) pq.StringArray {
	return append(pq.StringArray{}, list...)
}

func without(list pq.StringArray, id string) pq.StringArray {
	out := pq.StringArray{}
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type memOrgs struct{ m *memStore }

func (s memOrgs) Create(_ context.Context, org *models.Organization) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	org.CreatedAt = s.m.stamp(&org.ID, "org")
	org.UpdatedAt = org.CreatedAt
	org.Volunteers, org.PendingVolunteers, org.Events = models.NonNil(org.Volunteers), models.NonNil(org.PendingVolunteers), models.NonNil(org.Events)
	stored := *org
	s.m.orgs[org.ID] = &stored
	return nil
}

func (s memOrgs) FindByID(_ context.Context, id string) (*models.Organization, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	org, ok := s.m.orgs[id]
	if !ok {
		return nil, missing("organization", id)
	}
	out := *org
	out.Volunteers, out.PendingVolunteers, out.Events = ids(org.Volunteers), ids(org.PendingVolunteers), ids(org.Events)
	return &out, nil
}

func (s memOrgs) List(ctx context.Context) ([]models.Organization, error) {
	s.m.mu.Lock()
	keys := make([]string, 0, len(s.m.orgs))
	for id := range s.m.orgs {
		keys = append(keys, id)
	}
	s.m.mu.Unlock()
	out := []models.Organization{}
	for _, id := range keys {
		org, _ := s.FindByID(ctx, id)
		out = append(out, *org)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memVolunteers struct{ m *memStore }

func (s memVolunteers) Create(_ context.Context, vol *models.Volunteer) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	vol.CreatedAt = s.m.stamp(&vol.ID, "vol")
	vol.UpdatedAt = vol.CreatedAt
	vol.Organizations, vol.Assignments = models.NonNil(vol.Organizations), models.NonNil(vol.Assignments)
	stored := *vol
	s.m.vols[vol.ID] = &stored
	return nil
}

func (s memVolunteers) FindByID(_ context.Context, id string) (*models.Volunteer, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	vol, ok := s.m.vols[id]
	if !ok {
		return nil, missing("volunteer", id)
	}
	out := *vol
	out.Organizations, out.Assignments = ids(vol.Organizations), ids(vol.Assignments)
	return &out, nil
}

func (s memVolunteers) FindByIDs(ctx context.Context, wanted []string) ([]models.Volunteer, error) {
	out := []models.Volunteer{}
	for _, id := range wanted {
		if vol, err := s.FindByID(ctx, id); err == nil {
			out = append(out, *vol)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s memVolunteers) List(ctx context.Context) ([]models.Volunteer, error) {
	s.m.mu.Lock()
	keys := make([]string, 0, len(s.m.vols))
	for id := range s.m.vols {
		keys = append(keys, id)
	}
	s.m.mu.Unlock()
	return s.FindByIDs(ctx, keys)
}

type memEvents struct{ m *memStore }

func (s memEvents) Create(_ context.Context, event *models.Event) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	event.CreatedAt = s.m.stamp(&event.ID, "event")
	event.UpdatedAt = event.CreatedAt
	event.Shifts, event.Volunteers = models.NonNil(event.Shifts), models.NonNil(event.Volunteers)
	stored := *event
	s.m.events[event.ID] = &stored
	return nil
}

func (s memEvents) FindByID(_ context.Context, id string) (*models.Event, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	event, ok := s.m.events[id]
	if !ok {
		return nil, missing("event", id)
	}
	out := *event
	out.Shifts, out.Volunteers = ids(event.Shifts), ids(event.Volunteers)
	return &out, nil
}

func (s memEvents) Update(_ context.Context, event *models.Event) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	stored, ok := s.m.events[event.ID]
	if !ok {
		return missing("event", event.ID)
	}
	stored.Name, stored.Location = event.Name, event.Location
	stored.StartTime, stored.EndTime = event.StartTime, event.EndTime
	return nil
}

func (s memEvents) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.events[id]; !ok {
		return missing("event", id)
	}
	delete(s.m.events, id)
	return nil
}

func (s memEvents) ListByOrganization(ctx context.Context, organizationID string) ([]models.Event, error) {
	all, _ := s.List(ctx)
	out := []models.Event{}
	for _, event := range all {
		if event.OrganizationID == organizationID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (s memEvents) List(ctx context.Context) ([]models.Event, error) {
	s.m.mu.Lock()
	keys := make([]string, 0, len(s.m.events))
	for id := range s.m.events {
		keys = append(keys, id)
	}
	s.m.mu.Unlock()
	out := []models.Event{}
	for _, id := range keys {
		event, _ := s.FindByID(ctx, id)
		out = append(out, *event)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memShifts struct{ m *memStore }

func (s memShifts) Create(_ context.Context, shift *models.Shift) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	shift.CreatedAt = s.m.stamp(&shift.ID, "shift")
	shift.UpdatedAt = shift.CreatedAt
	shift.Volunteers, shift.Assignments = models.NonNil(shift.Volunteers), models.NonNil(shift.Assignments)
	stored := *shift
	s.m.shifts[shift.ID] = &stored
	return nil
}

func (s memShifts) FindByID(_ context.Context, id string) (*models.Shift, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	shift, ok := s.m.shifts[id]
	if !ok {
		return nil, missing("shift", id)
	}
	out := *shift
	out.Volunteers, out.Assignments = ids(shift.Volunteers), ids(shift.Assignments)
	return &out, nil
}

func (s memShifts) Update(_ context.Context, shift *models.Shift) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	stored, ok := s.m.shifts[shift.ID]
	if !ok || (shift.MaxSpots != nil && len(stored.Volunteers) > *shift.MaxSpots) {
		return missing("shift", shift.ID)
	}
	stored.StartTime, stored.EndTime, stored.MaxSpots = shift.StartTime, shift.EndTime, shift.MaxSpots
	return nil
}

func (s memShifts) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.shifts[id]; !ok {
		return missing("shift", id)
	}
	delete(s.m.shifts, id)
	return nil
}

func (s memShifts) ListByEvent(ctx context.Context, eventID string) ([]models.Shift, error) {
	all, _ := s.List(ctx)
	out := []models.Shift{}
	for _, shift := range all {
		if shift.EventID == eventID {
			out = append(out, shift)
		}
	}
	return out, nil
}

func (s memShifts) List(ctx context.Context) ([]models.Shift, error) {
	s.m.mu.Lock()
	keys := make([]string, 0, len(s.m.shifts))
	for id := range s.m.shifts {
		keys = append(keys, id)
	}
	s.m.mu.Unlock()
	out := []models.Shift{}
	for _, id := range keys {
		shift, _ := s.FindByID(ctx, id)
		out = append(out, *shift)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s memShifts) ClaimSpot(_ context.Context, shiftID, volunteerID string) (models.SpotClaim, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	shift, ok := s.m.shifts[shiftID]
	switch {
	case !ok:
		return models.SpotFull, missing("shift", shiftID)
	case models.Contains(shift.Volunteers, volunteerID):
		return models.SpotAlreadyHeld, nil
	case shift.OpenSpots() == 0:
		return models.SpotFull, nil
	}
	shift.Volunteers = append(shift.Volunteers, volunteerID)
	return models.SpotClaimed, nil
}

type memAssignments struct{ m *memStore }

func (s memAssignments) Create(_ context.Context, assignment *models.ShiftAssignment) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.assigns {
		if existing.VolunteerID == assignment.VolunteerID && existing.ShiftID == assignment.ShiftID {
			return false, nil
		}
	}
	assignment.CreatedAt = s.m.stamp(&assignment.ID, "assign")
	assignment.UpdatedAt = assignment.CreatedAt
	stored := *assignment
	s.m.assigns[assignment.ID] = &stored
	return true, nil
}

func (s memAssignments) FindByID(_ context.Context, id string) (*models.ShiftAssignment, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	assignment, ok := s.m.assigns[id]
	if !ok {
		return nil, missing("assignment", id)
	}
	out := *assignment
	return &out, nil
}

func (s memAssignments) FindByVolunteerAndShift(ctx context.Context, volunteerID, shiftID string) (*models.ShiftAssignment, error) {
	found, _ := s.List(ctx, models.AssignmentFilter{VolunteerID: volunteerID, ShiftID: shiftID})
	if len(found) == 0 {
		return nil, missing("assignment", volunteerID+"/"+shiftID)
	}
	return &found[0], nil
}

func (s memAssignments) List(_ context.Context, filter models.AssignmentFilter) ([]models.ShiftAssignment, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.ShiftAssignment{}
	for _, a := range s.m.assigns {
		switch {
		case filter.OrganizationID != "" && a.OrganizationID != filter.OrganizationID,
			filter.VolunteerID != "" && a.VolunteerID != filter.VolunteerID,
			filter.ShiftID != "" && a.ShiftID != filter.ShiftID,
			filter.EventID != "" && a.EventID != filter.EventID,
			filter.VerifiedOnly && !a.Verified:
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s memAssignments) CountByVolunteerAndEvent(ctx context.Context, volunteerID, eventID string) (int, error) {
	found, _ := s.List(ctx, models.AssignmentFilter{VolunteerID: volunteerID, EventID: eventID})
	return len(found), nil
}

func (s memAssignments) SetVerified(_ context.Context, id string, verified bool) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	assignment, ok := s.m.assigns[id]
	if !ok {
		return missing("assignment", id)
	}
	assignment.Verified = verified
	return nil
}

func (s memAssignments) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.assigns[id]; !ok {
		return missing("assignment", id)
	}
	delete(s.m.assigns, id)
	return nil
}

type memRepairs struct{ m *memStore }

func (s memRepairs) Create(_ context.Context, task *models.RepairTask) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	task.CreatedAt = s.m.stamp(&task.ID, "repair")
	task.UpdatedAt = task.CreatedAt
	stored := *task
	s.m.repairs[task.ID] = &stored
	return nil
}

func (s memRepairs) ListPending(_ context.Context, limit int) ([]models.RepairTask, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.RepairTask{}
	for _, task := range s.m.repairs {
		if task.Status == models.RepairPending {
			out = append(out, *task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memRepairs) MarkResolved(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	task, ok := s.m.repairs[id]
	if !ok {
		return missing("repair task", id)
	}
	task.Status = models.RepairResolved
	task.Attempts++
	return nil
}

func (s memRepairs) RecordFailure(_ context.Context, id string, cause string, maxAttempts int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	task, ok := s.m.repairs[id]
	if !ok {
		return missing("repair task", id)
	}
	task.Attempts++
	task.LastError = cause
	if task.Attempts >= maxAttempts {
		task.Status = models.RepairFailed
	}
	return nil
}

func (m *memStore) repairTasks() []models.RepairTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.RepairTask{}
	for _, task := range m.repairs {
		out = append(out, *task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type memRefs struct{ m *memStore }

func (s memRefs) Apply(_ context.Context, op models.RefOp) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.failApply != nil {
		if err := s.m.failApply(op); err != nil {
			return err
		}
	}
	list, err := s.m.refList(op)
	if err != nil {
		return err
	}
	switch op.Action {
	case models.RefAdd:
		if !models.Contains(*list, op.RefID) {
			*list = append(*list, op.RefID)
		}
	case models.RefRemove:
		*list = without(*list, op.RefID)
	default:
		return fmt.Errorf("unknown action %q", op.Action)
	}
	return nil
}

func (m *memStore) refList(op models.RefOp) (*pq.StringArray, error) {
	switch op.Field {
	case models.RefOrganizationVolunteers, models.RefOrganizationPendingVolunteers, models.RefOrganizationEvents:
		org, ok := m.orgs[op.OwnerID]
		if !ok {
			return nil, missing("organization", op.OwnerID)
		}
		switch op.Field {
		case models.RefOrganizationVolunteers:
			return &org.Volunteers, nil
		case models.RefOrganizationPendingVolunteers:
			return &org.PendingVolunteers, nil
		}
		return &org.Events, nil
	case models.RefVolunteerOrganizations, models.RefVolunteerAssignments:
		vol, ok := m.vols[op.OwnerID]
		if !ok {
			return nil, missing("volunteer", op.OwnerID)
		}
		if op.Field == models.RefVolunteerOrganizations {
			return &vol.Organizations, nil
		}
		return &vol.Assignments, nil
	case models.RefEventShifts, models.RefEventVolunteers:
		event, ok := m.events[op.OwnerID]
		if !ok {
			return nil, missing("event", op.OwnerID)
		}
		if op.Field == models.RefEventShifts {
			return &event.Shifts, nil
		}
		return &event.Volunteers, nil
	case models.RefShiftVolunteers, models.RefShiftAssignments:
		shift, ok := m.shifts[op.OwnerID]
		if !ok {
			return nil, missing("shift", op.OwnerID)
		}
		if op.Field == models.RefShiftVolunteers {
			return &shift.Volunteers, nil
		}
		return &shift.Assignments, nil
	}
	return nil, fmt.Errorf("unknown reference field %q", op.Field)
}

// memCache is a CacheRepository backed by a map of JSON payloads.
type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemCache() *memCache { return &memCache{items: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// recordingScheduler captures scheduled repair tasks.
type recordingScheduler struct {
	mu    sync.Mutex
	tasks []models.RepairTask
}

func (r *recordingScheduler) Schedule(task models.RepairTask) {
	r.mu.Lock()
	r.tasks = append(r.tasks, task)
	r.mu.Unlock()
}
