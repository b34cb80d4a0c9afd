package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/internal/dto"
	"github.com/noah-isme/volunteer-roster-api/internal/models"
	"github.com/noah-isme/volunteer-roster-api/pkg/config"
	appErrors "github.com/noah-isme/volunteer-roster-api/pkg/errors"
)

var nine = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	mem        *memStore
	stores     Stores
	cache      *memCache
	metrics    *MetricsService
	scheduler  *recordingScheduler
	maintainer *RelationshipMaintainer
	roster     *RosterService
	scheduling *SchedulingService
}

func newTestEnv(t *testing.T, policy string) *testEnv {
	t.Helper()
	mem := newMemStore()
	stores := mem.stores()
	metrics := NewMetricsService()
	cacheRepo := newMemCache()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, zap.NewNop(), true)
	scheduler := &recordingScheduler{}
	maintainer := NewRelationshipMaintainer(stores.References, stores.Repairs, scheduler, metrics, zap.NewNop())
	return &testEnv{
		mem:        mem,
		stores:     stores,
		cache:      cacheRepo,
		metrics:    metrics,
		scheduler:  scheduler,
		maintainer: maintainer,
		roster:     NewRosterService(stores, maintainer, cache, nil, zap.NewNop()),
		scheduling: NewSchedulingService(stores, maintainer, cache, metrics, SchedulingConfig{ShiftPolicy: policy}, nil, zap.NewNop()),
	}
}

func (e *testEnv) org(t *testing.T) *models.Organization {
	t.Helper()
	org, err := e.roster.CreateOrganization(context.Background(), dto.CreateOrganizationRequest{Name: "Harbor Food Bank"})
	require.NoError(t, err)
	return org
}

func (e *testEnv) volunteer(t *testing.T, first string) *models.Volunteer {
	t.Helper()
	vol, err := e.roster.CreateVolunteer(context.Background(), dto.CreateVolunteerRequest{
		FirstName: first, LastName: "Tester", Email: strings.ToLower(first) + "@example.org",
	})
	require.NoError(t, err)
	return vol
}

func (e *testEnv) event(t *testing.T, orgID string, hours int) *models.Event {
	t.Helper()
	event, err := e.scheduling.CreateEvent(context.Background(), dto.CreateEventRequest{
		OrganizationID: orgID, Name: "Pantry", StartTime: nine, EndTime: nine.Add(time.Duration(hours) * time.Hour),
	})
	require.NoError(t, err)
	return event
}

func (e *testEnv) shift(t *testing.T, eventID string, maxSpots *int) *models.Shift {
	t.Helper()
	shift, err := e.scheduling.CreateShift(context.Background(), dto.CreateShiftRequest{
		EventID: eventID, StartTime: nine, EndTime: nine.Add(time.Hour), MaxSpots: maxSpots,
	})
	require.NoError(t, err)
	return shift
}

func assertCode(t *testing.T, err error, target *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, target.Code, appErrors.FromError(err).Code)
}

func TestCreateEventRecordsSingleOrganizationEntry(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	event := env.event(t, org.ID, 3)

	assert.Equal(t, org.ID, event.OrganizationID)
	assert.True(t, event.StartTime.Before(event.EndTime))

	stored, err := env.roster.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{event.ID}, []string(stored.Events))
}

func TestCreateEventRejectsInvertedRange(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)

	_, err := env.scheduling.CreateEvent(ctx, dto.CreateEventRequest{
		OrganizationID: org.ID, Name: "Backwards", StartTime: nine, EndTime: nine,
	})
	assertCode(t, err, appErrors.ErrValidation)

	events, _, err := env.scheduling.ListEvents(ctx, org.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateEventUnknownOrganization(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	_, err := env.scheduling.CreateEvent(context.Background(), dto.CreateEventRequest{
		OrganizationID: "org-missing", Name: "Ghost", StartTime: nine, EndTime: nine.Add(time.Hour),
	})
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestHourlyPolicyGeneratesContiguousShifts(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyHourly)
	ctx := context.Background()
	org := env.org(t)
	event := env.event(t, org.ID, 3)

	shifts, _, err := env.scheduling.ListShifts(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, shifts, 3)
	for i, shift := range shifts {
		assert.Equal(t, nine.Add(time.Duration(i)*time.Hour), shift.StartTime)
		assert.Equal(t, nine.Add(time.Duration(i+1)*time.Hour), shift.EndTime)
	}
	shiftIDs := make([]string, 0, len(shifts))
	for _, shift := range shifts {
		require.NotEmpty(t, shift.ID)
		shiftIDs = append(shiftIDs, shift.ID)
	}
	assert.ElementsMatch(t, shiftIDs, []string(event.Shifts))

	again, err := env.scheduling.GenerateShifts(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestHourlySlotsClampLastSlot(t *testing.T) {
	slots := hourlySlots(nine, nine.Add(150*time.Minute))
	require.Len(t, slots, 3)
	assert.Equal(t, nine.Add(150*time.Minute), slots[2][1])
	assert.Empty(t, hourlySlots(nine, nine.Add(20*time.Minute)))
}

func TestCreateShiftOutsideEvent(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	org := env.org(t)
	event := env.event(t, org.ID, 2)

	_, err := env.scheduling.CreateShift(context.Background(), dto.CreateShiftRequest{
		EventID: event.ID, StartTime: nine.Add(time.Hour), EndTime: nine.Add(3 * time.Hour),
	})
	assertCode(t, err, appErrors.ErrValidation)

	_, err = env.scheduling.CreateShift(context.Background(), dto.CreateShiftRequest{
		EventID: event.ID, OrganizationID: "org-other", StartTime: nine, EndTime: nine.Add(time.Hour),
	})
	assertCode(t, err, appErrors.ErrValidation)
}

func TestSignUpIsIdempotent(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	vol := env.volunteer(t, "Ada")
	event := env.event(t, org.ID, 2)
	shift := env.shift(t, event.ID, nil)

	first, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: vol.ID, ShiftID: shift.ID})
	require.NoError(t, err)
	second, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: vol.ID, ShiftID: shift.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, event.ID, first.EventID)
	assert.Equal(t, org.ID, first.OrganizationID)

	storedShift, _ := env.scheduling.GetShift(ctx, shift.ID)
	assert.Equal(t, []string{vol.ID}, []string(storedShift.Volunteers))
	assert.Equal(t, []string{first.ID}, []string(storedShift.Assignments))
	storedVol, _ := env.roster.GetVolunteer(ctx, vol.ID)
	assert.Equal(t, []string{first.ID}, []string(storedVol.Assignments))
	storedEvent, _ := env.scheduling.GetEvent(ctx, event.ID)
	assert.Equal(t, []string{vol.ID}, []string(storedEvent.Volunteers))

	assert.Equal(t, uint64(1), env.metrics.Snapshot().SignUps)
}

func TestSignUpRespectsCapacity(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	ada, grace := env.volunteer(t, "Ada"), env.volunteer(t, "Grace")
	event := env.event(t, org.ID, 2)
	one := 1
	shift := env.shift(t, event.ID, &one)

	_, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: ada.ID, ShiftID: shift.ID})
	require.NoError(t, err)
	_, err = env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: grace.ID, ShiftID: shift.ID})
	assertCode(t, err, appErrors.ErrCapacityExceeded)

	stored, _ := env.scheduling.GetShift(ctx, shift.ID)
	assert.Equal(t, []string{ada.ID}, []string(stored.Volunteers))
	assignments, _ := env.roster.ListAssignments(ctx, dto.AssignmentQuery{VolunteerID: grace.ID})
	assert.Empty(t, assignments)
	assert.Equal(t, uint64(1), env.metrics.Snapshot().CapacityRejections)
}

func TestRepeatedSignUpKeepsCapacityGuard(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	ada, grace := env.volunteer(t, "Ada"), env.volunteer(t, "Grace")
	event := env.event(t, org.ID, 2)
	one := 1
	shift := env.shift(t, event.ID, &one)

	first, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: ada.ID, ShiftID: shift.ID})
	require.NoError(t, err)
	// the shift list loses Ada and Grace takes the freed spot
	require.NoError(t, env.stores.References.Apply(ctx, models.RemoveRef(models.RefShiftVolunteers, shift.ID, ada.ID)))
	_, err = env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: grace.ID, ShiftID: shift.ID})
	require.NoError(t, err)

	_, err = env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: ada.ID, ShiftID: shift.ID})
	assertCode(t, err, appErrors.ErrCapacityExceeded)

	stored, _ := env.scheduling.GetShift(ctx, shift.ID)
	assert.Equal(t, []string{grace.ID}, []string(stored.Volunteers))

	// with room again the existing assignment is returned and its spot restored
	two := 2
	_, err = env.scheduling.UpdateShift(ctx, shift.ID, dto.UpdateShiftRequest{StartTime: shift.StartTime, EndTime: shift.EndTime, MaxSpots: &two})
	require.NoError(t, err)
	again, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: ada.ID, ShiftID: shift.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	stored, _ = env.scheduling.GetShift(ctx, shift.ID)
	assert.ElementsMatch(t, []string{ada.ID, grace.ID}, []string(stored.Volunteers))
}

func TestSignUpThenCancelRestoresState(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	vol := env.volunteer(t, "Ada")
	event := env.event(t, org.ID, 2)
	shift := env.shift(t, event.ID, nil)

	assignment, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: vol.ID, ShiftID: shift.ID})
	require.NoError(t, err)
	require.NoError(t, env.scheduling.CancelAssignment(ctx, assignment.ID, nil))

	storedShift, _ := env.scheduling.GetShift(ctx, shift.ID)
	assert.Empty(t, storedShift.Volunteers)
	assert.Empty(t, storedShift.Assignments)
	storedVol, _ := env.roster.GetVolunteer(ctx, vol.ID)
	assert.Empty(t, storedVol.Assignments)
	storedEvent, _ := env.scheduling.GetEvent(ctx, event.ID)
	assert.Empty(t, storedEvent.Volunteers)
	_, err = env.roster.GetAssignment(ctx, assignment.ID)
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestCancelKeepsEventVolunteerWithOtherShift(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyHourly)
	ctx := context.Background()
	org := env.org(t)
	vol := env.volunteer(t, "Ada")
	event := env.event(t, org.ID, 2)
	shifts, _, _ := env.scheduling.ListShifts(ctx, event.ID)
	require.Len(t, shifts, 2)

	first, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: vol.ID, ShiftID: shifts[0].ID})
	require.NoError(t, err)
	_, err = env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: vol.ID, ShiftID: shifts[1].ID})
	require.NoError(t, err)
	require.NoError(t, env.scheduling.CancelAssignment(ctx, first.ID, nil))

	storedEvent, _ := env.scheduling.GetEvent(ctx, event.ID)
	assert.Equal(t, []string{vol.ID}, []string(storedEvent.Volunteers))
}

func TestCancelAssignmentChecksActor(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	ada, grace := env.volunteer(t, "Ada"), env.volunteer(t, "Grace")
	event := env.event(t, org.ID, 2)
	shift := env.shift(t, event.ID, nil)
	assignment, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: ada.ID, ShiftID: shift.ID})
	require.NoError(t, err)

	err = env.scheduling.CancelAssignment(ctx, assignment.ID, &models.JWTClaims{Role: models.RoleVolunteer, VolunteerID: grace.ID})
	assertCode(t, err, appErrors.ErrForbidden)
	err = env.scheduling.CancelAssignment(ctx, assignment.ID, &models.JWTClaims{Role: models.RoleAdmin, OrganizationID: "org-other"})
	assertCode(t, err, appErrors.ErrForbidden)
	assert.NoError(t, env.scheduling.CancelAssignment(ctx, assignment.ID, &models.JWTClaims{Role: models.RoleVolunteer, VolunteerID: ada.ID}))
}

func TestDeleteEventCascades(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyHourly)
	ctx := context.Background()
	org := env.org(t)
	ada, grace := env.volunteer(t, "Ada"), env.volunteer(t, "Grace")
	event := env.event(t, org.ID, 2)
	shifts, _, _ := env.scheduling.ListShifts(ctx, event.ID)
	require.Len(t, shifts, 2)
	for _, shift := range shifts {
		for _, vol := range []*models.Volunteer{ada, grace} {
			_, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: vol.ID, ShiftID: shift.ID})
			require.NoError(t, err)
		}
	}

	require.NoError(t, env.scheduling.DeleteEvent(ctx, event.ID))

	_, err := env.scheduling.GetEvent(ctx, event.ID)
	assertCode(t, err, appErrors.ErrNotFound)
	for _, shift := range shifts {
		_, err := env.scheduling.GetShift(ctx, shift.ID)
		assertCode(t, err, appErrors.ErrNotFound)
	}
	storedOrg, _ := env.roster.GetOrganization(ctx, org.ID)
	assert.Empty(t, storedOrg.Events)
	for _, vol := range []*models.Volunteer{ada, grace} {
		stored, _ := env.roster.GetVolunteer(ctx, vol.ID)
		assert.Empty(t, stored.Assignments)
	}
	remaining, _ := env.roster.ListAssignments(ctx, dto.AssignmentQuery{OrganizationID: org.ID})
	assert.Empty(t, remaining)

	report, err := NewConsistencyService(env.stores, nil, zap.NewNop()).Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
}

func TestDeleteShiftDetachesFromEvent(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	vol := env.volunteer(t, "Ada")
	event := env.event(t, org.ID, 2)
	shift := env.shift(t, event.ID, nil)
	_, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: vol.ID, ShiftID: shift.ID})
	require.NoError(t, err)

	require.NoError(t, env.scheduling.DeleteShift(ctx, shift.ID))

	storedEvent, _ := env.scheduling.GetEvent(ctx, event.ID)
	assert.Empty(t, storedEvent.Shifts)
	assert.Empty(t, storedEvent.Volunteers)
	storedVol, _ := env.roster.GetVolunteer(ctx, vol.ID)
	assert.Empty(t, storedVol.Assignments)
}

func TestUpdateShiftCapacityGuard(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	ada, grace := env.volunteer(t, "Ada"), env.volunteer(t, "Grace")
	event := env.event(t, org.ID, 2)
	shift := env.shift(t, event.ID, nil)
	for _, vol := range []*models.Volunteer{ada, grace} {
		_, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: vol.ID, ShiftID: shift.ID})
		require.NoError(t, err)
	}

	one, two := 1, 2
	_, err := env.scheduling.UpdateShift(ctx, shift.ID, dto.UpdateShiftRequest{StartTime: nine, EndTime: nine.Add(time.Hour), MaxSpots: &one})
	assertCode(t, err, appErrors.ErrPreconditionFailed)

	updated, err := env.scheduling.UpdateShift(ctx, shift.ID, dto.UpdateShiftRequest{StartTime: nine, EndTime: nine.Add(2 * time.Hour), MaxSpots: &two})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.OpenSpots())
}

func TestUpdateEventMustContainShifts(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	event := env.event(t, org.ID, 3)
	env.shift(t, event.ID, nil)

	_, err := env.scheduling.UpdateEvent(ctx, event.ID, dto.UpdateEventRequest{
		Name: "Later", StartTime: nine.Add(time.Hour), EndTime: nine.Add(3 * time.Hour),
	})
	assertCode(t, err, appErrors.ErrPreconditionFailed)

	updated, err := env.scheduling.UpdateEvent(ctx, event.ID, dto.UpdateEventRequest{
		Name: "Longer", StartTime: nine, EndTime: nine.Add(4 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "Longer", updated.Name)
}

func TestMembershipApproveAndReject(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	ada, grace := env.volunteer(t, "Ada"), env.volunteer(t, "Grace")

	require.NoError(t, env.roster.RequestJoin(ctx, org.ID, ada.ID))
	require.NoError(t, env.roster.RequestJoin(ctx, org.ID, grace.ID))
	require.NoError(t, env.roster.RequestJoin(ctx, org.ID, ada.ID))

	pending, err := env.roster.ListPendingVolunteers(ctx, org.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	approved, err := env.roster.ApproveVolunteer(ctx, org.ID, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{org.ID}, []string(approved.Organizations))

	rejected, err := env.roster.RejectVolunteer(ctx, org.ID, grace.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ada.ID}, []string(rejected.Volunteers))
	assert.Empty(t, rejected.PendingVolunteers)

	storedGrace, _ := env.roster.GetVolunteer(ctx, grace.ID)
	assert.Empty(t, storedGrace.Organizations)

	_, err = env.roster.ApproveVolunteer(ctx, org.ID, grace.ID)
	assertCode(t, err, appErrors.ErrNotFound)

	// approving a member again re-applies both sides
	again, err := env.roster.ApproveVolunteer(ctx, org.ID, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{org.ID}, []string(again.Organizations))

	removed, err := env.roster.RemoveVolunteer(ctx, org.ID, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, removed.Volunteers)
	storedAda, _ := env.roster.GetVolunteer(ctx, ada.ID)
	assert.Empty(t, storedAda.Organizations)
}

func TestApproveLeavesPendingListFirst(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	ada := env.volunteer(t, "Ada")
	require.NoError(t, env.roster.RequestJoin(ctx, org.ID, ada.ID))

	env.mem.failApply = func(op models.RefOp) error {
		if op.Field == models.RefOrganizationPendingVolunteers {
			return errors.New("write conflict")
		}
		return nil
	}
	_, err := env.roster.ApproveVolunteer(ctx, org.ID, ada.ID)
	assertCode(t, err, appErrors.ErrInternal)
	stored, _ := env.roster.GetOrganization(ctx, org.ID)
	assert.Empty(t, stored.Volunteers)
	assert.Equal(t, []string{ada.ID}, []string(stored.PendingVolunteers))
	assert.Empty(t, env.mem.repairTasks())

	env.mem.failApply = func(op models.RefOp) error {
		if op.Field == models.RefOrganizationVolunteers {
			return errors.New("write conflict")
		}
		return nil
	}
	_, err = env.roster.ApproveVolunteer(ctx, org.ID, ada.ID)
	assertCode(t, err, appErrors.ErrInconsistentState)
	stored, _ = env.roster.GetOrganization(ctx, org.ID)
	assert.Empty(t, stored.PendingVolunteers)
	assert.Empty(t, stored.Volunteers)

	tasks := env.mem.repairTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, models.RefOrganizationVolunteers, tasks[0].Field)

	env.mem.failApply = nil
	repairs := NewRepairService(env.stores.References, env.stores.Repairs, env.metrics, RepairConfig{}, zap.NewNop())
	require.NoError(t, repairs.Replay(ctx, tasks[0]))
	stored, _ = env.roster.GetOrganization(ctx, org.ID)
	assert.Equal(t, []string{ada.ID}, []string(stored.Volunteers))
	assert.Equal(t, models.MembershipMember, stored.MembershipOf(ada.ID))
}

func TestBackReferenceFailureQueuesRepair(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	vol := env.volunteer(t, "Ada")
	event := env.event(t, org.ID, 2)
	shift := env.shift(t, event.ID, nil)

	env.mem.failApply = func(op models.RefOp) error {
		if op.Field == models.RefVolunteerAssignments {
			return errors.New("connection reset")
		}
		return nil
	}
	_, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: vol.ID, ShiftID: shift.ID})
	assertCode(t, err, appErrors.ErrInconsistentState)

	// the other back-references still landed
	storedShift, _ := env.scheduling.GetShift(ctx, shift.ID)
	assert.Len(t, storedShift.Assignments, 1)

	tasks := env.mem.repairTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, models.RepairPending, tasks[0].Status)
	assert.Equal(t, models.RefVolunteerAssignments, tasks[0].Field)
	assert.Equal(t, "shiftSignUp", tasks[0].Operation)
	require.Len(t, env.scheduler.tasks, 1)
	assert.Equal(t, uint64(1), env.metrics.Snapshot().Inconsistencies)

	env.mem.failApply = nil
	repairs := NewRepairService(env.stores.References, env.stores.Repairs, env.metrics, RepairConfig{MaxRetries: 2}, zap.NewNop())
	require.NoError(t, repairs.Replay(ctx, tasks[0]))

	storedVol, _ := env.roster.GetVolunteer(ctx, vol.ID)
	assert.Equal(t, []string(storedShift.Assignments), []string(storedVol.Assignments))
	assert.Equal(t, models.RepairResolved, env.mem.repairTasks()[0].Status)
	assert.Equal(t, uint64(1), env.metrics.Snapshot().RepairsResolved)
}

func TestPrimaryFailureSkipsBackReferences(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	boom := errors.New("insert failed")
	applied := false
	env.mem.failApply = func(models.RefOp) error {
		applied = true
		return nil
	}

	err := env.maintainer.Commit(ctx, PairedUpdate{
		Operation: "createEvent",
		Primary:   func(context.Context) error { return boom },
		Refs:      []models.RefOp{models.AddRef(models.RefOrganizationEvents, "org-1", "event-1")},
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, applied)
	assert.Empty(t, env.mem.repairTasks())
}

func TestRemoveOnMissingOwnerIsSkipped(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	err := env.maintainer.Apply(context.Background(), "deleteShift", models.RemoveRef(models.RefEventShifts, "event-gone", "shift-1"))
	assert.NoError(t, err)
	assert.Empty(t, env.mem.repairTasks())
}

func TestRepairReplayGivesUpOnMissingOwner(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	task := models.NewRepairTask("shiftSignUp", models.AddRef(models.RefVolunteerAssignments, "vol-gone", "assign-1"), nil)
	require.NoError(t, env.stores.Repairs.Create(ctx, task))

	repairs := NewRepairService(env.stores.References, env.stores.Repairs, env.metrics, RepairConfig{MaxRetries: 3}, zap.NewNop())
	assert.Error(t, repairs.Replay(ctx, *task))

	stored := env.mem.repairTasks()[0]
	assert.Equal(t, models.RepairFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
}

func TestRepairServiceSweepResolvesPending(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	vol := env.volunteer(t, "Ada")
	task := models.NewRepairTask("approveVolunteer", models.AddRef(models.RefVolunteerOrganizations, vol.ID, org.ID), nil)
	require.NoError(t, env.stores.Repairs.Create(ctx, task))

	repairs := NewRepairService(env.stores.References, env.stores.Repairs, env.metrics, RepairConfig{
		Workers: 1, MaxRetries: 1, RetryDelay: time.Millisecond, SweepInterval: time.Hour,
	}, zap.NewNop())
	repairs.Start(ctx)
	defer repairs.Stop()

	require.Eventually(t, func() bool {
		return env.mem.repairTasks()[0].Status == models.RepairResolved
	}, time.Second, 10*time.Millisecond)
	stored, _ := env.roster.GetVolunteer(ctx, vol.ID)
	assert.Equal(t, []string{org.ID}, []string(stored.Organizations))
}

func TestConsistencyCheckAndRepair(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	vol := env.volunteer(t, "Ada")
	event := env.event(t, org.ID, 2)
	shift := env.shift(t, event.ID, nil)
	_, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: vol.ID, ShiftID: shift.ID})
	require.NoError(t, err)

	// drop one side and leave a dangling id on another
	require.NoError(t, env.stores.References.Apply(ctx, models.RemoveRef(models.RefShiftVolunteers, shift.ID, vol.ID)))
	require.NoError(t, env.stores.References.Apply(ctx, models.AddRef(models.RefOrganizationEvents, org.ID, "event-gone")))

	consistency := NewConsistencyService(env.stores, nil, zap.NewNop())
	report, err := consistency.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	fixes := make([]models.RefOp, 0, len(report.Issues))
	for _, issue := range report.Issues {
		fixes = append(fixes, issue.Fix)
	}
	assert.ElementsMatch(t, []models.RefOp{
		models.AddRef(models.RefShiftVolunteers, shift.ID, vol.ID),
		models.RemoveRef(models.RefOrganizationEvents, org.ID, "event-gone"),
	}, fixes)

	storedShift, _ := env.scheduling.GetShift(ctx, shift.ID)
	assert.Empty(t, storedShift.Volunteers)

	repaired, err := consistency.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repaired.Fixed)

	clean, err := consistency.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, clean.Issues)
}

func TestConsistencyRepairDeletesOrphanedAssignment(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	vol := env.volunteer(t, "Ada")
	event := env.event(t, org.ID, 2)
	shift := env.shift(t, event.ID, nil)
	require.NoError(t, env.scheduling.DeleteShift(ctx, shift.ID))

	// a sign-up that lost the race with the delete lands after the cascade ran
	late := &models.ShiftAssignment{VolunteerID: vol.ID, ShiftID: shift.ID, EventID: event.ID, OrganizationID: org.ID}
	created, err := env.stores.Assignments.Create(ctx, late)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, env.stores.References.Apply(ctx, models.AddRef(models.RefVolunteerAssignments, vol.ID, late.ID)))
	require.NoError(t, env.stores.References.Apply(ctx, models.AddRef(models.RefEventVolunteers, event.ID, vol.ID)))

	consistency := NewConsistencyService(env.stores, nil, zap.NewNop())
	report, err := consistency.Check(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, report.Issues)
	assert.Equal(t, late.ID, report.Issues[0].DeleteAssignment)
	assert.Equal(t, "DELETE assignment "+late.ID, report.Issues[0].Action())
	fixes := make([]models.RefOp, 0, len(report.Issues))
	for _, issue := range report.Issues[1:] {
		fixes = append(fixes, issue.Fix)
	}
	assert.ElementsMatch(t, []models.RefOp{
		models.RemoveRef(models.RefVolunteerAssignments, vol.ID, late.ID),
		models.RemoveRef(models.RefEventVolunteers, event.ID, vol.ID),
	}, fixes)

	repaired, err := consistency.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, repaired.Fixed)

	_, err = env.stores.Assignments.FindByID(ctx, late.ID)
	assert.ErrorIs(t, err, appErrors.ErrRecordNotFound)
	storedVol, _ := env.roster.GetVolunteer(ctx, vol.ID)
	assert.Empty(t, storedVol.Assignments)

	clean, err := consistency.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, clean.Issues)
}

func TestListOrganizationsUsesCache(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	env.org(t)

	_, hit, err := env.roster.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	orgs, hit, err := env.roster.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, orgs, 1)

	_, err = env.roster.CreateOrganization(ctx, dto.CreateOrganizationRequest{Name: "Second"})
	require.NoError(t, err)
	assert.False(t, env.cache.has(organizationsCacheKey()))

	snapshot := env.metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceDisabledIsMiss(t *testing.T) {
	var nilCache *CacheService
	var dest []models.Organization
	assert.False(t, nilCache.Get(context.Background(), organizationsCacheKey(), &dest))
	nilCache.Set(context.Background(), organizationsCacheKey(), dest)

	disabled := NewCacheService(newMemCache(), nil, 0, nil, false)
	assert.False(t, disabled.Enabled())
}

func TestListAssignmentsRequiresFilter(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	_, err := env.roster.ListAssignments(context.Background(), dto.AssignmentQuery{})
	assertCode(t, err, appErrors.ErrValidation)
}

func TestVerifyAssignmentAndExport(t *testing.T) {
	env := newTestEnv(t, config.ShiftPolicyExplicit)
	ctx := context.Background()
	org := env.org(t)
	ada, grace := env.volunteer(t, "Ada"), env.volunteer(t, "Grace")
	event := env.event(t, org.ID, 2)
	shift := env.shift(t, event.ID, nil)
	first, err := env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: ada.ID, ShiftID: shift.ID})
	require.NoError(t, err)
	_, err = env.scheduling.SignUp(ctx, dto.SignUpRequest{VolunteerID: grace.ID, ShiftID: shift.ID})
	require.NoError(t, err)

	verified, err := env.roster.VerifyAssignment(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	exporter := NewExportService(env.stores, nil, nil, nil, zap.NewNop())
	file, err := exporter.ExportAssignments(ctx, dto.ExportRequest{OrganizationID: org.ID, Format: dto.ExportFormatCSV, VerifiedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Ada Tester")
	assert.Contains(t, lines[1], "Pantry")
	assert.Equal(t, "Total,,,,,1,", lines[2])

	_, err = exporter.ExportAssignments(ctx, dto.ExportRequest{OrganizationID: org.ID, Format: "xlsx"})
	assertCode(t, err, appErrors.ErrValidation)
}

func TestTokenServiceRoundTrip(t *testing.T) {
	tokens := NewTokenService(TokenConfig{Secret: "secret", Expiration: time.Hour, Issuer: "roster"}, nil)

	signed, expires, err := tokens.Issue(TokenRequest{UserID: "user-1", Role: models.RoleVolunteer, VolunteerID: "vol-1"})
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	claims, err := tokens.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "vol-1", claims.VolunteerID)
	assert.Equal(t, models.RoleVolunteer, claims.Role)

	other := NewTokenService(TokenConfig{Secret: "other", Issuer: "roster"}, nil)
	_, err = other.ValidateToken(signed)
	assertCode(t, err, appErrors.ErrUnauthorized)

	_, _, err = tokens.Issue(TokenRequest{UserID: "user-2", Role: models.RoleVolunteer})
	assertCode(t, err, appErrors.ErrValidation)
}
