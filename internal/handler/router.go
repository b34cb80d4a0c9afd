package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/internal/middleware"
	"github.com/noah-isme/volunteer-roster-api/internal/models"
)

// Routes bundles the handlers mounted under the API prefix.
type Routes struct {
	Tokens      middleware.TokenValidator
	Roster      *RosterHandler
	Scheduling  *SchedulingHandler
	Export      *ExportHandler
	Consistency *ConsistencyHandler
	Metrics     *MetricsHandler
	Logger      *zap.Logger
}

// Register mounts every roster route on group. All routes require a bearer token.
func (r Routes) Register(group *gin.RouterGroup) {
	admin := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	superadmin := middleware.RequireRoles(models.RoleSuperAdmin)
	anyone := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleVolunteer)
	adminOrSelf := middleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), middleware.Self)
	audit := func(action string) gin.HandlerFunc { return middleware.Audit(r.Logger, action) }

	secured := group.Group("")
	secured.Use(middleware.JWT(r.Tokens), middleware.WithResponseMeta())

	orgs := secured.Group("/organizations")
	orgs.GET("", anyone, r.Roster.ListOrganizations)
	orgs.POST("", superadmin, audit("createOrganization"), r.Roster.CreateOrganization)

	org := orgs.Group("/:orgId")
	org.GET("", anyone, r.Roster.GetOrganization)
	org.GET("/events", anyone, r.Scheduling.ListEvents)
	org.POST("/join", anyone, audit("requestJoin"), r.Roster.RequestJoin)

	orgAdmin := org.Group("", admin, middleware.OrganizationScope())
	orgAdmin.GET("/volunteers", r.Roster.ListVolunteers)
	orgAdmin.GET("/pending", r.Roster.ListPendingVolunteers)
	orgAdmin.GET("/assignments", r.Roster.ListOrganizationAssignments)
	orgAdmin.GET("/export", r.Export.Export)
	orgAdmin.POST("/volunteers/:volunteerId/approve", audit("approveVolunteer"), r.Roster.ApproveVolunteer)
	orgAdmin.POST("/volunteers/:volunteerId/reject", audit("rejectVolunteer"), r.Roster.RejectVolunteer)
	orgAdmin.DELETE("/volunteers/:volunteerId", audit("removeVolunteer"), r.Roster.RemoveVolunteer)

	vols := secured.Group("/volunteers")
	vols.POST("", admin, audit("createVolunteer"), r.Roster.CreateVolunteer)
	vols.GET("/:volunteerId", adminOrSelf, r.Roster.GetVolunteer)
	vols.GET("/:volunteerId/assignments", adminOrSelf, r.Roster.ListVolunteerAssignments)

	events := secured.Group("/events")
	events.POST("", admin, audit("createEvent"), r.Scheduling.CreateEvent)
	events.GET("/:eventId", anyone, r.Scheduling.GetEvent)
	events.PUT("/:eventId", admin, audit("updateEvent"), r.Scheduling.UpdateEvent)
	events.DELETE("/:eventId", admin, audit("deleteEvent"), r.Scheduling.DeleteEvent)
	events.GET("/:eventId/shifts", anyone, r.Scheduling.ListShifts)
	events.POST("/:eventId/shifts/generate", admin, audit("generateShifts"), r.Scheduling.GenerateShifts)

	shifts := secured.Group("/shifts")
	shifts.POST("", admin, audit("createShift"), r.Scheduling.CreateShift)
	shifts.GET("/:shiftId", anyone, r.Scheduling.GetShift)
	shifts.PUT("/:shiftId", admin, audit("updateShift"), r.Scheduling.UpdateShift)
	shifts.DELETE("/:shiftId", admin, audit("deleteShift"), r.Scheduling.DeleteShift)
	shifts.GET("/:shiftId/volunteers", admin, r.Scheduling.ListShiftVolunteers)
	shifts.POST("/:shiftId/signups", anyone, audit("shiftSignUp"), r.Scheduling.SignUp)

	assignments := secured.Group("/assignments")
	assignments.GET("/:id", admin, r.Roster.GetAssignment)
	assignments.POST("/:id/verify", admin, audit("verifyAssignment"), r.Roster.VerifyAssignment)
	assignments.DELETE("/:id", anyone, audit("volShiftDelete"), r.Scheduling.CancelAssignment)

	ops := secured.Group("/admin", superadmin)
	ops.GET("/consistency", r.Consistency.Check)
	ops.POST("/consistency/repair", audit("repairConsistency"), r.Consistency.Repair)
	ops.GET("/metrics", r.Metrics.Snapshot)
}
