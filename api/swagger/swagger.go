package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Volunteer Roster API",
        "description": "Organizations, events, shifts and volunteer sign-ups with paired reference maintenance",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Organizations", "description": "Organizations and membership"},
        {"name": "Volunteers", "description": "Volunteer profiles and history"},
        {"name": "Events", "description": "Events and shift generation"},
        {"name": "Shifts", "description": "Shifts and sign-ups"},
        {"name": "Assignments", "description": "Volunteer assignments and verification"},
        {"name": "Admin", "description": "Consistency checks and metrics"}
    ],
    "paths": {
        "/organizations": {
            "get": {"tags": ["Organizations"], "summary": "List organizations", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}},
            "post": {
                "tags": ["Organizations"], "summary": "Create organization",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOrganizationRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "400": {"description": "Validation error"}}
            }
        },
        "/organizations/{orgId}": {
            "get": {"tags": ["Organizations"], "summary": "Get organization", "parameters": [{"name": "orgId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/organizations/{orgId}/events": {
            "get": {"tags": ["Events"], "summary": "List events of an organization", "parameters": [{"name": "orgId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/organizations/{orgId}/join": {
            "post": {
                "tags": ["Organizations"], "summary": "Request to join an organization",
                "parameters": [
                    {"name": "orgId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/MembershipRequest"}}
                ],
                "responses": {"202": {"description": "Pending approval"}}
            }
        },
        "/organizations/{orgId}/volunteers": {
            "get": {"tags": ["Organizations"], "summary": "List approved volunteers", "parameters": [{"name": "orgId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/organizations/{orgId}/pending": {
            "get": {"tags": ["Organizations"], "summary": "List pending volunteers", "parameters": [{"name": "orgId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/organizations/{orgId}/volunteers/{volunteerId}/approve": {
            "post": {"tags": ["Organizations"], "summary": "Approve a pending volunteer", "parameters": [{"name": "orgId", "in": "path", "required": true, "type": "string"}, {"name": "volunteerId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "412": {"description": "Volunteer is not pending"}}}
        },
        "/organizations/{orgId}/volunteers/{volunteerId}/reject": {
            "post": {"tags": ["Organizations"], "summary": "Reject a pending volunteer", "parameters": [{"name": "orgId", "in": "path", "required": true, "type": "string"}, {"name": "volunteerId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/organizations/{orgId}/volunteers/{volunteerId}": {
            "delete": {"tags": ["Organizations"], "summary": "Remove a volunteer from an organization", "parameters": [{"name": "orgId", "in": "path", "required": true, "type": "string"}, {"name": "volunteerId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/organizations/{orgId}/assignments": {
            "get": {"tags": ["Assignments"], "summary": "List assignments of an organization", "parameters": [{"name": "orgId", "in": "path", "required": true, "type": "string"}, {"name": "verified_only", "in": "query", "type": "boolean"}], "responses": {"200": {"description": "OK"}}}
        },
        "/organizations/{orgId}/export": {
            "get": {
                "tags": ["Assignments"], "summary": "Export volunteer hours",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "orgId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "verified_only", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/volunteers": {
            "post": {"tags": ["Volunteers"], "summary": "Create volunteer", "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateVolunteerRequest"}}], "responses": {"201": {"description": "Created"}}}
        },
        "/volunteers/{volunteerId}": {
            "get": {"tags": ["Volunteers"], "summary": "Get volunteer", "parameters": [{"name": "volunteerId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/volunteers/{volunteerId}/assignments": {
            "get": {"tags": ["Volunteers"], "summary": "List assignments of a volunteer", "parameters": [{"name": "volunteerId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/events": {
            "post": {"tags": ["Events"], "summary": "Create event", "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEventRequest"}}], "responses": {"201": {"description": "Created"}}}
        },
        "/events/{eventId}": {
            "get": {"tags": ["Events"], "summary": "Get event", "parameters": [{"name": "eventId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Events"], "summary": "Update event", "parameters": [{"name": "eventId", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEventRequest"}}], "responses": {"200": {"description": "OK"}, "412": {"description": "Shifts fall outside the new range"}}},
            "delete": {"tags": ["Events"], "summary": "Delete event with its shifts and assignments", "parameters": [{"name": "eventId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/events/{eventId}/shifts": {
            "get": {"tags": ["Shifts"], "summary": "List shifts of an event", "parameters": [{"name": "eventId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/events/{eventId}/shifts/generate": {
            "post": {"tags": ["Events"], "summary": "Generate shifts using the configured policy", "parameters": [{"name": "eventId", "in": "path", "required": true, "type": "string"}], "responses": {"201": {"description": "Created"}}}
        },
        "/shifts": {
            "post": {"tags": ["Shifts"], "summary": "Create shift", "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateShiftRequest"}}], "responses": {"201": {"description": "Created"}}}
        },
        "/shifts/{shiftId}": {
            "get": {"tags": ["Shifts"], "summary": "Get shift", "parameters": [{"name": "shiftId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Shifts"], "summary": "Update shift", "parameters": [{"name": "shiftId", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateShiftRequest"}}], "responses": {"200": {"description": "OK"}, "409": {"description": "Capacity below current sign-ups"}}},
            "delete": {"tags": ["Shifts"], "summary": "Delete shift", "parameters": [{"name": "shiftId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/shifts/{shiftId}/volunteers": {
            "get": {"tags": ["Shifts"], "summary": "List volunteers signed up for a shift", "parameters": [{"name": "shiftId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/shifts/{shiftId}/signups": {
            "post": {"tags": ["Shifts"], "summary": "Sign up for a shift", "parameters": [{"name": "shiftId", "in": "path", "required": true, "type": "string"}, {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/MembershipRequest"}}], "responses": {"201": {"description": "Created"}, "409": {"description": "Shift is full"}}}
        },
        "/assignments/{id}": {
            "get": {"tags": ["Assignments"], "summary": "Get assignment", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Assignments"], "summary": "Cancel assignment", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/assignments/{id}/verify": {
            "post": {"tags": ["Assignments"], "summary": "Mark assignment hours as verified", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/admin/consistency": {
            "get": {"tags": ["Admin"], "summary": "Report reference list drift", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ConsistencyReport"}}}}
        },
        "/admin/consistency/repair": {
            "post": {"tags": ["Admin"], "summary": "Fix reference list drift", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ConsistencyReport"}}}}
        },
        "/admin/metrics": {
            "get": {"tags": ["Admin"], "summary": "Metrics snapshot", "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "CreateOrganizationRequest": {
            "type": "object", "required": ["name"],
            "properties": {"name": {"type": "string"}}
        },
        "CreateVolunteerRequest": {
            "type": "object", "required": ["first_name", "last_name", "email"],
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"}
            }
        },
        "MembershipRequest": {
            "type": "object",
            "properties": {"volunteer_id": {"type": "string"}}
        },
        "CreateEventRequest": {
            "type": "object", "required": ["organization_id", "name", "start_time", "end_time"],
            "properties": {
                "organization_id": {"type": "string"},
                "name": {"type": "string"},
                "location": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"}
            }
        },
        "UpdateEventRequest": {
            "type": "object", "required": ["name", "start_time", "end_time"],
            "properties": {
                "name": {"type": "string"},
                "location": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"}
            }
        },
        "CreateShiftRequest": {
            "type": "object", "required": ["event_id", "start_time", "end_time"],
            "properties": {
                "event_id": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "max_spots": {"type": "integer"}
            }
        },
        "UpdateShiftRequest": {
            "type": "object", "required": ["start_time", "end_time"],
            "properties": {
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "max_spots": {"type": "integer"}
            }
        },
        "RefOp": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["ADD", "REMOVE"]},
                "field": {"type": "string"},
                "owner_id": {"type": "string"},
                "ref_id": {"type": "string"}
            }
        },
        "ConsistencyReport": {
            "type": "object",
            "properties": {
                "dry_run": {"type": "boolean"},
                "organizations": {"type": "integer"},
                "volunteers": {"type": "integer"},
                "events": {"type": "integer"},
                "shifts": {"type": "integer"},
                "assignments": {"type": "integer"},
                "fixed": {"type": "integer"},
                "generated_at": {"type": "string", "format": "date-time"},
                "issues": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "reason": {"type": "string"},
                            "fix": {"$ref": "#/definitions/RefOp"},
                            "delete_assignment": {"type": "string"},
                            "error": {"type": "string"}
                        }
                    }
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
