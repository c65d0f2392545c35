package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CampusKit Timetable API",
        "description": "Automated university timetable generation and conflict resolution",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh, session management"},
        {"name": "Batches", "description": "Student batch and subject management"},
        {"name": "Staff", "description": "Staff assignments, availability, schedules"},
        {"name": "Rooms", "description": "Room inventory"},
        {"name": "Timetable", "description": "Generation, conflicts, views, exports"},
        {"name": "Analytics", "description": "Admin dashboard and audit trail"},
        {"name": "Notifications", "description": "Admin notifications"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/batches": {
            "get": {
                "tags": ["Batches"],
                "summary": "List batches",
                "parameters": [
                    {"name": "academicYear", "in": "query", "type": "integer"},
                    {"name": "semester", "in": "query", "type": "integer"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Batches"],
                "summary": "Create batch with subjects",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate batch name"}
                }
            }
        },
        "/batches/{id}": {
            "get": {
                "tags": ["Batches"],
                "summary": "Get batch detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            },
            "delete": {
                "tags": ["Batches"],
                "summary": "Delete inactive batch",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Batch still active"}
                }
            }
        },
        "/batches/{id}/active": {
            "patch": {
                "tags": ["Batches"],
                "summary": "Activate or deactivate batch",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActiveFlag"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Batches"],
                "summary": "List subjects",
                "parameters": [
                    {"name": "batchId", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/staff/assign": {
            "post": {
                "tags": ["Staff"],
                "summary": "Replace staff assignments for a batch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignStaffRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/staff/availability": {
            "post": {
                "tags": ["Staff"],
                "summary": "Replace weekly availability for a staff member",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/staff/{id}/schedule": {
            "get": {
                "tags": ["Staff"],
                "summary": "Consolidated staff schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms",
                "parameters": [
                    {"name": "roomType", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Rooms"],
                "summary": "Create room",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRoomRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/{id}/active": {
            "patch": {
                "tags": ["Rooms"],
                "summary": "Activate or deactivate room",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActiveFlag"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate timetable for a batch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Batch not found"}
                }
            }
        },
        "/timetable/generate-all": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate timetables for all active batches",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List timetable slots",
                "parameters": [
                    {"name": "batchId", "in": "query", "type": "string"},
                    {"name": "staffId", "in": "query", "type": "string"},
                    {"name": "roomId", "in": "query", "type": "string"},
                    {"name": "day", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/batch/{id}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Weekly timetable for a batch",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/staff/{id}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Weekly teaching schedule for a staff member",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/conflicts/{batchId}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Detect conflicts for a batch",
                "parameters": [
                    {"name": "batchId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/conflicts/resolve": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Auto-resolve conflicts for a batch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveConflictsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/export/{batchId}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Export batch timetable",
                "parameters": [
                    {"name": "batchId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "ics"]}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "412": {"description": "Batch has no timetable"}
                }
            }
        },
        "/analytics/dashboard": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Admin dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analytics/audit": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Recent audit log entries",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List admin notifications",
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "patch": {
                "tags": ["Notifications"],
                "summary": "Mark notification as read",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "ActiveFlag": {
            "type": "object",
            "properties": {
                "active": {"type": "boolean"}
            },
            "required": ["active"]
        },
        "CreateBatchRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "academicYear": {"type": "integer"},
                "semester": {"type": "integer"},
                "startDate": {"type": "string"},
                "endDate": {"type": "string"},
                "subjects": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/CreateSubjectRequest"}
                }
            },
            "required": ["name", "academicYear", "semester", "startDate", "endDate"]
        },
        "CreateSubjectRequest": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "name": {"type": "string"},
                "credits": {"type": "integer"},
                "lectureDuration": {"type": "integer"},
                "tutorialDuration": {"type": "integer"},
                "labDuration": {"type": "integer"}
            },
            "required": ["code", "name"]
        },
        "AssignStaffRequest": {
            "type": "object",
            "properties": {
                "batchId": {"type": "string"},
                "assignments": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "staffId": {"type": "string"},
                            "subjectId": {"type": "string"},
                            "assignmentType": {"type": "string"}
                        }
                    }
                }
            },
            "required": ["batchId", "assignments"]
        },
        "SetAvailabilityRequest": {
            "type": "object",
            "properties": {
                "staffId": {"type": "string"},
                "availability": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "dayOfWeek": {"type": "string"},
                            "startTime": {"type": "string"},
                            "endTime": {"type": "string"}
                        }
                    }
                }
            },
            "required": ["staffId", "availability"]
        },
        "CreateRoomRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "roomType": {"type": "string"},
                "capacity": {"type": "integer"},
                "building": {"type": "string"}
            },
            "required": ["name", "capacity"]
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "batchId": {"type": "string"},
                "forceRegenerate": {"type": "boolean"}
            },
            "required": ["batchId"]
        },
        "ResolveConflictsRequest": {
            "type": "object",
            "properties": {
                "batchId": {"type": "string"},
                "autoResolve": {"type": "boolean"}
            },
            "required": ["batchId"]
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
