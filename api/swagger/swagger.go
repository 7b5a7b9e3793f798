package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Signal Flags API",
        "description": "Signal-flag trivia backend: device-bound sessions, quiz engine and ranked leaderboard",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Per-install session lifecycle"},
        {"name": "Users", "description": "User directory"},
        {"name": "Quiz", "description": "Quiz session engine"},
        {"name": "Leaderboard", "description": "Score submission and paged reads"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a new user",
                "parameters": [
                    {"name": "X-Install-ID", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegistrationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Restore a cached session",
                "parameters": [
                    {"name": "X-Install-ID", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "No cached session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Sign out",
                "parameters": [
                    {"name": "X-Install-ID", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh session state",
                "parameters": [
                    {"name": "X-Install-ID", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/session": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current session state",
                "parameters": [
                    {"name": "X-Install-ID", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/session/validate": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Validate the cached session",
                "parameters": [
                    {"name": "X-Install-ID", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get user",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Users"],
                "summary": "Update profile fields",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UserUpdateRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            },
            "delete": {
                "tags": ["Users"],
                "summary": "Deactivate user",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/quiz/flags": {
            "get": {
                "tags": ["Quiz"],
                "summary": "List the flag dataset",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/quiz/sessions": {
            "post": {
                "tags": ["Quiz"],
                "summary": "Start a quiz session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StartSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/quiz/sessions/{id}": {
            "get": {
                "tags": ["Quiz"],
                "summary": "Fetch an in-flight session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/quiz/sessions/{id}/answers": {
            "post": {
                "tags": ["Quiz"],
                "summary": "Answer the current question",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AnswerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/quiz/sessions/{id}/complete": {
            "post": {
                "tags": ["Quiz"],
                "summary": "Complete a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "Read the leaderboard",
                "parameters": [
                    {"name": "cursor", "in": "query", "type": "string"},
                    {"name": "batch_size", "in": "query", "type": "integer"},
                    {"name": "starting_rank", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard/scores": {
            "post": {
                "tags": ["Leaderboard"],
                "summary": "Submit a competitive score",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard/practice": {
            "post": {
                "tags": ["Leaderboard"],
                "summary": "Record a practice result",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard/history": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "Read the caller's practice history",
                "parameters": [
                    {"name": "sort_by", "in": "query", "type": "string"},
                    {"name": "cursor", "in": "query", "type": "string"},
                    {"name": "batch_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboard/export": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "Export the standings",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        }
    },
    "definitions": {
        "User": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "rank": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "device_id": {"type": "string"},
                "created_date": {"type": "string"},
                "last_login": {"type": "string"},
                "is_admin": {"type": "boolean"}
            }
        },
        "RegistrationRequest": {
            "type": "object",
            "properties": {
                "rank": {"type": "string", "enum": ["OC", "MID", "SLT", "LT", "LCDR", "CDR", "CAPT"]},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"}
            },
            "required": ["rank", "first_name", "last_name"]
        },
        "UserUpdateRequest": {
            "type": "object",
            "properties": {
                "rank": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"}
            }
        },
        "StartSessionRequest": {
            "type": "object",
            "properties": {
                "mode": {"type": "string", "enum": ["practice", "competitive"]},
                "category": {"type": "string"},
                "question_count": {"type": "integer"}
            },
            "required": ["mode"]
        },
        "AnswerRequest": {
            "type": "object",
            "properties": {
                "selected_option_id": {"type": "string"},
                "time_spent_seconds": {"type": "number"}
            },
            "required": ["selected_option_id"]
        },
        "SubmitRequest": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "score": {"type": "integer"},
                "total_questions": {"type": "integer"},
                "accuracy": {"type": "number"},
                "total_time_seconds": {"type": "number"},
                "final_rating": {"type": "number"},
                "category": {"type": "string"}
            },
            "required": ["session_id", "total_questions"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "PageInfo": {
            "type": "object",
            "properties": {
                "next_cursor": {"type": "string"},
                "has_more": {"type": "boolean"},
                "batch_size": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "page": {"$ref": "#/definitions/PageInfo"},
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
