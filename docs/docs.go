// Package docs holds the OpenAPI description of the admin HTTP API served at
// /swagger when SWAGGER_ENABLED is set. Regenerate with `swag init -g
// cmd/msglogger/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Returns ok when the process is up and the message store answers a ping.",
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Liveness and store check",
                "operationId": "health",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handlers.HealthResponse"}
                    },
                    "503": {
                        "description": "Store unavailable",
                        "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}
                    }
                }
            }
        },
        "/users/{identity}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the messages sent by a user (numeric id or @username) in allowed chats, newest first.\nSupports weak ETags; send If-None-Match to receive 304 when nothing new was logged.",
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Export a user's logged messages",
                "operationId": "exportMessages",
                "parameters": [
                    {"type": "string", "description": "Numeric user id or username (leading @ optional)", "name": "identity", "in": "path", "required": true},
                    {"type": "integer", "description": "Restrict to one chat", "name": "chat_id", "in": "query"},
                    {"type": "string", "description": "Inclusive lower bound (YYYY-MM-DD or RFC3339)", "name": "start", "in": "query"},
                    {"type": "string", "description": "Inclusive upper bound (YYYY-MM-DD or RFC3339)", "name": "end", "in": "query"},
                    {"type": "string", "description": "Max rows; 0, none or all for unbounded", "name": "limit", "in": "query"},
                    {"type": "boolean", "description": "Return the bare JSON array as an attachment", "name": "download", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handlers.ExportMessagesResponse"}
                    },
                    "304": {"description": "Not Modified"},
                    "400": {
                        "description": "Invalid filter",
                        "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}
                    },
                    "401": {
                        "description": "Missing or unknown token",
                        "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}
                    },
                    "429": {
                        "description": "Rate limited",
                        "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}
                    },
                    "500": {
                        "description": "Export failed",
                        "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "domain.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "user_id": {"type": "integer"},
                "username": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "chat_id": {"type": "integer"},
                "chat_title": {"type": "string"},
                "message_text": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "bad_request"},
                "message": {"type": "string", "example": "invalid identity"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.ExportMessagesResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer", "example": 2},
                "messages": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/domain.Message"}
                }
            }
        },
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Telegram Message Logger Admin API",
	Description:      "Read-only export of messages logged from allow-listed Telegram groups.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
