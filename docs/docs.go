// Package docs registers the OpenAPI description served under /swagger.
// The template is maintained by hand; update it together with the handler
// annotations when a route changes.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Login", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new user", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}},
        "/health": {"get": {"tags": ["health"], "summary": "Liveness check", "responses": {"200": {"description": "OK"}}}},
        "/health/ready": {"get": {"tags": ["health"], "summary": "Readiness check", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/v1/navigation/fixes": {"post": {"security": [{"BearerAuth": []}], "tags": ["navigation"], "summary": "Submit a position fix", "responses": {"202": {"description": "Accepted"}, "409": {"description": "Conflict"}}}},
        "/v1/navigation/position-errors": {"post": {"security": [{"BearerAuth": []}], "tags": ["navigation"], "summary": "Report a position stream error", "responses": {"204": {"description": "No Content"}}}},
        "/v1/navigation/route": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["navigation"], "summary": "Replace the active route geometry", "responses": {"204": {"description": "No Content"}, "422": {"description": "Unprocessable Entity"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["navigation"], "summary": "Clear the active route", "responses": {"204": {"description": "No Content"}}}
        },
        "/v1/navigation/watch": {"post": {"security": [{"BearerAuth": []}], "tags": ["navigation"], "summary": "Resume fix processing after permission was granted again", "responses": {"204": {"description": "No Content"}}}},
        "/v1/navigation/directions": {"post": {"security": [{"BearerAuth": []}], "tags": ["navigation"], "summary": "Fetch a route and make it the active one", "responses": {"200": {"description": "OK"}, "422": {"description": "Unprocessable Entity"}, "502": {"description": "Bad Gateway"}}}},
        "/v1/navigation/recalculate": {"post": {"security": [{"BearerAuth": []}], "tags": ["navigation"], "summary": "Request a route from the current position to the destination", "responses": {"202": {"description": "Accepted"}, "409": {"description": "Conflict"}}}},
        "/v1/navigation/session": {"get": {"security": [{"BearerAuth": []}], "tags": ["navigation"], "summary": "Current navigation session state", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/v1/locations": {"get": {"security": [{"BearerAuth": []}], "tags": ["locations"], "summary": "Search campus locations", "parameters": [{"type": "string", "name": "q", "in": "query", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "422": {"description": "Unprocessable Entity"}}}},
        "/v1/notifications": {"get": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "List notifications", "parameters": [{"type": "boolean", "name": "unread", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/v1/notifications/unread_count": {"get": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Count unread notifications", "responses": {"200": {"description": "OK"}}}},
        "/v1/notifications/{id}/read": {"post": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Mark a notification as read", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}},
        "/v1/locations/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["locations"], "summary": "Get a campus location", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["locations"], "summary": "Create or replace a campus location", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "422": {"description": "Unprocessable Entity"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "campusnav API",
	Description:      "Live campus navigation: route tracking, off-route alerts and recalculation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
