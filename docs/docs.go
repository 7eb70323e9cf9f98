// Package docs is generated by swaggo/swag from the handler annotations.
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
        "/users/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "credentials", "required": true, "schema": {"$ref": "#/definitions/types.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LoginResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/types.Response"}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/types.Response"}},
                    "429": {"description": "Too many failed attempts", "schema": {"$ref": "#/definitions/types.Response"}}
                }
            }
        },
        "/users/logout": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Logout", "responses": {"200": {"description": "OK"}}}
        },
        "/users/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Current User", "responses": {"200": {"description": "OK"}}}
        },
        "/users/me/password": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Change Password", "responses": {"200": {"description": "OK"}}}
        },
        "/users/recovery/start": {
            "post": {"tags": ["Recovery"], "summary": "Start Password Recovery", "responses": {"200": {"description": "OK"}}}
        },
        "/users/recovery/verify": {
            "post": {"tags": ["Recovery"], "summary": "Verify Security Answers", "responses": {"200": {"description": "OK"}}}
        },
        "/users/recovery/reset": {
            "post": {"tags": ["Recovery"], "summary": "Reset Password", "responses": {"200": {"description": "OK"}}}
        },
        "/users/register": {
            "post": {"tags": ["Users"], "summary": "Register User", "responses": {"201": {"description": "Created"}}}
        },
        "/users": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Users"], "summary": "List Users", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Users"], "summary": "Create User", "responses": {"201": {"description": "Created"}}}
        },
        "/users/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Users"], "summary": "Get User", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Users"], "summary": "Update User", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Users"], "summary": "Delete User", "responses": {"200": {"description": "OK"}}}
        },
        "/roles": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Roles"], "summary": "List Roles", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Roles"], "summary": "Create Role", "responses": {"201": {"description": "Created"}}}
        },
        "/roles/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Roles"], "summary": "Get Role", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Roles"], "summary": "Update Role", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Roles"], "summary": "Delete Role", "responses": {"200": {"description": "OK"}}}
        },
        "/roles/{id}/permissions": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["Roles"], "summary": "Replace Role Permissions", "responses": {"200": {"description": "OK"}}}
        },
        "/roles/permissions/all": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Roles"], "summary": "List Permissions", "responses": {"200": {"description": "OK"}}}
        },
        "/roles/permissions/init": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Roles"], "summary": "Seed Default Permissions", "responses": {"201": {"description": "Created"}}}
        },
        "/roles/users/{id}/permissions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Roles"], "summary": "User Permissions", "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "types.LoginRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string", "example": "TestPass123!"},
                "username": {"type": "string", "example": "alice"}
            }
        },
        "types.LoginResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "message": {"type": "string"},
                "role": {"type": "object"},
                "token_type": {"type": "string", "example": "bearer"},
                "user_id": {"type": "integer"},
                "username": {"type": "string"}
            }
        },
        "types.Response": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Logistics Backoffice API",
	Description:      "Authentication, password recovery and role-based access control.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
