// Package docs registers the OpenAPI document served at /swagger/*any.
// Keep it in step with the handlers when routes change.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"Bearer": []}],
    "paths": {
        "/login": {"post": {"summary": "Issue a JWT", "security": [], "tags": ["auth"],
            "responses": {"200": {"description": "token"}, "401": {"description": "bad credentials"}}}},
        "/members": {
            "post": {"summary": "Register a member", "security": [], "tags": ["members"],
                "responses": {"201": {"description": "created"}, "409": {"description": "email taken"}}},
            "get": {"summary": "List members (admin)", "tags": ["catalog"],
                "parameters": [{"name": "q", "in": "query", "type": "string"}, {"name": "page", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "page"}}}
        },
        "/members/{id}": {
            "get": {"summary": "Get a member (self or admin)", "tags": ["members"],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "member"}, "404": {"description": "not found"}}},
            "patch": {"summary": "Update profile (self or admin)", "tags": ["members"],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "member"}}}
        },
        "/books": {
            "get": {"summary": "Search books", "tags": ["catalog"],
                "parameters": [{"name": "q", "in": "query", "type": "string"}, {"name": "genre", "in": "query", "type": "string"},
                    {"name": "available", "in": "query", "type": "boolean"}, {"name": "page", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "page of 10"}}},
            "post": {"summary": "Add stock (admin). Merges on (isbn_no, title)", "tags": ["inventory"],
                "responses": {"200": {"description": "merged"}, "201": {"description": "created"}}}
        },
        "/books/genres": {"get": {"summary": "Distinct genres", "tags": ["catalog"], "responses": {"200": {"description": "genres"}}}},
        "/books/labels": {"get": {"summary": "Spine label CSV (admin)", "tags": ["labels"], "produces": ["text/csv"],
            "parameters": [{"name": "ids", "in": "query", "required": true, "type": "string"},
                {"name": "encoding", "in": "query", "type": "string", "enum": ["utf8", "sjis"]}],
            "responses": {"200": {"description": "csv"}}}},
        "/books/{id}": {
            "get": {"summary": "Get a book", "tags": ["inventory"],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "book"}, "404": {"description": "not found"}}},
            "patch": {"summary": "Update metadata (admin)", "tags": ["inventory"],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "book"}}},
            "delete": {"summary": "Remove a book (admin)", "tags": ["inventory"],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"204": {"description": "removed"}, "409": {"description": "BOOK_IN_USE"}}}
        },
        "/requests": {
            "get": {"summary": "List requests (admin: all, member: own)", "tags": ["catalog"],
                "parameters": [{"name": "q", "in": "query", "type": "string"}, {"name": "status", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"}, {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "page of 10"}}},
            "post": {"summary": "Create a request", "tags": ["loans"],
                "responses": {"201": {"description": "created"}}}
        },
        "/me/requests": {"get": {"summary": "Own requests", "tags": ["catalog"], "responses": {"200": {"description": "page of 10"}}}},
        "/requests/{id}": {"get": {"summary": "Get a request", "tags": ["loans"],
            "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
            "responses": {"200": {"description": "request"}}}},
        "/requests/by-ulid/{ulid}": {"get": {"summary": "Get a request by its ULID (the Location of POST /requests)", "tags": ["loans"],
            "parameters": [{"name": "ulid", "in": "path", "required": true, "type": "string"}],
            "responses": {"200": {"description": "request"}, "404": {"description": "not found"}}}},
        "/requests/{id}/accept": {"post": {"summary": "Accept and issue a copy (admin)", "tags": ["loans"],
            "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
            "responses": {"200": {"description": "success"}, "409": {"description": "INVALID_TRANSITION or NO_COPIES_AVAILABLE"}}}},
        "/requests/{id}/decline": {"post": {"summary": "Decline (admin)", "tags": ["loans"],
            "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
            "responses": {"200": {"description": "declined"}}}},
        "/requests/{id}/return": {"post": {"summary": "Return a copy (admin)", "tags": ["loans"],
            "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
            "responses": {"200": {"description": "returned"}, "409": {"description": "INVALID_TRANSITION or OVER_RETURN"}}}}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Library backend API",
	Description:      "Book requests, loans and inventory.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
