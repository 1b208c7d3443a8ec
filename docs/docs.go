// Package docs registers the OpenAPI document served under /swagger.
// It uses the layout swag init emits; running the swag CLI pinned in tools.go
// against the handler annotations replaces it.
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
        "/customers": {
            "get": {"tags": ["Customers"], "summary": "List customers", "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "name": "pageSize", "in": "query"},
                    {"type": "string", "description": "Search name, email, phone and city", "name": "q", "in": "query"},
                    {"type": "string", "description": "JSON object of filters keyed by field id", "name": "filters", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PaginatedResponse"}}}},
            "post": {"tags": ["Customers"], "summary": "Create customer", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.CreateCustomerRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.CustomerDTO"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.APIError"}}}}
        },
        "/customers/find-or-create": {
            "post": {"tags": ["Customers"], "summary": "Find or create customer",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.FindOrCreateCustomerRequest"}}],
                "responses": {"200": {"description": "Existing customer", "schema": {"$ref": "#/definitions/domain.CustomerDTO"}}, "201": {"description": "Created customer", "schema": {"$ref": "#/definitions/domain.CustomerDTO"}}}}
        },
        "/customers/{id}": {
            "get": {"tags": ["Customers"], "summary": "Get customer", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.CustomerDTO"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/domain.APIError"}}}},
            "put": {"tags": ["Customers"], "summary": "Update customer", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.CustomerDTO"}}}},
            "delete": {"tags": ["Customers"], "summary": "Delete customer", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.APIError"}}}}
        },
        "/deals": {
            "get": {"tags": ["Deals"], "summary": "List deals",
                "parameters": [
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "string", "name": "filters", "in": "query"},
                    {"type": "boolean", "name": "includeInactive", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PaginatedResponse"}}}},
            "post": {"tags": ["Deals"], "summary": "Create deal",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.CreateDealRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.DealDTO"}}, "409": {"description": "Customer does not exist", "schema": {"$ref": "#/definitions/domain.APIError"}}}}
        },
        "/deals/stats": {
            "get": {"tags": ["Deals"], "summary": "Pipeline statistics", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PipelineStatsDTO"}}}}
        },
        "/deals/{id}/convert": {
            "post": {"tags": ["Deals"], "summary": "Convert deal to project", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.ConversionResultDTO"}}, "409": {"description": "Deal already converted", "schema": {"$ref": "#/definitions/domain.APIError"}}}}
        },
        "/deals/{id}/stage": {
            "put": {"tags": ["Deals"], "summary": "Change deal stage", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.DealDTO"}}}}
        },
        "/projects": {
            "get": {"tags": ["Projects"], "summary": "List projects", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PaginatedResponse"}}}},
            "post": {"tags": ["Projects"], "summary": "Create project", "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.ProjectDTO"}}}}
        },
        "/projects/{id}/status": {
            "put": {"tags": ["Projects"], "summary": "Update project status", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ProjectDTO"}}}}
        },
        "/{entity}/bulk": {
            "post": {"tags": ["Bulk"], "summary": "Run bulk action", "parameters": [{"type": "string", "name": "entity", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.BulkActionResultDTO"}}, "207": {"description": "Multi-Status", "schema": {"$ref": "#/definitions/domain.BulkActionResultDTO"}}, "409": {"description": "Confirmation required", "schema": {"$ref": "#/definitions/domain.APIError"}}}}
        },
        "/snapshot": {
            "get": {"tags": ["Snapshot"], "summary": "Snapshot", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SnapshotDTO"}}}}
        },
        "/exports": {
            "post": {"tags": ["Snapshot"], "summary": "Export snapshot", "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.ExportResultDTO"}}}}
        }
    },
    "definitions": {
        "domain.APIError": {"type": "object", "properties": {
            "type": {"type": "string"}, "title": {"type": "string"}, "status": {"type": "integer"},
            "detail": {"type": "string"}, "errors": {"type": "object", "additionalProperties": {"type": "string"}}, "retryable": {"type": "boolean"}}},
        "domain.PaginatedResponse": {"type": "object", "properties": {
            "data": {}, "total": {"type": "integer"}, "page": {"type": "integer"}, "pageSize": {"type": "integer"}, "totalPages": {"type": "integer"}}},
        "domain.CustomerDTO": {"type": "object"},
        "domain.CreateCustomerRequest": {"type": "object", "required": ["name"]},
        "domain.FindOrCreateCustomerRequest": {"type": "object", "required": ["name"]},
        "domain.DealDTO": {"type": "object"},
        "domain.CreateDealRequest": {"type": "object", "required": ["title", "customerId"]},
        "domain.PipelineStatsDTO": {"type": "object"},
        "domain.ConversionResultDTO": {"type": "object"},
        "domain.ProjectDTO": {"type": "object"},
        "domain.BulkActionResultDTO": {"type": "object"},
        "domain.SnapshotDTO": {"type": "object"},
        "domain.ExportResultDTO": {"type": "object"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Straye Renovation API",
	Description:      "Customers, sales pipeline and renovation projects",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
