// Package docs registers the swagger document served under /swagger. Keep it
// in step with the handler annotations; `go generate ./cmd/degenecho` rebuilds it.
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
        "/healthz": {
            "get": {
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/readyz": {
            "get": {
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/polls": {
            "get": {
                "tags": ["polls"],
                "summary": "List polls",
                "parameters": [
                    {"type": "integer", "description": "limit", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "offset", "in": "query"},
                    {"type": "boolean", "description": "settled filter", "name": "settled", "in": "query"},
                    {"type": "string", "description": "authority key", "name": "authority", "in": "query"},
                    {"type": "string", "description": "created_at|end_time|start_price", "name": "order_by", "in": "query"},
                    {"type": "boolean", "description": "ascending", "name": "asc", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            },
            "post": {
                "description": "The caller becomes the poll authority.",
                "consumes": ["application/json"],
                "tags": ["polls"],
                "summary": "Create poll",
                "parameters": [
                    {"description": "poll", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createPollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/polls/{id}": {
            "get": {
                "tags": ["polls"],
                "summary": "Get poll",
                "parameters": [{"type": "string", "description": "poll id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/polls/{id}/summary": {
            "get": {
                "description": "Totals, pot, per-choice share and implied odds. Informational only.",
                "tags": ["polls"],
                "summary": "Poll pool summary",
                "parameters": [{"type": "string", "description": "poll id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/polls/{id}/bets": {
            "get": {
                "tags": ["polls"],
                "summary": "List bets on a poll",
                "parameters": [
                    {"type": "string", "description": "poll id", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "limit", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "offset", "in": "query"},
                    {"type": "string", "description": "bettor key", "name": "user", "in": "query"},
                    {"type": "integer", "description": "1|2|3", "name": "choice", "in": "query"},
                    {"type": "string", "description": "created_at|amount", "name": "order_by", "in": "query"},
                    {"type": "boolean", "description": "ascending", "name": "asc", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            },
            "post": {
                "description": "Stakes amount lamports from the caller into the poll vault.",
                "consumes": ["application/json"],
                "tags": ["polls"],
                "summary": "Place bet",
                "parameters": [
                    {"type": "string", "description": "poll id", "name": "id", "in": "path", "required": true},
                    {"description": "bet", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.placeBetRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/polls/{id}/settle": {
            "post": {
                "description": "Authority only. Movement within 1% of start price settles as stagnate.",
                "consumes": ["application/json"],
                "tags": ["polls"],
                "summary": "Settle poll",
                "parameters": [
                    {"type": "string", "description": "poll id", "name": "id", "in": "path", "required": true},
                    {"description": "settlement", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.settlePollRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/polls/{id}/events": {
            "get": {
                "tags": ["polls"],
                "summary": "Poll event journal",
                "parameters": [
                    {"type": "string", "description": "poll id", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "limit", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/polls/{id}/stream": {
            "get": {
                "description": "Websocket. Sends a snapshot of the poll, then every committed event for it.",
                "tags": ["polls"],
                "summary": "Stream poll events",
                "parameters": [{"type": "string", "description": "poll id", "name": "id", "in": "path", "required": true}],
                "responses": {}
            }
        },
        "/api/v1/bets/{id}": {
            "get": {
                "tags": ["bets"],
                "summary": "Get bet",
                "parameters": [{"type": "string", "description": "bet id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/accounts/{key}": {
            "get": {
                "tags": ["accounts"],
                "summary": "Get account balance",
                "parameters": [{"type": "string", "description": "account key", "name": "key", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.apiResponse"}}
                }
            }
        },
        "/api/v1/accounts/{key}/transfers": {
            "get": {
                "tags": ["accounts"],
                "summary": "List account transfers",
                "parameters": [
                    {"type": "string", "description": "account key", "name": "key", "in": "path", "required": true},
                    {"type": "string", "description": "bet_stake|airdrop", "name": "kind", "in": "query"},
                    {"type": "integer", "description": "limit", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "offset", "in": "query"},
                    {"type": "boolean", "description": "ascending", "name": "asc", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/me": {
            "get": {
                "tags": ["accounts"],
                "summary": "Current caller",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        },
        "/api/v1/admin/accounts/{key}/airdrop": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["admin"],
                "summary": "Airdrop lamports",
                "parameters": [
                    {"type": "string", "description": "account key", "name": "key", "in": "path", "required": true},
                    {"description": "amount in lamports", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.airdropRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/v1/admin/reconcile": {
            "get": {
                "tags": ["admin"],
                "summary": "Run ledger reconciliation",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.apiResponse"}}}
            }
        }
    },
    "definitions": {
        "handler.apiResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "error": {"type": "string"},
                "message": {"type": "string"},
                "meta": {"type": "object", "additionalProperties": true}
            }
        },
        "handler.createPollRequest": {
            "type": "object",
            "properties": {
                "end_time": {"type": "integer"},
                "start_price": {"type": "integer"},
                "vault": {"type": "string"}
            }
        },
        "handler.placeBetRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "integer"},
                "choice": {"type": "integer"},
                "vault": {"type": "string"}
            }
        },
        "handler.settlePollRequest": {
            "type": "object",
            "properties": {
                "end_price": {"type": "integer"}
            }
        },
        "handler.airdropRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "integer"}
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
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Degen Echo API",
	Description:      "Pump, dump or stagnate wagering with escrowed stakes and authority settlement.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
