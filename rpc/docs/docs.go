// Package docs registers the swagger document of the ledger REST API.
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
        "/info": {
            "get": {
                "produces": ["application/json"],
                "summary": "Ledger owner, custody address, deposit amount, deposit count and balance",
                "operationId": "1",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rpc.InfoResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}}
                }
            }
        },
        "/commitments/{commitment}": {
            "get": {
                "produces": ["application/json"],
                "summary": "Whether the commitment has been deposited",
                "operationId": "2",
                "parameters": [
                    {"type": "string", "example": "0x4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45", "description": "32 byte commitment prefixed with 0x", "name": "commitment", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rpc.CommitmentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}}
                }
            }
        },
        "/deposit-count": {
            "get": {
                "produces": ["application/json"],
                "summary": "Number of accepted deposits",
                "operationId": "3",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rpc.DepositCountResponse"}}
                }
            }
        },
        "/balance": {
            "get": {
                "produces": ["application/json"],
                "summary": "Custody balance of the ledger in wei",
                "operationId": "4",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rpc.BalanceResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}}
                }
            }
        },
        "/deposits": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Deposit exactly the deposit amount with a new commitment",
                "operationId": "5",
                "parameters": [
                    {"description": "commitment, value in wei and the depositor signature", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/rpc.DepositRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rpc.DepositResponse"}},
                    "400": {"description": "wrong amount", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}},
                    "401": {"description": "invalid signature", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}},
                    "402": {"description": "insufficient funds", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}},
                    "409": {"description": "commitment already exists", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}}
                }
            }
        },
        "/drain": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Owner only, moves the whole custody balance to the owner",
                "operationId": "6",
                "parameters": [
                    {"description": "nonce greater than the last accepted one and the owner signature", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/rpc.DrainRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rpc.DrainResponse"}},
                    "401": {"description": "invalid signature", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}},
                    "403": {"description": "only owner", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}},
                    "409": {"description": "stale drain nonce", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}}
                }
            }
        },
        "/events": {
            "get": {
                "produces": ["application/json"],
                "summary": "Deposit events in sequence order",
                "operationId": "7",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "sequence number of the first event", "name": "from", "in": "query"},
                    {"type": "integer", "default": 100, "maximum": 1000, "description": "maximum number of events returned", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/rpc.EventResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}}
                }
            }
        },
        "/events/{seq}": {
            "get": {
                "produces": ["application/json"],
                "summary": "Deposit event with the given sequence number",
                "operationId": "8",
                "parameters": [
                    {"type": "integer", "description": "deposit sequence number", "name": "seq", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rpc.EventResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/rpc.ErrorResponse"}}
                }
            }
        },
        "/events/ws": {
            "get": {
                "summary": "Websocket stream of deposit events, replayed from the given sequence number then live",
                "operationId": "9",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "sequence number of the first event", "name": "from", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"}
                }
            }
        }
    },
    "definitions": {
        "rpc.ErrorResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "rpc.InfoResponse": {
            "type": "object",
            "properties": {
                "owner": {"type": "string", "example": "0x00000000000000000000000000000000000000a1"},
                "address": {"type": "string", "example": "0x00000000000000000000000000000000000000cc"},
                "depositAmount": {"type": "string", "example": "100000000000000"},
                "depositCount": {"type": "string", "example": "2"},
                "balance": {"type": "string", "example": "200000000000000"},
                "drainNonce": {"type": "string", "example": "0"}
            }
        },
        "rpc.CommitmentResponse": {
            "type": "object",
            "properties": {
                "commitment": {"type": "string"},
                "exists": {"type": "boolean"}
            }
        },
        "rpc.DepositCountResponse": {
            "type": "object",
            "properties": {"depositCount": {"type": "string"}}
        },
        "rpc.BalanceResponse": {
            "type": "object",
            "properties": {"balance": {"type": "string"}}
        },
        "rpc.DepositRequest": {
            "type": "object",
            "properties": {
                "commitment": {"type": "string"},
                "value": {"type": "string", "example": "100000000000000"},
                "signature": {"type": "string", "description": "secp256k1 signature over keccak256 of the CBOR encoded [ledger, commitment, value]"}
            }
        },
        "rpc.DepositResponse": {
            "type": "object",
            "properties": {"depositCount": {"type": "string"}}
        },
        "rpc.DrainRequest": {
            "type": "object",
            "properties": {
                "nonce": {"type": "string", "example": "1"},
                "signature": {"type": "string", "description": "secp256k1 signature over keccak256 of the CBOR encoded [ledger, nonce]"}
            }
        },
        "rpc.DrainResponse": {
            "type": "object",
            "properties": {"amount": {"type": "string"}}
        },
        "rpc.EventResponse": {
            "type": "object",
            "properties": {
                "commitment": {"type": "string"},
                "amount": {"type": "string"},
                "depositCount": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "CosmicPool commitment ledger API",
	Description:      "Fixed denomination deposits with commitments, owner drain and the deposit event log.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
