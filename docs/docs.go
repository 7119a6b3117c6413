// Package docs holds the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/pipeline-api/main.go
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
        "/cloudetl": {
            "get": {
                "description": "Select, clean, aggregate, write and archive the extracts for a reference date. The response is always 200; the body says whether the run succeeded.",
                "produces": ["text/plain"],
                "tags": ["trigger"],
                "summary": "Run the ETL batch",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Reference date in the configured format",
                        "name": "date",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Run deadline such as 5m, on top of the configured timeout",
                        "name": "timeout",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Run outcome",
                        "schema": {"type": "string"}
                    }
                }
            },
            "post": {
                "description": "Select, clean, aggregate, write and archive the extracts for a reference date. The response is always 200; the body says whether the run succeeded.",
                "consumes": ["application/json"],
                "produces": ["text/plain"],
                "tags": ["trigger"],
                "summary": "Run the ETL batch",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Reference date in the configured format",
                        "name": "date",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Run deadline such as 5m, on top of the configured timeout",
                        "name": "timeout",
                        "in": "query"
                    },
                    {
                        "description": "Reference date (alternative to the query parameter)",
                        "name": "request",
                        "in": "body",
                        "schema": {"$ref": "#/definitions/handler.TriggerRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Run outcome",
                        "schema": {"type": "string"}
                    }
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {"type": "string"}
                        }
                    }
                }
            }
        },
        "/v1/runs": {
            "get": {
                "description": "Get the most recent pipeline runs with their status",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List runs",
                "parameters": [
                    {
                        "type": "integer",
                        "default": 50,
                        "description": "Maximum number of runs",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "List of runs",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/model.RunRecord"}
                        }
                    },
                    "400": {
                        "description": "Invalid limit",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    },
                    "500": {
                        "description": "Internal server error",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    },
                    "503": {
                        "description": "Run tracking disabled",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    }
                }
            }
        },
        "/v1/runs/{id}": {
            "get": {
                "description": "Retrieve a pipeline run and its stage log",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get run",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Run ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Run details",
                        "schema": {"$ref": "#/definitions/handler.RunDetail"}
                    },
                    "400": {
                        "description": "Invalid run ID",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    },
                    "404": {
                        "description": "Run not found",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    },
                    "503": {
                        "description": "Run tracking disabled",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    }
                }
            }
        },
        "/v1/runs/{id}/logs": {
            "get": {
                "description": "Retrieve the state transitions recorded for a run",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get run logs",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Run ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Run logs",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/model.RunLog"}
                        }
                    },
                    "400": {
                        "description": "Invalid run ID",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    },
                    "404": {
                        "description": "Run not found",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    },
                    "503": {
                        "description": "Run tracking disabled",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "handler.RunDetail": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "reference_date": {"type": "string"},
                "status": {"type": "string"},
                "selected": {"type": "integer"},
                "groups": {"type": "integer"},
                "output_path": {"type": "string"},
                "error": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "logs": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/model.RunLog"}
                }
            }
        },
        "handler.TriggerRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2014-07-01"}
            }
        },
        "model.RunLog": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "run_id": {"type": "string"},
                "stage": {"type": "string"},
                "level": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true},
                "created_at": {"type": "string"}
            }
        },
        "model.RunRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "reference_date": {"type": "string"},
                "status": {"type": "string"},
                "selected": {"type": "integer"},
                "groups": {"type": "integer"},
                "output_path": {"type": "string"},
                "error": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Cloud ETL API",
	Description:      "HTTP trigger and run tracking for the sales extract pipeline.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
