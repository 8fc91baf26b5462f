package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "License Portal API",
        "description": "Broadcasting license application portal and review workflow engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Workflow Stages", "description": "Review stage catalog"},
        {"name": "Workflow Templates", "description": "Built-in catalog templates"},
        {"name": "Applications", "description": "License applications and their workflows"},
        {"name": "Workflow Comments", "description": "Comment trail on workflow instances"},
        {"name": "Notifications", "description": "Per-user notification feed"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a portal user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Return the authenticated user's claims",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/workflow-stages": {
            "get": {
                "tags": ["Workflow Stages"],
                "summary": "List workflow stages",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Workflow Stages"],
                "summary": "Create a workflow stage",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Admin only"},
                    "409": {"description": "Stage order in use"}
                }
            }
        },
        "/workflow-stages/{id}": {
            "get": {
                "tags": ["Workflow Stages"],
                "summary": "Get a workflow stage",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Workflow Stages"],
                "summary": "Update a workflow stage",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Workflow Stages"],
                "summary": "Delete a workflow stage",
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Stage in use"}
                }
            }
        },
        "/workflow-templates": {
            "get": {
                "tags": ["Workflow Templates"],
                "summary": "List built-in workflow templates",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/workflow-templates/apply": {
            "post": {
                "tags": ["Workflow Templates"],
                "summary": "Replace the stage catalog with a template",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown template"}
                }
            }
        },
        "/applications": {
            "post": {
                "tags": ["Applications"],
                "summary": "Submit a license application",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}": {
            "get": {
                "tags": ["Applications"],
                "summary": "Get a license application",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/applications/{id}/workflow": {
            "get": {
                "tags": ["Applications"],
                "summary": "List an application's workflow instances",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/workflow/{workflowId}": {
            "patch": {
                "tags": ["Applications"],
                "summary": "Apply a reviewer decision to a workflow instance",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version conflict"},
                    "422": {"description": "Invalid transition"}
                }
            }
        },
        "/applications/{id}/payment": {
            "post": {
                "tags": ["Applications"],
                "summary": "Confirm the license fee payment",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already paid"}
                }
            }
        },
        "/applications/{id}/certificate": {
            "get": {
                "tags": ["Applications"],
                "summary": "Download the license certificate PDF",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF document"},
                    "409": {"description": "Not approved or unpaid"}
                }
            }
        },
        "/workflow-comments": {
            "get": {
                "tags": ["Workflow Comments"],
                "summary": "List workflow comments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Workflow Comments"],
                "summary": "Post a workflow comment",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/workflow-comments/{id}": {
            "put": {
                "tags": ["Workflow Comments"],
                "summary": "Edit a workflow comment",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Workflow Comments"],
                "summary": "Delete a workflow comment",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the caller's notifications",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        }
    },
    "definitions": {
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
