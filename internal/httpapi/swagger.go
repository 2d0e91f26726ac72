//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// swaggerInfo holds the OpenAPI document served under /swagger.
var swaggerInfo = &swag.Spec{
	Version:          "0.1",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "llmchatd API",
	Description:      "Local LLM chat daemon: model lifecycle, conversations and streamed replies.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  swaggerTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(swaggerInfo.InstanceName(), swaggerInfo)
}

// MountSwagger serves the Swagger UI and doc.json under /swagger.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

const swaggerTemplate = `{
  "swagger": "2.0",
  "info": {"title": "{{.Title}}", "description": "{{escape .Description}}", "version": "{{.Version}}"},
  "basePath": "{{.BasePath}}",
  "schemes": {{ marshal .Schemes }},
  "paths": {
    "/models": {"get": {"summary": "List catalog models", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/status": {"get": {"summary": "Lifecycle status", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/select": {"post": {"summary": "Select a model", "consumes": ["application/json"], "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown model"}}}},
    "/switch": {"post": {"summary": "Select and load a model in the background", "consumes": ["application/json"], "responses": {"202": {"description": "Accepted"}, "404": {"description": "Unknown model"}}}},
    "/ensure": {"post": {"summary": "Load the selected model", "responses": {"200": {"description": "OK"}, "500": {"description": "Load failed"}, "503": {"description": "Not ready"}}}},
    "/unload": {"post": {"summary": "Release the engine", "responses": {"200": {"description": "OK"}}}},
    "/chats": {
      "get": {"summary": "List conversations", "responses": {"200": {"description": "OK"}}},
      "post": {"summary": "Create a conversation", "responses": {"201": {"description": "Created"}, "404": {"description": "Unknown model"}}},
      "delete": {"summary": "Delete all conversations", "responses": {"204": {"description": "No Content"}}}
    },
    "/chats/{id}": {
      "get": {"summary": "Get a conversation", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
      "patch": {"summary": "Rename a conversation", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
      "delete": {"summary": "Delete a conversation", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "No Content"}}}
    },
    "/chats/{id}/messages": {"post": {"summary": "Send a message and stream the reply", "produces": ["application/x-ndjson"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "NDJSON stream"}, "429": {"description": "Generation in progress"}, "503": {"description": "Not ready"}}}},
    "/chats/{id}/estimate": {"post": {"summary": "Remaining token budget for a draft", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
    "/chats/{id}/reset": {"post": {"summary": "Clear history and reset the session", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}}
  }
}`
