package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, swaggerJSON)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>collabpad — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the REST surface. The websocket
// protocol on /ws is not representable here and is documented separately.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "collabpad", "version": "v0.1.0" },
  "paths": {
    "/api/register": {
      "post": {
        "summary": "Create an account",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"username":{"type":"string"},"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "201": { "description": "user and access token" }, "409": { "description": "email already registered" } }
      }
    },
    "/api/login": {
      "post": { "summary": "Authenticate by email and password", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "user and access token" }, "401": { "description": "invalid credentials" } } }
    },
    "/api/logout": {
      "post": { "summary": "Invalidate the presented access token", "responses": { "200": { "description": "logged out" } } }
    },
    "/api/user": {
      "get": { "summary": "Get the authenticated user", "responses": { "200": { "description": "user profile" }, "401": { "description": "invalid token" } } }
    },
    "/api/documents/{id}": {
      "get": { "summary": "Fetch a document, creating it when new", "responses": { "200": { "description": "document with content and active users" } } }
    },
    "/api/polish": {
      "post": { "summary": "Polish text through the AI model", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"text":{"type":"string"}}}}}}, "responses": { "200": { "description": "polished text" }, "502": { "description": "polish backend failed" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
