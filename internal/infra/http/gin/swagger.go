package ginserver

import (
	_ "embed"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const specPath = "/swagger/doc.json"

var (
	//go:embed swagger/openapi.json
	openAPISpec []byte

	//go:embed swagger/index.html
	docsTemplate string

	docsPage = []byte(strings.ReplaceAll(docsTemplate, "{{OPENAPI_URL}}", specPath))
)

// registerSwaggerRoutes serves the OpenAPI document and a Swagger UI page.
func registerSwaggerRoutes(router gin.IRoutes) {
	router.GET(specPath, func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=300")
		c.Data(http.StatusOK, "application/json", openAPISpec)
	})
	router.GET("/swagger", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", docsPage)
	})
}
