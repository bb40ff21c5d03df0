package http

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
)

const (
	docsTitle      = "GeoSurvey API"
	docsYAMLRoute  = "/docs/openapi.yaml"
	defaultDocPath = "api/openapi.yaml"
)

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>%[1]s - Swagger UI</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '%[2]s',
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [SwaggerUIBundle.presets.apis],
      tryItOutEnabled: true,
    });
  </script>
</body>
</html>`

// SetupDocs serves Swagger UI at /docs and the OpenAPI document read from
// docPath (api/openapi.yaml when empty). The file is re-read per request.
func SetupDocs(app *fiber.App, docPath string) {
	if docPath == "" {
		docPath = defaultDocPath
	}
	page := fmt.Sprintf(swaggerUIPage, docsTitle, docsYAMLRoute)

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.SendString(page)
	})

	app.Get(docsYAMLRoute, func(c *fiber.Ctx) error {
		data, err := os.ReadFile(docPath)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Warn("openapi document unavailable", "path", docPath, "error", err)
			return errNotFound(c, "openapi document not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(data)
	})
}
