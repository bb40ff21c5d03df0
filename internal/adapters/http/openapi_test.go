package http_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/samirrijal/geosurvey/internal/adapters/memory"
)

// findOpenAPIDoc locates the openapi.yaml file by walking up from the test directory.
func findOpenAPIDoc(t *testing.T) string {
	// Start from the current working directory or test file location
	dir, _ := os.Getwd()

	// Look for api/openapi.yaml by going up directories
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "api", "openapi.yaml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}

	t.Fatalf("could not find api/openapi.yaml")
	return ""
}

// TestOpenAPIDocument validates the OpenAPI document is valid.
func TestOpenAPIDocument(t *testing.T) {
	// Load the document
	docPath := findOpenAPIDoc(t)
	data, err := os.ReadFile(docPath)
	if err != nil {
		t.Fatalf("failed to read openapi.yaml: %v", err)
	}

	// Parse YAML
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI doc: %v", err)
	}

	// Validate the document
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI doc validation failed: %v", err)
	}

	// Check that key paths exist
	expectedPaths := []string{
		"/v1/health",
		"/v1/ready",
		"/v1/projects",
		"/v1/projects/{id}",
		"/v1/projects/{id}/locations",
		"/v1/projects/{id}/locations/map",
		"/v1/projects/{id}/locations/export",
		"/v1/projects/{id}/locations/import",
		"/v1/projects/{id}/locations/import/preview",
		"/v1/locations/template",
		"/v1/locations/{id}",
		"/graphql",
	}

	for _, path := range expectedPaths {
		if item := doc.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found in document", path)
		}
	}

	// Verify key schemas exist
	expectedSchemas := []string{
		"Project",
		"Location",
		"LocationInput",
		"MapView",
		"ImportResult",
		"ImportPreview",
		"APIError",
		"Pagination",
	}

	for _, schema := range expectedSchemas {
		if doc.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}

	t.Logf("OpenAPI doc valid: %d paths, %d schemas", len(doc.Paths.Map()), len(doc.Components.Schemas))
}

// TestOpenAPIInfo verifies doc metadata.
func TestOpenAPIInfo(t *testing.T) {
	docPath := findOpenAPIDoc(t)
	data, err := os.ReadFile(docPath)
	if err != nil {
		t.Fatalf("failed to read openapi.yaml: %v", err)
	}

	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI doc: %v", err)
	}

	if doc.Info.Title != "GeoSurvey API" {
		t.Errorf("expected title 'GeoSurvey API', got %q", doc.Info.Title)
	}

	if doc.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", doc.Info.Version)
	}

	if doc.Info.Description == "" {
		t.Error("expected non-empty description")
	}

	if len(doc.Servers) == 0 {
		t.Error("expected at least one server")
	}

	t.Logf("OpenAPI Info: %s v%s @ %s", doc.Info.Title, doc.Info.Version, doc.Servers[0].URL)
}

var routeParam = regexp.MustCompile(`:([a-z_]+)`)

// TestOpenAPICoversRoutes checks every registered /v1 route is documented.
func TestOpenAPICoversRoutes(t *testing.T) {
	data, err := os.ReadFile(findOpenAPIDoc(t))
	if err != nil {
		t.Fatalf("failed to read openapi.yaml: %v", err)
	}
	doc, err := (&openapi3.Loader{IsExternalRefsAllowed: false}).LoadFromData(data)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI doc: %v", err)
	}

	app := setupApp(makeDeps(memory.New()))
	for _, r := range app.GetRoutes(true) {
		if !strings.HasPrefix(r.Path, "/v1/") || r.Method == "HEAD" {
			continue
		}
		path := routeParam.ReplaceAllString(r.Path, "{$1}")
		item := doc.Paths.Find(path)
		if item == nil {
			t.Errorf("route %s %s is not documented", r.Method, r.Path)
			continue
		}
		if item.GetOperation(r.Method) == nil {
			t.Errorf("route %s %s has no documented operation", r.Method, path)
		}
	}
}
