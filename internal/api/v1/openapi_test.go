package apiv1

import (
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BlockFox/app/controllers"
)

const openAPIFile = "../../../public/docs/v1/openapi.yml"

var pathParam = regexp.MustCompile(`:(\w+)`)

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(openAPIFile)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(loader.Context))
	return doc
}

func TestOpenAPIDocumentsEveryRoute(t *testing.T) {
	doc := loadOpenAPI(t)

	app := fiber.New()
	v1 := app.Group("/api/v1")
	RegisterHandlers(v1, &controllers.API{}, func(c *fiber.Ctx) error { return c.Next() })

	seen := 0
	for _, route := range app.GetRoutes(true) {
		switch route.Method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			continue
		}
		if !strings.HasPrefix(route.Path, "/api/v1/") {
			continue
		}
		seen++
		path := pathParam.ReplaceAllString(strings.TrimPrefix(route.Path, "/api/v1"), "{$1}")
		item := doc.Paths.Value(path)
		if !assert.NotNil(t, item, "undocumented path %s", path) {
			continue
		}
		assert.NotNil(t, item.GetOperation(route.Method), "undocumented %s %s", route.Method, path)
	}
	assert.Greater(t, seen, 20)
}

func TestOpenAPIErrorKinds(t *testing.T) {
	doc := loadOpenAPI(t)

	schema := doc.Components.Schemas["Error"]
	require.NotNil(t, schema)
	kinds := schema.Value.Properties["error"].Value.Enum
	assert.Contains(t, kinds, "payment_method_missing")
	assert.Contains(t, kinds, "internal_server_error")
}
