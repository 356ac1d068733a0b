package openapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidatesEmbeddedDocument(t *testing.T) {
	doc, err := Load(context.Background())
	require.NoError(t, err)

	assert.True(t, doc.HasOperation(http.MethodPost, "/auth/login"))
	assert.True(t, doc.HasOperation(http.MethodGet, "/auth/me"))
	assert.True(t, doc.HasOperation(http.MethodPut, "/auth/profile"))
	assert.False(t, doc.HasOperation(http.MethodDelete, "/auth/me"))
	assert.False(t, doc.HasOperation(http.MethodGet, "/tickets"))
}

func TestHandler_ServesJSON(t *testing.T) {
	doc, err := Load(context.Background())
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/docs/openapi.json", doc.Handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs/openapi.json", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, "3.0.3", parsed["openapi"])
	assert.Contains(t, parsed["paths"], "/auth/register")
}
