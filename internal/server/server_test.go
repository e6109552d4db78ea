package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"dota-report-be/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(r fiber.Router) {
	r.Get("/ping", func(ctx *fiber.Ctx) error { return ctx.SendString("pong") })
}

func testServer() *Server {
	cfg := &config.Config{App: config.AppConfig{Port: "0", CorsAllowedOrigins: "*"}}
	return newServer(cfg, func() int { return 3 }, pingRoutes{})
}

func TestHealth(t *testing.T) {
	resp, err := testServer().App().Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Clients int `json:"websocket_clients"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 3, body.Data.Clients)
}

func TestRoutesMountedUnderAPI(t *testing.T) {
	app := testServer().App()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/ping", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/ping", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
