package handler

import (
	"dota-report-be/internal/pkg/logger"
	"dota-report-be/internal/querysession"
	"dota-report-be/internal/service"
	internalWS "dota-report-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// FrontendHandler serves the browser front end: one websocket per tab, each
// with its own query session over the in-process report service.
type FrontendHandler struct {
	hub     *internalWS.Hub
	reports service.IReportService
	opts    querysession.Options
	logger  logger.ILogger
}

func NewFrontendHandler(hub *internalWS.Hub, reports service.IReportService, opts querysession.Options, log logger.ILogger) *FrontendHandler {
	return &FrontendHandler{
		hub:     hub,
		reports: reports,
		opts:    opts,
		logger:  log,
	}
}

func (h *FrontendHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", h.ServeWs)
}

func (h *FrontendHandler) newSession(owner string, renderer querysession.Renderer) *querysession.Controller {
	return querysession.NewController(service.NewLocalBackend(h.reports, owner), renderer, h.opts, h.logger)
}

// ServeWs upgrades the request and runs the connection until the browser
// goes away.
func (h *FrontendHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	clientID := uuid.New()
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("FrontendHandler", "Starting WebSocket session", map[string]interface{}{"client_id": clientID})
		internalWS.ServeWs(h.hub, conn, clientID, h.newSession, h.logger)
		h.logger.Info("FrontendHandler", "WebSocket session ended", map[string]interface{}{"client_id": clientID})
	})(c)
}
