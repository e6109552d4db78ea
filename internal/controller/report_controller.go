// FILE: internal/controller/report_controller.go
package controller

import (
	"errors"
	"math"

	"dota-report-be/internal/analysis"
	"dota-report-be/internal/dto"
	"dota-report-be/internal/opendota"
	"dota-report-be/internal/pkg/serverutils"
	"dota-report-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultOwner = "default"

type IReportController interface {
	RegisterRoutes(r fiber.Router)
	Submit(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	ResetCancel(ctx *fiber.Ctx) error
	Progress(ctx *fiber.Ctx) error
}

type reportController struct {
	service service.IReportService
}

func NewReportController(service service.IReportService) IReportController {
	return &reportController{service: service}
}

func (c *reportController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/report")
	h.Post("/", c.Submit)
	h.Post("/cancel", c.Cancel)
	h.Post("/cancel/reset", c.ResetCancel)
	h.Get("/progress", c.Progress)
}

func owner(ctx *fiber.Ctx) string {
	if id := ctx.Get(dto.ClientIDHeader); id != "" {
		return id
	}
	return defaultOwner
}

func (c *reportController) Submit(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	report, err := c.service.Submit(ctx.UserContext(), owner(ctx), req)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidHero):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid hero name selected."))
	case errors.Is(err, service.ErrInvalidRequest):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	case errors.Is(err, analysis.ErrCancelled):
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(409, "cancelled"))
	case errors.Is(err, opendota.ErrNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Please provide a valid player ID."))
	default:
		return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponse(502, "Failed to fetch data from OpenDota"))
	}

	if report.Empty() {
		return ctx.JSON(serverutils.SuccessResponse("No data available", report))
	}
	return ctx.JSON(serverutils.SuccessResponse("Report generated", report))
}

func (c *reportController) Cancel(ctx *fiber.Ctx) error {
	if err := c.service.Cancel(ctx.UserContext(), owner(ctx)); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Cancellation requested", dto.AckResponse{Status: "cancelled"}))
}

func (c *reportController) ResetCancel(ctx *fiber.Ctx) error {
	if err := c.service.ResetCancel(ctx.UserContext(), owner(ctx)); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Cancellation flag cleared", dto.AckResponse{Status: "reset"}))
}

func (c *reportController) Progress(ctx *fiber.Ctx) error {
	progress, err := c.service.Progress(ctx.UserContext(), owner(ctx))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	res := dto.ProgressResponse{Current: progress.Current, Total: progress.Total}
	if progress.Total > 0 {
		pct := int(math.Round(float64(progress.Current) / float64(progress.Total) * 100))
		res.Percentage = &pct
	}
	return ctx.JSON(serverutils.SuccessResponse("Progress retrieved", res))
}
