// FILE: internal/controller/metadata_controller.go
package controller

import (
	"errors"
	"strconv"

	"dota-report-be/internal/dto"
	"dota-report-be/internal/opendota"
	"dota-report-be/internal/pkg/serverutils"
	"dota-report-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IMetadataController interface {
	RegisterRoutes(r fiber.Router)
	Heroes(ctx *fiber.Ctx) error
	Player(ctx *fiber.Ctx) error
}

type metadataController struct {
	service service.IMetadataService
}

func NewMetadataController(service service.IMetadataService) IMetadataController {
	return &metadataController{service: service}
}

func (c *metadataController) RegisterRoutes(r fiber.Router) {
	r.Get("/heroes", c.Heroes)
	r.Get("/players/:id", c.Player)
}

func (c *metadataController) Heroes(ctx *fiber.Ctx) error {
	names, err := c.service.HeroNames(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponse(502, "Failed to fetch heroes from OpenDota"))
	}
	return ctx.JSON(serverutils.SuccessResponse("Heroes retrieved", dto.HeroListResponse{Heroes: names}))
}

func (c *metadataController) Player(ctx *fiber.Ctx) error {
	accountId, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil || accountId <= 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Please provide a valid player ID."))
	}

	name, err := c.service.PlayerName(ctx.UserContext(), accountId)
	if errors.Is(err, opendota.ErrNotFound) || (err == nil && name == "") {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Please provide a valid player ID."))
	}
	if err != nil {
		return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponse(502, "Failed to fetch player from OpenDota"))
	}
	return ctx.JSON(serverutils.SuccessResponse("Player retrieved", dto.PlayerResponse{AccountId: accountId, PersonaName: name}))
}
