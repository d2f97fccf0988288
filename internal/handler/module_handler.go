package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/service"
	"github.com/noah-isme/trombinoscope-api/internal/utils"
)

// ModuleHandler exposes teaching modules.
type ModuleHandler struct {
	service service.ModuleService
	logger  zerolog.Logger
}

// NewModuleHandler constructs a module handler.
func NewModuleHandler(service service.ModuleService, logger zerolog.Logger) *ModuleHandler {
	return &ModuleHandler{
		service: service,
		logger:  logger.With().Str("component", "module_handler").Logger(),
	}
}

// Register wires the routes; write access is enforced by the router group.
func (h *ModuleHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/projects", h.projects)

	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *ModuleHandler) list(c *fiber.Ctx) error {
	modules, err := h.service.List(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list modules")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list modules")
	}
	return utils.OK(c, modules, "modules retrieved", fiber.Map{"total": len(modules)})
}

func (h *ModuleHandler) get(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "module id required")
	}
	module, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return h.fail(c, err, "failed to load module")
	}
	return utils.SendSuccess(c, "module retrieved", module)
}

func (h *ModuleHandler) projects(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "module id required")
	}
	projects, err := h.service.ListProjects(requestContext(c), id)
	if err != nil {
		return h.fail(c, err, "failed to list module projects")
	}
	return utils.OK(c, projects, "module projects retrieved", fiber.Map{"total": len(projects)})
}

func (h *ModuleHandler) create(c *fiber.Ctx) error {
	var payload dto.ModuleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	module, err := h.service.Create(requestContext(c), payload)
	if err != nil {
		return h.fail(c, err, "failed to create module")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "module created", module)
}

func (h *ModuleHandler) update(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "module id required")
	}
	var payload dto.ModuleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	module, err := h.service.Update(requestContext(c), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to update module")
	}
	return utils.SendSuccess(c, "module updated", module)
}

func (h *ModuleHandler) delete(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "module id required")
	}
	if err := h.service.Delete(requestContext(c), id); err != nil {
		return h.fail(c, err, "failed to delete module")
	}
	return utils.SendSuccess(c, "module deleted", fiber.Map{"id": id})
}

func (h *ModuleHandler) fail(c *fiber.Ctx, err error, message string) error {
	switch {
	case isValidationError(err):
		return sendValidationError(c, err)
	case errors.Is(err, service.ErrModuleNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "module not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("module_id", c.Params("id")).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
