package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/service"
	"github.com/noah-isme/trombinoscope-api/internal/utils"
)

// ProjectHandler exposes graded group projects.
type ProjectHandler struct {
	service service.ProjectService
	logger  zerolog.Logger
}

// NewProjectHandler constructs a project handler.
func NewProjectHandler(service service.ProjectService, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		logger:  logger.With().Str("component", "project_handler").Logger(),
	}
}

// Register wires the routes; write access is enforced by the router group.
func (h *ProjectHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/details", h.details)

	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Patch("/:id/status", h.changeStatus)
	router.Patch("/:id/grade", h.grade)
}

func (h *ProjectHandler) list(c *fiber.Ctx) error {
	filter := dto.ProjectFilter{
		ModuleID:  c.Query("module_id"),
		StudentID: c.Query("student_id"),
		Status:    c.Query("status"),
	}
	projects, err := h.service.List(requestContext(c), filter)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list projects")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list projects")
	}

	meta := fiber.Map{
		"total": len(projects),
		"filters": fiber.Map{
			"module_id":  filter.ModuleID,
			"student_id": filter.StudentID,
			"status":     filter.Status,
		},
	}
	return utils.OK(c, projects, "projects retrieved", meta)
}

func (h *ProjectHandler) get(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "project id required")
	}
	project, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return h.fail(c, err, "failed to load project")
	}
	return utils.SendSuccess(c, "project retrieved", project)
}

func (h *ProjectHandler) details(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "project id required")
	}
	details, err := h.service.Details(requestContext(c), id)
	if err != nil {
		return h.fail(c, err, "failed to load project details")
	}
	return utils.SendSuccess(c, "project details retrieved", details)
}

func (h *ProjectHandler) create(c *fiber.Ctx) error {
	var payload dto.ProjectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	project, err := h.service.Create(requestContext(c), payload)
	if err != nil {
		return h.fail(c, err, "failed to create project")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "project created", project)
}

func (h *ProjectHandler) update(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "project id required")
	}
	var payload dto.ProjectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	project, err := h.service.Update(requestContext(c), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to update project")
	}
	return utils.SendSuccess(c, "project updated", project)
}

func (h *ProjectHandler) delete(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "project id required")
	}
	if err := h.service.Delete(requestContext(c), id); err != nil {
		return h.fail(c, err, "failed to delete project")
	}
	return utils.SendSuccess(c, "project deleted", fiber.Map{"id": id})
}

func (h *ProjectHandler) changeStatus(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "project id required")
	}
	var payload dto.ProjectStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	project, err := h.service.ChangeStatus(requestContext(c), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to change project status")
	}
	return utils.SendSuccess(c, "project status updated", project)
}

func (h *ProjectHandler) grade(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "project id required")
	}
	var payload dto.ProjectGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	project, err := h.service.Grade(requestContext(c), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to grade project")
	}
	return utils.SendSuccess(c, "project graded", project)
}

func (h *ProjectHandler) fail(c *fiber.Ctx, err error, message string) error {
	switch {
	case isValidationError(err):
		return sendValidationError(c, err)
	case errors.Is(err, service.ErrProjectNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "project not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("project_id", c.Params("id")).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
