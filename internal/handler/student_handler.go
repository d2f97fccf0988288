package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/service"
	"github.com/noah-isme/trombinoscope-api/internal/utils"
)

// StudentHandler exposes the student directory.
type StudentHandler struct {
	service service.StudentService
	photos  service.PhotoService
	logger  zerolog.Logger
}

// NewStudentHandler constructs a student handler. photos may be nil to
// disable the photo routes.
func NewStudentHandler(service service.StudentService, photos service.PhotoService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service: service,
		photos:  photos,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register wires the routes; write access is enforced by the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/projects", h.projects)

	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/absences", h.adjustAbsences)
	if h.photos != nil {
		router.Post("/:id/photo", h.uploadPhoto)
		router.Delete("/:id/photo", h.removePhoto)
	}
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	filter := dto.StudentFilter{Search: c.Query("search")}
	students, err := h.service.List(requestContext(c), filter)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list students")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list students")
	}
	return utils.OK(c, students, "students retrieved", fiber.Map{"total": len(students), "search": filter.Search})
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "student id required")
	}
	student, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return h.fail(c, err, "failed to load student")
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) projects(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "student id required")
	}
	projects, err := h.service.ListProjects(requestContext(c), id)
	if err != nil {
		return h.fail(c, err, "failed to list student projects")
	}
	return utils.OK(c, projects, "student projects retrieved", fiber.Map{"total": len(projects)})
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	student, err := h.service.Create(requestContext(c), payload)
	if err != nil {
		return h.fail(c, err, "failed to create student")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *StudentHandler) update(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "student id required")
	}
	var payload dto.StudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	student, err := h.service.Update(requestContext(c), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to update student")
	}
	return utils.SendSuccess(c, "student updated", student)
}

func (h *StudentHandler) delete(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "student id required")
	}
	if err := h.service.Delete(requestContext(c), id); err != nil {
		return h.fail(c, err, "failed to delete student")
	}
	return utils.SendSuccess(c, "student deleted", fiber.Map{"id": id})
}

func (h *StudentHandler) adjustAbsences(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "student id required")
	}
	var payload dto.AbsenceAdjustRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	student, err := h.service.AdjustAbsence(requestContext(c), id, payload)
	if err != nil {
		return h.fail(c, err, "failed to update absences")
	}
	return utils.SendSuccess(c, "absences updated", student)
}

func (h *StudentHandler) uploadPhoto(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "student id required")
	}
	file, err := c.FormFile("photo")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "photo file is required")
	}

	student, err := h.photos.Upload(requestContext(c), id, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPhotoTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrPhotoTypeNotAllowed), errors.Is(err, service.ErrPhotoRequired):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			return h.fail(c, err, "failed to upload photo")
		}
	}
	return utils.SendSuccess(c, "photo uploaded", student)
}

func (h *StudentHandler) removePhoto(c *fiber.Ctx) error {
	id, ok := idParam(c)
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "student id required")
	}
	student, err := h.photos.Remove(requestContext(c), id)
	if err != nil {
		return h.fail(c, err, "failed to remove photo")
	}
	return utils.SendSuccess(c, "photo removed", student)
}

func (h *StudentHandler) fail(c *fiber.Ctx, err error, message string) error {
	switch {
	case isValidationError(err):
		return sendValidationError(c, err)
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("student_id", c.Params("id")).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
