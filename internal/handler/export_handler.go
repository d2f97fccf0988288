package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/service"
	"github.com/noah-isme/trombinoscope-api/internal/utils"
)

// ExportHandler streams roster documents as downloads.
type ExportHandler struct {
	service service.ExportService
	logger  zerolog.Logger
}

// NewExportHandler constructs an export handler.
func NewExportHandler(service service.ExportService, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		service: service,
		logger:  logger.With().Str("component", "export_handler").Logger(),
	}
}

// Register wires export routes.
func (h *ExportHandler) Register(router fiber.Router) {
	router.Get("/xlsx", h.render(dto.ExportFormatXLSX, h.service.Workbook))
	router.Get("/pdf", h.render(dto.ExportFormatPDF, h.service.Report))
	router.Get("/photos", h.render(dto.ExportFormatPhotos, h.service.PhotoSheet))
}

type renderFunc func(ctx context.Context, opts dto.ExportOptions) (dto.ExportResult, error)

func (h *ExportHandler) render(format string, fn renderFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts, err := exportOptions(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		result, err := fn(requestContext(c), opts)
		if err != nil {
			requestLogger(h.logger, c).Error().Err(err).Str("format", format).Msg("failed to render export")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to render export")
		}

		c.Set(fiber.HeaderContentType, result.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", result.Filename))
		return c.Status(fiber.StatusOK).Send(result.Content)
	}
}

func exportOptions(c *fiber.Ctx) (dto.ExportOptions, error) {
	opts := dto.DefaultExportOptions()
	opts.Filename = c.Query("filename")

	toggles := []struct {
		key    string
		target *bool
	}{
		{"students", &opts.IncludeStudents},
		{"projects", &opts.IncludeProjects},
		{"grades", &opts.IncludeGrades},
	}
	for _, toggle := range toggles {
		value, err := parseQueryBool(c, toggle.key, *toggle.target)
		if err != nil {
			return dto.ExportOptions{}, fmt.Errorf("invalid %s flag", toggle.key)
		}
		*toggle.target = value
	}
	return opts, nil
}
