package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/service"
	"github.com/noah-isme/trombinoscope-api/internal/utils"
)

// StatsHandler serves roster statistics.
type StatsHandler struct {
	service service.StatsService
	logger  zerolog.Logger
}

// NewStatsHandler constructs a statistics handler.
func NewStatsHandler(service service.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register wires statistics routes.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
	router.Get("/modules", h.modules)
	router.Get("/students", h.students)
}

func (h *StatsHandler) dashboard(c *fiber.Ctx) error {
	stats, err := h.service.Dashboard(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to compute dashboard")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute dashboard")
	}
	return utils.SendSuccess(c, "dashboard statistics", stats)
}

func (h *StatsHandler) modules(c *fiber.Ctx) error {
	stats, err := h.service.Modules(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to compute module statistics")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute module statistics")
	}
	return utils.OK(c, stats, "module statistics", fiber.Map{"total": len(stats)})
}

func (h *StatsHandler) students(c *fiber.Ctx) error {
	stats, err := h.service.Students(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to compute student statistics")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute student statistics")
	}
	return utils.OK(c, stats, "student statistics", fiber.Map{"total": len(stats)})
}
