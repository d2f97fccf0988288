package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/trombinoscope-api/internal/seed"
	"github.com/noah-isme/trombinoscope-api/internal/service"
	"github.com/noah-isme/trombinoscope-api/internal/utils"
)

// SeedTokenHeader carries the shared secret for the seeding endpoints.
const SeedTokenHeader = "X-Seed-Token"

// SeedHandler exposes tooling endpoints for seeding data.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/seed", h.seed)
	router.Post("/reset", h.reset)
	router.Post("/import", h.importRoster)
}

func (h *SeedHandler) seed(c *fiber.Ctx) error {
	if err := h.service.Authorize(c.Get(SeedTokenHeader)); err != nil {
		return h.seedError(c, err)
	}
	result, err := h.service.SeedIfEmpty(requestContext(c))
	if err != nil {
		return h.seedError(c, err)
	}
	message := "roster seeded"
	if !result.Seeded {
		message = "store already populated"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *SeedHandler) reset(c *fiber.Ctx) error {
	if err := h.service.Authorize(c.Get(SeedTokenHeader)); err != nil {
		return h.seedError(c, err)
	}
	result, err := h.service.Reset(requestContext(c))
	if err != nil {
		return h.seedError(c, err)
	}
	return utils.SendSuccess(c, "roster reset", result)
}

func (h *SeedHandler) importRoster(c *fiber.Ctx) error {
	if err := h.service.Authorize(c.Get(SeedTokenHeader)); err != nil {
		return h.seedError(c, err)
	}
	result, err := h.service.Import(requestContext(c), c.Body())
	if err != nil {
		return h.seedError(c, err)
	}
	return utils.SendSuccess(c, "roster imported", result)
}

func (h *SeedHandler) seedError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSeedDisabled):
		return utils.SendError(c, fiber.StatusForbidden, "seeding disabled")
	case errors.Is(err, service.ErrSeedUnauthorized):
		return utils.SendError(c, fiber.StatusForbidden, "invalid token")
	case errors.Is(err, seed.ErrInvalidRoster):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid roster document", err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("seed operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "seed operation failed")
	}
}

