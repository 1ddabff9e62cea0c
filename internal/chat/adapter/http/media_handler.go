package http

import (
	apperrors "talkwire/internal/shared/errors"

	"github.com/gofiber/fiber/v2"
)

// MediaHTTPHandler exposes the parameters browsers need for unsigned direct
// uploads to the media host. Image bytes never pass through this server; only the
// resulting URL is stored on messages and profiles.
type MediaHTTPHandler struct {
	cloudName    string
	uploadPreset string
}

// NewMediaHTTPHandler creates a new media HTTP handler
func NewMediaHTTPHandler(cloudName, uploadPreset string) *MediaHTTPHandler {
	return &MediaHTTPHandler{
		cloudName:    cloudName,
		uploadPreset: uploadPreset,
	}
}

// SetupMediaRoutes registers media routes behind the auth middleware
func (h *MediaHTTPHandler) SetupMediaRoutes(router fiber.Router, protect fiber.Handler) {
	group := router.Group("/api/media", protect)
	group.Get("/upload-params", h.UploadParams)
}

// UploadParams returns the unsigned upload configuration
func (h *MediaHTTPHandler) UploadParams(c *fiber.Ctx) error {
	if h.cloudName == "" || h.uploadPreset == "" {
		return respondError(c, apperrors.NewNotFoundError("Media upload configuration"))
	}

	return c.JSON(fiber.Map{
		"cloudName":    h.cloudName,
		"uploadPreset": h.uploadPreset,
		"uploadUrl":    "https://api.cloudinary.com/v1_1/" + h.cloudName + "/image/upload",
	})
}
