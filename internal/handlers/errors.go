package handlers

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/link-registry/internal/shortener"
	"go.uber.org/zap"
)

// statusError maps a registry error onto an HTTP problem response.
func (h *LinkHandler) statusError(op string, key string, err error) error {
	switch shortener.Kind(err) {
	case shortener.KindInvalidInput:
		return huma.Error400BadRequest(err.Error())
	case shortener.KindAuthenticationFailed:
		return huma.Error401Unauthorized("authentication failed")
	case shortener.KindUnauthorized:
		return huma.Error403Forbidden("not the owner of this link")
	case shortener.KindNotFound:
		return huma.Error404NotFound("link not found")
	case shortener.KindKeyConflict:
		return huma.Error409Conflict("link key already exists")
	default:
		h.logger.Error("registry operation failed",
			zap.String("op", op),
			zap.String("key", key),
			zap.Error(err),
		)

		return huma.Error500InternalServerError("registry operation failed")
	}
}
