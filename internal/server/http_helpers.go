package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"think-alike/internal/game"
)

func writeError(c *gin.Context, status int, message, code string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, game.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrInvalidPhase), errors.Is(err, game.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps an engine error onto the HTTP error body. Storage
// failures are logged and reported without their detail.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("room", c.Param("code")).Str("path", c.FullPath()).Msg("request failed")
		message = "storage error"
	}
	writeError(c, status, message, game.Code(err))
}

func writeRoom(c *gin.Context, status int, room *game.Room, extra gin.H) {
	body := gin.H{"room": room}
	for key, value := range extra {
		body[key] = value
	}
	c.JSON(status, body)
}
