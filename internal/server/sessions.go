package server

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func sessionKey(code string) string {
	return "player:" + code
}

// rememberPlayer stores the caller's player id for code in the session cookie.
func rememberPlayer(c *gin.Context, code, playerID string) {
	session := sessions.Default(c)
	session.Set(sessionKey(code), playerID)
	if err := session.Save(); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("session save failed")
	}
}

func sessionPlayer(c *gin.Context, code string) string {
	value, _ := sessions.Default(c).Get(sessionKey(code)).(string)
	return value
}

// resolvePlayer prefers the id sent in the body and falls back to the session.
func resolvePlayer(c *gin.Context, code, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return sessionPlayer(c, code)
}
