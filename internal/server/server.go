package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"think-alike/internal/config"
	"think-alike/internal/db"
	"think-alike/internal/engine"
	"think-alike/internal/game"
	"think-alike/internal/notify"
)

const (
	sessionName   = "think_alike"
	sessionMaxAge = 7 * 24 * 60 * 60
)

// EventSource lists a room's journaled events.
type EventSource interface {
	List(ctx context.Context, code string, limit int) ([]db.Event, error)
}

type Server struct {
	engine  *engine.Engine
	hub     *notify.Hub
	events  EventSource
	cfg     config.Config
	limiter *rateLimiter
}

func New(eng *engine.Engine, hub *notify.Hub, events EventSource, cfg config.Config) *Server {
	registerValidators()
	if hub == nil {
		hub = notify.NewHub()
	}
	return &Server{
		engine:  eng,
		hub:     hub,
		events:  events,
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
	}
}

func (s *Server) Handler() http.Handler {
	if s.cfg.GinMode != "" {
		gin.SetMode(s.cfg.GinMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(s.corsConfig()))
	r.Use(sessions.Sessions(sessionName, s.sessionStore()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/rooms", s.rateLimit("create"), s.handleCreateRoom)

	room := api.Group("/rooms/:code")
	room.GET("", s.handleGetRoom)
	room.GET("/events", s.handleRoomEvents)

	actions := room.Group("", s.rateLimit("action"))
	actions.DELETE("", s.handleDiscardRoom)
	actions.POST("/join", s.handleJoinRoom)
	actions.POST("/start", s.handlePlayerAction(func(id string) game.Action { return game.Start{PlayerID: id} }))
	actions.POST("/force-end-propose", s.handlePlayerAction(func(id string) game.Action { return game.ForceEndPropose{PlayerID: id} }))
	actions.POST("/force-end-answering", s.handlePlayerAction(func(id string) game.Action { return game.ForceEndAnswering{PlayerID: id} }))
	actions.POST("/next-round", s.handlePlayerAction(func(id string) game.Action { return game.NextRound{PlayerID: id} }))
	actions.POST("/end", s.handlePlayerAction(func(id string) game.Action { return game.EndGame{PlayerID: id} }))
	actions.POST("/scoring/groups", s.handlePlayerAction(func(id string) game.Action { return game.CreateGroup{PlayerID: id} }))
	actions.POST("/propose", s.handlePropose)
	actions.POST("/vote", s.handleVote)
	actions.POST("/select-topic", s.handleSelectTopic)
	actions.POST("/answer", s.handleAnswer)
	actions.POST("/sync-scoring", s.handleSyncScoring)
	actions.POST("/scoring/move", s.handleMoveAnswer)
	actions.POST("/scoring/split", s.handleSplitGroup)
	actions.POST("/finalize-scores", s.handleFinalizeScores)
	actions.POST("/kick", s.handleKick)

	r.GET("/ws/rooms/:code", s.handleWebsocket)
	return r
}

// sessionStore issues the player cookie. Secure is opt-in so the cookie
// survives plain HTTP deployments.
func (s *Server) sessionStore() sessions.Store {
	store := cookie.NewStore([]byte(s.cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", "Origin"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		event := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("remote", c.ClientIP()).
			Msg("http request")
	}
}
