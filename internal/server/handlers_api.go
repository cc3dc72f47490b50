package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"think-alike/internal/engine"
	"think-alike/internal/game"
)

type createRoomRequest struct {
	HostName string `json:"hostName" binding:"required,name"`
}

type joinRoomRequest struct {
	PlayerName string `json:"playerName" binding:"required,name"`
}

type playerRequest struct {
	PlayerID string `json:"playerId"`
}

type proposeRequest struct {
	PlayerID string `json:"playerId"`
	Topic    string `json:"topic" binding:"omitempty,topic"`
	Skip     bool   `json:"skip"`
}

type topicRequest struct {
	PlayerID string `json:"playerId"`
	TopicID  string `json:"topicId" binding:"required"`
}

type answerRequest struct {
	PlayerID string `json:"playerId"`
	Answer   string `json:"answer" binding:"required,answer"`
}

type syncScoringRequest struct {
	PlayerID      string              `json:"playerId"`
	ScoringGroups []game.ScoringGroup `json:"scoringGroups" binding:"required"`
}

type moveAnswerRequest struct {
	PlayerID       string `json:"playerId"`
	TargetPlayerID string `json:"targetPlayerId" binding:"required"`
	GroupID        string `json:"groupId"`
}

type splitGroupRequest struct {
	PlayerID  string   `json:"playerId"`
	GroupID   string   `json:"groupId" binding:"required"`
	PlayerIDs []string `json:"playerIds" binding:"required,min=1"`
}

type finalizeRequest struct {
	PlayerID    string         `json:"playerId"`
	Adjustments map[string]int `json:"adjustments"`
}

type kickRequest struct {
	PlayerID       string `json:"playerId"`
	TargetPlayerID string `json:"targetPlayerId" binding:"required"`
}

var nameMessages = bindMessages{
	"HostName": {
		"required": "host name is required",
		"name":     "name must be 1-20 characters",
	},
	"PlayerName": {
		"required": "player name is required",
		"name":     "name must be 1-20 characters",
	},
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if !bindJSON(c, &req, nameMessages, "") {
		return
	}
	room, playerID, err := s.engine.Create(c.Request.Context(), req.HostName)
	if err != nil {
		respondError(c, err)
		return
	}
	rememberPlayer(c, room.Code, playerID)
	writeRoom(c, http.StatusCreated, room, gin.H{
		"roomCode": room.Code,
		"playerId": playerID,
	})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	room, err := s.engine.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	writeRoom(c, http.StatusOK, room, nil)
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if !bindJSON(c, &req, nameMessages, "") {
		return
	}
	room, playerID, err := s.engine.Join(c.Request.Context(), c.Param("code"), req.PlayerName)
	if err != nil {
		respondError(c, err)
		return
	}
	rememberPlayer(c, room.Code, playerID)
	writeRoom(c, http.StatusOK, room, gin.H{
		"roomCode": room.Code,
		"playerId": playerID,
	})
}

func (s *Server) handleDiscardRoom(c *gin.Context) {
	var req playerRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	code := engine.NormalizeCode(c.Param("code"))
	if err := s.engine.Discard(c.Request.Context(), code, resolvePlayer(c, code, req.PlayerID)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRoomEvents(c *gin.Context) {
	code := engine.NormalizeCode(c.Param("code"))
	if _, err := s.engine.Get(c.Request.Context(), code); err != nil {
		respondError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	if s.events == nil {
		c.JSON(http.StatusOK, gin.H{"events": []any{}})
		return
	}
	events, err := s.events.List(c.Request.Context(), code, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// handlePlayerAction serves the actions whose body carries only the actor.
func (s *Server) handlePlayerAction(build func(playerID string) game.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req playerRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		code := engine.NormalizeCode(c.Param("code"))
		s.apply(c, code, build(resolvePlayer(c, code, req.PlayerID)))
	}
}

func (s *Server) handlePropose(c *gin.Context) {
	var req proposeRequest
	if !bindJSON(c, &req, bindMessages{
		"Topic": {"topic": "topic must be 1-50 characters"},
	}, "") {
		return
	}
	code := engine.NormalizeCode(c.Param("code"))
	s.apply(c, code, game.Propose{
		PlayerID: resolvePlayer(c, code, req.PlayerID),
		Topic:    req.Topic,
		Skip:     req.Skip,
	})
}

func (s *Server) handleVote(c *gin.Context) {
	var req topicRequest
	if !bindJSON(c, &req, bindMessages{"TopicID": {"required": "topicId is required"}}, "") {
		return
	}
	code := engine.NormalizeCode(c.Param("code"))
	s.apply(c, code, game.Vote{PlayerID: resolvePlayer(c, code, req.PlayerID), TopicID: req.TopicID})
}

func (s *Server) handleSelectTopic(c *gin.Context) {
	var req topicRequest
	if !bindJSON(c, &req, bindMessages{"TopicID": {"required": "topicId is required"}}, "") {
		return
	}
	code := engine.NormalizeCode(c.Param("code"))
	s.apply(c, code, game.SelectTopic{PlayerID: resolvePlayer(c, code, req.PlayerID), TopicID: req.TopicID})
}

func (s *Server) handleAnswer(c *gin.Context) {
	var req answerRequest
	if !bindJSON(c, &req, bindMessages{
		"Answer": {
			"required": "answer is required",
			"answer":   "answer must be 1-30 characters",
		},
	}, "") {
		return
	}
	code := engine.NormalizeCode(c.Param("code"))
	s.apply(c, code, game.Answer{PlayerID: resolvePlayer(c, code, req.PlayerID), Text: req.Answer})
}

func (s *Server) handleSyncScoring(c *gin.Context) {
	var req syncScoringRequest
	if !bindJSON(c, &req, bindMessages{"ScoringGroups": {"required": "scoringGroups is required"}}, "") {
		return
	}
	code := engine.NormalizeCode(c.Param("code"))
	s.apply(c, code, game.SyncScoring{PlayerID: resolvePlayer(c, code, req.PlayerID), Groups: req.ScoringGroups})
}

func (s *Server) handleMoveAnswer(c *gin.Context) {
	var req moveAnswerRequest
	if !bindJSON(c, &req, nil, "targetPlayerId is required") {
		return
	}
	code := engine.NormalizeCode(c.Param("code"))
	s.apply(c, code, game.MoveAnswer{
		PlayerID:       resolvePlayer(c, code, req.PlayerID),
		TargetPlayerID: req.TargetPlayerID,
		GroupID:        req.GroupID,
	})
}

func (s *Server) handleSplitGroup(c *gin.Context) {
	var req splitGroupRequest
	if !bindJSON(c, &req, nil, "groupId and playerIds are required") {
		return
	}
	code := engine.NormalizeCode(c.Param("code"))
	s.apply(c, code, game.SplitGroup{
		PlayerID:  resolvePlayer(c, code, req.PlayerID),
		GroupID:   req.GroupID,
		PlayerIDs: req.PlayerIDs,
	})
}

func (s *Server) handleFinalizeScores(c *gin.Context) {
	var req finalizeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	code := engine.NormalizeCode(c.Param("code"))
	s.apply(c, code, game.FinalizeScores{
		PlayerID:    resolvePlayer(c, code, req.PlayerID),
		Adjustments: req.Adjustments,
	})
}

func (s *Server) handleKick(c *gin.Context) {
	var req kickRequest
	if !bindJSON(c, &req, nil, "targetPlayerId is required") {
		return
	}
	code := engine.NormalizeCode(c.Param("code"))
	s.apply(c, code, game.Kick{
		PlayerID:       resolvePlayer(c, code, req.PlayerID),
		TargetPlayerID: req.TargetPlayerID,
	})
}

func (s *Server) apply(c *gin.Context, code string, action game.Action) {
	room, err := s.engine.Apply(c.Request.Context(), code, action)
	if err != nil {
		respondError(c, err)
		return
	}
	writeRoom(c, http.StatusOK, room, nil)
}
