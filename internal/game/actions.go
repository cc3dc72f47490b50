package game

type ActionKind string

const (
	KindJoin              ActionKind = "join"
	KindStart             ActionKind = "start"
	KindPropose           ActionKind = "propose"
	KindForceEndPropose   ActionKind = "force_end_propose"
	KindVote              ActionKind = "vote"
	KindSelectTopic       ActionKind = "select_topic"
	KindAnswer            ActionKind = "answer"
	KindForceEndAnswering ActionKind = "force_end_answering"
	KindSyncScoring       ActionKind = "sync_scoring"
	KindMoveAnswer        ActionKind = "move_answer"
	KindSplitGroup        ActionKind = "split_group"
	KindCreateGroup       ActionKind = "create_group"
	KindFinalizeScores    ActionKind = "finalize_scores"
	KindNextRound         ActionKind = "next_round"
	KindEndGame           ActionKind = "end_game"
	KindKick              ActionKind = "kick"
)

// Action is a player request against a room. The set of implementations is
// closed: every kind has exactly one rule in the machine.
type Action interface {
	Kind() ActionKind
	Actor() string
}

// Join adds a new player; PlayerID is minted by the caller.
type Join struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type Start struct {
	PlayerID string `json:"playerId"`
}

// Propose records a topic, or a skip when Skip is set.
type Propose struct {
	PlayerID string `json:"playerId"`
	Topic    string `json:"topic,omitempty"`
	Skip     bool   `json:"skip,omitempty"`
}

type ForceEndPropose struct {
	PlayerID string `json:"playerId"`
}

type Vote struct {
	PlayerID string `json:"playerId"`
	TopicID  string `json:"topicId"`
}

type SelectTopic struct {
	PlayerID string `json:"playerId"`
	TopicID  string `json:"topicId"`
}

type Answer struct {
	PlayerID string `json:"playerId"`
	Text     string `json:"answer"`
}

type ForceEndAnswering struct {
	PlayerID string `json:"playerId"`
}

// SyncScoring replaces the whole grouping with the host's edited copy.
type SyncScoring struct {
	PlayerID string         `json:"playerId"`
	Groups   []ScoringGroup `json:"scoringGroups"`
}

// MoveAnswer moves a player's answer into GroupID, or into a new group when
// GroupID is empty.
type MoveAnswer struct {
	PlayerID       string `json:"playerId"`
	TargetPlayerID string `json:"targetPlayerId"`
	GroupID        string `json:"groupId,omitempty"`
}

type SplitGroup struct {
	PlayerID  string   `json:"playerId"`
	GroupID   string   `json:"groupId"`
	PlayerIDs []string `json:"playerIds"`
}

type CreateGroup struct {
	PlayerID string `json:"playerId"`
}

// FinalizeScores commits per-player deltas. A nil Adjustments map derives the
// deltas from the current grouping.
type FinalizeScores struct {
	PlayerID    string         `json:"playerId"`
	Adjustments map[string]int `json:"adjustments,omitempty"`
}

type NextRound struct {
	PlayerID string `json:"playerId"`
}

type EndGame struct {
	PlayerID string `json:"playerId"`
}

type Kick struct {
	PlayerID       string `json:"playerId"`
	TargetPlayerID string `json:"targetPlayerId"`
}

func (a Join) Kind() ActionKind              { return KindJoin }
func (a Start) Kind() ActionKind             { return KindStart }
func (a Propose) Kind() ActionKind           { return KindPropose }
func (a ForceEndPropose) Kind() ActionKind   { return KindForceEndPropose }
func (a Vote) Kind() ActionKind              { return KindVote }
func (a SelectTopic) Kind() ActionKind       { return KindSelectTopic }
func (a Answer) Kind() ActionKind            { return KindAnswer }
func (a ForceEndAnswering) Kind() ActionKind { return KindForceEndAnswering }
func (a SyncScoring) Kind() ActionKind       { return KindSyncScoring }
func (a MoveAnswer) Kind() ActionKind        { return KindMoveAnswer }
func (a SplitGroup) Kind() ActionKind        { return KindSplitGroup }
func (a CreateGroup) Kind() ActionKind       { return KindCreateGroup }
func (a FinalizeScores) Kind() ActionKind    { return KindFinalizeScores }
func (a NextRound) Kind() ActionKind         { return KindNextRound }
func (a EndGame) Kind() ActionKind           { return KindEndGame }
func (a Kick) Kind() ActionKind              { return KindKick }

func (a Join) Actor() string              { return a.PlayerID }
func (a Start) Actor() string             { return a.PlayerID }
func (a Propose) Actor() string           { return a.PlayerID }
func (a ForceEndPropose) Actor() string   { return a.PlayerID }
func (a Vote) Actor() string              { return a.PlayerID }
func (a SelectTopic) Actor() string       { return a.PlayerID }
func (a Answer) Actor() string            { return a.PlayerID }
func (a ForceEndAnswering) Actor() string { return a.PlayerID }
func (a SyncScoring) Actor() string       { return a.PlayerID }
func (a MoveAnswer) Actor() string        { return a.PlayerID }
func (a SplitGroup) Actor() string        { return a.PlayerID }
func (a CreateGroup) Actor() string       { return a.PlayerID }
func (a FinalizeScores) Actor() string    { return a.PlayerID }
func (a NextRound) Actor() string         { return a.PlayerID }
func (a EndGame) Actor() string           { return a.PlayerID }
func (a Kick) Actor() string              { return a.PlayerID }
