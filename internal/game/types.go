package game

import (
	"slices"
	"time"
)

// Phase is the room's current stage in the round life cycle.
type Phase string

const (
	PhaseWaiting        Phase = "waiting"
	PhaseProposing      Phase = "proposing"
	PhaseVoting         Phase = "voting"
	PhaseTopicSelection Phase = "topic_selection"
	PhaseAnswering      Phase = "answering"
	PhaseScoring        Phase = "scoring"
	PhaseResults        Phase = "results"
	PhaseEnded          Phase = "ended"
)

func (p Phase) String() string {
	return string(p)
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseWaiting, PhaseProposing, PhaseVoting, PhaseTopicSelection,
		PhaseAnswering, PhaseScoring, PhaseResults, PhaseEnded:
		return true
	}
	return false
}

const (
	SystemPlayerID   = "system"
	SystemPlayerName = "System"
)

type Room struct {
	Code           string          `json:"code"`
	HostID         string          `json:"hostId"`
	Players        []Player        `json:"players"`
	Phase          Phase           `json:"phase"`
	CurrentRound   int             `json:"currentRound"`
	TopicProposals []TopicProposal `json:"topicProposals"`
	SelectedTopic  string          `json:"selectedTopic,omitempty"`
	ScoringGroups  []ScoringGroup  `json:"scoringGroups,omitempty"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsHost        bool   `json:"isHost"`
	Score         int    `json:"score"`
	ProposedTopic string `json:"proposedTopic,omitempty"`
	Skipped       bool   `json:"skipped,omitempty"`
	VotedTopicID  string `json:"votedTopicId,omitempty"`
	Answer        string `json:"answer,omitempty"`
	HasSubmitted  bool   `json:"hasSubmitted"`
}

type TopicProposal struct {
	ID         string `json:"id"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Topic      string `json:"topic"`
	Votes      int    `json:"votes"`
}

// ScoringGroup is one cluster of matching answers while the host scores.
type ScoringGroup struct {
	ID      string   `json:"id"`
	Answers []string `json:"answers"`
	Players []string `json:"players"`
	Score   int      `json:"score"`
}

// Clone returns a deep copy so callers can mutate without aliasing the source.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	out := *r
	out.Players = slices.Clone(r.Players)
	out.TopicProposals = slices.Clone(r.TopicProposals)
	if r.ScoringGroups != nil {
		out.ScoringGroups = make([]ScoringGroup, len(r.ScoringGroups))
		for i, group := range r.ScoringGroups {
			out.ScoringGroups[i] = ScoringGroup{
				ID:      group.ID,
				Answers: slices.Clone(group.Answers),
				Players: slices.Clone(group.Players),
				Score:   group.Score,
			}
		}
	}
	return &out
}

func (r *Room) FindPlayer(id string) (*Player, bool) {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i], true
		}
	}
	return nil, false
}

func (r *Room) IsHost(id string) bool {
	return id != "" && id == r.HostID
}

func (r *Room) findProposal(id string) (*TopicProposal, bool) {
	for i := range r.TopicProposals {
		if r.TopicProposals[i].ID == id {
			return &r.TopicProposals[i], true
		}
	}
	return nil, false
}

func (r *Room) allSubmitted() bool {
	if len(r.Players) == 0 {
		return false
	}
	for _, player := range r.Players {
		if !player.HasSubmitted {
			return false
		}
	}
	return true
}

func (r *Room) resetSubmissions() {
	for i := range r.Players {
		r.Players[i].HasSubmitted = false
	}
}

// resetRound clears every per-round player field ahead of a fresh proposing phase.
func (r *Room) resetRound() {
	for i := range r.Players {
		player := &r.Players[i]
		player.HasSubmitted = false
		player.ProposedTopic = ""
		player.Skipped = false
		player.VotedTopicID = ""
		player.Answer = ""
	}
	r.TopicProposals = []TopicProposal{}
	r.SelectedTopic = ""
	r.ScoringGroups = nil
}

// tallyVotes recomputes every proposal's count from the players' votes.
func (r *Room) tallyVotes() {
	for i := range r.TopicProposals {
		count := 0
		for _, player := range r.Players {
			if player.VotedTopicID == r.TopicProposals[i].ID {
				count++
			}
		}
		r.TopicProposals[i].Votes = count
	}
}
