package game

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeAnswer is the matching key for answers: trimmed and case folded.
func NormalizeAnswer(text string) string {
	return cases.Fold().String(NormalizeText(text))
}

// GroupScore is the points each member of a group of n players receives.
func GroupScore(n int) int {
	return max(0, n-1)
}

// BuildGroups clusters players by normalized answer in join order. Players
// without an answer belong to no group.
func BuildGroups(players []Player) []ScoringGroup {
	groups := make([]ScoringGroup, 0)
	index := make(map[string]int)
	for _, player := range players {
		if player.Answer == "" {
			continue
		}
		key := NormalizeAnswer(player.Answer)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, ScoringGroup{
				ID:      strconv.Itoa(i + 1),
				Answers: []string{},
				Players: []string{},
			})
		}
		groups[i].Players = append(groups[i].Players, player.ID)
	}
	answers := answersByPlayer(players)
	for i := range groups {
		refreshGroup(&groups[i], answers)
	}
	return groups
}

// GroupDeltas maps every grouped player to their group's score.
func GroupDeltas(groups []ScoringGroup) map[string]int {
	deltas := make(map[string]int)
	for _, group := range groups {
		for _, playerID := range group.Players {
			deltas[playerID] = group.Score
		}
	}
	return deltas
}

func answersByPlayer(players []Player) map[string]string {
	answers := make(map[string]string, len(players))
	for _, player := range players {
		if player.Answer != "" {
			answers[player.ID] = player.Answer
		}
	}
	return answers
}

// refreshGroup rebuilds the display answers and score from the members.
func refreshGroup(group *ScoringGroup, answers map[string]string) {
	seen := make(map[string]struct{})
	group.Answers = make([]string, 0, len(group.Players))
	if group.Players == nil {
		group.Players = []string{}
	}
	for _, playerID := range group.Players {
		text := answers[playerID]
		if _, ok := seen[text]; ok || text == "" {
			continue
		}
		seen[text] = struct{}{}
		group.Answers = append(group.Answers, text)
	}
	group.Score = GroupScore(len(group.Players))
}

func refreshGroups(room *Room) {
	answers := answersByPlayer(room.Players)
	for i := range room.ScoringGroups {
		refreshGroup(&room.ScoringGroups[i], answers)
	}
}

func nextGroupID(groups []ScoringGroup) string {
	highest := 0
	for _, group := range groups {
		if n, err := strconv.Atoi(group.ID); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

func groupIndex(groups []ScoringGroup, id string) int {
	return slices.IndexFunc(groups, func(g ScoringGroup) bool {
		return g.ID == id
	})
}

func groupOf(groups []ScoringGroup, playerID string) int {
	return slices.IndexFunc(groups, func(g ScoringGroup) bool {
		return slices.Contains(g.Players, playerID)
	})
}

// removeFromGroups takes playerID out of its group, pruning the group if it
// becomes empty.
func removeFromGroups(room *Room, playerID string) {
	i := groupOf(room.ScoringGroups, playerID)
	if i < 0 {
		return
	}
	group := &room.ScoringGroups[i]
	group.Players = slices.DeleteFunc(group.Players, func(id string) bool {
		return id == playerID
	})
	if len(group.Players) == 0 {
		room.ScoringGroups = slices.Delete(room.ScoringGroups, i, i+1)
	}
	refreshGroups(room)
}

func moveAnswer(room *Room, playerID, groupID string) error {
	source := groupOf(room.ScoringGroups, playerID)
	if source < 0 {
		return invalidInput("player has no answer to move")
	}
	if groupID != "" {
		target := groupIndex(room.ScoringGroups, groupID)
		if target < 0 {
			return invalidInput("group %s not found", groupID)
		}
		if target == source {
			return nil
		}
	} else {
		groupID = nextGroupID(room.ScoringGroups)
		room.ScoringGroups = append(room.ScoringGroups, ScoringGroup{ID: groupID})
	}
	removeFromGroups(room, playerID)
	target := groupIndex(room.ScoringGroups, groupID)
	room.ScoringGroups[target].Players = append(room.ScoringGroups[target].Players, playerID)
	refreshGroups(room)
	return nil
}

func splitGroup(room *Room, groupID string, playerIDs []string) error {
	source := groupIndex(room.ScoringGroups, groupID)
	if source < 0 {
		return invalidInput("group %s not found", groupID)
	}
	if len(playerIDs) == 0 {
		return invalidInput("players to split are required")
	}
	seen := make(map[string]struct{}, len(playerIDs))
	for _, playerID := range playerIDs {
		if _, dup := seen[playerID]; dup {
			return invalidInput("player %s listed twice", playerID)
		}
		seen[playerID] = struct{}{}
		if !slices.Contains(room.ScoringGroups[source].Players, playerID) {
			return invalidInput("player %s is not in group %s", playerID, groupID)
		}
	}
	newID := nextGroupID(room.ScoringGroups)
	room.ScoringGroups = append(room.ScoringGroups, ScoringGroup{ID: newID})
	for _, playerID := range playerIDs {
		removeFromGroups(room, playerID)
	}
	target := groupIndex(room.ScoringGroups, newID)
	room.ScoringGroups[target].Players = append([]string(nil), playerIDs...)
	refreshGroups(room)
	return nil
}

// normalizeGroups validates a client-supplied grouping as an exact partition
// of the answered players and recomputes answers and scores.
func normalizeGroups(room *Room, groups []ScoringGroup) ([]ScoringGroup, error) {
	answered := answersByPlayer(room.Players)
	assigned := make(map[string]struct{}, len(answered))
	ids := make(map[string]struct{}, len(groups))
	out := make([]ScoringGroup, 0, len(groups))
	for _, group := range groups {
		members := make([]string, 0, len(group.Players))
		for _, playerID := range group.Players {
			if _, ok := answered[playerID]; !ok {
				return nil, invalidInput("player %s has no answer this round", playerID)
			}
			if _, dup := assigned[playerID]; dup {
				return nil, invalidInput("player %s appears in more than one group", playerID)
			}
			assigned[playerID] = struct{}{}
			members = append(members, playerID)
		}
		id := strings.TrimSpace(group.ID)
		if _, dup := ids[id]; dup || id == "" {
			id = ""
		} else {
			ids[id] = struct{}{}
		}
		out = append(out, ScoringGroup{ID: id, Players: members})
	}
	if len(assigned) != len(answered) {
		return nil, invalidInput("every answered player must belong to a group")
	}
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = nextGroupID(out)
		}
		refreshGroup(&out[i], answered)
	}
	return out, nil
}
