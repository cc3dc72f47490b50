package game

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityPerm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func newTestMachine() *Machine {
	return NewMachine(WithPermutation(identityPerm))
}

func mustApply(t *testing.T, m *Machine, room *Room, action Action) *Room {
	t.Helper()
	next, err := m.Apply(room, action)
	require.NoError(t, err, "apply %s", action.Kind())
	return next
}

// newStartedRoom returns a room in proposing with host "h" and the given guests.
func newStartedRoom(t *testing.T, m *Machine, guests ...string) *Room {
	t.Helper()
	room, err := NewRoom("ABC123", "h", "Host")
	require.NoError(t, err)
	for _, id := range guests {
		room = mustApply(t, m, room, Join{PlayerID: id, Name: "Player " + id})
	}
	return mustApply(t, m, room, Start{PlayerID: "h"})
}

func toAnswering(t *testing.T, m *Machine, guests ...string) *Room {
	t.Helper()
	room := newStartedRoom(t, m, guests...)
	room = mustApply(t, m, room, Propose{PlayerID: "h", Topic: "Animals"})
	for _, id := range guests {
		room = mustApply(t, m, room, Propose{PlayerID: id, Skip: true})
	}
	for _, id := range append([]string{"h"}, guests...) {
		room = mustApply(t, m, room, Vote{PlayerID: id, TopicID: "h"})
	}
	return mustApply(t, m, room, SelectTopic{PlayerID: "h", TopicID: "h"})
}

func TestNewRoomStartsWaitingWithHost(t *testing.T) {
	room, err := NewRoom("ABC123", "h", "  Ada  ")
	require.NoError(t, err)
	assert.Equal(t, PhaseWaiting, room.Phase)
	assert.Equal(t, 0, room.CurrentRound)
	require.Len(t, room.Players, 1)
	assert.Equal(t, "Ada", room.Players[0].Name)
	assert.True(t, room.Players[0].IsHost)
	assert.Equal(t, "h", room.HostID)

	_, err = NewRoom("ABC123", "h", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestJoinRejectsDuplicateNames(t *testing.T) {
	m := newTestMachine()
	room, err := NewRoom("ABC123", "h", "Ada")
	require.NoError(t, err)

	_, err = m.Apply(room, Join{PlayerID: "p2", Name: "ada"})
	assert.ErrorIs(t, err, ErrNameTaken)
	assert.ErrorIs(t, err, ErrInvalidInput)

	room = mustApply(t, m, room, Join{PlayerID: "p2", Name: "Ben"})
	assert.Len(t, room.Players, 2)
	assert.False(t, room.Players[1].IsHost)
}

func TestJoinRejectedAfterStart(t *testing.T) {
	m := newTestMachine()
	room := newStartedRoom(t, m, "b")
	_, err := m.Apply(room, Join{PlayerID: "late", Name: "Late"})
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestStartRequiresHostAndTwoPlayers(t *testing.T) {
	m := newTestMachine()
	room, err := NewRoom("ABC123", "h", "Ada")
	require.NoError(t, err)

	_, err = m.Apply(room, Start{PlayerID: "h"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	room = mustApply(t, m, room, Join{PlayerID: "b", Name: "Ben"})
	_, err = m.Apply(room, Start{PlayerID: "b"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = m.Apply(room, Start{PlayerID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	room = mustApply(t, m, room, Start{PlayerID: "h"})
	assert.Equal(t, PhaseProposing, room.Phase)
	assert.Equal(t, 1, room.CurrentRound)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	m := newTestMachine()
	room := newStartedRoom(t, m, "b")
	before := room.Clone()

	_ = mustApply(t, m, room, Propose{PlayerID: "b", Topic: "Colors"})
	if diff := cmp.Diff(before, room); diff != "" {
		t.Fatalf("input room changed (-before +after):\n%s", diff)
	}

	_, err := m.Apply(room, Vote{PlayerID: "b", TopicID: "x"})
	require.Error(t, err)
	if diff := cmp.Diff(before, room); diff != "" {
		t.Fatalf("input room changed after failed apply (-before +after):\n%s", diff)
	}
}

func TestProposeAllSubmittedOpensVoting(t *testing.T) {
	m := newTestMachine()
	room := newStartedRoom(t, m, "b", "c")

	room = mustApply(t, m, room, Propose{PlayerID: "h", Topic: "  Fruit   names "})
	room = mustApply(t, m, room, Propose{PlayerID: "b", Skip: true})
	assert.Equal(t, PhaseProposing, room.Phase)
	room = mustApply(t, m, room, Propose{PlayerID: "c", Topic: "Cars"})

	assert.Equal(t, PhaseVoting, room.Phase)
	want := []TopicProposal{
		{ID: "h", PlayerID: "h", PlayerName: "Host", Topic: "Fruit names"},
		{ID: "c", PlayerID: "c", PlayerName: "Player c", Topic: "Cars"},
	}
	if diff := cmp.Diff(want, room.TopicProposals); diff != "" {
		t.Fatalf("unexpected proposals (-want +got):\n%s", diff)
	}
	for _, player := range room.Players {
		assert.False(t, player.HasSubmitted, "player %s", player.ID)
	}
}

func TestProposeValidatesTopic(t *testing.T) {
	m := newTestMachine()
	room := newStartedRoom(t, m, "b")

	_, err := m.Apply(room, Propose{PlayerID: "b", Topic: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	long := make([]rune, MaxTopicLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = m.Apply(room, Propose{PlayerID: "b", Topic: string(long)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAllSkippedSynthesizesSystemTopics(t *testing.T) {
	m := NewMachine(
		WithPermutation(identityPerm),
		WithTopics([]string{"One", "Two", "Three", "Four"}),
		WithSystemTopicCount(2),
	)
	room := newStartedRoom(t, m, "b")
	room = mustApply(t, m, room, Propose{PlayerID: "h", Skip: true})
	room = mustApply(t, m, room, Propose{PlayerID: "b", Skip: true})

	require.Equal(t, PhaseVoting, room.Phase)
	want := []TopicProposal{
		{ID: "system-1", PlayerID: SystemPlayerID, PlayerName: SystemPlayerName, Topic: "One"},
		{ID: "system-2", PlayerID: SystemPlayerID, PlayerName: SystemPlayerName, Topic: "Two"},
	}
	if diff := cmp.Diff(want, room.TopicProposals); diff != "" {
		t.Fatalf("unexpected system proposals (-want +got):\n%s", diff)
	}
	for _, player := range room.Players {
		assert.NotEqual(t, SystemPlayerID, player.ID)
	}
}

func TestForceEndProposeWithThreePlayers(t *testing.T) {
	m := newTestMachine()
	room := newStartedRoom(t, m, "b", "c")
	room = mustApply(t, m, room, Propose{PlayerID: "b", Topic: "Movies"})

	_, err := m.Apply(room, ForceEndPropose{PlayerID: "b"})
	assert.ErrorIs(t, err, ErrForbidden)

	room = mustApply(t, m, room, ForceEndPropose{PlayerID: "h"})
	assert.Equal(t, PhaseVoting, room.Phase)
	require.Len(t, room.TopicProposals, 1)
	assert.Equal(t, "b", room.TopicProposals[0].ID)

	host, _ := room.FindPlayer("h")
	assert.True(t, host.Skipped)
	assert.False(t, host.HasSubmitted)
}

func TestForceEndProposeRejectsEmptySet(t *testing.T) {
	m := newTestMachine()
	room := newStartedRoom(t, m, "b", "c")
	room = mustApply(t, m, room, Propose{PlayerID: "b", Skip: true})

	_, err := m.Apply(room, ForceEndPropose{PlayerID: "h"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVoteTalliesAndTieMovesToTopicSelection(t *testing.T) {
	m := newTestMachine()
	room := newStartedRoom(t, m, "b")
	room = mustApply(t, m, room, Propose{PlayerID: "h", Topic: "Birds"})
	room = mustApply(t, m, room, Propose{PlayerID: "b", Topic: "Fish"})

	_, err := m.Apply(room, Vote{PlayerID: "b", TopicID: "nope"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	room = mustApply(t, m, room, Vote{PlayerID: "h", TopicID: "b"})
	room = mustApply(t, m, room, Vote{PlayerID: "h", TopicID: "h"})
	assert.Equal(t, PhaseVoting, room.Phase)
	assert.Equal(t, 1, room.TopicProposals[0].Votes)
	assert.Equal(t, 0, room.TopicProposals[1].Votes)

	room = mustApply(t, m, room, Vote{PlayerID: "b", TopicID: "b"})
	assert.Equal(t, PhaseTopicSelection, room.Phase)
	assert.Empty(t, room.SelectedTopic)

	total := 0
	for _, proposal := range room.TopicProposals {
		total += proposal.Votes
	}
	assert.Equal(t, 2, total)
}

func TestSelectTopicOpensAnswering(t *testing.T) {
	m := newTestMachine()
	room := toAnswering(t, m, "b")
	assert.Equal(t, PhaseAnswering, room.Phase)
	assert.Equal(t, "Animals", room.SelectedTopic)
	for _, player := range room.Players {
		assert.False(t, player.HasSubmitted)
		assert.Empty(t, player.Answer)
	}
}

func TestAnswersGroupAndFinalize(t *testing.T) {
	m := newTestMachine()
	room := toAnswering(t, m, "b", "c")

	room = mustApply(t, m, room, Answer{PlayerID: "h", Text: "Dog"})
	room = mustApply(t, m, room, Answer{PlayerID: "b", Text: " dog "})
	room = mustApply(t, m, room, Answer{PlayerID: "c", Text: "cat"})

	require.Equal(t, PhaseScoring, room.Phase)
	want := []ScoringGroup{
		{ID: "1", Answers: []string{"Dog", "dog"}, Players: []string{"h", "b"}, Score: 1},
		{ID: "2", Answers: []string{"cat"}, Players: []string{"c"}, Score: 0},
	}
	if diff := cmp.Diff(want, room.ScoringGroups); diff != "" {
		t.Fatalf("unexpected groups (-want +got):\n%s", diff)
	}

	room = mustApply(t, m, room, FinalizeScores{PlayerID: "h"})
	assert.Equal(t, PhaseResults, room.Phase)
	assert.Nil(t, room.ScoringGroups)
	scores := map[string]int{}
	for _, player := range room.Players {
		scores[player.ID] = player.Score
	}
	assert.Equal(t, map[string]int{"h": 1, "b": 1, "c": 0}, scores)

	_, err := m.Apply(room, FinalizeScores{PlayerID: "h"})
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestFinalizeWithExplicitAdjustments(t *testing.T) {
	m := newTestMachine()
	room := toAnswering(t, m, "b")
	room = mustApply(t, m, room, Answer{PlayerID: "h", Text: "x"})
	room = mustApply(t, m, room, Answer{PlayerID: "b", Text: "y"})

	_, err := m.Apply(room, FinalizeScores{PlayerID: "h", Adjustments: map[string]int{"b": -1}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	room = mustApply(t, m, room, FinalizeScores{PlayerID: "h", Adjustments: map[string]int{"b": 1, "gone": 0}})
	b, _ := room.FindPlayer("b")
	h, _ := room.FindPlayer("h")
	assert.Equal(t, 1, b.Score)
	assert.Equal(t, 0, h.Score)
}

func TestFinalizeRejectsOversizedAdjustments(t *testing.T) {
	m := newTestMachine()
	room := toAnswering(t, m, "b", "c")
	room = mustApply(t, m, room, Answer{PlayerID: "h", Text: "x"})
	room = mustApply(t, m, room, Answer{PlayerID: "b", Text: "x"})
	room = mustApply(t, m, room, Answer{PlayerID: "c", Text: "x"})
	require.Equal(t, PhaseScoring, room.Phase)

	for _, delta := range []int{3, math.MaxInt} {
		_, err := m.Apply(room, FinalizeScores{PlayerID: "h", Adjustments: map[string]int{"b": delta}})
		assert.ErrorIs(t, err, ErrInvalidInput, "delta %d", delta)
	}

	next := mustApply(t, m, room, FinalizeScores{PlayerID: "h", Adjustments: map[string]int{"b": 2}})
	b, _ := next.FindPlayer("b")
	assert.Equal(t, 2, b.Score)
}

func TestFinalizeRejectsScoreOverflow(t *testing.T) {
	m := newTestMachine()
	room := toAnswering(t, m, "b")
	room = mustApply(t, m, room, Answer{PlayerID: "h", Text: "same"})
	room = mustApply(t, m, room, Answer{PlayerID: "b", Text: "same"})
	b, _ := room.FindPlayer("b")
	b.Score = math.MaxInt

	_, err := m.Apply(room, FinalizeScores{PlayerID: "h"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = m.Apply(room, FinalizeScores{PlayerID: "h", Adjustments: map[string]int{"b": 0}})
	assert.NoError(t, err)
}

func TestForceEndAnsweringSeedsGroupsWithoutStragglers(t *testing.T) {
	m := newTestMachine()
	room := toAnswering(t, m, "b", "c")
	room = mustApply(t, m, room, Answer{PlayerID: "b", Text: "Blue"})

	room = mustApply(t, m, room, ForceEndAnswering{PlayerID: "h"})
	require.Equal(t, PhaseScoring, room.Phase)
	require.Len(t, room.ScoringGroups, 1)
	assert.Equal(t, []string{"b"}, room.ScoringGroups[0].Players)
	for _, player := range room.Players {
		assert.True(t, player.HasSubmitted)
	}
}

func TestNextRoundResetsPerRoundState(t *testing.T) {
	m := newTestMachine()
	room := toAnswering(t, m, "b")
	room = mustApply(t, m, room, Answer{PlayerID: "h", Text: "a"})
	room = mustApply(t, m, room, Answer{PlayerID: "b", Text: "a"})
	room = mustApply(t, m, room, FinalizeScores{PlayerID: "h"})
	room = mustApply(t, m, room, NextRound{PlayerID: "h"})

	assert.Equal(t, PhaseProposing, room.Phase)
	assert.Equal(t, 2, room.CurrentRound)
	assert.Empty(t, room.TopicProposals)
	assert.Empty(t, room.SelectedTopic)
	for _, player := range room.Players {
		assert.Equal(t, 1, player.Score)
		assert.False(t, player.HasSubmitted)
		assert.Empty(t, player.ProposedTopic)
		assert.Empty(t, player.VotedTopicID)
		assert.Empty(t, player.Answer)
	}
}

func TestKickRemovesVoteAndAdvances(t *testing.T) {
	m := newTestMachine()
	room := newStartedRoom(t, m, "b", "c")
	room = mustApply(t, m, room, Propose{PlayerID: "h", Topic: "Birds"})
	room = mustApply(t, m, room, Propose{PlayerID: "b", Topic: "Fish"})
	room = mustApply(t, m, room, Propose{PlayerID: "c", Skip: true})

	room = mustApply(t, m, room, Vote{PlayerID: "b", TopicID: "h"})
	room = mustApply(t, m, room, Vote{PlayerID: "h", TopicID: "b"})
	require.Equal(t, PhaseVoting, room.Phase)

	_, err := m.Apply(room, Kick{PlayerID: "h", TargetPlayerID: "h"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = m.Apply(room, Kick{PlayerID: "b", TargetPlayerID: "c"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = m.Apply(room, Kick{PlayerID: "h", TargetPlayerID: "zz"})
	assert.ErrorIs(t, err, ErrNotFound)

	room = mustApply(t, m, room, Kick{PlayerID: "h", TargetPlayerID: "c"})
	assert.Equal(t, PhaseTopicSelection, room.Phase)
	assert.Len(t, room.Players, 2)

	room = mustApply(t, m, room, Kick{PlayerID: "h", TargetPlayerID: "b"})
	assert.Equal(t, 0, room.TopicProposals[0].Votes)
	assert.Equal(t, 1, room.TopicProposals[1].Votes)
}

func TestKickDuringScoringDropsFromGroups(t *testing.T) {
	m := newTestMachine()
	room := toAnswering(t, m, "b", "c")
	room = mustApply(t, m, room, Answer{PlayerID: "h", Text: "red"})
	room = mustApply(t, m, room, Answer{PlayerID: "b", Text: "red"})
	room = mustApply(t, m, room, Answer{PlayerID: "c", Text: "blue"})

	room = mustApply(t, m, room, Kick{PlayerID: "h", TargetPlayerID: "c"})
	require.Len(t, room.ScoringGroups, 1)
	assert.Equal(t, []string{"h", "b"}, room.ScoringGroups[0].Players)
}

func TestEndGameBlocksEverything(t *testing.T) {
	m := newTestMachine()
	room := newStartedRoom(t, m, "b")

	_, err := m.Apply(room, EndGame{PlayerID: "b"})
	assert.ErrorIs(t, err, ErrForbidden)

	room = mustApply(t, m, room, EndGame{PlayerID: "h"})
	assert.Equal(t, PhaseEnded, room.Phase)

	for _, action := range []Action{
		Propose{PlayerID: "b", Topic: "x"},
		NextRound{PlayerID: "h"},
		EndGame{PlayerID: "h"},
		Kick{PlayerID: "h", TargetPlayerID: "b"},
	} {
		_, err := m.Apply(room, action)
		if !errors.Is(err, ErrInvalidPhase) {
			t.Fatalf("expected invalid phase for %s, got %v", action.Kind(), err)
		}
	}
}

func TestApplyAcceptsPointerActions(t *testing.T) {
	m := newTestMachine()
	room := newStartedRoom(t, m, "b")
	room = mustApply(t, m, room, &Propose{PlayerID: "b", Topic: "Hats"})
	b, _ := room.FindPlayer("b")
	assert.Equal(t, "Hats", b.ProposedTopic)
}

func TestHostInvariantHoldsThroughRound(t *testing.T) {
	m := newTestMachine()
	room := toAnswering(t, m, "b", "c")
	hosts := 0
	for _, player := range room.Players {
		if player.IsHost {
			hosts++
			assert.Equal(t, room.HostID, player.ID)
		}
	}
	assert.Equal(t, 1, hosts)
}
