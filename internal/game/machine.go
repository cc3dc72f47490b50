package game

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
)

// Machine validates actions against a room's phase and produces the next
// room state. It holds no per-room state and is safe for concurrent use.
type Machine struct {
	topics     []string
	topicCount int
	perm       func(n int) []int
}

type Option func(*Machine)

// WithTopics replaces the pool system topics are drawn from.
func WithTopics(topics []string) Option {
	return func(m *Machine) {
		pool := make([]string, 0, len(topics))
		for _, topic := range topics {
			if text := NormalizeText(topic); text != "" {
				pool = append(pool, text)
			}
		}
		if len(pool) > 0 {
			m.topics = pool
		}
	}
}

func WithSystemTopicCount(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.topicCount = n
		}
	}
}

// WithPermutation overrides the shuffle used to draw system topics.
func WithPermutation(perm func(n int) []int) Option {
	return func(m *Machine) {
		if perm != nil {
			m.perm = perm
		}
	}
}

func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		topics:     DefaultTopics(),
		topicCount: 3,
		perm:       rand.Perm,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type rule struct {
	hostOnly bool
	// phases lists where the action is legal; nil means any phase but ended.
	phases []Phase
	apply  func(m *Machine, room *Room, action Action) error
}

// payload extracts the concrete action, accepting pointers as well as values.
func payload[T Action](action Action) (T, error) {
	switch a := any(action).(type) {
	case T:
		return a, nil
	case *T:
		if a != nil {
			return *a, nil
		}
	}
	var zero T
	return zero, invalidInput("malformed %s action", action.Kind())
}

func (r rule) allows(phase Phase) bool {
	if r.phases == nil {
		return phase != PhaseEnded
	}
	return slices.Contains(r.phases, phase)
}

var rules = map[ActionKind]rule{
	KindJoin:              {phases: []Phase{PhaseWaiting}, apply: (*Machine).join},
	KindStart:             {hostOnly: true, phases: []Phase{PhaseWaiting}, apply: (*Machine).start},
	KindPropose:           {phases: []Phase{PhaseProposing}, apply: (*Machine).propose},
	KindForceEndPropose:   {hostOnly: true, phases: []Phase{PhaseProposing}, apply: (*Machine).forceEndPropose},
	KindVote:              {phases: []Phase{PhaseVoting}, apply: (*Machine).vote},
	KindSelectTopic:       {hostOnly: true, phases: []Phase{PhaseTopicSelection}, apply: (*Machine).selectTopic},
	KindAnswer:            {phases: []Phase{PhaseAnswering}, apply: (*Machine).answer},
	KindForceEndAnswering: {hostOnly: true, phases: []Phase{PhaseAnswering}, apply: (*Machine).forceEndAnswering},
	KindSyncScoring:       {hostOnly: true, phases: []Phase{PhaseScoring}, apply: (*Machine).syncScoring},
	KindMoveAnswer:        {hostOnly: true, phases: []Phase{PhaseScoring}, apply: (*Machine).moveAnswer},
	KindSplitGroup:        {hostOnly: true, phases: []Phase{PhaseScoring}, apply: (*Machine).splitGroup},
	KindCreateGroup:       {hostOnly: true, phases: []Phase{PhaseScoring}, apply: (*Machine).createGroup},
	KindFinalizeScores:    {hostOnly: true, phases: []Phase{PhaseScoring}, apply: (*Machine).finalizeScores},
	KindNextRound:         {hostOnly: true, phases: []Phase{PhaseResults}, apply: (*Machine).nextRound},
	KindEndGame:           {hostOnly: true, apply: (*Machine).endGame},
	KindKick:              {hostOnly: true, apply: (*Machine).kick},
}

// Apply checks the action in a fixed order (player existence, host
// permission, phase, payload) and returns the next room state. The input room
// is never modified.
func (m *Machine) Apply(room *Room, action Action) (*Room, error) {
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if action == nil {
		return nil, invalidInput("action is required")
	}
	r, ok := rules[action.Kind()]
	if !ok {
		return nil, invalidInput("unknown action %q", action.Kind())
	}
	if action.Kind() != KindJoin {
		if _, ok := room.FindPlayer(action.Actor()); !ok {
			return nil, ErrPlayerNotFound
		}
		if r.hostOnly && !room.IsHost(action.Actor()) {
			return nil, ErrNotHost
		}
	}
	if !r.allows(room.Phase) {
		return nil, phaseError(action.Kind(), room.Phase)
	}
	next := room.Clone()
	if err := r.apply(m, next, action); err != nil {
		return nil, err
	}
	return next, nil
}

// NewRoom builds a room in the waiting phase with hostName as its only player.
func NewRoom(code, hostID, hostName string) (*Room, error) {
	name, err := ValidateName(hostName)
	if err != nil {
		return nil, err
	}
	if hostID == "" || hostID == SystemPlayerID {
		return nil, invalidInput("host id is required")
	}
	return &Room{
		Code:   code,
		HostID: hostID,
		Players: []Player{{
			ID:     hostID,
			Name:   name,
			IsHost: true,
		}},
		Phase:          PhaseWaiting,
		TopicProposals: []TopicProposal{},
	}, nil
}

func (m *Machine) join(room *Room, action Action) error {
	a, err := payload[Join](action)
	if err != nil {
		return err
	}
	if a.PlayerID == "" || a.PlayerID == SystemPlayerID {
		return invalidInput("player id is required")
	}
	name, err := ValidateName(a.Name)
	if err != nil {
		return err
	}
	for _, player := range room.Players {
		if player.ID == a.PlayerID {
			return invalidInput("player already joined")
		}
		if strings.EqualFold(player.Name, name) {
			return ErrNameTaken
		}
	}
	room.Players = append(room.Players, Player{
		ID:     a.PlayerID,
		Name:   name,
		IsHost: len(room.Players) == 0,
	})
	if len(room.Players) == 1 {
		room.HostID = a.PlayerID
	}
	return nil
}

func (m *Machine) start(room *Room, _ Action) error {
	if len(room.Players) < 2 {
		return invalidInput("at least 2 players are required")
	}
	room.resetRound()
	room.CurrentRound++
	room.Phase = PhaseProposing
	return nil
}

func (m *Machine) propose(room *Room, action Action) error {
	a, err := payload[Propose](action)
	if err != nil {
		return err
	}
	topic := ""
	if !a.Skip {
		text, err := ValidateTopic(a.Topic)
		if err != nil {
			return err
		}
		topic = text
	}
	player, _ := room.FindPlayer(a.PlayerID)
	player.ProposedTopic = topic
	player.Skipped = a.Skip
	player.HasSubmitted = true
	if room.allSubmitted() {
		m.openVoting(room, buildProposals(room))
	}
	return nil
}

func (m *Machine) forceEndPropose(room *Room, _ Action) error {
	proposals := buildProposals(room)
	if len(proposals) == 0 {
		return invalidInput("no topics have been proposed")
	}
	for i := range room.Players {
		player := &room.Players[i]
		if !player.HasSubmitted {
			player.ProposedTopic = ""
			player.Skipped = true
			player.HasSubmitted = true
		}
	}
	m.openVoting(room, proposals)
	return nil
}

// openVoting moves to voting with the given proposals, synthesizing system
// topics when none survived.
func (m *Machine) openVoting(room *Room, proposals []TopicProposal) {
	if len(proposals) == 0 {
		proposals = m.systemProposals()
	}
	room.TopicProposals = proposals
	for i := range room.Players {
		room.Players[i].VotedTopicID = ""
	}
	room.resetSubmissions()
	room.Phase = PhaseVoting
}

func buildProposals(room *Room) []TopicProposal {
	proposals := make([]TopicProposal, 0, len(room.Players))
	for _, player := range room.Players {
		if player.Skipped || player.ProposedTopic == "" {
			continue
		}
		proposals = append(proposals, TopicProposal{
			ID:         player.ID,
			PlayerID:   player.ID,
			PlayerName: player.Name,
			Topic:      player.ProposedTopic,
		})
	}
	return proposals
}

func (m *Machine) systemProposals() []TopicProposal {
	count := min(m.topicCount, len(m.topics))
	order := m.perm(len(m.topics))
	proposals := make([]TopicProposal, 0, count)
	for i := 0; i < count && i < len(order); i++ {
		proposals = append(proposals, TopicProposal{
			ID:         fmt.Sprintf("%s-%d", SystemPlayerID, i+1),
			PlayerID:   SystemPlayerID,
			PlayerName: SystemPlayerName,
			Topic:      m.topics[order[i]],
		})
	}
	return proposals
}

func (m *Machine) vote(room *Room, action Action) error {
	a, err := payload[Vote](action)
	if err != nil {
		return err
	}
	if _, ok := room.findProposal(a.TopicID); !ok {
		return invalidInput("topic not found")
	}
	player, _ := room.FindPlayer(a.PlayerID)
	player.VotedTopicID = a.TopicID
	player.HasSubmitted = true
	room.tallyVotes()
	if room.allSubmitted() {
		room.Phase = PhaseTopicSelection
	}
	return nil
}

func (m *Machine) selectTopic(room *Room, action Action) error {
	a, err := payload[SelectTopic](action)
	if err != nil {
		return err
	}
	proposal, ok := room.findProposal(a.TopicID)
	if !ok {
		return invalidInput("topic not found")
	}
	room.SelectedTopic = proposal.Topic
	for i := range room.Players {
		room.Players[i].Answer = ""
	}
	room.resetSubmissions()
	room.Phase = PhaseAnswering
	return nil
}

func (m *Machine) answer(room *Room, action Action) error {
	a, err := payload[Answer](action)
	if err != nil {
		return err
	}
	text, err := ValidateAnswer(a.Text)
	if err != nil {
		return err
	}
	player, _ := room.FindPlayer(a.PlayerID)
	player.Answer = text
	player.HasSubmitted = true
	if room.allSubmitted() {
		openScoring(room)
	}
	return nil
}

func (m *Machine) forceEndAnswering(room *Room, _ Action) error {
	for i := range room.Players {
		player := &room.Players[i]
		if !player.HasSubmitted {
			player.Answer = ""
			player.HasSubmitted = true
		}
	}
	openScoring(room)
	return nil
}

func openScoring(room *Room) {
	room.ScoringGroups = BuildGroups(room.Players)
	room.Phase = PhaseScoring
}

func (m *Machine) syncScoring(room *Room, action Action) error {
	a, err := payload[SyncScoring](action)
	if err != nil {
		return err
	}
	groups, err := normalizeGroups(room, a.Groups)
	if err != nil {
		return err
	}
	room.ScoringGroups = groups
	return nil
}

func (m *Machine) moveAnswer(room *Room, action Action) error {
	a, err := payload[MoveAnswer](action)
	if err != nil {
		return err
	}
	return moveAnswer(room, a.TargetPlayerID, a.GroupID)
}

func (m *Machine) splitGroup(room *Room, action Action) error {
	a, err := payload[SplitGroup](action)
	if err != nil {
		return err
	}
	return splitGroup(room, a.GroupID, a.PlayerIDs)
}

func (m *Machine) createGroup(room *Room, _ Action) error {
	room.ScoringGroups = append(room.ScoringGroups, ScoringGroup{
		ID:      nextGroupID(room.ScoringGroups),
		Answers: []string{},
		Players: []string{},
	})
	return nil
}

func (m *Machine) finalizeScores(room *Room, action Action) error {
	a, err := payload[FinalizeScores](action)
	if err != nil {
		return err
	}
	deltas := a.Adjustments
	if deltas == nil {
		deltas = GroupDeltas(room.ScoringGroups)
	}
	// No group can score more than every other player matching.
	maxDelta := len(room.Players) - 1
	for playerID, delta := range deltas {
		if delta < 0 {
			return invalidInput("score adjustment for %s must not be negative", playerID)
		}
		if delta > maxDelta {
			return invalidInput("score adjustment for %s must be at most %d", playerID, maxDelta)
		}
	}
	for _, player := range room.Players {
		if player.Score > math.MaxInt-deltas[player.ID] {
			return invalidInput("score for %s would overflow", player.ID)
		}
	}
	for i := range room.Players {
		room.Players[i].Score += deltas[room.Players[i].ID]
	}
	room.ScoringGroups = nil
	room.Phase = PhaseResults
	return nil
}

func (m *Machine) nextRound(room *Room, _ Action) error {
	room.resetRound()
	room.CurrentRound++
	room.Phase = PhaseProposing
	return nil
}

func (m *Machine) endGame(room *Room, _ Action) error {
	room.ScoringGroups = nil
	room.Phase = PhaseEnded
	return nil
}

func (m *Machine) kick(room *Room, action Action) error {
	a, err := payload[Kick](action)
	if err != nil {
		return err
	}
	if a.TargetPlayerID == a.PlayerID {
		return fmt.Errorf("%w: cannot kick yourself", ErrForbidden)
	}
	index := slices.IndexFunc(room.Players, func(p Player) bool {
		return p.ID == a.TargetPlayerID
	})
	if index < 0 {
		return ErrPlayerNotFound
	}
	room.Players = slices.Delete(room.Players, index, index+1)
	room.tallyVotes()
	if room.Phase == PhaseScoring {
		removeFromGroups(room, a.TargetPlayerID)
	}
	m.advanceIfComplete(room)
	return nil
}

// advanceIfComplete re-runs the all-submitted check after the player set
// shrinks.
func (m *Machine) advanceIfComplete(room *Room) {
	if !room.allSubmitted() {
		return
	}
	switch room.Phase {
	case PhaseProposing:
		m.openVoting(room, buildProposals(room))
	case PhaseVoting:
		room.Phase = PhaseTopicSelection
	case PhaseAnswering:
		openScoring(room)
	}
}
