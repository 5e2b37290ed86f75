package stage

// DefaultLobby is the hub stage players return to after finishing the last
// stage of a game.
const DefaultLobby = "KingsLobby"

// ActionKind classifies the result of Advance.
type ActionKind int

const (
	// ActionUnresolved means the stage is unknown to the registry. Callers
	// log it and stay put; it is never fatal.
	ActionUnresolved ActionKind = iota
	// ActionGoTo means transition to NextAction.Stage.
	ActionGoTo
)

// NextAction is the outcome of completing a stage.
type NextAction struct {
	Kind  ActionKind
	Stage string
}

// Resolver answers stage-position queries against a registry. It holds no
// mutable state; every method is a pure function of the registry and its
// input.
type Resolver struct {
	registry *Registry
	lobby    string
}

// NewResolver creates a resolver over the given registry. An empty lobby
// falls back to DefaultLobby.
func NewResolver(r *Registry, lobby string) *Resolver {
	if lobby == "" {
		lobby = DefaultLobby
	}
	return &Resolver{registry: r, lobby: lobby}
}

// Lobby returns the hub stage identifier.
func (rs *Resolver) Lobby() string {
	return rs.lobby
}

// IsLobby reports whether stageID is the hub stage.
func (rs *Resolver) IsLobby(stageID string) bool {
	return stageID == rs.lobby
}

// locate scans the registry in order for the first game whose stage list
// contains stageID.
func (rs *Resolver) locate(stageID string) (Game, int, bool) {
	for _, g := range rs.registry.games {
		for i, s := range g.Stages {
			if s == stageID {
				return g, i, true
			}
		}
	}
	return Game{}, -1, false
}

// ResolveGame returns the name of the game containing stageID.
func (rs *Resolver) ResolveGame(stageID string) (string, bool) {
	g, _, ok := rs.locate(stageID)
	if !ok {
		return "", false
	}
	return g.Name, true
}

// ResolveIndex returns the zero-based position of stageID within its owning
// game's stage list, or -1 if no game contains it.
func (rs *Resolver) ResolveIndex(stageID string) int {
	_, i, ok := rs.locate(stageID)
	if !ok {
		return -1
	}
	return i
}

// Advance computes where a player goes after completing stageID: the next
// stage of the same game, or the lobby after the game's last stage. An
// unknown stage yields ActionUnresolved and no transition.
func (rs *Resolver) Advance(stageID string) NextAction {
	g, i, ok := rs.locate(stageID)
	if !ok {
		return NextAction{Kind: ActionUnresolved}
	}
	if i < len(g.Stages)-1 {
		return NextAction{Kind: ActionGoTo, Stage: g.Stages[i+1]}
	}
	return NextAction{Kind: ActionGoTo, Stage: rs.lobby}
}
