package stage

// Game is one entry in the registry: a name plus its stages in play order.
// Stage identifiers are assumed unique within a game; this is not enforced,
// and lookups take the first occurrence.
type Game struct {
	Name   string
	Stages []string
}

// Registry holds the ordered game table. It is built once at startup and
// read-only afterwards, so lookups need no locking. Tables are expected to
// stay small (tens of stages), so a linear scan is fine.
type Registry struct {
	games []Game
}

// NewRegistry copies the given games into an immutable registry.
func NewRegistry(games []Game) *Registry {
	gs := make([]Game, len(games))
	for i, g := range games {
		gs[i] = Game{
			Name:   g.Name,
			Stages: append([]string(nil), g.Stages...),
		}
	}
	return &Registry{games: gs}
}

// Games returns a copy of the registry contents, in registration order.
func (r *Registry) Games() []Game {
	gs := make([]Game, len(r.games))
	for i, g := range r.games {
		gs[i] = Game{
			Name:   g.Name,
			Stages: append([]string(nil), g.Stages...),
		}
	}
	return gs
}

// Len returns the number of games in the registry.
func (r *Registry) Len() int {
	return len(r.games)
}
