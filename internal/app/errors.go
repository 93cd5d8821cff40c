package app

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrNotTrained is returned when prediction or simulation is requested
	// before Train has produced embeddings. Fatal; nothing is attempted.
	ErrNotTrained = errors.New("pipeline not trained")

	// ErrMissingEmbedding is returned when no embedding exists for a team
	// appearing in a matchup, for the matchup season or the one before.
	ErrMissingEmbedding = errors.New("no embedding for team")

	// ErrNoCompletedGames is returned when Train is given a dataset with
	// no completed games to learn from.
	ErrNoCompletedGames = errors.New("no completed games in dataset")
)
