package game

import "worldofbits.io/internal/sim/token"

// JournalEntry records one interaction after it was applied.
type JournalEntry struct {
	Time   string    `json:"time"`
	Action string    `json:"action"`
	Cell   string    `json:"cell"`
	Kind   string    `json:"kind"`
	Before TokenPair `json:"before"`
	After  TokenPair `json:"after"`
	Won    bool      `json:"won,omitempty"`
}

type TokenPair struct {
	Cell token.Token `json:"cell"`
	Held token.Token `json:"held"`
}

type Journal interface {
	WriteAction(e JournalEntry) error
}
