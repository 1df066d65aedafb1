package gameapi

import (
	"errors"
	"fmt"

	"example.com/puyo-bridge/internal/puyo"
)

// State is one poll response: the whole match as seen by Player.
type State struct {
	Time        int          `json:"time"`
	NumColors   int          `json:"numColors"`
	NumPlayers  int          `json:"numPlayers"`
	NumDeals    int          `json:"numDeals"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Player      int          `json:"player"`
	CanPlay     bool         `json:"canPlay"`
	ChildStates []ChildState `json:"childStates"`
	Status      Status       `json:"status"`
	Deals       []puyo.Pair  `json:"deals"`
}

// ChildState is the per-player part of a State.
type ChildState struct {
	Time            int         `json:"time"`
	TotalScore      int         `json:"totalScore"`
	ChainScore      int         `json:"chainScore"`
	ChainNumber     int         `json:"chainNumber"`
	PendingNuisance int         `json:"pendingNuisance"`
	GameOvers       int         `json:"gameOvers"`
	Width           int         `json:"width"`
	Height          int         `json:"height"`
	GhostHeight     int         `json:"ghostHeight"`
	Blocks          []puyo.Cell `json:"blocks"`
	Player          int         `json:"player"`
	DealIndex       int         `json:"dealIndex"`
}

type Status struct {
	Terminated bool   `json:"terminated"`
	Result     string `json:"result,omitempty"`
}

// Ack is the provider's answer to a submitted placement.
type Ack struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

type Game struct {
	ID string `json:"id"`
}

var ErrBadState = errors.New("bad game state")

// Players returns the self and opponent child states, in that order.
func (s State) Players() (self, opp ChildState, err error) {
	if len(s.ChildStates) != 2 {
		return ChildState{}, ChildState{}, fmt.Errorf("%w: %d child states", ErrBadState, len(s.ChildStates))
	}
	if s.Player != 0 && s.Player != 1 {
		return ChildState{}, ChildState{}, fmt.Errorf("%w: player %d", ErrBadState, s.Player)
	}
	return s.ChildStates[s.Player], s.ChildStates[1-s.Player], nil
}

// DealWindow returns up to n deals starting at index. Fewer are returned when
// the global deal list runs out.
func (s State) DealWindow(index, n int) []puyo.Pair {
	if index < 0 || index >= len(s.Deals) || n <= 0 {
		return []puyo.Pair{}
	}
	end := min(index+n, len(s.Deals))
	return append([]puyo.Pair(nil), s.Deals[index:end]...)
}

// CurrentDeal is the pair the self player is about to place.
func (s State) CurrentDeal() (puyo.Pair, bool) {
	self, _, err := s.Players()
	if err != nil || self.DealIndex < 0 || self.DealIndex >= len(s.Deals) {
		return puyo.Pair{}, false
	}
	return s.Deals[self.DealIndex], true
}

// Geometry derives board dimensions, falling back to the defaults.
func (s State) Geometry() puyo.Geometry {
	g := puyo.DefaultGeometry
	if s.Width > 0 {
		g.Width = s.Width
	}
	if s.Height > 0 {
		g.Height = s.Height
	}
	if len(s.ChildStates) > 0 && s.ChildStates[0].GhostHeight > 0 {
		g.GhostHeight = s.ChildStates[0].GhostHeight
	}
	return g
}
