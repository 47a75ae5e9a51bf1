// internal/game/room.go
//
// Room state machine: roster in join order, turn sequencing, pin/ban
// bookkeeping and the waiting → started → ended lifecycle.
//
// Concurrency: every room carries its own mutex. Handlers in the
// coordinator lock the room for the whole state transition, so each inbound
// event is applied as one atomic step even when the transport delivers
// events for different connections in parallel.

package game

import (
	"strings"
	"sync"
	"time"
)

// RoomState is the lifecycle phase of a room.
type RoomState int

const (
	StateWaiting RoomState = iota
	StateStarted
	StateEnded
)

func (s RoomState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateStarted:
		return "started"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// Player is one seat in a room, keyed by connection identity.
type Player struct {
	ID            string
	Name          string
	Turn          int // turns taken so far, monotonic
	TotalScore    int
	PinBanUsed    int
	IsCurrentTurn bool
}

// Room owns all mutable state for one game session.
type Room struct {
	mu sync.Mutex

	ID       int
	State    RoomState
	Capacity int

	order   []string // join order of connection ids; also turn order
	players map[string]*Player

	CurrentWord string // most recently accepted word, uppercase
	PinOrBan    string // constraint active for the upcoming submission
	Letter      string
	played      map[string]struct{} // accepted words this game, uppercase

	// Server-authoritative turn countdown. The generation counter lets a
	// fired timer detect that it has been superseded.
	timer    *time.Timer
	timerGen int
}

func newRoom(id, capacity int) *Room {
	return &Room{
		ID:       id,
		State:    StateWaiting,
		Capacity: capacity,
		players:  make(map[string]*Player),
		played:   make(map[string]struct{}),
	}
}

// addPlayer seats a new player. Capacity and state checks live in the
// registry; this only mutates the roster.
func (r *Room) addPlayer(connID, name string) *Player {
	p := &Player{ID: connID, Name: name}
	r.order = append(r.order, connID)
	r.players[connID] = p
	return p
}

// removePlayer unseats connID, returning the removed player, the join-order
// index they occupied and whether they existed.
func (r *Room) removePlayer(connID string) (*Player, int, bool) {
	p, ok := r.players[connID]
	if !ok {
		return nil, -1, false
	}
	delete(r.players, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return p, i, true
		}
	}
	return p, -1, true
}

// roster returns the players in join order.
func (r *Room) roster() []PlayerInfo {
	out := make([]PlayerInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, PlayerInfo{ID: id, Name: r.players[id].Name})
	}
	return out
}

// currentHolder returns the player whose turn it is, nil outside of an
// active game. At most one player holds the turn while the room is started.
func (r *Room) currentHolder() *Player {
	for _, id := range r.order {
		if p := r.players[id]; p.IsCurrentTurn {
			return p
		}
	}
	return nil
}

// hostID is the first-joined connection; only it may start the game early.
func (r *Room) hostID() string {
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

// start moves waiting → started: the first-joined player becomes the turn
// holder with their turn counter at 1, and word is recorded as the opening
// word. Any other state is an illegal transition and mutates nothing.
func (r *Room) start(word string) error {
	if r.State != StateWaiting {
		return ErrInvalidTransition
	}
	first := r.players[r.order[0]]
	first.IsCurrentTurn = true
	first.Turn = 1
	r.State = StateStarted
	r.CurrentWord = strings.ToUpper(word)
	return nil
}

// advance hands the turn from the current holder to the next player in
// cyclic join order and increments their turn counter. Returns the new
// holder, or over=true when the game is finished instead (max turns reached
// or fewer than two players remain).
func (r *Room) advance(maxTurns int) (next *Player, over bool) {
	holder := r.currentHolder()
	if holder == nil {
		return nil, true
	}
	idx := r.indexOf(holder.ID)
	holder.IsCurrentTurn = false
	return r.activateAt(idx+1, maxTurns)
}

// advanceFrom is the disconnect variant: the departed holder is already off
// the roster and fromIdx is the join-order slot they vacated, so the player
// now sitting at that slot is next.
func (r *Room) advanceFrom(fromIdx, maxTurns int) (next *Player, over bool) {
	return r.activateAt(fromIdx, maxTurns)
}

// activateAt makes the player at join-order position i (mod roster size) the
// turn holder, ending the game instead when fewer than two players remain or
// the incoming holder has already played all their turns.
func (r *Room) activateAt(i, maxTurns int) (next *Player, over bool) {
	if len(r.order) < 2 {
		r.State = StateEnded
		return nil, true
	}
	next = r.players[r.order[i%len(r.order)]]
	next.Turn++
	if next.Turn > maxTurns {
		r.State = StateEnded
		return nil, true
	}
	next.IsCurrentTurn = true
	return next, false
}

func (r *Room) indexOf(connID string) int {
	for i, id := range r.order {
		if id == connID {
			return i
		}
	}
	return -1
}

// markPlayed records an accepted word for the already-played rule.
func (r *Room) markPlayed(word string) {
	r.played[strings.ToUpper(word)] = struct{}{}
}

// alreadyPlayed reports whether word was accepted earlier this game.
func (r *Room) alreadyPlayed(word string) bool {
	_, ok := r.played[strings.ToUpper(word)]
	return ok
}

// winners returns every player tied at the maximum total score, in join
// order. No further tie-break is applied.
func (r *Room) winners() []Winner {
	max := 0
	for _, id := range r.order {
		if s := r.players[id].TotalScore; s > max {
			max = s
		}
	}
	var out []Winner
	for _, id := range r.order {
		if p := r.players[id]; p.TotalScore == max {
			out = append(out, Winner{ID: p.ID, Name: p.Name, TotalScore: p.TotalScore})
		}
	}
	return out
}

// stopTimer cancels any pending turn countdown and invalidates in-flight
// fires via the generation counter.
func (r *Room) stopTimer() {
	r.timerGen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
