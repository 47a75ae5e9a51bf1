// internal/game/registry.go
//
// RoomRegistry: owns the live-room map and the connection → room lookup.
// Both maps live behind the registry's lock and are never reachable as
// package globals; the coordinator receives the registry by injection.
//
// Lock ordering: registry lock first, then a room lock if needed. Nothing
// may call back into the registry while holding a room lock.

package game

import (
	"fmt"
	"math/rand"
	"sync"
)

// Registry creates, looks up and retires rooms.
type Registry struct {
	mu     sync.RWMutex
	cfg    Config
	rooms  map[int]*Room
	byConn map[string]int
}

// NewRegistry constructs an empty registry.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:    cfg,
		rooms:  make(map[int]*Room),
		byConn: make(map[string]int),
	}
}

// CreateRoom registers a waiting room with the host as sole player. The room
// id is rejection-sampled from the configured space until it is non-zero and
// collision-free, with a bounded number of attempts.
func (g *Registry) CreateRoom(hostConn, hostName string, capacity int) (*Room, error) {
	if capacity > g.cfg.MaxPlayers {
		return nil, fmt.Errorf("%w: maximum number of players: %d", ErrCapacityExceeded, g.cfg.MaxPlayers)
	}
	if capacity < 2 {
		return nil, fmt.Errorf("%w: need at least 2 players", ErrCapacityExceeded)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := 0
	for i := 0; i < g.cfg.RoomIDAttempts; i++ {
		candidate := rand.Intn(g.cfg.RoomIDSpace)
		if candidate == 0 {
			continue
		}
		if _, taken := g.rooms[candidate]; taken {
			continue
		}
		id = candidate
		break
	}
	if id == 0 {
		return nil, ErrIDSpaceExhausted
	}

	room := newRoom(id, capacity)
	room.addPlayer(hostConn, hostName)
	g.rooms[id] = room
	g.byConn[hostConn] = id
	return room, nil
}

// JoinRoom seats a player in an existing waiting room and returns it.
func (g *Registry) JoinRoom(roomID int, connID, name string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: room %d does not exist", ErrRoomNotFound, roomID)
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.State != StateWaiting {
		return nil, fmt.Errorf("%w: room %d has already started", ErrRoomNotAccepting, roomID)
	}
	if len(room.players) >= room.Capacity {
		return nil, fmt.Errorf("%w: room %d", ErrRoomFull, roomID)
	}
	room.addPlayer(connID, name)
	g.byConn[connID] = roomID
	return room, nil
}

// Lookup returns the room with the given id.
func (g *Registry) Lookup(roomID int) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[roomID]
	return room, ok
}

// Resolve maps a connection to its room.
func (g *Registry) Resolve(connID string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.byConn[connID]
	if !ok {
		return nil, false
	}
	room, ok := g.rooms[id]
	return room, ok
}

// DropConnection forgets the connection → room mapping. Roster changes are
// the coordinator's job; this only touches the lookup table.
func (g *Registry) DropConnection(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.byConn, connID)
}

// Retire removes a finished (or emptied) room and every lookup entry that
// still points at it.
func (g *Registry) Retire(roomID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, roomID)
	for conn, id := range g.byConn {
		if id == roomID {
			delete(g.byConn, conn)
		}
	}
}

// RoomCount is a diagnostics helper.
func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
