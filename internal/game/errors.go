package game

import "errors"

// Error taxonomy for room and turn handling. All of these are recovered
// locally: they become a unicast error event to the offending connection and
// never mutate room state.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room full")
	ErrRoomNotAccepting  = errors.New("room is not accepting players")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrIDSpaceExhausted  = errors.New("room id space exhausted")
)
