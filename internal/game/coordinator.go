// internal/game/coordinator.go
//
// TurnCoordinator: the request/response protocol around the room state
// machine. It resolves the acting connection to a room, applies the
// transition under the room lock, and fans results back out through the
// transport capability (broadcast to the room, unicast for private errors).
//
// Responsibilities:
//   - createNewGame / joinExistingGame / startGame / nextTurn / passTurn.
//   - Disconnect recovery: silent removal, or turn advancement when the
//     departing player held the turn.
//   - Server-authoritative turn countdown that passes on the holder's
//     behalf when it expires.
//   - Game-over detection, winner computation and room retirement.
//
// Side effects (sends, feed announcements, registry teardown) are collected
// into an outbound plan while the room lock is held and applied after it is
// released, so nothing calls back into the registry mid-transition.

package game

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/reusegame/go-server/internal/rules"
)

// Transport is the connection-multiplexing capability the coordinator
// consumes. Sends are fire-and-forget.
type Transport interface {
	Send(connID string, event string, payload any)
	Broadcast(roomID int, event string, payload any)
	JoinRoom(connID string, roomID int)
	LeaveRoom(connID string, roomID int)
}

// WordSource supplies the random opening word for a game.
type WordSource interface {
	RandomWord(minLen, maxLen int) (string, error)
}

// Feed is an optional game-event stream (see internal/stream).
type Feed interface {
	RoomOpened(roomID int)
	Announce(roomID int, message string)
	RoomClosed(roomID int)
}

// Coordinator wires the registry, rule engine and transport together.
type Coordinator struct {
	cfg       Config
	reg       *Registry
	validator *rules.Validator
	words     WordSource
	transport Transport
	feed      Feed // may be nil
}

// NewCoordinator constructs a Coordinator. feed may be nil.
func NewCoordinator(cfg Config, reg *Registry, validator *rules.Validator, words WordSource, transport Transport, feed Feed) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		reg:       reg,
		validator: validator,
		words:     words,
		transport: transport,
		feed:      feed,
	}
}

// --- outbound plan -----------------------------------------------------

type message struct {
	event   string
	payload any
}

type addressed struct {
	conn string
	message
}

// outbound accumulates side effects during a locked transition.
type outbound struct {
	unicasts   []addressed
	broadcasts []message
	notes      []string
	leavers    []string
	retire     bool
}

func (o *outbound) send(conn, event string, payload any) {
	o.unicasts = append(o.unicasts, addressed{conn: conn, message: message{event: event, payload: payload}})
}

func (o *outbound) cast(event string, payload any) {
	o.broadcasts = append(o.broadcasts, message{event: event, payload: payload})
}

func (o *outbound) note(s string) {
	o.notes = append(o.notes, s)
}

// deliver applies the plan: unicasts, broadcasts, feed lines, then registry
// teardown. Called without the room lock.
func (c *Coordinator) deliver(room *Room, out *outbound) {
	for _, u := range out.unicasts {
		c.transport.Send(u.conn, u.event, u.payload)
	}
	for _, b := range out.broadcasts {
		c.transport.Broadcast(room.ID, b.event, b.payload)
	}
	if c.feed != nil {
		for _, n := range out.notes {
			c.feed.Announce(room.ID, n)
		}
	}
	if out.retire {
		for _, id := range out.leavers {
			c.transport.LeaveRoom(id, room.ID)
		}
		c.reg.Retire(room.ID)
		if c.feed != nil {
			c.feed.RoomClosed(room.ID)
		}
		log.Info().Int("room", room.ID).Msg("room retired")
	}
}

// --- transport boundary ------------------------------------------------

// HandleEvent is the transport boundary: it decodes the raw payload into
// the typed message for the event name and dispatches it. Malformed
// payloads and unknown events are unicast back as errors and never reach
// room logic.
func (c *Coordinator) HandleEvent(connID, event string, data json.RawMessage) {
	switch event {
	case EvCreateNewGame:
		var ev CreateNewGame
		if !decode(c, connID, event, data, &ev) {
			return
		}
		c.HandleCreate(connID, ev)
	case EvJoinExistingGame:
		var ev JoinExistingGame
		if !decode(c, connID, event, data, &ev) {
			return
		}
		c.HandleJoin(connID, ev)
	case EvStartGame:
		var ev StartGame
		if !decode(c, connID, event, data, &ev) {
			return
		}
		c.HandleStart(connID, ev)
	case EvNextTurn:
		var ev NextTurn
		if !decode(c, connID, event, data, &ev) {
			return
		}
		c.HandleNextTurn(connID, ev)
	case EvPassTurn:
		c.HandlePass(connID)
	case EvLeaveGame:
		c.HandleDisconnect(connID)
	default:
		c.sendError(connID, event, "Unknown event.")
	}
}

func decode[T any](c *Coordinator, connID, event string, data json.RawMessage, into *T) bool {
	if err := json.Unmarshal(data, into); err != nil {
		log.Warn().Str("event", event).Err(err).Msg("malformed payload")
		c.sendError(connID, event, "Malformed request payload.")
		return false
	}
	return true
}

// --- create / join / start ---------------------------------------------

// HandleCreate creates a room with the sender as host and notifies them.
func (c *Coordinator) HandleCreate(connID string, ev CreateNewGame) {
	name := sanitizeName(ev.PlayerName)
	room, err := c.reg.CreateRoom(connID, name, ev.NumPlayers)
	if err != nil {
		c.sendError(connID, EvCreateNewGame, errText(err))
		return
	}
	c.transport.JoinRoom(connID, room.ID)
	if c.feed != nil {
		c.feed.RoomOpened(room.ID)
	}

	room.mu.Lock()
	payload := PlayerJoinedRoom{
		RoomID:           room.ID,
		ID:               connID,
		PlayerName:       name,
		NumPlayers:       room.Capacity,
		NumPlayersInRoom: len(room.players),
		Players:          room.roster(),
	}
	room.mu.Unlock()

	c.transport.Send(connID, EvPlayerJoinedRoom, payload)
	if c.feed != nil {
		c.feed.Announce(room.ID, name+" created the room")
	}
	log.Info().Int("room", room.ID).Str("player", name).Int("capacity", room.Capacity).Msg("room created")
}

// HandleJoin seats the sender in an existing room, announces the new roster
// to everyone in it, and auto-starts the game once capacity is reached.
func (c *Coordinator) HandleJoin(connID string, ev JoinExistingGame) {
	name := sanitizeName(ev.PlayerName)
	room, err := c.reg.JoinRoom(ev.RoomID, connID, name)
	if err != nil {
		c.sendError(connID, EvJoinExistingGame, errText(err))
		return
	}
	c.transport.JoinRoom(connID, room.ID)

	out := &outbound{}
	room.mu.Lock()
	out.cast(EvPlayerJoinedRoom, PlayerJoinedRoom{
		RoomID:           room.ID,
		ID:               connID,
		PlayerName:       name,
		NumPlayers:       room.Capacity,
		NumPlayersInRoom: len(room.players),
		Players:          room.roster(),
	})
	out.note(name + " joined the room")
	if len(room.players) == room.Capacity {
		c.startRoom(room, out)
	}
	room.mu.Unlock()

	c.deliver(room, out)
	log.Info().Int("room", room.ID).Str("player", name).Msg("player joined")
}

// HandleStart is the host's explicit start request, valid only while the
// room is waiting and holds at least two players.
func (c *Coordinator) HandleStart(connID string, ev StartGame) {
	room, ok := c.reg.Lookup(ev.RoomID)
	if !ok {
		c.sendError(connID, EvStartGame, "Room "+itoa(ev.RoomID)+" does not exist.")
		return
	}

	out := &outbound{}
	room.mu.Lock()
	switch {
	case room.State != StateWaiting:
		out.send(connID, EvError, ErrorEvent{ProcessStep: EvStartGame, Message: "Game has already started."})
	case room.hostID() != connID:
		out.send(connID, EvError, ErrorEvent{ProcessStep: EvStartGame, Message: "Only the host can start the game."})
	case len(room.players) < 2:
		out.send(connID, EvError, ErrorEvent{ProcessStep: EvStartGame, Message: "Need at least 2 players to start."})
	default:
		c.startRoom(room, out)
	}
	room.mu.Unlock()

	c.deliver(room, out)
}

// startRoom moves a waiting room into play: draws the opening word, seats
// the first-joined player as turn holder and announces the first newWord.
// Caller holds the room lock.
func (c *Coordinator) startRoom(room *Room, out *outbound) {
	word, err := c.words.RandomWord(c.cfg.MinWordLen, c.cfg.MaxWordLen)
	if err != nil {
		log.Error().Err(err).Int("room", room.ID).Msg("cannot draw opening word")
		out.cast(EvError, ErrorEvent{ProcessStep: EvStartGame, Message: "Error loading simple word list."})
		return
	}
	if err := room.start(word); err != nil {
		out.cast(EvError, ErrorEvent{ProcessStep: EvStartGame, Message: "Game has already started."})
		return
	}
	first := room.currentHolder()
	room.markPlayed(room.CurrentWord)
	out.cast(EvNewWord, NewWord{
		CurrWord:       room.CurrentWord,
		PlayerName:     "-",
		NextPlayerID:   first.ID,
		NextPlayerName: first.Name,
		NextPinBanLeft: c.cfg.MaxPinBan,
	})
	out.note("game started with " + room.CurrentWord)
	c.armTimer(room)
	log.Info().Int("room", room.ID).Str("word", room.CurrentWord).Msg("game started")
}

// --- turn handling ------------------------------------------------------

// HandleNextTurn validates and applies a word submission.
func (c *Coordinator) HandleNextTurn(connID string, ev NextTurn) {
	room, ok := c.reg.Resolve(connID)
	if !ok {
		c.sendError(connID, EvNextTurn, "Unable to communicate with room.")
		return
	}

	out := &outbound{}
	room.mu.Lock()
	c.submitLocked(room, connID, ev, out)
	room.mu.Unlock()
	c.deliver(room, out)
}

// submitLocked runs steps 2-5 of the turn protocol with the room locked.
func (c *Coordinator) submitLocked(room *Room, connID string, ev NextTurn, out *outbound) {
	if room.State != StateStarted {
		out.send(connID, EvError, ErrorEvent{ProcessStep: EvNextTurn, Message: "Game has not started."})
		return
	}
	holder := room.currentHolder()
	if holder == nil || holder.ID != connID {
		out.send(connID, EvError, ErrorEvent{ProcessStep: EvNextTurn, Message: "It is not your turn."})
		return
	}

	sub := rules.Submission{
		Word:     ev.CurrWord,
		PrevWord: room.CurrentWord,
		PinOrBan: room.PinOrBan,
		Letter:   room.Letter,
	}
	verdict := c.validator.Validate(sub, room.alreadyPlayed)
	if !verdict.OK {
		out.send(connID, EvError, ErrorEvent{ProcessStep: EvNextTurn, Message: verdict.Message()})
		return
	}

	if strings.TrimSpace(ev.CurrWord) == rules.PassWord {
		c.passLocked(room, out)
		return
	}

	word := strings.ToUpper(strings.TrimSpace(ev.CurrWord))
	fragment := rules.LongestReusedFragment(word, room.CurrentWord)
	score := rules.Score(fragment)
	holder.TotalScore += score
	room.CurrentWord = word
	room.markPlayed(word)

	// Constraint for the next player, only while the submitter has budget.
	room.PinOrBan, room.Letter = "", ""
	next := strings.ToLower(strings.TrimSpace(ev.NextPinOrBan))
	if (next == rules.ConstraintPin || next == rules.ConstraintBan) && holder.PinBanUsed < c.cfg.MaxPinBan {
		room.PinOrBan = next
		room.Letter = strings.ToUpper(strings.TrimSpace(ev.NextLetter))
		holder.PinBanUsed++
	}

	room.stopTimer()
	nextPlayer, over := room.advance(c.cfg.MaxTurns)
	if over {
		c.finishLocked(room, out, false)
		return
	}
	out.cast(EvNewWord, NewWord{
		CurrWord:       room.CurrentWord,
		PlayerName:     holder.Name,
		CurrScore:      score,
		TotalScore:     holder.TotalScore,
		ReusedFragment: fragment,
		PinOrBan:       room.PinOrBan,
		Letter:         room.Letter,
		NextPlayerID:   nextPlayer.ID,
		NextPlayerName: nextPlayer.Name,
		NextPinBanLeft: c.cfg.MaxPinBan - nextPlayer.PinBanUsed,
	})
	out.note(holder.Name + " played " + word)
	c.armTimer(room)
}

// HandlePass forfeits the sender's turn without scoring.
func (c *Coordinator) HandlePass(connID string) {
	room, ok := c.reg.Resolve(connID)
	if !ok {
		c.sendError(connID, EvPassTurn, "Unable to communicate with room.")
		return
	}

	out := &outbound{}
	room.mu.Lock()
	switch {
	case room.State != StateStarted:
		out.send(connID, EvError, ErrorEvent{ProcessStep: EvPassTurn, Message: "Game has not started."})
	case room.currentHolder() == nil || room.currentHolder().ID != connID:
		out.send(connID, EvError, ErrorEvent{ProcessStep: EvPassTurn, Message: "It is not your turn."})
	default:
		c.passLocked(room, out)
	}
	room.mu.Unlock()
	c.deliver(room, out)
}

// passLocked advances the turn with no score and no new word. The pending
// pin/ban constraint applied to the forfeited turn only, so it is cleared.
// Caller holds the room lock.
func (c *Coordinator) passLocked(room *Room, out *outbound) {
	room.PinOrBan, room.Letter = "", ""
	room.stopTimer()
	next, over := room.advance(c.cfg.MaxTurns)
	if over {
		c.finishLocked(room, out, false)
		return
	}
	out.cast(EvActivateNextPlayer, ActivateNextPlayer{
		NextPlayerID:   next.ID,
		NextPlayerName: next.Name,
		NextPinBanLeft: c.cfg.MaxPinBan - next.PinBanUsed,
	})
	c.armTimer(room)
}

// finishLocked ends the game: winners are everyone tied at the maximum
// total score. Caller holds the room lock; retirement happens in deliver.
func (c *Coordinator) finishLocked(room *Room, out *outbound, byDisconnect bool) {
	room.State = StateEnded
	room.stopTimer()
	winners := room.winners()
	out.cast(EvGameOver, GameOver{Winners: winners, SkipTurnProcessing: byDisconnect})
	out.leavers = append([]string{}, room.order...)
	out.retire = true
	names := make([]string, 0, len(winners))
	for _, w := range winners {
		names = append(names, w.Name)
	}
	out.note("game over, winner: " + strings.Join(names, ", "))
	log.Info().Int("room", room.ID).Strs("winners", names).Msg("game over")
}

// --- disconnect ---------------------------------------------------------

// HandleDisconnect removes a departed connection from its room, advancing
// the turn when they held it. Disconnects are expected, never an error.
func (c *Coordinator) HandleDisconnect(connID string) {
	room, ok := c.reg.Resolve(connID)
	c.reg.DropConnection(connID)
	if !ok {
		return
	}

	out := &outbound{}
	room.mu.Lock()
	p, ok := room.players[connID]
	if !ok {
		room.mu.Unlock()
		return
	}
	wasHolder := p.IsCurrentTurn
	_, idx, _ := room.removePlayer(connID)
	out.cast(EvPlayerLeftRoom, PlayerLeftRoom{ID: p.ID, Name: p.Name})
	out.note(p.Name + " left the room")

	switch {
	case room.State == StateWaiting:
		if len(room.players) == 0 {
			out.retire = true
		}
	case room.State == StateStarted && len(room.players) < 2:
		// Fewer than two players is an unconditional game-over trigger,
		// whether or not the departing player held the turn.
		room.stopTimer()
		c.finishLocked(room, out, true)
	case room.State == StateStarted && wasHolder:
		// No score for the incomplete turn; the next player simply takes over.
		room.stopTimer()
		next, over := room.advanceFrom(idx, c.cfg.MaxTurns)
		if over {
			c.finishLocked(room, out, true)
		} else {
			out.cast(EvActivateNextPlayer, ActivateNextPlayer{
				NextPlayerID:   next.ID,
				NextPlayerName: next.Name,
				NextPinBanLeft: c.cfg.MaxPinBan - next.PinBanUsed,
			})
			c.armTimer(room)
		}
	}
	room.mu.Unlock()

	c.transport.LeaveRoom(connID, room.ID)
	c.deliver(room, out)
	log.Info().Int("room", room.ID).Str("player", p.Name).Msg("player disconnected")
}

// --- turn countdown -----------------------------------------------------

// armTimer (re)starts the turn countdown. Caller holds the room lock.
func (c *Coordinator) armTimer(room *Room) {
	room.stopTimer()
	if c.cfg.TurnTimeout <= 0 {
		return
	}
	gen := room.timerGen
	room.timer = time.AfterFunc(c.cfg.TurnTimeout, func() {
		c.expireTurn(room, gen)
	})
}

// expireTurn fires when the holder ran out of time: a pass is submitted on
// their behalf. A stale generation means the timer was superseded by a
// completed turn, a disconnect or game over, and is ignored.
func (c *Coordinator) expireTurn(room *Room, gen int) {
	out := &outbound{}
	room.mu.Lock()
	if room.State != StateStarted || gen != room.timerGen {
		room.mu.Unlock()
		return
	}
	holder := room.currentHolder()
	if holder == nil {
		room.mu.Unlock()
		return
	}
	log.Info().Int("room", room.ID).Str("player", holder.Name).Msg("turn expired, passing")
	c.passLocked(room, out)
	room.mu.Unlock()
	c.deliver(room, out)
}

// --- helpers ------------------------------------------------------------

func (c *Coordinator) sendError(connID, step, msg string) {
	c.transport.Send(connID, EvError, ErrorEvent{ProcessStep: step, Message: msg})
}

// sanitizeName keeps alphanumerics and spaces, falling back to "Anonymous".
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == ' ' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	clean := strings.TrimSpace(b.String())
	if clean == "" {
		return "Anonymous"
	}
	return clean
}

// errText uppercases the first rune of err so the message reads well in the
// client's error banner.
func errText(err error) string {
	s := err.Error()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
