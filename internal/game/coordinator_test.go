package game

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reusegame/go-server/internal/rules"
)

// recordedMsg is one frame captured by the fake transport. conn is empty for
// broadcasts.
type recordedMsg struct {
	conn    string
	roomID  int
	event   string
	payload any
}

// fakeTransport records everything the coordinator sends. Safe for use from
// the turn-timer goroutine.
type fakeTransport struct {
	mu   sync.Mutex
	msgs []recordedMsg
}

func (f *fakeTransport) Send(connID string, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, recordedMsg{conn: connID, event: event, payload: payload})
}

func (f *fakeTransport) Broadcast(roomID int, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, recordedMsg{roomID: roomID, event: event, payload: payload})
}

func (f *fakeTransport) JoinRoom(connID string, roomID int)  {}
func (f *fakeTransport) LeaveRoom(connID string, roomID int) {}

// all returns a snapshot of every recorded frame.
func (f *fakeTransport) all() []recordedMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedMsg, len(f.msgs))
	copy(out, f.msgs)
	return out
}

// lastOf returns the most recent frame with the given event name.
func (f *fakeTransport) lastOf(event string) (recordedMsg, bool) {
	msgs := f.all()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].event == event {
			return msgs[i], true
		}
	}
	return recordedMsg{}, false
}

func (f *fakeTransport) countOf(event string) int {
	n := 0
	for _, m := range f.all() {
		if m.event == event {
			n++
		}
	}
	return n
}

type fixedWords struct{ word string }

func (w fixedWords) RandomWord(minLen, maxLen int) (string, error) { return w.word, nil }

type wordlistStub struct{ words map[string]bool }

func (s wordlistStub) Contains(w string) bool   { return s.words[strings.ToLower(w)] }
func (s wordlistStub) IsRejected(w string) bool { return false }

func testWordlist() wordlistStub {
	return wordlistStub{words: map[string]bool{
		"cart": true, "carton": true, "carts": true, "ton": true, "tone": true, "stone": true,
	}}
}

// newTestCoordinator builds a coordinator on fakes. The feed is nil, the
// opening word is always "cart".
func newTestCoordinator(cfg Config) (*Coordinator, *Registry, *fakeTransport) {
	reg := NewRegistry(cfg)
	tr := &fakeTransport{}
	coord := NewCoordinator(cfg, reg, rules.NewValidator(testWordlist()), fixedWords{word: "cart"}, tr, nil)
	return coord, reg, tr
}

// createAndFill creates a room for host plus the given joiners, returning the
// room id. With capacity == len(joiners)+1 the game auto-starts.
func createAndFill(t *testing.T, coord *Coordinator, tr *fakeTransport, capacity int, joiners ...string) int {
	t.Helper()
	coord.HandleCreate("conn-Alice", CreateNewGame{PlayerName: "Alice", NumPlayers: capacity})
	created, ok := tr.lastOf(EvPlayerJoinedRoom)
	require.True(t, ok)
	roomID := created.payload.(PlayerJoinedRoom).RoomID
	for _, name := range joiners {
		coord.HandleJoin("conn-"+name, JoinExistingGame{PlayerName: name, RoomID: roomID})
	}
	return roomID
}

func TestCreateRoomNotifiesHost(t *testing.T) {
	coord, reg, tr := newTestCoordinator(testConfig())

	coord.HandleCreate("conn-Alice", CreateNewGame{PlayerName: "Alice!!", NumPlayers: 2})

	msg, ok := tr.lastOf(EvPlayerJoinedRoom)
	require.True(t, ok)
	payload := msg.payload.(PlayerJoinedRoom)
	assert.Equal(t, "conn-Alice", msg.conn)
	assert.Equal(t, "Alice", payload.PlayerName, "names are sanitized")
	assert.Equal(t, 2, payload.NumPlayers)
	assert.Equal(t, 1, payload.NumPlayersInRoom)
	assert.Equal(t, 1, reg.RoomCount())
}

func TestCreateRoomRejectsBadCapacity(t *testing.T) {
	coord, reg, tr := newTestCoordinator(testConfig())

	coord.HandleCreate("conn-Alice", CreateNewGame{PlayerName: "Alice", NumPlayers: 9})

	msg, ok := tr.lastOf(EvError)
	require.True(t, ok)
	assert.Equal(t, "conn-Alice", msg.conn)
	assert.Contains(t, msg.payload.(ErrorEvent).Message, "maximum number of players")
	assert.Zero(t, reg.RoomCount())
}

func TestJoinAutoStartsAtCapacity(t *testing.T) {
	coord, _, tr := newTestCoordinator(testConfig())

	createAndFill(t, coord, tr, 2, "Bob")

	msg, ok := tr.lastOf(EvNewWord)
	require.True(t, ok)
	payload := msg.payload.(NewWord)
	assert.Equal(t, "CART", payload.CurrWord)
	assert.Equal(t, "-", payload.PlayerName, "the opening word belongs to nobody")
	assert.Equal(t, "conn-Alice", payload.NextPlayerID)
	assert.Equal(t, testConfig().MaxPinBan, payload.NextPinBanLeft)
}

func TestHostStartRequiresTwoPlayers(t *testing.T) {
	coord, _, tr := newTestCoordinator(testConfig())
	roomID := createAndFill(t, coord, tr, 3)

	coord.HandleStart("conn-Alice", StartGame{RoomID: roomID})

	msg, ok := tr.lastOf(EvError)
	require.True(t, ok)
	assert.Equal(t, "Need at least 2 players to start.", msg.payload.(ErrorEvent).Message)
}

func TestOnlyHostMayStart(t *testing.T) {
	coord, _, tr := newTestCoordinator(testConfig())
	roomID := createAndFill(t, coord, tr, 3, "Bob")

	coord.HandleStart("conn-Bob", StartGame{RoomID: roomID})

	msg, ok := tr.lastOf(EvError)
	require.True(t, ok)
	assert.Equal(t, "Only the host can start the game.", msg.payload.(ErrorEvent).Message)
	assert.Zero(t, tr.countOf(EvNewWord))
}

func TestHostStartBeforeCapacity(t *testing.T) {
	coord, _, tr := newTestCoordinator(testConfig())
	roomID := createAndFill(t, coord, tr, 3, "Bob")

	coord.HandleStart("conn-Alice", StartGame{RoomID: roomID})

	msg, ok := tr.lastOf(EvNewWord)
	require.True(t, ok)
	assert.Equal(t, "CART", msg.payload.(NewWord).CurrWord)
}

func TestSubmitOutOfTurn(t *testing.T) {
	coord, _, tr := newTestCoordinator(testConfig())
	createAndFill(t, coord, tr, 2, "Bob")

	coord.HandleNextTurn("conn-Bob", NextTurn{CurrWord: "carton"})

	msg, ok := tr.lastOf(EvError)
	require.True(t, ok)
	assert.Equal(t, "conn-Bob", msg.conn)
	assert.Equal(t, "It is not your turn.", msg.payload.(ErrorEvent).Message)
}

func TestSubmitScoresAndAdvances(t *testing.T) {
	coord, _, tr := newTestCoordinator(testConfig())
	createAndFill(t, coord, tr, 2, "Bob")

	coord.HandleNextTurn("conn-Alice", NextTurn{CurrWord: "carton"})

	msg, ok := tr.lastOf(EvNewWord)
	require.True(t, ok)
	payload := msg.payload.(NewWord)
	assert.Equal(t, "CARTON", payload.CurrWord)
	assert.Equal(t, "Alice", payload.PlayerName)
	assert.Equal(t, "CART", payload.ReusedFragment)
	assert.Equal(t, 40, payload.CurrScore)
	assert.Equal(t, 40, payload.TotalScore)
	assert.Equal(t, "conn-Bob", payload.NextPlayerID)
}

func TestSubmitInvalidWordKeepsState(t *testing.T) {
	coord, reg, tr := newTestCoordinator(testConfig())
	roomID := createAndFill(t, coord, tr, 2, "Bob")
	room, _ := reg.Lookup(roomID)

	coord.HandleNextTurn("conn-Alice", NextTurn{CurrWord: "fizz"})

	msg, ok := tr.lastOf(EvError)
	require.True(t, ok)
	assert.Equal(t, "conn-Alice", msg.conn)
	assert.Contains(t, msg.payload.(ErrorEvent).Message, "Must reuse at least one letter")

	room.mu.Lock()
	defer room.mu.Unlock()
	assert.Equal(t, "CART", room.CurrentWord, "a rejected word changes nothing")
	assert.Equal(t, "Alice", room.currentHolder().Name, "the holder keeps the turn")
	assert.Zero(t, room.players["conn-Alice"].TotalScore)
}

func TestSubmitReplayedWordRejected(t *testing.T) {
	coord, _, tr := newTestCoordinator(testConfig())
	createAndFill(t, coord, tr, 2, "Bob")

	coord.HandleNextTurn("conn-Alice", NextTurn{CurrWord: "carton"})
	coord.HandleNextTurn("conn-Bob", NextTurn{CurrWord: "cart"})

	msg, ok := tr.lastOf(EvError)
	require.True(t, ok)
	assert.Contains(t, msg.payload.(ErrorEvent).Message, "CART has already been played.")
}

func TestPinConstraintFlowsToNextTurn(t *testing.T) {
	coord, reg, tr := newTestCoordinator(testConfig())
	roomID := createAndFill(t, coord, tr, 2, "Bob")
	room, _ := reg.Lookup(roomID)

	coord.HandleNextTurn("conn-Alice", NextTurn{CurrWord: "carton", NextPinOrBan: "pin", NextLetter: "e"})

	msg, _ := tr.lastOf(EvNewWord)
	assert.Equal(t, "pin", msg.payload.(NewWord).PinOrBan)
	assert.Equal(t, "E", msg.payload.(NewWord).Letter)

	// Bob's word must now contain E.
	coord.HandleNextTurn("conn-Bob", NextTurn{CurrWord: "ton"})
	errMsg, ok := tr.lastOf(EvError)
	require.True(t, ok)
	assert.Contains(t, errMsg.payload.(ErrorEvent).Message, "pinned letter: E")

	coord.HandleNextTurn("conn-Bob", NextTurn{CurrWord: "tone"})
	msg, _ = tr.lastOf(EvNewWord)
	assert.Equal(t, "TONE", msg.payload.(NewWord).CurrWord)

	room.mu.Lock()
	assert.Equal(t, 1, room.players["conn-Alice"].PinBanUsed)
	room.mu.Unlock()
}

func TestPinBanBudgetExhaustedIsIgnored(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPinBan = 0
	coord, _, tr := newTestCoordinator(cfg)
	createAndFill(t, coord, tr, 2, "Bob")

	coord.HandleNextTurn("conn-Alice", NextTurn{CurrWord: "carton", NextPinOrBan: "pin", NextLetter: "e"})

	msg, _ := tr.lastOf(EvNewWord)
	assert.Empty(t, msg.payload.(NewWord).PinOrBan, "no budget, no constraint")
	assert.Empty(t, msg.payload.(NewWord).Letter)
}

func TestPassAdvancesWithoutScoring(t *testing.T) {
	coord, reg, tr := newTestCoordinator(testConfig())
	roomID := createAndFill(t, coord, tr, 2, "Bob")
	room, _ := reg.Lookup(roomID)

	coord.HandleNextTurn("conn-Alice", NextTurn{CurrWord: "-"})

	msg, ok := tr.lastOf(EvActivateNextPlayer)
	require.True(t, ok)
	assert.Equal(t, "conn-Bob", msg.payload.(ActivateNextPlayer).NextPlayerID)

	room.mu.Lock()
	defer room.mu.Unlock()
	assert.Equal(t, "CART", room.CurrentWord)
	assert.Zero(t, room.players["conn-Alice"].TotalScore)
}

func TestPassClearsPendingConstraint(t *testing.T) {
	coord, reg, tr := newTestCoordinator(testConfig())
	roomID := createAndFill(t, coord, tr, 3, "Bob", "Cara")
	room, _ := reg.Lookup(roomID)

	coord.HandleNextTurn("conn-Alice", NextTurn{CurrWord: "carton", NextPinOrBan: "ban", NextLetter: "t"})
	coord.HandlePass("conn-Bob")

	room.mu.Lock()
	defer room.mu.Unlock()
	assert.Empty(t, room.PinOrBan, "a pass burns the constraint aimed at it")
	assert.Empty(t, room.Letter)
	assert.Equal(t, "Cara", room.currentHolder().Name)
}

func TestGameOverPicksHighestScore(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTurns = 1
	coord, reg, tr := newTestCoordinator(cfg)
	createAndFill(t, coord, tr, 2, "Bob")

	coord.HandleNextTurn("conn-Alice", NextTurn{CurrWord: "carton"}) // CART reused, 40
	coord.HandleNextTurn("conn-Bob", NextTurn{CurrWord: "tone"})    // TON reused, 30

	msg, ok := tr.lastOf(EvGameOver)
	require.True(t, ok)
	payload := msg.payload.(GameOver)
	require.Len(t, payload.Winners, 1)
	assert.Equal(t, "Alice", payload.Winners[0].Name)
	assert.Equal(t, 40, payload.Winners[0].TotalScore)
	assert.False(t, payload.SkipTurnProcessing)

	assert.Zero(t, reg.RoomCount(), "finished rooms are retired")
}

func TestGameOverTieProducesCoWinners(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTurns = 1
	coord, _, tr := newTestCoordinator(cfg)
	createAndFill(t, coord, tr, 2, "Bob")

	coord.HandleNextTurn("conn-Alice", NextTurn{CurrWord: "carton"}) // CART, 40
	coord.HandleNextTurn("conn-Bob", NextTurn{CurrWord: "carts"})    // CART, 40

	msg, ok := tr.lastOf(EvGameOver)
	require.True(t, ok)
	winners := msg.payload.(GameOver).Winners
	require.Len(t, winners, 2)
	assert.Equal(t, "Alice", winners[0].Name)
	assert.Equal(t, "Bob", winners[1].Name)
}

func TestDisconnectOfHolderAdvancesTurn(t *testing.T) {
	coord, _, tr := newTestCoordinator(testConfig())
	createAndFill(t, coord, tr, 3, "Bob", "Cara")

	coord.HandleDisconnect("conn-Alice")

	left, ok := tr.lastOf(EvPlayerLeftRoom)
	require.True(t, ok)
	assert.Equal(t, "Alice", left.payload.(PlayerLeftRoom).Name)

	msg, ok := tr.lastOf(EvActivateNextPlayer)
	require.True(t, ok)
	assert.Equal(t, "conn-Bob", msg.payload.(ActivateNextPlayer).NextPlayerID)
	assert.Zero(t, tr.countOf(EvGameOver), "two players remain, the game goes on")
}

func TestDisconnectBelowTwoPlayersEndsGame(t *testing.T) {
	coord, reg, tr := newTestCoordinator(testConfig())
	createAndFill(t, coord, tr, 2, "Bob")

	coord.HandleDisconnect("conn-Bob") // not the holder

	msg, ok := tr.lastOf(EvGameOver)
	require.True(t, ok)
	assert.True(t, msg.payload.(GameOver).SkipTurnProcessing)
	assert.Zero(t, reg.RoomCount())
}

func TestDisconnectFromWaitingRoomRetiresWhenEmpty(t *testing.T) {
	coord, reg, tr := newTestCoordinator(testConfig())
	createAndFill(t, coord, tr, 3)

	coord.HandleDisconnect("conn-Alice")

	assert.Zero(t, reg.RoomCount())
	_, ok := tr.lastOf(EvGameOver)
	assert.False(t, ok, "an empty waiting room just disappears")
}

func TestUnknownEventAndMalformedPayload(t *testing.T) {
	coord, _, tr := newTestCoordinator(testConfig())

	coord.HandleEvent("conn-X", "teleport", nil)
	msg, ok := tr.lastOf(EvError)
	require.True(t, ok)
	assert.Equal(t, "Unknown event.", msg.payload.(ErrorEvent).Message)

	coord.HandleEvent("conn-X", EvCreateNewGame, []byte(`{"numPlayers":"two"}`))
	msg, ok = tr.lastOf(EvError)
	require.True(t, ok)
	assert.Equal(t, "Malformed request payload.", msg.payload.(ErrorEvent).Message)
}

func TestTurnTimerPassesOnExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.TurnTimeout = 20 * time.Millisecond
	coord, reg, tr := newTestCoordinator(cfg)
	roomID := createAndFill(t, coord, tr, 2, "Bob")
	room, _ := reg.Lookup(roomID)

	require.Eventually(t, func() bool {
		return tr.countOf(EvActivateNextPlayer) >= 1
	}, time.Second, 5*time.Millisecond, "the countdown passes for an idle holder")

	msg, _ := tr.lastOf(EvActivateNextPlayer)
	assert.Equal(t, "conn-Bob", msg.payload.(ActivateNextPlayer).NextPlayerID)

	room.mu.Lock()
	assert.Zero(t, room.players["conn-Alice"].TotalScore)
	room.mu.Unlock()
}

func TestCompletedTurnDisarmsTimer(t *testing.T) {
	cfg := testConfig()
	cfg.TurnTimeout = 40 * time.Millisecond
	coord, _, tr := newTestCoordinator(cfg)
	createAndFill(t, coord, tr, 2, "Bob")

	coord.HandleNextTurn("conn-Alice", NextTurn{CurrWord: "carton"})

	// Alice's original countdown was disarmed by her submission; the next
	// expiry belongs to Bob and hands the turn back to Alice.
	require.Eventually(t, func() bool {
		return tr.countOf(EvActivateNextPlayer) >= 1
	}, time.Second, 5*time.Millisecond)
	for _, m := range tr.all() {
		if m.event == EvActivateNextPlayer {
			assert.Equal(t, "conn-Alice", m.payload.(ActivateNextPlayer).NextPlayerID)
			break
		}
	}
}
