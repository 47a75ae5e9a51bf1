// internal/game/events.go
//
// Typed wire messages for every event the core consumes or produces.
// Payloads are deserialized and validated at the transport boundary before
// they reach room logic; nothing downstream touches raw JSON.

package game

// Inbound event names.
const (
	EvCreateNewGame    = "createNewGame"
	EvJoinExistingGame = "joinExistingGame"
	EvStartGame        = "startGame"
	EvNextTurn         = "nextTurn"
	EvPassTurn         = "passTurn"
	EvLeaveGame        = "leaveGame"
)

// Outbound event names.
const (
	EvPlayerJoinedRoom   = "playerJoinedRoom"
	EvNewWord            = "newWord"
	EvActivateNextPlayer = "activateNextPlayer"
	EvPlayerLeftRoom     = "playerLeftRoom"
	EvGameOver           = "gameOver"
	EvError              = "error"
)

// --- inbound payloads ---

type CreateNewGame struct {
	PlayerName string `json:"playerName"`
	NumPlayers int    `json:"numPlayers"`
}

type JoinExistingGame struct {
	PlayerName string `json:"playerName"`
	RoomID     int    `json:"roomId"`
}

type StartGame struct {
	RoomID int `json:"roomId"`
}

// NextTurn carries the current submission plus the pin/ban constraint the
// submitter wants to impose on the next player. The previous word is server
// state and deliberately absent: the client is untrusted.
type NextTurn struct {
	CurrWord     string `json:"currWord"`
	NextPinOrBan string `json:"nextPinOrBan"`
	NextLetter   string `json:"nextLetter"`
}

// --- outbound payloads ---

// PlayerInfo is one roster entry, in join order.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlayerJoinedRoom struct {
	RoomID           int          `json:"roomId"`
	ID               string       `json:"id"`
	PlayerName       string       `json:"playerName"`
	NumPlayers       int          `json:"numPlayers"` // room capacity
	NumPlayersInRoom int          `json:"numPlayersInRoom"`
	Players          []PlayerInfo `json:"players"`
}

// NewWord announces an accepted word (or the initial word, where PlayerName
// is "-" and the scores are zero) and hands the turn to the next player.
type NewWord struct {
	CurrWord       string `json:"currWord"`
	PlayerName     string `json:"playerName"`
	CurrScore      int    `json:"currScore"`
	TotalScore     int    `json:"totalScore"`
	ReusedFragment string `json:"reusedFragment"`
	PinOrBan       string `json:"pinOrBan"` // constraint on the upcoming submission
	Letter         string `json:"letter"`
	NextPlayerID   string `json:"nextPlayerId"`
	NextPlayerName string `json:"nextPlayerName"`
	NextPinBanLeft int    `json:"nextPinBanLeft"`
}

// ActivateNextPlayer passes the turn without a new word (pass or timeout or
// holder disconnect).
type ActivateNextPlayer struct {
	NextPlayerID   string `json:"nextPlayerId"`
	NextPlayerName string `json:"nextPlayerName"`
	NextPinBanLeft int    `json:"nextPinBanLeft"`
}

type PlayerLeftRoom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Winner is one game-over roster entry; ties produce several.
type Winner struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TotalScore int    `json:"totalScore"`
}

type GameOver struct {
	Winners            []Winner `json:"winner"`
	SkipTurnProcessing bool     `json:"skipTurnProcessing,omitempty"`
}

// ErrorEvent is unicast to the connection whose request failed. ProcessStep
// names the inbound event that triggered it.
type ErrorEvent struct {
	ProcessStep string `json:"processStep"`
	Message     string `json:"message"`
}
