package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// EventType names a message exchanged over a realtime connection
type EventType string

// Inbound events
const (
	EventConnect                 EventType = "connect"
	EventDisconnect              EventType = "disconnect"
	EventJoinGame                EventType = "joinGame"
	EventGoBackToLobby           EventType = "goBackToLobby"
	EventAcceptChallenge         EventType = "acceptChallenge"
	EventDeclineChallenge        EventType = "declineChallenge"
	EventCheckChallengedOpponent EventType = "checkChallengedOpponent"
	EventChallengeAgain          EventType = "challengeAgain"
	EventAcceptDraw              EventType = "acceptDraw"
	EventDeclineDraw             EventType = "declineDraw"
	EventOfferDraw               EventType = "offerDraw"
	EventQuitGame                EventType = "quitGame"
	EventIsOpponentAlive         EventType = "isOpponentAlive"
	EventPlayerMadeAMove         EventType = "playerMadeAMove"
	EventMessage                 EventType = "message"
	EventCreateNewGame           EventType = "createNewGame"
	EventDeleteCreatedGame       EventType = "deleteCreatedGame"
	EventSaveUsername            EventType = "saveUsername"
	EventDeleteUsername          EventType = "deleteUsername"
)

// Outbound events
const (
	EventUpdateGames                EventType = "updateGames"
	EventEnterGame                  EventType = "enterGame"
	EventPlayerIsUnavailable        EventType = "playerIsUnavailable"
	EventWrongPassword              EventType = "wrongPassword"
	EventAcceptedChallenge          EventType = "acceptedChallenge"
	EventNewGameChallenge           EventType = "newGameChallenge"
	EventDeclinedChallenge          EventType = "declinedChallenge"
	EventChallengedAgain            EventType = "challengedAgain"
	EventAcceptedDraw               EventType = "acceptedDraw"
	EventDeclinedDraw               EventType = "declinedDraw"
	EventOfferingADraw              EventType = "offeringADraw"
	EventOpponentLeftTheGame        EventType = "opponentLeftTheGame"
	EventOpponentLostConnection     EventType = "opponentLostConnection"
	EventOpponentMadeAMove          EventType = "opponentMadeAMove"
	EventNewMessage                 EventType = "newMessage"
	EventClearToGoLobby             EventType = "clearToGoLobby"
	EventOpponentAbandonedChallenge EventType = "opponentAbandonedChallenge"
)

// Envelope is the wire frame for every realtime message
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes a payload into an envelope. A nil payload produces no data.
func NewEnvelope(event EventType, payload any) (Envelope, error) {
	env := Envelope{Event: event}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", event, err)
	}
	env.Data = data
	return env, nil
}

// Decode unmarshals the envelope data into v
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 || bytes.Equal(e.Data, []byte("null")) {
		return ErrMalformedEvent
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return nil
}

// GameRef carries a game id. Clients send either a bare id or {"gameID": id},
// and ids may be numbers or numeric strings.
type GameRef struct {
	GameID GameID
}

func (r *GameRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			GameID json.RawMessage `json:"gameID"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		data = obj.GameID
	}
	id, err := decodeGameID(data)
	if err != nil {
		return err
	}
	r.GameID = id
	return nil
}

func decodeGameID(data []byte) (GameID, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, fmt.Errorf("%w: missing game id", ErrMalformedEvent)
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, err
		}
		id, err := ParseGameID(s)
		if err != nil {
			return 0, fmt.Errorf("%w: game id %q", ErrMalformedEvent, s)
		}
		return id, nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: game id %s", ErrMalformedEvent, data)
	}
	return GameID(n), nil
}

// NameRef carries a display name. Clients send either a bare string or an
// object with a username or creatorName field.
type NameRef struct {
	Name string
}

func (r *NameRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Username    string `json:"username"`
			CreatorName string `json:"creatorName"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.Name = obj.Username
		if r.Name == "" {
			r.Name = obj.CreatorName
		}
		return nil
	}
	return json.Unmarshal(data, &r.Name)
}

// JoinGameRequest is the joinGame payload. Only CreatorName and UserPassword
// are trusted; the offer itself is looked up by creator.
type JoinGameRequest struct {
	GameID       json.RawMessage `json:"gameID,omitempty"`
	CreatorName  string          `json:"creatorName"`
	Password     bool            `json:"password,omitempty"`
	UserPassword string          `json:"userPassword,omitempty"`
}

// ChallengePlayer is the player shape sent back by clients on acceptChallenge
type ChallengePlayer struct {
	Name string `json:"name"`
}

// AcceptChallengeRequest is the acceptChallenge payload
type AcceptChallengeRequest struct {
	GameID     GameID          `json:"gameID"`
	PlayerBlue ChallengePlayer `json:"playerBlue"`
	PlayerRed  ChallengePlayer `json:"playerRed"`
	Chat       []ChatMessage   `json:"chat"`
}

func (r *AcceptChallengeRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		GameID     json.RawMessage `json:"gameID"`
		PlayerBlue ChallengePlayer `json:"playerBlue"`
		PlayerRed  ChallengePlayer `json:"playerRed"`
		Chat       []ChatMessage   `json:"chat"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := decodeGameID(raw.GameID)
	if err != nil {
		return err
	}
	r.GameID = id
	r.PlayerBlue = raw.PlayerBlue
	r.PlayerRed = raw.PlayerRed
	r.Chat = raw.Chat
	return nil
}

// MoveRequest is the playerMadeAMove payload
type MoveRequest struct {
	GameID         GameID    `json:"gameID"`
	PlayerUsername string    `json:"playerUsername"`
	SquareID       int       `json:"squareId"`
	Size           PieceSize `json:"size"`
}

func (r *MoveRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		GameID         json.RawMessage `json:"gameID"`
		PlayerUsername string          `json:"playerUsername"`
		SquareID       *int            `json:"squareId"`
		Size           PieceSize       `json:"size"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := decodeGameID(raw.GameID)
	if err != nil {
		return err
	}
	if raw.SquareID == nil {
		return fmt.Errorf("%w: missing squareId", ErrMalformedEvent)
	}
	r.GameID = id
	r.PlayerUsername = raw.PlayerUsername
	r.SquareID = *raw.SquareID
	r.Size = raw.Size
	return nil
}

// MessageRequest is the message (chat) payload
type MessageRequest struct {
	GameID   GameID `json:"gameID"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

func (r *MessageRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		GameID   json.RawMessage `json:"gameID"`
		Username string          `json:"username"`
		Message  string          `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := decodeGameID(raw.GameID)
	if err != nil {
		return err
	}
	r.GameID = id
	r.Username = raw.Username
	r.Message = raw.Message
	return nil
}

// CreateGameRequest is the createNewGame payload
type CreateGameRequest struct {
	CreatorName string `json:"creatorName"`
	Password    string `json:"password"`
}
