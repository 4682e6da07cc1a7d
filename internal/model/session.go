package model

import "time"

// BoardSize is the number of cells on the 3x3 board
const BoardSize = 9

// StartingPieces is how many pieces of each size a player starts with
const StartingPieces = 2

// PieceSize is the size of a piece. The zero value is an empty cell.
type PieceSize string

const (
	SizeNone   PieceSize = ""
	SizeSmall  PieceSize = "small"
	SizeMedium PieceSize = "medium"
	SizeLarge  PieceSize = "large"
)

// Value returns the ordering weight of the size (none < small < medium < large)
func (s PieceSize) Value() int {
	switch s {
	case SizeSmall:
		return 1
	case SizeMedium:
		return 2
	case SizeLarge:
		return 3
	default:
		return 0
	}
}

// IsPlaceable returns true for sizes a player can put on the board
func (s PieceSize) IsPlaceable() bool {
	return s.Value() > 0
}

// Color identifies a side. The zero value means no owner.
type Color string

const (
	ColorNone Color = ""
	ColorBlue Color = "blue"
	ColorRed  Color = "red"
)

// Other returns the opposing color
func (c Color) Other() Color {
	switch c {
	case ColorBlue:
		return ColorRed
	case ColorRed:
		return ColorBlue
	default:
		return ColorNone
	}
}

// Cell is one square of the board
type Cell struct {
	Size  PieceSize `json:"size"`
	Owner Color     `json:"owner"`
}

// IsEmpty returns true if no piece occupies the cell
func (c Cell) IsEmpty() bool {
	return c.Size == SizeNone
}

// Board is the 3x3 grid in row-major order. Cells are values, so every
// index is owned independently.
type Board [BoardSize]Cell

// IsValidSquare returns true if the index addresses a cell
func IsValidSquare(square int) bool {
	return square >= 0 && square < BoardSize
}

// Pieces is a player's remaining inventory
type Pieces struct {
	Small  int `json:"small"`
	Medium int `json:"medium"`
	Large  int `json:"large"`
}

// NewPieces returns a full starting inventory
func NewPieces() Pieces {
	return Pieces{
		Small:  StartingPieces,
		Medium: StartingPieces,
		Large:  StartingPieces,
	}
}

// Count returns how many pieces of the given size remain
func (p Pieces) Count(size PieceSize) int {
	switch size {
	case SizeSmall:
		return p.Small
	case SizeMedium:
		return p.Medium
	case SizeLarge:
		return p.Large
	default:
		return 0
	}
}

// Take removes one piece of the given size. Returns false if none remain.
func (p *Pieces) Take(size PieceSize) bool {
	var n *int
	switch size {
	case SizeSmall:
		n = &p.Small
	case SizeMedium:
		n = &p.Medium
	case SizeLarge:
		n = &p.Large
	default:
		return false
	}
	if *n <= 0 {
		return false
	}
	*n--
	return true
}

// Player is one side of a session
type Player struct {
	Name   string `json:"name"`
	Pieces Pieces `json:"pieces"`
}

// SessionStatus is the lifecycle state of a session
type SessionStatus string

const (
	StatusPlaying   SessionStatus = "playing"
	StatusWon       SessionStatus = "won"
	StatusAbandoned SessionStatus = "abandoned"
)

// ChatMessage is one entry of a session's chat log
type ChatMessage struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Participants records which connection plays each color
type Participants struct {
	Blue ConnID `json:"-"`
	Red  ConnID `json:"-"`
}

// Session is the authoritative state of one match between two players
type Session struct {
	GameID       GameID        `json:"gameID"`
	PlayerBlue   Player        `json:"playerBlue"`
	PlayerRed    Player        `json:"playerRed"`
	Board        Board         `json:"board"`
	TurnOwner    string        `json:"turnOwner"`
	Status       SessionStatus `json:"status"`
	Winner       Color         `json:"winner,omitempty"`
	WinningCells []int         `json:"winningCells"`
	Chat         []ChatMessage `json:"chat"`

	// DrawOfferedBy is the name of the player with an outstanding draw offer
	DrawOfferedBy string `json:"drawOfferedBy,omitempty"`

	Participants Participants `json:"-"`
	CreatedAt    time.Time    `json:"-"`
	UpdatedAt    time.Time    `json:"-"`
}

// ColorOf returns the color played by the named player
func (s *Session) ColorOf(name string) (Color, bool) {
	switch name {
	case s.PlayerBlue.Name:
		return ColorBlue, true
	case s.PlayerRed.Name:
		return ColorRed, true
	default:
		return ColorNone, false
	}
}

// Player returns the player for a color, or nil
func (s *Session) Player(c Color) *Player {
	switch c {
	case ColorBlue:
		return &s.PlayerBlue
	case ColorRed:
		return &s.PlayerRed
	default:
		return nil
	}
}

// ConnOf returns the connection recorded for a color
func (s *Session) ConnOf(c Color) ConnID {
	switch c {
	case ColorBlue:
		return s.Participants.Blue
	case ColorRed:
		return s.Participants.Red
	default:
		return ""
	}
}

// Opponent returns the name of the other player
func (s *Session) Opponent(name string) (string, bool) {
	c, ok := s.ColorOf(name)
	if !ok {
		return "", false
	}
	return s.Player(c.Other()).Name, true
}

// IsParticipant returns true if the connection plays in this session
func (s *Session) IsParticipant(conn ConnID) bool {
	return conn != "" && (s.Participants.Blue == conn || s.Participants.Red == conn)
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	c := *s
	if s.WinningCells != nil {
		c.WinningCells = append([]int(nil), s.WinningCells...)
	}
	c.Chat = append([]ChatMessage(nil), s.Chat...)
	return &c
}
