package model

import "errors"

// Common errors used across the application
var (
	// Identity errors
	ErrNameTaken       = errors.New("name is already in use")
	ErrIdentityUnknown = errors.New("identity not found")
	ErrSpoofedIdentity = errors.New("name is bound to a different connection")

	// Lobby errors
	ErrOfferNotFound      = errors.New("offer not found")
	ErrCreatorUnavailable = errors.New("offer creator is unavailable")
	ErrWrongPassword      = errors.New("wrong password")
	ErrPasswordTooLong    = errors.New("password is too long")
	ErrJoinOwnOffer       = errors.New("cannot join your own offer")

	// Matchmaking errors
	ErrOpponentAbandoned = errors.New("opponent abandoned the challenge")
	ErrNotInGroup        = errors.New("connection is not in the game group")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrNotParticipant  = errors.New("not a participant of this session")
	ErrSessionOver     = errors.New("session is no longer playing")
	ErrSessionActive   = errors.New("session is still being played")
	ErrNoDrawOffered   = errors.New("no draw has been offered")

	// Move errors. Every rejected move wraps ErrIllegalMove.
	ErrIllegalMove     = errors.New("illegal move")
	ErrNotYourTurn     = errors.New("not this player's turn")
	ErrNoPiecesLeft    = errors.New("no pieces of this size left")
	ErrCaptureTooSmall = errors.New("piece must be larger than the one it covers")
	ErrInvalidSquare   = errors.New("invalid square")
	ErrInvalidSize     = errors.New("invalid piece size")

	// Protocol errors
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownEvent   = errors.New("unknown event")
)
