package model

import "time"

// ConnID identifies a single live connection
type ConnID string

// Identity binds a claimed display name to the connection currently using it
type Identity struct {
	Name        string
	Conn        ConnID // Empty while the reservation is provisional
	Provisional bool
	ReservedAt  time.Time
}

// IsBound returns true if the identity is confirmed by a connection
func (i *Identity) IsBound() bool {
	return !i.Provisional && i.Conn != ""
}
