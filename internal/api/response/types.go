package response

// Reservation replies are bare JSON strings, which is what existing clients parse
const (
	UsernameAvailable = "Username available"
	UsernameTaken     = "This username is already in use!"
)

// Health is the health check response
type Health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}
