package request

// RegisterUsernameRequest is the request body for reserving a display name
type RegisterUsernameRequest struct {
	Username string `json:"username"`
}
