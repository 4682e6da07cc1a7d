package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/EliasAN1/Stacktictoe/internal/api/request"
	"github.com/EliasAN1/Stacktictoe/internal/api/response"
	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/services/identity"
)

// UsernameHandler handles display name reservation
type UsernameHandler struct {
	registry identity.RegistryInterface
	logger   *slog.Logger
}

// NewUsernameHandler creates a new username handler
func NewUsernameHandler(registry identity.RegistryInterface, logger *slog.Logger) *UsernameHandler {
	return &UsernameHandler{
		registry: registry,
		logger:   logger,
	}
}

// Register handles POST /register-username
func (h *UsernameHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if strings.TrimSpace(req.Username) == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}

	err := h.registry.Reserve(req.Username)
	switch {
	case errors.Is(err, model.ErrNameTaken):
		response.JSON(w, http.StatusOK, response.UsernameTaken)
	case err != nil:
		h.logger.Error("failed to reserve username",
			slog.String("player", req.Username),
			slog.String("error", err.Error()))
		WriteError(w, err)
	default:
		response.JSON(w, http.StatusOK, response.UsernameAvailable)
	}
}
