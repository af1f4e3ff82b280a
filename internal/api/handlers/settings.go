package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/settings"
	"github.com/wonny/tradebot/pkg/logger"
)

// SettingsHandler reads and updates the bot settings
type SettingsHandler struct {
	service contracts.SettingsService
	logger  *logger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(service contracts.SettingsService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  log,
	}
}

// GetSettings returns the bot settings
// GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.GetSettings(r.Context())
	switch {
	case errors.Is(err, contracts.ErrSettingsNotConfigured):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, contracts.ErrSettingsAmbiguous):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to get settings")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve settings")
		return
	}

	respondJSON(w, http.StatusOK, s)
}

// UpdateSettings replaces the bot settings
// PUT /api/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req contracts.BotSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := settings.Validate(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SaveSettings(r.Context(), req); err != nil {
		h.logger.WithError(err).Error("Failed to save settings")
		respondError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	saved, err := h.service.GetSettings(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to reload settings")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve settings")
		return
	}

	respondJSON(w, http.StatusOK, saved)
}
