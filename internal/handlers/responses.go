package handlers

import (
	"encoding/json"
	"net/http"

	"tradejournal/internal/models"
	"tradejournal/internal/utils"
)

// envelope is the wire shape of every API response.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// currentUser pulls the authenticated user off the request context. The auth
// middleware guarantees it for protected routes; a miss means a wiring bug,
// answered with a 401 rather than a panic.
func currentUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, err := utils.CurrentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return models.User{}, false
	}
	return user, true
}
