package httpapi

import (
	"encoding/json"
	"net/http"
)

const (
	msgUserCreated      = "User created successfully."
	msgUserCreateFailed = "User creation failed."
	msgLoginSuccess     = "Login successful."
	msgLoginFailed      = "Login failed."
	msgRefreshSuccess   = "Token refreshed."
	msgRefreshFailed    = "Token refresh failed."
	msgLogout           = "Logout successful."
	msgUnauthorized     = "Unauthorized."
	msgOK               = "OK"
)

type envelope struct {
	Message string              `json:"message"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func fieldErrors(field, msg string) map[string][]string {
	return map[string][]string{field: {msg}}
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string, errs map[string][]string) {
	writeJSON(w, status, envelope{Message: message, Errors: errs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
