package httpapi

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body shape of every JSON response.
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    any                 `json:"data"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Status  int                 `json:"status"`
}

const (
	msgRegistered         = "User registered successfully."
	msgRegisterFailed     = "Registration failed."
	msgLoginOK            = "Login successful."
	msgInvalidCreds       = "Invalid credentials."
	msgRefreshed          = "Token refreshed successfully."
	msgRefreshInvalid     = "Invalid or expired refresh token."
	msgLoggedOut          = "Logged out successfully."
	msgProfile            = "Profile retrieved successfully."
	msgUserNotFound       = "User not found."
	msgValidationFailed   = "The given data was invalid."
	msgServiceUnavailable = "Service temporarily unavailable."
	msgInternal           = "Internal server error."
	msgTooManyAttempts    = "Too many login attempts. Please try again later."
)

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	body.Status = status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func success(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

func failure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Message: message})
}

func invalid(w http.ResponseWriter, status int, errs map[string][]string) {
	writeJSON(w, status, Envelope{Success: false, Message: msgValidationFailed, Errors: errs})
}
