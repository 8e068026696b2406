package response

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope every endpoint answers with.
// Message carries validation maps or human-readable text; Response carries
// the payload (or the error detail of a failed send).
type APIResponse struct {
	Status   bool        `json:"status"`
	Message  interface{} `json:"message,omitempty"`
	Response interface{} `json:"response,omitempty"`
	State    string      `json:"state,omitempty"`
}

func write(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, APIResponse{Status: true, Response: data})
}

// Invalid answers a 422 with a per-field validation map.
func Invalid(w http.ResponseWriter, fields map[string]string) {
	write(w, http.StatusUnprocessableEntity, APIResponse{Status: true, Message: fields})
}

func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, APIResponse{Status: false, Message: msg})
}

// Failure reports a failed operation with its detail in the response field.
func Failure(w http.ResponseWriter, status int, detail string) {
	write(w, status, APIResponse{Status: false, Response: detail})
}

// State reports the session state, used by health checks.
func State(w http.ResponseWriter, state string) {
	write(w, http.StatusOK, APIResponse{Status: true, State: state})
}
