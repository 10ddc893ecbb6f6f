package httpserver

import "net/http"

// Envelope is the uniform response wrapper every API route returns.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Total   *int   `json:"total,omitempty"`
}

func WriteData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func WriteList(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Total: &total})
}

func WriteMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: true, Message: message})
}

func WriteDataMessage(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

func WriteError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Message: message})
}

// WriteErrorDetail is WriteError with a structured detail payload, used
// by validating services to name the offending fields.
func WriteErrorDetail(w http.ResponseWriter, status int, message string, detail any) {
	writeJSON(w, status, Envelope{Success: false, Message: message, Data: detail})
}
