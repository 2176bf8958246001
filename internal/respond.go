package internal

import (
	"encoding/json"
	"net/http"
)

type message struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response. A value that cannot be encoded becomes a
// 500 instead of an empty body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(message{Message: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, message{Message: msg})
}
