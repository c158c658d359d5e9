package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/karlseguin/jsonwriter"
)

// IsJson will check if the Content-Type of the request is application/json
func IsJson(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// writeSuccess writes the plain success envelope.
func writeSuccess(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	writer := jsonwriter.New(w)
	writer.RootObject(func() {
		writer.KeyString("status", "success")
	})
}

// writeError writes the common JSON error envelope with the given status code.
func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	writer := jsonwriter.New(w)
	writer.RootObject(func() {
		writer.KeyString("status", "error")
		writer.KeyString("error", message)
	})
}

// writeJSON serializes an arbitrary payload, for responses that do not use
// the envelope (certificate records).
func writeJSON(w http.ResponseWriter, code int, payload any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(payload)
}
