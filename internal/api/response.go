package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/YonkeBot/internal/models"
)

// fallbackBody is sent when a reply or search payload cannot be encoded.
var fallbackBody = mustMarshal(models.Error("Internal server error"))

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("api: cannot marshal fallback response: " + err.Error())
	}
	return b
}

// writeJSONResponse encodes an APIResponse envelope for the /messages and
// /listings/search endpoints. Encoding happens before the header is written so
// a failure still turns into a 500.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response models.APIResponse) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server writeJSONResponse: encode failed", "error", err, "status", response.Status)
		body, statusCode = fallbackBody, http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Warn("Server writeJSONResponse: client went away", "error", err)
	}
}

// writeError is writeJSONResponse for an error envelope.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, models.Error(message))
}
