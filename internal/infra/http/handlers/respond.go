package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/cadencehq/cadence/internal/usecase"
)

type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps domain error codes onto HTTP statuses. Anything that is not
// a DomainError is a 500 and gets logged server-side only.
func writeError(w http.ResponseWriter, err error) {
	if de, ok := usecase.AsDomainError(err); ok {
		status := http.StatusInternalServerError
		switch de.Code {
		case usecase.CodeValidation:
			status = http.StatusBadRequest
		case usecase.CodeNotFound:
			status = http.StatusNotFound
		case usecase.CodeInvalidState:
			status = http.StatusConflict
		case usecase.CodeDuplicate:
			status = http.StatusConflict
		}
		writeJSON(w, status, errorResponse{Error: de.Message, Code: de.Code, Details: de.Details})
		return
	}

	log.Printf("[http] internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "internal server error",
		Code:  usecase.CodeInternal,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: usecase.CodeValidation})
		return false
	}
	return true
}

// userID resolves the acting user. Single-tenant deployments fall back to the
// default user.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "default"
}
