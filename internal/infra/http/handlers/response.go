package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/xavierca1/cohort-nurture/internal/usecase"
)

const msgInternalError = "Internal server error"

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message, Code: code})
}

// statusFor maps use case error codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case usecase.CodeValidation, usecase.CodeEmailExists, usecase.CodeInvalidEmailKind:
		return http.StatusBadRequest
	case usecase.CodeLeadNotFound:
		return http.StatusNotFound
	case usecase.CodeLeadTerminal:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeUseCaseError renders errors returned by the use cases. Send failures
// carry the gateway reason; database and unknown errors are hidden.
func writeUseCaseError(w http.ResponseWriter, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		writeErrorResponse(w, statusFor(de.Code), de.Code, de.Message)
		return
	}

	var te *usecase.TechnicalError
	if errors.As(err, &te) && te.Code == usecase.CodeSendFailed {
		resp := errorResponse{Success: false, Message: te.Message, Code: te.Code}
		if te.Err != nil {
			resp.Error = te.Err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	log.Error().Err(err).Msg("request failed")
	writeErrorResponse(w, http.StatusInternalServerError, usecase.ErrorCode(err), msgInternalError)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

// NotFound is the JSON fallback for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeErrorResponse(w, http.StatusNotFound, "", "Route not found")
}
