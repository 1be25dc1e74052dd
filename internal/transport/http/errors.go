package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidRequest      = "invalid_request"
	codeRateLimited         = "rate_limited"
	codeInvalidState        = "invalid_state"
	codeSoldOut             = "sold_out"
	codeAlreadyParticipated = "already_participated"
	codeSystemBusy          = "system_busy"
	codePersistenceError    = "persistence_error"
	codeUnauthorized        = "unauthorized"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps a domain error kind onto an HTTP status and stable
// code. Unclassified errors become opaque 500s.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, codeRateLimited, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, codeInvalidState, err.Error())
	case errors.Is(err, domain.ErrSoldOut):
		writeError(w, http.StatusConflict, codeSoldOut, err.Error())
	case errors.Is(err, domain.ErrAlreadyParticipated):
		writeError(w, http.StatusConflict, codeAlreadyParticipated, err.Error())
	case errors.Is(err, domain.ErrSystemBusy):
		writeError(w, http.StatusServiceUnavailable, codeSystemBusy, err.Error())
	case errors.Is(err, domain.ErrPersistence):
		writeError(w, http.StatusInternalServerError, codePersistenceError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
