package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/logging"
)

// ErrorResponse is the JSON body of a failed API request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

var busyMessage = errs.UserMessage{
	Message: "Too many reports are running",
	Action:  "Retry in a few seconds",
	Code:    "SRV001",
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, errBusy) {
		return http.StatusServiceUnavailable
	}
	switch errs.KindOf(err) {
	case errs.KindQueryKeyNotFound:
		return http.StatusNotFound
	case errs.KindConnectivity:
		return http.StatusServiceUnavailable
	case errs.KindSourceUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error and writes the operator message
// as JSON for API routes and plain text otherwise.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := errs.MapError(err)
	if errors.Is(err, errBusy) {
		msg = busyMessage
	}
	status := statusFor(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"status", status,
		"code", msg.Code,
		"error", err,
	)

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(ErrorResponse{Error: msg.Message, Action: msg.Action, Code: msg.Code})
		return
	}
	http.Error(w, msg.Message+" ("+msg.Code+")", status)
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
