package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/davinci-dao/log"
)

// Error is the error type written by the handlers. Code identifies the
// error for clients and never changes; HTTPstatus is the status used when
// it is written.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON encodes the error as {"error": msg, "code": code}.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}{Err: e.Err.Error(), Code: e.Code})
}

func (e Error) Error() string {
	return e.Err.Error()
}

// Is reports whether target is an Error with the same code, so the copies
// made by With, Withf and WithErr, and the errors decoded by the client,
// match their definition.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.Code == e.Code
}

// Write sends the error as a JSON response.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	if log.Level() == log.LogLevelDebug {
		log.Debugw("api error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

func (e Error) extend(detail string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %s", e.Err, detail),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// With returns a copy of e with s appended to its message.
func (e Error) With(s string) Error {
	return e.extend(s)
}

// Withf is like With with a formatted detail.
func (e Error) Withf(format string, args ...any) Error {
	return e.extend(fmt.Sprintf(format, args...))
}

// WithErr returns a copy of e with the message of err appended.
func (e Error) WithErr(err error) Error {
	return e.extend(err.Error())
}
