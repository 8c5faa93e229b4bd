package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/davinci-dao/crypto/signatures/ethereum"
	"github.com/vocdoni/davinci-dao/log"
	"github.com/vocdoni/davinci-dao/types"
)

// maxRequestBodySize bounds the JSON bodies accepted by the signed endpoints.
const maxRequestBodySize = 1 << 20

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
		return
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
		return
	}
	if !DisabledLogging && log.Level() == log.LogLevelDebug {
		log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
	}
}

// httpWriteBinary streams an in-memory byte slice as a response.
func httpWriteBinary(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		log.Warnw("failed to write binary response", "error", err)
		return
	}
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// decodeBody decodes the JSON body of r into out, writing the error response
// if it fails.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return false
	}
	return true
}

// recoverCaller returns the address that signed msg, writing the error
// response if the signature is missing or invalid.
func recoverCaller(w http.ResponseWriter, msg []byte, signature types.HexBytes) (common.Address, bool) {
	if len(signature) == 0 {
		ErrInvalidSignature.With("missing signature").Write(w)
		return common.Address{}, false
	}
	caller, err := ethereum.RecoverSigner(msg, signature)
	if err != nil {
		ErrInvalidSignature.WithErr(err).Write(w)
		return common.Address{}, false
	}
	return caller, true
}

// addressParam parses the address in the URL parameter key, writing the
// error response if it is malformed.
func addressParam(w http.ResponseWriter, r *http.Request, key string) (common.Address, bool) {
	value := chi.URLParam(r, key)
	if !common.IsHexAddress(value) {
		ErrMalformedAddress.Withf("%s %q", key, value).Write(w)
		return common.Address{}, false
	}
	return common.HexToAddress(value), true
}
