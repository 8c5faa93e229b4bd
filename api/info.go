package api

import (
	"net/http"

	"github.com/vocdoni/davinci-dao/types"
)

// InfoResponse describes how proofs are verified by the node.
type InfoResponse struct {
	Version             string         `json:"version"`
	Curve               string         `json:"curve"`
	AllowEmptyProof     bool           `json:"allowEmptyProof"`
	DefaultVerifyingKey types.HexBytes `json:"defaultVerifyingKey,omitempty"`
	MaxProposalLength   int            `json:"maxProposalLength"`
	MaxValueLength      int            `json:"maxValueLength"`
}

// getInfo returns the verifier configuration and the election limits.
// GET /info
func (a *API) getInfo(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, &a.info)
}
