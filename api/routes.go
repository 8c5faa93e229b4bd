package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Route constants for the API endpoints

const (
	// Health endpoints
	PingEndpoint = "/ping" // Health check endpoint

	// Info endpoint
	InfoEndpoint = "/info" // GET: verifier and limits of the node

	// Election endpoints
	CreatorURLParam         = "creator"                                        // URL parameter for the creator address
	ElectionsEndpoint       = "/elections"                                     // POST: newPolling
	ElectionEndpoint        = ElectionsEndpoint + "/{" + CreatorURLParam + "}" // GET: current election of a creator
	ElectionVotesEndpoint   = ElectionEndpoint + "/votes"                      // POST: vote
	ElectionSumUpEndpoint   = ElectionEndpoint + "/sumup"                      // POST: toSumUp
	ElectionResultsEndpoint = ElectionEndpoint + "/results"                    // GET: results with voters
	ElectionCloseEndpoint   = ElectionEndpoint + "/close"                      // POST: closeElection

	// Account endpoints
	AddressURLParam = "address"                            // URL parameter for a voter address
	RewardsEndpoint = "/rewards/{" + AddressURLParam + "}" // GET: reward account of a voter
	TokensEndpoint  = "/tokens/{" + CreatorURLParam + "}"  // GET: changeable token account of a creator

	// Verifying key endpoints
	VerifyingKeyHashParam = "hash"                                           // URL parameter for the verifying key hash
	VerifyingKeyEndpoint  = "/verifyingkeys/{" + VerifyingKeyHashParam + "}" // GET: raw verifying key
)

// EndpointWithParam creates an endpoint URL by replacing the parameter
// placeholder with the actual value. Used to build fully qualified
// endpoint URLs.
func EndpointWithParam(path, key, param string) string {
	rawKey := fmt.Sprintf("{%s}", key)

	// Always try to replace the placeholder, even if it's after the '?'
	if strings.Contains(path, rawKey) {
		return strings.Replace(path, rawKey, url.PathEscape(param), 1)
	}

	// Fallback: add as query param
	escapedKey := url.QueryEscape(key)
	escapedVal := url.QueryEscape(param)

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return fmt.Sprintf("%s%s%s=%s", path, sep, escapedKey, escapedVal)
}

// LogExcludedPrefixes defines URL prefixes to exclude from request logging
var LogExcludedPrefixes = []string{
	PingEndpoint,
	InfoEndpoint,
}
