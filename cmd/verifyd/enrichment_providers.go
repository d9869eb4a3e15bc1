package main

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/kadenwood/verifyd/internal/enrich"
)

// defaultEnrichmentRequest builds a generic GET-with-query-params request,
// the shape most name-lookup APIs in the cheap tier expose. Operators that
// need a different wire shape swap this out by constructing their own
// enrich.HTTPProvider instead of going through buildEnricher.
func defaultEnrichmentRequest(endpoint, apiKey, email, firstHint, lastHint string) (*http.Request, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("email", email)
	if firstHint != "" {
		q.Set("first_name_hint", firstHint)
	}
	if lastHint != "" {
		q.Set("last_name_hint", lastHint)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// enrichmentAPIResponse is the minimal JSON contract expected of either
// enrichment tier: a name match and a confidence in [0,1].
type enrichmentAPIResponse struct {
	Found      bool    `json:"found"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

func defaultEnrichmentResponse(body []byte) (enrich.Found, error) {
	var resp enrichmentAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return enrich.Found{}, err
	}
	return enrich.Found{Found: resp.Found, Name: resp.Name, Confidence: resp.Confidence}, nil
}
