package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gock "gopkg.in/h2non/gock.v1"
)

func TestExtractName_FirstDotLast(t *testing.T) {
	name := ExtractName("jane.doe")
	assert.Equal(t, "Jane", name.First)
	assert.Equal(t, "Doe", name.Last)
	assert.Equal(t, 0.92, name.Confidence)
}

func TestExtractName_InitialDotLast(t *testing.T) {
	name := ExtractName("j.doe")
	assert.Equal(t, "J", name.First)
	assert.Equal(t, "Doe", name.Last)
	assert.Equal(t, PatternInitialDotLast, name.Pattern)
}

func TestExtractName_NoPattern(t *testing.T) {
	name := ExtractName("xk29qz")
	assert.Equal(t, PatternNone, name.Pattern)
	assert.Equal(t, 0.0, name.Confidence)
}

func TestScorePattern_RoleAccountIsRisky(t *testing.T) {
	score := ScorePattern("support", true, 0, false)
	assert.Equal(t, StatusRisky, score.Status)
	assert.Equal(t, 0.90, score.Confidence)
}

func TestScorePattern_CorporateDomainBoostsConfidence(t *testing.T) {
	score := ScorePattern("jane.doe", false, 0.92, true)
	assert.Equal(t, StatusValid, score.Status)
	assert.InDelta(t, 0.92, score.Confidence, 0.01)
}

func TestScorePattern_StrongPatternIsValid(t *testing.T) {
	score := ScorePattern("jane.doe", false, 0, false)
	assert.Equal(t, StatusValid, score.Status)
}

func TestScorePattern_NoPatternFallsBackToLowConfidenceRisky(t *testing.T) {
	score := ScorePattern("xk29qz", false, 0, false)
	assert.Equal(t, StatusRisky, score.Status)
	assert.Equal(t, 0.55, score.Confidence)
}

func TestIsRoleKeyword_SubstringMatch(t *testing.T) {
	ok, kw := IsRoleKeyword("teamlead")
	assert.True(t, ok)
	assert.Equal(t, "team", kw)
}

func TestIsRoleKeyword_NoMatch(t *testing.T) {
	ok, _ := IsRoleKeyword("jsmith")
	assert.False(t, ok)
}

type jsonResult struct {
	Found      bool    `json:"found"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

func jsonProvider(name, endpoint, key string) *HTTPProvider {
	return &HTTPProvider{
		ProviderName: name,
		Endpoint:     endpoint,
		APIKey:       key,
		BuildRequest: func(endpoint, apiKey, email, firstHint, lastHint string) (*http.Request, error) {
			return http.NewRequest(http.MethodGet, endpoint, nil)
		},
		ParseResponse: func(body []byte) (Found, error) {
			var r jsonResult
			if err := json.Unmarshal(body, &r); err != nil {
				return Found{}, err
			}
			return Found{Found: r.Found, Name: r.Name, Confidence: r.Confidence}, nil
		},
	}
}

func TestEnricher_LookupFallsThroughToExpensiveWhenCheapMisses(t *testing.T) {
	defer gock.Off()

	gock.New("https://cheap.example.com").
		Get("/lookup").
		Reply(200).
		JSON(map[string]interface{}{"found": false})

	gock.New("https://expensive.example.com").
		Get("/lookup").
		Reply(200).
		JSON(map[string]interface{}{"found": true, "name": "Jane Doe", "confidence": 0.92})

	cheap := jsonProvider("cheap", "https://cheap.example.com/lookup", "k1")
	expensive := jsonProvider("expensive", "https://expensive.example.com/lookup", "k2")

	cheapClient := &http.Client{Transport: gock.DefaultTransport}
	expensiveClient := &http.Client{Transport: gock.DefaultTransport}
	cheap.Client = cheapClient
	expensive.Client = expensiveClient

	gock.InterceptClient(cheapClient)
	gock.InterceptClient(expensiveClient)

	e := NewEnricher(cheap, expensive)
	e.WhoisLookup = func(domain string) (string, error) { return "", nil }

	found, source := e.Lookup(context.Background(), "jane.doe", "example.com")
	require.True(t, found.Found)
	assert.Equal(t, "expensive", source)
	assert.Equal(t, "Jane Doe", found.Name)
}

func TestEnricher_LookupReturnsNotFoundWhenNoProviderConfigured(t *testing.T) {
	e := NewEnricher(nil, nil)

	found, source := e.Lookup(context.Background(), "jane.doe", "example.com")
	assert.False(t, found.Found)
	assert.Empty(t, source)
}

func TestEnricher_DomainAgeDaysWithoutWhoisLookupIsUnknown(t *testing.T) {
	e := NewEnricher(nil, nil)
	e.WhoisLookup = nil
	assert.Equal(t, -1, e.DomainAgeDays("example.com"))
}

func TestParseWhoisAgeDays_ParsesCreationDate(t *testing.T) {
	raw := "Domain Name: EXAMPLE.COM\nCreation Date: 2015-03-14T00:00:00Z\nRegistrar: Example\n"
	age := parseWhoisAgeDays(raw)
	assert.Greater(t, age, 0)
}

func TestParseWhoisAgeDays_NoRecognizedLabel(t *testing.T) {
	age := parseWhoisAgeDays("Domain Name: EXAMPLE.COM\nNo date here\n")
	assert.Equal(t, -1, age)
}

func TestFuzzyNameMatches_ToleratesFormatting(t *testing.T) {
	assert.True(t, FuzzyNameMatches("Jane Q. Doe", "Jane", "Doe"))
}

func TestFuzzyNameMatches_RejectsUnrelatedName(t *testing.T) {
	assert.False(t, FuzzyNameMatches("Robert Smith", "Jane", "Doe"))
}
