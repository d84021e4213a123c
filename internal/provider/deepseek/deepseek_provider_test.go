package deepseek_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightx/internal/config"
	"freightx/internal/domain"
	"freightx/internal/genconfig"
	"freightx/internal/provider"
	"freightx/internal/provider/deepseek"
)

func newTestProvider(serverURL string) *deepseek.Provider {
	cfg := &config.ProviderConfig{APIKey: "sk-test", TimeoutSecs: 10}
	return deepseek.NewProviderWithEndpoint(cfg, serverURL, provider.BreakerSettings{}, nil)
}

func TestDeepSeekProvider_Descriptor(t *testing.T) {
	d := newTestProvider("http://unused").Descriptor()

	assert.Equal(t, domain.ProviderDeepSeek, d.Name)
	assert.Equal(t, domain.IngestionInlineText, d.Mode)
	assert.Equal(t, "deepseek-chat", d.DefaultModel)
	assert.Equal(t, domain.CredentialBearer, d.Auth)
}

func TestDeepSeekProvider_RoundTrip(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var reqBody map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "deepseek-chat", reqBody["model"])
		assert.Equal(t, float64(0), reqBody["temperature"])
		assert.Equal(t, float64(1), reqBody["top_p"])
		assert.NotContains(t, reqBody, "max_tokens")

		messages := reqBody["messages"].([]any)
		require.Len(t, messages, 2)
		user := messages[1].(map[string]any)
		assert.Equal(t, "user", user["role"])
		assert.Equal(t, "Please extract information from this document:\n\nOcean Freight\nUSD 1200", user["content"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"freight_charge_total\":1200}"}}]}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	cfg, err := genconfig.Parse([]byte(`{"temperature":0,"top_p":1,"max_tokens":null,"presence_penalty":null}`))
	require.NoError(t, err)

	req, err := p.Build(domain.IngestedContent{Kind: domain.ContentText, Text: "Ocean Freight\r\nUSD 1200"}, "", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", req.Model)

	raw, err := p.Invoke(context.Background(), domain.APICredential{Kind: domain.CredentialBearer, Token: "sk-test"}, req)
	require.NoError(t, err)

	text, err := p.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"freight_charge_total":1200}`, text)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDeepSeekProvider_ModelOverride(t *testing.T) {
	p := newTestProvider("http://unused")
	cfg, err := genconfig.Parse([]byte(`{"model":"deepseek-reasoner"}`))
	require.NoError(t, err)

	req, err := p.Build(domain.IngestedContent{Kind: domain.ContentText, Text: "x"}, "", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, "deepseek-reasoner", req.Model)
	assert.Equal(t, "deepseek-reasoner", req.Body["model"])
}

func TestDeepSeekProvider_BuildRejectsOutOfBounds(t *testing.T) {
	p := newTestProvider("http://unused")
	cfg, err := genconfig.Parse([]byte(`{"temperature":3.5}`))
	require.NoError(t, err)

	_, err = p.Build(domain.IngestedContent{Kind: domain.ContentText, Text: "x"}, "", "", cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestDeepSeekProvider_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Authentication Fails (no such user)","type":"authentication_error"}}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	req, err := p.Build(domain.IngestedContent{Kind: domain.ContentText, Text: "x"}, "", "", nil)
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), domain.APICredential{Kind: domain.CredentialBearer, Token: "bad"}, req)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.Contains(t, err.Error(), "Authentication Fails")
}
