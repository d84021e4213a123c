package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightx/internal/config"
	"freightx/internal/domain"
	"freightx/internal/genconfig"
	"freightx/internal/provider"
	"freightx/internal/provider/openai"
)

func newTestProvider(serverURL string) *openai.Provider {
	cfg := &config.ProviderConfig{APIKey: "sk-openai", TimeoutSecs: 10}
	return openai.NewProviderWithEndpoint(cfg, serverURL, provider.BreakerSettings{}, nil)
}

func TestOpenAIProvider_Descriptor(t *testing.T) {
	d := newTestProvider("http://unused").Descriptor()

	assert.Equal(t, domain.ProviderOpenAI, d.Name)
	assert.Equal(t, domain.IngestionInlineText, d.Mode)
	assert.Equal(t, "gpt-4o", d.DefaultModel)
}

func TestOpenAIProvider_RoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-openai", r.Header.Get("Authorization"))

		var reqBody map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "gpt-4o", reqBody["model"])
		assert.Equal(t, float64(2048), reqBody["max_completion_tokens"])
		assert.NotContains(t, reqBody, "max_tokens")
		assert.Equal(t, float64(0.5), reqBody["presence_penalty"])

		messages := reqBody["messages"].([]any)
		system := messages[0].(map[string]any)
		assert.Equal(t, "system", system["role"])
		assert.Equal(t, "You extract waybills.\nReturn JSON.", system["content"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"bl_number\":\"COSU6234\"}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	cfg, err := genconfig.Parse([]byte(`{"max_tokens":2048,"presence_penalty":0.5}`))
	require.NoError(t, err)

	req, err := p.Build(domain.IngestedContent{Kind: domain.ContentText, Text: "B/L COSU6234"},
		"You extract waybills.\r\nReturn JSON.", "Extract:", cfg)
	require.NoError(t, err)

	raw, err := p.Invoke(context.Background(), domain.APICredential{Kind: domain.CredentialBearer, Token: "sk-openai"}, req)
	require.NoError(t, err)

	text, err := p.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"bl_number":"COSU6234"}`, text)
}

func TestOpenAIProvider_ReservedExtraRejected(t *testing.T) {
	p := newTestProvider("http://unused")
	cfg, err := genconfig.Parse([]byte(`{"messages":[]}`))
	require.NoError(t, err)

	_, err = p.Build(domain.IngestedContent{Kind: domain.ContentText, Text: "x"}, "", "", cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestOpenAIProvider_MaxCompletionTokensBounded(t *testing.T) {
	p := newTestProvider("http://unused")
	cfg, err := genconfig.Parse([]byte(`{"max_completion_tokens":-5}`))
	require.NoError(t, err)

	_, err = p.Build(domain.IngestedContent{Kind: domain.ContentText, Text: "x"}, "", "", cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.ErrorContains(t, err, "max_completion_tokens")
}

func TestOpenAIProvider_ServerErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Unsupported parameter: 'max_tokens'","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL)
	req, err := p.Build(domain.IngestedContent{Kind: domain.ContentText, Text: "x"}, "", "", nil)
	require.NoError(t, err)

	_, err = p.Invoke(context.Background(), domain.APICredential{Kind: domain.CredentialBearer, Token: "sk"}, req)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Contains(t, err.Error(), "Unsupported parameter")
}
