package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stylistapi/services"
	"stylistapi/test"
)

func TestModelFromString(t *testing.T) {
	assert.Equal(t, services.Pro25, services.ModelFromString("gemini-2.5-pro"))
	assert.Equal(t, services.GPT4oMini, services.ModelFromString("  GPT-4o-Mini "))
	assert.Equal(t, services.Flash20, services.ModelFromString(""))
	assert.Equal(t, services.Flash20, services.ModelFromString("some-future-model"))
}

func TestEstimateCostUSD(t *testing.T) {
	usage := services.Usage{InputTokenCount: 1_000_000, OutputTokenCount: 1_000_000}
	assert.InDelta(t, 11.25, services.EstimateCostUSD(services.Pro25, usage), 0.0001)
	assert.InDelta(t, 0.75, services.EstimateCostUSD(services.GPT4oMini, usage), 0.0001)
	assert.Zero(t, services.EstimateCostUSD(services.LLMModelName(99), services.Usage{TotalTokenCount: 10}))
}

func TestProviderRegistryRouting(t *testing.T) {
	gemini := &test.FakeProvider{Text: "g"}
	openAI := &test.FakeProvider{Text: "o"}
	registry := services.NewProviderRegistry(gemini, openAI)

	p, err := registry.ForModel(services.Flash20)
	require.NoError(t, err)
	assert.Same(t, services.TextGenerationProvider(gemini), p)

	p, err = registry.ForModel(services.GPT4o)
	require.NoError(t, err)
	assert.Same(t, services.TextGenerationProvider(openAI), p)

	pinned := &test.FakeProvider{Text: "pinned"}
	registry.Override(services.Flash20, pinned)
	p, err = registry.ForModel(services.Flash20)
	require.NoError(t, err)
	assert.Same(t, services.TextGenerationProvider(pinned), p)

	empty := services.NewProviderRegistry(nil, nil)
	_, err = empty.ForModel(services.GPT4oMini)
	assert.Error(t, err)
}

func completionBody(text string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q}}],"usage":{"prompt_tokens":12,"completion_tokens":34,"total_tokens":46}}`, text)
}

func TestOpenAICompatGenerate(t *testing.T) {
	var gotAuth string
	var gotReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionBody("hello there"))
	}))
	defer server.Close()

	provider := services.NewOpenAICompatProviderWithHTTPClient(server.URL, "sk-test", server.Client())
	result, err := provider.Generate(context.Background(), services.GenerateParams{
		SystemInstruction: "be brief",
		Prompt:            "hi",
		Model:             services.GPT4oMini,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", result.Text)
	assert.Equal(t, int32(46), result.Usage.TotalTokenCount)
	assert.Equal(t, "gpt-4o-mini", result.ModelName)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq["model"])

	messages, ok := gotReq["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
}

func TestOpenAICompatGenerateErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   services.ProviderErrorKind
	}{
		{http.StatusUnauthorized, services.ProviderErrAuth},
		{http.StatusForbidden, services.ProviderErrAuth},
		{http.StatusTooManyRequests, services.ProviderErrRateLimit},
		{http.StatusBadGateway, services.ProviderErrTransport},
		{http.StatusBadRequest, services.ProviderErrResponse},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream says no", tc.status)
		}))
		provider := services.NewOpenAICompatProviderWithHTTPClient(server.URL, "k", server.Client())
		_, err := provider.Generate(context.Background(), services.GenerateParams{Prompt: "hi", Model: services.GPT4o})
		var provErr *services.ProviderError
		require.ErrorAs(t, err, &provErr, "status %d", tc.status)
		assert.Equal(t, tc.kind, provErr.Kind, "status %d", tc.status)
		server.Close()
	}
}

func TestOpenAICompatGenerateEmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"  "}}]}`)
	}))
	defer server.Close()

	provider := services.NewOpenAICompatProviderWithHTTPClient(server.URL, "k", server.Client())
	_, err := provider.Generate(context.Background(), services.GenerateParams{Prompt: "hi", Model: services.GPT4oMini})
	var provErr *services.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, services.ProviderErrResponse, provErr.Kind)
}

func streamChunk(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"delta": map[string]string{"content": content}}},
	})
	return "data: " + string(b) + "\n\n"
}

func TestOpenAICompatGenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		require.Equal(t, true, req["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, streamChunk("first "))
		fmt.Fprint(w, streamChunk("second"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider := services.NewOpenAICompatProviderWithHTTPClient(server.URL, "k", server.Client())
	stream, err := provider.GenerateStream(context.Background(), services.GenerateParams{Prompt: "hi", Model: services.GPT4oMini})
	require.NoError(t, err)
	defer stream.Close()

	var collected string
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		collected += delta
	}
	assert.Equal(t, "first second", collected)

	// Terminal stream stays terminal.
	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, stream.Close())
}

func TestOpenAICompatStreamUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, streamChunk("partial"))
		fmt.Fprint(w, `data: {"error":{"message":"overloaded"}}`+"\n\n")
	}))
	defer server.Close()

	provider := services.NewOpenAICompatProviderWithHTTPClient(server.URL, "k", server.Client())
	stream, err := provider.GenerateStream(context.Background(), services.GenerateParams{Prompt: "hi", Model: services.GPT4o})
	require.NoError(t, err)
	defer stream.Close()

	delta, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "partial", delta)

	_, err = stream.Recv()
	var provErr *services.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, services.ProviderErrResponse, provErr.Kind)
}
