package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// OpenAICompatProvider talks to any OpenAI-compatible chat completions
// endpoint (OpenAI itself, vLLM, SGLang).
type OpenAICompatProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewOpenAICompatProvider(baseURL, apiKey string) *OpenAICompatProvider {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &OpenAICompatProvider{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Transport: tr},
	}
}

// NewOpenAICompatProviderWithHTTPClient is intended for tests; it avoids
// network access by using a custom client.
func NewOpenAICompatProviderWithHTTPClient(baseURL, apiKey string, httpClient *http.Client) *OpenAICompatProvider {
	p := NewOpenAICompatProvider(baseURL, apiKey)
	if httpClient != nil {
		p.httpClient = httpClient
	}
	return p
}

const chatCompletionsPath = "/v1/chat/completions"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   int32         `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content,omitempty"`
		} `json:"message,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int32 `json:"prompt_tokens"`
		CompletionTokens int32 `json:"completion_tokens"`
		TotalTokens      int32 `json:"total_tokens"`
	} `json:"usage"`
}

type chatCompletionStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content,omitempty"`
		} `json:"delta,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
	Error any `json:"error,omitempty"`
}

func (p *OpenAICompatProvider) buildRequest(params GenerateParams, stream bool) chatCompletionRequest {
	var messages []chatMessage
	if params.SystemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: params.SystemInstruction})
	}
	messages = append(messages, chatMessage{Role: "user", Content: params.Prompt})
	return chatCompletionRequest{
		Model:       params.Model.String(),
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxOutputTokens,
		Stream:      stream,
	}
}

func (p *OpenAICompatProvider) post(ctx context.Context, params GenerateParams, stream bool, accept string) (*http.Response, error) {
	model := params.Model.String()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(p.buildRequest(params, stream)); err != nil {
		return nil, NewProviderError(ProviderErrTransport, model, "encoding request", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+chatCompletionsPath, &buf)
	if err != nil {
		return nil, NewProviderError(ProviderErrTransport, model, "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, NewProviderError(ProviderErrTransport, model, "request failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		return nil, classifyHTTPStatus(model, resp.StatusCode, string(raw))
	}
	return resp, nil
}

func classifyHTTPStatus(model string, status int, body string) *ProviderError {
	msg := fmt.Sprintf("status %d: %s", status, body)
	switch {
	case status == 401 || status == 403:
		return NewProviderError(ProviderErrAuth, model, msg, nil)
	case status == 429:
		return NewProviderError(ProviderErrRateLimit, model, msg, nil)
	case status >= 500:
		return NewProviderError(ProviderErrTransport, model, msg, nil)
	default:
		return NewProviderError(ProviderErrResponse, model, msg, nil)
	}
}

func (p *OpenAICompatProvider) Generate(ctx context.Context, params GenerateParams) (*GenerationResult, error) {
	model := params.Model.String()
	resp, err := p.post(ctx, params, false, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, NewProviderError(ProviderErrResponse, model, "decoding completion", err)
	}
	text := extractChatText(out)
	if strings.TrimSpace(text) == "" {
		return nil, NewProviderError(ProviderErrResponse, model, "empty upstream completion", nil)
	}
	return &GenerationResult{
		Text: text,
		Usage: Usage{
			InputTokenCount:  out.Usage.PromptTokens,
			OutputTokenCount: out.Usage.CompletionTokens,
			TotalTokenCount:  out.Usage.TotalTokens,
		},
		ModelName: model,
	}, nil
}

func (p *OpenAICompatProvider) GenerateStream(ctx context.Context, params GenerateParams) (TextStream, error) {
	resp, err := p.post(ctx, params, true, "text/event-stream")
	if err != nil {
		return nil, err
	}
	return &openAIStream{
		model:  params.Model.String(),
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
	}, nil
}

// openAIStream reads SSE frames lazily, one Recv per content delta.
type openAIStream struct {
	model  string
	body   io.ReadCloser
	reader *bufio.Reader
	done   bool
}

func (s *openAIStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			s.finish()
			if err == io.EOF {
				return "", io.EOF
			}
			return "", NewProviderError(ProviderErrTransport, s.model, "reading stream", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, ":") || strings.HasPrefix(line, "event:") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			s.finish()
			return "", io.EOF
		}

		var chunk chatCompletionStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			s.finish()
			b, _ := json.Marshal(chunk.Error)
			return "", NewProviderError(ProviderErrResponse, s.model, "upstream stream error: "+string(b), nil)
		}
		for _, c := range chunk.Choices {
			delta := c.Delta.Content
			if delta == "" {
				delta = c.Text
			}
			if delta != "" {
				return delta, nil
			}
		}
	}
}

func (s *openAIStream) finish() {
	if !s.done {
		s.done = true
		s.body.Close()
	}
}

func (s *openAIStream) Close() error {
	s.finish()
	return nil
}

func extractChatText(resp chatCompletionResponse) string {
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			return c.Message.Content
		}
		if strings.TrimSpace(c.Text) != "" {
			return c.Text
		}
	}
	return ""
}
