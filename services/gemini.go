package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider serves Gemini models through the GenAI API.
type GeminiProvider struct {
	apiKey string
}

func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey}
}

func (p *GeminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, NewProviderError(ProviderErrTransport, "", "creating genai client", err)
	}
	return client, nil
}

func (p *GeminiProvider) generationConfig(params GenerateParams) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		CandidateCount:  1,
		MaxOutputTokens: params.MaxOutputTokens,
		Temperature:     params.Temperature,
	}
	if config.MaxOutputTokens == 0 {
		config.MaxOutputTokens = 50000
	}
	if config.Temperature == nil {
		config.Temperature = floatPointer(1)
	}
	if params.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: params.SystemInstruction}},
		}
	}
	return config
}

func (p *GeminiProvider) Generate(ctx context.Context, params GenerateParams) (*GenerationResult, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: params.Prompt}}}}
	result, err := client.Models.GenerateContent(ctx, params.Model.String(), contents, p.generationConfig(params))
	if err != nil {
		return nil, classifyGeminiError(params.Model.String(), err)
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, NewProviderError(ProviderErrResponse, params.Model.String(),
			fmt.Sprintf("content blocked: %s %s", result.PromptFeedback.BlockReason, result.PromptFeedback.BlockReasonMessage), nil)
	}
	if len(result.Candidates) == 0 {
		return nil, NewProviderError(ProviderErrResponse, params.Model.String(), "no candidates returned", nil)
	}

	var usage Usage
	if result.UsageMetadata != nil {
		usage = Usage{
			InputTokenCount:  result.UsageMetadata.PromptTokenCount,
			OutputTokenCount: result.UsageMetadata.CandidatesTokenCount,
			TotalTokenCount:  result.UsageMetadata.TotalTokenCount,
		}
		fmt.Println("Input token count:", usage.InputTokenCount)
		fmt.Println("Output token count:", usage.OutputTokenCount)
		fmt.Println("Total token count:", usage.TotalTokenCount)
	} else {
		fmt.Println("UsageMetadata is nil!")
	}
	return &GenerationResult{
		Text:      result.Text(),
		Usage:     usage,
		ModelName: params.Model.String(),
	}, nil
}

func (p *GeminiProvider) GenerateStream(ctx context.Context, params GenerateParams) (TextStream, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: params.Prompt}}}}
	seq := client.Models.GenerateContentStream(ctx, params.Model.String(), contents, p.generationConfig(params))
	next, stop := iter.Pull2(seq)
	return &geminiStream{model: params.Model.String(), next: next, stop: stop}, nil
}

// geminiStream adapts the push iterator returned by GenerateContentStream
// into the pull contract of TextStream.
type geminiStream struct {
	model string
	next  func() (*genai.GenerateContentResponse, error, bool)
	stop  func()
	done  bool
}

func (s *geminiStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		resp, err, ok := s.next()
		if !ok {
			s.done = true
			return "", io.EOF
		}
		if err != nil {
			s.done = true
			return "", classifyGeminiError(s.model, err)
		}
		if text := resp.Text(); text != "" {
			return text, nil
		}
		// Empty chunks happen around safety metadata; keep pulling.
	}
}

func (s *geminiStream) Close() error {
	if !s.done {
		s.done = true
		s.stop()
	}
	return nil
}

func classifyGeminiError(model string, err error) *ProviderError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return NewProviderError(ProviderErrAuth, model, "authentication failed", err)
		case 429:
			return NewProviderError(ProviderErrRateLimit, model, "rate limited", err)
		}
		if apiErr.Code >= 400 && apiErr.Code < 500 {
			return NewProviderError(ProviderErrResponse, model, apiErr.Message, err)
		}
		return NewProviderError(ProviderErrTransport, model, apiErr.Message, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429"):
		return NewProviderError(ProviderErrRateLimit, model, "rate limited", err)
	case strings.Contains(msg, "PERMISSION_DENIED") || strings.Contains(msg, "UNAUTHENTICATED") || strings.Contains(msg, "API key"):
		return NewProviderError(ProviderErrAuth, model, "authentication failed", err)
	default:
		return NewProviderError(ProviderErrTransport, model, "generate content call failed", err)
	}
}
