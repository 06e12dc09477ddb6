package services

import (
	"context"
	"fmt"
	"strings"
)

// LLMModelName is the text generation model used for outfit synthesis.
type LLMModelName int32

const (
	Pro25 LLMModelName = iota
	Flash25
	FlashLite25
	Flash20
	GPT4oMini
	GPT4o
)

// The Stringer interface for LLMModelName.
func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite-preview-06-17"
	case Flash20:
		return "gemini-2.0-flash"
	case GPT4oMini:
		return "gpt-4o-mini"
	case GPT4o:
		return "gpt-4o"
	default:
		return "gemini-2.0-flash"
	}
}

// ModelFromString maps a request model string onto a known model, falling
// back to Flash20 for anything unrecognized. Unknown strings never fail a
// request, they just get the default model.
func ModelFromString(name string) LLMModelName {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "gemini-2.5-pro":
		return Pro25
	case "gemini-2.5-flash":
		return Flash25
	case "gemini-2.5-flash-lite-preview-06-17":
		return FlashLite25
	case "gemini-2.0-flash":
		return Flash20
	case "gpt-4o-mini":
		return GPT4oMini
	case "gpt-4o":
		return GPT4o
	default:
		return Flash20
	}
}

func floatPointer(f float32) *float32 {
	return &f
}

// GenerateParams carries everything a provider needs for one completion call.
type GenerateParams struct {
	SystemInstruction string
	Prompt            string
	Model             LLMModelName
	Temperature       *float32
	MaxOutputTokens   int32
}

type Usage struct {
	InputTokenCount  int32 `json:"input_token_count"`
	OutputTokenCount int32 `json:"output_token_count"`
	TotalTokenCount  int32 `json:"total_token_count"`
}

type GenerationResult struct {
	Text      string `json:"text"`
	Usage     Usage  `json:"usage"`
	ModelName string `json:"model_name"`
}

// TextStream yields incremental text deltas from a streaming completion.
// Recv returns io.EOF after the final delta; Close releases the underlying
// connection and is safe to call more than once.
type TextStream interface {
	Recv() (string, error)
	Close() error
}

// TextGenerationProvider abstracts the vendor behind text completion so the
// pipeline, worker and tests all speak the same two calls.
type TextGenerationProvider interface {
	Generate(ctx context.Context, params GenerateParams) (*GenerationResult, error)
	GenerateStream(ctx context.Context, params GenerateParams) (TextStream, error)
}

type ProviderErrorKind string

const (
	ProviderErrAuth      ProviderErrorKind = "auth"
	ProviderErrRateLimit ProviderErrorKind = "rate_limit"
	ProviderErrTransport ProviderErrorKind = "transport"
	ProviderErrResponse  ProviderErrorKind = "response"
)

// ProviderError classifies vendor failures so callers can map them onto job
// errors without string matching.
type ProviderError struct {
	Kind    ProviderErrorKind
	Model   string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s error [%s]: %s: %v", e.Model, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("provider %s error [%s]: %s", e.Model, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func NewProviderError(kind ProviderErrorKind, model, message string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Model: model, Message: message, Err: err}
}

// modelPricing is USD per 1M tokens.
type modelPricing struct {
	Input  float64
	Output float64
}

var pricingTable = map[LLMModelName]modelPricing{
	Pro25:       {Input: 1.25, Output: 10.00},
	Flash25:     {Input: 0.30, Output: 2.50},
	FlashLite25: {Input: 0.10, Output: 0.40},
	Flash20:     {Input: 0.10, Output: 0.40},
	GPT4oMini:   {Input: 0.15, Output: 0.60},
	GPT4o:       {Input: 2.50, Output: 10.00},
}

// EstimateCostUSD converts usage counters into an approximate dollar figure
// for logging. Unknown models cost zero.
func EstimateCostUSD(model LLMModelName, usage Usage) float64 {
	p, ok := pricingTable[model]
	if !ok {
		return 0
	}
	return (float64(usage.InputTokenCount)*p.Input + float64(usage.OutputTokenCount)*p.Output) / 1_000_000
}

// ProviderRegistry routes a model onto the provider that serves it.
type ProviderRegistry struct {
	gemini  TextGenerationProvider
	openAI  TextGenerationProvider
	defined map[LLMModelName]TextGenerationProvider
}

func NewProviderRegistry(gemini, openAI TextGenerationProvider) *ProviderRegistry {
	return &ProviderRegistry{gemini: gemini, openAI: openAI}
}

// Override pins a specific model to a provider, mainly for tests.
func (r *ProviderRegistry) Override(model LLMModelName, p TextGenerationProvider) {
	if r.defined == nil {
		r.defined = map[LLMModelName]TextGenerationProvider{}
	}
	r.defined[model] = p
}

// ForModel returns the provider serving the given model. GPT models go to
// the OpenAI-compatible provider, everything else to Gemini.
func (r *ProviderRegistry) ForModel(model LLMModelName) (TextGenerationProvider, error) {
	if p, ok := r.defined[model]; ok {
		return p, nil
	}
	switch model {
	case GPT4oMini, GPT4o:
		if r.openAI == nil {
			return nil, fmt.Errorf("no provider configured for model %s", model)
		}
		return r.openAI, nil
	default:
		if r.gemini == nil {
			return nil, fmt.Errorf("no provider configured for model %s", model)
		}
		return r.gemini, nil
	}
}
