// Package llm provides completion API clients and the AI news summarizer.
package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ErrMissingAPIKey is returned when a provider is selected without credentials
var ErrMissingAPIKey = errors.New("completion API key not configured")

// CompletionRequest is a single prompt sent to a completion API
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Completion is the generated text plus token accounting
type Completion struct {
	Model            string
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens returns prompt plus completion tokens
func (c Completion) TotalTokens() int {
	return c.PromptTokens + c.CompletionTokens
}

// Completer sends prompts to a completion API
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Provider() string
}

// StatusCode extracts the HTTP status of a provider error, 0 when unknown
func StatusCode(err error) int {
	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		return oaiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) {
		return gErrPtr.Code
	}
	return 0
}

// IsQuotaError reports whether err means the account ran out of credit
func IsQuotaError(err error) bool {
	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		if code, ok := oaiErr.Code.(string); ok && code == "insufficient_quota" {
			return true
		}
		if oaiErr.Type == "insufficient_quota" {
			return true
		}
	}
	return StatusCode(err) == http.StatusPaymentRequired
}
