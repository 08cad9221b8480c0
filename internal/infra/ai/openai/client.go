package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/radiology-ai/internal/domain/ai"
	"github.com/bryanwahyu/radiology-ai/internal/infra/ai/prompt"
)

const defaultMaxTokens = 2048

// ImageResolver turns a stored image key into a URL the model can fetch.
type ImageResolver interface {
	PresignedURL(ctx context.Context, key string) (string, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	MaxTokens   int
}

// Client implements ai.Analyzer and ai.Generator on the chat completions API.
type Client struct {
	*openai.Client
	Model       string
	VisionModel string
	MaxTokens   int
	Images      ImageResolver
}

func NewClient(cfg Config, images ImageResolver) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	vision := cfg.VisionModel
	if vision == "" {
		vision = cfg.Model
	}
	return &Client{
		Client:      openai.NewClientWithConfig(oc),
		Model:       cfg.Model,
		VisionModel: vision,
		MaxTokens:   cfg.MaxTokens,
		Images:      images,
	}
}

// Analyze sends the image with the radiologist prompt and returns the raw reply.
func (c *Client) Analyze(ctx context.Context, req ai.AnalysisRequest) (string, error) {
	url := req.ImageRef
	if c.Images != nil && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		u, err := c.Images.PresignedURL(ctx, req.ImageRef)
		if err != nil {
			return "", fmt.Errorf("resolve image %s: %w", req.ImageRef, err)
		}
		url = u
	}

	creq := c.request(c.VisionModel, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.AnalysisSystem()},
		{Role: openai.ChatMessageRoleUser, MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt.AnalysisUser(req.Modality, req.Context)},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailHigh}},
		}},
	})
	creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}
	return c.complete(ctx, creq)
}

// Generate returns the text reply for a single user prompt.
func (c *Client) Generate(ctx context.Context, p string) (string, error) {
	return c.complete(ctx, c.request(c.Model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: p},
	}))
}

func (c *Client) request(model string, msgs []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	if model == "" {
		model = openai.GPT4oMini
	}
	req := openai.ChatCompletionRequest{Model: model, Messages: msgs}
	limit := c.MaxTokens
	if limit <= 0 {
		limit = defaultMaxTokens
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoning(model) {
		req.MaxCompletionTokens = limit
	} else {
		req.MaxTokens = limit
	}
	return req
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		if isQuota(err) {
			return "", fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoning(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func isQuota(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.Code == "insufficient_quota"
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
