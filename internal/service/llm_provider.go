package service

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// LLMResult 一次模型调用的结果
type LLMResult struct {
	Text             string `json:"text"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// DecisionProvider 大模型调用抽象，openai与google两种实现
type DecisionProvider interface {
	Name() string
	// Generate 执行一次带联网搜索的生成调用
	Generate(ctx context.Context, prompt string) (*LLMResult, error)
}

// OpenAIProvider 基于 OpenAI Responses API 的实现，启用 web_search 工具
type OpenAIProvider struct {
	logger *zap.Logger
	client *openai.Client
	model  string
	effort string
}

// NewOpenAIProvider 创建OpenAI实现
func NewOpenAIProvider(client *openai.Client, model, effort string, logger *zap.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		logger: logger,
		client: client,
		model:  model,
		effort: effort,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (*LLMResult, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(p.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(prompt),
		},
		Tools: []responses.ToolUnionParam{
			{
				OfWebSearchPreview: &responses.WebSearchToolParam{
					Type: responses.WebSearchToolTypeWebSearchPreview,
				},
			},
		},
	}
	if p.effort != "" {
		params.Reasoning = shared.ReasoningParam{
			Effort: shared.ReasoningEffort(p.effort),
		}
	}

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}

	return &LLMResult{
		Text:             resp.OutputText(),
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// GoogleProvider 基于 Gemini API 的实现，启用 GoogleSearch 工具
type GoogleProvider struct {
	logger *zap.Logger
	client *genai.Client
	model  string
}

// NewGoogleProvider 创建Google实现
func NewGoogleProvider(client *genai.Client, model string, logger *zap.Logger) *GoogleProvider {
	return &GoogleProvider{
		logger: logger,
		client: client,
		model:  model,
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) Generate(ctx context.Context, prompt string) (*LLMResult, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call Gemini API: %w", err)
	}

	result := &LLMResult{
		Text: resp.Text(),
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}
