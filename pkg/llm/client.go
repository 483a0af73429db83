// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"love-coach-go/internal/config"
	"love-coach-go/pkg/log"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// 角色常量
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse 表示模型没有返回任何可用内容。
var ErrEmptyResponse = errors.New("llm: empty response")

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StructuredOutput 是结构化补全的响应契约：字段集合固定，解码后必须通过 Validate。
type StructuredOutput interface {
	Validate() error
}

// Client defines the interface for an LLM client.
// 每次调用只尝试一次，不做重试。
type Client interface {
	// Complete 发送消息并返回第一个 choice 的文本。
	Complete(ctx context.Context, messages []Message) (string, error)
	// CompleteStructured 以 json_schema 约束输出，并把第一个 choice 解码到 out。
	CompleteStructured(ctx context.Context, messages []Message, format ResponseFormat, out StructuredOutput) error
}

type openAIClient struct {
	cfg    config.LLMConfig
	client openai.Client
}

// NewClient 基于 OpenAI SDK 创建 Client。SDK 自带的重试被关闭。
func NewClient(cfg config.LLMConfig, opts ...option.RequestOption) Client {
	base := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		base = append(base, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.RequestTimeout > 0 {
		base = append(base, option.WithRequestTimeout(cfg.RequestTimeout))
	}
	return &openAIClient{
		cfg:    cfg,
		client: openai.NewClient(append(base, opts...)...),
	}
}

func (c *openAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	params := c.newParams(messages)
	content, err := c.firstChoice(ctx, params)
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *openAIClient) CompleteStructured(ctx context.Context, messages []Message, format ResponseFormat, out StructuredOutput) error {
	params := c.newParams(messages)
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        format.Name,
				Description: openai.String(format.Description),
				Schema:      format.Schema,
				Strict:      openai.Bool(true),
			},
		},
	}

	content, err := c.firstChoice(ctx, params)
	if err != nil {
		return err
	}
	if err := DecodeJSON(content, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", format.Name, err)
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("invalid %s response: %w", format.Name, err)
	}
	return nil
}

func (c *openAIClient) newParams(messages []Message) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.cfg.Model),
		Messages: toOpenAIMessages(messages),
		Store:    openai.Bool(c.cfg.Store),
	}
	// 只发送配置中显式设置的参数，0 也是有效取值
	gen := c.cfg.Generation
	if gen.Temperature != nil {
		params.Temperature = openai.Float(*gen.Temperature)
	}
	if gen.TopP != nil {
		params.TopP = openai.Float(*gen.TopP)
	}
	if gen.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*gen.MaxTokens))
	}
	return params
}

func (c *openAIClient) firstChoice(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	log.Infof("[LLMClient] 调用 chat completions, model: %s, messages: %d", c.cfg.Model, len(params.Messages))
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Errorf("[LLMClient] 调用 chat completions 失败, error: %v", err)
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", msg.Refusal)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", ErrEmptyResponse
	}
	return msg.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// DecodeJSON 解码模型输出的 JSON：先整体解析，失败时提取第一个顶层对象再解析。
func DecodeJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}
