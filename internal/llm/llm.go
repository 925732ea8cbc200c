// Package llm wraps the OpenAI chat API for the coach and screenshot
// extraction.
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"trading-journal/internal/logging"
)

// ErrNoResponse is returned when the API answers without choices.
var ErrNoResponse = errors.New("no response from openai")

// maxToolRounds bounds the tool-call loop.
const maxToolRounds = 6

// Completer sends text prompts to a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// VisionCompleter sends a prompt with an image and expects a JSON object back.
type VisionCompleter interface {
	CompleteWithImage(ctx context.Context, systemPrompt, userPrompt string, image []byte, mimeType string) (string, error)
}

// ToolExecutor runs a tool the model asked for.
type ToolExecutor interface {
	ExecuteTool(ctx context.Context, toolName string, args json.RawMessage) (string, error)
}

// ToolCallLog represents a single tool call made while answering.
type ToolCallLog struct {
	ToolName  string `json:"tool"`
	Arguments string `json:"arguments"`
	Result    string `json:"result"`
}

// ChainOfThought captures the tool calls behind a response.
type ChainOfThought struct {
	ToolCalls []ToolCallLog `json:"toolCalls"`
	Response  string        `json:"response"`
}

// OpenAIClient implements Completer and VisionCompleter using the OpenAI API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	visionModel string
	logger      zerolog.Logger
}

// NewOpenAIClient creates a new OpenAI client. visionModel is used for
// image prompts and defaults to model.
func NewOpenAIClient(apiKey, model, visionModel string, logger zerolog.Logger) *OpenAIClient {
	return NewOpenAIClientWithConfig(openai.DefaultConfig(apiKey), model, visionModel, logger)
}

// NewOpenAIClientWithConfig creates a client for a custom endpoint.
func NewOpenAIClientWithConfig(cfg openai.ClientConfig, model, visionModel string, logger zerolog.Logger) *OpenAIClient {
	if visionModel == "" {
		visionModel = model
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		visionModel: visionModel,
		logger:      logger.With().Str("component", "llm").Logger(),
	}
}

// Complete sends a prompt to the LLM and returns the response.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.chat(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
}

// CompleteWithSystem sends a prompt with system message to the LLM.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.chat(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
}

// CompleteWithImage sends an inline image with the prompt to the vision model
// and requests a JSON object response.
func (c *OpenAIClient) CompleteWithImage(ctx context.Context, systemPrompt, userPrompt string, image []byte, mimeType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	return c.chat(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: userPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailHigh,
					}},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
}

// CompleteWithTools answers a prompt, running any tools the model calls
// through executor, and returns the final response with its tool calls.
func (c *OpenAIClient) CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []openai.Tool, executor ToolExecutor) (*ChainOfThought, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt},
	}

	cot := &ChainOfThought{ToolCalls: make([]ToolCallLog, 0)}

	for i := 0; i < maxToolRounds; i++ {
		choice, err := c.create(ctx, openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return nil, err
		}

		if len(choice.Message.ToolCalls) == 0 {
			cot.Response = choice.Message.Content
			return cot, nil
		}

		messages = append(messages, choice.Message)

		for _, call := range choice.Message.ToolCalls {
			result, err := executor.ExecuteTool(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			if err != nil {
				result = fmt.Sprintf("Error executing tool %s: %v", call.Function.Name, err)
			}

			cot.ToolCalls = append(cot.ToolCalls, ToolCallLog{
				ToolName:  call.Function.Name,
				Arguments: call.Function.Arguments,
				Result:    result,
			})

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return nil, fmt.Errorf("exceeded maximum tool call iterations")
}

func (c *OpenAIClient) chat(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	choice, err := c.create(ctx, req)
	if err != nil {
		return "", err
	}
	return choice.Message.Content, nil
}

func (c *OpenAIClient) create(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionChoice, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	logging.LogAPICall(c.logger, "POST", "chat/completions", time.Since(start), err)

	if err != nil {
		return openai.ChatCompletionChoice{}, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionChoice{}, ErrNoResponse
	}
	return resp.Choices[0], nil
}

// Model returns the text model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

// VisionModel returns the image model name.
func (c *OpenAIClient) VisionModel() string {
	return c.visionModel
}
