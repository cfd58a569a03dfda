package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dosewise/dosewise/internal/apperrors"
	"github.com/dosewise/dosewise/internal/config"
	"github.com/dosewise/dosewise/internal/logger"
	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// modelTemperature favors deterministic output over creative variation.
const modelTemperature = 0.1

const systemInstruction = "You are a clinical decision-support assistant for insulin dosing. " +
	"You answer only with a single JSON object matching the schema given in the user message. " +
	"You are cautious: when the data is ambiguous you recommend the conservative option and lower your confidence."

// AIService is the gateway to the external reasoning model. It speaks to
// exactly one provider, selected by configuration.
type AIService struct {
	provider     string
	geminiClient *genai.Client
	openaiClient *openai.Client
	geminiModel  string
	openaiModel  string
	timeout      time.Duration
}

// NewAIService creates the gateway for the configured provider.
func NewAIService(cfg config.AIConfig) (*AIService, error) {
	s := &AIService{
		provider:    cfg.Provider,
		geminiModel: cfg.GeminiModel,
		openaiModel: cfg.OpenAIModel,
		timeout:     cfg.Timeout,
	}

	switch cfg.Provider {
	case "gemini":
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
	case "openai":
		s.openaiClient = openai.NewClient(cfg.OpenAIAPIKey)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}

	return s, nil
}

// GenerateRecommendation sends the built prompt and returns the model's raw
// response text. Transport and provider errors are returned for the caller
// to absorb into the conservative fallback; JSON parsing of the payload is
// the response parser's job, not the gateway's.
func (s *AIService) GenerateRecommendation(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var raw string
	var err error
	if s.provider == "openai" {
		raw, err = s.generateWithOpenAI(ctx, prompt)
	} else {
		raw, err = s.generateWithGemini(ctx, prompt)
	}
	if err != nil {
		logger.Error("Model provider call failed", "provider", s.provider, "error", err)
		return "", apperrors.NewExternalAPIError(err, s.provider)
	}
	return raw, nil
}

func (s *AIService) generateWithGemini(ctx context.Context, prompt string) (string, error) {
	model := s.geminiClient.GenerativeModel(s.geminiModel)
	model.SetTemperature(modelTemperature)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type %T", resp.Candidates[0].Content.Parts[0])
	}
	return string(text), nil
}

func (s *AIService) generateWithOpenAI(ctx context.Context, prompt string) (string, error) {
	resp, err := s.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.openaiModel,
		Temperature: modelTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return resp.Choices[0].Message.Content, nil
}
