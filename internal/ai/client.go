package ai

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gburiasco/UneedesAI/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-2.5-flash-lite"

// ErrGeneration covers both a failed model call and output that could not be
// salvaged into valid questions. The two are deliberately not distinguished
// at the user-facing edge.
var ErrGeneration = errors.New("question generation failed")

// Client calls the Gemini API to turn document text into quiz questions.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(defaultModel)
	model.SetTemperature(0.4)
	model.SetMaxOutputTokens(8192)

	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// GenerateQuiz asks the model for a fresh batch of questions over text.
func (c *Client) GenerateQuiz(ctx context.Context, text string) ([]models.GeneratedQuestion, error) {
	return c.generate(ctx, BuildQuizPrompt(text))
}

// GenerateFollowUp asks for a new batch, passing existing question texts as
// an exclusion list. Deduplication is best effort; the model may still repeat.
func (c *Client) GenerateFollowUp(ctx context.Context, text string, existing []string) ([]models.GeneratedQuestion, error) {
	return c.generate(ctx, BuildFollowUpPrompt(text, existing))
}

func (c *Client) generate(ctx context.Context, prompt string) ([]models.GeneratedQuestion, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Printf("gemini call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	if resp.UsageMetadata != nil {
		log.Printf("gemini tokens: prompt=%d candidates=%d total=%d",
			resp.UsageMetadata.PromptTokenCount,
			resp.UsageMetadata.CandidatesTokenCount,
			resp.UsageMetadata.TotalTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty response", ErrGeneration)
	}

	var raw string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			raw += string(text)
		}
	}

	questions, err := SanitizeQuizJSON(raw)
	if err != nil {
		log.Printf("unusable model output: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return questions, nil
}
