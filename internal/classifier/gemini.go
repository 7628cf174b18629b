package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for brand matching.
const DefaultModelName = "gemini-2.5-flash"

// contentGenerator is the part of *genai.Models the classifier uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClassifier classifies with one GenerateContent call per description.
// It holds no per-call state and never retries.
type GeminiClassifier struct {
	models contentGenerator
	model  string
}

// NewGeminiClassifier creates a classifier for the Gemini API. The API key is
// passed in explicitly; nothing is read from the environment here.
func NewGeminiClassifier(ctx context.Context, apiKey, model string) (*GeminiClassifier, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini classifier: empty API key")
	}
	if model == "" {
		model = DefaultModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini classifier: create genai client: %w", err)
	}

	return &GeminiClassifier{models: client.Models, model: model}, nil
}

// Model returns the model identifier sent with every request.
func (g *GeminiClassifier) Model() string {
	return g.model
}

// Classify implements Classifier.
func (g *GeminiClassifier) Classify(ctx context.Context, description string, brands []string) (string, error) {
	prompt := BuildPrompt(description, brands)

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", &ClassifierError{Description: description, Err: fmt.Errorf("generate content: %w", err)}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &ClassifierError{Description: description, Err: errors.New("empty response from model")}
	}

	return text, nil
}
