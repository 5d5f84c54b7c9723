package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultImageModel = "gemini-2.5-flash-image"
	DefaultScoreModel = "gemini-3-flash-preview"
	responseMIMEType  = "application/json"
)

const scorePromptTemplate = `Compare the user's prompt with the master prompt and rate their similarity as a percentage from 0 to 100.
The rating reflects how many key visual elements, styles and details the two prompts share.

Master prompt: %q
User prompt: %q

Respond with a JSON object holding a single integer field "score".`

var errNoImage = errors.New("no image in response")

type GeminiConfig struct {
	APIKey     string
	ImageModel string
	ScoreModel string
	Timeout    time.Duration
}

// Gemini talks to the Gemini API through the genai client.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.ScoreModel == "" {
		cfg.ScoreModel = DefaultScoreModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

func (g *Gemini) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.ImageModel, genai.Text(prompt), imageConfig())
	if err != nil {
		return Image{}, &GenerationError{Prompt: prompt, Err: err}
	}
	img, ok := firstInlineImage(resp)
	if !ok {
		return Image{}, &GenerationError{Prompt: prompt, Err: errNoImage}
	}
	return img, nil
}

// imageConfig asks for square images; previews and layout assume 1:1.
func imageConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: "1:1"},
	}
}

func firstInlineImage(resp *genai.GenerateContentResponse) (Image, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Image{}, false
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return Image{Data: part.InlineData.Data, MIMEType: mime}, true
	}
	return Image{}, false
}

func (g *Gemini) ScoreSimilarity(ctx context.Context, candidate, reference string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: responseMIMEType,
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"score": {Type: genai.TypeInteger},
			},
			Required: []string{"score"},
		},
	}
	prompt := fmt.Sprintf(scorePromptTemplate, reference, candidate)
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.ScoreModel, genai.Text(prompt), cfg)
	if err != nil {
		return 0, &ScoringError{Err: err}
	}
	score, err := parseScore(resp.Text())
	if err != nil {
		return 0, &ScoringError{Err: err}
	}
	return score, nil
}

func parseScore(body string) (int, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return 0, errors.New("empty scoring response")
	}
	var out struct {
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return 0, fmt.Errorf("decode scoring response: %w", err)
	}
	if out.Score == nil {
		return 0, errors.New("scoring response missing score")
	}
	// Clamp before converting: out-of-range floats do not survive int().
	return int(math.Round(max(0, min(100, *out.Score)))), nil
}
