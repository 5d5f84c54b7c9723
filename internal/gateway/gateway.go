package gateway

import (
	"context"
	"fmt"
)

// Gateway is the boundary to the text-to-image provider.
type Gateway interface {
	// GenerateImage renders prompt into an image.
	GenerateImage(ctx context.Context, prompt string) (Image, error)
	// ScoreSimilarity rates how closely candidate matches reference, 0-100.
	// Callers clamp the result; providers are not trusted to stay in range.
	ScoreSimilarity(ctx context.Context, candidate, reference string) (int, error)
}

type Image struct {
	Data     []byte
	MIMEType string
}

func (i Image) Empty() bool { return len(i.Data) == 0 }

type GenerationError struct {
	Prompt string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate image: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

type ScoringError struct {
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("score similarity: %v", e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }
