package gateway

import (
	"bytes"
	"context"
	"hash/fnv"
	"image"
	"image/png"
	"math"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

const mockImageSize = 48

// Mock is an offline gateway. Images are seeded from the prompt text and
// scores come from LexicalScore, so identical inputs always give identical
// output.
type Mock struct {
	Latency     time.Duration
	GenerateErr error
	ScoreErr    error
}

func NewMock(latency time.Duration) *Mock {
	return &Mock{Latency: latency}
}

func (m *Mock) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	if err := m.wait(ctx); err != nil {
		return Image{}, &GenerationError{Prompt: prompt, Err: err}
	}
	if m.GenerateErr != nil {
		return Image{}, &GenerationError{Prompt: prompt, Err: m.GenerateErr}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, renderPromptImage(prompt)); err != nil {
		return Image{}, &GenerationError{Prompt: prompt, Err: err}
	}
	return Image{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}

func (m *Mock) ScoreSimilarity(ctx context.Context, candidate, reference string) (int, error) {
	if err := m.wait(ctx); err != nil {
		return 0, &ScoringError{Err: err}
	}
	if m.ScoreErr != nil {
		return 0, &ScoringError{Err: m.ScoreErr}
	}
	return LexicalScore(candidate, reference), nil
}

func (m *Mock) wait(ctx context.Context) error {
	if m.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var namedColors = map[string]string{
	"red":    "#d64545",
	"orange": "#e8893a",
	"yellow": "#f2d04b",
	"green":  "#4caf50",
	"blue":   "#3f7fd6",
	"purple": "#8e5bd6",
	"pink":   "#e883b5",
	"brown":  "#7a5133",
	"wooden": "#8b5a2b",
	"black":  "#1d1d1f",
	"dark":   "#2a2a33",
	"white":  "#f4f4f4",
	"silver": "#b8bcc2",
	"bright": "#fff3c4",
	"neon":   "#ff2fd0",
	"night":  "#151a3a",
	"rainy":  "#5d6d7e",
}

// renderPromptImage paints a background gradient and a centered disc, each
// colored by words of the prompt.
func renderPromptImage(prompt string) image.Image {
	palette := promptPalette(prompt)
	img := image.NewRGBA(image.Rect(0, 0, mockImageSize, mockImageSize))
	center := float64(mockImageSize-1) / 2
	radius := float64(mockImageSize) / 4
	for y := 0; y < mockImageSize; y++ {
		row := palette[0].BlendLab(palette[1], float64(y)/float64(mockImageSize-1)).Clamped()
		for x := 0; x < mockImageSize; x++ {
			c := row
			if math.Hypot(float64(x)-center, float64(y)-center) <= radius {
				c = palette[2]
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func promptPalette(prompt string) [3]colorful.Color {
	var out [3]colorful.Color
	n := 0
	tokens := tokenize(prompt)
	for _, tok := range tokens {
		if hex, ok := namedColors[tok]; ok && n < len(out) {
			if c, err := colorful.Hex(hex); err == nil {
				out[n] = c
				n++
			}
		}
	}
	seed := hashString(prompt)
	for i := n; i < len(out); i++ {
		hue := float64((seed >> (uint(i) * 9)) % 360)
		out[i] = colorful.Hsv(hue, 0.55, 0.85)
	}
	return out
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.TrimSpace(s)))
	return h.Sum64()
}
