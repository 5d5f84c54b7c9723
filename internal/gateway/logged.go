package gateway

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Logged records every call made through the wrapped gateway.
type Logged struct {
	next   Gateway
	logger *log.Logger
}

func WithLogging(next Gateway, logger *log.Logger) *Logged {
	return &Logged{next: next, logger: logger.WithPrefix("gateway")}
}

func (l *Logged) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	start := time.Now()
	img, err := l.next.GenerateImage(ctx, prompt)
	if err != nil {
		l.logger.Warn("generate_failed", "elapsed", time.Since(start), "prompt_len", len(prompt), "err", err)
		return img, err
	}
	l.logger.Info("generated", "elapsed", time.Since(start), "bytes", len(img.Data), "mime", img.MIMEType)
	return img, nil
}

func (l *Logged) ScoreSimilarity(ctx context.Context, candidate, reference string) (int, error) {
	start := time.Now()
	score, err := l.next.ScoreSimilarity(ctx, candidate, reference)
	if err != nil {
		l.logger.Warn("score_failed", "elapsed", time.Since(start), "err", err)
		return score, err
	}
	l.logger.Info("scored", "elapsed", time.Since(start), "score", score)
	return score, nil
}
