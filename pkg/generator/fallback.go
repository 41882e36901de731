package generator

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Named is a generator with a provider name.
type Named interface {
	Generator
	Name() string
}

// Fallback tries providers in order until one returns without a Go error.
// Error records (an "error" key in the result) are returned as-is and do
// not trigger the next provider.
type Fallback struct {
	providers []Named
	log       *zap.Logger
}

// NewFallback chains providers.
func NewFallback(log *zap.Logger, providers ...Named) *Fallback {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fallback{providers: providers, log: log.Named("fallback")}
}

// Name lists the chained providers.
func (f *Fallback) Name() string {
	name := "fallback("
	for i, p := range f.providers {
		if i > 0 {
			name += ","
		}
		name += p.Name()
	}
	return name + ")"
}

func (f *Fallback) Generate(ctx context.Context, prompt string) (map[string]any, error) {
	if len(f.providers) == 0 {
		return nil, ErrNoProvider
	}
	var lastErr error
	for i, p := range f.providers {
		raw, err := p.Generate(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if i < len(f.providers)-1 {
			f.log.Warn("provider failed, falling back",
				zap.String("provider", p.Name()),
				zap.String("next", f.providers[i+1].Name()),
				zap.Error(err))
		}
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
