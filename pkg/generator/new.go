package generator

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Provider names.
const (
	ProviderAuto        = "auto"
	ProviderDeepSeek    = "deepseek"
	ProviderHuggingFace = "huggingface"
	ProviderGemini      = "gemini"
	ProviderReplay      = "replay"
)

// Config selects and configures providers.
type Config struct {
	// Provider is the primary provider; "auto" picks DeepSeek when a key is
	// configured and HuggingFace otherwise.
	Provider string `yaml:"provider"`
	// Fallback lists providers tried, in order, after the primary fails.
	Fallback    []string     `yaml:"fallback"`
	DeepSeek    ChatConfig   `yaml:"deepseek"`
	HuggingFace ChatConfig   `yaml:"huggingface"`
	Gemini      GeminiConfig `yaml:"gemini"`
	Replay      ReplayConfig `yaml:"replay"`
}

// DefaultConfig returns the provider defaults.
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderAuto,
		DeepSeek:    DefaultDeepSeekConfig(),
		HuggingFace: DefaultHuggingFaceConfig(),
		Gemini:      DefaultGeminiConfig(),
	}
}

// New builds the configured generator. With provider auto and a DeepSeek key,
// HuggingFace is appended as a fallback unless Fallback is set explicitly.
func New(ctx context.Context, cfg Config, log *zap.Logger) (Generator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("generator")

	primary := cfg.Provider
	fallback := cfg.Fallback
	if primary == "" || primary == ProviderAuto {
		if cfg.DeepSeek.APIKey != "" {
			primary = ProviderDeepSeek
			if fallback == nil {
				fallback = []string{ProviderHuggingFace}
			}
		} else {
			primary = ProviderHuggingFace
		}
	}

	names := append([]string{primary}, fallback...)
	seen := make(map[string]bool, len(names))
	var chain []Named
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		g, err := build(ctx, name, cfg, log)
		if err != nil {
			if name == primary {
				return nil, err
			}
			log.Warn("fallback provider unavailable", zap.String("provider", name), zap.Error(err))
			continue
		}
		chain = append(chain, g)
	}

	if len(chain) == 1 {
		log.Info("using provider", zap.String("provider", chain[0].Name()))
		return chain[0], nil
	}
	f := NewFallback(log, chain...)
	log.Info("using provider chain", zap.String("provider", f.Name()))
	return f, nil
}

func build(ctx context.Context, name string, cfg Config, log *zap.Logger) (Named, error) {
	switch name {
	case ProviderDeepSeek:
		return NewChatClient(ProviderDeepSeek, cfg.DeepSeek, log)
	case ProviderHuggingFace:
		return NewChatClient(ProviderHuggingFace, cfg.HuggingFace, log)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg.Gemini, log)
	case ProviderReplay:
		return NewReplay(cfg.Replay.Path)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProvider, name)
	}
}
