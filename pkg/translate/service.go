package translate

import (
	"context"
	"strings"

	"ytmeta-go/pkg/logger"
	"ytmeta-go/pkg/metrics"
)

// Result labels recorded per translated value.
const (
	ResultTranslated = "translated"
	ResultEnglish    = "english"
	ResultInvalid    = "invalid"
	ResultError      = "error"
)

type ServiceConfig struct {
	Source      string  `mapstructure:"source"`
	Target      string  `mapstructure:"target"`
	MaxChunk    int     `mapstructure:"max_chunk"`
	MaxHalvings int     `mapstructure:"max_halvings"`
	Threshold   float64 `mapstructure:"threshold"`
	GroupSize   int     `mapstructure:"group_size"`
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Source:      "auto",
		Target:      "en",
		MaxChunk:    4800,
		MaxHalvings: 10,
		Threshold:   0.8,
		GroupSize:   20,
	}
}

// Service decides per text whether to translate it and drives the chunked
// translation.
type Service struct {
	client  Translator
	config  ServiceConfig
	metrics *metrics.Recorder
	log     *logger.Logger
}

func NewService(client Translator, config ServiceConfig, m *metrics.Recorder) *Service {
	def := DefaultServiceConfig()
	if config.Source == "" {
		config.Source = def.Source
	}
	if config.Target == "" {
		config.Target = def.Target
	}
	if config.MaxChunk <= 0 {
		config.MaxChunk = def.MaxChunk
	}
	if config.MaxHalvings <= 0 {
		config.MaxHalvings = def.MaxHalvings
	}
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.GroupSize <= 0 {
		config.GroupSize = def.GroupSize
	}
	return &Service{
		client:  client,
		config:  config,
		metrics: m,
		log:     logger.GetLogger().WithField("component", "translator"),
	}
}

// Text returns the translation of s, s itself when it is already mostly
// English, or one of the sentinels.
func (s *Service) Text(ctx context.Context, text string) string {
	out, result := s.text(ctx, text)
	s.metrics.Translated(result)
	return out
}

func (s *Service) text(ctx context.Context, text string) (string, string) {
	clean, ok := Validate(text)
	if !ok {
		return InvalidText, ResultInvalid
	}
	if EnglishShare(clean, s.config.GroupSize) >= s.config.Threshold {
		return clean, ResultEnglish
	}

	limit := s.config.MaxChunk
	for halvings := 0; ; halvings++ {
		out, err := s.chunked(ctx, clean, limit)
		if err == nil {
			return out, ResultTranslated
		}
		if halvings == s.config.MaxHalvings || limit <= 1 || ctx.Err() != nil {
			s.log.WithFields(map[string]interface{}{
				"chunk_limit": limit,
				"halvings":    halvings,
			}).WithError(err).Warn("Translation failed")
			return TranslationError, ResultError
		}
		limit /= 2
		s.log.WithField("chunk_limit", limit).WithError(err).Debug("Retrying translation with smaller chunks")
	}
}

func (s *Service) chunked(ctx context.Context, text string, limit int) (string, error) {
	chunks := Chunk(text, limit)
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out, err := s.client.Translate(ctx, c, s.config.Source, s.config.Target)
		if err != nil {
			return "", err
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, " "), nil
}
