package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/studentos/studentos/internal/ai"
)

// AIService wraps the AI gateway service.
type AIService struct {
	Service *ai.Service
}

// unconfiguredClient stands in when no API key is present so AI endpoints
// answer with the misconfigured classification instead of crashing.
type unconfiguredClient struct{}

func (unconfiguredClient) GenerateContent(context.Context, ai.Request) (*ai.Result, error) {
	return nil, ai.ErrNotConfigured
}

// NewAI builds the AI service over the upstream client.
func NewAI(i do.Injector) (*AIService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	cfg := cfgSvc.Get()

	var client ai.Client

	gemini, err := ai.NewGeminiClient(&cfg.AI, *loggerSvc.Logger)
	switch {
	case err == nil:
		client = gemini
	case errors.Is(err, ai.ErrNotConfigured):
		log.Warn().Msg("ai.api_key not set, AI endpoints will report the service as unavailable")
		client = unconfiguredClient{}
	default:
		return nil, fmt.Errorf("failed to create ai client: %w", err)
	}

	return &AIService{Service: ai.NewService(client, *loggerSvc.Logger)}, nil
}
