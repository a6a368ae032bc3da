package generation

import "fmt"

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// New builds a generator for provider.
func New(provider string, cfg OpenAIConfig, opts ...Option) (Generator, error) {
	switch provider {
	case ProviderOpenAI, "":
		g, err := NewOpenAIGenerator(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderMock:
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s (supported: openai, mock)", provider)
	}
}
