package embedding

import "fmt"

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// New builds an embedder for provider. mockDimensions is only used by the mock provider.
func New(provider string, cfg OpenAIConfig, mockDimensions int, opts ...Option) (Embedder, error) {
	switch provider {
	case ProviderOpenAI, "":
		e, err := NewOpenAIEmbedder(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderMock:
		return NewMockEmbedder(mockDimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, mock)", provider)
	}
}
