// Package llm provides the model-client abstraction the pipeline talks to:
// free-form text completion and JSON-mode structured completion, behind a
// small interface so tests can substitute a fake.
package llm

// ModelTier represents the capability level asked of the provider.
type ModelTier string

const (
	// TierLite is for simple extraction and classification.
	TierLite ModelTier = "lite"
	// TierStandard is for structured parsing and markdown rendering.
	TierStandard ModelTier = "standard"
	// TierAdvanced is for artifact generation that needs real reasoning.
	TierAdvanced ModelTier = "advanced"
)

// Provider identifies an LLM backend.
type Provider string

// Supported providers.
const (
	ProviderGemini Provider = "gemini"
)

// Config holds the provider and the model used per tier.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the default Gemini tier mapping.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// Model returns the model name for a tier, falling back through standard and
// lite when the tier is not configured.
func (c *Config) Model(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	return c.Models[TierLite]
}
