package ocr

import (
	"fmt"

	"billparse/internal/config"
	"billparse/internal/port"
)

// ProviderFactory is a function that creates an OCREngine from a provider config.
type ProviderFactory func(cfg *config.OCRProviderConfig) (port.OCREngine, error)

// registry of OCR provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers an OCR provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewEngine creates an OCREngine from a provider config using the registered factory.
func NewEngine(cfg *config.OCRProviderConfig) (port.OCREngine, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown ocr provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
