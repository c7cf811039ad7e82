package translation

import (
	"LingoChat/internal/model"
	"context"
	"strings"
)

// ModelSize selects one of the translation models.
type ModelSize string

const (
	ModelSmall ModelSize = "600M"
	ModelLarge ModelSize = "3.3B"

	DefaultModelSize = ModelSmall
)

var modelNames = map[ModelSize]string{
	ModelSmall: "facebook/nllb-200-distilled-600M",
	ModelLarge: "facebook/nllb-200-3.3B",
}

// ParseModelSize resolves a requested size, falling back to DefaultModelSize
// for empty or unknown values.
func ParseModelSize(size string) ModelSize {
	return parseModelSize(size, DefaultModelSize)
}

func parseModelSize(size string, fallback ModelSize) ModelSize {
	s := ModelSize(strings.ToUpper(strings.TrimSpace(size)))
	if _, ok := modelNames[s]; ok {
		return s
	}
	return fallback
}

// ModelName is the model identifier served by the model server.
func (s ModelSize) ModelName() string {
	if name, ok := modelNames[s]; ok {
		return name
	}
	return modelNames[DefaultModelSize]
}

// Result is the outcome of a translation request. Translated is never empty
// for non-empty input.
type Result struct {
	Translated string    `json:"translatedText"`
	SourceLang string    `json:"sourceLang"`
	TargetLang string    `json:"targetLang"`
	ModelSize  ModelSize `json:"modelSize"`
}

// Translator is one loaded model. Languages are passed as model tags
// (eng_Latn, fra_Latn, ...).
type Translator interface {
	Translate(ctx context.Context, text, sourceTag, targetTag string) (string, error)
}

// Loader creates the translator for a model size.
type Loader interface {
	Load(ctx context.Context, size ModelSize) (Translator, error)
}

// Memory caches previous translations.
type Memory interface {
	Lookup(ctx context.Context, source, sourceLang, targetLang string) (*model.TranslationMemory, error)
	Record(ctx context.Context, source, translated, sourceLang, targetLang string) error
}
