package detect

import (
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
	"go.uber.org/zap"
)

const (
	// DefaultLanguage is returned whenever detection is not confident.
	DefaultLanguage = "en"
	// MinTextLength is the shortest trimmed text (in runes) worth detecting.
	MinTextLength = 10
	// DefaultModelTag is the model tag of DefaultLanguage.
	DefaultModelTag = "eng_Latn"
)

var linguaCodes = map[lingua.Language]string{
	lingua.English:    "en",
	lingua.French:     "fr",
	lingua.Hindi:      "hi",
	lingua.Spanish:    "es",
	lingua.German:     "de",
	lingua.Chinese:    "zh",
	lingua.Japanese:   "ja",
	lingua.Arabic:     "ar",
	lingua.Russian:    "ru",
	lingua.Portuguese: "pt",
}

// Detector guesses the language of a message. It is safe for concurrent use.
type Detector struct {
	detector lingua.LanguageDetector
	logger   *zap.Logger
}

func NewDetector(logger *zap.Logger) *Detector {
	languages := make([]lingua.Language, 0, len(linguaCodes))
	for lang := range linguaCodes {
		languages = append(languages, lang)
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		WithPreloadedLanguageModels().
		Build()

	logger.Info("language detector initialized", zap.Int("languages", len(languages)))
	return &Detector{detector: detector, logger: logger}
}

// Detect returns the ISO 639-1 tag of text, DefaultLanguage when the text is
// too short or the language cannot be told.
func (d *Detector) Detect(text string) string {
	clean := strings.TrimSpace(text)
	if utf8.RuneCountInString(clean) < MinTextLength {
		return DefaultLanguage
	}

	lang, ok := d.detector.DetectLanguageOf(clean)
	if !ok {
		d.logger.Debug("could not detect language, using default", zap.Int("text_length", len(clean)))
		return DefaultLanguage
	}
	code, ok := linguaCodes[lang]
	if !ok {
		return DefaultLanguage
	}
	return code
}
