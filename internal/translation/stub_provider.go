package translation

import "context"

// DefaultStubDictionary maps target model tag -> source text -> translation.
func DefaultStubDictionary() map[string]map[string]string {
	return map[string]map[string]string{
		"fra_Latn": {
			"Hello":             "Bonjour",
			"How are you?":      "Comment allez-vous ?",
			"Thank you":         "Merci",
			"How can I help?":   "Comment puis-je aider ?",
			"See you tomorrow.": "À demain.",
		},
		"spa_Latn": {
			"Hello":             "Hola",
			"How are you?":      "¿Cómo estás?",
			"Thank you":         "Gracias",
			"How can I help?":   "¿Cómo puedo ayudar?",
			"See you tomorrow.": "Hasta mañana.",
		},
		"eng_Latn": {
			"Bonjour": "Hello",
			"Hola":    "Hello",
			"Merci":   "Thank you",
		},
	}
}

// StubProvider translates from a fixed dictionary and prefixes anything it
// does not know with the target tag. Used in development and tests.
type StubProvider struct {
	dictionary map[string]map[string]string
}

func NewStubProvider(dictionary map[string]map[string]string) *StubProvider {
	if dictionary == nil {
		dictionary = DefaultStubDictionary()
	}
	return &StubProvider{dictionary: dictionary}
}

func (s *StubProvider) Load(_ context.Context, _ ModelSize) (Translator, error) {
	return s, nil
}

func (s *StubProvider) Translate(ctx context.Context, text, _, targetTag string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if byText, ok := s.dictionary[targetTag]; ok {
		if out, ok := byText[text]; ok {
			return out, nil
		}
	}
	return "[" + targetTag + "] " + text, nil
}
