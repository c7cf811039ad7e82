package detect

import (
	"sort"
	"strings"
)

var modelTags = map[string]string{
	"en": "eng_Latn",
	"fr": "fra_Latn",
	"hi": "hin_Deva",
	"es": "spa_Latn",
	"de": "deu_Latn",
	"zh": "zho_Hans",
	"ja": "jpn_Jpan",
	"ar": "arb_Arab",
	"ru": "rus_Cyrl",
	"pt": "por_Latn",
}

// Normalize lower-cases a language tag and strips any region, so "fr-CA"
// becomes "fr".
func Normalize(tag string) string {
	lang := strings.ToLower(strings.TrimSpace(tag))
	if idx := strings.IndexAny(lang, "-_"); idx >= 0 {
		lang = lang[:idx]
	}
	return lang
}

// ToModelTag maps a language tag to the translation model's tag. Unknown
// languages map to DefaultModelTag.
func ToModelTag(tag string) string {
	if mt, ok := modelTags[Normalize(tag)]; ok {
		return mt
	}
	return DefaultModelTag
}

// IsSupported reports whether tag has a model mapping of its own.
func IsSupported(tag string) bool {
	_, ok := modelTags[Normalize(tag)]
	return ok
}

// Supported lists the language tags with a model mapping, sorted.
func Supported() []string {
	out := make([]string, 0, len(modelTags))
	for tag := range modelTags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
