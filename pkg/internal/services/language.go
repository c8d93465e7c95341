package services

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

type LanguageDetector struct {
	detector lingua.LanguageDetector
}

func NewLanguageDetector() *LanguageDetector {
	languages := []lingua.Language{
		lingua.English,
		lingua.Spanish,
		lingua.Portuguese,
		lingua.French,
		lingua.German,
		lingua.Japanese,
		lingua.Chinese,
	}

	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build(),
	}
}

// Detect returns the lowercase ISO 639-1 code of the caption language, or an
// empty string when detection is inconclusive.
func (d *LanguageDetector) Detect(content string) string {
	language, ok := d.detector.DetectLanguageOf(content)
	if !ok {
		return ""
	}
	return strings.ToLower(language.IsoCode639_1().String())
}
