package tts

import (
	"sort"

	"github.com/leechanwoo-kor/chatterbox/internal/platform/errors"
)

// Variant describes one pretrained model flavor and its capabilities.
type Variant struct {
	Name      string   `json:"-"`
	Size      string   `json:"size"`
	Languages []string `json:"languages"`
	Features  []string `json:"features"`
	BestFor   string   `json:"best_for"`
}

const (
	VariantTurbo        = "turbo"
	VariantMultilingual = "multilingual"
	VariantOriginal     = "original"
)

var variants = map[string]Variant{
	VariantTurbo: {
		Name:      VariantTurbo,
		Size:      "350M",
		Languages: []string{"en"},
		Features: []string{
			"Paralinguistic tags ([laugh], [cough], [chuckle])",
			"Low compute",
			"Fast generation",
		},
		BestFor: "Zero-shot voice agents, Production",
	},
	VariantMultilingual: {
		Name: VariantMultilingual,
		Size: "500M",
		Languages: []string{
			"ar", "da", "de", "el", "en", "es", "fi", "fr", "he", "hi",
			"it", "ja", "ko", "ms", "nl", "no", "pl", "pt", "ru", "sv",
			"sw", "tr", "zh",
		},
		Features: []string{"Zero-shot cloning", "Multiple languages"},
		BestFor:  "Global applications, Localization",
	},
	VariantOriginal: {
		Name:      VariantOriginal,
		Size:      "500M",
		Languages: []string{"en"},
		Features:  []string{"CFG tuning", "Exaggeration tuning"},
		BestFor:   "General zero-shot TTS with creative controls",
	},
}

// Variants returns the full catalog keyed by variant name.
func Variants() map[string]Variant {
	out := make(map[string]Variant, len(variants))
	for k, v := range variants {
		out[k] = v
	}
	return out
}

// VariantNames returns the variant names in stable order.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupVariant resolves a variant by name.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, errors.New(errors.KindModel, "variant.lookup",
			"unknown model type: "+name)
	}
	return v, nil
}

// SupportsLanguage reports whether the variant can render lang.
func (v Variant) SupportsLanguage(lang string) bool {
	for _, l := range v.Languages {
		if l == lang {
			return true
		}
	}
	return false
}
