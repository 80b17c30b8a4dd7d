package classifier

import (
	"fmt"
	"os"

	"fjacquet/teamkasse/internal/models"

	"gopkg.in/yaml.v3"
)

// Keywords is the keyword taxonomy used by the Classifier. It can be
// overridden from a YAML file; lists left empty keep their defaults.
type Keywords struct {
	Drinks         []string `yaml:"drinks"`
	Exclusions     []string `yaml:"exclusions"`
	Credits        []string `yaml:"credits"`
	Buckets        []Bucket `yaml:"buckets"`
	DuesCategories []string `yaml:"dues_categories"`
	Placeholders   []string `yaml:"placeholders"`
}

// Bucket maps drink keywords to a beverage category. Buckets are evaluated
// in order and the first match wins.
type Bucket struct {
	Category models.BeverageCategory `yaml:"category"`
	Keywords []string                `yaml:"keywords"`
}

// DefaultKeywords returns the built-in German/English taxonomy.
func DefaultKeywords() Keywords {
	return Keywords{
		Drinks: []string{
			"bier", "pils", "radler", "weizen", "helles", "alster",
			"cola", "fanta", "sprite", "spezi", "limo", "wasser", "schorle", "saft",
			"apfelwein", "äppler", "äppelwoi", "ebbelwoi", "cider", "schoppen",
			"sekt", "wein", "schnaps", "kurzer", "getränk", "drink", "beer",
		},
		Exclusions: []string{"strafkasten", "kasten", "kiste", "runde", "crate", "round"},
		Credits:    []string{"guthaben", "einzahlung", "aufladung", "top-up", "topup"},
		Buckets: []Bucket{
			{Category: models.BeverageCider, Keywords: []string{"apfelwein", "äppler", "äppelwoi", "ebbelwoi", "cider", "schoppen"}},
			{Category: models.BeverageBeerSoft, Keywords: []string{
				"bier", "beer", "pils", "radler", "weizen", "helles", "alster",
				"cola", "fanta", "sprite", "spezi", "limo", "wasser", "schorle", "saft",
			}},
		},
		DuesCategories: []string{"beitrag", "mitgliedsbeitrag", "beiträge", "dues", "membership"},
		Placeholders: []string{
			"unknown", "unbekannt", "n/a", "na", "none", "null", "-", "?", "kein name",
			"deleted user", "gelöschter benutzer",
		},
	}
}

// LoadKeywordFile reads keyword overrides from a YAML file and merges them
// over the defaults.
func LoadKeywordFile(path string) (Keywords, error) {
	kw := DefaultKeywords()
	if path == "" {
		return kw, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return kw, fmt.Errorf("failed to read keyword file %s: %w", path, err)
	}

	var overrides Keywords
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return kw, fmt.Errorf("failed to parse keyword file %s: %w", path, err)
	}

	return kw.merge(overrides), nil
}

func (k Keywords) merge(o Keywords) Keywords {
	if len(o.Drinks) > 0 {
		k.Drinks = o.Drinks
	}
	if len(o.Exclusions) > 0 {
		k.Exclusions = o.Exclusions
	}
	if len(o.Credits) > 0 {
		k.Credits = o.Credits
	}
	if len(o.Buckets) > 0 {
		k.Buckets = o.Buckets
	}
	if len(o.DuesCategories) > 0 {
		k.DuesCategories = o.DuesCategories
	}
	if len(o.Placeholders) > 0 {
		k.Placeholders = o.Placeholders
	}
	return k
}
