// Package classifier sorts free-text fine reasons into fines, drink charges
// and credit top-ups, and maps drinks onto the beverage taxonomy.
package classifier

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"fjacquet/teamkasse/internal/logging"
	"fjacquet/teamkasse/internal/models"

	"golang.org/x/text/cases"
)

// Kind is the outcome of classifying a reason.
type Kind string

const (
	KindRegular  Kind = "regular"
	KindBeverage Kind = "beverage"
	KindCredit   Kind = "credit"
)

// Classification is the full result for one reason.
type Classification struct {
	Kind     Kind
	Beverage models.BeverageCategory
	Keyword  string
}

// Classifier matches case-folded text against a keyword taxonomy.
// It is safe for concurrent use.
type Classifier struct {
	drinks         []string
	exclusions     []string
	credits        []string
	buckets        []Bucket
	duesCategories []string
	placeholders   map[string]struct{}
	vocabulary     map[string]struct{}
	logger         logging.Logger
}

// New creates a Classifier for the given keywords.
func New(kw Keywords, logger logging.Logger) *Classifier {
	c := &Classifier{
		placeholders: make(map[string]struct{}, len(kw.Placeholders)),
		logger:       logging.OrDefault(logger),
	}
	c.drinks = c.foldAll(kw.Drinks)
	c.exclusions = c.foldAll(kw.Exclusions)
	c.credits = c.foldAll(kw.Credits)
	c.duesCategories = c.foldAll(kw.DuesCategories)
	for _, b := range kw.Buckets {
		c.buckets = append(c.buckets, Bucket{Category: b.Category, Keywords: c.foldAll(b.Keywords)})
	}
	for _, p := range c.foldAll(kw.Placeholders) {
		c.placeholders[p] = struct{}{}
	}
	c.vocabulary = make(map[string]struct{})
	for _, list := range [][]string{c.drinks, c.exclusions, c.credits} {
		for _, w := range list {
			c.vocabulary[w] = struct{}{}
		}
	}
	for _, b := range c.buckets {
		for _, w := range b.Keywords {
			c.vocabulary[w] = struct{}{}
		}
	}
	return c
}

// Default returns a Classifier with the built-in keywords.
func Default() *Classifier {
	return New(DefaultKeywords(), nil)
}

// Classify returns the kind of a free-text reason. Credit keywords win over
// everything, exclusion keywords (a crate or a round) win over drink keywords.
// Drink and credit keywords only match at the start of a word; exclusions
// also match inside compounds such as "Bierkasten".
func (c *Classifier) Classify(reason string) Kind {
	return c.Analyze(reason).Kind
}

// Analyze classifies a reason and, for drinks, resolves the beverage bucket.
func (c *Classifier) Analyze(reason string) Classification {
	text := c.normalize(reason)
	if text == "" {
		return Classification{Kind: KindRegular}
	}

	if kw, ok := c.firstMatch(text, c.credits); ok {
		return Classification{Kind: KindCredit, Keyword: kw}
	}
	if kw, ok := containsAny(text, c.exclusions); ok {
		c.logger.Debug("Drink keyword suppressed by exclusion",
			logging.F(logging.FieldReason, reason), logging.F("keyword", kw))
		return Classification{Kind: KindRegular, Keyword: kw}
	}
	if kw, ok := c.firstMatch(text, c.drinks); ok {
		return Classification{Kind: KindBeverage, Beverage: c.bucket(text), Keyword: kw}
	}
	return Classification{Kind: KindRegular}
}

// Beverage normalizes a drink name into the three-bucket taxonomy.
func (c *Classifier) Beverage(name string) models.BeverageCategory {
	return c.bucket(c.normalize(name))
}

func (c *Classifier) bucket(text string) models.BeverageCategory {
	for _, b := range c.buckets {
		if _, ok := c.firstMatch(text, b.Keywords); ok {
			return b.Category
		}
	}
	return models.BeverageOther
}

// IsDuesCategory reports whether a bank transaction category denotes a
// membership dues contribution.
func (c *Classifier) IsDuesCategory(category string) bool {
	text := c.normalize(category)
	for _, d := range c.duesCategories {
		if text == d {
			return true
		}
	}
	return false
}

// IsPlaceholder reports whether a member name is empty or a placeholder
// such as "Unknown".
func (c *Classifier) IsPlaceholder(name string) bool {
	text := c.normalize(name)
	if text == "" {
		return true
	}
	_, ok := c.placeholders[text]
	return ok
}

func (c *Classifier) normalize(s string) string {
	// a Caser keeps state, so each call gets its own
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

func (c *Classifier) foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = c.normalize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// inflections are the endings a keyword may carry and still count as the
// whole word ("biere", "limos").
var inflections = map[string]struct{}{
	"e": {}, "s": {}, "n": {}, "en": {}, "er": {}, "es": {},
}

// firstMatch returns the first keyword that starts a word of text. The rest
// of that word must be empty, an inflection or another known keyword, so
// "bierkasten" matches "bier" while "limousine" does not match "limo".
func (c *Classifier) firstMatch(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if c.startsWord(text, kw) {
			return kw, true
		}
	}
	return "", false
}

func (c *Classifier) startsWord(text, kw string) bool {
	for off := 0; off < len(text); {
		i := strings.Index(text[off:], kw)
		if i < 0 {
			return false
		}
		i += off
		if prev, _ := utf8.DecodeLastRuneInString(text[:i]); i == 0 || !isWordRune(prev) {
			if c.compoundTail(wordTail(text[i+len(kw):])) {
				return true
			}
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		off = i + size
	}
	return false
}

func (c *Classifier) compoundTail(rest string) bool {
	if rest == "" {
		return true
	}
	if _, ok := inflections[rest]; ok {
		return true
	}
	_, ok := c.vocabulary[rest]
	return ok
}

// wordTail returns s up to the first rune that ends a word.
func wordTail(s string) string {
	if i := strings.IndexFunc(s, func(r rune) bool { return !isWordRune(r) }); i >= 0 {
		return s[:i]
	}
	return s
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// containsAny matches keywords anywhere, compound tails included.
func containsAny(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}
