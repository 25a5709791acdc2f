package valuation

import (
	"regexp"
	"strconv"
	"strings"
)

// Rule is a single currency notation. The first capture group of Pattern
// holds the number; Scale multiplies it.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Scale   float64
}

// DefaultRules are evaluated in order; the first rule that parses wins.
var DefaultRules = []Rule{
	{
		Name:    "currency_prefixed",
		Pattern: regexp.MustCompile(`\$(\d+(?:,\d{3})*(?:\.\d+)?)`),
		Scale:   1,
	},
	{
		Name:    "unit_suffixed",
		Pattern: regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d{2})?)\s*(?:USD|dollars?)`),
		Scale:   1,
	},
	{
		Name:    "k_suffixed",
		Pattern: regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)k\s*(?:USD|dollars?|\$)`),
		Scale:   1000,
	},
}

// Extractor turns free text into a monetary amount.
type Extractor struct {
	rules []Rule
}

// New builds an extractor over rules. Nil or empty rules fall back to DefaultRules.
func New(rules []Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Extractor{rules: rules}
}

var defaultExtractor = New(nil)

// Extract applies DefaultRules to text.
func Extract(text string) float64 {
	return defaultExtractor.Extract(text)
}

// FindAll applies DefaultRules to text and returns every mention.
func FindAll(text string) []float64 {
	return defaultExtractor.FindAll(text)
}

// Extract returns the value of the first rule that matches, or 0.
//
// Unscaled rules are multiplied by 1000 whenever a "k" or "K" occurs anywhere
// in text, not only next to the matched number. "$2k" therefore reads as 2000,
// and so does "$2 for a task".
func (e *Extractor) Extract(text string) float64 {
	if text == "" {
		return 0
	}

	thousands := strings.ContainsAny(text, "kK")
	for _, rule := range e.rules {
		m := rule.Pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		value, ok := parseAmount(m[1])
		if !ok {
			continue
		}
		scale := rule.Scale
		if scale == 1 && thousands {
			scale = 1000
		}
		return value * scale
	}
	return 0
}

// FindAll returns every amount matched by every rule, in rule order. Only the
// rule's own scale is applied.
func (e *Extractor) FindAll(text string) []float64 {
	if text == "" {
		return nil
	}

	var out []float64
	for _, rule := range e.rules {
		for _, m := range rule.Pattern.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			if value, ok := parseAmount(m[1]); ok {
				out = append(out, value*rule.Scale)
			}
		}
	}
	return out
}

func parseAmount(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}
