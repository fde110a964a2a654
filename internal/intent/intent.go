// Package intent classifies inbound chat messages into commerce intents.
//
// Classification is deterministic: folded text is matched against two fixed,
// token-disjoint lexicons with whole-word boundaries. Sell is checked before
// Search, so a message matching both lexicons is a Sell.
package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/BTreeMap/YonkeBot/internal/util"
)

// Intent is the coarse category assigned to a message without an active session.
type Intent string

const (
	// Unknown means neither lexicon matched.
	Unknown Intent = "unknown"
	// Sell means the sender wants to publish listings.
	Sell Intent = "sell"
	// Search means the sender is looking for a part.
	Search Intent = "search"
)

// sellTriggers includes the misspellings and regional phrasing seen in the wild.
var sellTriggers = []string{
	"vender",
	"vendo",
	"bender",
	"bendo",
	"vendiendo",
	"quiero vender",
	"necesito vender",
	"nesecito vender",
	"nececito vender",
	"urge vender",
	"se vende",
	"remato",
	"publicar",
}

var searchTriggers = []string{
	"buscar",
	"busco",
	"buscando",
	"vusco",
	"vuzco",
	"buzco",
	"vuzcar",
	"vuscar",
	"buzcar",
	"ocupo",
}

var (
	sellPattern   = wordPattern(sellTriggers)
	searchPattern = wordPattern(searchTriggers)
)

// wordPattern builds a case-insensitive alternation that only matches whole
// words. Go's \b is ASCII-only, so the boundaries are explicit Unicode classes
// and are captured to be put back when stripping.
func wordPattern(phrases []string) *regexp.Regexp {
	sorted := append([]string(nil), phrases...)
	// Longest phrase first so "quiero vender" wins over "vender".
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	alts := make([]string, len(sorted))
	for i, p := range sorted {
		words := strings.Fields(p)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		alts[i] = strings.Join(words, `\s+`)
	}
	return regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])(?:` + strings.Join(alts, "|") + `)($|[^\p{L}\p{N}])`)
}

// Classify returns the intent of a message. Sell takes precedence over Search.
func Classify(text string) Intent {
	folded := util.Fold(text)
	switch {
	case sellPattern.MatchString(folded):
		return Sell
	case searchPattern.MatchString(folded):
		return Search
	default:
		return Unknown
	}
}

// StripSellTrigger removes every sell trigger phrase from text, keeping the
// rest of the text (and its accents) intact.
func StripSellTrigger(text string) string {
	return strip(sellPattern, text)
}

// StripSearchTrigger removes every search trigger from the folded text and
// returns the remaining search terms.
func StripSearchTrigger(text string) string {
	return util.CollapseSpaces(strip(searchPattern, util.Fold(text)))
}

func strip(re *regexp.Regexp, text string) string {
	// Adjacent triggers share a boundary character, so repeat until stable.
	for {
		next := re.ReplaceAllString(text, "${1}${2}")
		if next == text {
			return text
		}
		text = next
	}
}

// SellTriggers returns a copy of the sell lexicon.
func SellTriggers() []string {
	return append([]string(nil), sellTriggers...)
}

// SearchTriggers returns a copy of the search lexicon.
func SearchTriggers() []string {
	return append([]string(nil), searchTriggers...)
}
