// Package extract pulls structured listing fields out of free-form sell messages.
//
// A message is split into item segments on conjunctions, then each segment runs
// through an ordered pipeline of extractors (price, condition, vehicle) over a
// shrinking remaining-text value. Whatever is left becomes the title.
package extract

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/BTreeMap/YonkeBot/internal/intent"
	"github.com/BTreeMap/YonkeBot/internal/models"
	"github.com/BTreeMap/YonkeBot/internal/util"
)

// Span is the half-open byte range an extractor consumed.
type Span struct {
	Start int
	End   int
}

// Extractor finds one field in text. It reports the normalized value and the
// span to cut out of the remaining text.
type Extractor func(text string) (value string, span Span, ok bool)

// step binds an extractor to the draft field it fills.
type step struct {
	name    string
	extract Extractor
	assign  func(d *models.ListingDraft, value string)
}

// Pipeline runs its steps in order. Each match is removed from the remaining
// text before the next step looks at it.
type Pipeline []step

// Run applies every step to text and returns the draft plus the leftover text.
func (p Pipeline) Run(text string) (models.ListingDraft, string) {
	var d models.ListingDraft
	remaining := text
	for _, s := range p {
		value, span, ok := s.extract(remaining)
		if !ok {
			continue
		}
		s.assign(&d, value)
		remaining = cut(remaining, span)
	}
	return d, remaining
}

// cut removes span from text, leaving a space so neighbours do not fuse.
func cut(text string, span Span) string {
	return text[:span.Start] + " " + text[span.End:]
}

// Price runs before the vehicle so "precio 2000" is never read as a model year.
var defaultPipeline = Pipeline{
	{name: "price", extract: Price, assign: func(d *models.ListingDraft, v string) { d.Price, _ = strconv.Atoi(v) }},
	{name: "condition", extract: Condition, assign: func(d *models.ListingDraft, v string) { d.Condition = v }},
	{name: "vehicle", extract: Vehicle, assign: func(d *models.ListingDraft, v string) { d.Vehicle = v }},
}

const (
	boundaryBefore = `(?:^|[^\p{L}\p{N}])`
	boundaryAfter  = `(?:$|[^\p{L}\p{N}])`
	amount         = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?)`
	vehicleMakes   = `ford|nissan|chevrolet|chevy|vw|volkswagen|toyota|honda|dodge|mazda|kia|hyundai|jeep|gmc|mitsubishi|renault|seat|chrysler`
)

var (
	// Separators, most specific first: the leftmost alternative that matches at a
	// position consumes it, so " y también " is never split twice.
	itemSeparator = regexp.MustCompile(`(?i),?\s+y\s+tambi[eé]n,?\s+|\s+tambi[eé]n,\s+|,\s*y\s+|\s+y\s+`)

	priceKeyword  = regexp.MustCompile(`(?i)` + boundaryBefore + `((?:precio|preco|presio|prezio|prescio)\s*:?\s*\$?\s*` + amount + `(?:\s*(?:pesos|mxn))?)` + boundaryAfter)
	priceCurrency = regexp.MustCompile(`(?i)(\$\s*` + amount + `(?:\s*(?:pesos|mxn))?)` + boundaryAfter)
	priceSuffix   = regexp.MustCompile(`(?i)` + boundaryBefore + `(` + amount + `\s*(?:pesos|mxn))` + boundaryAfter)

	conditionPattern = regexp.MustCompile(`(?i)` + boundaryBefore + `((?:condici[oó]n|condisi[oó]n|estado)\s*:?\s*(10|[1-9])(?:\s*/\s*10|\s+de\s+10)?)(?:$|[^\p{L}\p{N}/])`)
	bareCondition    = regexp.MustCompile(`(?i)^\s*(10|[1-9])(?:\s*/\s*10|\s+de\s+10)?\s*$`)

	vehiclePattern = regexp.MustCompile(`(?i)` + boundaryBefore + `((?:(?:` + vehicleMakes + `)\s+)?\pL[\pL\pN-]*\s+(?:19[5-9]|20[0-3])\d)` + boundaryAfter)

	thousandsAmount = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	bareAmount      = regexp.MustCompile(`(?i)^\s*\$?\s*` + amount + `\s*(?:pesos|mxn)?\s*$`)

	fillerWords = regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])(?:de|pesos)($|[^\p{L}\p{N}])`)
)

// Price extracts a price preceded by "precio" (and its misspellings), a "$"
// marker, or followed by "pesos". The fractional part is truncated.
func Price(text string) (string, Span, bool) {
	for _, re := range []*regexp.Regexp{priceKeyword, priceCurrency, priceSuffix} {
		m := re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		n, ok := parseAmount(text[m[4]:m[5]])
		if !ok {
			continue
		}
		return strconv.Itoa(n), Span{Start: m[2], End: m[3]}, true
	}
	return "", Span{}, false
}

// Condition extracts a 1–10 score introduced by "condición"/"estado" and
// normalizes it to "N/10".
func Condition(text string) (string, Span, bool) {
	m := conditionPattern.FindStringSubmatchIndex(text)
	if m == nil {
		return "", Span{}, false
	}
	return text[m[4]:m[5]] + "/10", Span{Start: m[2], End: m[3]}, true
}

// Vehicle extracts the first "[make] model year" sequence, e.g. "tsuru 2015"
// or "ford ranger 2015".
func Vehicle(text string) (string, Span, bool) {
	m := vehiclePattern.FindStringSubmatchIndex(text)
	if m == nil {
		return "", Span{}, false
	}
	return util.CollapseSpaces(text[m[2]:m[3]]), Span{Start: m[2], End: m[3]}, true
}

// parseAmount converts "800", "800.75", "800,5" or "1,500" to a positive
// integer, truncating any fractional part.
func parseAmount(raw string) (int, bool) {
	s := raw
	if thousandsAmount.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	s = strings.Replace(s, ",", ".", 1)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SplitItems splits a sell message into candidate item segments. Blank
// segments are dropped.
func SplitItems(text string) []string {
	parts := itemSeparator.Split(text, -1)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// Extract returns one draft per item segment of a sell message.
func Extract(text string) []models.ListingDraft {
	segments := SplitItems(text)
	drafts := make([]models.ListingDraft, 0, len(segments))
	for _, seg := range segments {
		drafts = append(drafts, ExtractSegment(seg))
	}
	slog.Debug("extract Extract", "segments", len(segments), "complete", AllComplete(drafts))
	return drafts
}

// ExtractSegment runs the pipeline over a single item segment.
func ExtractSegment(segment string) models.ListingDraft {
	d, remaining := defaultPipeline.Run(segment)
	d.Title = CleanTitle(remaining)
	return d
}

// CleanTitle turns leftover text into a title: it drops sell triggers, the
// filler words "de" and "pesos", commas and any residual price, condition or
// vehicle pattern, then collapses whitespace.
func CleanTitle(text string) string {
	t := intent.StripSellTrigger(text)
	t = strings.ReplaceAll(t, ",", " ")
	for {
		next := scrub(t)
		if next == t {
			break
		}
		t = next
	}
	return util.CollapseSpaces(t)
}

func scrub(text string) string {
	for _, re := range []*regexp.Regexp{priceKeyword, priceCurrency, priceSuffix, conditionPattern, vehiclePattern} {
		for {
			m := re.FindStringSubmatchIndex(text)
			if m == nil {
				break
			}
			text = cut(text, Span{Start: m[2], End: m[3]})
		}
	}
	for {
		next := fillerWords.ReplaceAllString(text, "${1}${2}")
		if next == text {
			return text
		}
		text = next
	}
}

// AllComplete reports whether drafts is non-empty and every draft is complete.
func AllComplete(drafts []models.ListingDraft) bool {
	if len(drafts) == 0 {
		return false
	}
	for _, d := range drafts {
		if !d.Complete() {
			return false
		}
	}
	return true
}

// ParsePrice reads a price answer such as "800", "$1,500", "800 pesos" or
// "precio 800.50". Non-numeric or non-positive input is ErrInvalidPrice.
func ParsePrice(text string) (int, error) {
	if m := bareAmount.FindStringSubmatch(text); m != nil {
		if n, ok := parseAmount(m[1]); ok {
			return n, nil
		}
		return 0, models.ErrInvalidPrice
	}
	if v, _, ok := Price(text); ok {
		n, _ := strconv.Atoi(v)
		return n, nil
	}
	return 0, models.ErrInvalidPrice
}

// ParseCondition reads a condition answer such as "8", "8/10", "8 de 10" or
// "condición 8" and returns the canonical "N/10".
func ParseCondition(text string) (string, error) {
	if m := bareCondition.FindStringSubmatch(text); m != nil {
		return m[1] + "/10", nil
	}
	if v, _, ok := Condition(text); ok {
		return v, nil
	}
	return "", models.ErrInvalidCondition
}
