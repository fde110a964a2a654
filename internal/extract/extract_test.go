package extract

import (
	"errors"
	"testing"

	"github.com/BTreeMap/YonkeBot/internal/models"
)

func TestExtractSingleItem(t *testing.T) {
	drafts := Extract("vender alternador tsuru 2015 condicion 8 precio 800")
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	want := models.ListingDraft{Title: "alternador", Vehicle: "tsuru 2015", Condition: "8/10", Price: 800}
	if drafts[0] != want {
		t.Errorf("expected %+v, got %+v", want, drafts[0])
	}
	if !AllComplete(drafts) {
		t.Error("expected complete drafts")
	}
}

func TestExtractSegmentVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.ListingDraft
	}{
		{
			name: "accented condition and price with pesos",
			in:   "Vendo defensa de ford ranger 2015, condición: 9/10, precio $1,500 pesos",
			want: models.ListingDraft{Title: "defensa", Vehicle: "ford ranger 2015", Condition: "9/10", Price: 1500},
		},
		{
			name: "misspelled keywords",
			in:   "faro jetta 2010 condision 7 de 10 presio 450.90",
			want: models.ListingDraft{Title: "faro", Vehicle: "jetta 2010", Condition: "7/10", Price: 450},
		},
		{
			name: "estado and currency marker",
			in:   "radiador sentra 2008 estado 10 $ 1200",
			want: models.ListingDraft{Title: "radiador", Vehicle: "sentra 2008", Condition: "10/10", Price: 1200},
		},
		{
			name: "price suffix only",
			in:   "espejo chevy 2004 condicion 6 300 pesos",
			want: models.ListingDraft{Title: "espejo", Vehicle: "chevy 2004", Condition: "6/10", Price: 300},
		},
		{
			name: "price that looks like a year",
			in:   "motor tsuru 2015 condicion 8 precio 2000",
			want: models.ListingDraft{Title: "motor", Vehicle: "tsuru 2015", Condition: "8/10", Price: 2000},
		},
		{
			name: "missing everything",
			in:   "vender",
			want: models.ListingDraft{},
		},
		{
			name: "condition out of range",
			in:   "alternador tsuru 2015 condicion 11 precio 800",
			want: models.ListingDraft{Title: "alternador condicion 11", Vehicle: "tsuru 2015", Price: 800},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSegment(tt.in)
			if got != tt.want {
				t.Errorf("ExtractSegment(%q)\n got  %+v\n want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPriceTruncatesFraction(t *testing.T) {
	for in, want := range map[string]string{
		"precio 800.99": "800",
		"precio 800,5":  "800",
		"precio 1,500":  "1500",
		"prezio: 75":    "75",
	} {
		got, _, ok := Price(in)
		if !ok || got != want {
			t.Errorf("Price(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, _, ok := Price("precio 0"); ok {
		t.Error("zero price should be absent")
	}
	if _, _, ok := Price("precio a tratar"); ok {
		t.Error("non-numeric price should be absent")
	}
}

func TestSplitItems(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a y b", []string{"a", "b"}},
		{"a y también b", []string{"a", "b"}},
		{"a, y también b", []string{"a", "b"}},
		{"a también, b", []string{"a", "b"}},
		{"a, y b y c", []string{"a", "b", "c"}},
		{"a Y TAMBIÉN b", []string{"a", "b"}},
		{"yonke", []string{"yonke"}},
		{"vender y", []string{"vender y"}},
	}
	for _, tt := range tests {
		got := SplitItems(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("SplitItems(%q) = %q, want %q", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitItems(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestExtractMultiItem(t *testing.T) {
	drafts := Extract("vender alternador tsuru 2015 condicion 8 precio 800 y también defensa jetta 2010 condicion 7 precio 1500")
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d: %+v", len(drafts), drafts)
	}
	if !AllComplete(drafts) {
		t.Fatalf("expected both drafts complete: %+v", drafts)
	}
	if drafts[1].Title != "defensa" || drafts[1].Vehicle != "jetta 2010" || drafts[1].Price != 1500 {
		t.Errorf("unexpected second draft %+v", drafts[1])
	}
}

func TestExtractMultiItemIncomplete(t *testing.T) {
	drafts := Extract("vender alternador tsuru 2015 condicion 8 precio 800 y defensa jetta 2010 condicion 7")
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	if !drafts[0].Complete() {
		t.Errorf("first draft should be complete: %+v", drafts[0])
	}
	if drafts[1].Complete() {
		t.Errorf("second draft should be missing its price: %+v", drafts[1])
	}
	if AllComplete(drafts) {
		t.Error("AllComplete must be false when any draft is incomplete")
	}
}

func TestAllCompleteEmpty(t *testing.T) {
	if AllComplete(nil) {
		t.Error("no drafts is never complete")
	}
}

// The title never keeps text that an extractor would still pick up.
func TestCleanTitleIsIdempotent(t *testing.T) {
	inputs := []string{
		"vender alternador tsuru 2015 condicion 8 precio 800",
		"precio tsuru 2015 500",
		"precio de 800 faro",
		"condicion tsuru 2015 8",
		"tsuru 2015 sentra 2010 condicion 8 condicion 9 precio 1 precio 2",
		"estado $ 300 pesos 2010",
		"vender faros de niebla jetta 2012, condición 9/10, precio 700.50",
	}
	for _, in := range inputs {
		d := ExtractSegment(in)
		for name, ex := range map[string]Extractor{"price": Price, "condition": Condition, "vehicle": Vehicle} {
			if v, _, ok := ex(d.Title); ok {
				t.Errorf("title %q from %q still yields %s %q", d.Title, in, name, v)
			}
		}
		if again := CleanTitle(d.Title); again != d.Title {
			t.Errorf("CleanTitle not stable for %q: %q then %q", in, d.Title, again)
		}
	}
}

func TestParsePrice(t *testing.T) {
	for in, want := range map[string]int{
		"800":           800,
		" $1,500 ":      1500,
		"800 pesos":     800,
		"precio 800.50": 800,
		"950.99":        950,
	} {
		got, err := ParsePrice(in)
		if err != nil || got != want {
			t.Errorf("ParsePrice(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"ochocientos", "0", "", "a tratar"} {
		if _, err := ParsePrice(in); !errors.Is(err, models.ErrInvalidPrice) {
			t.Errorf("ParsePrice(%q): expected ErrInvalidPrice, got %v", in, err)
		}
	}
}

func TestParseCondition(t *testing.T) {
	for in, want := range map[string]string{
		"8":           "8/10",
		"10":          "10/10",
		"8/10":        "8/10",
		"7 de 10":     "7/10",
		"condición 9": "9/10",
	} {
		got, err := ParseCondition(in)
		if err != nil || got != want {
			t.Errorf("ParseCondition(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, in := range []string{"11", "0", "buena", ""} {
		if _, err := ParseCondition(in); !errors.Is(err, models.ErrInvalidCondition) {
			t.Errorf("ParseCondition(%q): expected ErrInvalidCondition, got %v", in, err)
		}
	}
}

func TestVehicleTakesOneModelToken(t *testing.T) {
	cases := []struct{ in, vehicle, title string }{
		{"faro grand marquis 1995", "marquis 1995", "faro grand"},
		{"faro ford grand marquis 1995", "marquis 1995", "faro ford grand"},
		{"faro ford ranger 2015", "ford ranger 2015", "faro"},
	}
	for _, c := range cases {
		d := ExtractSegment(c.in)
		if d.Vehicle != c.vehicle || d.Title != c.title {
			t.Errorf("ExtractSegment(%q) = vehicle %q title %q, want %q / %q", c.in, d.Vehicle, d.Title, c.vehicle, c.title)
		}
	}
}
