package markup

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/matt-g-everett/ansitx/stream"
)

func TestPaintTrueColorSpan(t *testing.T) {
	got := TrueColor().Paint("[rgb(255,0,0)]hot[/] cold")
	want := "\x1b[38;2;255;0;0mhot\x1b[0m cold"
	if got != want {
		t.Fatalf("Paint = %q, want %q", got, want)
	}
}

func TestPaintMergesAdjacentSpansOfOneColour(t *testing.T) {
	got := TrueColor().Paint("[rgb(0,255,0)]a[/][rgb(0,255,0)]b[/]")
	if strings.Count(got, "\x1b[38;2;") != 1 {
		t.Fatalf("expected one colour sequence, got %q", got)
	}
	if ansi.Strip(got) != "ab" {
		t.Fatalf("visible text = %q", ansi.Strip(got))
	}
}

func TestPaintNestedTagsRestoreOuterColour(t *testing.T) {
	got := TrueColor().Paint("[rgb(255,0,0)]a[rgb(0,0,255)]b[/]c[/]")
	want := "\x1b[38;2;255;0;0ma\x1b[0m\x1b[38;2;0;0;255mb\x1b[0m\x1b[38;2;255;0;0mc\x1b[0m"
	if got != want {
		t.Fatalf("Paint = %q, want %q", got, want)
	}
}

func TestPaintKeepsUnknownBrackets(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"[live] now", "[live] now"},
		{"open [ bracket", "open [ bracket"},
		{`escaped \[rgb(1,2,3)]`, "escaped [rgb(1,2,3)]"},
		{"[rgb(300,0,0)]x", "[rgb(300,0,0)]x"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := TrueColor().Paint(tc.in); got != tc.want {
			t.Fatalf("Paint(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPlainDropsColour(t *testing.T) {
	got := Plain().Paint("[rgb(1,2,3)]@[/][rgb(4,5,6)]#[/]")
	if got != "@#" {
		t.Fatalf("Paint = %q, want %q", got, "@#")
	}
}

func TestTagRoundTripsThroughPaint(t *testing.T) {
	c := colorful.Color{R: 1, G: 0, B: 0}
	line := "[x] $$ \\__/"
	tagged := Tag(c, line)
	if !strings.HasPrefix(tagged, "[rgb(255,0,0)]") || !strings.HasSuffix(tagged, "[/]") {
		t.Fatalf("unexpected tag %q", tagged)
	}
	if got := TrueColor().Visible(tagged); got != line {
		t.Fatalf("Visible = %q, want %q", got, line)
	}
	if got := Tint(c)(line); got != tagged {
		t.Fatalf("Tint = %q, want %q", got, tagged)
	}
}

func TestPaintNeverClearsLines(t *testing.T) {
	got := TrueColor().Paint("[rgb(0,255,180)]" + strings.Repeat("#", 40) + "[/]")
	if strings.Contains(got, "\x1b[K") || strings.Contains(got, "\x1b[J") {
		t.Fatalf("paint output contains clear sequences: %q", got)
	}
}

func TestTagRoundTripsBackslashes(t *testing.T) {
	c := colorful.Color{R: 1, G: 0, B: 0}
	lines := []string{
		`trailing \`,
		`two trailing \\`,
		`\[rgb(1,2,3)]`,
		`\\[/]`,
		`[/]\`,
		`mid \ slash`,
		`\`,
	}
	for _, line := range lines {
		for _, r := range []*Renderer{TrueColor(), Plain()} {
			if got := r.Visible(Tag(c, line)); got != line {
				t.Fatalf("Visible(Tag(%q)) = %q", line, got)
			}
		}
	}
}

func TestTagRoundTripsEveryBannerView(t *testing.T) {
	c := colorful.Color{R: 0, G: 1, B: 0}
	banner := stream.DefaultBlock()
	for tick := 0; tick < banner.Width(); tick++ {
		for i, line := range banner.View(uint64(tick)) {
			for _, r := range []*Renderer{TrueColor(), Plain()} {
				got := r.Visible(Tag(c, line))
				if got != line {
					t.Fatalf("tick %d line %d: Visible = %q, want %q", tick, i, got, line)
				}
			}
		}
	}
}

func TestPaintKeepsLoneBackslashes(t *testing.T) {
	in := `a\b\\c \`
	if got := TrueColor().Paint(in); got != in {
		t.Fatalf("Paint(%q) = %q", in, got)
	}
}
