package movetext

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wildcard string
		want     []Token
	}{
		{
			name:     "mixed wildcards",
			in:       "1. e4 e5 2. __ d5 3. __ h3",
			wildcard: "__",
			want:     []Token{Fixed("e4"), Fixed("e5"), Any("__"), Fixed("d5"), Any("__"), Fixed("h3")},
		},
		{
			name:     "empty",
			in:       "",
			wildcard: "__",
			want:     []Token{},
		},
		{
			name:     "custom symbol",
			in:       "1. e4 ?? 2. Nf3",
			wildcard: "??",
			want:     []Token{Fixed("e4"), Any("??"), Fixed("Nf3")},
		},
		{
			name:     "default symbol is literal under custom wildcard",
			in:       "1. __ ??",
			wildcard: "??",
			want:     []Token{Fixed("__"), Any("??")},
		},
		{
			name:     "multi digit move numbers and extra whitespace",
			in:       "  12.   Nf3\tNc6\n13. O-O ",
			wildcard: "__",
			want:     []Token{Fixed("Nf3"), Fixed("Nc6"), Fixed("O-O")},
		},
		{
			name:     "black move numbers are kept",
			in:       "1... e5",
			wildcard: "__",
			want:     []Token{Fixed("1..."), Fixed("e5")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in, tt.wildcard)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Parse(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestStripResult(t *testing.T) {
	got := StripResult(Parse("1. e4 e5 1-0", DefaultWildcard))
	want := []Token{Fixed("e4"), Fixed("e5")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("StripResult mismatch (-want +got):\n%s", diff)
	}
	if got := StripResult(Parse("*", DefaultWildcard)); len(got) != 0 {
		t.Fatalf("expected empty tokens, got %v", got)
	}
}

func TestMoves(t *testing.T) {
	moves, ok := Moves(Parse("1. d4 d5", DefaultWildcard))
	if !ok {
		t.Fatalf("expected fixed moves")
	}
	if diff := cmp.Diff([]string{"d4", "d5"}, moves); diff != "" {
		t.Fatalf("Moves mismatch (-want +got):\n%s", diff)
	}
	if _, ok := Moves(Parse("1. d4 __", DefaultWildcard)); ok {
		t.Fatalf("expected wildcard to be rejected")
	}
}

func TestTokenString(t *testing.T) {
	for _, tok := range Parse("1. Nf3 ?? 2. __", "??") {
		if tok.String() != tok.Move {
			t.Fatalf("token %+v prints as %q", tok, tok.String())
		}
	}
	if got := Any("??").String(); got != "??" {
		t.Fatalf("wildcard prints as %q, want the marker", got)
	}
	if got := Fixed("Nf3").String(); got != "Nf3" {
		t.Fatalf("fixed move prints as %q", got)
	}
}

func TestClean(t *testing.T) {
	got := Clean(Parse("3... Nc6 4. __ 1/2-1/2", DefaultWildcard))
	want := []Token{Fixed("Nc6"), Any(DefaultWildcard)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Clean mismatch (-want +got):\n%s", diff)
	}
}
