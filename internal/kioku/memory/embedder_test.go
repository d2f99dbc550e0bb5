package memory

import (
	"context"
	"math"
	"strings"
	"testing"
)

func TestLexicalEmbedder_Deterministic(t *testing.T) {
	e := NewLexicalEmbedder(0)
	ctx := context.Background()

	a, err := e.Embed(ctx, "remember the milk")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	b, err := e.Embed(ctx, "remember the milk")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(a) != defaultLexicalDims {
		t.Fatalf("expected %d dims, got %d", defaultLexicalDims, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestLexicalEmbedder_Normalized(t *testing.T) {
	e := NewLexicalEmbedder(64)

	vec, err := e.Embed(context.Background(), "one two three two")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-6 {
		t.Errorf("expected unit vector, got norm %f", math.Sqrt(norm))
	}
}

func TestLexicalEmbedder_EmptyText(t *testing.T) {
	e := NewLexicalEmbedder(0)

	for _, text := range []string{"", "   ", "!!! ..."} {
		vec, err := e.Embed(context.Background(), text)
		if err != nil {
			t.Fatalf("Embed(%q) error: %v", text, err)
		}
		if vec != nil {
			t.Errorf("expected nil vector for %q", text)
		}
	}
}

func TestLexicalEmbedder_SimilarityOrdering(t *testing.T) {
	e := NewLexicalEmbedder(0)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "Q4 planning meeting")
	related, _ := e.Embed(ctx, "Team meeting about Q4 planning")
	unrelated, _ := e.Embed(ctx, "Lunch break at the noodle shop")

	simRelated := cosineSimilarity(query, related)
	simUnrelated := cosineSimilarity(query, unrelated)
	if simRelated <= simUnrelated {
		t.Errorf("expected related text to score higher: %f vs %f", simRelated, simUnrelated)
	}
	if simRelated < 0 || simRelated > 1 {
		t.Errorf("lexical similarity %f outside [0,1]", simRelated)
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
		{"zero magnitude", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("cosineSimilarity() = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestClampScore(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.3, 1},
	}
	for _, tc := range cases {
		if got := clampScore(tc.in); got != tc.want {
			t.Errorf("clampScore(%f) = %f, want %f", tc.in, got, tc.want)
		}
	}
}

func TestHighlights(t *testing.T) {
	content := "We agreed to move the quarterly budget review to Thursday afternoon so the finance team can join."

	out := highlights(content, []string{"budget"})
	if len(out) != 1 {
		t.Fatalf("expected 1 highlight, got %d", len(out))
	}
	if !strings.Contains(out[0], "budget") {
		t.Errorf("highlight %q does not contain %q", out[0], "budget")
	}

	// Terms absent from the content yield no highlights.
	if out := highlights(content, []string{"vacation"}); len(out) != 0 {
		t.Errorf("expected no highlights, got %v", out)
	}

	// The excerpt count is capped.
	out = highlights(content, []string{"quarterly", "budget", "review", "thursday"})
	if len(out) > maxHighlights {
		t.Errorf("expected at most %d highlights, got %d", maxHighlights, len(out))
	}

	// Case foldings that change the encoded rune width (U+0130 folds from
	// two bytes to one) must not shift the excerpt window off the match.
	folded := strings.Repeat("İ", 41) + " meeting at noon"
	out = highlights(folded, []string{"meeting"})
	if len(out) != 1 {
		t.Fatalf("expected 1 highlight, got %d", len(out))
	}
	if !strings.Contains(out[0], "meeting at noon") {
		t.Errorf("highlight %q does not contain the matched text", out[0])
	}
}
