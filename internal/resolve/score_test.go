package resolve_test

import (
	"testing"

	"github.com/campushq/steward/internal/resolve"
)

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		candidate string
		want      float64
		approx    bool
	}{
		{name: "exact", query: "Main School", candidate: "main school", want: 1.0},
		{name: "query contained in candidate", query: "Smith", candidate: "John Smith", want: 0.9},
		{name: "candidate contained in query", query: "the sports category", candidate: "sports", want: 0.9},
		{name: "one typo", query: "Main Schol", candidate: "Main School", want: 0.909, approx: true},
		{name: "unrelated", query: "Zanzibar Academy", candidate: "Secondary School", want: 0.4, approx: true},
		{name: "empty query", query: "", candidate: "Main School", want: 0},
		{name: "empty candidate", query: "Main School", candidate: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := resolve.Score(tt.query, tt.candidate)
			if got < 0 || got > 1 {
				t.Fatalf("Score = %v, outside [0,1]", got)
			}
			if tt.approx {
				if tt.name == "unrelated" {
					if got >= resolve.MatchThreshold {
						t.Fatalf("Score(unrelated) = %v, want < %v", got, resolve.MatchThreshold)
					}
					return
				}
				if got < tt.want-0.02 || got > tt.want+0.02 {
					t.Fatalf("Score = %v, want ≈ %v", got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	t.Parallel()

	first := resolve.Score("Ahmed Kahn", "Ahmed Khan")
	for i := 0; i < 100; i++ {
		if got := resolve.Score("Ahmed Kahn", "Ahmed Khan"); got != first {
			t.Fatalf("Score changed between runs: %v vs %v", got, first)
		}
	}
}

func TestScoreOrdering(t *testing.T) {
	t.Parallel()

	// A closer candidate must never score below a more distant one.
	query := "Main Schol"
	near := resolve.Score(query, "Main School")
	far := resolve.Score(query, "Secondary School")
	if near <= far {
		t.Fatalf("Score ordering violated: near=%v far=%v", near, far)
	}
}
