// Package resolve turns raw, possibly misspelled parameter strings into
// canonical entity identifiers. A single similarity decision policy —
// score, threshold, triage into auto-accept / clarify / fail — is applied
// uniformly to every entity kind (school, student, employee, item,
// category). That uniformity is a design invariant, not an accident.
package resolve

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Policy constants. The same values apply to every entity kind.
const (
	// MatchThreshold is the minimum score for a candidate to be considered.
	MatchThreshold = 0.60

	// ContainScore is assigned when one name contains the other.
	ContainScore = 0.90

	// AutoAcceptScore is the minimum top score for accepting without
	// clarification when multiple candidates survive the threshold.
	AutoAcceptScore = 0.85

	// AutoAcceptGap is the minimum lead the top candidate needs over the
	// runner-up for auto-acceptance.
	AutoAcceptGap = 0.15

	// maxNotFoundOptions caps the "available: ..." list shown when nothing
	// matched, ordered by display name so a numeric reply can index it.
	maxNotFoundOptions = 7

	// maxClarifyOptions caps the clarification list, ordered by score.
	maxClarifyOptions = 5
)

// Score computes the similarity between a raw query and a candidate display
// name in [0, 1]. It is a pure, deterministic function of the two strings:
//
//   - exact case-insensitive match scores 1.0;
//   - containment in either direction scores 0.9;
//   - otherwise a normalised Levenshtein ratio: 1 - distance/longest.
//
// Unrelated names of similar length stay well below the match threshold
// under the edit ratio, which phonetic-style scorers do not guarantee.
func Score(query, candidate string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(strings.TrimSpace(candidate))
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1.0
	}
	if strings.Contains(c, q) || strings.Contains(q, c) {
		return ContainScore
	}

	dist := matchr.Levenshtein(q, c)
	longest := len(q)
	if len(c) > longest {
		longest = len(c)
	}
	return 1.0 - float64(dist)/float64(longest)
}
