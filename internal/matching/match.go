package matching

import (
	"sort"
	"strings"

	"github.com/wishmock/wishmock/pkg/rules"
	"github.com/wishmock/wishmock/pkg/value"
)

// scored pairs a candidate with the score used to rank it.
type scored struct {
	candidate   rules.Candidate
	specificity int
}

// Select fetches ruleKey's candidates from store and returns the
// highest-ranked eligible one. ok is false when no candidate is
// eligible (Unmatched, mapped to unimplemented by the gateway).
func Select(store *rules.Store, ruleKey string, metadata map[string]string, request value.Value) (rules.Candidate, bool) {
	candidates := store.Candidates(ruleKey)
	eligible := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if specificity, ok := Eligible(c, metadata, request); ok {
			eligible = append(eligible, scored{candidate: c, specificity: specificity})
		}
	}
	if len(eligible) == 0 {
		return rules.Candidate{}, false
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.candidate.Option.Priority != b.candidate.Option.Priority {
			return a.candidate.Option.Priority > b.candidate.Option.Priority
		}
		if a.specificity != b.specificity {
			return a.specificity > b.specificity
		}
		return a.candidate.LoadOrder < b.candidate.LoadOrder
	})
	return eligible[0].candidate, true
}

// Eligible reports whether c's when.metadata and when.request are both
// satisfied, returning the specificity (total leaves compared) used for
// the tiebreak in Select. Absent metadata/request = universal match for
// that dimension.
func Eligible(c rules.Candidate, metadata map[string]string, request value.Value) (specificity int, ok bool) {
	metaSpec, ok := matchMetadata(c.Metadata, metadata)
	if !ok {
		return 0, false
	}
	reqSpec, ok := matchRequest(c.Request, request)
	if !ok {
		return 0, false
	}
	return metaSpec + reqSpec, true
}

// matchMetadata requires every key/value in want to be present in got,
// compared case-insensitively on keys and exactly on values.
func matchMetadata(want, got map[string]string) (int, bool) {
	if len(want) == 0 {
		return 0, true
	}
	lowered := make(map[string]string, len(got))
	for k, v := range got {
		lowered[strings.ToLower(k)] = v
	}
	specificity := 0
	for k, v := range want {
		actual, present := lowered[strings.ToLower(k)]
		if !present || actual != v {
			return 0, false
		}
		specificity += ScoreMetadataKey
	}
	return specificity, true
}

// matchRequest requires every field-path leaf in want to be satisfied
// by request, using deep structural equality. A literal null in want
// means "field must be absent or null".
func matchRequest(want map[string]any, request value.Value) (int, bool) {
	if len(want) == 0 {
		return 0, true
	}
	specificity := 0
	for path, expected := range want {
		segments := parsePath(path)
		actual, present := resolvePath(request, segments)

		if expected == nil {
			if present && !actual.IsNull() {
				return 0, false
			}
			specificity += ScoreRequestLeaf
			continue
		}
		if !present {
			return 0, false
		}
		if !value.Equal(actual, value.FromAny(expected)) {
			return 0, false
		}
		specificity += ScoreRequestLeaf
	}
	return specificity, true
}
