package matching

import (
	"strconv"
	"strings"

	"github.com/wishmock/wishmock/pkg/value"
)

// pathSegment is one dotted component of a when.request key, optionally
// followed by one or more [index] groups — bracket-index navigation is
// accepted at any segment, not only at the leaf.
type pathSegment struct {
	name    string
	indices []int
}

// parsePath splits a field-path key like "items[0].address[1][2].city"
// into segments. Malformed bracket groups are treated as literal name
// characters rather than rejected, so odd-but-harmless rule files still
// load (they simply won't match anything at that path).
func parsePath(path string) []pathSegment {
	parts := strings.Split(path, ".")
	segments := make([]pathSegment, 0, len(parts))
	for _, part := range parts {
		name := part
		var indices []int
		for {
			open := strings.IndexByte(name, '[')
			if open < 0 {
				break
			}
			close := strings.IndexByte(name[open:], ']')
			if close < 0 {
				break
			}
			close += open
			idxStr := name[open+1 : close]
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				break
			}
			indices = append(indices, idx)
			name = name[:open] + name[close+1:]
		}
		segments = append(segments, pathSegment{name: name, indices: indices})
	}
	return segments
}

// resolvePath walks v following segments, returning (value, true) if
// every segment resolves, or (Null, false) as soon as one does not.
func resolvePath(v value.Value, segments []pathSegment) (value.Value, bool) {
	cur := v
	for _, seg := range segments {
		if seg.name != "" {
			next, ok := cur.Field(seg.name)
			if !ok {
				return value.Null(), false
			}
			cur = next
		}
		for _, idx := range seg.indices {
			next, ok := cur.Index(idx)
			if !ok {
				return value.Null(), false
			}
			cur = next
		}
	}
	return cur, true
}
