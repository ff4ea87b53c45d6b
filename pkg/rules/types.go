// Package rules implements the rule store: loading, indexing, and
// matching-candidate data for every *.yaml/*.yml/*.json file under a
// rules directory.
//
// Grounded on the directory-walking, multi-document file loader used
// elsewhere in this codebase's lineage for config-file ingestion, with
// the hot-reload story simplified to the all-or-nothing map swap this
// specification calls for (performed one level up, at the world.World
// boundary, rather than inside Store itself).
package rules

// When is the predicate attached to a document's top-level match and to
// each response's own when. A nil map in either position means
// "universal match" for that dimension.
type When struct {
	Metadata map[string]string `yaml:"metadata" json:"metadata"`
	Request  map[string]any    `yaml:"request" json:"request"`
}

// ResponseOption is one candidate reply for a rule key.
type ResponseOption struct {
	When              *When          `yaml:"when" json:"when"`
	Body              map[string]any `yaml:"body" json:"body"`
	Trailers          map[string]any `yaml:"trailers" json:"trailers"`
	DelayMS           int            `yaml:"delay_ms" json:"delay_ms"`
	Priority          int            `yaml:"priority" json:"priority"`
	StreamItems       []map[string]any `yaml:"stream_items" json:"stream_items"`
	StreamDelayMS     *int           `yaml:"stream_delay_ms" json:"stream_delay_ms"`
	StreamLoop        bool           `yaml:"stream_loop" json:"stream_loop"`
	StreamRandomOrder bool           `yaml:"stream_random_order" json:"stream_random_order"`
}

// EffectiveStreamDelayMS returns the configured per-item stream delay,
// defaulting to 100ms per the rule file format.
func (r ResponseOption) EffectiveStreamDelayMS() int {
	if r.StreamDelayMS == nil {
		return 100
	}
	return *r.StreamDelayMS
}

// IsStreaming reports whether this option carries stream items.
func (r ResponseOption) IsStreaming() bool { return r.StreamItems != nil }

// RuleDoc is one parsed document: a rules file may contain one or an
// array of these.
type RuleDoc struct {
	Description string           `yaml:"description" json:"description"`
	Match       *When            `yaml:"match" json:"match"`
	Responses   []ResponseOption `yaml:"responses" json:"responses"`
}

// Candidate is one ResponseOption merged with its document's top-level
// match (AND-combined) and tagged with its load order for deterministic
// tiebreaking.
type Candidate struct {
	RuleKey    string
	SourceFile string
	LoadOrder  int
	Metadata   map[string]string // document match ∪ response when, metadata dimension
	Request    map[string]any    // document match ∪ response when, request dimension
	Option     ResponseOption
}

// Store is the immutable, fully-indexed result of one successful Load.
// A Store is never mutated after construction; hot-reload builds a new
// Store and the caller (world.World) swaps the pointer.
type Store struct {
	byKey map[string][]Candidate
	// LoadErrors records files that failed to parse; on any LoadErrors
	// being non-empty during a reload, the caller must keep the
	// previous Store rather than adopt this one (all-or-nothing).
	LoadErrors []LoadError
}

// LoadError pairs a source file with why it could not be parsed.
type LoadError struct {
	File    string
	Message string
}

// Candidates returns every candidate indexed under ruleKey, in load
// order. The returned slice must not be mutated by callers.
func (s *Store) Candidates(ruleKey string) []Candidate {
	return s.byKey[ruleKey]
}

// RuleKeys returns every indexed rule key, for admin listing.
func (s *Store) RuleKeys() []string {
	keys := make([]string, 0, len(s.byKey))
	for k := range s.byKey {
		keys = append(keys, k)
	}
	return keys
}

// Count returns the total number of loaded rule keys.
func (s *Store) Count() int { return len(s.byKey) }

// NewStoreForTest builds a Store directly from a rule-key index,
// bypassing Load, for tests in other packages (notably the matcher)
// that need fixture candidates without writing fixture rule files.
func NewStoreForTest(byKey map[string][]Candidate) *Store {
	return &Store{byKey: byKey}
}
