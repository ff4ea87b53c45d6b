package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wishmock/wishmock/pkg/rules"
	"github.com/wishmock/wishmock/pkg/value"
)

func TestEligibleUniversalMatch(t *testing.T) {
	t.Parallel()

	c := rules.Candidate{}
	spec, ok := Eligible(c, map[string]string{"x-env": "prod"}, value.Map(map[string]value.Value{"a": value.Int(1)}))
	assert.True(t, ok)
	assert.Equal(t, 0, spec)
}

func TestEligibleMetadataCaseInsensitive(t *testing.T) {
	t.Parallel()

	c := rules.Candidate{Metadata: map[string]string{"X-Env": "prod"}}
	_, ok := Eligible(c, map[string]string{"x-env": "prod"}, value.Null())
	assert.True(t, ok)

	_, ok = Eligible(c, map[string]string{"x-env": "staging"}, value.Null())
	assert.False(t, ok)

	_, ok = Eligible(c, map[string]string{}, value.Null())
	assert.False(t, ok)
}

func TestEligibleRequestDeepEquality(t *testing.T) {
	t.Parallel()

	c := rules.Candidate{Request: map[string]any{"user.name": "alice", "items[0]": int64(1)}}
	req := value.Map(map[string]value.Value{
		"user":  value.Map(map[string]value.Value{"name": value.String("alice")}),
		"items": value.List([]value.Value{value.Int(1), value.Int(2)}),
	})
	spec, ok := Eligible(c, nil, req)
	assert.True(t, ok)
	assert.Equal(t, 2, spec)

	req2 := value.Map(map[string]value.Value{
		"user":  value.Map(map[string]value.Value{"name": value.String("bob")}),
		"items": value.List([]value.Value{value.Int(1)}),
	})
	_, ok = Eligible(c, nil, req2)
	assert.False(t, ok)
}

func TestEligibleNullMeansAbsentOrNull(t *testing.T) {
	t.Parallel()

	c := rules.Candidate{Request: map[string]any{"optional_field": nil}}

	_, ok := Eligible(c, nil, value.Map(map[string]value.Value{}))
	assert.True(t, ok)

	_, ok = Eligible(c, nil, value.Map(map[string]value.Value{"optional_field": value.Null()}))
	assert.True(t, ok)

	_, ok = Eligible(c, nil, value.Map(map[string]value.Value{"optional_field": value.String("set")}))
	assert.False(t, ok)
}

func TestSelectPriorityTiebreak(t *testing.T) {
	t.Parallel()

	a := rules.Candidate{RuleKey: "pkg.svc.method", LoadOrder: 0, Option: rules.ResponseOption{Priority: 0, Body: map[string]any{"msg": "A"}}}
	b := rules.Candidate{RuleKey: "pkg.svc.method", LoadOrder: 1, Option: rules.ResponseOption{Priority: 1, Body: map[string]any{"msg": "B"}}}
	store := storeWith(t, "pkg.svc.method", a, b)

	chosen, ok := Select(store, "pkg.svc.method", nil, value.Null())
	require.True(t, ok)
	assert.Equal(t, "B", chosen.Option.Body["msg"])

	store2 := storeWith(t, "pkg.svc.method", a)
	chosen, ok = Select(store2, "pkg.svc.method", nil, value.Null())
	require.True(t, ok)
	assert.Equal(t, "A", chosen.Option.Body["msg"])
}

func TestSelectSpecificityTiebreak(t *testing.T) {
	t.Parallel()

	generic := rules.Candidate{LoadOrder: 0, Option: rules.ResponseOption{Body: map[string]any{"msg": "generic"}}}
	specific := rules.Candidate{LoadOrder: 1, Request: map[string]any{"name": "World"}, Option: rules.ResponseOption{Body: map[string]any{"msg": "specific"}}}
	store := storeWith(t, "k", generic, specific)

	req := value.Map(map[string]value.Value{"name": value.String("World")})
	chosen, ok := Select(store, "k", nil, req)
	require.True(t, ok)
	assert.Equal(t, "specific", chosen.Option.Body["msg"])
}

func TestSelectUnmatched(t *testing.T) {
	t.Parallel()

	store := &rules.Store{}
	_, ok := Select(store, "missing.key", nil, value.Null())
	assert.False(t, ok)
}

// storeWith builds a *rules.Store with the given candidates indexed
// under ruleKey, via rules.NewStoreForTest.
func storeWith(t *testing.T, ruleKey string, candidates ...rules.Candidate) *rules.Store {
	t.Helper()
	return rules.NewStoreForTest(map[string][]rules.Candidate{ruleKey: candidates})
}
