package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRuleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

const sayHelloRule = `
description: default greeting
match:
  metadata:
    env: prod
responses:
  - when:
      request:
        name: Ada
    body:
      message: "Hello, Ada"
    priority: 10
  - body:
      message: "Hello, stranger"
    priority: 0
`

func TestLoadIndexesCandidatesByRuleKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRuleFile(t, dir, "helloworld.greeter.sayhello.yaml", sayHelloRule)

	store, err := Load(dir)
	require.NoError(t, err)
	require.Empty(t, store.LoadErrors)

	cands := store.Candidates("helloworld.greeter.sayhello")
	require.Len(t, cands, 2)

	assert.Equal(t, "prod", cands[0].Metadata["env"])
	assert.Equal(t, "Ada", cands[0].Request["name"])
	assert.Equal(t, "Hello, Ada", cands[0].Option.Body["message"])
	assert.Equal(t, 0, cands[0].LoadOrder)

	assert.Equal(t, "prod", cands[1].Metadata["env"])
	assert.Nil(t, cands[1].Request["name"])
	assert.Equal(t, 1, cands[1].LoadOrder)
}

func TestLoadArrayOfDocuments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRuleFile(t, dir, "a.b.c.yaml", `
- description: first
  responses:
    - body: {x: 1}
- description: second
  responses:
    - body: {x: 2}
`)

	store, err := Load(dir)
	require.NoError(t, err)
	require.Empty(t, store.LoadErrors)
	assert.Len(t, store.Candidates("a.b.c"), 2)
}

func TestLoadRecordsMalformedFileAsLoadError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRuleFile(t, dir, "good.svc.m.yaml", sayHelloRule)
	writeRuleFile(t, dir, "bad.svc.m.yaml", "{ not: valid: yaml: [")

	store, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, store.LoadErrors, 1)
	assert.Contains(t, store.LoadErrors[0].File, "bad.svc.m.yaml")
	// The well-formed file is still indexed.
	assert.Len(t, store.Candidates("good.svc.m"), 2)
}

func TestLoadRejectsStreamItemsWithBody(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRuleFile(t, dir, "bad.svc.m.yaml", `
responses:
  - body: {x: 1}
    stream_items:
      - {x: 1}
`)

	store, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, store.LoadErrors, 1)
	assert.Contains(t, store.LoadErrors[0].Message, "mutually exclusive")
}

func TestLoadMissingDirectoryReturnsEmptyStore(t *testing.T) {
	t.Parallel()

	store, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Equal(t, 0, store.Count())
}

func TestEffectiveStreamDelayDefaultsTo100(t *testing.T) {
	t.Parallel()

	opt := ResponseOption{}
	assert.Equal(t, 100, opt.EffectiveStreamDelayMS())

	custom := 25
	opt.StreamDelayMS = &custom
	assert.Equal(t, 25, opt.EffectiveStreamDelayMS())
}

func TestRuleKeyFromFilenameLowercases(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "helloworld.greeter.sayhello", ruleKeyFromFilename("/rules/HelloWorld.Greeter.SayHello.yaml"))
}
