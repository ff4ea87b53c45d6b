package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wishmock/wishmock/pkg/validation"
)

const worldTestProto = `syntax = "proto3";
package demo;

import "wishmock/validate.proto";

message Ping {
  string name = 1 [(wishmock.validate.constraints).min_len = 1];
}

message Pong {
  string reply = 1;
}

service Pinger {
  rpc Ping (Ping) returns (Pong);
}
`

func setupDirs(t *testing.T) (protoDir, rulesDir string) {
	t.Helper()
	protoDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(protoDir, "demo.proto"), []byte(worldTestProto), 0o644))

	rulesDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "demo.pinger.ping.yaml"), []byte(`
responses:
  - body: {reply: "pong"}
`), 0o644))
	return protoDir, rulesDir
}

func TestBuildProducesGeneration0World(t *testing.T) {
	t.Parallel()

	protoDir, rulesDir := setupDirs(t)
	w, err := Build(Config{
		ProtoDir:          protoDir,
		RulesDir:          rulesDir,
		ValidationEnabled: true,
		ValidationSource:  validation.DialectProtovalidate,
		ValidationMode:    validation.ModePerMessage,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), w.Generation)
	assert.Equal(t, 1, w.Descriptor.ServiceCount())
	assert.NotNil(t, w.Validators)
	assert.Len(t, w.Rules.Candidates("demo.pinger.ping"), 1)
}

func TestBuildWithValidationDisabledLeavesValidatorsNil(t *testing.T) {
	t.Parallel()

	protoDir, rulesDir := setupDirs(t)
	w, err := Build(Config{ProtoDir: protoDir, RulesDir: rulesDir}, nil)
	require.NoError(t, err)
	assert.Nil(t, w.Validators)
}

func TestRegistryReloadIncrementsGeneration(t *testing.T) {
	t.Parallel()

	protoDir, rulesDir := setupDirs(t)
	cfg := Config{ProtoDir: protoDir, RulesDir: rulesDir}

	first, err := Build(cfg, nil)
	require.NoError(t, err)
	reg := NewRegistry(first)

	second, err := reg.Reload(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), second.Generation)
	assert.Same(t, second, reg.Current())

	third, err := reg.Reload(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), third.Generation)
}

func TestReloadRejectsWhenRuleFileFailsToParse(t *testing.T) {
	t.Parallel()

	protoDir, rulesDir := setupDirs(t)
	cfg := Config{ProtoDir: protoDir, RulesDir: rulesDir}

	first, err := Build(cfg, nil)
	require.NoError(t, err)
	reg := NewRegistry(first)

	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "broken.svc.m.yaml"), []byte("{ not: valid: yaml: ["), 0o644))

	_, err = reg.Reload(cfg, nil)
	assert.Error(t, err)
	// The previous World is still current; the broken edit never took effect.
	assert.Same(t, first, reg.Current())
}

func TestRegistryCurrentAndSwap(t *testing.T) {
	t.Parallel()

	w1 := &World{Generation: 0}
	w2 := &World{Generation: 1}

	reg := NewRegistry(w1)
	assert.Same(t, w1, reg.Current())

	prev := reg.Swap(w2)
	assert.Same(t, w1, prev)
	assert.Same(t, w2, reg.Current())
}
