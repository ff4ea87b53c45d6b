package world

import (
	"fmt"
	"log/slog"

	"github.com/wishmock/wishmock/pkg/rules"
	"github.com/wishmock/wishmock/pkg/schema"
	"github.com/wishmock/wishmock/pkg/validation"
)

// Config names the on-disk inputs and validation settings that Build
// compiles into a World.
type Config struct {
	ProtoDir    string
	ImportPaths []string
	RulesDir    string

	ValidationEnabled bool
	ValidationSource  validation.Dialect
	ValidationMode    validation.Mode
	CELMessageMode    validation.CELMessageMode
}

// Build compiles the proto descriptor set, loads the rule store, and
// extracts the validation registry, returning a fully-formed World at
// generation 0. Callers publishing a reload should use Registry.Reload
// instead, which stamps the next generation.
func Build(cfg Config, log *slog.Logger) (*World, error) {
	descriptor, err := schema.Load(cfg.ProtoDir, cfg.ImportPaths, log)
	if err != nil {
		return nil, err
	}

	store, err := rules.Load(cfg.RulesDir)
	if err != nil {
		return nil, err
	}

	var validators *validation.Registry
	if cfg.ValidationEnabled {
		validators = validation.Build(descriptor, cfg.ValidationSource, cfg.ValidationMode, cfg.CELMessageMode)
	}

	return &World{
		Descriptor: descriptor,
		Rules:      store,
		Validators: validators,
		Generation: 0,
	}, nil
}

// Reload builds a fresh World from cfg and publishes it, stamping the
// generation one past whatever Registry currently holds (0 if this is
// the first publish). It returns the newly published World.
//
// If the rebuilt rule store reports any LoadErrors, the reload is
// rejected wholesale and the previous World keeps serving: a bad edit
// to one rule file must never take down rules that were working, per
// the rule store's all-or-nothing republish guarantee. This check does
// not apply to the first Build (there is no previous World to keep).
func (r *Registry) Reload(cfg Config, log *slog.Logger) (*World, error) {
	next, err := Build(cfg, log)
	if err != nil {
		return nil, err
	}
	prev := r.Current()
	if prev != nil && len(next.Rules.LoadErrors) > 0 {
		return nil, fmt.Errorf("world: reload rejected, %d rule file(s) failed to parse: %s",
			len(next.Rules.LoadErrors), next.Rules.LoadErrors[0].Message)
	}
	if prev != nil {
		next.Generation = prev.Generation + 1
	}
	r.Swap(next)
	return next, nil
}
