package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/merklejerk/wacom-profile-daemon/internal/config"
	"github.com/merklejerk/wacom-profile-daemon/internal/engine"
	"github.com/merklejerk/wacom-profile-daemon/internal/rules"
)

// configReloader re-reads the config and swaps the engine's rulesets.
// A config that fails to parse or compile is rejected and the last
// valid rulesets stay active.
type configReloader struct {
	path           string
	logger         zerolog.Logger
	engine         *engine.Engine
	lastSerialized []byte
}

func newConfigReloader(path string, logger zerolog.Logger, eng *engine.Engine, serialized []byte) *configReloader {
	return &configReloader{
		path:           path,
		logger:         logger,
		engine:         eng,
		lastSerialized: append([]byte(nil), serialized...),
	}
}

func (r *configReloader) Reload(ctx context.Context, reason string) error {
	r.logger.Info().Str("reason", reason).Msg("reloading config")
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		r.logDiff(raw)
		return fmt.Errorf("parse config: %w", err)
	}
	rulesets, err := rules.Compile(cfg)
	if err != nil {
		r.logDiff(raw)
		return fmt.Errorf("compile rules: %w", err)
	}

	r.engine.Reload(rulesets)
	if err := r.engine.Reconcile(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("reconcile after reload: %w", err)
	}

	r.lastSerialized = append([]byte(nil), raw...)
	r.logger.Info().Int("rulesets", len(rulesets)).Msg("config reloaded")
	return nil
}

func (r *configReloader) logDiff(current []byte) {
	diff := config.Diff(r.lastSerialized, current)
	if diff == "" {
		r.logger.Warn().Msg("config change rejected; unable to compute diff vs last valid config")
		return
	}
	r.logger.Warn().Msgf("config change rejected; diff vs last valid config:\n%s", diff)
}
