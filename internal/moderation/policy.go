package moderation

import (
	"fmt"
	"sort"

	"github.com/wardenhq/warden/internal/models"
)

// Thresholds holds the warn and block boundaries for one score dimension.
type Thresholds struct {
	Warn  float64
	Block float64
}

// PolicyConfig enumerates per-dimension thresholds and the rule wiring.
// It is configuration, not code: the server overrides values from the
// environment without recompilation.
type PolicyConfig struct {
	// Dimensions maps a score dimension to its thresholds. Dimensions
	// absent from the map never trigger a rule.
	Dimensions map[string]Thresholds
	// HardBlock lists the dimensions whose block threshold forces a
	// block outright, checked in slice order.
	HardBlock []string
	// SpamAction is the action taken when spam crosses its block
	// threshold: ActionBlock or ActionFlag. The default policy blocks.
	SpamAction models.Action
}

// DefaultPolicyConfig returns the stock thresholds.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Dimensions: map[string]Thresholds{
			models.DimToxicity:   {Warn: 0.3, Block: 0.7},
			models.DimHarassment: {Warn: 0.3, Block: 0.7},
			models.DimSpam:       {Warn: 0.3, Block: 0.5},
			models.DimNSFW:       {Warn: 0.3, Block: 0.6},
			models.DimViolence:   {Warn: 0.3, Block: 0.7},
		},
		HardBlock:  []string{models.DimToxicity, models.DimNSFW, models.DimViolence, models.DimHarassment},
		SpamAction: models.ActionBlock,
	}
}

// Policy converts a score set into a moderation action. Rule evaluation
// order is fixed and significant; when several thresholds fire at once the
// highest-severity rule wins:
//
//  1. any hard-block dimension at or above its block threshold -> block
//  2. spam at or above its block threshold -> SpamAction
//  3. any dimension at or above its warn threshold -> warn
//  4. otherwise -> approved
type Policy struct {
	cfg PolicyConfig
}

// NewPolicy validates the config and returns a Policy.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	if len(cfg.Dimensions) == 0 {
		return nil, fmt.Errorf("policy config has no dimensions: %w", models.ErrInvalidArgument)
	}
	if cfg.SpamAction != models.ActionBlock && cfg.SpamAction != models.ActionFlag {
		return nil, fmt.Errorf("spam action must be block or flag, got %q: %w", cfg.SpamAction, models.ErrInvalidArgument)
	}
	for _, dim := range cfg.HardBlock {
		if _, ok := cfg.Dimensions[dim]; !ok {
			return nil, fmt.Errorf("hard-block dimension %q has no thresholds: %w", dim, models.ErrInvalidArgument)
		}
	}
	for dim, t := range cfg.Dimensions {
		if t.Warn < 0 || t.Block > 1 || t.Warn > t.Block {
			return nil, fmt.Errorf("dimension %q has inconsistent thresholds warn=%v block=%v: %w",
				dim, t.Warn, t.Block, models.ErrInvalidArgument)
		}
	}
	return &Policy{cfg: cfg}, nil
}

// MustPolicy is NewPolicy for known-good configs; it panics on error.
func MustPolicy(cfg PolicyConfig) *Policy {
	p, err := NewPolicy(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Decide applies the rule ladder to scores. The returned reason names the
// triggering dimension. Warn decisions are not appealable.
func (p *Policy) Decide(scores models.ScoreSet) (models.Action, string, bool) {
	for _, dim := range p.cfg.HardBlock {
		t := p.cfg.Dimensions[dim]
		if score, ok := scores[dim]; ok && score >= t.Block {
			return models.ActionBlock, fmt.Sprintf("high %s detected (score %.2f)", dim, score), true
		}
	}

	if t, ok := p.cfg.Dimensions[models.DimSpam]; ok {
		if score, present := scores[models.DimSpam]; present && score >= t.Block {
			return p.cfg.SpamAction, fmt.Sprintf("spam content detected (score %.2f)", score), true
		}
	}

	// Deterministic warn evaluation: dimensions in lexical order.
	for _, dim := range sortedDims(scores) {
		t, ok := p.cfg.Dimensions[dim]
		if !ok {
			continue
		}
		if scores[dim] >= t.Warn {
			return models.ActionWarn, fmt.Sprintf("potentially inappropriate content (%s %.2f)", dim, scores[dim]), false
		}
	}

	return models.ActionApproved, "content approved", false
}

func sortedDims(scores models.ScoreSet) []string {
	dims := make([]string, 0, len(scores))
	for dim := range scores {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	return dims
}
