// Package resolver turns a symbol into a price observation by walking an
// ordered chain of tiers until one yields a value.
package resolver

import (
	"context"

	"go.uber.org/zap"
)

// Observation is a resolved price and the epoch-millisecond time it was
// observed. The zero value means "unresolved".
type Observation struct {
	Price           float64
	TimestampMillis int64
}

// Status classifies a tier attempt.
type Status int

const (
	// NoValue means the tier ran cleanly but had nothing usable.
	NoValue Status = iota
	// Resolved means the tier produced an observation.
	Resolved
	// Failed means the tier hit a transport or decoding error.
	Failed
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "no_value"
	}
}

// Result is the outcome of one tier attempt.
type Result struct {
	Status      Status
	Observation Observation
	Err         error
	// Via is the symbol actually priced when a tier substituted another
	// listing for the requested one.
	Via string
}

func resolved(o Observation) Result { return Result{Status: Resolved, Observation: o} }
func noValue(err error) Result      { return Result{Status: NoValue, Err: err} }
func failed(err error) Result       { return Result{Status: Failed, Err: err} }

// Tier is one strategy in the fallback chain.
type Tier interface {
	Name() string
	Attempt(ctx context.Context, symbol string) Result
}

// TierNone names the default outcome when every tier came up empty.
const TierNone = "none"

// Resolution is what Resolve returns: the observation and the tier that
// produced it.
type Resolution struct {
	Observation Observation
	Tier        string
	Via         string
}

// Resolver runs tiers in order and stops at the first resolved result.
type Resolver struct {
	tiers  []Tier
	logger *zap.Logger
}

func New(logger *zap.Logger, tiers ...Tier) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{tiers: tiers, logger: logger}
}

// Resolve never fails. When no tier resolves it returns the zero
// observation tagged TierNone.
func (r *Resolver) Resolve(ctx context.Context, symbol string) Resolution {
	for _, t := range r.tiers {
		res := t.Attempt(ctx, symbol)
		switch res.Status {
		case Resolved:
			if res.Via != "" {
				r.logger.Info("resolved through substitute listing",
					zap.String("symbol", symbol),
					zap.String("via", res.Via),
					zap.String("tier", t.Name()))
			}
			return Resolution{Observation: res.Observation, Tier: t.Name(), Via: res.Via}
		case Failed:
			r.logger.Warn("tier failed",
				zap.String("symbol", symbol),
				zap.String("tier", t.Name()),
				zap.Error(res.Err))
		default:
			r.logger.Debug("tier empty",
				zap.String("symbol", symbol),
				zap.String("tier", t.Name()),
				zap.NamedError("reason", res.Err))
		}
	}
	return Resolution{Tier: TierNone}
}
