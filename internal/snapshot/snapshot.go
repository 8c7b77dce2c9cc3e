// Package snapshot runs one end-to-end price snapshot: load symbols, resolve
// each one, write the price table and hand it to any publishers.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"pricesnapshot/internal/pricetable"
	"pricesnapshot/internal/provider/ratelimit"
	"pricesnapshot/internal/publish"
	"pricesnapshot/internal/resolver"
	"pricesnapshot/internal/symbols"
)

// PriceResolver is satisfied by *resolver.Resolver.
type PriceResolver interface {
	Resolve(ctx context.Context, symbol string) resolver.Resolution
}

type Config struct {
	InputPath  string
	OutputPath string
}

type Runner struct {
	cfg        Config
	resolver   PriceResolver
	pacer      ratelimit.Pacer
	out        io.Writer
	logger     *zap.Logger
	publishers []publish.Publisher
}

type Option func(*Runner)

// WithPacer sets the throttle applied before each symbol. Default: none.
func WithPacer(p ratelimit.Pacer) Option {
	return func(r *Runner) {
		if p != nil {
			r.pacer = p
		}
	}
}

// WithProgress sets where per-symbol progress lines go. Default: discarded.
func WithProgress(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithPublishers(p ...publish.Publisher) Option {
	return func(r *Runner) { r.publishers = append(r.publishers, p...) }
}

func New(cfg Config, res PriceResolver, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		resolver: res,
		pacer:    ratelimit.None{},
		out:      io.Discard,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one snapshot and returns the table it wrote. Errors loading
// input or writing output are returned; resolution and publish problems are
// only logged. A canceled context stops the run before the next symbol and
// nothing is written.
func (r *Runner) Run(ctx context.Context) (*pricetable.Table, error) {
	syms, err := symbols.Load(r.cfg.InputPath)
	if err != nil {
		return nil, err
	}
	r.logger.Info("snapshot started",
		zap.String("input", r.cfg.InputPath),
		zap.Int("symbols", len(syms)))

	table := pricetable.New()
	counts := make(map[string]int)
	for _, sym := range syms {
		if err := r.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("snapshot interrupted before %s: %w", sym, err)
		}
		res := r.resolver.Resolve(ctx, sym)
		e := table.Set(sym, res.Observation.Price, res.Observation.TimestampMillis)
		counts[res.Tier]++
		tier := res.Tier
		if res.Via != "" {
			tier += " via " + res.Via
		}
		fmt.Fprintf(r.out, "%-10s -> %s @ %d (%s)\n", sym, formatPrice(e.Price), e.Time, tier)
	}

	if err := pricetable.WriteFile(r.cfg.OutputPath, table); err != nil {
		return nil, err
	}
	fmt.Fprintf(r.out, "✓ wrote %s\n", r.cfg.OutputPath)
	r.logger.Info("snapshot written",
		zap.String("output", r.cfg.OutputPath),
		zap.Int("symbols", table.Len()),
		zap.Any("tiers", counts))

	r.publish(ctx, table)
	return table, nil
}

func (r *Runner) publish(ctx context.Context, table *pricetable.Table) {
	for _, p := range r.publishers {
		if err := p.Publish(ctx, table); err != nil {
			r.logger.Warn("publish failed", zap.String("publisher", p.Name()), zap.Error(err))
			continue
		}
		r.logger.Debug("published", zap.String("publisher", p.Name()), zap.Int("symbols", table.Len()))
	}
}

// formatPrice prints whole numbers with a trailing ".0" so 0 and 12 read as
// prices in the progress output.
func formatPrice(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
