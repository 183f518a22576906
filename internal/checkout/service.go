package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/receipt/internal/basket"
	"github.com/noah-isme/receipt/internal/obs"
	"github.com/noah-isme/receipt/internal/parser"
	"github.com/noah-isme/receipt/internal/receipt"
	"github.com/noah-isme/receipt/internal/tax"
)

// Policy decides what happens to a malformed basket line.
type Policy string

const (
	// PolicyReject fails the whole basket on the first malformed line.
	PolicyReject Policy = "reject"
	// PolicySkip drops malformed lines and reports them in Result.Skipped.
	PolicySkip Policy = "skip"
)

// ErrUnknownPolicy is returned by ParsePolicy for unsupported values.
var ErrUnknownPolicy = errors.New("unknown malformed-line policy")

// ParsePolicy maps a configuration value to a Policy. Empty means PolicyReject.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, value)
	}
}

// Options configures a Service. Every field is optional.
type Options struct {
	Logger   zerolog.Logger
	Products basket.ProductLookup
	Policy   Policy
	Metrics  *obs.PipelineMetrics
	Tracer   trace.Tracer
}

// Result is the outcome of one checkout run.
type Result struct {
	Receipt receipt.Receipt
	Skipped []parser.LineError
}

// Service runs basket lines through parsing, aggregation, taxation and receipt assembly.
type Service struct {
	logger   zerolog.Logger
	policy   Policy
	metrics  *obs.PipelineMetrics
	tracer   trace.Tracer
	baskets  *basket.Service
	taxes    *tax.Service
	receipts *receipt.Service
}

// NewService wires the pipeline stages.
func NewService(opts Options) *Service {
	policy := opts.Policy
	if policy == "" {
		policy = PolicyReject
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = obs.Tracer(nil)
	}
	return &Service{
		logger:   obs.Component(opts.Logger, "checkout"),
		policy:   policy,
		metrics:  opts.Metrics,
		tracer:   tracer,
		baskets:  &basket.Service{Logger: obs.Component(opts.Logger, "basket"), Products: opts.Products},
		taxes:    &tax.Service{Logger: obs.Component(opts.Logger, "tax"), OnTaxApplied: func(t tax.Tax) { opts.Metrics.CountTax(t.ID) }},
		receipts: &receipt.Service{Logger: obs.Component(opts.Logger, "receipt")},
	}
}

// Process reads basket lines from r and runs them through the pipeline.
func (s *Service) Process(ctx context.Context, r io.Reader) (Result, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return Result{}, err
	}
	return s.Run(ctx, lines)
}

// Run builds the receipt for the given basket lines. Line numbers in errors are 1-based
// positions in lines.
func (s *Service) Run(ctx context.Context, lines []string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "Checkout.Run")
	defer span.End()

	start := time.Now()
	outcome := "error"
	var res Result
	defer func() {
		span.SetAttributes(
			attribute.Int("basket.lines", len(lines)),
			attribute.Int("basket.lines_skipped", len(res.Skipped)),
			attribute.String("checkout.policy", string(s.policy)),
			attribute.String("checkout.result", outcome),
			attribute.Float64("checkout.duration_ms", obs.DurationMillis(time.Since(start))),
		)
		s.metrics.CountReceipt(outcome)
	}()

	s.logger.Info().Int("lines", len(lines)).Str("policy", string(s.policy)).Msg("checkout started")

	items, skipped, err := s.parse(ctx, lines)
	res.Skipped = skipped
	if err != nil {
		return res, s.fail(span, err)
	}

	var articles []basket.Article
	err = s.stage(ctx, "basket", func() error {
		var err error
		articles, err = s.baskets.CreateBasket(items)
		return err
	})
	if err != nil {
		return res, s.fail(span, err)
	}

	var taxed []tax.TaxedArticle
	s.step(ctx, "tax", func() {
		taxed = s.taxes.AddTaxes(articles)
	})

	s.step(ctx, "receipt", func() {
		res.Receipt = s.receipts.CreateReceipt(taxed)
	})

	s.metrics.SetTotals(res.Receipt.TaxesDue.InexactFloat64(), res.Receipt.TotalDue.InexactFloat64())
	span.SetAttributes(
		attribute.Int("receipt.items", len(res.Receipt.Items)),
		attribute.String("receipt.total_due", res.Receipt.TotalDue.StringFixed(2)),
	)
	outcome = "ok"
	s.logger.Info().
		Int("items", len(res.Receipt.Items)).
		Int("skipped", len(res.Skipped)).
		Msg("checkout finished")
	return res, nil
}

func (s *Service) parse(ctx context.Context, lines []string) ([]basket.PurchasedItem, []parser.LineError, error) {
	var (
		items   = make([]basket.PurchasedItem, 0, len(lines))
		skipped []parser.LineError
	)
	err := s.stage(ctx, "parse", func() error {
		for i, text := range lines {
			item, err := parser.ParseLine(text)
			if err == nil {
				s.metrics.CountLine(obs.LineParsed)
				items = append(items, item)
				continue
			}
			lineErr := parser.LineError{Line: i + 1, Text: text, Err: err}
			if s.policy == PolicySkip {
				s.metrics.CountLine(obs.LineSkipped)
				s.logger.Warn().Int("line", lineErr.Line).Str("text", text).Err(err).Msg("skipping malformed line")
				skipped = append(skipped, lineErr)
				continue
			}
			s.metrics.CountLine(obs.LineRejected)
			return &lineErr
		}
		return nil
	})
	return items, skipped, err
}

// stage runs a step that can fail inside its own span and records its duration.
func (s *Service) stage(ctx context.Context, name string, fn func() error) error {
	_, span := s.tracer.Start(ctx, "Checkout."+name)
	defer span.End()

	start := time.Now()
	err := fn()
	s.metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// step is stage for steps that cannot fail.
func (s *Service) step(ctx context.Context, name string, fn func()) {
	_, span := s.tracer.Start(ctx, "Checkout."+name)
	defer span.End()

	start := time.Now()
	fn()
	s.metrics.ObserveStage(name, time.Since(start))
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error().Err(err).Msg("checkout failed")
	return err
}
