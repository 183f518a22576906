package checkout_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noah-isme/receipt/internal/basket"
	"github.com/noah-isme/receipt/internal/catalog"
	"github.com/noah-isme/receipt/internal/checkout"
	"github.com/noah-isme/receipt/internal/obs"
	"github.com/noah-isme/receipt/internal/parser"
	"github.com/noah-isme/receipt/internal/receipt"
)

func newService(opts checkout.Options) *checkout.Service {
	if opts.Products == nil {
		opts.Products = catalog.Default()
	}
	return checkout.NewService(opts)
}

func render(t *testing.T, svc *checkout.Service, basket string) string {
	t.Helper()
	res, err := svc.Process(context.Background(), strings.NewReader(basket))
	require.NoError(t, err)
	return receipt.Render(res.Receipt)
}

func TestReceipts(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		basket string
		want   string
	}{
		"single food article": {
			"1 chocolate bar at 0.85",
			"1 chocolate bar: 0.85\nSales Taxes: 0.00\nTotal: 0.85",
		},
		"single medical article": {
			"1 packet of headache pills at 9.75",
			"1 packet of headache pills: 9.75\nSales Taxes: 0.00\nTotal: 9.75",
		},
		"single book": {
			"1 book at 12.49",
			"1 book: 12.49\nSales Taxes: 0.00\nTotal: 12.49",
		},
		"multiple food articles": {
			"3 chocolate bar at 0.85",
			"3 chocolate bar: 2.55\nSales Taxes: 0.00\nTotal: 2.55",
		},
		"multiple medical articles": {
			"4 packet of headache pills at 9.75",
			"4 packet of headache pills: 39.00\nSales Taxes: 0.00\nTotal: 39.00",
		},
		"multiple books": {
			"5 book at 12.49",
			"5 book: 62.45\nSales Taxes: 0.00\nTotal: 62.45",
		},
		"single tax-free non imported articles": {
			"1 packet of headache pills at 9.75\n1 book at 12.49\n1 chocolate bar at 0.85\n",
			"1 packet of headache pills: 9.75\n1 book: 12.49\n1 chocolate bar: 0.85\nSales Taxes: 0.00\nTotal: 23.09",
		},
		"multiple tax-free non imported articles": {
			"5 book at 12.49\n3 chocolate bar at 0.85\n4 packet of headache pills at 9.75\n",
			"5 book: 62.45\n3 chocolate bar: 2.55\n4 packet of headache pills: 39.00\nSales Taxes: 0.00\nTotal: 104.00",
		},
		"imported perfume": {
			"1 imported bottle of perfume at 27.99",
			"1 imported bottle of perfume: 32.19\nSales Taxes: 4.20\nTotal: 32.19",
		},
		"general sales tax": {
			"2 book at 12.49\n1 music CD at 14.99\n1 chocolate bar at 0.85",
			"2 book: 24.98\n1 music cd: 16.49\n1 chocolate bar: 0.85\nSales Taxes: 1.50\nTotal: 42.32",
		},
		"imported goods": {
			"1 imported box of chocolates at 10.00\n1 imported bottle of perfume at 47.50",
			"1 imported box of chocolates: 10.50\n1 imported bottle of perfume: 54.65\nSales Taxes: 7.65\nTotal: 65.15",
		},
		"mixed basket": {
			"1 imported bottle of perfume at 27.99\n1 bottle of perfume at 18.99\n" +
				"1 packet of headache pills at 9.75\n3 box of imported chocolates at 11.25",
			"1 imported bottle of perfume: 32.19\n1 bottle of perfume: 20.89\n1 packet of headache pills: 9.75\n" +
				"3 imported box of chocolates: 35.40\nSales Taxes: 7.75\nTotal: 98.23",
		},
		"repeated lines merge": {
			"1 book at 12.49\n2 chocolate bar at 0.85\n2 book at 12.490",
			"3 book: 37.47\n2 chocolate bar: 1.70\nSales Taxes: 0.00\nTotal: 39.17",
		},
		"imported flag splits lines": {
			"1 box of chocolates at 10.00\n1 imported box of chocolates at 10.00",
			"1 box of chocolates: 10.00\n1 imported box of chocolates: 10.50\nSales Taxes: 0.50\nTotal: 20.50",
		},
		"blank lines and crlf": {
			"\r\n1 book at 12.49\r\n\r\n   \n1 chocolate bar at 0.85\r\n",
			"1 book: 12.49\n1 chocolate bar: 0.85\nSales Taxes: 0.00\nTotal: 13.34",
		},
		"empty basket": {
			"",
			"Sales Taxes: 0.00\nTotal: 0.00",
		},
	}

	svc := newService(checkout.Options{})
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, render(t, svc, tc.basket))
		})
	}
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()

	svc := newService(checkout.Options{})
	basket := "1 imported bottle of perfume at 27.99\n1 book at 12.49\n1 imported bottle of perfume at 27.99"
	require.Equal(t, render(t, svc, basket), render(t, svc, basket))
}

func TestRejectPolicyFailsOnFirstMalformedLine(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	metrics := obs.NewPipelineMetrics("receipt", registry)
	svc := newService(checkout.Options{Metrics: metrics})

	_, err := svc.Run(context.Background(), []string{"1 book at 12.49", "book at 12.49", "nope"})
	require.ErrorIs(t, err, parser.ErrMalformedInput)

	var lineErr *parser.LineError
	require.True(t, errors.As(err, &lineErr))
	require.Equal(t, 2, lineErr.Line)
	require.Equal(t, "book at 12.49", lineErr.Text)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.LinesTotal.WithLabelValues(obs.LineParsed)))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.LinesTotal.WithLabelValues(obs.LineRejected)))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReceiptsTotal.WithLabelValues("error")))
}

func TestRunReportsQuantityOverflowOnMerge(t *testing.T) {
	t.Parallel()

	svc := newService(checkout.Options{})
	_, err := svc.Run(context.Background(), []string{"9223372036854775807 book at 1", "1 book at 1"})
	require.ErrorIs(t, err, basket.ErrInvalidArticle)
	require.Contains(t, err.Error(), "quantity overflows")
}

func TestSkipPolicyDropsMalformedLines(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	registry := prometheus.NewRegistry()
	metrics := obs.NewPipelineMetrics("receipt", registry)
	svc := newService(checkout.Options{
		Logger:  zerolog.New(&logs),
		Policy:  checkout.PolicySkip,
		Metrics: metrics,
	})

	res, err := svc.Run(context.Background(), []string{"1 book at 12.49", "0 book at 1", "1 chocolate bar at 0.85", "junk"})
	require.NoError(t, err)
	require.Equal(t, "1 book: 12.49\n1 chocolate bar: 0.85\nSales Taxes: 0.00\nTotal: 13.34", receipt.Render(res.Receipt))

	require.Len(t, res.Skipped, 2)
	require.Equal(t, 2, res.Skipped[0].Line)
	require.Equal(t, 4, res.Skipped[1].Line)
	require.ErrorIs(t, &res.Skipped[1], parser.ErrMalformedInput)

	require.Contains(t, logs.String(), `"message":"skipping malformed line"`)
	require.Contains(t, logs.String(), `"component":"checkout"`)
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.LinesTotal.WithLabelValues(obs.LineSkipped)))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReceiptsTotal.WithLabelValues("ok")))
	require.Equal(t, 13.34, testutil.ToFloat64(metrics.TotalDue))
}

func TestMetricsCountAppliedTaxes(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	metrics := obs.NewPipelineMetrics("receipt", registry)
	svc := newService(checkout.Options{Metrics: metrics})

	_, err := svc.Run(context.Background(), []string{
		"1 imported bottle of perfume at 27.99",
		"1 imported box of chocolates at 10.00",
		"1 music CD at 14.99",
	})
	require.NoError(t, err)
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.TaxesApplied.WithLabelValues("import")))
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.TaxesApplied.WithLabelValues("non-exempt-category")))
	require.Equal(t, 4, testutil.CollectAndCount(metrics.StageDuration))
}

func TestRunRecordsSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	svc := newService(checkout.Options{Tracer: obs.Tracer(provider)})

	_, err := svc.Run(context.Background(), []string{"1 book at 12.49"})
	require.NoError(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	require.Equal(t, []string{"Checkout.parse", "Checkout.basket", "Checkout.tax", "Checkout.receipt", "Checkout.Run"}, names)

	root := recorder.Ended()[4]
	for _, child := range recorder.Ended()[:4] {
		require.Equal(t, root.SpanContext().SpanID(), child.Parent().SpanID())
		require.Equal(t, codes.Unset, child.Status().Code, child.Name())
	}
}

func TestRunMarksFailedSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	svc := newService(checkout.Options{Tracer: obs.Tracer(provider)})

	_, err := svc.Run(context.Background(), []string{"one book at 12.49"})
	require.Error(t, err)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	require.Equal(t, "Checkout.parse", ended[0].Name())
	require.Equal(t, codes.Error, ended[0].Status().Code)
	require.Equal(t, codes.Error, ended[1].Status().Code)
}

func TestCustomCatalog(t *testing.T) {
	t.Parallel()

	products, err := catalog.New(catalog.Entry{Name: "music cd", Category: "music"}, catalog.Entry{Name: "apple", Category: "food"})
	require.NoError(t, err)
	svc := newService(checkout.Options{Products: products})

	require.Equal(t,
		"1 apple: 0.30\n1 book: 13.74\nSales Taxes: 1.25\nTotal: 14.04",
		render(t, svc, "1 apple at 0.30\n1 book at 12.49"),
	)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]checkout.Policy{"": checkout.PolicyReject, "reject": checkout.PolicyReject, " SKIP ": checkout.PolicySkip} {
		got, err := checkout.ParsePolicy(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := checkout.ParsePolicy("ignore")
	require.ErrorIs(t, err, checkout.ErrUnknownPolicy)
}
