package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/receipt/internal/basket"
	"github.com/noah-isme/receipt/internal/catalog"
	"github.com/noah-isme/receipt/internal/checkout"
	"github.com/noah-isme/receipt/internal/common"
	"github.com/noah-isme/receipt/internal/config"
	"github.com/noah-isme/receipt/internal/obs"
	"github.com/noah-isme/receipt/internal/parser"
	"github.com/noah-isme/receipt/internal/receipt"
)

const stdinPath = "-"

type options struct {
	input       string
	catalogPath string
	onMalformed string
	format      string
	metricsFile string
	verbose     bool
}

// NewRootCommand builds the receipt command. Output goes to the command's out and err writers.
func NewRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Add taxes to purchased items and print the receipt.",
		Long: `receipt reads a basket of purchased items, one "<quantity> <description> at <price>"
per line, adds sales and import taxes and prints the receipt.

Example:
  receipt -i basket.txt
  cat basket.txt | receipt -i - --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.input == "" {
				return cmd.Help()
			}
			return run(cmd, opts)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return common.NewAppError(common.CodeUsage, "invalid arguments", common.ExitUsage, err)
	})

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "a path to a file containing a basket (- for stdin)")
	flags.StringVar(&opts.catalogPath, "catalog", "", "product catalog file (.yaml, .yml or .xlsx)")
	flags.StringVar(&opts.onMalformed, "on-malformed", "", "what to do with malformed lines: reject or skip")
	flags.StringVar(&opts.format, "format", "", "output format: text or json")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging on stderr")

	cmd.AddCommand(newVersionCommand())
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return common.ExitCodeOf(err)
	}
	return 0
}

func run(cmd *cobra.Command, opts options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return common.NewAppError(common.CodeConfig, "load config", common.ExitConfig, err)
	}

	level := cfg.LogLevel
	if opts.verbose {
		level = zerolog.LevelDebugValue
	}
	logger, runID := obs.WithRun(obs.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, level).With().Str("env", cfg.AppEnv).Logger())
	logger.Debug().Str("run_id", runID).Str("input", opts.input).Msg("receipt run started")

	shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{ServiceName: "receipt", Environment: cfg.AppEnv})
	if err != nil {
		logger.Warn().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	products, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return classify(err)
	}
	logger.Debug().Int("products", products.Len()).Msg("catalog loaded")

	policy, err := checkout.ParsePolicy(cfg.OnMalformed)
	if err != nil {
		return common.NewAppError(common.CodeConfig, "load config", common.ExitConfig, err)
	}

	var (
		registry *prometheus.Registry
		metrics  *obs.PipelineMetrics
	)
	if cfg.MetricsFile != "" {
		registry = prometheus.NewRegistry()
		metrics = obs.NewPipelineMetrics(cfg.MetricsNamespace, registry)
		defer func() {
			if err := obs.WriteMetricsFile(cfg.MetricsFile, registry); err != nil {
				logger.Error().Err(err).Str("path", cfg.MetricsFile).Msg("write metrics")
			}
		}()
	}

	in, closeInput, err := openInput(cmd, opts.input)
	if err != nil {
		return classify(err)
	}
	defer closeInput()

	svc := checkout.NewService(checkout.Options{
		Logger:   logger,
		Products: products,
		Policy:   policy,
		Metrics:  metrics,
		Tracer:   obs.Tracer(nil),
	})
	res, err := svc.Process(ctx, in)
	if err != nil {
		return classify(err)
	}

	out, err := render(res.Receipt, cfg.OutputFormat)
	if err != nil {
		return common.NewAppError(common.CodeInternal, "render receipt", common.ExitFailure, err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func loadConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("catalog") {
		cfg.CatalogPath = opts.catalogPath
	}
	if flags.Changed("on-malformed") {
		cfg.OnMalformed = strings.ToLower(opts.onMalformed)
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(opts.format)
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = opts.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == stdinPath {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func render(r receipt.Receipt, format string) (string, error) {
	if format == "json" {
		return receipt.RenderJSON(r)
	}
	return receipt.Render(r), nil
}

// classify maps pipeline errors to exit codes.
func classify(err error) error {
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, parser.ErrMalformedInput),
		errors.Is(err, basket.ErrInvalidArticle),
		errors.Is(err, basket.ErrInvalidProduct):
		return common.NewAppError(common.CodeMalformedInput, "invalid basket", common.ExitDataErr, err)
	case errors.Is(err, catalog.ErrInvalidCatalog):
		return common.NewAppError(common.CodeInvalidCatalog, "load catalog", common.ExitConfig, err)
	case errors.As(err, &pathErr):
		return common.NewAppError(common.CodeIO, "read file", common.ExitIOErr, err)
	default:
		return common.NewAppError(common.CodeInternal, "build receipt", common.ExitFailure, err)
	}
}
