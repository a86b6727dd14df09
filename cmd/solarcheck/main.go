// Command solarcheck runs a single impact or viability assessment against the
// live upstreams and prints the result as JSON.
//
//	solarcheck -mode impact -postal-code 01310-100 -consumption 300
//	solarcheck -mode viability -postal-code 01310-100 -efficiency 0.18 -wattage 330
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/solar-feasibility-service/internal/adapter/nominatim"
	"github.com/couchcryptid/solar-feasibility-service/internal/adapter/power"
	"github.com/couchcryptid/solar-feasibility-service/internal/config"
	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
	"github.com/couchcryptid/solar-feasibility-service/internal/feasibility"
	"github.com/couchcryptid/solar-feasibility-service/internal/observability"
	"github.com/couchcryptid/solar-feasibility-service/internal/pipeline"
)

type options struct {
	mode        string
	postalCode  string
	consumption float64
	efficiency  float64
	wattage     float64
	start       string
	end         string
}

func main() {
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	metrics := observability.NewMetrics()

	geocoder := nominatim.NewClient(nominatim.Options{
		BaseURL:   cfg.GeocoderURL,
		Country:   cfg.GeocoderCountry,
		UserAgent: cfg.GeocoderUserAgent,
		Timeout:   cfg.GeocoderTimeout,
		RateLimit: cfg.GeocoderRateLimit,
	}, metrics, logger)
	source := power.NewClient(power.Options{
		BaseURL:   cfg.PowerURL,
		Community: cfg.PowerCommunity,
		Timeout:   cfg.PowerTimeout,
	}, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := run(ctx, feasibility.New(geocoder, source, logger, metrics), opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", publicMessage(err))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintln(os.Stderr, "encode result:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("solarcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.mode, "mode", "impact", `assessment to run: "impact" or "viability"`)
	fs.StringVar(&o.postalCode, "postal-code", "", "postal code to assess (required)")
	fs.Float64Var(&o.consumption, "consumption", 0, "monthly energy consumption in kWh (impact)")
	fs.Float64Var(&o.efficiency, "efficiency", 0, "panel efficiency in (0, 1] (viability)")
	fs.Float64Var(&o.wattage, "wattage", 0, "panel rated output in W (viability)")
	fs.StringVar(&o.start, "start", "", "range start, YYYY-MM-DD (impact, optional)")
	fs.StringVar(&o.end, "end", "", "range end, YYYY-MM-DD (impact, optional)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch {
	case o.postalCode == "":
		return options{}, errors.New("-postal-code is required")
	case o.mode != domain.AssessmentImpact && o.mode != domain.AssessmentViability:
		return options{}, fmt.Errorf("unknown -mode %q", o.mode)
	case (o.start == "") != (o.end == ""):
		return options{}, errors.New("-start and -end must be given together")
	}
	return o, nil
}

func run(ctx context.Context, assessor pipeline.Assessor, o options) (any, error) {
	if o.mode == domain.AssessmentViability {
		return assessor.EvaluateViability(ctx, o.postalCode, domain.PanelSpec{Wattage: o.wattage, Efficiency: o.efficiency})
	}

	var dateRange *domain.DateRange
	if o.start != "" {
		r, err := domain.ParseDateRange(o.start, o.end)
		if err != nil {
			return nil, domain.NewAssessmentError(domain.KindInvalidInput, err.Error(), nil)
		}
		dateRange = &r
	}
	return assessor.CalculateImpact(ctx, o.consumption, o.postalCode, dateRange)
}

// newLogger writes to w so diagnostics never mix with the JSON on stdout.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func publicMessage(err error) string {
	var ae *domain.AssessmentError
	if errors.As(err, &ae) {
		return fmt.Sprintf("%s (%s)", ae.Message, ae.Kind)
	}
	return err.Error()
}
