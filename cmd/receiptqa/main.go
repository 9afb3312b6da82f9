package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"receipt-qa/internal/anomaly"
	"receipt-qa/internal/config"
	"receipt-qa/internal/gateway"
	"receipt-qa/internal/logger"
	"receipt-qa/internal/receipt"
	"receipt-qa/internal/usecase"
)

func main() {
	cmd, err := newRootCmd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// flagKeys maps config keys onto the flags that override them.
var flagKeys = map[string]string{
	"input":              "input",
	"output_dir":         "out-dir",
	"log_level":          "log-level",
	"parser.fallthrough": "fallthrough",
	"parser.trip_year":   "trip-year",
	"anomaly.threshold":  "threshold",
}

func newRootCmd() (*cobra.Command, error) {
	v := viper.New()
	var configPath string

	cmd := &cobra.Command{
		Use:           "receiptqa",
		Short:         "Extract, validate and monitor e-commerce receipt records",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flags.String("input", "", "Path to the pipe-delimited raw receipts file")
	flags.String("out-dir", "", "Directory for the cleaned, QA and anomaly reports")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("fallthrough", false, "Try later vendors when the first matching vendor's pattern fails")
	flags.Int("trip-year", 0, "Year appended to trip dates")
	flags.Int("threshold", 0, "Minimum absolute day-over-day volume change to report")

	// Flags only override config when set explicitly.
	for key, flag := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("could not bind flag --%s to %s: %w", flag, key, err)
		}
	}

	return cmd, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.LogLevel)
	ctx = logger.WithContext(ctx, log)

	// --- Dependency Injection (Wiring the application) ---
	repo := gateway.NewTextReceiptRepository()
	parser := receipt.NewParser(receipt.DefaultRegistry(), cfg.Parser.ParserOptions())
	normalizer := receipt.NewNormalizer(receipt.DefaultAliases())
	validator := receipt.NewValidator()
	detector := anomaly.NewDetector(cfg.Anomaly.Threshold)

	pipeline := usecase.NewPipelineUseCase(repo, parser, normalizer, validator, detector)

	// --- Execute the Usecase ---
	report, err := pipeline.Run(ctx, cfg.Input)
	if err != nil {
		log.Error().Err(err).Msg("pipeline failed")
		return err
	}

	// --- Persist the Output ---
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", cfg.OutputDir).Msg("could not create output directory")
		return err
	}
	writer := gateway.NewCSVReportWriter()
	outputs := []struct {
		name  string
		write func(string) error
	}{
		{cfg.Files.Cleaned, func(p string) error { return writer.WriteReceiptsToFile(p, report.Receipts) }},
		{cfg.Files.QAReport, func(p string) error { return writer.WriteReceiptsToFile(p, report.Rejected) }},
		{cfg.Files.Anomalies, func(p string) error { return writer.WriteAnomaliesToFile(p, report.Anomalies) }},
	}
	for _, o := range outputs {
		path := filepath.Join(cfg.OutputDir, o.name)
		if err := o.write(path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("could not write report")
			return err
		}
		log.Info().Str("path", path).Msg("report written")
	}

	// --- Present the Summary ---
	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to generate JSON summary")
		return err
	}
	fmt.Println(string(output))
	return nil
}
