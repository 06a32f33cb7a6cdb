package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mydiagai/internal/catalog"
	"mydiagai/internal/diagnostic"
	"mydiagai/internal/platform/gateway"
	"mydiagai/internal/report"
	"mydiagai/internal/scoring"
)

type exportOptions struct {
	Name     string
	Age      string
	Gender   string
	Symptoms []string
	OutDir   string
	Token    string
}

func exportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run one diagnostic offline and write the PDF report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			gw := gateway.NewClient(cfg.GatewayURL, cfg.GatewayTimeout, logger)
			exporter := report.NewExporter(cfg.PDFFontPath, logger)

			path, err := runExport(cmd.Context(), opts, newScorer(cfg, gw), exporter, logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "Patient full name")
	cmd.Flags().StringVar(&opts.Age, "age", "", "Patient age in years")
	cmd.Flags().StringVar(&opts.Gender, "gender", "", "Patient gender (male, female, other)")
	cmd.Flags().StringSliceVar(&opts.Symptoms, "symptom", nil, "Symptom id, repeatable")
	cmd.Flags().StringVar(&opts.OutDir, "out", ".", "Output directory")
	cmd.Flags().StringVar(&opts.Token, "token", "", "Gateway bearer token for the remote scorer")
	return cmd
}

// runExport drives a session through the whole flow without the analysis
// delay and writes the report into opts.OutDir.
func runExport(ctx context.Context, opts exportOptions, scorer scoring.Scorer, exporter diagnostic.ReportExporter, logger zerolog.Logger) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Token != "" {
		ctx = gateway.WithToken(ctx, opts.Token)
	}
	s := diagnostic.NewSession(diagnostic.Options{
		Catalog: catalog.Default(),
		Scorer:  scorer,
		Logger:  logger,
	})
	defer s.Close()

	if err := s.SubmitPatient(opts.Name, opts.Age, opts.Gender); err != nil {
		return "", err
	}
	for _, id := range opts.Symptoms {
		if _, err := s.ToggleSymptom(id); err != nil {
			return "", err
		}
	}
	if err := s.StartAnalysis(ctx); err != nil {
		return "", err
	}
	if err := s.Wait(ctx); err != nil {
		return "", err
	}
	if snap := s.Snapshot(); snap.LastError != "" {
		return "", fmt.Errorf("analysis failed: %s", snap.LastError)
	}

	r, err := s.Report()
	if err != nil {
		return "", err
	}
	data, name, err := exporter.Export(r, time.Now())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(opts.OutDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	logger.Info().Str("path", path).Int("bytes", len(data)).Msg("report written")
	return path, nil
}
