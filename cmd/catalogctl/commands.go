package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"boatcatalog/internal/audit"
	domain "boatcatalog/internal/domain/catalog"
	"boatcatalog/internal/snapshot"
)

func exportCommand(e *env) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog to a snapshot file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = fmt.Sprintf("catalog-%s.json", time.Now().UTC().Format("20060102-150405"))
			}
			snap, err := e.snapshots.Export(cmd.Context(), output)
			if err != nil {
				return err
			}
			e.printf("exported %d models, %d categories to %s (sha256 %s)\n", snap.Models, snap.Categories, output, snap.Checksum)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: catalog-<timestamp>.json)")
	return cmd
}

func importCommand(e *env) *cobra.Command {
	var opts snapshot.Options

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create or update catalog records from a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := e.snapshots.Import(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return e.printReport(report)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would change without writing")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", snapshot.DefaultConcurrency, "Parallel backend writes")
	return cmd
}

func restoreCommand(e *env) *cobra.Command {
	var (
		opts   snapshot.Options
		latest bool
	)

	cmd := &cobra.Command{
		Use:   "restore [file]",
		Short: "Rewrite existing catalog records from a snapshot",
		Long:  "Restore updates records that still exist in the backend. Records missing from the backend are skipped; use import to recreate them.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				report *snapshot.Report
				err    error
			)
			switch {
			case latest && len(args) == 0:
				report, err = e.snapshots.RestoreLatest(cmd.Context(), opts)
			case len(args) == 1 && !latest:
				report, err = e.snapshots.Restore(cmd.Context(), args[0], opts)
			default:
				return fmt.Errorf("give either a snapshot file or --latest")
			}
			if err != nil {
				return err
			}
			return e.printReport(report)
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "Restore the most recent recorded export")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would change without writing")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", snapshot.DefaultConcurrency, "Parallel backend writes")
	return cmd
}

func checkCommand(e *env) *cobra.Command {
	var (
		probe       bool
		site        string
		concurrency int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report media references that are legacy, broken or missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			models, err := e.client.ListModels(ctx)
			if err != nil {
				return err
			}
			categories, err := e.client.ListCategories(ctx)
			if err != nil {
				return err
			}

			report := audit.Run(models, categories, e.resolver)

			var probes []audit.ProbeResult
			if probe {
				views := make([]domain.ModelView, 0, len(models))
				for _, m := range models {
					views = append(views, e.transformer.ToViewModel(m))
				}
				catViews := make([]domain.CategoryView, 0, len(categories))
				for _, c := range categories {
					catViews = append(catViews, e.transformer.ToCategoryView(c, nil))
				}
				hc := &http.Client{Timeout: e.v.GetDuration("timeout")}
				probes = audit.Probe(ctx, hc, site, audit.URLs(views, catViews), concurrency)
			}

			if asJSON {
				enc := json.NewEncoder(e.out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"audit": report, "probes": probes})
			}

			for _, f := range report.Findings {
				e.printf("%-7s %s %s %s: %s %s\n", f.Severity, f.Entity, f.Name, f.Field, f.Issue, f.Value)
			}
			e.printf("refs: %v\n", report.Kinds)

			broken := 0
			for _, p := range probes {
				if !p.OK() {
					broken++
					e.printf("BROKEN  %s status=%d %s\n", p.URL, p.Status, p.Error)
				}
			}
			if probe {
				e.printf("probed %d urls, %d broken\n", len(probes), broken)
			}

			if report.Errors() > 0 || broken > 0 {
				return fmt.Errorf("check failed: %d errors, %d broken urls", report.Errors(), broken)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "Send a HEAD request for every resolved URL")
	cmd.Flags().StringVar(&site, "site", "", "Site origin used to resolve local image paths when probing")
	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "Parallel probes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func historyCommand(e *env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded exports, imports and restores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := e.snapshots.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, s := range history {
				e.printf("%s  %-7s dry_run=%-5t models=%d categories=%d created=%d updated=%d skipped=%d failed=%d %s\n",
					s.CreatedAt.Format(time.RFC3339), s.Kind, s.DryRun, s.Models, s.Categories,
					s.Created, s.Updated, s.Skipped, s.Failed, s.Path)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries")
	return cmd
}

func pruneCommand(e *env) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old snapshot history, keeping the latest export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := e.snapshots.Prune(cmd.Context(), maxAge)
			if err != nil {
				return err
			}
			e.printf("pruned %d snapshots older than %s\n", deleted, maxAge)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "older-than", 90*24*time.Hour, "Age after which history entries are deleted")
	return cmd
}

func (e *env) printReport(r *snapshot.Report) error {
	for _, a := range r.Actions {
		if a.Error != "" {
			e.printf("%-8s %-6s %s: %s\n", a.Entity, a.Op, a.Name, a.Error)
			continue
		}
		e.printf("%-8s %-6s %s\n", a.Entity, a.Op, a.Name)
	}
	s := r.Snapshot
	prefix := ""
	if s.DryRun {
		prefix = "dry run: "
	}
	e.printf("%s%d created, %d updated, %d skipped, %d failed\n", prefix, s.Created, s.Updated, s.Skipped, s.Failed)
	if s.Failed > 0 {
		return fmt.Errorf("%d records failed", s.Failed)
	}
	return nil
}
