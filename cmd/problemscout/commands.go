package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ProblemScout/internal/export"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the ingestion scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer application.Close()

		return application.Serve(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.Migrate(cmd.Context()); err != nil {
			return err
		}
		newPrinter(cmd).Success("schema is up to date")
		return nil
	},
}

var ingestDigest bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch configured feeds once and store new problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		report, err := application.Ingest(cmd.Context(), ingestDigest)
		p := newPrinter(cmd)
		p.Heading("Ingestion")
		p.Field("Fetched", report.Fetched)
		p.Field("Skipped", report.Skipped)
		p.Field("Duplicates", report.Duplicates)
		p.Field("Created", report.Created)
		p.Field("Failed", report.Failed)
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			p.Warn("%d items could not be stored", report.Failed)
		}
		return nil
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group recent enriched problems into themes",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		clusters, err := application.Insights.Clusters(cmd.Context())
		if err != nil {
			return err
		}

		p := newPrinter(cmd)
		p.Heading("Clusters (%d)", len(clusters))
		for _, c := range clusters {
			p.Item("%s: %d problems, innovation gap %d/10", c.Name, len(c.ProblemIDs), c.InnovationGap)
			if len(c.Themes) > 0 {
				p.Note("themes: %s", strings.Join(c.Themes, ", "))
			}
		}
		return nil
	},
}

var matchCmd = &cobra.Command{
	Use:   "match <problem-id>",
	Short: "Rank registered experts against a problem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		matches, err := application.Insights.Matches(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		p := newPrinter(cmd)
		p.Heading("Matches for %s (%d)", args[0], len(matches))
		for _, m := range matches {
			p.Item("%s (%d) %s", m.Expert.Name, m.Score, m.Expert.Contact)
			for _, reason := range m.Reasons {
				p.Note("%s", reason)
			}
		}
		return nil
	},
}

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:       "export <problems|clusters>",
	Short:     "Export problems or clusters as CSV or JSON",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"problems", "clusters"},
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		application, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		out := cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		if err := application.Export(cmd.Context(), out, args[0], format); err != nil {
			return err
		}
		if exportOutput != "" {
			newPrinter(cmd).Success("exported %s to %s", args[0], exportOutput)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestDigest, "digest", false, "Send the cluster digest when new problems were stored")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json or csv")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
}
