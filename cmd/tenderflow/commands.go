package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/internal/pipeline"
	"github.com/ajitpratap0/tenderflow/pkg/compression"
	"github.com/ajitpratap0/tenderflow/pkg/export"
	"github.com/ajitpratap0/tenderflow/pkg/logger"
	"github.com/ajitpratap0/tenderflow/pkg/query"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format, name, algo, dir string
		batchSize               int
		publishS3, profile      bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Stream every record into an export file",
		Long: `Stream every record of the store into a file, one batch at a time.

Example:
  tenderflow export --format xlsx --batch-size 500
  tenderflow export --format jsonl --compression zstd --publish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("batch-size") {
				a.cfg.Export.BatchSize = batchSize
			}
			if dir != "" {
				a.cfg.Export.Dir = dir
			}
			if profile {
				a.cfg.Export.ProfileMemory = true
			}

			req := pipeline.ExportRequest{Name: name, Publish: publishS3}
			if format != "" {
				f, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				req.Format = f
			}
			if algo != "" {
				c, err := compression.ParseAlgorithm(algo)
				if err != nil {
					return err
				}
				req.Compression = c
			}

			ctx := logger.ContextWithExportID(cmd.Context(), exportID())
			p, err := a.processor(ctx)
			if err != nil {
				return err
			}
			if publishS3 {
				pub, err := a.publisher(ctx)
				if err != nil {
					return err
				}
				p.SetPublisher(pub)
			}

			res, err := p.Export(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Export format: json, jsonl, xlsx or avro (default from config)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Output file name (default tenders_export_<timestamp>)")
	cmd.Flags().StringVar(&algo, "compression", "", "Compression: none, gzip, zstd, lz4, snappy, s2, deflate")
	cmd.Flags().StringVarP(&dir, "dir", "o", "", "Destination directory (default from config)")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 1000, "Records per batch. Peak memory grows with the batch size, not the dataset")
	cmd.Flags().BoolVar(&publishS3, "publish", false, "Upload the finished file to the configured S3 bucket")
	cmd.Flags().BoolVar(&profile, "profile-memory", false, "Sample process memory after every batch")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dataset statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.processor(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := p.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		keywords string
		limit    int
	)
	filters := make(map[string]*string, len(query.Params))

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Filter and rank tenders",
		Long: `Filter tenders and rank them by keyword relevance, then by soonest deadline.
Malformed numeric or date filters are skipped with a warning.

Example:
  tenderflow search --location Delhi --min-value 250000 --query "medical equipment"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := make(map[string]string)
			for name, v := range filters {
				if *v != "" {
					params[name] = *v
				}
			}

			p, err := a.processor(cmd.Context())
			if err != nil {
				return err
			}
			res, err := p.Search(cmd.Context(), params, keywords, limit)
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: ignoring %s=%q: %s\n", w.Param, w.Value, w.Message)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	for _, name := range query.Params {
		v := new(string)
		filters[name] = v
		cmd.Flags().StringVar(v, flagName(name), "", "Filter on "+name)
	}
	cmd.Flags().StringVarP(&keywords, "query", "q", "", "Keywords scored against organization, category, location and description")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (0 for all)")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <tender-id>",
		Short: "Print one tender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.processor(cmd.Context())
			if err != nil {
				return err
			}
			r, err := p.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
}

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.json>",
		Short: "Insert a JSON array of tenders into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			p, err := a.processor(cmd.Context())
			if err != nil {
				return err
			}
			n, err := p.Load(cmd.Context(), f)
			if err != nil {
				return err
			}
			a.log.Info("Load complete", zap.String("file", args[0]), zap.Int("records", n))
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d records\n", n)
			return nil
		},
	}
}
