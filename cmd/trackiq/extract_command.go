package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/trackiq/features"
	"github.com/RyanBlaney/trackiq/storage"
)

type extractResult struct {
	Filename string          `json:"filename"`
	ID       int64           `json:"id,omitempty"`
	Features features.Vector `json:"features"`
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var (
		format string
		store  bool
	)

	cmd := &cobra.Command{
		Use:   "extract <file>...",
		Short: "Extract features from audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			extractor := features.NewExtractor(cfg.ExtractorConfig())

			extract := func(path string) (features.Vector, error) {
				runCtx := cmd.Context()
				if timeout := cfg.ExtractionTimeout(); timeout > 0 {
					var cancel context.CancelFunc
					runCtx, cancel = context.WithTimeout(runCtx, timeout)
					defer cancel()
				}
				return extractor.ExtractFile(runCtx, path)
			}

			results := make([]extractResult, 0, len(args))
			run := func(st *storage.Store) error {
				for _, path := range args {
					vec, err := extract(path)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					res := extractResult{Filename: filepath.Base(path), Features: vec}
					if st != nil {
						rec, err := st.Insert(cmd.Context(), res.Filename, vec)
						if err != nil {
							var dup *storage.DuplicateKeyError
							if errors.As(err, &dup) {
								return fmt.Errorf("%s: already stored; rename the file to store it again", res.Filename)
							}
							return err
						}
						res.ID = rec.ID
					}
					results = append(results, res)
				}
				return nil
			}

			if store {
				err = ctx.withStore(func(st *storage.Store) error { return run(st) })
			} else {
				err = run(nil)
			}
			if err != nil {
				return err
			}

			if format == "json" {
				return writeJSON(cmd, results)
			}
			out := cmd.OutOrStdout()
			for i, res := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				title := res.Filename
				if res.ID != 0 {
					title += " (id " + strconv.FormatInt(res.ID, 10) + ")"
				}
				fmt.Fprintln(out, title)
				fmt.Fprintln(out, renderVector(res.Features))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or json")
	cmd.Flags().BoolVar(&store, "store", false, "Store the results in the database")
	return cmd
}

func validateFormat(format string) error {
	switch strings.ToLower(format) {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table or json)", format)
	}
}

func renderVector(v features.Vector) string {
	values := v.Values()
	rows := make([][]string, 0, len(values))
	for i, name := range features.Names() {
		rows = append(rows, []string{name, formatFloat(values[i])})
	}
	return renderTable([]string{"Feature", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
