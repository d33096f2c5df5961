package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/trackiq/config"
	"github.com/RyanBlaney/trackiq/export"
	"github.com/RyanBlaney/trackiq/storage"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"db"},
		Short:   "Inspect stored feature records",
	}

	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsShowCommand(ctx))
	recordsCmd.AddCommand(newRecordsDeleteCommand(ctx))
	recordsCmd.AddCommand(newRecordsExportCommand(ctx))
	return recordsCmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			return ctx.withStore(func(store *storage.Store) error {
				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if format == "json" {
					if records == nil {
						records = []*storage.Record{}
					}
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No records stored")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						strconv.FormatInt(rec.ID, 10),
						rec.Filename,
						formatFloat(rec.Features.Tempo),
						formatFloat(rec.Features.SpectralCentroid),
						formatFloat(rec.Features.RMS),
						humanize.Time(rec.CreatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Filename", "Tempo", "Centroid", "RMS", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or json")
	return cmd
}

func newRecordsShowCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id|filename>",
		Short: "Show one stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			return ctx.withStore(func(store *storage.Store) error {
				rec, err := lookupRecord(cmd, store, args[0])
				if err != nil {
					return err
				}
				if format == "json" {
					return writeJSON(cmd, rec)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (id %d, stored %s)\n", rec.Filename, rec.ID, humanize.Time(rec.CreatedAt))
				fmt.Fprintln(out, renderVector(rec.Features))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or json")
	return cmd
}

func newRecordsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored record so the filename can be processed again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record id %q", args[0])
			}
			return ctx.withStore(func(store *storage.Store) error {
				if err := store.Delete(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete record %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %d\n", id)
				return nil
			})
		},
	}
}

func newRecordsExportCommand(ctx *commandContext) *cobra.Command {
	var (
		outPath     string
		compression string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all records to a Parquet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(outPath) == "" {
				return fmt.Errorf("--out is required")
			}
			target, err := config.ExpandPath(outPath)
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			codec, err := export.Compression(compression)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *storage.Store) error {
				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				f, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create %s: %w", target, err)
				}
				if err := export.WriteParquet(f, records, codec); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close %s: %w", target, err)
				}
				size := "unknown size"
				if info, err := os.Stat(target); err == nil {
					size = humanize.Bytes(uint64(info.Size()))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s (%s)\n", len(records), target, size)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination Parquet file")
	cmd.Flags().StringVar(&compression, "compression", "snappy", "Compression codec: snappy, zstd, gzip or none")
	return cmd
}

// lookupRecord accepts either a numeric id or a filename.
func lookupRecord(cmd *cobra.Command, store *storage.Store, key string) (*storage.Record, error) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		rec, err := store.GetByID(cmd.Context(), id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}
	rec, err := store.GetByFilename(cmd.Context(), key)
	if err != nil {
		return nil, fmt.Errorf("record %q: %w", key, err)
	}
	return rec, nil
}
