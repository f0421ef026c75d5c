package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/limPage/wavecut/internal/library"
	"github.com/limPage/wavecut/internal/store"
	"github.com/spf13/cobra"
)

// fileRow is one line of the files listing.
type fileRow struct {
	Path     string
	Size     int64
	Modified int64
	Segments int
}

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List WAV files in the library with annotation counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			log := slog.Default()

			lib, err := library.Open(cfg.Paths.AudioRoot, log)
			if err != nil {
				return err
			}

			files, err := lib.Files()
			if err != nil {
				return err
			}

			st := store.New(cfg.Paths.StateDir, log)

			rows := make([]fileRow, 0, len(files))
			for _, f := range files {
				rows = append(rows, fileRow{
					Path:     f.RelPath,
					Size:     f.Size,
					Modified: f.Modified,
					Segments: st.Count(f.Key),
				})
			}

			return writeFileListing(cmd.OutOrStdout(), rows)
		},
	}

	return cmd
}

// writeFileListing prints one line per file with its cached segment count.
func writeFileListing(w io.Writer, rows []fileRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no WAV files found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSIZE\tMODIFIED\tSEGMENTS")
	for _, r := range rows {
		segments := "-"
		if r.Segments > 0 {
			segments = strconv.Itoa(r.Segments)
		}
		modified := time.UnixMilli(r.Modified).UTC().Format("2006-01-02 15:04")
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Path, r.Size, modified, segments)
	}
	return tw.Flush()
}
