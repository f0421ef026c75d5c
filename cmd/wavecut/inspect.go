package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/limPage/wavecut/internal/library"
	"github.com/limPage/wavecut/internal/segment"
	"github.com/limPage/wavecut/internal/store"
	"github.com/limPage/wavecut/internal/wavio"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show format details and cached segments for one library file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			log := slog.Default()

			lib, err := library.Open(cfg.Paths.AudioRoot, log)
			if err != nil {
				return err
			}

			f, err := lib.Lookup(args[0])
			if err != nil {
				return err
			}

			buf, err := wavio.DecodeFile(lib.Abs(f))
			if err != nil {
				return err
			}

			st := store.New(cfg.Paths.StateDir, log)

			return writeInspectReport(cmd.OutOrStdout(), f, buf, st.Restore(f.Key))
		},
	}

	return cmd
}

func writeInspectReport(w io.Writer, f library.File, buf *wavio.Buffer, segs []segment.Segment) error {
	fmt.Fprintf(w, "path:        %s\n", f.RelPath)
	fmt.Fprintf(w, "size:        %d bytes\n", f.Size)
	fmt.Fprintf(w, "sample rate: %d Hz\n", buf.SampleRate())
	fmt.Fprintf(w, "channels:    %d\n", buf.NumChannels())
	fmt.Fprintf(w, "frames:      %d\n", buf.Frames())
	fmt.Fprintf(w, "duration:    %.3f s\n", buf.Duration())

	if len(segs) == 0 {
		_, err := fmt.Fprintln(w, "segments:    none")
		return err
	}

	fmt.Fprintf(w, "segments:    %d\n", len(segs))
	for i, s := range segs {
		label := s.Label
		if label == "" {
			label = "(unlabeled)"
		}
		fmt.Fprintf(w, "  %d. %s  %.3f..%.3f  maxLen %.2f  %s  %s\n",
			i+1, s.ID, s.Start, s.End, s.MaxLen, s.Color, label)
	}
	return nil
}
