package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/limPage/wavecut/internal/export"
	"github.com/limPage/wavecut/internal/library"
	"github.com/limPage/wavecut/internal/session"
	"github.com/limPage/wavecut/internal/store"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		all      bool
		complete bool
	)

	cmd := &cobra.Command{
		Use:   "export <file> | --all",
		Short: "Export segments as standalone WAV clips",
		Long: `Export writes every segment of a file into the export directory, one
WAV clip per segment, named {base}_{label}.wav.

With a file argument the file is opened like the server would open it:
cached segments are restored, or a default segment is seeded. With
--all every library file that carries cached segments is exported in
library order; unannotated files are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("name exactly one file or pass --all")
			}

			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			log := slog.Default()

			lib, err := library.Open(cfg.Paths.AudioRoot, log)
			if err != nil {
				return err
			}

			st := store.New(cfg.Paths.StateDir, log)
			exp := export.New(cfg.Paths.ExportDir, log)
			sess := session.New(lib, st, exp, log)

			targets, err := exportTargets(lib, st, args, all)
			if err != nil {
				return err
			}

			for _, f := range targets {
				if _, err := sess.Open(f.RelPath); err != nil {
					return err
				}

				names, err := sess.ExportAll()
				if err != nil {
					return err
				}

				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(exp.Dir(), name))
				}

				// Leave the file before purging so the teardown persist
				// cannot resurrect the dropped entry.
				sess.Close()
				if complete {
					st.Purge(f.Key)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Export every file with cached segments")
	cmd.Flags().BoolVar(&complete, "complete", false, "Purge each file's cached segments after exporting")

	return cmd
}

// exportTargets resolves which files to export: the named one, or with
// --all every library file that has a cache entry.
func exportTargets(lib *library.Library, st *store.Store, args []string, all bool) ([]library.File, error) {
	if !all {
		f, err := lib.Lookup(args[0])
		if err != nil {
			return nil, err
		}
		return []library.File{f}, nil
	}

	files, err := lib.Files()
	if err != nil {
		return nil, err
	}

	var targets []library.File
	for _, f := range files {
		if st.Count(f.Key) > 0 {
			targets = append(targets, f)
		}
	}

	return targets, nil
}
