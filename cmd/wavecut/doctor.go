package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/limPage/wavecut/internal/doctor"
	"github.com/limPage/wavecut/internal/wavio"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local environment checks",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			result := doctor.Run(doctorConfig(cfg.Paths.AudioRoot, cfg.Paths.StateDir, cfg.Paths.ExportDir), os.Stdout)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(os.Stdout, "doctor checks passed")

			return nil
		},
	}

	return cmd
}

// doctorConfig builds the check set for the given directories, wiring the
// decode probe to the real WAV reader.
func doctorConfig(audioRoot, stateDir, exportDir string) doctor.Config {
	return doctor.Config{
		AudioRoot: audioRoot,
		StateDir:  stateDir,
		ExportDir: exportDir,
		ProbeWAV: func(path string) error {
			_, err := wavio.DecodeFile(path)
			return err
		},
	}
}
