package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/limPage/wavecut/internal/library"
	"github.com/limPage/wavecut/internal/segment"
	"github.com/limPage/wavecut/internal/session"
	"github.com/limPage/wavecut/internal/store"
	"github.com/limPage/wavecut/internal/wavio"
	"github.com/spf13/cobra"
)

func newPreviewCmd() *cobra.Command {
	var (
		segmentRef string
		start      float64
		end        float64
	)

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Play a library file, a cached segment, or an explicit range",
		Long: `Preview plays audio on the default output device. By default the whole
file is played. --segment picks one cached segment, addressed by its ID
or its position in the inspect listing. --start/--end play an explicit
range in seconds; a missing --end means "to the end of the file".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rangeGiven := cmd.Flags().Changed("start") || cmd.Flags().Changed("end")
			if segmentRef != "" && rangeGiven {
				return errors.New("pass --segment or --start/--end, not both")
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

			f, err := lib.Lookup(args[0])
			if err != nil {
				return err
			}

			buf, err := wavio.DecodeFile(lib.Abs(f))
			if err != nil {
				return err
			}

			switch {
			case segmentRef != "":
				st := store.New(cfg.Paths.StateDir, log)
				seg, ok := resolveSegment(st.Restore(f.Key), segmentRef)
				if !ok {
					return fmt.Errorf("%w: %s", session.ErrUnknownSegment, segmentRef)
				}
				buf = wavio.Slice(buf, seg.Start, seg.End)
			case rangeGiven:
				if !cmd.Flags().Changed("end") {
					end = buf.Duration()
				}
				buf = wavio.Slice(buf, start, end)
			}

			return playBuffer(cmd.Context(), buf)
		},
	}

	cmd.Flags().StringVar(&segmentRef, "segment", "", "Play one cached segment (ID or 1-based position)")
	cmd.Flags().Float64Var(&start, "start", 0, "Play from this offset in seconds")
	cmd.Flags().Float64Var(&end, "end", 0, "Stop at this offset in seconds")

	return cmd
}

// resolveSegment finds a cached segment by ID, falling back to a 1-based
// list position when ref parses as an integer.
func resolveSegment(segs []segment.Segment, ref string) (segment.Segment, bool) {
	for _, s := range segs {
		if s.ID == ref {
			return s, true
		}
	}

	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(segs) {
		return segs[n-1], true
	}

	return segment.Segment{}, false
}

// playBuffer blocks until playback finishes or ctx is cancelled.
func playBuffer(ctx context.Context, buf *wavio.Buffer) error {
	if buf.Frames() == 0 {
		return fmt.Errorf("nothing to play")
	}

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   buf.SampleRate(),
		ChannelCount: buf.NumChannels(),
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	<-ready

	player := otoCtx.NewPlayer(bytes.NewReader(wavio.PCM16Bytes(buf)))
	player.Play()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return player.Close()
		case <-time.After(10 * time.Millisecond):
		}
	}

	return player.Close()
}
