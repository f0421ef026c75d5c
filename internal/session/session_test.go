package session

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limPage/wavecut/internal/export"
	"github.com/limPage/wavecut/internal/library"
	"github.com/limPage/wavecut/internal/segment"
	"github.com/limPage/wavecut/internal/store"
	"github.com/limPage/wavecut/internal/testutil"
)

type harness struct {
	sess     *Session
	lib      *library.Library
	st       *store.Store
	exp      *export.Exporter
	root     string
	stateDir string
}

// newHarness builds a session over a three-clip library backed by real
// temp directories.
func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	root := t.TempDir()
	testutil.WriteWAV(t, filepath.Join(root, "a.wav"), 8000, 1, 2.0)
	testutil.WriteWAV(t, filepath.Join(root, "b.wav"), 8000, 1, 3.0)
	testutil.WriteWAV(t, filepath.Join(root, "c.wav"), 8000, 2, 1.0)

	lib, err := library.Open(root, log)
	require.NoError(t, err)

	stateDir := t.TempDir()
	st := store.New(stateDir, log)
	exp := export.New(t.TempDir(), log)

	return &harness{
		sess:     New(lib, st, exp, log),
		lib:      lib,
		st:       st,
		exp:      exp,
		root:     root,
		stateDir: stateDir,
	}
}

func (h *harness) key(t *testing.T, relPath string) store.FileKey {
	t.Helper()
	f, err := h.lib.Lookup(relPath)
	require.NoError(t, err)
	return f.Key
}

func TestOpen(t *testing.T) {
	t.Run("starts idle", func(t *testing.T) {
		h := newHarness(t)

		state := h.sess.State()
		assert.Equal(t, ModeIdle, state.Mode)
		assert.Empty(t, state.Segments)
		assert.NotNil(t, state.Segments)
	})

	t.Run("seeds a default segment", func(t *testing.T) {
		h := newHarness(t)

		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)

		assert.Equal(t, ModeReady, state.Mode)
		assert.Equal(t, "a.wav", state.Path)
		assert.InDelta(t, 2.0, state.Duration, 1e-9)
		assert.Equal(t, 8000, state.SampleRate)
		assert.Equal(t, 1, state.Channels)

		require.Len(t, state.Segments, 1)
		seg := state.Segments[0]
		assert.InDelta(t, 0, seg.Start, 1e-9)
		assert.InDelta(t, 1, seg.End, 1e-9)
		assert.InDelta(t, 1, seg.MaxLen, 1e-9)
		assert.Equal(t, segment.Palette[0], seg.Color)
	})

	t.Run("seeding does not persist", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.sess.Open("a.wav")
		require.NoError(t, err)

		assert.Equal(t, 0, h.st.Count(h.key(t, "a.wav")))
	})

	t.Run("unknown file from idle stays idle", func(t *testing.T) {
		h := newHarness(t)

		state, err := h.sess.Open("ghost.wav")
		assert.ErrorIs(t, err, library.ErrUnknownFile)
		assert.Equal(t, ModeIdle, state.Mode)
	})

	t.Run("failed decode leaves the previous file intact", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, os.WriteFile(filepath.Join(h.root, "bad.wav"), []byte("not audio"), 0o644))

		_, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		before := h.sess.State()

		_, err = h.sess.Open("bad.wav")
		require.Error(t, err)

		after := h.sess.State()
		assert.Equal(t, ModeReady, after.Mode)
		assert.Equal(t, "a.wav", after.Path)
		assert.Equal(t, before.Segments, after.Segments)
	})

	t.Run("switching persists the outgoing file", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		_, err = h.sess.AddSegment()
		require.NoError(t, err)

		_, err = h.sess.Open("b.wav")
		require.NoError(t, err)

		assert.Equal(t, 2, h.st.Count(h.key(t, "a.wav")))
	})

	t.Run("restores cached segments on return", func(t *testing.T) {
		h := newHarness(t)

		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		seededID := state.Segments[0].ID

		state, err = h.sess.AddSegment()
		require.NoError(t, err)
		addedID := state.Segments[1].ID

		_, err = h.sess.Open("b.wav")
		require.NoError(t, err)

		state, err = h.sess.Open("a.wav")
		require.NoError(t, err)

		require.Len(t, state.Segments, 2)
		assert.Equal(t, seededID, state.Segments[0].ID)
		assert.Equal(t, addedID, state.Segments[1].ID)
	})

	t.Run("changed file identity discards the cache", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		_, err = h.sess.AddSegment()
		require.NoError(t, err)
		_, err = h.sess.Open("b.wav")
		require.NoError(t, err)

		// Re-export the clip with a different length; size and mtime move.
		testutil.WriteWAV(t, filepath.Join(h.root, "a.wav"), 8000, 1, 2.5)

		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		assert.Len(t, state.Segments, 1)
		assert.InDelta(t, 2.5, state.Duration, 1e-9)
	})
}

func TestAddSegment(t *testing.T) {
	t.Run("walks the palette", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.sess.Open("a.wav")
		require.NoError(t, err)

		state, err := h.sess.AddSegment()
		require.NoError(t, err)
		require.Len(t, state.Segments, 2)
		assert.Equal(t, segment.Palette[1], state.Segments[1].Color)
	})

	t.Run("caps at seven and keeps state", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.sess.Open("a.wav")
		require.NoError(t, err)

		for range segment.MaxPerFile - 1 {
			_, err := h.sess.AddSegment()
			require.NoError(t, err)
		}

		state, err := h.sess.AddSegment()
		assert.ErrorIs(t, err, segment.ErrTooManySegments)
		assert.Len(t, state.Segments, segment.MaxPerFile)
	})

	t.Run("mutation persists", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.sess.Open("a.wav")
		require.NoError(t, err)

		_, err = h.sess.AddSegment()
		require.NoError(t, err)

		assert.Equal(t, 2, h.st.Count(h.key(t, "a.wav")))
	})

	t.Run("requires an open file", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.sess.AddSegment()
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestPatch(t *testing.T) {
	maxLen := func(v float64) *float64 { return &v }
	label := func(v string) *string { return &v }

	t.Run("geometry patch recomputes the window", func(t *testing.T) {
		h := newHarness(t)
		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		id := state.Segments[0].ID

		state, err = h.sess.Patch(id, segment.Patch{MaxLen: maxLen(1.5)})
		require.NoError(t, err)

		seg := state.Segments[0]
		assert.InDelta(t, 1.5, seg.MaxLen, 1e-9)
		assert.InDelta(t, 0, seg.Start, 1e-9)
		assert.InDelta(t, 1.5, seg.End, 1e-9)
	})

	t.Run("label patch", func(t *testing.T) {
		h := newHarness(t)
		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		id := state.Segments[0].ID

		state, err = h.sess.Patch(id, segment.Patch{Label: label("verse 1")})
		require.NoError(t, err)
		assert.Equal(t, "verse 1", state.Segments[0].Label)
	})

	t.Run("unknown id is a silent no-op", func(t *testing.T) {
		h := newHarness(t)
		before, err := h.sess.Open("a.wav")
		require.NoError(t, err)

		after, err := h.sess.Patch("ghost", segment.Patch{MaxLen: maxLen(3)})
		require.NoError(t, err)
		assert.Equal(t, before.Segments, after.Segments)
	})

	t.Run("requires an open file", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.sess.Patch("any", segment.Patch{})
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestDrag(t *testing.T) {
	t.Run("window within limit", func(t *testing.T) {
		h := newHarness(t)
		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		id := state.Segments[0].ID

		res, err := h.sess.Drag(id, 0.25, 1.0)
		require.NoError(t, err)

		assert.False(t, res.Corrected)
		assert.InDelta(t, 0.25, res.Start, 1e-9)
		assert.InDelta(t, 1.0, res.End, 1e-9)
	})

	t.Run("overlong window comes back corrected", func(t *testing.T) {
		h := newHarness(t)
		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		id := state.Segments[0].ID

		res, err := h.sess.Drag(id, 0.25, 1.75)
		require.NoError(t, err)

		assert.True(t, res.Corrected)
		assert.InDelta(t, 1.25, res.End, 1e-9)
	})

	t.Run("drag persists", func(t *testing.T) {
		h := newHarness(t)
		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		id := state.Segments[0].ID

		_, err = h.sess.Drag(id, 0.25, 1.0)
		require.NoError(t, err)

		cached := h.st.Restore(h.key(t, "a.wav"))
		require.Len(t, cached, 1)
		assert.InDelta(t, 0.25, cached[0].Start, 1e-9)
	})

	t.Run("unknown id echoes the request", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.sess.Open("a.wav")
		require.NoError(t, err)

		res, err := h.sess.Drag("ghost", 0.5, 0.75)
		require.NoError(t, err)

		assert.False(t, res.Corrected)
		assert.InDelta(t, 0.5, res.Start, 1e-9)
		assert.InDelta(t, 0.75, res.End, 1e-9)
	})

	t.Run("requires an open file", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.sess.Drag("any", 0, 1)
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestRemove(t *testing.T) {
	t.Run("removes and frees the color slot", func(t *testing.T) {
		h := newHarness(t)
		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		firstID := state.Segments[0].ID

		_, err = h.sess.AddSegment()
		require.NoError(t, err)

		state, err = h.sess.Remove(firstID)
		require.NoError(t, err)
		require.Len(t, state.Segments, 1)

		state, err = h.sess.AddSegment()
		require.NoError(t, err)
		assert.Equal(t, segment.Palette[0], state.Segments[1].Color)
	})

	t.Run("unknown id is a silent no-op", func(t *testing.T) {
		h := newHarness(t)
		before, err := h.sess.Open("a.wav")
		require.NoError(t, err)

		after, err := h.sess.Remove("ghost")
		require.NoError(t, err)
		assert.Equal(t, before.Segments, after.Segments)
	})
}

func TestExportSegment(t *testing.T) {
	t.Run("renders the sliced region", func(t *testing.T) {
		h := newHarness(t)
		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		id := state.Segments[0].ID

		data, name, err := h.sess.ExportSegment(id)
		require.NoError(t, err)

		assert.Equal(t, "a_seg.wav", name)
		testutil.AssertValidWAV(t, data, 8000, 1)
		testutil.AssertWAVDuration(t, data, 0.99, 1.01)
	})

	t.Run("uses the segment label in the name", func(t *testing.T) {
		h := newHarness(t)
		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		id := state.Segments[0].ID

		lbl := "verse 1"
		_, err = h.sess.Patch(id, segment.Patch{Label: &lbl})
		require.NoError(t, err)

		_, name, err := h.sess.ExportSegment(id)
		require.NoError(t, err)
		assert.Equal(t, "a_verse_1.wav", name)
	})

	t.Run("unknown id", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.sess.Open("a.wav")
		require.NoError(t, err)

		_, _, err = h.sess.ExportSegment("ghost")
		assert.ErrorIs(t, err, ErrUnknownSegment)
	})

	t.Run("requires an open file", func(t *testing.T) {
		h := newHarness(t)

		_, _, err := h.sess.ExportSegment("any")
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestExportAll(t *testing.T) {
	t.Run("writes every segment to the export dir", func(t *testing.T) {
		h := newHarness(t)
		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)

		lbl := "intro"
		_, err = h.sess.Patch(state.Segments[0].ID, segment.Patch{Label: &lbl})
		require.NoError(t, err)
		_, err = h.sess.AddSegment()
		require.NoError(t, err)

		names, err := h.sess.ExportAll()
		require.NoError(t, err)
		require.Equal(t, []string{"a_intro.wav", "a_seg.wav"}, names)

		for _, name := range names {
			data, err := os.ReadFile(filepath.Join(h.exp.Dir(), name))
			require.NoError(t, err)
			testutil.AssertValidWAV(t, data, 8000, 1)
		}
	})

	t.Run("no segments is a no-op", func(t *testing.T) {
		h := newHarness(t)
		state, err := h.sess.Open("a.wav")
		require.NoError(t, err)

		_, err = h.sess.Remove(state.Segments[0].ID)
		require.NoError(t, err)

		names, err := h.sess.ExportAll()
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("requires an open file", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.sess.ExportAll()
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestComplete(t *testing.T) {
	t.Run("purges the cache and advances", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		_, err = h.sess.AddSegment()
		require.NoError(t, err)
		aKey := h.key(t, "a.wav")

		state, err := h.sess.Complete()
		require.NoError(t, err)

		assert.Equal(t, ModeReady, state.Mode)
		assert.Equal(t, "b.wav", state.Path)
		assert.Len(t, state.Segments, 1)

		assert.Nil(t, h.st.Restore(aKey))
		assert.Nil(t, store.New(h.stateDir, nil).Restore(aKey))
	})

	t.Run("last file returns to idle", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.sess.Open("c.wav")
		require.NoError(t, err)

		state, err := h.sess.Complete()
		require.NoError(t, err)
		assert.Equal(t, ModeIdle, state.Mode)
		assert.Empty(t, state.Path)
	})

	t.Run("requires an open file", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.sess.Complete()
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestClose(t *testing.T) {
	t.Run("persists on teardown", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.sess.Open("a.wav")
		require.NoError(t, err)
		aKey := h.key(t, "a.wav")

		// The seeded default is not durable until teardown.
		require.Equal(t, 0, h.st.Count(aKey))

		h.sess.Close()

		assert.Equal(t, 1, h.st.Count(aKey))
		assert.Equal(t, ModeIdle, h.sess.State().Mode)
	})

	t.Run("idle close is harmless", func(t *testing.T) {
		h := newHarness(t)
		h.sess.Close()
		assert.Equal(t, ModeIdle, h.sess.State().Mode)
	})
}
