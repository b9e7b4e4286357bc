package split_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/scribe/internal/split"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor answers ffprobe with a fixed duration and makes ffmpeg write a small file
// to its output argument.
type fakeExecutor struct {
	mu       sync.Mutex
	duration string
	probeErr error
	cutErr   error
	calls    [][]string
}

func (f *fakeExecutor) Execute(_ context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	switch name {
	case "ffprobe":
		if f.probeErr != nil {
			return "", f.probeErr
		}
		return f.duration + "\n", nil
	case "ffmpeg":
		if f.cutErr != nil {
			return "", f.cutErr
		}
		out := args[len(args)-1]
		return "", os.WriteFile(out, []byte("mp3:"+argAfter(args, "-ss")), 0o600)
	}
	return "", errors.New("unexpected command " + name)
}

func (f *fakeExecutor) ffmpegCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.calls {
		if c[0] == "ffmpeg" {
			out = append(out, c[1:])
		}
	}
	return out
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestPlan_SevenMinutesByThree(t *testing.T) {
	spans := split.Plan(7*time.Minute, 3*time.Minute)
	require.Len(t, spans, 3)
	assert.Equal(t, split.Span{Index: 0, Start: 0, End: 3 * time.Minute}, spans[0])
	assert.Equal(t, split.Span{Index: 1, Start: 3 * time.Minute, End: 6 * time.Minute}, spans[1])
	assert.Equal(t, split.Span{Index: 2, Start: 6 * time.Minute, End: 7 * time.Minute}, spans[2])
}

func TestPlan_ExactMultiple(t *testing.T) {
	spans := split.Plan(6*time.Minute, 3*time.Minute)
	require.Len(t, spans, 2)
	assert.Equal(t, 6*time.Minute, spans[1].End)
}

func TestPlan_ShorterThanUnit(t *testing.T) {
	spans := split.Plan(40*time.Second, 3*time.Minute)
	require.Len(t, spans, 1)
	assert.Equal(t, 40*time.Second, spans[0].End)
}

func TestPlan_CoversInputWithoutGaps(t *testing.T) {
	for _, total := range []time.Duration{time.Second, 179 * time.Second, 181 * time.Second, 95*time.Minute + 7*time.Second} {
		spans := split.Plan(total, split.DefaultUnitDuration)
		require.NotEmpty(t, spans)
		var cursor time.Duration
		for i, s := range spans {
			assert.Equal(t, i, s.Index)
			assert.Equal(t, cursor, s.Start)
			assert.LessOrEqual(t, s.End-s.Start, split.DefaultUnitDuration)
			cursor = s.End
		}
		assert.Equal(t, total, cursor)
	}
}

func TestPlan_ZeroDuration(t *testing.T) {
	assert.Nil(t, split.Plan(0, time.Minute))
}

func TestProbe_ParsesDuration(t *testing.T) {
	s := split.NewAudioSplitter(&fakeExecutor{duration: "420.250000"}, 0)
	d, err := s.Probe(context.Background(), "/tmp/in.m4a")
	require.NoError(t, err)
	assert.Equal(t, 420*time.Second+250*time.Millisecond, d)
}

func TestProbe_Unreadable(t *testing.T) {
	s := split.NewAudioSplitter(&fakeExecutor{probeErr: errors.New("Invalid data found")}, 0)
	_, err := s.Probe(context.Background(), "/tmp/in.m4a")
	assert.ErrorIs(t, err, split.ErrUnreadableInput)

	s = split.NewAudioSplitter(&fakeExecutor{duration: "N/A"}, 0)
	_, err = s.Probe(context.Background(), "/tmp/in.m4a")
	assert.ErrorIs(t, err, split.ErrUnreadableInput)
}

func TestProbe_Empty(t *testing.T) {
	s := split.NewAudioSplitter(&fakeExecutor{duration: "0.000000"}, 0)
	_, err := s.Probe(context.Background(), "/tmp/in.m4a")
	assert.ErrorIs(t, err, split.ErrEmptyInput)
}

func TestSplit_NormalizesEveryUnit(t *testing.T) {
	fx := &fakeExecutor{duration: "420"}
	s := split.NewAudioSplitter(fx, 3*time.Minute, split.WithTempDir(t.TempDir()))

	units, err := s.Split(context.Background(), "/tmp/in.m4a")
	require.NoError(t, err)
	require.Len(t, units, 3)

	assert.Equal(t, "mp3:0.000", string(units[0].Payload))
	assert.Equal(t, "mp3:180.000", string(units[1].Payload))
	assert.Equal(t, "mp3:360.000", string(units[2].Payload))
	assert.Equal(t, 7*time.Minute, units[2].End)

	calls := fx.ffmpegCalls()
	require.Len(t, calls, 3)
	joined := strings.Join(calls[2], " ")
	assert.Contains(t, joined, "-ac 1")
	assert.Contains(t, joined, "-ar 16000")
	assert.Contains(t, joined, "-b:a 32k")
	assert.Equal(t, "60.000", argAfter(calls[2], "-t"))
}

func TestSplit_RemovesIntermediateFiles(t *testing.T) {
	dir := t.TempDir()
	s := split.NewAudioSplitter(&fakeExecutor{duration: "200"}, time.Minute, split.WithTempDir(dir))

	_, err := s.Split(context.Background(), "/tmp/in.m4a")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSplit_CutFailureIsUnreadable(t *testing.T) {
	s := split.NewAudioSplitter(&fakeExecutor{duration: "200", cutErr: errors.New("decode error")}, time.Minute,
		split.WithTempDir(t.TempDir()))
	_, err := s.Split(context.Background(), "/tmp/in.m4a")
	assert.ErrorIs(t, err, split.ErrUnreadableInput)
}

func TestSplit_CustomBinaries(t *testing.T) {
	fx := &fakeExecutor{duration: "10"}
	s := split.NewAudioSplitter(fx, time.Minute, split.WithBinaries("ffmpeg", "ffprobe"), split.WithTempDir(t.TempDir()))
	units, err := s.Split(context.Background(), "/tmp/in.wav")
	require.NoError(t, err)
	assert.Len(t, units, 1)
}
