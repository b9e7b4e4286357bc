package split

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/scribe/pkg/executor"
)

// DefaultUnitDuration is the length of one audio unit.
const DefaultUnitDuration = 3 * time.Minute

// Normalized unit format expected by the speech-to-text backend.
const (
	unitChannels   = "1"
	unitSampleRate = "16000"
	unitBitrate    = "32k"
	unitQuality    = "2"
)

// Span is the time range of one audio unit, End exclusive.
type Span struct {
	Index int
	Start time.Duration
	End   time.Duration
}

// AudioUnit is a normalized MP3 cut of the input covering Span.
type AudioUnit struct {
	Span
	Payload []byte
}

// Plan partitions [0,total) into consecutive spans of length unit; the last may be shorter.
func Plan(total, unit time.Duration) []Span {
	if total <= 0 || unit <= 0 {
		return nil
	}
	var spans []Span
	for start := time.Duration(0); start < total; start += unit {
		end := start + unit
		if end > total {
			end = total
		}
		spans = append(spans, Span{Index: len(spans), Start: start, End: end})
	}
	return spans
}

// AudioSplitter cuts audio files into normalized units with ffmpeg.
type AudioSplitter struct {
	exec    executor.Executor
	unit    time.Duration
	ffmpeg  string
	ffprobe string
	tmpDir  string
}

// AudioOption configures an AudioSplitter.
type AudioOption func(*AudioSplitter)

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpeg, ffprobe string) AudioOption {
	return func(s *AudioSplitter) {
		if ffmpeg != "" {
			s.ffmpeg = ffmpeg
		}
		if ffprobe != "" {
			s.ffprobe = ffprobe
		}
	}
}

// WithTempDir sets the parent directory for intermediate unit files.
func WithTempDir(dir string) AudioOption {
	return func(s *AudioSplitter) { s.tmpDir = dir }
}

// NewAudioSplitter creates an AudioSplitter producing units of at most unit length.
func NewAudioSplitter(exec executor.Executor, unit time.Duration, opts ...AudioOption) *AudioSplitter {
	if unit <= 0 {
		unit = DefaultUnitDuration
	}
	s := &AudioSplitter{exec: exec, unit: unit, ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Probe returns the duration of the audio file at path.
func (s *AudioSplitter) Probe(ctx context.Context, path string) (time.Duration, error) {
	out, err := s.exec.Execute(ctx, s.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: probe %s: %v", ErrUnreadableInput, filepath.Base(path), err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: no duration reported for %s", ErrUnreadableInput, filepath.Base(path))
	}
	d := time.Duration(secs * float64(time.Second)).Round(time.Millisecond)
	if d <= 0 {
		return 0, ErrEmptyInput
	}
	return d, nil
}

// Split probes the file, then cuts and normalizes every planned span. All intermediate
// files are removed before Split returns.
func (s *AudioSplitter) Split(ctx context.Context, path string) ([]AudioUnit, error) {
	total, err := s.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	spans := Plan(total, s.unit)

	dir, err := os.MkdirTemp(s.tmpDir, "scribe-units-*")
	if err != nil {
		return nil, fmt.Errorf("create unit dir: %w", err)
	}
	defer os.RemoveAll(dir)

	units := make([]AudioUnit, 0, len(spans))
	for _, span := range spans {
		payload, err := s.cut(ctx, path, dir, span)
		if err != nil {
			return nil, err
		}
		units = append(units, AudioUnit{Span: span, Payload: payload})
	}

	slog.Debug("audio split", "file", filepath.Base(path), "duration", total, "units", len(units))
	return units, nil
}

func (s *AudioSplitter) cut(ctx context.Context, path, dir string, span Span) ([]byte, error) {
	out := filepath.Join(dir, fmt.Sprintf("unit-%04d.mp3", span.Index))
	_, err := s.exec.Execute(ctx, s.ffmpeg,
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", seconds(span.Start),
		"-t", seconds(span.End-span.Start),
		"-i", path,
		"-vn",
		"-ac", unitChannels,
		"-ar", unitSampleRate,
		"-c:a", "libmp3lame",
		"-b:a", unitBitrate,
		"-q:a", unitQuality,
		out,
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: normalize unit %d: %v", ErrUnreadableInput, span.Index, err)
	}

	payload, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read unit %d: %w", span.Index, err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: unit %d encoded to zero bytes", ErrUnreadableInput, span.Index)
	}
	return payload, nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
