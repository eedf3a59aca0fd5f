package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"isl-announcer/internal/logging"
)

// Output layout. The sign occupies the left panel and the caption sits
// vertically centred in the right panel.
const (
	CanvasWidth   = 960
	CanvasHeight  = 480
	PanelWidth    = 640
	PanelHeight   = 480
	CaptionWidth  = 320
	CaptionHeight = 100
	FrameRate     = 25
)

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Transcoder wraps the ffmpeg and ffprobe invocations used to build
// announcement videos.
type Transcoder struct {
	threads   int
	run       Runner
	processes map[int]*exec.Cmd
	processMu sync.Mutex
	nextID    int
}

// VideoInfo contains information about a media file.
type VideoInfo struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Codec    string  `json:"codec"`
	HasAudio bool    `json:"hasAudio"`
}

// Segment describes one side-by-side clip to encode.
type Segment struct {
	Media    string
	IsImage  bool
	Caption  string
	Duration float64
	Output   string
}

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithRunner replaces command execution, mainly for tests.
func WithRunner(r Runner) Option {
	return func(t *Transcoder) {
		t.run = r
	}
}

// New creates a Transcoder. threads is passed to the encoder; 0 lets ffmpeg decide.
func New(threads int, opts ...Option) *Transcoder {
	t := &Transcoder{
		threads:   threads,
		processes: make(map[int]*exec.Cmd),
	}
	t.run = t.execRun
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Threads returns the configured encoder thread count.
func (t *Transcoder) Threads() int {
	return t.threads
}

func (t *Transcoder) execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	t.processMu.Lock()
	t.nextID++
	id := t.nextID
	t.processes[id] = cmd
	t.processMu.Unlock()

	defer func() {
		t.processMu.Lock()
		delete(t.processes, id)
		t.processMu.Unlock()
	}()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Debug("%s stderr: %s", name, stderr.String())
		return nil, fmt.Errorf("%s error: %w - %s", name, err, lastLine(stderr.String()))
	}

	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe retrieves duration, codec and dimensions of a media file.
func (t *Transcoder) Probe(ctx context.Context, filePath string) (*VideoInfo, error) {
	out, err := t.run(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filePath, err)
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output for %s: %w", filePath, err)
	}

	info := &VideoInfo{}
	info.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)

	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if info.Codec != "" {
				continue
			}
			info.Codec = s.CodecName
			info.Width = s.Width
			info.Height = s.Height
			if info.Duration <= 0 {
				info.Duration, _ = strconv.ParseFloat(s.Duration, 64)
			}
		case "audio":
			info.HasAudio = true
		}
	}

	return info, nil
}

// SegmentArgs builds the ffmpeg arguments for one segment. The media is fitted
// and padded into the left panel, the caption overlaid on the right, and any
// audio in the source clip is dropped.
func (t *Transcoder) SegmentArgs(seg Segment) []string {
	dur := formatSeconds(seg.Duration)

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if seg.IsImage {
		args = append(args, "-loop", "1", "-framerate", strconv.Itoa(FrameRate), "-t", dur)
	}
	args = append(args, "-i", seg.Media)
	args = append(args, "-loop", "1", "-framerate", strconv.Itoa(FrameRate), "-t", dur, "-i", seg.Caption)

	filter := fmt.Sprintf(
		"[0:v]scale=%d:%d:force_original_aspect_ratio=decrease,"+
			"pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1,fps=%d[m];"+
			"[m]pad=%d:%d:0:0:color=black[bg];"+
			"[bg][1:v]overlay=%d:%d:shortest=1,format=yuv420p[v]",
		PanelWidth, PanelHeight,
		PanelWidth, PanelHeight, FrameRate,
		CanvasWidth, CanvasHeight,
		PanelWidth, (CanvasHeight-CaptionHeight)/2,
	)

	args = append(args,
		"-filter_complex", filter,
		"-map", "[v]",
		"-an",
		"-t", dur,
		"-r", strconv.Itoa(FrameRate),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
	)
	if t.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(t.threads))
	}
	return append(args, seg.Output)
}

// EncodeSegment renders one side-by-side segment without audio.
func (t *Transcoder) EncodeSegment(ctx context.Context, seg Segment) error {
	if seg.Duration <= 0 {
		return fmt.Errorf("segment %s has no duration", seg.Media)
	}
	if _, err := t.run(ctx, "ffmpeg", t.SegmentArgs(seg)...); err != nil {
		return fmt.Errorf("encode segment %s: %w", seg.Media, err)
	}
	return nil
}

// ConcatList renders a concat demuxer list for paths.
func ConcatList(paths []string) string {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// ConcatArgs builds the arguments that join segments listed in listPath
// without re-encoding.
func ConcatArgs(listPath, output string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		output,
	}
}

// Concat joins already encoded segments in order into output.
func (t *Transcoder) Concat(ctx context.Context, segments []string, listPath, output string) error {
	if len(segments) == 0 {
		return errors.New("no segments to concatenate")
	}
	if err := os.WriteFile(listPath, []byte(ConcatList(segments)), 0o644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	if _, err := t.run(ctx, "ffmpeg", ConcatArgs(listPath, output)...); err != nil {
		return fmt.Errorf("concat %d segments: %w", len(segments), err)
	}
	return nil
}

// MuxAudioArgs builds the arguments that attach narration to a silent video.
// The video stream is copied; the audio is padded with silence and cut at the
// end of the video, so the result always has the video's duration.
func MuxAudioArgs(video, audio, output string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-af", "apad",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-shortest",
		output,
	}
}

// MuxAudio attaches the narration track to video.
func (t *Transcoder) MuxAudio(ctx context.Context, video, audio, output string) error {
	if _, err := t.run(ctx, "ffmpeg", MuxAudioArgs(video, audio, output)...); err != nil {
		return fmt.Errorf("mux audio: %w", err)
	}
	return nil
}

// FinalizeArgs builds the arguments that write the deliverable MP4 with the
// index moved to the front for progressive playback.
func FinalizeArgs(input, output string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", input,
		"-map", "0",
		"-c", "copy",
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	}
}

// Finalize writes input to output as a streamable MP4.
func (t *Transcoder) Finalize(ctx context.Context, input, output string) error {
	if _, err := t.run(ctx, "ffmpeg", FinalizeArgs(input, output)...); err != nil {
		return fmt.Errorf("finalize %s: %w", output, err)
	}
	return nil
}

// ConvertToWAV converts an uploaded recording to 16 kHz mono 16-bit PCM.
func (t *Transcoder) ConvertToWAV(ctx context.Context, input, output string) error {
	_, err := t.run(ctx, "ffmpeg",
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		output,
	)
	if err != nil {
		return fmt.Errorf("convert %s to wav: %w", input, err)
	}
	return nil
}

// ExtractFrame returns a PNG of the frame at offset seconds into a video.
func (t *Transcoder) ExtractFrame(ctx context.Context, filePath string, offset float64) ([]byte, error) {
	out, err := t.run(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(offset),
		"-i", filePath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	if err != nil {
		return nil, fmt.Errorf("extract frame from %s: %w", filePath, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", filePath)
	}
	return out, nil
}

// Cleanup stops all running ffmpeg processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for id, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing ffmpeg process %d (pid %d)", id, cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill ffmpeg process %d: %v", id, err)
			}
		}
	}
}

// Available reports whether ffmpeg and ffprobe are on PATH.
func Available() bool {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return false
	}
	_, err := exec.LookPath("ffprobe")
	return err == nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
