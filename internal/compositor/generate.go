package compositor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"isl-announcer/internal/caption"
	"isl-announcer/internal/catalog"
	"isl-announcer/internal/logging"
	"isl-announcer/internal/metrics"
	"isl-announcer/internal/transcoder"
	"isl-announcer/internal/transcript"
)

// Outcome summarizes a generation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// Encoder runs the ffmpeg steps of a generation. *transcoder.Transcoder
// satisfies it.
type Encoder interface {
	Probe(ctx context.Context, path string) (*transcoder.VideoInfo, error)
	EncodeSegment(ctx context.Context, seg transcoder.Segment) error
	Concat(ctx context.Context, segments []string, listPath, output string) error
	MuxAudio(ctx context.Context, video, audio, output string) error
	Finalize(ctx context.Context, input, output string) error
}

// Config holds generator settings.
type Config struct {
	MediaDir      string
	WorkDir       string
	OutputDir     string
	CaptionPrefix string
	// ImageSeconds is how long a still image is shown.
	ImageSeconds float64
	Caption      caption.Options
	// Gate, when set, is waited on before each segment is rendered.
	Gate Gate
}

// Gate holds back segment renders, e.g. under memory pressure.
type Gate interface {
	Wait(ctx context.Context) error
}

// Progress is reported on every stage transition and after each segment.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Segment int    `json:"segment,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}

// Request is one generation job.
type Request struct {
	ID         string
	Transcript string
	AudioPath  string
	// OutputPath defaults to <OutputDir>/<ID>.mp4.
	OutputPath string
	Progress   func(Progress)
}

// SegmentResult is a segment that made it into the output.
type SegmentResult struct {
	PlannedSegment
	Duration float64 `json:"duration"`
}

// Result is the typed outcome of Generate.
type Result struct {
	Outcome    Outcome         `json:"outcome"`
	Stage      Stage           `json:"stage"`
	Segments   []SegmentResult `json:"segments"`
	Warnings   []Warning       `json:"warnings"`
	OutputPath string          `json:"outputPath,omitempty"`
	// Duration of the output video in seconds.
	Duration float64       `json:"duration"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Generator turns transcripts into announcement videos, one at a time.
type Generator struct {
	cfg Config
	enc Encoder
	mu  sync.Mutex
}

// NewGenerator creates a Generator. Zero-valued config fields get defaults.
func NewGenerator(cfg Config, enc Encoder) *Generator {
	if cfg.ImageSeconds <= 0 {
		cfg.ImageSeconds = 2
	}
	if cfg.Caption.Width == 0 {
		cfg.Caption = caption.DefaultOptions()
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Generator{cfg: cfg, enc: enc}
}

// Config returns the generator configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Preview plans text against the current library without encoding.
func (g *Generator) Preview(text string) (*Timeline, error) {
	cat, err := catalog.Build(g.cfg.MediaDir)
	if err != nil {
		return nil, &Error{Stage: StageCatalogBuilt, Err: err}
	}
	return Plan(transcript.Tokenize(text), catalog.NewResolver(cat), PlanOptions{CaptionPrefix: g.cfg.CaptionPrefix}), nil
}

type run struct {
	g        *Generator
	ctx      context.Context
	req      Request
	res      *Result
	resolver *catalog.Resolver
	workDir  string
	total    int
}

func (r *run) enter(stage Stage) {
	r.res.Stage = stage
	logging.Debug("Generate %s: stage %s", r.req.ID, stage)
	r.emit(Progress{Stage: stage})
}

func (r *run) emit(p Progress) {
	if r.req.Progress != nil {
		r.req.Progress(p)
	}
}

func (r *run) fail(stage Stage, err error) (*Result, error) {
	r.res.Outcome = OutcomeFailed
	r.res.Stage = stage
	metrics.GenerationFailures.WithLabelValues(string(stage)).Inc()
	logging.Error("Generate %s failed at %s: %v", r.req.ID, stage, err)
	r.emit(Progress{Stage: StageFailed, Message: err.Error()})
	return r.res, &Error{Stage: stage, Err: err}
}

func (r *run) warn(w Warning) {
	r.res.Warnings = append(r.res.Warnings, w)
	metrics.SegmentWarningsTotal.WithLabelValues(string(w.Kind)).Inc()
	logging.Warn("Generate %s: %s", r.req.ID, w.Message)
}

// Generate runs the full pipeline for req. Fatal failures return a Result
// with OutcomeFailed and an *Error. No output file is left behind on failure.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	start := time.Now()
	metrics.GenerationInProgress.Set(1)
	defer metrics.GenerationInProgress.Set(0)

	r := &run{
		g:   g,
		ctx: ctx,
		req: req,
		res: &Result{Stage: StageIdle, Segments: []SegmentResult{}, Warnings: []Warning{}},
	}

	res, err := r.execute()
	res.Elapsed = time.Since(start)

	metrics.GenerationsTotal.WithLabelValues(string(res.Outcome)).Inc()
	metrics.GenerationDuration.Observe(res.Elapsed.Seconds())
	if err == nil {
		metrics.OutputVideoSeconds.Observe(res.Duration)
		logging.Info("Generate %s: %s, %d segments, %d warnings, %.1fs video in %v",
			req.ID, res.Outcome, len(res.Segments), len(res.Warnings), res.Duration, res.Elapsed)
	}
	return res, err
}

func (r *run) execute() (*Result, error) {
	cfg := r.g.cfg

	cat, err := catalog.Build(cfg.MediaDir)
	if err != nil {
		return r.fail(StageCatalogBuilt, err)
	}
	r.resolver = catalog.NewResolver(cat)
	r.enter(StageCatalogBuilt)

	tl := Plan(transcript.Tokenize(r.req.Transcript), r.resolver, PlanOptions{CaptionPrefix: cfg.CaptionPrefix})
	for _, w := range tl.Warnings {
		r.warn(w)
	}
	if len(tl.Segments) == 0 {
		return r.fail(StageResolving, ErrNoSegments)
	}
	r.total = len(tl.Segments)

	if info, err := os.Stat(r.req.AudioPath); err != nil || info.IsDir() {
		return r.fail(StageMuxingAudio, fmt.Errorf("%w: %s", ErrNoAudio, r.req.AudioPath))
	}

	unlock, err := Lock(r.ctx, cfg.WorkDir)
	if err != nil {
		return r.fail(StageResolving, err)
	}
	defer func() {
		if err := unlock(); err != nil {
			logging.Warn("failed to release generation lock: %v", err)
		}
	}()

	workDir, err := os.MkdirTemp(cfg.WorkDir, "generate-*")
	if err != nil {
		return r.fail(StageResolving, fmt.Errorf("failed to create work directory: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logging.Warn("failed to remove work directory %s: %v", workDir, err)
		}
	}()
	// concat list entries must not depend on the ffmpeg working directory
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}
	r.workDir = workDir

	r.enter(StageResolving)
	var paths []string
	for i, seg := range tl.Segments {
		if err := r.ctx.Err(); err != nil {
			return r.fail(StageResolving, err)
		}
		if cfg.Gate != nil {
			if err := cfg.Gate.Wait(r.ctx); err != nil {
				return r.fail(StageResolving, err)
			}
		}
		out, ok := r.renderWithFallback(i, seg)
		if !ok {
			continue
		}
		paths = append(paths, out)
		r.emit(Progress{Stage: StageResolving, Segment: i + 1, Total: r.total})
	}
	if err := r.ctx.Err(); err != nil {
		return r.fail(StageResolving, err)
	}
	if len(paths) == 0 {
		return r.fail(StageResolving, ErrNoSegments)
	}

	r.enter(StageConcatenating)
	silent := filepath.Join(workDir, "timeline.mp4")
	if err := r.g.enc.Concat(r.ctx, paths, filepath.Join(workDir, "segments.txt"), silent); err != nil {
		return r.fail(StageConcatenating, encodeErr(r.ctx, err))
	}

	r.enter(StageMuxingAudio)
	muxed := filepath.Join(workDir, "muxed.mp4")
	if err := r.g.enc.MuxAudio(r.ctx, silent, r.req.AudioPath, muxed); err != nil {
		return r.fail(StageMuxingAudio, encodeErr(r.ctx, err))
	}

	r.enter(StageEncoding)
	output, err := r.outputPath()
	if err != nil {
		return r.fail(StageEncoding, fmt.Errorf("%w: %w", ErrEncode, err))
	}
	tmp := output + ".partial"
	if err := r.g.enc.Finalize(r.ctx, muxed, tmp); err != nil {
		removeQuietly(tmp)
		return r.fail(StageEncoding, encodeErr(r.ctx, err))
	}
	if err := os.Rename(tmp, output); err != nil {
		removeQuietly(tmp)
		return r.fail(StageEncoding, fmt.Errorf("%w: %w", ErrEncode, err))
	}

	for _, s := range r.res.Segments {
		r.res.Duration += s.Duration
	}
	r.res.OutputPath = output
	r.res.Outcome = OutcomeSuccess
	if len(r.res.Warnings) > 0 {
		r.res.Outcome = OutcomePartial
	}
	r.enter(StageDone)
	return r.res, nil
}

func (r *run) outputPath() (string, error) {
	output := r.req.OutputPath
	if output == "" {
		if r.req.ID == "" {
			return "", errors.New("request has neither an ID nor an output path")
		}
		output = filepath.Join(r.g.cfg.OutputDir, r.req.ID+".mp4")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return output, nil
}

// renderWithFallback encodes seg. A matched asset that fails is replaced by
// the default clip; a default that fails is omitted.
func (r *run) renderWithFallback(i int, seg PlannedSegment) (string, bool) {
	out, dur, err := r.render(i, seg)
	if err == nil {
		r.accept(seg, dur)
		return out, true
	}
	if r.ctx.Err() != nil {
		return "", false
	}

	if seg.Source == SourceMatched {
		r.warn(Warning{
			Kind:       WarningRenderFailed,
			TokenIndex: seg.TokenIndex,
			Word:       seg.Word,
			Part:       seg.Part,
			Message:    fmt.Sprintf("failed to render %s: %v", seg.Asset.Name, err),
		})
		if def, ok := r.resolver.Default(); ok {
			seg.Asset = def
			seg.Source = SourceFallback
			out, dur, err = r.render(i, seg)
			if err == nil {
				r.accept(seg, dur)
				return out, true
			}
		}
	}

	r.warn(Warning{
		Kind:       WarningOmitted,
		TokenIndex: seg.TokenIndex,
		Word:       seg.Word,
		Part:       seg.Part,
		Message:    fmt.Sprintf("omitting %q: %v", seg.Part, err),
	})
	return "", false
}

func (r *run) accept(seg PlannedSegment, dur float64) {
	r.res.Segments = append(r.res.Segments, SegmentResult{PlannedSegment: seg, Duration: dur})
	metrics.SegmentsTotal.WithLabelValues(string(seg.Source)).Inc()
}

func (r *run) render(i int, seg PlannedSegment) (string, float64, error) {
	cfg := r.g.cfg

	rendered, err := caption.Render(seg.Caption, cfg.Caption)
	if err != nil {
		return "", 0, err
	}
	if rendered.Clipped {
		logging.Debug("Generate %s: caption %q clipped", r.req.ID, seg.Caption)
	}
	capPath := filepath.Join(r.workDir, fmt.Sprintf("caption-%03d.png", i))
	if err := caption.Save(rendered.Image, capPath); err != nil {
		return "", 0, err
	}

	kind := "image"
	dur := cfg.ImageSeconds
	if seg.Asset.IsVideo() {
		kind = "video"
		info, err := r.g.enc.Probe(r.ctx, seg.Asset.Path)
		if err != nil {
			return "", 0, err
		}
		if info.Duration <= 0 {
			return "", 0, fmt.Errorf("%s has no duration", seg.Asset.Name)
		}
		dur = info.Duration
	}

	out := filepath.Join(r.workDir, fmt.Sprintf("segment-%03d.mp4", i))
	start := time.Now()
	err = r.g.enc.EncodeSegment(r.ctx, transcoder.Segment{
		Media:    seg.Asset.Path,
		IsImage:  !seg.Asset.IsVideo(),
		Caption:  capPath,
		Duration: dur,
		Output:   out,
	})
	metrics.SegmentEncodeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", 0, err
	}
	return out, dur, nil
}

func encodeErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %w", ErrEncode, err)
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove %s: %v", path, err)
	}
}
