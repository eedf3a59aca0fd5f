package caption

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func countLit(r *Rendered) int {
	n := 0
	b := r.Image.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r.Image.RGBAAt(x, y).R > 128 {
				n++
			}
		}
	}
	return n
}

func TestRenderDefault(t *testing.T) {
	r, err := Render("English: train", DefaultOptions())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if got := r.Image.Bounds().Dx(); got != 320 {
		t.Errorf("width = %d, want 320", got)
	}
	if got := r.Image.Bounds().Dy(); got != 100 {
		t.Errorf("height = %d, want 100", got)
	}
	if r.Shrunk || r.Clipped {
		t.Errorf("short caption should not shrink or clip: %+v", r)
	}
	if r.Scale != 1.0 {
		t.Errorf("Scale = %v, want 1.0", r.Scale)
	}

	if got := r.Image.RGBAAt(0, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("corner pixel = %v, want opaque black", got)
	}
	if countLit(r) == 0 {
		t.Error("expected some foreground pixels")
	}
}

func TestRenderIsCentred(t *testing.T) {
	r, err := Render("II", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	minX, maxX := r.Image.Bounds().Dx(), -1
	minY, maxY := r.Image.Bounds().Dy(), -1
	b := r.Image.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r.Image.RGBAAt(x, y).R > 128 {
				minX, maxX = min(minX, x), max(maxX, x)
				minY, maxY = min(minY, y), max(maxY, y)
			}
		}
	}

	cx := (minX + maxX) / 2
	cy := (minY + maxY) / 2
	if cx < 150 || cx > 170 {
		t.Errorf("horizontal centre = %d, want near 160", cx)
	}
	if cy < 40 || cy > 60 {
		t.Errorf("vertical centre = %d, want near 50", cy)
	}
}

func TestRenderThicknessAddsPixels(t *testing.T) {
	thin := DefaultOptions()
	thin.Thickness = 1
	thick := DefaultOptions()
	thick.Thickness = 3

	a, err := Render("platform", thin)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Render("platform", thick)
	if err != nil {
		t.Fatal(err)
	}
	if countLit(b) <= countLit(a) {
		t.Errorf("thickness 3 lit %d pixels, thickness 1 lit %d", countLit(b), countLit(a))
	}
}

func TestRenderShrinksLongText(t *testing.T) {
	r, err := Render("English: "+strings.Repeat("x", 30), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !r.Shrunk {
		t.Error("expected long caption to shrink")
	}
	if r.Clipped {
		t.Error("caption should fit after shrinking")
	}
	if r.Scale >= 1.0 || r.Scale < 0.35 {
		t.Errorf("Scale = %v, want in [0.35, 1.0)", r.Scale)
	}
}

func TestRenderClipsAtMinScale(t *testing.T) {
	r, err := Render(strings.Repeat("w", 200), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !r.Shrunk || !r.Clipped {
		t.Errorf("expected shrink and clip, got %+v", r)
	}
	if r.Scale != 0.35 {
		t.Errorf("Scale = %v, want MinScale 0.35", r.Scale)
	}
	if r.Image.Bounds().Dx() != 320 {
		t.Error("canvas size must not change when clipping")
	}
}

func TestRenderEmptyText(t *testing.T) {
	r, err := Render("", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if countLit(r) != 0 {
		t.Error("empty caption should be all black")
	}
}

func TestRenderInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"zero width", func(o *Options) { o.Width = 0 }},
		{"negative height", func(o *Options) { o.Height = -1 }},
		{"zero scale", func(o *Options) { o.Scale = 0 }},
		{"min above scale", func(o *Options) { o.MinScale = 2 }},
		{"zero thickness", func(o *Options) { o.Thickness = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			if _, err := Render("train", opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSave(t *testing.T) {
	r, err := Render("English: 4", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "caption.png")
	if err := Save(r.Image, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("saved file is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 100 {
		t.Errorf("decoded size = %v", img.Bounds())
	}

	if err := Save(nil, path); err == nil {
		t.Error("expected error for nil image")
	}
}
