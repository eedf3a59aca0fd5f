package caption

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// BaseSize is the em size in pixels at Scale 1.0.
	BaseSize = 24.0
	// Margin is kept free on the left and right before text is shrunk.
	Margin = 4
)

// Options control caption rasterization.
type Options struct {
	Width     int
	Height    int
	Scale     float64
	MinScale  float64
	Thickness int
	// Foreground is the text colour; the background is always black.
	Foreground color.Color
}

// DefaultOptions returns a 320x100 white-on-black caption at scale 1.0.
func DefaultOptions() Options {
	return Options{
		Width:      320,
		Height:     100,
		Scale:      1.0,
		MinScale:   0.35,
		Thickness:  2,
		Foreground: color.White,
	}
}

// Rendered is a rasterized caption.
type Rendered struct {
	Image *image.RGBA
	// Scale actually used, after any shrinking.
	Scale float64
	// Shrunk is set when the text was scaled down to fit.
	Shrunk bool
	// Clipped is set when the text overflows the canvas even at MinScale.
	Clipped bool
}

var (
	fontOnce sync.Once
	monoFont *opentype.Font
	fontErr  error
)

func loadFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		monoFont, fontErr = opentype.Parse(gomono.TTF)
	})
	return monoFont, fontErr
}

func (o Options) validate() error {
	switch {
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("invalid caption size %dx%d", o.Width, o.Height)
	case o.Scale <= 0:
		return fmt.Errorf("invalid caption scale %v", o.Scale)
	case o.MinScale <= 0 || o.MinScale > o.Scale:
		return fmt.Errorf("invalid minimum caption scale %v", o.MinScale)
	case o.Thickness <= 0:
		return fmt.Errorf("invalid caption thickness %d", o.Thickness)
	}
	return nil
}

// Render draws text centred on a black canvas. Text wider than the canvas
// (less Margin on each side) is shrunk down to MinScale, then clipped.
func Render(text string, opts Options) (*Rendered, error) {
	if opts.Foreground == nil {
		opts.Foreground = color.White
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("failed to parse caption font: %w", err)
	}

	available := opts.Width - 2*Margin
	scale := opts.Scale

	face, width, err := measure(f, text, scale, opts.Thickness)
	if err != nil {
		return nil, err
	}

	result := &Rendered{}
	if width > available && available > 0 {
		result.Shrunk = true
		scale = max(opts.MinScale, scale*float64(available)/float64(width))
		for {
			face.Close()
			face, width, err = measure(f, text, scale, opts.Thickness)
			if err != nil {
				return nil, err
			}
			// hinting makes widths slightly non-linear in scale
			if width <= available || scale <= opts.MinScale {
				break
			}
			scale = max(opts.MinScale, scale*0.95)
		}
		result.Clipped = width > available
	}
	defer face.Close()

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	m := face.Metrics()
	capHeight := m.CapHeight.Ceil()
	if capHeight <= 0 {
		capHeight = m.Ascent.Ceil()
	}
	x := (opts.Width - width) / 2
	y := (opts.Height + capHeight) / 2

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(opts.Foreground),
		Face: face,
	}
	for dx := 0; dx < opts.Thickness; dx++ {
		for dy := 0; dy < opts.Thickness; dy++ {
			d.Dot = fixed.P(x+dx, y+dy)
			d.DrawString(text)
		}
	}

	result.Image = img
	result.Scale = scale
	return result, nil
}

func measure(f *opentype.Font, text string, scale float64, thickness int) (font.Face, int, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    BaseSize * scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create caption face: %w", err)
	}
	return face, font.MeasureString(face, text).Ceil() + thickness - 1, nil
}

// Save writes img to path; the format follows the extension.
func Save(img image.Image, path string) error {
	if img == nil {
		return errors.New("nil caption image")
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save caption %s: %w", path, err)
	}
	return nil
}
