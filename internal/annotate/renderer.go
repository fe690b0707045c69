// Package annotate draws detection boxes and labels onto raster images.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/lookout-vision/lookout/internal/detection"
	"github.com/lookout-vision/lookout/internal/imageio"
)

// DefaultColors maps common class names to box colors. Passed explicitly as
// configuration so callers can run different schemes side by side.
func DefaultColors() map[string]color.RGBA {
	return map[string]color.RGBA{
		"person":  {R: 255, G: 59, B: 48, A: 255},
		"face":    {R: 255, G: 149, B: 0, A: 255},
		"car":     {R: 0, G: 122, B: 255, A: 255},
		"truck":   {R: 88, G: 86, B: 214, A: 255},
		"bicycle": {R: 52, G: 199, B: 89, A: 255},
		"dog":     {R: 255, G: 204, B: 0, A: 255},
		"cat":     {R: 175, G: 82, B: 222, A: 255},
	}
}

// Options controls rendering. Layout and color selection are fully
// deterministic: the same image and detections always produce identical
// output bytes.
type Options struct {
	// MinConfidence hides detections below this threshold.
	MinConfidence float64
	// ShowConfidence appends the percentage to each label.
	ShowConfidence bool
	// Colors maps class names to box colors; unknown classes fall back to
	// DefaultColor.
	Colors       map[string]color.RGBA
	DefaultColor color.RGBA
	LineWidth    float64
}

// DefaultOptions returns the standard rendering configuration.
func DefaultOptions() Options {
	return Options{
		MinConfidence:  0.25,
		ShowConfidence: true,
		Colors:         DefaultColors(),
		DefaultColor:   color.RGBA{R: 0, G: 199, B: 190, A: 255},
		LineWidth:      2,
	}
}

// Renderer draws annotated copies of images.
type Renderer struct {
	opts Options
}

// NewRenderer constructs a renderer with the given options.
func NewRenderer(opts Options) *Renderer {
	if opts.LineWidth <= 0 {
		opts.LineWidth = 2
	}
	if opts.Colors == nil {
		opts.Colors = DefaultColors()
	}
	if opts.DefaultColor == (color.RGBA{}) {
		opts.DefaultColor = color.RGBA{R: 0, G: 199, B: 190, A: 255}
	}
	return &Renderer{opts: opts}
}

const (
	labelPadX = 4
	labelPadY = 3
)

// RenderImage draws boxes and labels for every detection meeting the
// display threshold onto a copy of img.
func (r *Renderer) RenderImage(img image.Image, detections []detection.Detection) *image.RGBA {
	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawImage(img, 0, 0)

	for _, d := range detections {
		if d.Confidence < r.opts.MinConfidence {
			continue
		}
		r.drawDetection(dc, d)
	}

	out, ok := dc.Image().(*image.RGBA)
	if !ok {
		rgba := image.NewRGBA(b)
		dc2 := gg.NewContextForRGBA(rgba)
		dc2.DrawImage(dc.Image(), 0, 0)
		return rgba
	}
	return out
}

func (r *Renderer) colorFor(class string) color.RGBA {
	if c, ok := r.opts.Colors[class]; ok {
		return c
	}
	return r.opts.DefaultColor
}

func (r *Renderer) drawDetection(dc *gg.Context, d detection.Detection) {
	col := r.colorFor(d.Class)
	box := d.Box

	dc.SetColor(col)
	dc.SetLineWidth(r.opts.LineWidth)
	dc.DrawRectangle(float64(box.X), float64(box.Y), float64(box.Width), float64(box.Height))
	dc.Stroke()

	label := d.Class
	if r.opts.ShowConfidence {
		label = fmt.Sprintf("%s %.0f%%", d.Class, d.Confidence*100)
	}

	textW, textH := dc.MeasureString(label)
	bgW := textW + 2*labelPadX
	bgH := textH + 2*labelPadY

	// Label sits above the box; when the box hugs the top edge there is no
	// room, so it drops just inside the box instead of drawing off-canvas.
	bgY := float64(box.Y) - bgH
	if bgY < 0 {
		bgY = float64(box.Y)
	}
	bgX := float64(box.X)
	if bgX+bgW > float64(dc.Width()) {
		bgX = float64(dc.Width()) - bgW
	}
	if bgX < 0 {
		bgX = 0
	}

	dc.SetColor(col)
	dc.DrawRectangle(bgX, bgY, bgW, bgH)
	dc.Fill()

	dc.SetColor(color.White)
	dc.DrawString(label, bgX+labelPadX, bgY+bgH-labelPadY)
}

// Render loads an image, draws every qualifying detection, and saves the
// annotated copy to outputPath. The output format follows the output
// path's extension; an unrecognized extension is an error, never a silent
// no-op. WebP input is decodable but has no pure-Go encoder, so annotated
// output goes to jpg/jpeg/png/gif/bmp/tif.
func (r *Renderer) Render(imagePath string, detections []detection.Detection, outputPath string) error {
	img, _, err := imageio.Load(imagePath)
	if err != nil {
		return err
	}
	annotated := r.RenderImage(img, detections)
	if err := imaging.Save(annotated, outputPath); err != nil {
		return fmt.Errorf("failed to save annotated image %s: %w", outputPath, err)
	}
	return nil
}
