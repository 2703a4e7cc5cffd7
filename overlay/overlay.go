// Package overlay draws target bundles on top of their image for inspection.
package overlay

import (
	"image"
	"image/color"

	"github.com/llgcode/draw2d/draw2dimg"

	"github.com/model-collapse/seg-targets/mapper"
)

var palette = []color.RGBA{
	{230, 25, 75, 255},
	{60, 180, 75, 255},
	{255, 225, 25, 255},
	{0, 130, 200, 255},
	{245, 130, 48, 255},
	{145, 30, 180, 255},
	{70, 240, 240, 255},
	{240, 50, 230, 255},
	{210, 245, 60, 255},
	{0, 128, 128, 255},
}

type Options struct {
	// Boxes strokes the bundle's boxes, if it has any.
	Boxes bool
	// BGR tells that the image channels are stored blue first.
	BGR bool
	// Alpha is the mask tint opacity in [0, 1].
	Alpha float64
}

// Color returns the tint used for target i.
func Color(i int) color.RGBA {
	return palette[i%len(palette)]
}

// Render converts img to RGBA and tints each mask of b with its own colour.
// b may be nil.
func Render(img *mapper.ImageTensor, b *mapper.TargetBundle, opts Options) *image.RGBA {
	out := toRGBA(img, opts.BGR)
	if b == nil {
		return out
	}

	for i := range b.Masks {
		tint(out, &b.Masks[i], Color(i), opts.Alpha)
	}

	if opts.Boxes && b.Boxes != nil {
		gc := draw2dimg.NewGraphicContext(out)
		gc.SetLineWidth(1)
		for i, r := range b.Boxes {
			if r.Empty() {
				continue
			}
			gc.SetStrokeColor(Color(i))
			gc.MoveTo(float64(r.Min.X), float64(r.Min.Y))
			gc.LineTo(float64(r.Max.X), float64(r.Min.Y))
			gc.LineTo(float64(r.Max.X), float64(r.Max.Y))
			gc.LineTo(float64(r.Min.X), float64(r.Max.Y))
			gc.Close()
			gc.Stroke()
		}
	}

	return out
}

func toRGBA(img *mapper.ImageTensor, bgr bool) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			var c color.RGBA
			switch {
			case img.Channels < 3:
				v := img.At(0, y, x)
				c = color.RGBA{v, v, v, 255}
			case bgr:
				c = color.RGBA{img.At(2, y, x), img.At(1, y, x), img.At(0, y, x), 255}
			default:
				c = color.RGBA{img.At(0, y, x), img.At(1, y, x), img.At(2, y, x), 255}
			}
			out.SetRGBA(x, y, c)
		}
	}

	return out
}

// tint blends c into the pixels of m that fall inside out.
func tint(out *image.RGBA, m *mapper.Mask, c color.RGBA, alpha float64) {
	b := out.Bounds()
	for y := 0; y < m.Height && y < b.Max.Y; y++ {
		for x := 0; x < m.Width && x < b.Max.X; x++ {
			if !m.At(y, x) {
				continue
			}

			p := out.RGBAAt(x, y)
			p.R = blend(p.R, c.R, alpha)
			p.G = blend(p.G, c.G, alpha)
			p.B = blend(p.B, c.B, alpha)
			out.SetRGBA(x, y, p)
		}
	}
}

func blend(a, b uint8, alpha float64) uint8 {
	return uint8(float64(a)*(1-alpha) + float64(b)*alpha + 0.5)
}
