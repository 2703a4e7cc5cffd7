// Package augment applies geometric augmentations identically to an image and
// its label maps.
package augment

import (
	"image"

	"gocv.io/x/gocv"
)

// Transform is a deterministic geometric operation. Both methods return a new
// Mat owned by the caller and leave their input untouched.
type Transform interface {
	ApplyImage(img gocv.Mat) gocv.Mat
	// ApplySegmentation must not interpolate between label values.
	ApplySegmentation(seg gocv.Mat) gocv.Mat
}

// TransformList is a recorded sequence of transforms, replayable on other
// inputs of the same size.
type TransformList []Transform

func (l TransformList) ApplyImage(img gocv.Mat) gocv.Mat {
	return l.apply(img, Transform.ApplyImage)
}

func (l TransformList) ApplySegmentation(seg gocv.Mat) gocv.Mat {
	return l.apply(seg, Transform.ApplySegmentation)
}

func (l TransformList) apply(m gocv.Mat, fn func(Transform, gocv.Mat) gocv.Mat) gocv.Mat {
	out := m.Clone()
	for _, t := range l {
		next := fn(t, out)
		out.Close()
		out = next
	}

	return out
}

type NoOpTransform struct{}

func (NoOpTransform) ApplyImage(img gocv.Mat) gocv.Mat        { return img.Clone() }
func (NoOpTransform) ApplySegmentation(seg gocv.Mat) gocv.Mat { return seg.Clone() }

// ResizeTransform scales from (H, W) to (NewH, NewW).
type ResizeTransform struct {
	H, W       int
	NewH, NewW int
}

func (t ResizeTransform) ApplyImage(img gocv.Mat) gocv.Mat {
	return t.resize(img, gocv.InterpolationLinear)
}

func (t ResizeTransform) ApplySegmentation(seg gocv.Mat) gocv.Mat {
	return t.resize(seg, gocv.InterpolationNearestNeighbor)
}

func (t ResizeTransform) resize(m gocv.Mat, interp gocv.InterpolationFlags) gocv.Mat {
	r := gocv.NewMat()
	gocv.Resize(m, &r, image.Point{X: t.NewW, Y: t.NewH}, 0, 0, interp)
	return r
}

// CropTransform keeps the W x H window whose top-left corner is (X0, Y0).
type CropTransform struct {
	X0, Y0 int
	W, H   int
}

func (t CropTransform) ApplyImage(img gocv.Mat) gocv.Mat {
	return t.crop(img)
}

func (t CropTransform) ApplySegmentation(seg gocv.Mat) gocv.Mat {
	return t.crop(seg)
}

func (t CropTransform) crop(m gocv.Mat) gocv.Mat {
	region := m.Region(image.Rect(t.X0, t.Y0, t.X0+t.W, t.Y0+t.H))
	defer region.Close()

	return region.Clone()
}

// FlipTransform mirrors horizontally when Horizontal is set, vertically
// otherwise.
type FlipTransform struct {
	Horizontal bool
}

func (t FlipTransform) ApplyImage(img gocv.Mat) gocv.Mat {
	return t.flip(img)
}

func (t FlipTransform) ApplySegmentation(seg gocv.Mat) gocv.Mat {
	return t.flip(seg)
}

func (t FlipTransform) flip(m gocv.Mat) gocv.Mat {
	code := 0
	if t.Horizontal {
		code = 1
	}

	r := gocv.NewMat()
	gocv.Flip(m, &r, code)
	return r
}
