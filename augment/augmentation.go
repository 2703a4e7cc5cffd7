package augment

import (
	"fmt"
	"math"
	"math/rand"

	"gocv.io/x/gocv"
)

// Augmentation samples a Transform for an input of the given size.
type Augmentation interface {
	Sample(rng *rand.Rand, h, w int) (Transform, error)
}

// ResizeShortestEdge scales the shorter side to a length drawn from
// ShortEdgeLength, capping the longer side at MaxSize when MaxSize > 0.
type ResizeShortestEdge struct {
	ShortEdgeLength []int
	MaxSize         int
}

func (a ResizeShortestEdge) Sample(rng *rand.Rand, h, w int) (Transform, error) {
	if len(a.ShortEdgeLength) == 0 {
		return nil, fmt.Errorf("resize: no short edge length")
	}

	size := a.ShortEdgeLength[rng.Intn(len(a.ShortEdgeLength))]
	if size == 0 {
		return NoOpTransform{}, nil
	}

	nh, nw := ShortestEdgeShape(h, w, size, a.MaxSize)
	return ResizeTransform{H: h, W: w, NewH: nh, NewW: nw}, nil
}

// ShortestEdgeShape computes the output size of a shortest edge resize.
func ShortestEdgeShape(h, w, short, maxSize int) (nh, nw int) {
	scale := float64(short) / math.Min(float64(h), float64(w))

	fh, fw := float64(short), scale*float64(w)
	if h >= w {
		fh, fw = scale*float64(h), float64(short)
	}

	if maxSize > 0 && math.Max(fh, fw) > float64(maxSize) {
		s := float64(maxSize) / math.Max(fh, fw)
		fh *= s
		fw *= s
	}

	nh, nw = int(fh+0.5), int(fw+0.5)
	return
}

// RandomCrop cuts a window at a uniformly random position. With Type
// "absolute" Size is (h, w) in pixels; with "relative" it is a fraction of the
// input size.
type RandomCrop struct {
	Type string
	Size [2]float64
}

func (a RandomCrop) Sample(rng *rand.Rand, h, w int) (Transform, error) {
	ch, cw, err := a.cropSize(h, w)
	if err != nil {
		return nil, err
	}

	y0 := rng.Intn(h - ch + 1)
	x0 := rng.Intn(w - cw + 1)
	return CropTransform{X0: x0, Y0: y0, W: cw, H: ch}, nil
}

func (a RandomCrop) cropSize(h, w int) (ch, cw int, err error) {
	switch a.Type {
	case "absolute":
		ch, cw = int(a.Size[0]), int(a.Size[1])
	case "relative":
		ch, cw = int(float64(h)*a.Size[0]+0.5), int(float64(w)*a.Size[1]+0.5)
	default:
		err = fmt.Errorf("crop: unknown type %q", a.Type)
		return
	}

	if ch <= 0 || cw <= 0 {
		err = fmt.Errorf("crop: invalid size %dx%d", cw, ch)
		return
	}

	if ch > h {
		ch = h
	}
	if cw > w {
		cw = w
	}

	return
}

// RandomFlip flips with probability Prob.
type RandomFlip struct {
	Horizontal bool
	Vertical   bool
	Prob       float64
}

func (a RandomFlip) Sample(rng *rand.Rand, h, w int) (Transform, error) {
	if a.Horizontal == a.Vertical {
		return nil, fmt.Errorf("flip: exactly one of horizontal or vertical must be set")
	}

	if rng.Float64() < a.Prob {
		return FlipTransform{Horizontal: a.Horizontal}, nil
	}

	return NoOpTransform{}, nil
}

// Input is an image with an optional semantic label, updated in place by
// Apply.
type Input struct {
	Image  gocv.Mat
	SemSeg *gocv.Mat
}

// Apply samples every augmentation against the current input size, applies
// the result to the image and semantic label, and returns the transforms so
// they can be replayed on further label maps. Mats replaced in in are closed.
func Apply(augs []Augmentation, rng *rand.Rand, in *Input) (TransformList, error) {
	tfms := make(TransformList, 0, len(augs))
	for i, a := range augs {
		t, err := a.Sample(rng, in.Image.Rows(), in.Image.Cols())
		if err != nil {
			return nil, fmt.Errorf("augmentation %d: %w", i, err)
		}

		img := t.ApplyImage(in.Image)
		in.Image.Close()
		in.Image = img

		if in.SemSeg != nil {
			seg := t.ApplySegmentation(*in.SemSeg)
			in.SemSeg.Close()
			*in.SemSeg = seg
		}

		tfms = append(tfms, t)
	}

	return tfms, nil
}
