package mapper

import (
	"image/color"

	"gocv.io/x/gocv"
)

// ImageFill is the gray level written into padded image pixels.
const ImageFill = 128

// PaddingFor returns the trailing padding along height and width. It pads a
// dimension up to divisor only when the dimension is smaller than divisor;
// larger dimensions are left as they are, even when not a multiple of it.
func PaddingFor(h, w, divisor int) (padH, padW int) {
	if divisor <= 0 {
		return
	}

	if divisor > h {
		padH = divisor - h
	}
	if divisor > w {
		padW = divisor - w
	}

	return
}

// PadImage pads img on the bottom and right edges with ImageFill. The result
// is always a new Mat owned by the caller.
func PadImage(img gocv.Mat, padH, padW int) gocv.Mat {
	if padH == 0 && padW == 0 {
		return img.Clone()
	}

	dst := gocv.NewMat()
	gocv.CopyMakeBorder(img, &dst, 0, padH, 0, padW, gocv.BorderConstant,
		color.RGBA{R: ImageFill, G: ImageFill, B: ImageFill, A: 0})

	return dst
}

// PadClassMap returns a copy of c padded on the bottom and right edges with fill.
func PadClassMap(c *ClassMap, padH, padW int, fill int32) *ClassMap {
	h, w := c.Height+padH, c.Width+padW
	out := &ClassMap{Height: h, Width: w, Classes: make([]int32, h*w)}

	for y := 0; y < h; y++ {
		row := out.Classes[y*w : (y+1)*w]
		if y >= c.Height {
			fillRow(row, fill)
			continue
		}
		n := copy(row, c.Classes[y*c.Width:(y+1)*c.Width])
		fillRow(row[n:], fill)
	}

	return out
}

func fillRow(row []int32, v int32) {
	for i := range row {
		row[i] = v
	}
}
