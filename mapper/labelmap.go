package mapper

import (
	"encoding/binary"
	"fmt"

	"gocv.io/x/gocv"
)

// LabelMap holds one segment id per pixel, row-major.
type LabelMap struct {
	Height int
	Width  int
	IDs    []uint32
}

// At returns the segment id at (y, x).
func (l *LabelMap) At(y, x int) uint32 {
	return l.IDs[y*l.Width+x]
}

// ColorToID recovers a segment id from its colour encoding.
func ColorToID(r, g, b uint8) uint32 {
	return uint32(r) + 256*uint32(g) + 256*256*uint32(b)
}

// DecodeLabelMap turns a packed 3-channel BGR buffer (the order gocv reads
// colour images in) into segment ids.
func DecodeLabelMap(bgr []byte, h, w int) (*LabelMap, error) {
	if len(bgr) != h*w*3 {
		return nil, fmt.Errorf("label buffer has %d bytes, want %d for %dx%dx3", len(bgr), h*w*3, h, w)
	}

	l := &LabelMap{Height: h, Width: w, IDs: make([]uint32, h*w)}
	for i := range l.IDs {
		p := bgr[i*3 : i*3+3]
		l.IDs[i] = ColorToID(p[2], p[1], p[0])
	}

	return l, nil
}

// LabelMapFromMat decodes a colour-encoded panoptic label Mat read in BGR.
func LabelMapFromMat(m gocv.Mat) (*LabelMap, error) {
	if m.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("panoptic label must be 8-bit 3-channel, got type %v", m.Type())
	}

	return DecodeLabelMap(m.ToBytes(), m.Rows(), m.Cols())
}

// ClassMap holds one semantic class id per pixel, row-major.
type ClassMap struct {
	Height  int
	Width   int
	Classes []int32
}

// At returns the class id at (y, x).
func (c *ClassMap) At(y, x int) int32 {
	return c.Classes[y*c.Width+x]
}

// ClassMapFromMat decodes a single channel 8 or 16 bit semantic label Mat.
func ClassMapFromMat(m gocv.Mat) (*ClassMap, error) {
	h, w := m.Rows(), m.Cols()
	c := &ClassMap{Height: h, Width: w, Classes: make([]int32, h*w)}
	data := m.ToBytes()

	switch m.Type() {
	case gocv.MatTypeCV8UC1:
		for i := range c.Classes {
			c.Classes[i] = int32(data[i])
		}
	case gocv.MatTypeCV16UC1:
		for i := range c.Classes {
			c.Classes[i] = int32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	default:
		return nil, fmt.Errorf("semantic label must be single channel 8 or 16 bit, got type %v", m.Type())
	}

	return c, nil
}

// ImageTensorFromMat converts an 8-bit HWC Mat into a CHW tensor.
func ImageTensorFromMat(m gocv.Mat) (t ImageTensor, err error) {
	switch m.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		err = fmt.Errorf("image must be 8-bit, got type %v", m.Type())
		return
	}

	t.Channels, t.Height, t.Width = m.Channels(), m.Rows(), m.Cols()
	hwc := m.ToBytes()
	t.Data = make([]uint8, len(hwc))

	plane := t.Height * t.Width
	for i := 0; i < plane; i++ {
		for c := 0; c < t.Channels; c++ {
			t.Data[c*plane+i] = hwc[i*t.Channels+c]
		}
	}

	return
}
