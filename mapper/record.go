package mapper

import (
	"encoding/json"
	"image"
)

// SegmentRecord describes one segment of a panoptic label map.
type SegmentRecord struct {
	ID         uint32 `json:"id"`
	CategoryID int    `json:"category_id"`
	IsCrowd    bool   `json:"iscrowd"`
	IsThing    bool   `json:"isthing"`
}

// DatasetRecord is one raw entry of a dataset, before mapping.
type DatasetRecord struct {
	ImageID  string `json:"image_id"`
	FileName string `json:"file_name"`
	// Height and Width are optional; when set they are checked against the
	// decoded image.
	Height int `json:"height,omitempty"`
	Width  int `json:"width,omitempty"`

	SemSegFileName string          `json:"sem_seg_file_name,omitempty"`
	PanSegFileName string          `json:"pan_seg_file_name,omitempty"`
	SegmentsInfo   []SegmentRecord `json:"segments_info,omitempty"`

	// Box style annotations. Mutually exclusive with the panoptic fields.
	Annotations json.RawMessage `json:"annotations,omitempty"`
}

// HasPanoptic reports whether the record carries a panoptic label.
func (r *DatasetRecord) HasPanoptic() bool {
	return r.PanSegFileName != ""
}

// HasSemantic reports whether the record carries a semantic label.
func (r *DatasetRecord) HasSemantic() bool {
	return r.SemSegFileName != ""
}

// Clone returns a copy sharing no memory with r.
func (r DatasetRecord) Clone() DatasetRecord {
	if r.SegmentsInfo != nil {
		r.SegmentsInfo = append([]SegmentRecord(nil), r.SegmentsInfo...)
	}
	if r.Annotations != nil {
		r.Annotations = append(json.RawMessage(nil), r.Annotations...)
	}
	return r
}

// ImageTensor is an 8-bit image in channel-major (C, H, W) order.
type ImageTensor struct {
	Channels int
	Height   int
	Width    int
	Data     []uint8
}

// At returns the value of channel c at (y, x).
func (t *ImageTensor) At(c, y, x int) uint8 {
	return t.Data[(c*t.Height+y)*t.Width+x]
}

// MappedRecord is the training-ready output of the mapper. Path fields of the
// input are consumed; only decoded tensors remain.
type MappedRecord struct {
	ImageID string
	// Height and Width of the image as decoded, before augmentation.
	Height int
	Width  int

	Image ImageTensor
	// SemSeg is nil when the input had no semantic label.
	SemSeg *ClassMap

	PanInstances *TargetBundle
	InsInstances *TargetBundle
	SemInstances *TargetBundle

	SegmentsInfo []SegmentRecord
}

// Mask is a binary per-pixel mask in row-major order.
type Mask struct {
	Height int
	Width  int
	Bits   []bool
}

func newMask(h, w int) Mask {
	return Mask{Height: h, Width: w, Bits: make([]bool, h*w)}
}

// At reports whether (y, x) is set.
func (m *Mask) At(y, x int) bool {
	return m.Bits[y*m.Width+x]
}

// Area returns the number of set pixels.
func (m *Mask) Area() (n int) {
	for _, b := range m.Bits {
		if b {
			n++
		}
	}

	return
}

// TargetBundle holds the per-segment training targets of one task.
//
// Classes and Masks are aligned index by index. Boxes is nil for bundles that
// carry no boxes; otherwise it is aligned with Masks as well, and an empty
// non-nil slice stands for a (0, 4) box tensor.
type TargetBundle struct {
	Height  int
	Width   int
	Classes []int64
	Masks   []Mask
	Boxes   []image.Rectangle
}

func newBundle(h, w int, withBoxes bool) *TargetBundle {
	b := &TargetBundle{
		Height:  h,
		Width:   w,
		Classes: []int64{},
		Masks:   []Mask{},
	}
	if withBoxes {
		b.Boxes = []image.Rectangle{}
	}

	return b
}

// Len returns the number of targets.
func (b *TargetBundle) Len() int {
	return len(b.Classes)
}

// MaskShape returns the (N, H, W) shape of the stacked masks.
func (b *TargetBundle) MaskShape() [3]int {
	return [3]int{len(b.Masks), b.Height, b.Width}
}

// BoxShape returns the (N, 4) shape of the box tensor, or false if the bundle
// has no boxes.
func (b *TargetBundle) BoxShape() ([2]int, bool) {
	if b.Boxes == nil {
		return [2]int{}, false
	}

	return [2]int{len(b.Boxes), 4}, true
}
