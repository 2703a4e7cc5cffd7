package mapper

// BundleSummary is the JSON view of a TargetBundle without mask pixels.
type BundleSummary struct {
	Classes   []int64  `json:"classes"`
	MaskShape [3]int   `json:"mask_shape"`
	Areas     []int    `json:"areas"`
	Boxes     [][4]int `json:"boxes"`
}

type Summary struct {
	ImageID     string         `json:"image_id"`
	ImageShape  [3]int         `json:"image_shape"`
	SemSegShape []int          `json:"sem_seg_shape,omitempty"`
	Panoptic    *BundleSummary `json:"pan_instances,omitempty"`
	Instance    *BundleSummary `json:"ins_instances,omitempty"`
	Semantic    *BundleSummary `json:"sem_instances,omitempty"`
}

// Summarize reduces r to shapes, classes, areas and boxes.
func Summarize(r *MappedRecord) (s Summary) {
	s.ImageID = r.ImageID
	s.ImageShape = [3]int{r.Image.Channels, r.Image.Height, r.Image.Width}
	if r.SemSeg != nil {
		s.SemSegShape = []int{r.SemSeg.Height, r.SemSeg.Width}
	}

	s.Panoptic = summarizeBundle(r.PanInstances)
	s.Instance = summarizeBundle(r.InsInstances)
	s.Semantic = summarizeBundle(r.SemInstances)
	return
}

func summarizeBundle(b *TargetBundle) *BundleSummary {
	if b == nil {
		return nil
	}

	s := &BundleSummary{
		Classes:   b.Classes,
		MaskShape: b.MaskShape(),
		Areas:     make([]int, len(b.Masks)),
	}
	for i := range b.Masks {
		s.Areas[i] = b.Masks[i].Area()
	}

	if b.Boxes != nil {
		s.Boxes = make([][4]int, len(b.Boxes))
		for i, r := range b.Boxes {
			s.Boxes[i] = [4]int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
		}
	}

	return s
}
