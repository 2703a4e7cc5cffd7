package augment

import "fmt"

// Spec is the configuration form of an augmentation.
type Spec struct {
	Name string `mapstructure:"name" json:"name"`

	// ResizeShortestEdge
	ShortEdgeLength []int `mapstructure:"short_edge_length" json:"short_edge_length,omitempty"`
	MaxSize         int   `mapstructure:"max_size" json:"max_size,omitempty"`

	// RandomCrop
	CropType string    `mapstructure:"crop_type" json:"crop_type,omitempty"`
	CropSize []float64 `mapstructure:"crop_size" json:"crop_size,omitempty"`

	// RandomFlip
	Horizontal bool    `mapstructure:"horizontal" json:"horizontal,omitempty"`
	Vertical   bool    `mapstructure:"vertical" json:"vertical,omitempty"`
	Prob       float64 `mapstructure:"prob" json:"prob,omitempty"`
}

// Build turns specs into augmentations, in order.
func Build(specs []Spec) ([]Augmentation, error) {
	augs := make([]Augmentation, 0, len(specs))
	for i, s := range specs {
		a, err := build(s)
		if err != nil {
			return nil, fmt.Errorf("augmentation %d (%s): %w", i, s.Name, err)
		}
		augs = append(augs, a)
	}

	return augs, nil
}

func build(s Spec) (Augmentation, error) {
	switch s.Name {
	case "ResizeShortestEdge":
		if len(s.ShortEdgeLength) == 0 {
			return nil, fmt.Errorf("short_edge_length is required")
		}
		return ResizeShortestEdge{ShortEdgeLength: s.ShortEdgeLength, MaxSize: s.MaxSize}, nil

	case "RandomCrop":
		if len(s.CropSize) != 2 {
			return nil, fmt.Errorf("crop_size needs 2 values, got %d", len(s.CropSize))
		}
		t := s.CropType
		if t == "" {
			t = "absolute"
		}
		return RandomCrop{Type: t, Size: [2]float64{s.CropSize[0], s.CropSize[1]}}, nil

	case "RandomFlip":
		f := RandomFlip{Horizontal: s.Horizontal, Vertical: s.Vertical, Prob: s.Prob}
		if !f.Horizontal && !f.Vertical {
			f.Horizontal = true
		}
		if f.Prob == 0 {
			f.Prob = 0.5
		}
		return f, nil
	}

	return nil, fmt.Errorf("unknown augmentation")
}
