package mapper

import (
	"fmt"
	"image"
	"sort"
)

// BuildPanopticTargets keeps every non-crowd segment, in segment table order.
func BuildPanopticTargets(pan *LabelMap, segments []SegmentRecord) *TargetBundle {
	b := newBundle(pan.Height, pan.Width, false)
	for _, s := range segments {
		if s.IsCrowd {
			continue
		}

		b.Classes = append(b.Classes, int64(s.CategoryID))
		b.Masks = append(b.Masks, segmentMask(pan, s.ID))
	}

	return b
}

// BuildInstanceTargets keeps the non-crowd thing segments and derives a box
// from each mask.
func BuildInstanceTargets(pan *LabelMap, segments []SegmentRecord) *TargetBundle {
	b := newBundle(pan.Height, pan.Width, true)
	for _, s := range segments {
		if s.IsCrowd || !s.IsThing {
			continue
		}

		m := segmentMask(pan, s.ID)
		b.Classes = append(b.Classes, int64(s.CategoryID))
		b.Masks = append(b.Masks, m)
		b.Boxes = append(b.Boxes, MaskBox(&m))
	}

	return b
}

// BuildSemanticTargets emits one mask per class present in sem, in ascending
// class order. Pixels equal to ignoreLabel never produce a target.
func BuildSemanticTargets(sem *ClassMap, ignoreLabel int) *TargetBundle {
	b := newBundle(sem.Height, sem.Width, false)

	seen := make(map[int32]struct{})
	for _, c := range sem.Classes {
		seen[c] = struct{}{}
	}
	delete(seen, int32(ignoreLabel))

	classes := make([]int32, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	for _, c := range classes {
		m := newMask(sem.Height, sem.Width)
		for i, v := range sem.Classes {
			m.Bits[i] = v == c
		}

		b.Classes = append(b.Classes, int64(c))
		b.Masks = append(b.Masks, m)
	}

	return b
}

func segmentMask(pan *LabelMap, id uint32) Mask {
	m := newMask(pan.Height, pan.Width)
	for i, v := range pan.IDs {
		m.Bits[i] = v == id
	}

	return m
}

// MaskBox returns the tight box around the set pixels of m. Max is exclusive.
// An empty mask yields the zero rectangle.
func MaskBox(m *Mask) (r image.Rectangle) {
	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1

	for y := 0; y < m.Height; y++ {
		row := m.Bits[y*m.Width : (y+1)*m.Width]
		for x, set := range row {
			if !set {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			maxY = y
		}
	}

	if maxX < 0 {
		return
	}

	r = image.Rect(minX, minY, maxX+1, maxY+1)
	return
}

// checkSegments rejects segment tables with repeated ids.
func checkSegments(segments []SegmentRecord) error {
	ids := make(map[uint32]int, len(segments))
	for i, s := range segments {
		if j, ok := ids[s.ID]; ok {
			return fmt.Errorf("%w: segment id %d at index %d and %d", ErrMalformedSegments, s.ID, j, i)
		}
		ids[s.ID] = i
	}

	return nil
}
