package mapper

import (
	"encoding/json"
	"fmt"
	"image"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/model-collapse/seg-targets/augment"
)

// memReader serves Mats from memory and counts reads.
type memReader struct {
	mu    sync.Mutex
	files map[string]gocv.Mat
	reads int
}

func (r *memReader) ReadImage(path, format string) (gocv.Mat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reads++
	m, ok := r.files[path]
	if !ok {
		return gocv.Mat{}, fmt.Errorf("no such file %q", path)
	}

	return m.Clone(), nil
}

func (r *memReader) Close() {
	for _, m := range r.files {
		m.Close()
	}
}

func mustMat(t *testing.T, h, w int, mt gocv.MatType, data []byte) gocv.Mat {
	t.Helper()

	m, err := gocv.NewMatFromBytes(h, w, mt, data)
	require.NoError(t, err)

	// detach from data
	c := m.Clone()
	m.Close()
	return c
}

func fixtureImageBytes() []byte {
	b := make([]byte, 4*6*3)
	for i := range b {
		b[i] = uint8(i % 251)
	}

	return b
}

// newFixtureReader serves the 4x6 fixtures under img.jpg, pan.png, sem.png.
func newFixtureReader(t *testing.T) *memReader {
	t.Helper()

	pan := fixtureLabelMap()
	bgr := make([]byte, 0, len(pan.IDs)*3)
	for _, id := range pan.IDs {
		bgr = append(bgr, uint8(id>>16), uint8(id>>8), uint8(id))
	}

	sem := fixtureClassMap()
	semBytes := make([]byte, len(sem.Classes))
	for i, c := range sem.Classes {
		semBytes[i] = uint8(c)
	}

	r := &memReader{files: map[string]gocv.Mat{
		"img.jpg": mustMat(t, 4, 6, gocv.MatTypeCV8UC3, fixtureImageBytes()),
		"pan.png": mustMat(t, 4, 6, gocv.MatTypeCV8UC3, bgr),
		"sem.png": mustMat(t, 4, 6, gocv.MatTypeCV8UC1, semBytes),
		"big.png": mustMat(t, 5, 6, gocv.MatTypeCV8UC3, make([]byte, 5*6*3)),
	}}
	t.Cleanup(r.Close)
	return r
}

func fixtureRecord() DatasetRecord {
	return DatasetRecord{
		ImageID:        "0001",
		FileName:       "img.jpg",
		Height:         4,
		Width:          6,
		SemSegFileName: "sem.png",
		PanSegFileName: "pan.png",
		SegmentsInfo:   fixtureSegments(),
	}
}

func newTestMapper(t *testing.T, r ImageReader, cfg Config) *Mapper {
	t.Helper()

	if cfg.ImageFormat == "" {
		cfg.ImageFormat = FormatRGB
	}
	m, err := NewMapper(cfg, WithReader(r))
	require.NoError(t, err)
	return m
}

func TestMapWithRand(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{IsTrain: true, IgnoreLabel: 255, SizeDivisibility: 8})

	out, err := m.MapWithRand(fixtureRecord(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, "0001", out.ImageID)
	assert.Equal(t, 4, out.Height)
	assert.Equal(t, 6, out.Width)

	require.NotNil(t, out.PanInstances)
	assert.Equal(t, []int64{10, 20, 30}, out.PanInstances.Classes)
	assert.Equal(t, [3]int{3, 4, 6}, out.PanInstances.MaskShape())
	assert.Nil(t, out.PanInstances.Boxes)

	require.NotNil(t, out.InsInstances)
	assert.Equal(t, []int64{20, 30}, out.InsInstances.Classes)
	assert.Equal(t, []image.Rectangle{image.Rect(1, 1, 3, 3), image.Rect(4, 1, 6, 3)}, out.InsInstances.Boxes)
	assert.Equal(t, [3]int{2, 4, 6}, out.InsInstances.MaskShape())

	// image and semantic label are padded to 8x8, masks of the other tasks are not
	assert.Equal(t, 3, out.Image.Channels)
	assert.Equal(t, 8, out.Image.Height)
	assert.Equal(t, 8, out.Image.Width)
	require.NotNil(t, out.SemSeg)
	assert.Equal(t, 8, out.SemSeg.Height)
	assert.Equal(t, 8, out.SemSeg.Width)
	assert.Equal(t, int32(255), out.SemSeg.At(7, 7))

	require.NotNil(t, out.SemInstances)
	assert.Equal(t, []int64{0, 3}, out.SemInstances.Classes)
	assert.Equal(t, [3]int{2, 8, 8}, out.SemInstances.MaskShape())

	img := fixtureImageBytes()
	for c := 0; c < 3; c++ {
		assert.Equal(t, img[(2*6+5)*3+c], out.Image.At(c, 2, 5))
		assert.Equal(t, uint8(ImageFill), out.Image.At(c, 6, 1))
		assert.Equal(t, uint8(ImageFill), out.Image.At(c, 1, 7))
	}

	for _, b := range []*TargetBundle{out.PanInstances, out.InsInstances, out.SemInstances} {
		assertBundleInvariants(t, b)
	}
}

func TestMapWithRand_NoDivisibility(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{IsTrain: true, IgnoreLabel: 255})

	out, err := m.MapWithRand(fixtureRecord(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, 4, out.Image.Height)
	assert.Equal(t, 6, out.Image.Width)
	assert.Equal(t, [3]int{2, 4, 6}, out.SemInstances.MaskShape())
}

func TestMapWithRand_PanopticOnly(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{IsTrain: true, IgnoreLabel: 255, SizeDivisibility: 8})

	rec := fixtureRecord()
	rec.SemSegFileName = ""

	out, err := m.MapWithRand(rec, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Nil(t, out.SemInstances)
	assert.Nil(t, out.SemSeg)
	assert.NotNil(t, out.PanInstances)
	assert.NotNil(t, out.InsInstances)
	// padding only accompanies a semantic label
	assert.Equal(t, 4, out.Image.Height)
	assert.Equal(t, 6, out.Image.Width)
}

func TestMapWithRand_SemanticOnly(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{IsTrain: true, IgnoreLabel: 255})

	rec := fixtureRecord()
	rec.PanSegFileName = ""
	rec.SegmentsInfo = nil

	out, err := m.MapWithRand(rec, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Nil(t, out.PanInstances)
	assert.Nil(t, out.InsInstances)
	require.NotNil(t, out.SemInstances)
	assert.Equal(t, []int64{0, 3}, out.SemInstances.Classes)
}

func TestMapWithRand_NotTraining(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{IsTrain: false})

	_, err := m.MapWithRand(fixtureRecord(), rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNotTraining)
	assert.Equal(t, 0, r.reads)
}

func TestMapWithRand_AnnotationsWithPanoptic(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{IsTrain: true, IgnoreLabel: 255})

	rec := fixtureRecord()
	rec.Annotations = json.RawMessage(`[{"bbox": [0, 0, 1, 1]}]`)

	_, err := m.MapWithRand(rec, rand.New(rand.NewSource(1)))
	require.ErrorIs(t, err, ErrContractViolation)
	assert.Contains(t, err.Error(), "annotations")
	assert.Equal(t, 0, r.reads)
}

func TestMapWithRand_DuplicateSegmentID(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{IsTrain: true, IgnoreLabel: 255})

	rec := fixtureRecord()
	rec.SegmentsInfo = append(rec.SegmentsInfo, SegmentRecord{ID: 4, CategoryID: 1})

	_, err := m.MapWithRand(rec, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrMalformedSegments)
}

func TestMapWithRand_InputIntegrity(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{IsTrain: true, IgnoreLabel: 255})

	t.Run("record size", func(t *testing.T) {
		rec := fixtureRecord()
		rec.Height = 5
		_, err := m.MapWithRand(rec, rand.New(rand.NewSource(1)))
		assert.ErrorIs(t, err, ErrInputIntegrity)
	})

	t.Run("panoptic size", func(t *testing.T) {
		rec := fixtureRecord()
		rec.PanSegFileName = "big.png"
		_, err := m.MapWithRand(rec, rand.New(rand.NewSource(1)))
		assert.ErrorIs(t, err, ErrInputIntegrity)
	})

	t.Run("semantic size", func(t *testing.T) {
		rec := fixtureRecord()
		rec.SemSegFileName = "big.png"
		_, err := m.MapWithRand(rec, rand.New(rand.NewSource(1)))
		assert.ErrorIs(t, err, ErrInputIntegrity)
	})

	t.Run("missing file", func(t *testing.T) {
		rec := fixtureRecord()
		rec.FileName = "nope.jpg"
		_, err := m.MapWithRand(rec, rand.New(rand.NewSource(1)))
		assert.Error(t, err)
	})
}

func TestMapWithRand_DoesNotAliasInput(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{IsTrain: true, IgnoreLabel: 255})

	rec := fixtureRecord()
	out, err := m.MapWithRand(rec, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	out.SegmentsInfo[0].CategoryID = 999
	assert.Equal(t, 10, rec.SegmentsInfo[0].CategoryID)
	assert.Equal(t, fixtureRecord(), rec)
}

func TestMapWithRand_FlipReachesEveryLabel(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{
		IsTrain:     true,
		IgnoreLabel: 255,
		Augmentations: []augment.Augmentation{
			augment.RandomFlip{Horizontal: true, Prob: 1},
		},
	})

	out, err := m.MapWithRand(fixtureRecord(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, []image.Rectangle{image.Rect(3, 1, 5, 3), image.Rect(0, 1, 2, 3)}, out.InsInstances.Boxes)
	assert.Equal(t, int32(0), out.SemSeg.At(1, 5))
	assert.Equal(t, int32(255), out.SemSeg.At(1, 2))

	img := fixtureImageBytes()
	for c := 0; c < 3; c++ {
		assert.Equal(t, img[(1*6+0)*3+c], out.Image.At(c, 1, 5))
	}
}

func TestMapWithRand_Deterministic(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{
		IsTrain:          true,
		IgnoreLabel:      255,
		SizeDivisibility: 8,
		Augmentations: []augment.Augmentation{
			augment.ResizeShortestEdge{ShortEdgeLength: []int{4, 6, 8}, MaxSize: 12},
			augment.RandomCrop{Type: "absolute", Size: [2]float64{4, 5}},
			augment.RandomFlip{Horizontal: true, Prob: 0.5},
		},
	})

	for seed := int64(0); seed < 5; seed++ {
		a, err := m.MapWithRand(fixtureRecord(), rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		b, err := m.MapWithRand(fixtureRecord(), rand.New(rand.NewSource(seed)))
		require.NoError(t, err)

		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("seed %d: outputs differ (-first +second):\n%s", seed, diff)
		}

		for _, bundle := range []*TargetBundle{a.PanInstances, a.InsInstances, a.SemInstances} {
			assertBundleInvariants(t, bundle)
		}
		for i := range a.InsInstances.Masks {
			assert.Equal(t, a.InsInstances.Boxes[i], MaskBox(&a.InsInstances.Masks[i]))
		}
		assert.Equal(t, a.PanInstances.Height, a.InsInstances.Height)
	}
}

func TestMap_Concurrent(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{
		IsTrain:     true,
		IgnoreLabel: 255,
		Augmentations: []augment.Augmentation{
			augment.RandomFlip{Horizontal: true, Prob: 0.5},
		},
	})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Map(fixtureRecord())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestNewMapper_BadFormat(t *testing.T) {
	_, err := NewMapper(Config{IsTrain: true, ImageFormat: "YUV"})
	assert.Error(t, err)

	_, err = NewMapper(Config{IsTrain: true, ImageFormat: FormatRaw})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	r := newFixtureReader(t)
	m := newTestMapper(t, r, Config{IsTrain: true, IgnoreLabel: 255})

	out, err := m.MapWithRand(fixtureRecord(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	s := Summarize(out)
	assert.Equal(t, [3]int{3, 4, 6}, s.ImageShape)
	assert.Equal(t, []int{4, 6}, s.SemSegShape)
	assert.Equal(t, []int{8, 4, 4}, s.Panoptic.Areas)
	assert.Nil(t, s.Panoptic.Boxes)
	assert.Equal(t, [][4]int{{1, 1, 3, 3}, {4, 1, 6, 3}}, s.Instance.Boxes)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ins_instances"`)
}
