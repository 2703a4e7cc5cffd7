// Package mapper turns panoptic dataset records into panoptic, instance and
// semantic training targets.
package mapper

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/model-collapse/seg-targets/augment"
)

// Config controls a Mapper.
type Config struct {
	IsTrain     bool
	ImageFormat string
	// IgnoreLabel is excluded from semantic targets and used to pad labels.
	IgnoreLabel int
	// SizeDivisibility enables padding of the image and semantic label
	// when > 0.
	SizeDivisibility int
	Augmentations    []augment.Augmentation
}

type Option func(*Mapper)

func WithLogger(l *zap.Logger) Option {
	return func(m *Mapper) { m.log = l }
}

func WithReader(r ImageReader) Option {
	return func(m *Mapper) { m.reader = r }
}

// Mapper is immutable after construction and may be shared by goroutines
// mapping distinct records.
type Mapper struct {
	cfg    Config
	reader ImageReader
	log    *zap.Logger
}

func NewMapper(cfg Config, opts ...Option) (*Mapper, error) {
	if cfg.ImageFormat == FormatRaw || !ValidFormat(cfg.ImageFormat) {
		return nil, fmt.Errorf("unsupported image format %q", cfg.ImageFormat)
	}

	m := &Mapper{
		cfg:    cfg,
		reader: FileReader{},
		log:    zap.NewNop(),
	}
	m.cfg.Augmentations = append([]augment.Augmentation(nil), cfg.Augmentations...)
	for _, o := range opts {
		o(m)
	}

	return m, nil
}

// Loaded is a decoded and augmented record. Image must be released with Close.
type Loaded struct {
	// Height and Width before augmentation.
	Height int
	Width  int

	Image gocv.Mat
	// SemSeg and PanSeg are nil when the record has no such label.
	SemSeg     *ClassMap
	PanSeg     *LabelMap
	Transforms augment.TransformList
}

func (l *Loaded) Close() {
	l.Image.Close()
}

// LoadAndTransform decodes the image and label maps of rec and applies one
// sampled augmentation sequence to all of them.
func (m *Mapper) LoadAndTransform(rec *DatasetRecord, rng *rand.Rand) (*Loaded, error) {
	img, err := m.reader.ReadImage(rec.FileName, m.cfg.ImageFormat)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := checkImageSize(rec, img); err != nil {
		img.Close()
		return nil, err
	}

	ld := &Loaded{Height: img.Rows(), Width: img.Cols()}
	in := &augment.Input{Image: img}

	if rec.HasSemantic() {
		sem, err := m.readLabel("semantic label", rec.SemSegFileName, FormatRaw, ld.Height, ld.Width)
		if err != nil {
			img.Close()
			return nil, err
		}
		in.SemSeg = &sem
		defer in.SemSeg.Close()
	}

	tfms, err := augment.Apply(m.cfg.Augmentations, rng, in)
	ld.Image = in.Image
	if err != nil {
		ld.Close()
		return nil, err
	}
	ld.Transforms = tfms

	if in.SemSeg != nil {
		if ld.SemSeg, err = ClassMapFromMat(*in.SemSeg); err != nil {
			ld.Close()
			return nil, fmt.Errorf("decode %q: %w", rec.SemSegFileName, err)
		}
	}

	if rec.HasPanoptic() {
		if ld.PanSeg, err = m.loadPanoptic(rec.PanSegFileName, ld.Height, ld.Width, tfms); err != nil {
			ld.Close()
			return nil, err
		}
	}

	return ld, nil
}

// loadPanoptic reads the colour-encoded panoptic label, replays tfms on it and
// recovers the segment ids. h and w are the image size before augmentation.
func (m *Mapper) loadPanoptic(path string, h, w int, tfms augment.TransformList) (*LabelMap, error) {
	pan, err := m.readLabel("panoptic label", path, FormatBGR, h, w)
	if err != nil {
		return nil, err
	}
	defer pan.Close()

	out := tfms.ApplySegmentation(pan)
	defer out.Close()

	l, err := LabelMapFromMat(out)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}

	return l, nil
}

func (m *Mapper) readLabel(what, path, format string, h, w int) (gocv.Mat, error) {
	label, err := m.reader.ReadImage(path, format)
	if err != nil {
		return label, fmt.Errorf("read %s: %w", what, err)
	}
	if err := checkSameSize(what, path, h, w, label); err != nil {
		label.Close()
		return label, err
	}

	return label, nil
}

// Map maps rec with a freshly seeded random source.
func (m *Mapper) Map(rec DatasetRecord) (*MappedRecord, error) {
	return m.MapWithRand(rec, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// MapWithRand builds the training targets of rec. rng drives augmentation
// sampling; the same record and an identically seeded rng give identical
// output. rec is copied and never modified.
func (m *Mapper) MapWithRand(rec DatasetRecord, rng *rand.Rand) (*MappedRecord, error) {
	if !m.cfg.IsTrain {
		return nil, ErrNotTraining
	}

	rec = rec.Clone()
	if rec.HasPanoptic() {
		if len(rec.Annotations) > 0 {
			return nil, fmt.Errorf("%w: panoptic segmentation dataset should not have 'annotations' (record %q)",
				ErrContractViolation, rec.ImageID)
		}
		if err := checkSegments(rec.SegmentsInfo); err != nil {
			return nil, fmt.Errorf("record %q: %w", rec.ImageID, err)
		}
	}

	ld, err := m.LoadAndTransform(&rec, rng)
	if err != nil {
		return nil, fmt.Errorf("record %q: %w", rec.ImageID, err)
	}
	defer ld.Close()

	out := &MappedRecord{
		ImageID:      rec.ImageID,
		Height:       ld.Height,
		Width:        ld.Width,
		SegmentsInfo: rec.SegmentsInfo,
	}

	if ld.PanSeg != nil {
		out.PanInstances = BuildPanopticTargets(ld.PanSeg, rec.SegmentsInfo)
		out.InsInstances = BuildInstanceTargets(ld.PanSeg, rec.SegmentsInfo)
	}

	img := ld.Image
	if ld.SemSeg != nil {
		sem := ld.SemSeg
		if m.cfg.SizeDivisibility > 0 {
			padH, padW := PaddingFor(img.Rows(), img.Cols(), m.cfg.SizeDivisibility)
			padded := PadImage(img, padH, padW)
			defer padded.Close()

			img = padded
			sem = PadClassMap(sem, padH, padW, int32(m.cfg.IgnoreLabel))
		}

		out.SemSeg = sem
		out.SemInstances = BuildSemanticTargets(sem, m.cfg.IgnoreLabel)
	}

	if out.Image, err = ImageTensorFromMat(img); err != nil {
		return nil, fmt.Errorf("record %q: %w", rec.ImageID, err)
	}

	m.log.Debug("mapped record",
		zap.String("image_id", rec.ImageID),
		zap.Ints("image_shape", []int{out.Image.Channels, out.Image.Height, out.Image.Width}),
		zap.Int("pan_targets", bundleLen(out.PanInstances)),
		zap.Int("ins_targets", bundleLen(out.InsInstances)),
		zap.Int("sem_targets", bundleLen(out.SemInstances)),
		zap.Int("transforms", len(ld.Transforms)))

	return out, nil
}

func bundleLen(b *TargetBundle) int {
	if b == nil {
		return 0
	}

	return b.Len()
}
