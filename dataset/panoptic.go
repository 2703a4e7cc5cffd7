// Package dataset loads COCO style panoptic annotation files into mapper
// records.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/model-collapse/seg-targets/mapper"
)

type Segment struct {
	ID         uint32 `json:"id"`
	CategoryID int    `json:"category_id"`
	IsCrowd    int    `json:"iscrowd"`
	Area       int64  `json:"area"`
}

type Annotation struct {
	ImageID      json.RawMessage `json:"image_id"`
	FileName     string          `json:"file_name"`
	SegmentsInfo []Segment       `json:"segments_info"`
}

type ImageInfo struct {
	ID       json.RawMessage `json:"id"`
	FileName string          `json:"file_name"`
	Height   int             `json:"height"`
	Width    int             `json:"width"`
}

type Category struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	IsThing int    `json:"isthing"`
}

type PanopticFile struct {
	Images      []ImageInfo  `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}

// Dirs tells where the files referenced by a PanopticFile live. SemanticDir
// may be empty.
type Dirs struct {
	ImageDir    string
	PanopticDir string
	SemanticDir string
}

func LoadPanopticFile(path string) (ret *PanopticFile, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	if err = json.Unmarshal(data, &ret); err != nil {
		err = fmt.Errorf("parse %s: %w", path, err)
	}
	return
}

func buildImageIndex(imgs []ImageInfo) (ret map[string]ImageInfo) {
	ret = make(map[string]ImageInfo, len(imgs))
	for _, img := range imgs {
		ret[idString(img.ID)] = img
	}

	return
}

// Records joins annotations, images and categories into one record per
// annotation, in file order.
func (f *PanopticFile) Records(d Dirs) ([]mapper.DatasetRecord, error) {
	things := make(map[int]bool, len(f.Categories))
	for _, c := range f.Categories {
		things[c.ID] = c.IsThing == 1
	}
	imgs := buildImageIndex(f.Images)

	ret := make([]mapper.DatasetRecord, 0, len(f.Annotations))
	for _, a := range f.Annotations {
		id := idString(a.ImageID)
		stem := strings.TrimSuffix(a.FileName, filepath.Ext(a.FileName))

		rec := mapper.DatasetRecord{
			ImageID:        id,
			FileName:       filepath.Join(d.ImageDir, stem+".jpg"),
			PanSegFileName: filepath.Join(d.PanopticDir, a.FileName),
			SegmentsInfo:   make([]mapper.SegmentRecord, 0, len(a.SegmentsInfo)),
		}
		if img, ok := imgs[id]; ok {
			rec.FileName = filepath.Join(d.ImageDir, img.FileName)
			rec.Height, rec.Width = img.Height, img.Width
		}
		if d.SemanticDir != "" {
			rec.SemSegFileName = filepath.Join(d.SemanticDir, stem+".png")
		}

		for _, s := range a.SegmentsInfo {
			isThing, ok := things[s.CategoryID]
			if !ok {
				return nil, fmt.Errorf("image %s: segment %d has unknown category %d", id, s.ID, s.CategoryID)
			}
			rec.SegmentsInfo = append(rec.SegmentsInfo, mapper.SegmentRecord{
				ID:         s.ID,
				CategoryID: s.CategoryID,
				IsCrowd:    s.IsCrowd != 0,
				IsThing:    isThing,
			})
		}

		ret = append(ret, rec)
	}

	return ret, nil
}

// LoadRecords is LoadPanopticFile followed by Records.
func LoadRecords(path string, d Dirs) ([]mapper.DatasetRecord, error) {
	f, err := LoadPanopticFile(path)
	if err != nil {
		return nil, err
	}

	return f.Records(d)
}

// idString renders a JSON id that may be a number or a string.
func idString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}
