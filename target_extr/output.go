package main

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/model-collapse/seg-targets/mapper"
	"github.com/model-collapse/seg-targets/overlay"
)

// writeOutputs stores the summary of r as <dir>/<stem>.json and, when render
// is set, one overlay per present bundle as <dir>/<stem>_<task>.png.
func writeOutputs(dir, stem string, r *mapper.MappedRecord, render, bgr bool) error {
	data, err := json.MarshalIndent(mapper.Summarize(r), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, stem+".json"), data, 0o644); err != nil {
		return err
	}

	if !render {
		return nil
	}

	bundles := []struct {
		task string
		b    *mapper.TargetBundle
	}{
		{"pan", r.PanInstances},
		{"ins", r.InsInstances},
		{"sem", r.SemInstances},
	}
	for _, t := range bundles {
		if t.b == nil {
			continue
		}

		img := overlay.Render(&r.Image, t.b, overlay.Options{Boxes: true, BGR: bgr, Alpha: 0.5})
		if err := writePNG(filepath.Join(dir, fmt.Sprintf("%s_%s.png", stem, t.task)), img); err != nil {
			return err
		}
	}

	return nil
}

func writePNG(fn string, img *image.RGBA) error {
	fw, err := os.OpenFile(fn, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer fw.Close()

	return png.Encode(fw, img)
}
