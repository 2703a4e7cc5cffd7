package main

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/model-collapse/seg-targets/mapper"
	"github.com/model-collapse/seg-targets/overlay"
)

func pickBundle(r *mapper.MappedRecord, task string) (*mapper.TargetBundle, error) {
	switch task {
	case "pan", "":
		return r.PanInstances, nil
	case "ins":
		return r.InsInstances, nil
	case "sem":
		return r.SemInstances, nil
	}

	return nil, fmt.Errorf("unknown task %q", task)
}

// renderTargets draws the bundle of task over the mapped image, PNG encoded.
func renderTargets(r *mapper.MappedRecord, task string, box, bgr bool) ([]byte, error) {
	b, err := pickBundle(r, task)
	if err != nil {
		return nil, err
	}

	img := overlay.Render(&r.Image, b, overlay.Options{Boxes: box, BGR: bgr, Alpha: 0.5})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
