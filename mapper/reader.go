package mapper

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Image formats understood by ReadImage.
const (
	FormatRGB  = "RGB"
	FormatBGR  = "BGR"
	FormatGray = "L"
	// FormatRaw keeps the file's own depth and channel count. Used for
	// semantic labels.
	FormatRaw = ""
)

// ValidFormat reports whether f is a known image format.
func ValidFormat(f string) bool {
	switch f {
	case FormatRGB, FormatBGR, FormatGray, FormatRaw:
		return true
	}

	return false
}

// ImageReader decodes images from storage. Implementations return a Mat
// owned by the caller.
type ImageReader interface {
	ReadImage(path, format string) (gocv.Mat, error)
}

// FileReader reads images from the local filesystem with OpenCV.
type FileReader struct{}

func (FileReader) ReadImage(path, format string) (r gocv.Mat, err error) {
	flag := gocv.IMReadUnchanged
	switch format {
	case FormatRGB, FormatBGR:
		flag = gocv.IMReadColor
	case FormatGray:
		flag = gocv.IMReadGrayScale
	case FormatRaw:
	default:
		err = fmt.Errorf("unknown image format %q", format)
		return
	}

	m := gocv.IMRead(path, flag)
	if m.Empty() {
		m.Close()
		err = fmt.Errorf("cannot decode image %q", path)
		return
	}

	if format != FormatRGB {
		r = m
		return
	}

	r = gocv.NewMat()
	gocv.CvtColor(m, &r, gocv.ColorBGRToRGB)
	m.Close()
	return
}

// checkImageSize compares the decoded image with the size recorded in the
// dataset, when the record has one.
func checkImageSize(rec *DatasetRecord, img gocv.Mat) error {
	h, w := img.Rows(), img.Cols()
	if rec.Width > 0 && rec.Width != w || rec.Height > 0 && rec.Height != h {
		return fmt.Errorf("%w: image %q is %dx%d, record says %dx%d",
			ErrInputIntegrity, rec.FileName, w, h, rec.Width, rec.Height)
	}

	return nil
}

func checkSameSize(what, path string, h, w int, label gocv.Mat) error {
	if label.Rows() != h || label.Cols() != w {
		return fmt.Errorf("%w: %s %q is %dx%d, image is %dx%d",
			ErrInputIntegrity, what, path, label.Cols(), label.Rows(), w, h)
	}

	return nil
}
