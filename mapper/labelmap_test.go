package mapper

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestColorToID(t *testing.T) {
	assert.Equal(t, uint32(0), ColorToID(0, 0, 0))
	assert.Equal(t, uint32(7), ColorToID(7, 0, 0))
	assert.Equal(t, uint32(256), ColorToID(0, 1, 0))
	assert.Equal(t, uint32(65536+2*256+3), ColorToID(3, 2, 1))
}

func TestDecodeLabelMap(t *testing.T) {
	// two pixels, BGR
	bgr := []byte{1, 2, 3, 0, 0, 9}
	l, err := DecodeLabelMap(bgr, 1, 2)
	require.NoError(t, err)

	assert.Equal(t, ColorToID(3, 2, 1), l.At(0, 0))
	assert.Equal(t, uint32(9), l.At(0, 1))

	_, err = DecodeLabelMap(bgr, 2, 2)
	assert.Error(t, err)
}

func TestLabelMapFromMat(t *testing.T) {
	bgr := []byte{0, 0, 5, 0, 1, 0}
	m, err := gocv.NewMatFromBytes(1, 2, gocv.MatTypeCV8UC3, bgr)
	require.NoError(t, err)
	defer m.Close()

	l, err := LabelMapFromMat(m)
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 256}, l.IDs)

	gray := gocv.NewMatWithSize(1, 2, gocv.MatTypeCV8UC1)
	defer gray.Close()
	_, err = LabelMapFromMat(gray)
	assert.Error(t, err)
}

func TestClassMapFromMat(t *testing.T) {
	m8, err := gocv.NewMatFromBytes(1, 3, gocv.MatTypeCV8UC1, []byte{0, 7, 255})
	require.NoError(t, err)
	defer m8.Close()

	c, err := ClassMapFromMat(m8)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 7, 255}, c.Classes)

	raw := make([]byte, 4)
	binary.LittleEndian.PutUint16(raw, 1000)
	binary.LittleEndian.PutUint16(raw[2:], 3)
	m16, err := gocv.NewMatFromBytes(1, 2, gocv.MatTypeCV16UC1, raw)
	require.NoError(t, err)
	defer m16.Close()

	c, err = ClassMapFromMat(m16)
	require.NoError(t, err)
	assert.Equal(t, []int32{1000, 3}, c.Classes)
}

func TestImageTensorFromMat(t *testing.T) {
	hwc := []byte{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}
	m, err := gocv.NewMatFromBytes(2, 2, gocv.MatTypeCV8UC3, hwc)
	require.NoError(t, err)
	defer m.Close()

	tensor, err := ImageTensorFromMat(m)
	require.NoError(t, err)
	assert.Equal(t, 3, tensor.Channels)
	assert.Equal(t, []uint8{
		1, 4, 7, 10,
		2, 5, 8, 11,
		3, 6, 9, 12,
	}, tensor.Data)
	assert.Equal(t, uint8(11), tensor.At(1, 1, 1))
}
