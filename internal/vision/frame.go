// Package vision extracts dashboard descriptors from a photograph: whether
// the image plausibly shows a dashboard, which coloured warning lights are
// lit, and how usable the photo is.
//
// All colour work happens in 8-bit HSV with hue halved into [0,180), so the
// colour thresholds read the same as the usual computer-vision tables.
package vision

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"github.com/cardoc/cardoc-go/internal/errors"
)

// MsgUndecodable is reported for buffers no registered image decoder accepts.
const MsgUndecodable = "Could not decode image"

// ErrUndecodable is the sentinel wrapped by Decode failures.
var ErrUndecodable = errors.NewStd(MsgUndecodable)

// Frame is a decoded image split into the planes the detectors read. Planes
// are row-major with Width*Height entries and are never modified after
// NewFrame returns.
type Frame struct {
	Width  int
	Height int
	Format string

	Gray []uint8
	Hue  []uint8
	Sat  []uint8
	Val  []uint8
}

// Decode decodes a PNG, JPEG or GIF buffer into a Frame.
func Decode(data []byte) (*Frame, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New(ErrUndecodable).
			Component("vision").
			Category(errors.CategoryImageDecode).
			Context("operation", "decode_image").
			Context("size_bytes", len(data)).
			Context("cause", err.Error()).
			Build()
	}
	f := NewFrame(img)
	f.Format = format
	return f, nil
}

// NewFrame converts img into grayscale and HSV planes. Alpha is dropped
// from the straight (non-premultiplied) colour.
func NewFrame(img image.Image) *Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	n := w * h
	f := &Frame{
		Width:  w,
		Height: h,
		Gray:   make([]uint8, n),
		Hue:    make([]uint8, n),
		Sat:    make([]uint8, n),
		Val:    make([]uint8, n),
	}

	for y := range h {
		for x := range w {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			r, g, b := c.R, c.G, c.B
			i := y*w + x
			f.Gray[i] = grayBT601(r, g, b)
			f.Hue[i], f.Sat[i], f.Val[i] = rgbToHSV(r, g, b)
		}
	}
	return f
}

// Pixels returns the pixel count.
func (f *Frame) Pixels() int {
	return f.Width * f.Height
}

// Dimensions renders the frame size as "WxH".
func (f *Frame) Dimensions() string {
	return strconv.Itoa(f.Width) + "x" + strconv.Itoa(f.Height)
}
