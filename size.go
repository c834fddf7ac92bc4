package clop

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// EvenInt rounds x to the nearest integer and bumps odd results up to the
// next even one. Video encoders reject odd dimensions.
func EvenInt(x float64) int {
	n := int(math.Round(x))
	return n + n%2
}

// CropSize is a target size for cropping. A zero side means "keep the
// aspect ratio" for that side.
type CropSize struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Name     string `json:"name"`
	LongEdge bool   `json:"longEdge"`
}

// NewCropSizeFloat builds a CropSize from fractional sides, rounding each to
// an even int.
func NewCropSizeFloat(width, height float64) CropSize {
	return CropSize{Width: EvenInt(width), Height: EvenInt(height)}
}

// ID renders the size as "W×H", with "Auto" for a zero side.
func (c CropSize) ID() string {
	return side(c.Width) + "×" + side(c.Height)
}

func side(n int) string {
	if n == 0 {
		return "Auto"
	}
	return strconv.Itoa(n)
}

// AspectRatio returns width/height.
func (c CropSize) AspectRatio() float64 {
	return float64(c.Width) / float64(c.Height)
}

// Area returns the pixel area, substituting the other side for a zero one.
func (c CropSize) Area() int {
	w, h := c.Width, c.Height
	if w == 0 {
		w = c.Height
	}
	if h == 0 {
		h = c.Width
	}
	return w * h
}

// Dimensions is a width/height pair. On the wire it is a two element array
// [width, height].
type Dimensions struct {
	Width  float64
	Height float64
}

// Scaled returns d multiplied by factor, each side rounded to an even int.
func (d Dimensions) Scaled(factor float64) Dimensions {
	return Dimensions{
		Width:  float64(EvenInt(d.Width * factor)),
		Height: float64(EvenInt(d.Height * factor)),
	}
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%g×%g", d.Width, d.Height)
}

// MarshalJSON implements json.Marshaler.
func (d Dimensions) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{d.Width, d.Height})
}

// UnmarshalJSON accepts [w, h] and {"width": w, "height": h}.
func (d *Dimensions) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("dimensions: want 2 elements, got %d", len(pair))
		}
		d.Width, d.Height = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Width  *float64 `json:"width"`
		Height *float64 `json:"height"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("dimensions: %w", err)
	}
	if obj.Width == nil || obj.Height == nil {
		return fmt.Errorf("dimensions: missing width or height")
	}
	d.Width, d.Height = *obj.Width, *obj.Height
	return nil
}
