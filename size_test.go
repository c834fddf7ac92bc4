package clop

import (
	"encoding/json"
	"testing"
)

func TestEvenInt(t *testing.T) {
	tests := map[float64]int{
		0:     0,
		1:     2,
		2.4:   2,
		2.6:   4,
		3:     4,
		719.5: 720,
		1080:  1080,
	}
	for in, want := range tests {
		if got := EvenInt(in); got != want {
			t.Errorf("EvenInt(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestCropSize(t *testing.T) {
	c := NewCropSizeFloat(1279.6, 719.2)
	if c.Width != 1280 || c.Height != 720 {
		t.Fatalf("NewCropSizeFloat() = %+v, want 1280x720", c)
	}
	if got := c.ID(); got != "1280×720" {
		t.Fatalf("ID() = %q", got)
	}
	if got := c.Area(); got != 1280*720 {
		t.Fatalf("Area() = %d", got)
	}
	if got := c.AspectRatio(); got < 1.77 || got > 1.78 {
		t.Fatalf("AspectRatio() = %v, want about 16:9", got)
	}

	auto := CropSize{Height: 100}
	if got := auto.ID(); got != "Auto×100" {
		t.Fatalf("ID() = %q, want Auto×100", got)
	}
	if got := auto.Area(); got != 100*100 {
		t.Fatalf("Area() = %d, want 10000", got)
	}
}

func TestDimensions(t *testing.T) {
	d := Dimensions{Width: 1921, Height: 1081}
	if got := d.Scaled(0.5); got != (Dimensions{Width: 962, Height: 542}) {
		t.Fatalf("Scaled(0.5) = %v", got)
	}
	if got := (Dimensions{Width: 640, Height: 480}).String(); got != "640×480" {
		t.Fatalf("String() = %q", got)
	}

	data, err := json.Marshal(Dimensions{Width: 640, Height: 480})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != "[640,480]" {
		t.Fatalf("Marshal() = %s, want [640,480]", data)
	}

	for _, in := range []string{`[640,480]`, `{"width":640,"height":480}`} {
		var got Dimensions
		if err := json.Unmarshal([]byte(in), &got); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", in, err)
		}
		if got != (Dimensions{Width: 640, Height: 480}) {
			t.Fatalf("Unmarshal(%s) = %v", in, got)
		}
	}
	for _, in := range []string{`[640]`, `{"width":640}`, `"640x480"`} {
		var got Dimensions
		if err := json.Unmarshal([]byte(in), &got); err == nil {
			t.Errorf("Unmarshal(%s) error = nil, want error", in)
		}
	}
}
