package geometry

import (
	"math"
	"testing"
)

func TestZoomFactor_Pillarbox(t *testing.T) {
	// 4:3 source into a 16:9 target: full height, centered horizontally.
	z := ZoomFactor(672, 438, 1920, 1080)
	scale := 1080.0 / 438.0
	if math.Abs(z.Scale-scale) > 1e-9 {
		t.Fatalf("unexpected scale: %v", z.Scale)
	}
	if z.DY != 0 {
		t.Fatalf("expected no vertical offset, got %v", z.DY)
	}
	wantDX := (1920 - 1080*672.0/438.0) / 2
	if math.Abs(z.DX-wantDX) > 1e-9 {
		t.Fatalf("unexpected DX: got %v want %v", z.DX, wantDX)
	}

	// Corner round-trip: source corners land on the pillarboxed bounds.
	if got := z.X(0); math.Abs(got-wantDX) > 1e-9 {
		t.Fatalf("left edge maps to %v, want %v", got, wantDX)
	}
	if got := z.X(672); math.Abs(got-(1920-wantDX)) > 1e-9 {
		t.Fatalf("right edge maps to %v, want %v", got, 1920-wantDX)
	}
	if got := z.Y(438); math.Abs(got-1080) > 1e-9 {
		t.Fatalf("bottom edge maps to %v, want 1080", got)
	}
}

func TestZoomFactor_Letterbox(t *testing.T) {
	// 16:9 source into a 4:3 target: full width, centered vertically.
	z := ZoomFactor(1920, 1080, 640, 480)
	if z.Scale != 640.0/1920.0 || z.DX != 0 {
		t.Fatalf("unexpected zoom: %+v", z)
	}
	wantDY := (480 - 640/(1920.0/1080.0)) / 2
	if math.Abs(z.DY-wantDY) > 1e-9 {
		t.Fatalf("unexpected DY: got %v want %v", z.DY, wantDY)
	}
}

func TestZoomFactor_Degenerate(t *testing.T) {
	if z := ZoomFactor(0, 438, 1920, 1080); z != (Zoom{Scale: 1}) {
		t.Fatalf("expected identity for zero source, got %+v", z)
	}
	if z := ZoomFactor(672, 438, 1920, 0); z != (Zoom{Scale: 1}) {
		t.Fatalf("expected identity for zero target, got %+v", z)
	}
}

func TestWrapAngle(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		180:  180,
		-180: 180,
		270:  -90,
		-270: 90,
		360:  0,
		540:  180,
		45:   45,
	}
	for in, want := range cases {
		if got := WrapAngle(in); got != want {
			t.Fatalf("WrapAngle(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestFlashRotation_Identity(t *testing.T) {
	r, approx := FlashRotation(0, 0, 100, 200, 640, 480)
	if approx {
		t.Fatal("identity rotation should not be approximated")
	}
	if math.Abs(r.X-100) > 1e-9 || math.Abs(r.Y-200) > 1e-9 {
		t.Fatalf("anchor moved: (%v, %v)", r.X, r.Y)
	}
	if r.RotX != 0 || r.RotY != 0 || r.RotZ != 0 {
		t.Fatalf("unexpected rotation: %+v", r)
	}
	if r.ScaleX != 100 || r.ScaleY != 100 {
		t.Fatalf("unexpected scale: %+v", r)
	}
}

func TestFlashRotation_ZOnly(t *testing.T) {
	// A pure Z rotation maps to \frz with no perspective scaling: the anchor
	// stays in the camera plane.
	r, approx := FlashRotation(0, 30, 320, 240, 640, 480)
	if approx {
		t.Fatalf("unexpected approximation")
	}
	if r.RotZ != -30 || r.RotX != 0 || r.RotY != 0 {
		t.Fatalf("unexpected angles: %+v", r)
	}
	if math.Abs(r.ScaleX-100) > 1e-9 {
		t.Fatalf("unexpected scale: %v", r.ScaleX)
	}
}

func TestFlashRotation_CombinedAngles(t *testing.T) {
	r, _ := FlashRotation(60, 30, 0, 0, 640, 480)
	// Axis-angle decomposition from the trigonometric identities.
	wantY := math.Atan2(-math.Sin(60*math.Pi/180)*math.Cos(30*math.Pi/180), math.Cos(60*math.Pi/180)) * 180 / math.Pi
	wantZ := math.Atan2(-math.Cos(60*math.Pi/180)*math.Sin(30*math.Pi/180), math.Cos(30*math.Pi/180)) * 180 / math.Pi
	wantX := math.Asin(math.Sin(60*math.Pi/180)*math.Sin(30*math.Pi/180)) * 180 / math.Pi
	if math.Abs(r.RotY-wantY) > 1e-9 || math.Abs(r.RotZ-wantZ) > 1e-9 || math.Abs(r.RotX-wantX) > 1e-9 {
		t.Fatalf("unexpected decomposition: %+v", r)
	}
}

func TestFlashRotation_BehindCamera(t *testing.T) {
	// A near-grazing Y rotation pushes the projected anchor far behind the
	// camera; the scale must come back positive with flipped orientation.
	r, approx := FlashRotation(89, 0, 0, 0, 640, 480)
	if !approx {
		t.Fatal("expected behind-camera approximation")
	}
	if r.ScaleX < 0 || r.ScaleY < 0 {
		t.Fatalf("scale must be positive after flip: %+v", r)
	}
}

func TestASSColor_Identity(t *testing.T) {
	if got := ASSColor(0x000000, 1920, 1080); got != "000000" {
		t.Fatalf("black: %s", got)
	}
	if got := ASSColor(0xFFFFFF, 320, 240); got != "FFFFFF" {
		t.Fatalf("white: %s", got)
	}
}

func TestASSColor_SubSDSwap(t *testing.T) {
	if got := ASSColor(0x112233, 800, 500); got != "332211" {
		t.Fatalf("expected channel swap, got %s", got)
	}
	// Height at the SD threshold switches to matrix conversion.
	if got := ASSColor(0x112233, 800, 576); got == "332211" {
		t.Fatal("expected matrix conversion at SD height")
	}
}

func TestASSColor_BT709(t *testing.T) {
	// Pure red through the BT.601→709 matrix, BGR ordered.
	if got := ASSColor(0xFF0000, 1920, 1080); got != "0200E9" {
		t.Fatalf("unexpected conversion: %s", got)
	}
}
