// Package geometry holds the pure numeric transforms behind comment
// placement: viewport fitting, the Flash rotation projection and the
// colorspace conversion ASS players expect.
package geometry

import "math"

// Zoom maps coordinates from a source viewport onto a target stage with a
// uniform scale and centered letterbox/pillarbox offsets:
// new = Scale*old + offset.
type Zoom struct {
	Scale  float64
	DX, DY float64
}

// ZoomFactor fits the source viewport into the target stage preserving
// aspect ratio. Zero-sized input degenerates to the identity transform.
func ZoomFactor(srcW, srcH, dstW, dstH float64) Zoom {
	if srcW == 0 || srcH == 0 || dstW == 0 || dstH == 0 {
		return Zoom{Scale: 1}
	}
	srcAspect := srcW / srcH
	dstAspect := dstW / dstH
	switch {
	case dstAspect < srcAspect: // target narrower: letterbox
		return Zoom{Scale: dstW / srcW, DY: (dstH - dstW/srcAspect) / 2}
	case dstAspect > srcAspect: // target wider: pillarbox
		return Zoom{Scale: dstH / srcH, DX: (dstW - dstH*srcAspect) / 2}
	default:
		return Zoom{Scale: dstW / srcW}
	}
}

func (z Zoom) X(x float64) float64 { return z.Scale*x + z.DX }
func (z Zoom) Y(y float64) float64 { return z.Scale*y + z.DY }

// Rotation is the ASS-side decomposition of a Flash rotation pair applied at
// an anchor point: the projected anchor, \frx/\fry/\frz angles in degrees
// and \fscx/\fscy scales in percent.
type Rotation struct {
	X, Y             float64
	RotX, RotY, RotZ float64
	ScaleX, ScaleY   float64
}

// FlashRotation converts a Flash-engine (rotate_y, rotate_z) pair plus a 2-D
// anchor into ASS rotation angles and a perspective scale. The field of view
// follows the Flash player, FOV = width*tan(40°)/2; see
// https://github.com/jabbany/CommentCoreLibrary/issues/5 for the derivation.
//
// approx is true when the projection degenerates (object behind the camera
// or at the camera plane) and the result is a sign-flipped approximation.
func FlashRotation(rotY, rotZ int, x, y, width, height float64) (r Rotation, approx bool) {
	ry := WrapAngle(float64(rotY))
	rz := WrapAngle(float64(rotZ))
	// cos(±90°) == 0 makes the projection singular.
	if ry == 90 || ry == -90 {
		ry--
	}
	var outX, outY, outZ float64
	if ry == 0 || rz == 0 {
		outY = -ry // positive means clockwise in Flash
		outZ = -rz
		ry *= math.Pi / 180
		rz *= math.Pi / 180
	} else {
		ry *= math.Pi / 180
		rz *= math.Pi / 180
		outY = math.Atan2(-math.Sin(ry)*math.Cos(rz), math.Cos(ry)) * 180 / math.Pi
		outZ = math.Atan2(-math.Cos(ry)*math.Sin(rz), math.Cos(rz)) * 180 / math.Pi
		outX = math.Asin(math.Sin(ry)*math.Sin(rz)) * 180 / math.Pi
	}

	trX := (x*math.Cos(rz)+y*math.Sin(rz))/math.Cos(ry) +
		(1-math.Cos(rz)/math.Cos(ry))*width/2 -
		math.Sin(rz)/math.Cos(ry)*height/2
	trY := y*math.Cos(rz) - x*math.Sin(rz) + math.Sin(rz)*width/2 + (1-math.Cos(rz))*height/2
	trZ := (trX - width/2) * math.Sin(ry)

	fov := width * math.Tan(2*math.Pi/9) / 2
	scale := 1.0
	if fov+trZ != 0 {
		scale = fov / (fov + trZ)
	} else {
		approx = true
	}
	trX = (trX-width/2)*scale + width/2
	trY = (trY-height/2)*scale + height/2
	if scale < 0 {
		scale = -scale
		outX += 180
		outY += 180
		approx = true
	}
	return Rotation{
		X:      trX,
		Y:      trY,
		RotX:   WrapAngle(outX),
		RotY:   WrapAngle(outY),
		RotZ:   WrapAngle(outZ),
		ScaleX: scale * 100,
		ScaleY: scale * 100,
	}, approx
}

// WrapAngle folds a degree value into (-180, 180].
func WrapAngle(deg float64) float64 {
	m := math.Mod(180-deg, 360)
	if m < 0 {
		m += 360
	}
	return 180 - m
}
