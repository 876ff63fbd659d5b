package denoise

import "math"

// refWhiteScale puts the D65 reference white in the same [0,65535]-ish
// domain the gamma LUT and tile pixels operate in.
const refWhiteScale = 65535.0

var (
	refWhiteX = float32(0.950489 * refWhiteScale)
	refWhiteY = float32(1.000000 * refWhiteScale)
	refWhiteZ = float32(1.088840 * refWhiteScale)
)

const labEpsilon = 216.0 / 24389.0
const labKappa = 24389.0 / 27.0

func rgbToXYZ(wp *WorkingProfile, r, g, b float32) (x, y, z float32) {
	m := wp.RGBToXYZ
	x = m[0][0]*r + m[0][1]*g + m[0][2]*b
	y = m[1][0]*r + m[1][1]*g + m[1][2]*b
	z = m[2][0]*r + m[2][1]*g + m[2][2]*b
	return
}

func xyzToRGB(wp *WorkingProfile, x, y, z float32) (r, g, b float32) {
	m := wp.XYZToRGB
	r = m[0][0]*x + m[0][1]*y + m[0][2]*z
	g = m[1][0]*x + m[1][1]*y + m[1][2]*z
	b = m[2][0]*x + m[2][1]*y + m[2][2]*z
	return
}

func labF(t float32) float32 {
	if t > labEpsilon {
		return float32(math.Cbrt(float64(t)))
	}
	return (labKappa*t + 16) / 116
}

func labFInv(t float32) float32 {
	t3 := t * t * t
	if t3 > labEpsilon {
		return t3
	}
	return (116*t - 16) / labKappa
}

func xyzToLab(x, y, z float32) (l, a, b float32) {
	fx := labF(x / refWhiteX)
	fy := labF(y / refWhiteY)
	fz := labF(z / refWhiteZ)
	l = 116*fy - 16
	a = 500 * (fx - fy)
	b = 200 * (fy - fz)
	return
}

func labToXYZ(l, a, b float32) (x, y, z float32) {
	fy := (l + 16) / 116
	fx := fy + a/500
	fz := fy - b/200
	x = refWhiteX * labFInv(fx)
	y = refWhiteY * labFInv(fy)
	z = refWhiteZ * labFInv(fz)
	return
}

// rgbToLab converts one gamma-corrected RGB sample to CIELAB via the
// working profile's RGB->XYZ matrix.
func rgbToLab(wp *WorkingProfile, r, g, b float32) (l, a, bb float32) {
	x, y, z := rgbToXYZ(wp, r, g, b)
	return xyzToLab(x, y, z)
}

// labToRGB is rgbToLab's inverse.
func labToRGB(wp *WorkingProfile, l, a, b float32) (r, g, bb float32) {
	x, y, z := labToXYZ(l, a, b)
	return xyzToRGB(wp, x, y, z)
}

// rgbToYUV is the fixed BT.601-style luma/chroma split used when
// cfg.ColorSpace == ColorSpaceYUV.
func rgbToYUV(r, g, b float32) (y, u, v float32) {
	y = 0.299*r + 0.587*g + 0.114*b
	u = -0.14713*r - 0.28886*g + 0.436*b
	v = 0.615*r - 0.51499*g - 0.10001*b
	return
}

func yuvToRGB(y, u, v float32) (r, g, b float32) {
	r = y + 1.13983*v
	g = y - 0.39465*u - 0.58060*v
	b = y + 2.03211*u
	return
}

// toWorkingSpace converts one gamma-corrected RGB sample to the driver's
// L/a/b-shaped working triple (CIELAB or YUV, chosen by cs).
func toWorkingSpace(cs ColorSpace, wp *WorkingProfile, r, g, b float32) (l, a, bb float32) {
	if cs == ColorSpaceYUV {
		return rgbToYUV(r, g, b)
	}
	return rgbToLab(wp, r, g, b)
}

// fromWorkingSpace is toWorkingSpace's inverse.
func fromWorkingSpace(cs ColorSpace, wp *WorkingProfile, l, a, b float32) (r, g, bb float32) {
	if cs == ColorSpaceYUV {
		return yuvToRGB(l, a, b)
	}
	return labToRGB(wp, l, a, b)
}
