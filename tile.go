package denoise

import (
	"math"

	"github.com/rawcore/denoise/internal/plane"
)

const tileSize = 1024
const tileOverlap = 128

// LabTile is one tile in the driver's luma/chroma working space: three
// planes of identical dimensions, plus its origin in the full image.
type LabTile struct {
	OriginX, OriginY int
	L, A, B          *plane.Plane
}

func newLabTile(x, y, w, h int) *LabTile {
	return &LabTile{
		OriginX: x, OriginY: y,
		L: plane.New(w, h),
		A: plane.New(w, h),
		B: plane.New(w, h),
	}
}

// NoiseField is a per-tile, half-resolution grid sampling two
// noise-variance values at every even (i,j) of the tile.
type NoiseField struct {
	W, H              int // tile dimensions (full resolution)
	NoiseVarLum       []float32
	NoiseVarChrom     []float32
}

func newNoiseField(w, h int) *NoiseField {
	gw := (w + 1) / 2
	gh := (h + 1) / 2
	return &NoiseField{
		W: w, H: h,
		NoiseVarLum:   make([]float32, gw*gh),
		NoiseVarChrom: make([]float32, gw*gh),
	}
}

func (nf *NoiseField) gridDims() (int, int) {
	return (nf.W + 1) / 2, (nf.H + 1) / 2
}

// at samples the half-res grid at full-resolution coordinate (x,y),
// nearest-neighbor on the 2x2 block.
func (nf *NoiseField) at(vals []float32, x, y int) float32 {
	gw, _ := nf.gridDims()
	return vals[(y/2)*gw+(x/2)]
}

// toFullLumPlane expands the half-res luma noise-variance grid to a
// full-resolution plane for consumption by the wavelet shrinker.
func (nf *NoiseField) toFullLumPlane() *plane.Plane {
	p := plane.New(nf.W, nf.H)
	for y := 0; y < nf.H; y++ {
		for x := 0; x < nf.W; x++ {
			p.Set(x, y, nf.at(nf.NoiseVarLum, x, y))
		}
	}
	return p
}

func (nf *NoiseField) toFullChromPlane() *plane.Plane {
	p := plane.New(nf.W, nf.H)
	for y := 0; y < nf.H; y++ {
		for x := 0; x < nf.W; x++ {
			p.Set(x, y, nf.at(nf.NoiseVarChrom, x, y))
		}
	}
	return p
}

// tileGeometry is the result of Tile_calc: whether the image is
// partitioned into more than one overlapping tile, and the coordinates
// of each.
type tileGeometry struct {
	NumTilesW, NumTilesH int
	TileW, TileH         int
	Tiles                []tileRect
}

type tileRect struct {
	X, Y, W, H int
}

// tileCalc implements spec.md §4.6 step 4 / §9's Open Question
// resolution: single-tile canonical path below tileSize, real feathered
// multi-tile path above it.
func tileCalc(imgW, imgH int) tileGeometry {
	if imgW <= tileSize && imgH <= tileSize {
		return tileGeometry{
			NumTilesW: 1, NumTilesH: 1,
			TileW: imgW, TileH: imgH,
			Tiles: []tileRect{{X: 0, Y: 0, W: imgW, H: imgH}},
		}
	}

	stride := tileSize - tileOverlap
	numW := ceilDivInt(imgW-tileOverlap, stride)
	numH := ceilDivInt(imgH-tileOverlap, stride)
	if numW < 1 {
		numW = 1
	}
	if numH < 1 {
		numH = 1
	}

	g := tileGeometry{NumTilesW: numW, NumTilesH: numH, TileW: tileSize, TileH: tileSize}
	for ty := 0; ty < numH; ty++ {
		y := ty * stride
		h := tileSize
		if y+h > imgH {
			h = imgH - y
		}
		for tx := 0; tx < numW; tx++ {
			x := tx * stride
			w := tileSize
			if x+w > imgW {
				w = imgW - x
			}
			g.Tiles = append(g.Tiles, tileRect{X: x, Y: y, W: w, H: h})
		}
	}
	return g
}

func ceilDivInt(a, b int) int {
	if a <= 0 {
		return 1
	}
	return (a + b - 1) / b
}

func rampUnit(d, half int) float32 {
	if d >= half {
		return 1
	}
	s := math.Sin(math.Pi * float64(d) / (2 * float64(half)))
	return float32(s * s)
}
