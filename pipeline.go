package denoise

// RgbImage is the minimal image contract the surrounding raw pipeline
// supplies and receives: three same-sized float32 planes, plane order
// R, G, B. Values are on a [0, 65535] working-space scale. Denoise applies
// its gamma LUT to the source on the way in; the destination is mapped back
// through the inverse LUT only when IsRaw is false.
type RgbImage struct {
	W, H    int
	R, G, B []float32
}

func (img *RgbImage) at(ch []float32, x, y int) float32 {
	return ch[y*img.W+x]
}

func (img *RgbImage) set(ch []float32, x, y int, v float32) {
	ch[y*img.W+x] = v
}

// PipelineAdapter is the minimal contract between the surrounding raw
// pipeline and this denoise core: it supplies the input image, the
// working-profile matrices, exposure gain, and noise curves, and
// receives the denoised image. It does no image processing itself; it
// exists so callers can swap in alternate sources (e.g. test fixtures)
// without depending on a concrete pipeline type.
type PipelineAdapter interface {
	Source() *RgbImage
	Destination() *RgbImage
	Profile() *WorkingProfile
	Exposure() float32
	NoiseCurves() *NoiseCurves
	IsRaw() bool
}

// staticAdapter is the trivial PipelineAdapter used when a caller already
// holds concrete values and does not need a custom implementation.
type staticAdapter struct {
	src, dst *RgbImage
	wp       *WorkingProfile
	exposure float32
	nc       *NoiseCurves
	isRaw    bool
}

func NewStaticAdapter(src, dst *RgbImage, wp *WorkingProfile, exposure float32, nc *NoiseCurves, isRaw bool) PipelineAdapter {
	return &staticAdapter{src: src, dst: dst, wp: wp, exposure: exposure, nc: nc, isRaw: isRaw}
}

func (a *staticAdapter) Source() *RgbImage         { return a.src }
func (a *staticAdapter) Destination() *RgbImage    { return a.dst }
func (a *staticAdapter) Profile() *WorkingProfile  { return a.wp }
func (a *staticAdapter) Exposure() float32         { return a.exposure }
func (a *staticAdapter) NoiseCurves() *NoiseCurves { return a.nc }
func (a *staticAdapter) IsRaw() bool               { return a.isRaw }
