package plane

// BoxBlur performs a fast separable box blur of src into dst, using scratch
// as the intermediate buffer between the horizontal and vertical passes.
// scratch must have at least src.W*src.H elements; dst may alias src only
// when scratch does not alias either (the caller supplies scratch precisely
// so src==dst is safe).
//
// radiusY/radiusX must be in [0, min(W,H)/2]. A radius of 0 on an axis
// skips that pass entirely (the data is just copied through).
//
// Edge policy: at the borders the running sum uses a shrinking window
// (the window is clipped to the plane, never reflected), so corner and
// edge pixels average over fewer samples than interior pixels.
func BoxBlur(dst, src *Plane, scratch []float32, radiusY, radiusX int) {
	w, h := src.W, src.H
	if len(scratch) < w*h {
		panic("plane: BoxBlur scratch too small")
	}
	mid := scratch[:w*h]

	if radiusX > 0 {
		boxBlurHorizontal(mid, src.Data, w, h, radiusX)
	} else {
		copy(mid, src.Data)
	}
	if radiusY > 0 {
		boxBlurVertical(dst.Data, mid, w, h, radiusY)
	} else {
		copy(dst.Data, mid)
	}
}

// boxBlurHorizontal runs a sliding-window average along each row.
func boxBlurHorizontal(dst, src []float32, w, h, r int) {
	for y := 0; y < h; y++ {
		row := src[y*w : y*w+w]
		out := dst[y*w : y*w+w]

		var sum float32
		count := 0
		for i := 0; i <= r && i < w; i++ {
			sum += row[i]
			count++
		}
		out[0] = sum / float32(count)

		for x := 1; x < w; x++ {
			if add := x + r; add < w {
				sum += row[add]
				count++
			}
			if rem := x - r - 1; rem >= 0 {
				sum -= row[rem]
				count--
			}
			out[x] = sum / float32(count)
		}
	}
}

// boxBlurVertical runs a sliding-window average down each column.
func boxBlurVertical(dst, src []float32, w, h, r int) {
	for x := 0; x < w; x++ {
		var sum float32
		count := 0
		for i := 0; i <= r && i < h; i++ {
			sum += src[i*w+x]
			count++
		}
		dst[x] = sum / float32(count)

		for y := 1; y < h; y++ {
			if add := y + r; add < h {
				sum += src[add*w+x]
				count++
			}
			if rem := y - r - 1; rem >= 0 {
				sum -= src[rem*w+x]
				count--
			}
			dst[y*w+x] = sum / float32(count)
		}
	}
}
