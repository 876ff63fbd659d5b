package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/rawcore/denoise"
)

// pfpMagic identifies the planar-float-plane container this adapter reads
// and writes: a tiny stand-in for the raw pipeline's real image buffers,
// since RAW decoding/demosaicing is out of scope for this core (spec.md
// §1's Non-goals) and the CLI is only a thin adapter around it.
var pfpMagic = [4]byte{'P', 'F', 'P', '1'}

// readPFP loads a planar-float RGB image: a 4-byte magic, uint32 width,
// uint32 height, then W*H float32 samples for R, then G, then B, all
// little-endian.
func readPFP(path string) (*denoise.RgbImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if magic != pfpMagic {
		return nil, fmt.Errorf("not a PFP1 image container")
	}

	var w, h uint32
	if err := binary.Read(r, binary.LittleEndian, &w); err != nil {
		return nil, fmt.Errorf("reading width: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("reading height: %w", err)
	}

	img := &denoise.RgbImage{W: int(w), H: int(h)}
	for _, plane := range []*[]float32{&img.R, &img.G, &img.B} {
		buf := make([]float32, int(w)*int(h))
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return nil, fmt.Errorf("reading plane: %w", err)
		}
		*plane = buf
	}
	return img, nil
}

// writePFP writes img back out in the same container readPFP reads.
func writePFP(path string, img *denoise.RgbImage) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	if _, err := w.Write(pfpMagic[:]); err != nil {
		f.Close()
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(img.W)); err != nil {
		f.Close()
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(img.H)); err != nil {
		f.Close()
		return err
	}
	for _, plane := range [][]float32{img.R, img.G, img.B} {
		if err := binary.Write(w, binary.LittleEndian, plane); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
