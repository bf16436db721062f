package motion

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
)

// Sample is the result of comparing two frames.
type Sample struct {
	Area    int
	Present bool
}

// Gray is a single-channel luminance image.
type Gray struct {
	Pix  []uint8
	W, H int
}

// FromImage converts a decoded image to blurred luminance. The blur knocks
// down per-pixel sensor noise that would otherwise register as motion.
func FromImage(img image.Image) *Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	g := &Gray{Pix: make([]uint8, w*h), W: w, H: h}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gr, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// BT.601 luma, 16-bit channels down to 8-bit
			luma := (299*r + 587*gr + 114*b) / 1000
			g.Pix[y*w+x] = uint8(luma >> 8)
		}
	}

	return g.boxBlur()
}

// FromJPEG decodes JPEG bytes and converts to blurred luminance.
func FromJPEG(data []byte) (*Gray, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return FromImage(img), nil
}

// boxBlur applies a single 3x3 box filter.
func (g *Gray) boxBlur() *Gray {
	out := &Gray{Pix: make([]uint8, len(g.Pix)), W: g.W, H: g.H}
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			var sum, count int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= g.W || ny >= g.H {
						continue
					}
					sum += int(g.Pix[ny*g.W+nx])
					count++
				}
			}
			out.Pix[y*g.W+x] = uint8(sum / count)
		}
	}
	return out
}

// Detect compares two luminance frames and reports the largest contiguous
// changed region. Pure function: a fresh previous/current pair is required
// every call; the caller owns frame retention.
//
// Pipeline: per-pixel absolute difference, binarize at threshold, one 3x3
// dilation pass to bridge small gaps, then largest 4-connected component.
func Detect(prev, curr *Gray, threshold uint8, minArea int) Sample {
	if prev == nil || curr == nil || prev.W != curr.W || prev.H != curr.H {
		return Sample{}
	}

	w, h := curr.W, curr.H
	changed := make([]bool, w*h)
	for i := range curr.Pix {
		d := int(curr.Pix[i]) - int(prev.Pix[i])
		if d < 0 {
			d = -d
		}
		if d >= int(threshold) {
			changed[i] = true
		}
	}

	dilated := dilate(changed, w, h)
	area := largestRegion(dilated, w, h)

	return Sample{Area: area, Present: area >= minArea}
}

func dilate(mask []bool, w, h int) []bool {
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					out[ny*w+nx] = true
				}
			}
		}
	}
	return out
}

// largestRegion flood-fills 4-connected components with an explicit stack
// and returns the largest area found.
func largestRegion(mask []bool, w, h int) int {
	visited := make([]bool, len(mask))
	stack := make([]int, 0, 256)
	largest := 0

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}
		area := 0
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			area++

			x, y := idx%w, idx/w
			neighbors := [4]int{-1, -1, -1, -1}
			if x > 0 {
				neighbors[0] = idx - 1
			}
			if x < w-1 {
				neighbors[1] = idx + 1
			}
			if y > 0 {
				neighbors[2] = idx - w
			}
			if y < h-1 {
				neighbors[3] = idx + w
			}
			for _, n := range neighbors {
				if n >= 0 && mask[n] && !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
		if area > largest {
			largest = area
		}
	}
	return largest
}
