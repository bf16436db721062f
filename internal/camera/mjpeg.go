package camera

import (
	"bufio"
	"fmt"
	"io"
)

// JPEG start-of-image and end-of-image markers. ffmpeg's mjpeg muxer emits
// frames back to back with nothing in between, but the scanner tolerates
// stray bytes before a frame boundary.
var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// ReadJPEGFrame reads the next complete JPEG image from the stream,
// discarding any bytes before its start marker.
func ReadJPEGFrame(r *bufio.Reader) ([]byte, error) {
	if err := seekSOI(r); err != nil {
		return nil, err
	}

	frame := make([]byte, 0, 64*1024)
	frame = append(frame, jpegSOI...)

	var prev byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("failed to read frame body: %w", err)
		}
		frame = append(frame, b)
		if prev == jpegEOI[0] && b == jpegEOI[1] {
			return frame, nil
		}
		prev = b
	}
}

func seekSOI(r *bufio.Reader) error {
	var prev byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if prev == jpegSOI[0] && b == jpegSOI[1] {
			return nil
		}
		prev = b
	}
}
