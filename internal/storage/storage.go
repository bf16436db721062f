package storage

import "io"

// Storage persists captured donation frames.
type Storage interface {
	SaveImage(data []byte) (string, error)
	OpenFile(path string) (io.ReadSeekCloser, error)
	DeleteFile(path string) error
}
