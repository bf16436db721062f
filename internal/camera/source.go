package camera

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// Frame is an immutable snapshot of encoded image data. Data must not be
// modified after publication; consumers share the slice by reference.
type Frame struct {
	Data      []byte
	Timestamp time.Time
	Seq       uint64
}

// Config selects the capture device and format.
type Config struct {
	Device    string // e.g. "/dev/video0", or an avfoundation index on darwin
	Width     int
	Height    int
	FPS       int
	FFmpegBin string // resolved via PATH when empty
}

// Source owns the capture device. It runs ffmpeg as an MJPEG pipe and
// continuously overwrites a single latest-frame slot: one writer, any number
// of non-destructive readers, unread frames silently dropped.
type Source struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc

	mu     sync.Mutex
	latest *Frame
	seq    uint64
	active bool

	done chan struct{}
}

// Start launches the capture process and the frame-publishing goroutine.
func Start(ctx context.Context, cfg Config) (*Source, error) {
	ffmpegPath := cfg.FFmpegBin
	if ffmpegPath == "" {
		var err error
		ffmpegPath, err = exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
	}

	if cfg.Width == 0 {
		cfg.Width = 1280
	}
	if cfg.Height == 0 {
		cfg.Height = 720
	}
	if cfg.FPS == 0 {
		cfg.FPS = 30
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, ffmpegPath, captureArgs(cfg)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open capture pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start capture process: %w", err)
	}

	log.Printf("Camera capture started: device=%s %dx%d@%dfps", cfg.Device, cfg.Width, cfg.Height, cfg.FPS)

	s := &Source{
		cmd:    cmd,
		cancel: cancel,
		active: true,
		done:   make(chan struct{}),
	}

	go s.readLoop(bufio.NewReaderSize(stdout, 256*1024))

	return s, nil
}

func captureArgs(cfg Config) []string {
	inputFormat := "v4l2"
	if runtime.GOOS == "darwin" {
		inputFormat = "avfoundation"
	}
	return []string{
		"-f", inputFormat,
		"-framerate", fmt.Sprintf("%d", cfg.FPS),
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-i", cfg.Device,
		"-f", "mjpeg",
		"-q:v", "4",
		"pipe:1",
	}
}

func (s *Source) readLoop(r *bufio.Reader) {
	defer close(s.done)
	defer func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	}()

	for {
		data, err := ReadJPEGFrame(r)
		if err != nil {
			log.Printf("Camera read ended: %v", err)
			return
		}
		s.publish(data)
	}
}

func (s *Source) publish(data []byte) {
	s.mu.Lock()
	s.seq++
	s.latest = &Frame{
		Data:      data,
		Timestamp: time.Now(),
		Seq:       s.seq,
	}
	s.mu.Unlock()
}

// Latest returns the most recent frame without consuming it, or nil when no
// frame has been captured yet.
func (s *Source) Latest() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Active reports whether the capture process is still producing frames.
func (s *Source) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stop terminates the capture process and waits for the read loop to exit.
func (s *Source) Stop() {
	s.cancel()
	<-s.done
	_ = s.cmd.Wait()
}
