package arm

import (
	"fmt"
	"time"
)

// LOBOT bus-servo controller protocol. Frames are
// [0x55 0x55] [length] [command] [parameters...], where length counts the
// command byte, the length byte itself, and the parameters.
const (
	frameHeader = 0x55

	cmdServoMove = 0x03
)

// ServoMove targets one servo at a position in controller units (0-1000).
type ServoMove struct {
	ID       uint8
	Position int
}

// servoMoveFrame encodes a multi-servo move over the given duration.
func servoMoveFrame(moves []ServoMove, duration time.Duration) ([]byte, error) {
	if len(moves) == 0 || len(moves) > 254 {
		return nil, fmt.Errorf("invalid servo count: %d", len(moves))
	}

	ms := duration.Milliseconds()
	if ms < 0 || ms > 0xFFFF {
		return nil, fmt.Errorf("move duration out of range: %v", duration)
	}

	params := make([]byte, 0, 3+3*len(moves))
	params = append(params, byte(len(moves)), byte(ms&0xFF), byte(ms>>8))
	for _, m := range moves {
		if m.ID < 1 || m.ID > 6 {
			return nil, fmt.Errorf("invalid servo id: %d", m.ID)
		}
		pos := m.Position
		if pos < 0 {
			pos = 0
		}
		if pos > 1000 {
			pos = 1000
		}
		params = append(params, m.ID, byte(pos&0xFF), byte(pos>>8))
	}

	frame := make([]byte, 0, 4+len(params))
	frame = append(frame, frameHeader, frameHeader, byte(len(params)+2), cmdServoMove)
	frame = append(frame, params...)
	return frame, nil
}
