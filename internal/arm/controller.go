package arm

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/projectlend/lend/internal/vision"
	"github.com/tarm/serial"
)

const (
	defaultBaud = 9600

	// Movement duration for a single pose change.
	moveDuration = 1500 * time.Millisecond

	// Gripper servo (id 1) calibration.
	gripperServoID  = 1
	gripperOpenPos  = 50
	gripperClosePos = 700

	// Pause between sequence steps so the mechanics settle.
	stepPause = 300 * time.Millisecond
)

// Port is the subset of the serial port the controller needs.
type Port interface {
	io.WriteCloser
}

// Controller drives the xArm bus-servo board over a serial port. Every move
// is a blocking hardware call: the command is written and the controller
// waits out the commanded duration.
type Controller struct {
	port  Port
	sleep func(time.Duration)
}

// Open connects to the servo controller on the given serial device.
func Open(device string) (*Controller, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name: device,
		Baud: defaultBaud,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open arm serial port %s: %w", device, err)
	}
	log.Printf("Connected to arm on %s", device)
	return NewController(port), nil
}

// NewController wraps an already-open port. Used by tests with a fake port.
func NewController(port Port) *Controller {
	return &Controller{port: port, sleep: time.Sleep}
}

func (c *Controller) Close() error {
	return c.port.Close()
}

func (c *Controller) moveServos(moves []ServoMove, duration time.Duration) error {
	frame, err := servoMoveFrame(moves, duration)
	if err != nil {
		return err
	}
	if _, err := c.port.Write(frame); err != nil {
		return fmt.Errorf("failed to write servo command: %w", err)
	}
	c.sleep(duration)
	return nil
}

// MoveToPose moves all six servos to a pose.
func (c *Controller) MoveToPose(pose Pose) error {
	moves := make([]ServoMove, 6)
	for i := 0; i < 6; i++ {
		moves[i] = ServoMove{ID: uint8(i + 1), Position: pose[i]}
	}
	return c.moveServos(moves, moveDuration)
}

// MoveBody moves servos 2-6 only, leaving the gripper unchanged.
func (c *Controller) MoveBody(pose Pose) error {
	moves := make([]ServoMove, 5)
	for i := 1; i < 6; i++ {
		moves[i-1] = ServoMove{ID: uint8(i + 1), Position: pose[i]}
	}
	return c.moveServos(moves, moveDuration)
}

func (c *Controller) GripperOpen() error {
	return c.moveServos([]ServoMove{{ID: gripperServoID, Position: gripperOpenPos}}, moveDuration)
}

func (c *Controller) GripperClose() error {
	return c.moveServos([]ServoMove{{ID: gripperServoID, Position: gripperClosePos}}, moveDuration)
}

// SortError identifies which step of the pick-and-place sequence failed.
type SortError struct {
	Step int
	Name string
	Err  error
}

func (e *SortError) Error() string {
	return fmt.Sprintf("sort step %d (%s): %v", e.Step, e.Name, e.Err)
}

func (e *SortError) Unwrap() error {
	return e.Err
}

// SortToBin picks the item from the donation zone and places it in the bin
// for the category. A failure at any step aborts the remaining sequence and
// leaves the arm at its last commanded pose; commanding further motion after
// a fault risks compounding it.
func (c *Controller) SortToBin(category vision.Category) error {
	binPose, ok := CategoryPoses[category]
	if !ok {
		return fmt.Errorf("unknown category: %s", category)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"home", func() error {
			if err := c.MoveToPose(Home); err != nil {
				return err
			}
			return c.GripperOpen()
		}},
		{"pickup", func() error { return c.MoveBody(Pickup) }},
		{"grip close", c.GripperClose},
		{"lift home", func() error { return c.MoveBody(Home) }},
		{"bin", func() error { return c.MoveBody(binPose) }},
		{"release", c.GripperOpen},
		{"return home", func() error { return c.MoveToPose(Home) }},
	}

	log.Printf("Sorting item to %s bin", category)
	for i, step := range steps {
		log.Printf("  -> %s", step.name)
		if err := step.run(); err != nil {
			return &SortError{Step: i + 1, Name: step.name, Err: err}
		}
		c.sleep(stepPause)
	}
	return nil
}
