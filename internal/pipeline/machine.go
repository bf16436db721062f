package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/projectlend/lend/internal/camera"
	"github.com/projectlend/lend/internal/models"
	"github.com/projectlend/lend/internal/motion"
	"github.com/projectlend/lend/internal/storage"
	"github.com/projectlend/lend/internal/vision"
)

// State is the current phase of the detection/classification/actuation cycle.
type State int

const (
	StateWarmup State = iota
	StateWatching
	StateSettling
	StateClassifying
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateWarmup:
		return "warmup"
	case StateWatching:
		return "watching"
	case StateSettling:
		return "settling"
	case StateClassifying:
		return "classifying"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// FrameProvider is the read side of the camera's latest-frame slot.
type FrameProvider interface {
	Latest() *camera.Frame
	Active() bool
}

// DonationLog is the append side of the event log.
type DonationLog interface {
	Append(ctx context.Context, d *models.Donation) error
}

// classifyOutcome carries one resolved classification attempt back onto the
// tick path.
type classifyOutcome struct {
	result *vision.Classification
	image  []byte
	err    error
}

// Machine is the orchestration core: a state machine driven by a steady tick
// against the latest camera frame. Motion detection runs inline (cheap);
// classification and actuation are dispatched as asynchronous work so the
// tick never blocks on I/O. All state is owned by the tick goroutine.
type Machine struct {
	cfg        Config
	classifier vision.Classifier
	sorter     *SortQueue
	donations  DonationLog
	images     storage.Storage
	status     *StatusPublisher

	state         State
	warmupCount   int
	prevGray      *motion.Gray
	lastSeq       uint64
	lastMotion    time.Time
	readFailures  int
	cooldownUntil time.Time
	reseedPrev    bool
	lastArea      int
	lastResult    *LastResult
	cameraActive  bool

	// Non-nil exactly while one classification call is outstanding.
	classifyDone chan classifyOutcome
}

func NewMachine(cfg Config, classifier vision.Classifier, sorter *SortQueue, donations DonationLog, images storage.Storage, status *StatusPublisher) *Machine {
	return &Machine{
		cfg:          cfg,
		classifier:   classifier,
		sorter:       sorter,
		donations:    donations,
		images:       images,
		status:       status,
		state:        StateWarmup,
		cameraActive: true,
	}
}

// Run drives the tick loop until the context is cancelled. Frame production
// is independent: if capture outpaces the tick, frames are silently dropped;
// the tick only ever sees the latest one.
func (m *Machine) Run(ctx context.Context, source FrameProvider) {
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	log.Printf("Pipeline running: warmup=%d frames, settle=%s, cooldown=%s, arm=%v",
		m.cfg.WarmupFrames, m.cfg.SettleTime, m.cfg.Cooldown, m.cfg.UseArm)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.cameraActive = source.Active()
			m.Tick(source.Latest(), now)
		}
	}
}

// Tick advances the state machine by exactly one step. Total: every call
// yields exactly one next state and publishes a fresh snapshot. A nil frame,
// or one already seen on a previous tick, counts as a camera read failure.
func (m *Machine) Tick(frame *camera.Frame, now time.Time) {
	fresh := frame != nil && frame.Seq != m.lastSeq
	if fresh {
		m.lastSeq = frame.Seq
	}

	switch m.state {
	case StateWarmup:
		m.tickWarmup(frame, fresh)
	case StateWatching:
		m.tickWatching(frame, fresh, now)
	case StateSettling:
		m.tickSettling(frame, fresh, now)
	case StateClassifying:
		m.tickClassifying(now)
	case StateCooldown:
		m.tickCooldown(frame, fresh, now)
	}

	m.publish(now)
}

func (m *Machine) tickWarmup(frame *camera.Frame, fresh bool) {
	if !fresh {
		// Camera may still be initializing; start the count over.
		if m.warmupCount > 0 {
			log.Printf("Camera read failed during warmup, restarting count")
		}
		m.warmupCount = 0
		return
	}

	m.warmupCount++
	if m.warmupCount < m.cfg.WarmupFrames {
		return
	}

	gray, err := motion.FromJPEG(frame.Data)
	if err != nil {
		log.Printf("Failed to decode warmup frame: %v", err)
		m.warmupCount = 0
		return
	}
	m.prevGray = gray
	m.setState(StateWatching)
}

func (m *Machine) tickWatching(frame *camera.Frame, fresh bool, now time.Time) {
	if m.reseedPrev {
		// The baseline still shows the sorted item; diffing against it
		// would re-trigger on the now-empty zone. Take the first fresh
		// frame as the new baseline and skip detection this tick.
		if fresh {
			if gray, err := motion.FromJPEG(frame.Data); err == nil {
				m.prevGray = gray
				m.reseedPrev = false
			}
		}
		m.lastArea = 0
		return
	}

	if !fresh {
		log.Printf("Camera read failed, treating as no motion")
		m.lastArea = 0
		return
	}

	gray, err := motion.FromJPEG(frame.Data)
	if err != nil {
		log.Printf("Failed to decode frame: %v", err)
		m.lastArea = 0
		return
	}

	sample := motion.Detect(m.prevGray, gray, m.cfg.MotionThreshold, m.cfg.MotionMinArea)
	m.prevGray = gray
	m.lastArea = sample.Area

	if sample.Present {
		m.lastMotion = now
		m.readFailures = 0
		m.setState(StateSettling)
		log.Printf("Motion detected (area=%d)", sample.Area)
	}
}

func (m *Machine) tickSettling(frame *camera.Frame, fresh bool, now time.Time) {
	var gray *motion.Gray
	if fresh {
		var err error
		gray, err = motion.FromJPEG(frame.Data)
		if err != nil {
			log.Printf("Failed to decode frame: %v", err)
			gray = nil
		}
	}

	if gray == nil {
		// Don't settle on stale data: give up after three bad reads in a row.
		m.readFailures++
		if m.readFailures >= 3 {
			log.Printf("Abandoning settle after repeated camera read failures")
			m.readFailures = 0
			m.setState(StateWatching)
		}
		return
	}
	m.readFailures = 0

	sample := motion.Detect(m.prevGray, gray, m.cfg.MotionThreshold, m.cfg.MotionMinArea)
	m.prevGray = gray
	m.lastArea = sample.Area

	if sample.Present {
		// Renewed motion extends the settle window; the window measures
		// "no new motion for SettleTime", not time since entering Settling.
		m.lastMotion = now
		return
	}

	if now.Sub(m.lastMotion) >= m.cfg.SettleTime {
		m.setState(StateClassifying)
		m.dispatchClassification(frame.Data)
	}
}

func (m *Machine) dispatchClassification(image []byte) {
	if m.classifyDone != nil {
		// Never two calls outstanding. Shouldn't happen: dispatch only runs
		// on the Settling -> Classifying transition.
		log.Printf("[WARN] Classification already in flight, skipping dispatch")
		return
	}

	done := make(chan classifyOutcome, 1)
	m.classifyDone = done
	timeout := m.cfg.ClassifyTimeout

	log.Printf("Classifying frame (%d bytes)", len(image))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := m.classifier.ClassifyDetailed(ctx, image)
		done <- classifyOutcome{result: result, image: image, err: err}
	}()
}

func (m *Machine) tickClassifying(now time.Time) {
	select {
	case outcome := <-m.classifyDone:
		m.classifyDone = nil
		if outcome.err != nil {
			// Terminal for this cycle only: no record, no actuation, and the
			// pipeline still advances. A human can re-present the item.
			log.Printf("Classification error: %v", outcome.err)
		} else {
			m.recordDonation(outcome)
		}
		m.cooldownUntil = now.Add(m.cfg.Cooldown)
		m.setState(StateCooldown)
	default:
		// Still waiting; frame acquisition continues off this path.
	}
}

func (m *Machine) recordDonation(outcome classifyOutcome) {
	result := outcome.result
	log.Printf("Classified: %s (%s)", result.ItemName, result.Category)

	imagePath, err := m.images.SaveImage(outcome.image)
	if err != nil {
		log.Printf("[WARN] Failed to save donation image: %v", err)
	}

	var expiry *string
	if result.EstimatedExpiry != "" {
		expiry = &result.EstimatedExpiry
	}

	donation := models.NewDonation(string(result.Category), result.ItemName,
		result.EstimatedWeightLbs, expiry, imagePath)

	// Losing a record silently would defeat the system's purpose, so a
	// persistence failure is loud. It still must not stop the loop.
	if err := m.donations.Append(context.Background(), donation); err != nil {
		log.Printf("[WARN] Failed to log donation: %v", err)
	} else {
		log.Printf("Logged donation #%d", donation.ID)
	}

	m.lastResult = &LastResult{
		DonationID: donation.ID,
		Category:   string(result.Category),
		ItemName:   result.ItemName,
	}

	// The arm runs on its own worker; an actuator fault never stalls the
	// vision loop, and the donation record above stands either way.
	if m.cfg.UseArm && m.sorter != nil {
		m.sorter.Enqueue(result.Category)
	}
}

func (m *Machine) tickCooldown(frame *camera.Frame, fresh bool, now time.Time) {
	if now.Before(m.cooldownUntil) {
		return
	}

	m.reseedPrev = true
	if fresh {
		if gray, err := motion.FromJPEG(frame.Data); err == nil {
			m.prevGray = gray
			m.reseedPrev = false
		}
	}
	m.lastArea = 0
	m.setState(StateWatching)
}

func (m *Machine) setState(next State) {
	if m.state != next {
		log.Printf("[STATE] %s -> %s", m.state, next)
	}
	m.state = next
}

// State returns the current phase. Safe only from the tick goroutine; other
// readers use the published snapshot.
func (m *Machine) State() State {
	return m.state
}

func (m *Machine) publish(now time.Time) {
	snap := Snapshot{
		State:        m.state.String(),
		MotionArea:   m.lastArea,
		CameraActive: m.cameraActive,
		LastResult:   m.lastResult,
	}

	switch m.state {
	case StateWarmup:
		snap.StatusText = fmt.Sprintf("Warming up camera (%d/%d)", m.warmupCount, m.cfg.WarmupFrames)
	case StateWatching:
		snap.StatusText = "Watching for item"
	case StateSettling:
		snap.StatusText = "Item detected, settling"
	case StateClassifying:
		snap.StatusText = "Classifying with Claude"
	case StateCooldown:
		remaining := m.cooldownUntil.Sub(now).Seconds()
		if remaining < 0 {
			remaining = 0
		}
		snap.CooldownRemaining = remaining
		snap.StatusText = fmt.Sprintf("Cooldown %.1fs", remaining)
	}

	if !m.cameraActive {
		snap.StatusText = "Camera offline"
	}

	m.status.Publish(snap)
}
