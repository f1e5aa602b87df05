package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"neurogrid/internal/sim"
)

type Mode string

const (
	ModeRunning  Mode = "running"
	ModePaused   Mode = "paused"
	ModeStepping Mode = "stepping"
)

var ErrUnknownCommand = errors.New("unknown control command")

// Command is a control message from a renderer.
type Command struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// Controller accepts control commands.
type Controller interface {
	Control(cmd Command) error
}

// Publisher receives one frame per completed tick.
type Publisher interface {
	Publish(frame Frame) error
}

// Stepper produces the next state; *sim.Simulation is one.
type Stepper interface {
	Step(state sim.State) (sim.State, error)
}

type DriverOptions struct {
	// Interval is the delay between ticks while running.
	Interval time.Duration
	// StartPaused holds the driver until a run or step command arrives.
	StartPaused bool
	// WithNetwork attaches the most evolved network to every frame.
	WithNetwork bool
	Logger      *slog.Logger
}

// Driver owns the current state and advances it according to its mode. Ticks
// never overlap: a tick completes, is published, and only then can the next
// one start.
type Driver struct {
	stepper   Stepper
	publisher Publisher
	options   DriverOptions
	logger    *slog.Logger

	mu      sync.Mutex
	state   sim.State
	mode    Mode
	pending int
}

func NewDriver(stepper Stepper, initial sim.State, publisher Publisher, options DriverOptions) *Driver {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if options.Interval <= 0 {
		options.Interval = 50 * time.Millisecond
	}
	mode := ModeRunning
	if options.StartPaused {
		mode = ModePaused
	}
	return &Driver{
		stepper:   stepper,
		publisher: publisher,
		options:   options,
		logger:    logger,
		state:     initial,
		mode:      mode,
	}
}

func (d *Driver) State() sim.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Driver) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Control applies a run, pause or step command. Step adds Value ticks (at
// least one) to the pending count.
func (d *Driver) Control(cmd Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch cmd.Type {
	case "run":
		d.mode = ModeRunning
		d.pending = 0
	case "pause":
		d.mode = ModePaused
		d.pending = 0
	case "step":
		n := int(cmd.Value)
		if n < 1 {
			n = 1
		}
		d.mode = ModeStepping
		d.pending += n
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	d.logger.Info("driver control", "command", cmd.Type, "value", cmd.Value, "mode", string(d.mode), "pending", d.pending)
	return nil
}

// Tick advances one tick if the mode allows it and reports whether it did.
func (d *Driver) Tick() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.mode {
	case ModePaused:
		return false, nil
	case ModeStepping:
		if d.pending <= 0 {
			d.mode = ModePaused
			return false, nil
		}
	}

	next, err := d.stepper.Step(d.state)
	if err != nil {
		return false, err
	}
	d.state = next
	if d.mode == ModeStepping {
		d.pending--
		if d.pending == 0 {
			d.mode = ModePaused
		}
	}

	if d.publisher != nil {
		frame := NewFrame(next, d.options.WithNetwork)
		frame.Mode = d.mode
		if err := d.publisher.Publish(frame); err != nil {
			d.logger.Warn("publish frame failed", "tick", next.Tick, "error", err)
		}
	}
	return true, nil
}

// Run ticks every Interval until ctx is done or a step fails.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.options.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.Tick(); err != nil {
				d.logger.Error("simulation step failed", "tick", d.State().Tick, "error", err)
				return err
			}
		}
	}
}
