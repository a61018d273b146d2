package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the pipeline lifecycle phase.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateAcquiring     State = "acquiring"
	StateReady         State = "ready"
	StateStreaming     State = "streaming"
	StateError         State = "error"
	StateClosed        State = "closed"
)

// ErrNotReady means a sample was requested before the device was acquired.
var ErrNotReady = errors.New("capture pipeline is not ready")

// Options tunes the pipeline. Zero values take the package defaults, which
// match the verification backend's expectations.
type Options struct {
	MaxWidth     int
	JPEGQuality  int
	SettleDelay  time.Duration
	ScanInterval time.Duration
	Constraints  []Constraints
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.MaxWidth == 0 {
		out.MaxWidth = 640
	}
	if out.JPEGQuality == 0 {
		out.JPEGQuality = 85
	}
	if out.SettleDelay == 0 {
		out.SettleDelay = 300 * time.Millisecond
	}
	if out.ScanInterval == 0 {
		out.ScanInterval = 8 * time.Second
	}
	if len(out.Constraints) == 0 {
		out.Constraints = DefaultConstraints
	}
	return out
}

// Pipeline owns one camera device at a time. Start walks the constraint
// ladder, waits for the sensor to settle, then exposes one-shot captures and
// a continuous scan loop.
type Pipeline struct {
	opener Opener
	opts   Options

	mu        sync.Mutex
	state     State
	device    Device
	lastErr   error
	acquiring bool

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPipeline(opener Opener, opts Options) *Pipeline {
	return &Pipeline{
		opener: opener,
		opts:   opts.withDefaults(),
		state:  StateUninitialized,
		sleep:  sleepCtx,
	}
}

// State reports the current phase. Err carries the acquisition failure when
// State is StateError.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Start acquires a device. A Start while another Start is in flight is a
// no-op, so repeated user action cannot stack acquisitions. Any previously
// held device is released before the new attempt.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.acquiring {
		p.mu.Unlock()
		return nil
	}
	p.acquiring = true
	p.releaseLocked()
	p.state = StateAcquiring
	p.lastErr = nil
	p.mu.Unlock()

	device, err := p.acquire(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquiring = false
	if err != nil {
		p.state = StateError
		p.lastErr = err
		return err
	}
	p.device = device
	p.state = StateReady
	return nil
}

func (p *Pipeline) acquire(ctx context.Context) (Device, error) {
	var lastErr error
	for _, c := range p.opts.Constraints {
		device, err := p.opener.Open(ctx, c)
		if err == nil {
			// Let auto-exposure settle before the first sample.
			if err := p.sleep(ctx, p.opts.SettleDelay); err != nil {
				device.Close()
				return nil, err
			}
			return device, nil
		}
		if errors.Is(err, ErrDeviceBusy) || errors.Is(err, ErrDevicePermission) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrNoDevice
	}
	return nil, fmt.Errorf("%w: %v", ErrNoDevice, lastErr)
}

// CaptureNow grabs a single frame and encodes it as a sample.
func (p *Pipeline) CaptureNow(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	device := p.device
	ready := p.state == StateReady || p.state == StateStreaming
	p.mu.Unlock()

	if !ready || device == nil {
		return nil, ErrNotReady
	}

	frame, err := device.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return EncodeSample(frame, p.opts.MaxWidth, p.opts.JPEGQuality)
}

// Scan captures one sample immediately and then one per scan interval,
// handing each to fn. The loop stops when fn reports done, fn fails, or ctx
// is cancelled. The pipeline stays in StateStreaming for the duration.
func (p *Pipeline) Scan(ctx context.Context, fn func(sample []byte) (done bool, err error)) error {
	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return ErrNotReady
	}
	p.state = StateStreaming
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.state == StateStreaming {
			p.state = StateReady
		}
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(p.opts.ScanInterval)
	defer ticker.Stop()

	for {
		sample, err := p.CaptureNow(ctx)
		if err != nil {
			return err
		}

		done, err := fn(sample)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the device. The pipeline can be restarted with Start.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked()
	p.state = StateClosed
	return nil
}

func (p *Pipeline) releaseLocked() {
	if p.device != nil {
		p.device.Close()
		p.device = nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
