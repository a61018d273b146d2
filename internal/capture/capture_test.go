package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"
	"time"
)

type fakeDevice struct {
	frame  image.Image
	closed bool
	mu     sync.Mutex
}

func (d *fakeDevice) Frame(ctx context.Context) (image.Image, error) {
	return d.frame, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

type fakeOpener struct {
	mu      sync.Mutex
	// errs[i] is returned for attempt i; nil means success.
	errs    []error
	opened  []Constraints
	devices []*fakeDevice
	block   chan struct{} // when set, Open waits on it
	entered chan struct{} // signalled when Open is entered
}

func (o *fakeOpener) Open(ctx context.Context, c Constraints) (Device, error) {
	if o.entered != nil {
		o.entered <- struct{}{}
	}
	if o.block != nil {
		<-o.block
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	attempt := len(o.opened)
	o.opened = append(o.opened, c)

	if attempt < len(o.errs) && o.errs[attempt] != nil {
		return nil, o.errs[attempt]
	}
	d := &fakeDevice{frame: solidFrame(8, 8, color.RGBA{R: 255, A: 255})}
	o.devices = append(o.devices, d)
	return d, nil
}

func solidFrame(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func newTestPipeline(opener Opener) *Pipeline {
	p := NewPipeline(opener, Options{ScanInterval: time.Millisecond})
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func TestEncodeSample_Mirrors(t *testing.T) {
	// Left half red, right half blue. After mirroring the left edge is blue.
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			if x < 20 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}

	sample, err := EncodeSample(img, 640, 85)
	if err != nil {
		t.Fatalf("EncodeSample() error = %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(sample))
	if err != nil {
		t.Fatalf("decoding sample: %v", err)
	}

	r, _, b, _ := decoded.At(2, 10).RGBA()
	if b <= r {
		t.Errorf("left edge after mirror: r=%d b=%d, want blue dominant", r, b)
	}
	r, _, b, _ = decoded.At(37, 10).RGBA()
	if r <= b {
		t.Errorf("right edge after mirror: r=%d b=%d, want red dominant", r, b)
	}
}

func TestEncodeSample_Downscales(t *testing.T) {
	sample, err := EncodeSample(solidFrame(1280, 720, color.White), 640, 85)
	if err != nil {
		t.Fatalf("EncodeSample() error = %v", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(sample))
	if err != nil {
		t.Fatalf("decoding sample config: %v", err)
	}
	if cfg.Width != 640 {
		t.Errorf("width = %d, want 640", cfg.Width)
	}
	if cfg.Height != 360 {
		t.Errorf("height = %d, want 360", cfg.Height)
	}
}

func TestEncodeSample_KeepsSmallFrames(t *testing.T) {
	sample, err := EncodeSample(solidFrame(320, 240, color.White), 640, 85)
	if err != nil {
		t.Fatalf("EncodeSample() error = %v", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(sample))
	if err != nil {
		t.Fatalf("decoding sample config: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 240 {
		t.Errorf("dimensions = %dx%d, want 320x240 unchanged", cfg.Width, cfg.Height)
	}
}

func TestPipeline_ConstraintFallback(t *testing.T) {
	opener := &fakeOpener{errs: []error{errors.New("overconstrained"), nil}}
	p := newTestPipeline(opener)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p.State() != StateReady {
		t.Errorf("state = %s, want ready", p.State())
	}
	if len(opener.opened) != 2 {
		t.Fatalf("open attempts = %d, want 2", len(opener.opened))
	}
	if !opener.opened[0].FacingFront || opener.opened[0].Width != 640 {
		t.Errorf("first attempt = %+v, want front 640x480", opener.opened[0])
	}
	if !opener.opened[1].FacingFront || opener.opened[1].Width != 0 {
		t.Errorf("second attempt = %+v, want front camera without dimensions", opener.opened[1])
	}
}

func TestPipeline_BusyIsTerminal(t *testing.T) {
	opener := &fakeOpener{errs: []error{ErrDeviceBusy}}
	p := newTestPipeline(opener)

	err := p.Start(context.Background())
	if !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("Start() error = %v, want ErrDeviceBusy", err)
	}
	if len(opener.opened) != 1 {
		t.Errorf("open attempts = %d, want 1 (no fallback past busy)", len(opener.opened))
	}
	if p.State() != StateError {
		t.Errorf("state = %s, want error", p.State())
	}
	if !errors.Is(p.Err(), ErrDeviceBusy) {
		t.Errorf("Err() = %v, want ErrDeviceBusy", p.Err())
	}
}

func TestPipeline_PermissionIsTerminal(t *testing.T) {
	opener := &fakeOpener{errs: []error{ErrDevicePermission}}
	p := newTestPipeline(opener)

	if err := p.Start(context.Background()); !errors.Is(err, ErrDevicePermission) {
		t.Fatalf("Start() error = %v, want ErrDevicePermission", err)
	}
	if len(opener.opened) != 1 {
		t.Errorf("open attempts = %d, want 1", len(opener.opened))
	}
}

func TestPipeline_AllConstraintsFail(t *testing.T) {
	opener := &fakeOpener{errs: []error{
		errors.New("overconstrained"),
		errors.New("not found"),
		errors.New("not found"),
	}}
	p := newTestPipeline(opener)

	if err := p.Start(context.Background()); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("Start() error = %v, want ErrNoDevice", err)
	}
	if len(opener.opened) != 3 {
		t.Errorf("open attempts = %d, want 3", len(opener.opened))
	}
}

func TestPipeline_StartIsSingleFlight(t *testing.T) {
	opener := &fakeOpener{
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	p := newTestPipeline(opener)

	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background()) }()

	<-opener.entered

	// Second Start while the first is mid-acquisition must be a no-op.
	if err := p.Start(context.Background()); err != nil {
		t.Errorf("concurrent Start() error = %v, want nil", err)
	}

	close(opener.block)
	if err := <-done; err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if len(opener.opened) != 1 {
		t.Errorf("open attempts = %d, want 1", len(opener.opened))
	}
}

func TestPipeline_RestartReleasesOldDevice(t *testing.T) {
	opener := &fakeOpener{}
	p := newTestPipeline(opener)
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if err := p.Start(ctx); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	if len(opener.devices) != 2 {
		t.Fatalf("devices opened = %d, want 2", len(opener.devices))
	}
	if !opener.devices[0].closed {
		t.Error("first device not closed before re-acquisition")
	}
	if opener.devices[1].closed {
		t.Error("second device closed while still active")
	}
}

func TestPipeline_CaptureBeforeStart(t *testing.T) {
	p := newTestPipeline(&fakeOpener{})

	if _, err := p.CaptureNow(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("CaptureNow() error = %v, want ErrNotReady", err)
	}
}

func TestPipeline_Scan(t *testing.T) {
	p := newTestPipeline(&fakeOpener{})
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var samples int
	err := p.Scan(ctx, func(sample []byte) (bool, error) {
		if len(sample) == 0 {
			t.Error("empty sample delivered")
		}
		samples++
		return samples == 3, nil
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if samples != 3 {
		t.Errorf("samples = %d, want 3", samples)
	}
	if p.State() != StateReady {
		t.Errorf("state after scan = %s, want ready", p.State())
	}
}

func TestPipeline_ScanCancellation(t *testing.T) {
	p := newTestPipeline(&fakeOpener{})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := p.Scan(ctx, func(sample []byte) (bool, error) {
		cancel()
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Scan() error = %v, want context.Canceled", err)
	}
}

func TestPipeline_Close(t *testing.T) {
	opener := &fakeOpener{}
	p := newTestPipeline(opener)
	ctx := context.Background()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if p.State() != StateClosed {
		t.Errorf("state = %s, want closed", p.State())
	}
	if !opener.devices[0].closed {
		t.Error("device not released on Close")
	}

	if _, err := p.CaptureNow(ctx); !errors.Is(err, ErrNotReady) {
		t.Errorf("CaptureNow() after Close error = %v, want ErrNotReady", err)
	}
}
