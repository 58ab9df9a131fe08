// internal/audio/capture.go
// Package audio captures mono float32 samples from a sound card for live
// CW decoding.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwcodec/internal/logging"
)

var (
	ErrNotInitialized = errors.New("audio capture not initialized")
	ErrAlreadyRunning = errors.New("audio capture already running")
	ErrNotRunning     = errors.New("audio capture not running")
	// ErrInvalidChannels indicates only mono and stereo input is supported
	ErrInvalidChannels = errors.New("channels must be 1 or 2")
)

// bytesPerSample is the size of one malgo.FormatF32 sample.
const bytesPerSample = 4

// samplesQueue is how many callback blocks may wait for the consumer.
const samplesQueue = 64

// Config holds audio capture configuration
type Config struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 48000
	Channels    uint32 // 1 for mono, 2 for stereo (mixed down to mono)
	BufferSize  uint32 // frames per callback
}

// DefaultConfig returns sensible defaults for CW decoding
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		Channels:    1,
		BufferSize:  1024,
	}
}

// Device describes one capture device.
type Device struct {
	Index     int
	Name      string
	IsDefault bool
}

// Capture delivers mono samples normalized to -1.0..1.0 on Samples.
// Blocks are dropped, and counted, when the consumer falls behind.
type Capture struct {
	config  Config
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running bool
	closed  bool
	mu      sync.RWMutex
	dropped atomic.Uint64

	// Samples receives one block per device callback; closed by the first Close.
	Samples chan []float32
}

// New creates a new audio capture instance
func New(cfg Config) *Capture {
	return &Capture{
		config:  cfg,
		Samples: make(chan []float32, samplesQueue),
	}
}

// Init initializes the audio backend
func (c *Capture) Init() error {
	if c.config.Channels < 1 || c.config.Channels > 2 {
		return ErrInvalidChannels
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	c.ctx = ctx

	return nil
}

// ListDevices returns available capture devices in backend order; the
// index is what Config.DeviceIndex selects.
func (c *Capture) ListDevices() ([]Device, error) {
	infos, err := c.deviceInfos()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			Index:     i,
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		}
	}
	return devices, nil
}

func (c *Capture) deviceInfos() ([]malgo.DeviceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ctx == nil {
		return nil, ErrNotInitialized
	}

	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// Start begins audio capture. Capture stops when ctx is done.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.RLock()
	running, initialized := c.running, c.ctx != nil
	c.mu.RUnlock()
	if running {
		return ErrAlreadyRunning
	}
	if !initialized {
		return ErrNotInitialized
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.BufferSize
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = c.config.Channels

	if c.config.DeviceIndex >= 0 {
		infos, err := c.deviceInfos()
		if err != nil {
			return err
		}
		if c.config.DeviceIndex >= len(infos) {
			return fmt.Errorf("device index %d out of range (have %d devices)",
				c.config.DeviceIndex, len(infos))
		}
		deviceConfig.Capture.DeviceID = infos[c.config.DeviceIndex].ID.Pointer()
	}

	channels := int(c.config.Channels)
	onRecvFrames := func(_, input []byte, _ uint32) {
		if len(input) == 0 {
			return
		}
		select {
		case c.Samples <- toMono(input, channels):
		default:
			c.dropped.Add(1)
		}
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start device: %w", err)
	}

	c.mu.Lock()
	c.device = device
	c.running = true
	c.mu.Unlock()

	logging.Logger().Info("audio capture started",
		zap.Int("device_index", c.config.DeviceIndex),
		zap.Uint32("sample_rate", c.config.SampleRate),
		zap.Uint32("channels", c.config.Channels))

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return nil
}

// Stop stops audio capture
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrNotRunning
	}
	c.stopDevice()

	logging.Logger().Info("audio capture stopped", zap.Uint64("dropped_blocks", c.dropped.Load()))
	return nil
}

func (c *Capture) stopDevice() {
	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
	c.running = false
}

// Close releases all audio resources and closes Samples.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	if c.running {
		c.stopDevice()
	}

	if c.ctx != nil {
		if err := c.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit context: %w", err)
		}
		c.ctx.Free()
		c.ctx = nil
	}

	c.closed = true
	close(c.Samples)
	return nil
}

// IsRunning returns true if capture is active
func (c *Capture) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Dropped returns how many blocks were discarded because Samples was full.
func (c *Capture) Dropped() uint64 {
	return c.dropped.Load()
}

// toMono decodes little-endian float32 frames and averages the channels.
func toMono(data []byte, channels int) []float32 {
	frameBytes := bytesPerSample * channels
	frames := len(data) / frameBytes
	samples := make([]float32, frames)

	for i := range samples {
		frame := data[i*frameBytes : (i+1)*frameBytes]
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += math.Float32frombits(binary.LittleEndian.Uint32(frame[ch*bytesPerSample:]))
		}
		samples[i] = sum / float32(channels)
	}

	return samples
}
