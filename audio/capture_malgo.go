package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"
)

// malgoCapture adapts a miniaudio capture device to the captureDevice seam.
// The native layer pushes frames from its own thread into a ring buffer; the
// engine tick polls the buffer and drains it one frame at a time, so the
// engine side never blocks on hardware.
type malgoCapture struct {
	ctx      *malgo.AllocatedContext
	device   *malgo.Device
	ring     *ringbuffer.RingBuffer
	channels int
	raw      []byte // read scratch, one frame
}

// bytesPerSample is fixed by FormatS16.
const bytesPerSample = 2

// openMalgoCapture opens the named capture device and starts it streaming.
func openMalgoCapture(deviceName string, cfg Config) (captureDevice, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.FrameSamples())
	deviceConfig.Alsa.NoMMap = 1

	found := false
	for i := range infos {
		if matchesDeviceName(infos[i].Name(), deviceName) {
			deviceConfig.Capture.DeviceID = infos[i].ID.Pointer()
			found = true
			break
		}
	}
	if !found {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("%w: no capture device matches %q", ErrNoDevice, deviceName)
	}

	// Room for a few frames of backlog between ticks; overruns drop the
	// newest data and the device keeps streaming.
	ring := ringbuffer.New(cfg.frameBufferLen() * bytesPerSample * 8)

	onData := func(_, pcm []byte, _ uint32) {
		if ring.Free() < len(pcm) {
			return
		}
		ring.Write(pcm) //nolint:errcheck
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onData,
	})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}

	return &malgoCapture{
		ctx:      ctx,
		device:   device,
		ring:     ring,
		channels: cfg.Channels,
		raw:      make([]byte, cfg.frameBufferLen()*bytesPerSample),
	}, nil
}

func (m *malgoCapture) Available() int {
	return m.ring.Length() / bytesPerSample / m.channels
}

func (m *malgoCapture) ReadSamples(dst []int16) int {
	raw := m.raw
	if len(dst)*bytesPerSample > len(raw) {
		raw = make([]byte, len(dst)*bytesPerSample)
	} else {
		raw = raw[:len(dst)*bytesPerSample]
	}
	n, err := m.ring.Read(raw)
	if err != nil {
		return 0
	}
	copy(dst, bytesToInt16(raw[:n]))
	return n / bytesPerSample
}

func (m *malgoCapture) Close() error {
	if err := m.device.Stop(); err != nil {
		m.device.Uninit()
		m.ctx.Uninit() //nolint:errcheck
		m.ctx.Free()
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	m.device.Uninit()
	if err := m.ctx.Uninit(); err != nil {
		m.ctx.Free()
		return fmt.Errorf("failed to uninit audio context: %w", err)
	}
	m.ctx.Free()
	return nil
}

// listCaptureDevices enumerates capture device names through miniaudio.
func listCaptureDevices() ([]string, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	defer func() {
		ctx.Uninit() //nolint:errcheck
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	names := make([]string, 0, len(infos))
	for i := range infos {
		names = append(names, infos[i].Name())
	}
	return names, nil
}

// matchesDeviceName checks a configured device setting against an enumerated
// device name, accepting substring matches so truncated saved names keep
// working across driver updates.
func matchesDeviceName(enumerated, configured string) bool {
	return enumerated == configured || strings.Contains(enumerated, configured)
}
