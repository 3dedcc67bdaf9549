package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// paPlayback adapts a PortAudio output stream to the playbackStream seam.
// PortAudio initialization is reference counted, so every open pairs an
// Initialize with the Terminate in Close.
type paPlayback struct {
	stream *portaudio.Stream
}

// openPortaudioPlayback opens the named playback device and starts a
// callback stream rendering through the engine mixer.
func openPortaudioPlayback(deviceName string, cfg Config, render func(out []int16)) (playbackStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	dev, err := findOutputDevice(deviceName)
	if err != nil {
		portaudio.Terminate() //nolint:errcheck
		return nil, err
	}

	params := portaudio.LowLatencyParameters(nil, dev)
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.FrameSamples()

	stream, err := portaudio.OpenStream(params, func(out []int16) {
		render(out)
	})
	if err != nil {
		portaudio.Terminate() //nolint:errcheck
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()        //nolint:errcheck
		portaudio.Terminate() //nolint:errcheck
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}

	return &paPlayback{stream: stream}, nil
}

func (p *paPlayback) Stop() error {
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop audio stream: %w", err)
	}
	return nil
}

func (p *paPlayback) Close() error {
	err := p.stream.Close()
	if termErr := portaudio.Terminate(); termErr != nil && err == nil {
		err = termErr
	}
	if err != nil {
		return fmt.Errorf("failed to close audio stream: %w", err)
	}
	return nil
}

// findOutputDevice resolves a device name to a PortAudio output device.
func findOutputDevice(deviceName string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	for _, dev := range devices {
		if dev.MaxOutputChannels > 0 && matchesDeviceName(dev.Name, deviceName) {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w: no playback device matches %q", ErrNoDevice, deviceName)
}

// listPlaybackDevices enumerates playback device names through PortAudio.
func listPlaybackDevices() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate() //nolint:errcheck

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}

	var names []string
	for _, dev := range devices {
		if dev.MaxOutputChannels > 0 {
			names = append(names, dev.Name)
		}
	}
	return names, nil
}
