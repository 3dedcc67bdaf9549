package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/luoheng/voicelink-go/audio"
	"github.com/luoheng/voicelink-go/config"
	"github.com/luoheng/voicelink-go/logger"
)

// callLayer stands in for the call-signaling layer in this demo binary: it
// only records that its voice identifiers went stale.
type callLayer struct{}

func (*callLayer) OutputDevicesChanged() {
	logger.Info("Output devices changed, call voices must be re-subscribed")
}

func main() {
	configPath := flag.String("c", "", "Path to config file (default searches ./config.yaml, /etc/voicelink/config.yaml)")
	clipPath := flag.String("play", "", "Play a sound file on startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if err := initLogger(cfg); err != nil {
		logger.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer logger.Info("Shutting down voicelink")

	engine, err := audio.New(cfg.AudioConfig(), &callLayer{}, nil, logger.Logger())
	if err != nil {
		logger.Error("Failed to create audio engine", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("Failed to close audio engine", "error", err)
		}
	}()

	if names, err := engine.InputDeviceNames(); err == nil {
		logger.Info("Capture devices", "names", names)
	}
	if names, err := engine.OutputDeviceNames(); err == nil {
		logger.Info("Playback devices", "names", names)
	}

	if *clipPath != "" {
		if err := engine.PlayClipFile(*clipPath); err != nil {
			logger.Warn("Failed to play startup sound", "error", err)
		}
	}

	// Apply device changes from config edits while running.
	config.Watch(func(next config.Config) {
		logger.Info("Config changed, reinitializing audio devices")
		engine.ReinitInput(next.Audio.InputDevice)
		if !engine.ReinitOutput(next.Audio.OutputDevice) {
			logger.Warn("Playback device unavailable after config change")
		}
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("voicelink running")
	sig := <-sigChan
	logger.Info("Received signal, shutting down", "signal", sig)
}

// initLogger initializes the logging system from the loaded config.
func initLogger(cfg config.Config) error {
	return logger.Init(logger.Config{
		Level:   cfg.Logging.Level,
		Outputs: cfg.Logging.Outputs,
	})
}
