package main

import (
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"dev.hon.one/argon/common"
	"dev.hon.one/argon/console"
	"dev.hon.one/argon/db"
	"dev.hon.one/argon/http"
	"dev.hon.one/argon/probe"
	"dev.hon.one/argon/util"
	"dev.hon.one/argon/watcher"
)

func main() {
	log.SetFormatter(&util.TagFormatter{})
	log.Infof("Starting %v version %v by %v", common.AppName, common.AppVersion, common.AppAuthor)

	// Parse CLI args (may exit)
	debug := false
	configPath := ""
	envPath := ".env"
	flag.BoolVar(&debug, "debug", debug, "Show debug messages.")
	flag.StringVar(&configPath, "config", configPath, "Config file path.")
	flag.StringVar(&envPath, "env", envPath, "Environment file path, ignored if missing.")
	flag.Parse()
	if debug {
		log.SetLevel(log.TraceLevel)
		log.Info("Debug mode enabled")
	}

	// Load config, environment overrides last
	if !common.LoadConfig(configPath) || !common.LoadEnvironment(envPath) || !common.ValidateConfig() {
		os.Exit(1)
	}
	setLogFormat(common.GlobalConfig.LogFormat)

	config := common.GlobalConfig
	deviceConsole, err := console.New(config.Device, config.ConsoleTimeout())
	if err != nil {
		log.WithError(err).Error("Failed to set up device console")
		os.Exit(1)
	}
	defer deviceConsole.Close()

	prober := probe.Prober{
		Endpoint: config.Device.Address,
		Timeout:  config.ProbeTimeout(),
	}
	deviceWatcher := watcher.New(watcher.Config{
		Source:        config.Device.Address,
		WANLabel:      config.Device.WANLabel,
		Interval:      config.CheckInterval(),
		CycleTimeout:  config.CycleTimeout(),
		ScreenshotDir: config.ScreenshotDir,
	}, deviceConsole, prober)

	// Setup internal shutdown mechanism
	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	shutdown := util.NewShutdownChannelDistributor(shutdownChannel)

	// Run internal services in background and wait for all to finish
	var waitGroup sync.WaitGroup
	http.StartServer(&waitGroup, shutdown)
	db.StartClient(&waitGroup, shutdown)
	watcher.Start(&waitGroup, shutdown, deviceWatcher)

	// Wait for internal services to finish
	waitGroup.Wait()
}

func setLogFormat(format string) {
	switch format {
	case common.LogFormatText:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case common.LogFormatJSON:
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&util.TagFormatter{})
	}
}
