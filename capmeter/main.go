package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/itohio/gocapmeter/pkg/config"
	"github.com/itohio/gocapmeter/pkg/instrument"
	"github.com/itohio/gocapmeter/pkg/logger"
	"github.com/itohio/gocapmeter/pkg/operator"
	"github.com/itohio/gocapmeter/pkg/session"
)

func main() {
	var (
		portFlag     = flag.String("p", "", "Serial port override (e.g., COM19 or /dev/ttyUSB0)")
		configFlag   = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag     = flag.Bool("mock", false, "Use simulated meter instead of serial port")
		plotFlag     = flag.Bool("plot", false, "Show the capacitance history in a window")
		listFlag     = flag.Bool("list", false, "List available serial ports and exit")
		logLevelFlag = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	)
	flag.Parse()

	if *listFlag {
		if err := listPorts(); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *logLevelFlag != "" {
		cfg.Log.Level = *logLevelFlag
	}
	if *plotFlag {
		cfg.Plot.Enabled = true
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	err = run(cfg, *mockFlag, zlog)
	if err != nil {
		zlog.Error("[capmeter] stopped with error", zap.Error(err))
	}
	_ = zlog.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run owns the instrument connection for the lifetime of the program.
// The device is closed on every return path.
func run(cfg *config.Config, useMock bool, zlog *zap.Logger) (err error) {
	var device instrument.Device
	if useMock {
		device = instrument.NewMock(&cfg.Mock, cfg.Serial.ReadTimeout)
		fmt.Println("Using simulated meter")
	} else {
		device = instrument.New(cfg.Serial, zlog)
	}

	if err := device.Open(); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, device.Close())
	}()

	if device.IsOpen() {
		fmt.Println("Serial port opened successfully.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := operator.NewConsole(os.Stdin, os.Stdout)
	sess := session.New(cfg, device, console, os.Stdout, zlog)

	if cfg.Plot.Enabled {
		err = runWithPlot(ctx, cfg, sess)
	} else {
		err = sess.Run(ctx)
	}

	fmt.Println("Exiting...")
	return err
}

// listPorts prints the serial ports found on this machine.
func listPorts() error {
	ports, err := instrument.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found!")
		return nil
	}
	for _, p := range ports {
		if p.Description != "" && p.Description != p.Name {
			fmt.Printf("Found port: %s (%s)\n", p.Name, p.Description)
		} else {
			fmt.Printf("Found port: %s\n", p.Name)
		}
	}
	return nil
}
