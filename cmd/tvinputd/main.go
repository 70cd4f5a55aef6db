package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/lanikai/tvinput"
	"github.com/lanikai/tvinput/internal/hwsim"
	"github.com/lanikai/tvinput/internal/logging"
	"github.com/lanikai/tvinput/internal/v4l2"
)

// Populated via -ldflags="-X ...". See Makefile.
var GitRevisionId string

var log = logging.DefaultLogger.WithTag("tvinputd")

// version displays information and exits successfully (GNU convention)
func version() {
	fmt.Println("tvinputd", GitRevisionId)
	fmt.Println("Copyright 2019 Lanikai Labs LLC. All rights reserved.")
}

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}

	if flagVersion {
		version()
		os.Exit(0)
	}

	// Parse capture frame geometry
	var width, height int
	if n, err := fmt.Sscanf(flagGeometry, "%dx%d", &width, &height); n != 2 || err != nil {
		fmt.Fprintf(os.Stderr, "invalid geometry %q\n", flagGeometry)
		os.Exit(1)
	}

	mon := newMonitor(flagListen, flagBacklog)

	// Open capture device
	var dev tvinput.Device
	var sim *hwsim.Simulator
	if flagDevice == "sim" {
		sim = hwsim.New(
			tvinput.DeviceInfo{DeviceID: 0, Type: tvinput.DeviceHDMI},
			[]tvinput.StreamConfig{{
				StreamID:  0,
				Type:      tvinput.StreamBufferProducer,
				MaxWidth:  width,
				MaxHeight: height,
				Width:     width,
				Height:    height,
			}},
		)
		dev = sim
	} else {
		d, err := v4l2.Open(flagDevice, v4l2.Config{
			Type:   tvinput.DeviceHDMI,
			Width:  width,
			Height: height,
			HFlip:  flagHorizontalFlip,
			VFlip:  flagVerticalFlip,
		})
		if err != nil {
			log.Error("open capture device: %v", err)
			os.Exit(1)
		}
		dev = d
	}
	if closer, ok := dev.(io.Closer); ok {
		defer closer.Close()
	}

	hal, err := tvinput.New(tvinput.Config{
		Device:   dev,
		Notifier: mon,
	})
	if err != nil {
		log.Error("bring up input pipeline: %v", err)
		os.Exit(1)
	}
	defer hal.Close()

	// The simulated device announces itself only when told to.
	if sim != nil {
		sim.PlugIn()
	}

	if err := mon.listen(); err != nil && err != http.ErrServerClosed {
		log.Error("event monitor: %v", err)
		os.Exit(1)
	}
}
