package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagDevice         string
	flagGeometry       string
	flagListen         string
	flagBacklog        int
	flagHorizontalFlip bool
	flagVerticalFlip   bool
	flagHelp           bool
	flagVersion        bool
)

func init() {
	flag.StringVarP(&flagDevice, "device", "i", "/dev/video0", "Capture device")
	flag.StringVarP(&flagGeometry, "geometry", "g", "1280x720", "Capture frame size")
	flag.StringVarP(&flagListen, "listen", "l", "localhost:8080", "Event monitor address")
	flag.IntVarP(&flagBacklog, "backlog", "n", 64, "Replayed event count")
	flag.BoolVarP(&flagHorizontalFlip, "hflip", "", false, "Flip horizontally")
	flag.BoolVarP(&flagVerticalFlip, "vflip", "", false, "Flip vertically")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `TV input buffer handoff daemon

Usage: tvinputd [OPTION]...

Capture device:
  -i, --device=PATH      Capture device, or "sim" for a simulated input
                           (default: /dev/video0)
  -g, --geometry=WxH     Capture frame size, in pixels (default: 1280x720)
      --hflip            Flip video horizontally
      --vflip            Flip video vertically

Event monitor:
  -l, --listen=ADDR      Address for the websocket event monitor
                           (default: localhost:8080)
  -n, --backlog=NUM      Events replayed to new monitor subscribers
                           (default: 64)

Miscellaneous:
  -h, --help             Prints this help message and exits
  -v, --version          Prints version information and exits

Please report bugs to: aloha@lanikailabs.com`

// Help information is printed and program exits
func help() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	//   _         _                   _
	//  | |___   _(_)_ __  _ __  _   _| |_
	//  | __\ \ / / | '_ \| '_ \| | | | __|
	//  | |_ \ V /| | | | | |_) | |_| | |_
	//   \__| \_/ |_|_| |_| .__/ \__,_|\__|
	//                    |_|

	r.Println("   _         _                   _   ")
	y.Println("  | |___   _(_)_ __  _ __  _   _| |_ ")
	b.Println("  | __\\ \\ / / | '_ \\| '_ \\| | | | __|")
	r.Println("  | |_ \\ V /| | | | | |_) | |_| | |_ ")
	y.Println("   \\__| \\_/ |_|_| |_| .__/ \\__,_|\\__|")
	b.Println("                    |_|              ")

	fmt.Println(helpString)
}
