package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs an ASCII art banner for Parley.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Subtle gradient-like color scheme (teal to blue)
	s1 := termenv.String("  ____   _    ____  _     _______   __").Foreground(p.Color("#2dd4bf"))
	s2 := termenv.String(" |  _ \\ / \\  |  _ \\| |   | ____\\ \\ / /").Foreground(p.Color("#22d3ee"))
	s3 := termenv.String(" | |_) / _ \\ | |_) | |   |  _|  \\ V / ").Foreground(p.Color("#38bdf8"))
	s4 := termenv.String(" |  __/ ___ \\|  _ <| |___| |___  | |  ").Foreground(p.Color("#60a5fa"))
	s5 := termenv.String(" |_| /_/   \\_\\_| \\_\\_____|_____| |_|  ").Foreground(p.Color("#818cf8"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println()
}
