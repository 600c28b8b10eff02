package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorEnv selects the color mode: "always", "never" or "auto". Unset
// means auto.
const ColorEnv = "TROUPE_COLOR"

// ShouldUseColor reports whether ANSI colors should be used on stdout.
// TROUPE_COLOR takes precedence; in auto mode NO_COLOR, CLICOLOR_FORCE and
// CLICOLOR are honored before falling back to TTY detection.
func ShouldUseColor() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(ColorEnv))) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
