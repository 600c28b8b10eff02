// Package ui renders CLI output.
package ui

import "fmt"

// ANSI256 color codes.
const (
	colorName  = 74  // blue
	colorTag   = 108 // green
	colorMuted = 245 // gray
	colorError = 167 // red
)

var noColor = !ShouldUseColor()

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderName styles an actor or model name.
func RenderName(s string) string { return render(colorName, s) }

// RenderTag styles a tag.
func RenderTag(s string) string { return render(colorTag, s) }

// RenderMuted styles secondary text such as paths.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderError styles a failure.
func RenderError(s string) string { return render(colorError, s) }

// Enabled reports whether the Render functions emit colors.
func Enabled() bool { return !noColor }

// SetColor enables or disables color output globally.
func SetColor(enabled bool) {
	noColor = !enabled
}
