package server

import "fmt"

const (
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m" // Bright black, often appears as gray

	ResetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    Green,
	"POST":   Blue,
	"PUT":    Cyan,
	"DELETE": Yellow,
}

// colourMethod pads the method and wraps it in its terminal colour.
func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// colourStatus picks a colour per status class.
func colourStatus(status int) string {
	switch {
	case status >= 500:
		return Red + fmt.Sprint(status) + ResetColor
	case status >= 400:
		return Yellow + fmt.Sprint(status) + ResetColor
	case status >= 300:
		return Cyan + fmt.Sprint(status) + ResetColor
	default:
		return Green + fmt.Sprint(status) + ResetColor
	}
}
