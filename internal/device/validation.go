package device

import "fmt"

// Command ranges.
const (
	MinBrightness = 1
	MaxBrightness = 100
	MinColorTemp  = 1700
	MaxColorTemp  = 6500
	MinChannel    = 0
	MaxChannel    = 255
)

// ValidateBrightness checks level is within 1-100.
func ValidateBrightness(level int) error {
	if level < MinBrightness || level > MaxBrightness {
		return fmt.Errorf("%w: got %d", ErrInvalidBrightness, level)
	}
	return nil
}

// ValidateColorTemp checks kelvin is within 1700-6500.
func ValidateColorTemp(kelvin int) error {
	if kelvin < MinColorTemp || kelvin > MaxColorTemp {
		return fmt.Errorf("%w: got %d", ErrInvalidColorTemp, kelvin)
	}
	return nil
}

// ValidateRGB checks every channel is within 0-255.
func ValidateRGB(r, g, b int) error {
	for _, c := range [...]int{r, g, b} {
		if c < MinChannel || c > MaxChannel {
			return fmt.Errorf("%w: got (%d, %d, %d)", ErrInvalidRGB, r, g, b)
		}
	}
	return nil
}

// PackRGB packs three validated channels into 0xRRGGBB.
func PackRGB(r, g, b int) int {
	return r<<16 | g<<8 | b
}
