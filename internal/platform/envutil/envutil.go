package envutil

import (
	"os"
	"strconv"
	"strings"
)

func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Float(name string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func Bool(name string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// IntInRange reads an int knob and clamps it into [min, max].
func IntInRange(name string, def, min, max int) int {
	i := Int(name, def)
	if i < min {
		return min
	}
	if i > max {
		return max
	}
	return i
}

// FloatInRange reads a float knob and clamps it into [min, max].
func FloatInRange(name string, def, min, max float64) float64 {
	f := Float(name, def)
	if f < min {
		return min
	}
	if f > max {
		return max
	}
	return f
}
