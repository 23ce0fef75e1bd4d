// Package vypercrs builds and parses the self-describing compound coordinate
// reference system: a horizontal CRS paired with a custom vertical datum whose
// per-region transformation pipelines travel in the WKT remarks.
package vypercrs

import "fmt"

// VerticalConvention tags which way the vertical axis points. Heights are up,
// soundings are down.
type VerticalConvention int

const (
	ConventionUp VerticalConvention = iota
	ConventionDown
)

func (v VerticalConvention) String() string {
	if v == ConventionDown {
		return "down"
	}
	return "up"
}

// Flip converts a value between the two conventions.
func (v VerticalConvention) Flip() VerticalConvention {
	if v == ConventionDown {
		return ConventionUp
	}
	return ConventionDown
}

func (v VerticalConvention) axisWKT() string {
	if v == ConventionDown {
		return `AXIS["depth (D)",down]`
	}
	return `AXIS["gravity-related height (H)",up]`
}

// conventionForAxis maps an AXIS name or direction back to a convention.
func conventionForAxis(axis string) (VerticalConvention, error) {
	switch axis {
	case "gravity-related height (H)", "gravity-related height", "height", "h", "up":
		return ConventionUp, nil
	case "depth (D)", "depth", "d", "down":
		return ConventionDown, nil
	}
	return ConventionUp, fmt.Errorf("%q is not a recognized vertical axis", axis)
}
