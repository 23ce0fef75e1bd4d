// Package pipeline maps symbolic vertical datum names to ordered grid-shift
// step lists and compiles the minimal transformation pipeline between any
// two datums through the common pivot surface (the ellipsoid).
package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies one of the registered vertical datums. Every kind's step
// list is defined walking down from the pivot (ellipsoid), so the ellipsoid
// itself maps to an empty list.
type Kind int

const (
	Ellipse Kind = iota
	Geoid
	Navd88
	Tss
	Mllw
	NoaaChartDatum
	Mhw
	NoaaChartHeight
	Mtl
	Dtl
	HudsonRiverDatum
	Custom
)

type Datum struct {
	Kind  Kind
	Name  string // canonical lower-case identifier
	Steps []Step
}

// UnsupportedDatumError reports a symbolic datum name that is not in the
// definition table.
type UnsupportedDatumError struct {
	Name string
}

func (e *UnsupportedDatumError) Error() string {
	return fmt.Sprintf("datum %q not found in datum definitions: %v", e.Name, KnownDatums())
}

var geoidStep = Step{Grid: GeoidGrid()}

func tidalSteps(layer string) []Step {
	return []Step{
		geoidStep,
		{Grid: RegionGrid("tss.gtx"), Inverted: true},
		{Grid: RegionGrid(layer)},
	}
}

var definitions = map[string]Datum{
	"ellipse": {Kind: Ellipse, Name: "ellipse"},
	// nad83 ellipsoid height is the pivot surface, so it carries no steps.
	"nad83": {Kind: Ellipse, Name: "nad83"},
	"geoid":   {Kind: Geoid, Name: "geoid", Steps: []Step{geoidStep}},
	"navd88":  {Kind: Navd88, Name: "navd88", Steps: []Step{geoidStep}},
	"tss": {Kind: Tss, Name: "tss", Steps: []Step{
		geoidStep,
		{Grid: RegionGrid("tss.gtx"), Inverted: true},
	}},
	"mllw":             {Kind: Mllw, Name: "mllw", Steps: tidalSteps("mllw.gtx")},
	"noaa chart datum": {Kind: NoaaChartDatum, Name: "noaa chart datum", Steps: tidalSteps("mllw.gtx")},
	"mhw":              {Kind: Mhw, Name: "mhw", Steps: tidalSteps("mhw.gtx")},
	"noaa chart height": {Kind: NoaaChartHeight, Name: "noaa chart height",
		Steps: tidalSteps("mhw.gtx")},
	"mtl": {Kind: Mtl, Name: "mtl", Steps: tidalSteps("mtl.gtx")},
	"dtl": {Kind: Dtl, Name: "dtl", Steps: tidalSteps("dtl.gtx")},
	"usace hudson river datum": {Kind: HudsonRiverDatum, Name: "usace hudson river datum",
		Steps: []Step{
			geoidStep,
			{Grid: RegionGrid("HudsonRiverDatum.tif")},
		}},
}

// ParseDatum resolves a case-insensitive symbolic name against the datum
// definition table.
func ParseDatum(name string) (Datum, error) {
	d, ok := definitions[strings.ToLower(name)]
	if !ok {
		return Datum{}, &UnsupportedDatumError{Name: name}
	}
	return d.clone(), nil
}

// IsKnownDatum reports whether the name resolves without error.
func IsKnownDatum(name string) bool {
	_, ok := definitions[strings.ToLower(name)]
	return ok
}

// NewCustomDatum builds a datum outside the closed table, carrying its own
// step list. The name must not collide with a registered datum.
func NewCustomDatum(name string, steps []Step) (Datum, error) {
	canonical := strings.ToLower(strings.TrimSpace(name))
	if canonical == "" {
		return Datum{}, fmt.Errorf("custom datum name is empty")
	}
	if _, exists := definitions[canonical]; exists {
		return Datum{}, fmt.Errorf("custom datum %q collides with a registered datum", name)
	}
	for i, s := range steps {
		if s.Grid.zero() {
			return Datum{}, fmt.Errorf("custom datum %q step %d has no grid reference", name, i)
		}
	}
	return Datum{Kind: Custom, Name: canonical, Steps: cloneSteps(steps)}, nil
}

// KnownDatums lists the registered datum names in stable order.
func KnownDatums() []string {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GuessDatum looks for exactly one registered datum name inside a free-form
// vertical CRS name, e.g. "NOAA Mean Lower Low Water depth (mllw)" -> mllw.
// No match returns ("", nil); more than one match is an error.
func GuessDatum(crsName string) (string, error) {
	lower := strings.ToLower(crsName)
	var matches []string
	for _, name := range KnownDatums() {
		if strings.Contains(lower, name) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0], nil
	default:
		// Aliases of the same datum (nad83/ellipse) and names embedded in a
		// longer match are not ambiguous; anything else is.
		longest := ""
		sameKind := true
		for _, m := range matches {
			if len(m) > len(longest) {
				longest = m
			}
			if definitions[m].Kind != definitions[matches[0]].Kind {
				sameKind = false
			}
		}
		if sameKind {
			return longest, nil
		}
		embedded := true
		for _, m := range matches {
			if m != longest && !strings.Contains(longest, m) {
				embedded = false
			}
		}
		if embedded {
			return longest, nil
		}
		return "", fmt.Errorf("more than one datum guess found in %q: %v", crsName, matches)
	}
}

func (d Datum) clone() Datum {
	d.Steps = cloneSteps(d.Steps)
	return d
}

func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}
