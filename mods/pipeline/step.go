package pipeline

import "strings"

// Placeholders substituted when a pipeline is materialized for a region.
const (
	RegionPlaceholder = "REGION"
	GeoidPlaceholder  = "GEOID"
)

type gridKind int

const (
	gridNone gridKind = iota
	gridGeoid
	gridRegion
)

// GridRef names the grid file a vertical shift step applies: either the core
// geoid grid (resolved per region at materialization time) or a grid file
// inside the region's own directory.
type GridRef struct {
	kind gridKind
	file string
}

func GeoidGrid() GridRef {
	return GridRef{kind: gridGeoid}
}

func RegionGrid(file string) GridRef {
	return GridRef{kind: gridRegion, file: file}
}

func (g GridRef) IsGeoid() bool { return g.kind == gridGeoid }

func (g GridRef) zero() bool { return g.kind == gridNone }

// Placeholder renders the grid reference with REGION/GEOID markers intact.
func (g GridRef) Placeholder() string {
	switch g.kind {
	case gridGeoid:
		return GeoidPlaceholder
	case gridRegion:
		return RegionPlaceholder + "/" + g.file
	}
	return ""
}

// Resolve substitutes the concrete region name and geoid grid path.
func (g GridRef) Resolve(region, geoid string) string {
	switch g.kind {
	case gridGeoid:
		return geoid
	case gridRegion:
		return region + "/" + g.file
	}
	return ""
}

// Step is a single vertical grid shift in a datum definition or a compiled
// pipeline.
type Step struct {
	Grid     GridRef
	Inverted bool
}

// Render emits the step in engine syntax, e.g.
// "+inv +proj=vgridshift grids=REGION/tss.gtx".
func (s Step) Render(region, geoid string) string {
	var b strings.Builder
	if s.Inverted {
		b.WriteString("+inv ")
	}
	b.WriteString("+proj=vgridshift grids=")
	if region == "" && geoid == "" {
		b.WriteString(s.Grid.Placeholder())
	} else {
		b.WriteString(s.Grid.Resolve(region, geoid))
	}
	return b.String()
}

// Invert reverses the step order and toggles every inversion flag. Applying
// it twice returns an equal list.
func Invert(steps []Step) []Step {
	out := make([]Step, 0, len(steps))
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		s.Inverted = !s.Inverted
		out = append(out, s)
	}
	return out
}

// CompareAndReduce strips the longest common prefix from both step lists.
// Shared leading steps cancel numerically when one side is inverted, so
// removing them is both an optimization and a precision guard.
func CompareAndReduce(from, to []Step) ([]Step, []Step) {
	n := len(from)
	if len(to) < n {
		n = len(to)
	}
	common := 0
	for i := 0; i < n; i++ {
		if from[i] != to[i] {
			break
		}
		common++
	}
	return cloneSteps(from[common:]), cloneSteps(to[common:])
}
