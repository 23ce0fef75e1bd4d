// Package geodesy is the boundary to the external geodesy engine: the core
// hands it pipeline specification strings and coordinate batches and gets
// transformed batches back. Horizontal reference-frame conversions are backed
// by wgs84 Helmert transforms; vertical grid-shift execution is injected.
package geodesy

import (
	"fmt"
	"math"
)

// Engine executes compiled pipeline specifications and reference-frame
// conversions on coordinate batches. A non-finite output z marks the point
// as outside the coverage of a grid referenced by the pipeline.
type Engine interface {
	// TransformPipeline runs a "+proj=pipeline ..." specification over the
	// batch. Inputs are not modified.
	TransformPipeline(spec string, x, y, z []float64) (xx, yy, zz []float64, err error)

	// TransformEPSG converts the batch between two registered EPSG codes.
	TransformEPSG(fromEPSG, toEPSG int, x, y, z []float64) (xx, yy, zz []float64, err error)

	// Version identifies the engine build for provenance records.
	Version() string
}

// OutOfCoverage is the z value the engine reports for points a grid does not
// cover.
func OutOfCoverage() float64 { return math.Inf(1) }

// Covered reports whether an engine output height is a usable value.
func Covered(z float64) bool {
	return !math.IsInf(z, 0) && !math.IsNaN(z)
}

func checkBatch(x, y, z []float64) error {
	if len(x) != len(y) || (z != nil && len(y) != len(z)) {
		return fmt.Errorf("coordinate arrays disagree in length: x=%d y=%d z=%d",
			len(x), len(y), len(z))
	}
	return nil
}
