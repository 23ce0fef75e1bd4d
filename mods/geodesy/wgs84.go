package geodesy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wroge/wgs84"
)

type spheroid struct {
	a, fi float64
}

func (s spheroid) A() float64 {
	return s.a
}
func (s spheroid) Fi() float64 {
	return s.fi
}

// GRS80 underlies every frame this engine registers.
var grs80 = spheroid{a: 6378137, fi: 298.257222101}

// SeparationFunc samples the vertical offset surface of one grid file at the
// given points. Out-of-coverage points come back non-finite. The grid reader
// lives outside the core; tests and callers inject it.
type SeparationFunc func(grid string, x, y []float64) ([]float64, error)

// PipelineEngine is the default Engine: reference-frame conversions through
// wgs84 Helmert transforms and vertical grid shifts through an injected
// separation sampler.
type PipelineEngine struct {
	sep      SeparationFunc
	initOnce sync.Once
	repo     *wgs84.Repository
}

func NewEngine(sep SeparationFunc) *PipelineEngine {
	return &PipelineEngine{sep: sep}
}

func (e *PipelineEngine) Version() string {
	return "wgs84-helmert/vgridshift-1"
}

func (e *PipelineEngine) repository() *wgs84.Repository {
	e.initOnce.Do(func() {
		// NAD83(2011) to WGS84~ITRF2014: inverse of the coordinate-frame
		// helmert at epoch 2010 (see NAD83ITRF2014Pipeline).
		nad83 := wgs84.Helmert(grs80.a, grs80.fi,
			-1.0053, 1.9092, 0.5416,
			-0.0267814, 0.0004203, -0.0109321, -0.00037)
		itrf := wgs84.Datum{Spheroid: grs80}

		repo := wgs84.EPSG()
		repo.Add(NAD832D, nad83.LonLat())
		repo.Add(NAD833D, nad83.LonLat())
		repo.Add(ITRF20082D, itrf.LonLat())
		repo.Add(ITRF20083D, itrf.LonLat())
		repo.Add(ITRF20142D, itrf.LonLat())
		repo.Add(ITRF20143D, itrf.LonLat())
		e.repo = repo
	})
	return e.repo
}

func (e *PipelineEngine) TransformEPSG(fromEPSG, toEPSG int, x, y, z []float64) ([]float64, []float64, []float64, error) {
	if err := checkBatch(x, y, z); err != nil {
		return nil, nil, nil, err
	}
	repo := e.repository()
	from := repo.Code(fromEPSG)
	to := repo.Code(toEPSG)
	if from == nil {
		return nil, nil, nil, fmt.Errorf("epsg code %d is not registered with the engine", fromEPSG)
	}
	if to == nil {
		return nil, nil, nil, fmt.Errorf("epsg code %d is not registered with the engine", toEPSG)
	}
	transform := wgs84.Transform(from, to)

	xx := make([]float64, len(x))
	yy := make([]float64, len(y))
	zz := make([]float64, len(x))
	for i := range x {
		h := 0.0
		if z != nil {
			h = z[i]
		}
		xx[i], yy[i], zz[i] = transform(x[i], y[i], h)
	}
	return xx, yy, zz, nil
}

// TransformPipeline executes a vertical grid-shift pipeline. Each step adds
// the sampled separation, or subtracts it when the step is inverted. A
// non-finite separation poisons the point for the rest of the pipeline.
func (e *PipelineEngine) TransformPipeline(spec string, x, y, z []float64) ([]float64, []float64, []float64, error) {
	if err := checkBatch(x, y, z); err != nil {
		return nil, nil, nil, err
	}
	if e.sep == nil {
		return nil, nil, nil, fmt.Errorf("no separation sampler injected, cannot execute %q", spec)
	}
	steps, err := parsePipelineSpec(spec)
	if err != nil {
		return nil, nil, nil, err
	}

	xx := append([]float64(nil), x...)
	yy := append([]float64(nil), y...)
	zz := make([]float64, len(x))
	if z != nil {
		copy(zz, z)
	}
	for _, st := range steps {
		sep, err := e.sep(st.grid, xx, yy)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("grid %s: %w", st.grid, err)
		}
		if len(sep) != len(zz) {
			return nil, nil, nil, fmt.Errorf("grid %s returned %d separations for %d points", st.grid, len(sep), len(zz))
		}
		for i := range zz {
			if !Covered(sep[i]) || !Covered(zz[i]) {
				zz[i] = OutOfCoverage()
				continue
			}
			if st.inverted {
				zz[i] -= sep[i]
			} else {
				zz[i] += sep[i]
			}
		}
	}
	return xx, yy, zz, nil
}

type specStep struct {
	grid     string
	inverted bool
}

func parsePipelineSpec(spec string) ([]specStep, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 || fields[0] != "+proj=pipeline" {
		return nil, fmt.Errorf("pipeline specification must start with +proj=pipeline: %q", spec)
	}
	var steps []specStep
	var cur *specStep
	flush := func() error {
		if cur == nil {
			return nil
		}
		if cur.grid == "" {
			return fmt.Errorf("pipeline step without grids= reference: %q", spec)
		}
		steps = append(steps, *cur)
		cur = nil
		return nil
	}
	for _, tok := range fields[1:] {
		switch {
		case tok == "+step":
			if err := flush(); err != nil {
				return nil, err
			}
			cur = &specStep{}
		case cur == nil:
			return nil, fmt.Errorf("token %q outside of a +step: %q", tok, spec)
		case tok == "+inv":
			cur.inverted = true
		case tok == "+proj=vgridshift":
			// the only operation this engine executes
		case strings.HasPrefix(tok, "grids="):
			cur.grid = strings.TrimPrefix(tok, "grids=")
		case strings.HasPrefix(tok, "+proj="):
			return nil, fmt.Errorf("unsupported pipeline operation %q", tok)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return steps, nil
}
