// Package transform runs compiled datum pipelines over coordinate batches.
// The orchestrator walks the resolved regions in order, executes each
// region's pipeline through the geodesy engine and merges the results with
// last-writer-wins semantics; the raster side builds a coarse separation
// model from one orchestrator call and applies it at full resolution.
package transform

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/geodesy"
	"github.com/noaa-ocs-hydrography/vyperdatum/mods/logging"
	"github.com/noaa-ocs-hydrography/vyperdatum/mods/pipeline"
	"github.com/noaa-ocs-hydrography/vyperdatum/mods/vdatum"
	"github.com/noaa-ocs-hydrography/vyperdatum/mods/vypercrs"
)

// NoValidRegionError reports a batch for which no region produced a single
// usable point, either because nothing resolved from the batch bounds or
// because every regional pipeline failed or fell outside coverage.
type NoValidRegionError struct {
	From string
	To   string
}

func (e *NoValidRegionError) Error() string {
	return fmt.Sprintf("no region produced a valid transformation from %q to %q", e.From, e.To)
}

// Batch is one set of input coordinates. Z may be nil, in which case zeros
// are transformed (the separation itself comes back in the output z).
type Batch struct {
	X []float64
	Y []float64
	Z []float64
}

// Bound returns the bounding rectangle of the batch coordinates.
func (b Batch) Bound() orb.Bound {
	bound := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	for i := range b.X {
		bound = bound.Extend(orb.Point{b.X[i], b.Y[i]})
	}
	return bound
}

// Options selects the optional per-point outputs.
type Options struct {
	IncludeUncertainty bool
	IncludeRegionIndex bool
}

// Result holds the transformed batch. X and Y carry the coordinates in the
// frame the winning region was evaluated in. Points no region covered stay
// NaN (and -1 in RegionIndex). Uncertainty and RegionIndex are nil unless
// requested.
type Result struct {
	X           []float64
	Y           []float64
	Z           []float64
	Uncertainty []float64
	RegionIndex []int
}

// Orchestrator executes transformations between two compound CRS states over
// the regions they resolve to. It holds no per-call state and may be shared.
type Orchestrator struct {
	catalog *vdatum.Catalog
	engine  geodesy.Engine
	log     logging.Log
}

func NewOrchestrator(catalog *vdatum.Catalog, engine geodesy.Engine) *Orchestrator {
	return &Orchestrator{
		catalog: catalog,
		engine:  engine,
		log:     logging.GetLog("transform"),
	}
}

func (o *Orchestrator) Catalog() *vdatum.Catalog { return o.catalog }

// Transform converts the batch from inCRS to outCRS. Regions are resolved
// from the batch bounds when the CRS does not carry them yet. Each region is
// processed in list order and later regions overwrite earlier ones where
// coverage overlaps. Output z is rounded to millimeters. Regions that
// contributed nothing are dropped from both CRS region lists afterwards.
func (o *Orchestrator) Transform(batch Batch, inCRS, outCRS *vypercrs.CompoundCRS, opts Options) (*Result, error) {
	n := len(batch.X)
	if len(batch.Y) != n || (batch.Z != nil && len(batch.Z) != n) {
		return nil, fmt.Errorf("coordinate arrays disagree in length: x=%d y=%d z=%d",
			n, len(batch.Y), len(batch.Z))
	}
	if len(inCRS.Regions()) == 0 {
		if err := o.resolveRegions(batch, inCRS, outCRS); err != nil {
			return nil, err
		}
	}
	if !inCRS.IsValid() {
		return nil, &vypercrs.InvalidCRSError{Reason: "input crs is incomplete"}
	}
	if !outCRS.IsValid() {
		return nil, &vypercrs.InvalidCRSError{Reason: "output crs is incomplete"}
	}

	// the pipelines work in positive-up heights; a depth input is negated
	// once here and the output convention is applied once at the end
	z := make([]float64, n)
	if batch.Z != nil {
		copy(z, batch.Z)
	}
	if inCRS.Convention() == vypercrs.ConventionDown {
		for i := range z {
			z[i] = -z[i]
		}
	}
	flip := 1.0
	if outCRS.Convention() == vypercrs.ConventionDown {
		flip = -1.0
	}

	res := &Result{X: nanSlice(n), Y: nanSlice(n), Z: nanSlice(n)}
	if opts.IncludeUncertainty {
		res.Uncertainty = nanSlice(n)
	}
	if opts.IncludeRegionIndex {
		res.RegionIndex = make([]int, n)
		for i := range res.RegionIndex {
			res.RegionIndex[i] = -1
		}
	}

	regions := inCRS.Regions()
	contributed := make(map[string]bool, len(regions))
	written := 0
	for cnt, name := range regions {
		info, ok := o.catalog.Region(name)
		if !ok {
			o.log.Warnf("region %s is not in the catalog, skipping it", name)
			continue
		}
		tx, ty, tz := batch.X, batch.Y, z
		if frame, ok := crsFrame(inCRS); ok && frame != info.GeoidFrame {
			var err error
			tx, ty, tz, err = o.reproject(frame, info.GeoidFrame, tx, ty, tz)
			if err != nil {
				return nil, err
			}
		}
		spec, runnable := o.regionPipeline(inCRS, outCRS, name, info.GeoidName)
		if !runnable {
			continue
		}
		if spec != "" {
			var err error
			tx, ty, tz, err = o.engine.TransformPipeline(spec, tx, ty, tz)
			if err != nil {
				return nil, err
			}
		}
		unc := 0.0
		if opts.IncludeUncertainty {
			var err error
			unc, err = o.outputUncertainty(outCRS, info)
			if err != nil {
				return nil, err
			}
		}
		for i := 0; i < n; i++ {
			if !geodesy.Covered(tz[i]) {
				continue
			}
			res.X[i] = tx[i]
			res.Y[i] = ty[i]
			res.Z[i] = tz[i]
			if opts.IncludeUncertainty {
				res.Uncertainty[i] = unc
			}
			if opts.IncludeRegionIndex {
				res.RegionIndex[i] = cnt
			}
			written++
			contributed[name] = true
		}
	}
	if written == 0 {
		return nil, &NoValidRegionError{From: inCRS.DatumName(), To: outCRS.DatumName()}
	}

	if len(contributed) != len(regions) {
		kept := make([]string, 0, len(contributed))
		for _, name := range regions {
			if contributed[name] {
				kept = append(kept, name)
			}
		}
		if err := inCRS.UpdateRegions(kept); err != nil {
			return nil, err
		}
		if err := outCRS.UpdateRegions(kept); err != nil {
			return nil, err
		}
	}

	for i := range res.Z {
		if !math.IsNaN(res.Z[i]) {
			res.Z[i] = roundMM(flip * res.Z[i])
		}
	}
	o.log.Infof("transformed %d points from %s to %s", n, inCRS.DatumName(), outCRS.DatumName())
	return res, nil
}

func (o *Orchestrator) resolveRegions(batch Batch, inCRS, outCRS *vypercrs.CompoundCRS) error {
	resolved, err := o.catalog.Resolve(batch.Bound())
	if err != nil {
		return err
	}
	if len(resolved) == 0 {
		return &NoValidRegionError{From: inCRS.DatumName(), To: outCRS.DatumName()}
	}
	names := make([]string, len(resolved))
	for i, r := range resolved {
		names[i] = r.Name
	}
	if err := inCRS.UpdateRegions(names); err != nil {
		return err
	}
	return outCRS.UpdateRegions(names)
}

// regionPipeline compiles the in-to-out pipeline for one region. A region a
// CRS does not carry, an unsupported datum pair and a pipeline whose grids
// the catalog cannot resolve all skip the region; only identical datums make
// it back as a runnable empty specification.
func (o *Orchestrator) regionPipeline(inCRS, outCRS *vypercrs.CompoundCRS, region, geoidName string) (string, bool) {
	inDatum := strings.ToLower(inCRS.DatumName())
	outDatum := strings.ToLower(outCRS.DatumName())
	// the pivot datum covers every region; any other datum must carry it
	if inDatum != "ellipse" && !containsString(inCRS.Regions(), region) {
		o.log.Warnf("region %s is not in the input crs, skipping it", region)
		return "", false
	}
	if outDatum != "ellipse" && !containsString(outCRS.Regions(), region) {
		o.log.Warnf("region %s is not in the output crs, skipping it", region)
		return "", false
	}
	compiled, err := pipeline.Compile(inDatum, outDatum, region, geoidName)
	if err != nil {
		var unsupported *pipeline.UnsupportedDatumError
		if errors.As(err, &unsupported) {
			o.log.Warnf("region %s: %v, skipping it", region, err)
			return "", false
		}
		o.log.Warnf("region %s: cannot compile %s to %s: %v, skipping it", region, inDatum, outDatum, err)
		return "", false
	}
	if compiled == nil {
		return "", true
	}
	if !compiled.Feasible(o.catalog) {
		o.log.Warnf("region %s is missing grids for %s to %s, skipping it", region, inDatum, outDatum)
		return "", false
	}
	return compiled.String(), true
}

// Per-layer sigma names that can appear in a pipeline specification as grid
// layer names.
var uncertaintyLayers = []string{"tss", "mhhw", "mhw", "mtl", "dtl", "mlw", "mllw"}

// outputUncertainty combines the sigmas that apply to the output datum in one
// region: the regional sigma of every tidal layer the output pipeline passes
// through plus the geoid model sigma. An output at the pivot datum has no
// pipeline and contributes zero.
func (o *Orchestrator) outputUncertainty(outCRS *vypercrs.CompoundCRS, region *vdatum.Region) (float64, error) {
	spec := outCRS.PipelineString()
	if !strings.Contains(spec, "vgridshift") {
		return 0, nil
	}
	total := 0.0
	for _, layer := range uncertaintyLayers {
		if strings.Contains(spec, layer) {
			total += region.Sigma(layer)
		}
	}
	geoid, err := o.catalog.PipelineGeoidSigma(spec)
	if err != nil {
		return 0, err
	}
	return total + geoid, nil
}

func (o *Orchestrator) reproject(fromFrame, toFrame string, x, y, z []float64) ([]float64, []float64, []float64, error) {
	from, ok := geodesy.EPSG3DForFrame(fromFrame)
	if !ok {
		return nil, nil, nil, fmt.Errorf("reference frame %q has no known epsg code", fromFrame)
	}
	to, ok := geodesy.EPSG3DForFrame(toFrame)
	if !ok {
		return nil, nil, nil, fmt.Errorf("reference frame %q has no known epsg code", toFrame)
	}
	return o.engine.TransformEPSG(from, to, x, y, z)
}

func crsFrame(crs *vypercrs.CompoundCRS) (string, bool) {
	hori := crs.Horizontal()
	if hori == nil {
		return "", false
	}
	return hori.Frame()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

func roundMM(z float64) float64 {
	return math.Round(z*1000) / 1000
}
