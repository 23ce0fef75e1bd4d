package transform

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/floats"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/logging"
	"github.com/noaa-ocs-hydrography/vyperdatum/mods/vdatum"
	"github.com/noaa-ocs-hydrography/vyperdatum/mods/vypercrs"
)

// RasterSource is a read view of a gridded dataset: named bands of equal
// size over one geotransform. Band values use NaN for nodata.
type RasterSource interface {
	Size() (width, height int)
	GeoTransform() [6]float64
	Bound() orb.Bound
	Bands() []string
	Read(band string) ([]float64, error)
}

// RasterSink receives the transformed bands.
type RasterSink interface {
	WriteBand(name string, values []float64) error
	SetWKT(wkt string)
}

// MemoryRaster is the in-process raster backing. It satisfies both
// RasterSource and RasterSink; file-format adapters live outside the core.
type MemoryRaster struct {
	width     int
	height    int
	transform [6]float64
	wkt       string
	names     []string
	bands     map[string][]float64
}

// NewMemoryRaster builds an empty raster. The geotransform is the usual
// six-parameter affine: origin x, pixel width, row rotation, origin y,
// column rotation, pixel height (negative for north-up).
func NewMemoryRaster(width, height int, transform [6]float64) *MemoryRaster {
	return &MemoryRaster{
		width:     width,
		height:    height,
		transform: transform,
		bands:     make(map[string][]float64),
	}
}

func (r *MemoryRaster) Size() (int, int)         { return r.width, r.height }
func (r *MemoryRaster) GeoTransform() [6]float64 { return r.transform }
func (r *MemoryRaster) Bands() []string          { return append([]string(nil), r.names...) }
func (r *MemoryRaster) WKT() string              { return r.wkt }
func (r *MemoryRaster) SetWKT(wkt string)        { r.wkt = wkt }

// Bound returns the raster extent in world coordinates.
func (r *MemoryRaster) Bound() orb.Bound {
	gt := r.transform
	x0, y0 := gt[0], gt[3]
	x1 := gt[0] + float64(r.width)*gt[1]
	y1 := gt[3] + float64(r.height)*gt[5]
	b := orb.Bound{Min: orb.Point{x0, y0}, Max: orb.Point{x0, y0}}
	return b.Extend(orb.Point{x1, y1})
}

// PixelCenter returns the world coordinate of the center of pixel (col, row).
func (r *MemoryRaster) PixelCenter(col, row int) (float64, float64) {
	gt := r.transform
	x := gt[0] + (float64(col)+0.5)*gt[1] + (float64(row)+0.5)*gt[2]
	y := gt[3] + (float64(col)+0.5)*gt[4] + (float64(row)+0.5)*gt[5]
	return x, y
}

// AddBand registers a band, normalizing the given nodata value to NaN. Use
// NaN as the nodata value when the band has none.
func (r *MemoryRaster) AddBand(name string, values []float64, nodata float64) error {
	if len(values) != r.width*r.height {
		return fmt.Errorf("band %s has %d values, raster is %dx%d", name, len(values), r.width, r.height)
	}
	stored := make([]float64, len(values))
	copy(stored, values)
	if !math.IsNaN(nodata) {
		for i, v := range stored {
			if v == nodata {
				stored[i] = math.NaN()
			}
		}
	}
	if _, exists := r.bands[name]; !exists {
		r.names = append(r.names, name)
	}
	r.bands[name] = stored
	return nil
}

func (r *MemoryRaster) WriteBand(name string, values []float64) error {
	return r.AddBand(name, values, math.NaN())
}

func (r *MemoryRaster) Read(band string) ([]float64, error) {
	values, ok := r.bands[band]
	if !ok {
		return nil, fmt.Errorf("raster has no band named %s", band)
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out, nil
}

// Band discovery goes by conventional names, case-insensitively.
var (
	elevationBandNames   = []string{"depth", "elevation"}
	uncertaintyBandNames = []string{"uncertainty", "vertical uncertainty"}
	contributorBandNames = []string{"contributor"}
)

func findBand(src RasterSource, candidates []string) (string, bool) {
	for _, want := range candidates {
		for _, name := range src.Bands() {
			if strings.EqualFold(name, want) {
				return name, true
			}
		}
	}
	return "", false
}

// SeparationModel is the coarse sampled separation surface: for every
// lattice cell the separation to add, its uncertainty and the index of the
// region that produced it. Full-resolution pixels look up their nearest
// lattice cell.
type SeparationModel struct {
	xs          []float64
	ys          []float64
	sep         []float64
	uncertainty []float64
	regionIndex []int
	regions     []string
}

func (m *SeparationModel) Spacing() (float64, float64) {
	dx, dy := 0.0, 0.0
	if len(m.xs) > 1 {
		dx = m.xs[1] - m.xs[0]
	}
	if len(m.ys) > 1 {
		dy = m.ys[1] - m.ys[0]
	}
	return dx, dy
}

// Regions lists the region names RegionIndex values refer to, in the order
// they were applied.
func (m *SeparationModel) Regions() []string {
	return append([]string(nil), m.regions...)
}

// Lookup digitizes a world coordinate into the nearest lattice cell and
// returns its separation, uncertainty and region index. Outside-coverage
// cells carry NaN separation and region index -1.
func (m *SeparationModel) Lookup(x, y float64) (float64, float64, int) {
	col := nearestIndex(m.xs, x)
	row := nearestIndex(m.ys, y)
	i := row*len(m.xs) + col
	return m.sep[i], m.uncertainty[i], m.regionIndex[i]
}

func nearestIndex(centers []float64, v float64) int {
	if len(centers) < 2 {
		return 0
	}
	step := centers[1] - centers[0]
	i := int(math.Round((v - centers[0]) / step))
	if i < 0 {
		return 0
	}
	if i >= len(centers) {
		return len(centers) - 1
	}
	return i
}

// RasterSeparationBuilder derives a separation model for a raster extent and
// applies it to the raster bands. When AllowOutsideCoverage is set, pixels
// the model does not cover pass through unchanged and get the conservative
// CATZOC D vertical uncertainty instead of being blanked.
type RasterSeparationBuilder struct {
	orch                 *Orchestrator
	log                  logging.Log
	AllowOutsideCoverage bool
}

func NewRasterSeparationBuilder(orch *Orchestrator) *RasterSeparationBuilder {
	return &RasterSeparationBuilder{
		orch: orch,
		log:  logging.GetLog("raster"),
	}
}

// BuildSeparation samples the separation surface between inCRS and outCRS
// over the bound at the given spacing. Spacing should be no finer than the
// raster resolution; every lattice point costs an engine evaluation.
//
// Regions are ordered by ascending lattice coverage before the batch runs,
// so the orchestrator's last-writer-wins merge leaves the region with the
// largest coverage in charge of overlapped cells.
func (b *RasterSeparationBuilder) BuildSeparation(bound orb.Bound, spacing float64, inCRS, outCRS *vypercrs.CompoundCRS) (*SeparationModel, error) {
	if spacing <= 0 {
		return nil, fmt.Errorf("sampling spacing must be positive, got %v", spacing)
	}
	xs := latticeCenters(bound.Min[0], bound.Max[0], spacing)
	ys := latticeCenters(bound.Min[1], bound.Max[1], spacing)

	batch := Batch{
		X: make([]float64, 0, len(xs)*len(ys)),
		Y: make([]float64, 0, len(xs)*len(ys)),
	}
	for _, y := range ys {
		for _, x := range xs {
			batch.X = append(batch.X, x)
			batch.Y = append(batch.Y, y)
		}
	}

	if err := b.orderRegions(batch, inCRS, outCRS); err != nil {
		return nil, err
	}
	res, err := b.orch.Transform(batch, inCRS, outCRS, Options{
		IncludeUncertainty: true,
		IncludeRegionIndex: true,
	})
	if err != nil {
		return nil, err
	}
	covered := 0
	for _, z := range res.Z {
		if !math.IsNaN(z) {
			covered++
		}
	}
	b.log.Infof("sampled separation for %d cells at %v spacing, %d outside coverage",
		len(res.Z), spacing, len(res.Z)-covered)
	return &SeparationModel{
		xs:          xs,
		ys:          ys,
		sep:         res.Z,
		uncertainty: res.Uncertainty,
		regionIndex: res.RegionIndex,
		regions:     inCRS.Regions(),
	}, nil
}

// orderRegions resolves the region list when the CRS pair does not carry one
// and sorts it by ascending lattice coverage.
func (b *RasterSeparationBuilder) orderRegions(batch Batch, inCRS, outCRS *vypercrs.CompoundCRS) error {
	names := inCRS.Regions()
	if len(names) == 0 {
		resolved, err := b.orch.Catalog().Resolve(batch.Bound())
		if err != nil {
			return err
		}
		if len(resolved) == 0 {
			return &NoValidRegionError{From: inCRS.DatumName(), To: outCRS.DatumName()}
		}
		names = make([]string, len(resolved))
		for i, r := range resolved {
			names[i] = r.Name
		}
	}
	counts := make(map[string]int, len(names))
	for _, name := range names {
		info, ok := b.orch.Catalog().Region(name)
		if !ok {
			continue
		}
		counts[name] = latticeCoverage(info, batch)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return counts[names[i]] < counts[names[j]]
	})
	if err := inCRS.UpdateRegions(names); err != nil {
		return err
	}
	return outCRS.UpdateRegions(names)
}

func latticeCoverage(region *vdatum.Region, batch Batch) int {
	count := 0
	for i := range batch.X {
		if planar.MultiPolygonContains(region.Coverage, orb.Point{batch.X[i], batch.Y[i]}) {
			count++
		}
	}
	return count
}

func latticeCenters(min, max, spacing float64) []float64 {
	n := int(math.Ceil((max - min) / spacing))
	if n < 2 {
		n = 2
	}
	edges := floats.Span(make([]float64, n), min, max)
	centers := edges[:n-1]
	for i := range centers {
		centers[i] += spacing / 2
	}
	return centers
}

// ApplySep applies the separation model to the source raster and returns the
// corrected elevation, combined uncertainty and contributor bands. The
// contributor band is nil when the source has none. isHeight marks a
// positive-up elevation band, which is negated into depth before the
// separation is subtracted.
func (b *RasterSeparationBuilder) ApplySep(src RasterSource, model *SeparationModel, isHeight bool) ([]float64, []float64, []float64, error) {
	width, height := src.Size()
	elevName, ok := findBand(src, elevationBandNames)
	if !ok {
		return nil, nil, nil, fmt.Errorf("raster has no elevation band, bands=%v", src.Bands())
	}
	elevation, err := src.Read(elevName)
	if err != nil {
		return nil, nil, nil, err
	}
	var srcUnc []float64
	if name, ok := findBand(src, uncertaintyBandNames); ok {
		if srcUnc, err = src.Read(name); err != nil {
			return nil, nil, nil, err
		}
	} else {
		b.log.Infof("no uncertainty band found, output uncertainty comes from the separation model alone")
	}
	var contributor []float64
	if name, ok := findBand(src, contributorBandNames); ok {
		if contributor, err = src.Read(name); err != nil {
			return nil, nil, nil, err
		}
	}

	gt := src.GeoTransform()
	outElev := make([]float64, len(elevation))
	outUnc := make([]float64, len(elevation))
	outside := 0
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			i := row*width + col
			px := gt[0] + (float64(col)+0.5)*gt[1] + (float64(row)+0.5)*gt[2]
			py := gt[3] + (float64(col)+0.5)*gt[4] + (float64(row)+0.5)*gt[5]
			sep, sunc, _ := model.Lookup(px, py)

			depth := elevation[i]
			if isHeight {
				depth = -depth
			}
			if math.IsNaN(elevation[i]) {
				outElev[i] = math.NaN()
				outUnc[i] = math.NaN()
				continue
			}
			if math.IsNaN(sep) {
				outside++
				if !b.AllowOutsideCoverage {
					outElev[i] = math.NaN()
					outUnc[i] = math.NaN()
					if contributor != nil {
						contributor[i] = math.NaN()
					}
					continue
				}
				outElev[i] = elevation[i]
				outUnc[i] = catzocD(elevation[i])
				continue
			}
			outElev[i] = depth - sep
			if srcUnc != nil && !math.IsNaN(srcUnc[i]) {
				outUnc[i] = srcUnc[i] + sunc
			} else {
				outUnc[i] = sunc
			}
		}
	}
	if outside > 0 {
		if b.AllowOutsideCoverage {
			b.log.Infof("passed %d pixels outside coverage through with CATZOC D uncertainty", outside)
		} else {
			b.log.Infof("blanked %d pixels outside coverage", outside)
		}
	}
	return outElev, outUnc, contributor, nil
}

// catzocD is the conservative vertical uncertainty for a value with no
// separation available, per the IHO CATZOC D band.
func catzocD(z float64) float64 {
	if z > 0 {
		return 3.0
	}
	return 3.0 - 0.06*z
}

// TransformRaster runs the whole raster flow: build the separation model
// over the source extent, apply it and assemble the output raster with the
// output CRS stamped on it.
func (b *RasterSeparationBuilder) TransformRaster(src RasterSource, spacing float64, inCRS, outCRS *vypercrs.CompoundCRS, isHeight bool) (*MemoryRaster, error) {
	model, err := b.BuildSeparation(src.Bound(), spacing, inCRS, outCRS)
	if err != nil {
		return nil, err
	}
	elevation, uncertainty, contributor, err := b.ApplySep(src, model, isHeight)
	if err != nil {
		return nil, err
	}
	width, height := src.Size()
	out := NewMemoryRaster(width, height, src.GeoTransform())
	if err := out.WriteBand("Elevation", elevation); err != nil {
		return nil, err
	}
	if err := out.WriteBand("Uncertainty", uncertainty); err != nil {
		return nil, err
	}
	if contributor != nil {
		if err := out.WriteBand("Contributor", contributor); err != nil {
			return nil, err
		}
	}
	if wkt, ok := outCRS.ToWKT(); ok {
		out.SetWKT(wkt)
	}
	return out, nil
}
