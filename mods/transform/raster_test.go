package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/geodesy"
)

// testRaster spans x -76.1..-75.3, y 35.75..35.95 at 0.1 degree pixels. The
// westernmost column falls outside every region's coverage.
func testRaster(t *testing.T) *MemoryRaster {
	t.Helper()
	r := NewMemoryRaster(8, 2, [6]float64{-76.1, 0.1, 0, 35.95, 0, -0.1})
	depth := make([]float64, 16)
	for i := range depth {
		depth[i] = 10.0
	}
	// one negative value outside coverage, one nodata pixel
	depth[8] = -2.0
	depth[10] = -9999
	unc := make([]float64, 16)
	contributor := make([]float64, 16)
	for i := range unc {
		unc[i] = 0.1
		contributor[i] = 7
	}
	require.NoError(t, r.AddBand("Depth", depth, -9999))
	require.NoError(t, r.AddBand("Uncertainty", unc, math.NaN()))
	require.NoError(t, r.AddBand("Contributor", contributor, math.NaN()))
	return r
}

func TestMemoryRasterGeometry(t *testing.T) {
	r := testRaster(t)
	b := r.Bound()
	require.InDelta(t, -76.1, b.Min[0], 1e-12)
	require.InDelta(t, 35.75, b.Min[1], 1e-12)
	require.InDelta(t, -75.3, b.Max[0], 1e-12)
	require.InDelta(t, 35.95, b.Max[1], 1e-12)

	x, y := r.PixelCenter(0, 0)
	require.InDelta(t, -76.05, x, 1e-12)
	require.InDelta(t, 35.9, y, 1e-12)

	nodata, err := r.Read("Depth")
	require.NoError(t, err)
	require.True(t, math.IsNaN(nodata[10]))
	_, err = r.Read("Slope")
	require.ErrorContains(t, err, "no band named")
}

func TestBuildSeparation(t *testing.T) {
	orch := testOrchestrator(t)
	builder := NewRasterSeparationBuilder(orch)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})

	model, err := builder.BuildSeparation(testRaster(t).Bound(), 0.1, inCRS, outCRS)
	require.NoError(t, err)

	// NCinner covers more of the lattice, so it is applied last and owns
	// the overlap
	require.Equal(t, []string{"NCcoast11_8301", "NCinner11_8301"}, model.Regions())

	sep, unc, region := model.Lookup(-75.95, 35.8)
	require.Equal(t, 39.0, sep)
	require.InDelta(t, 0.082, unc, 1e-9)
	require.Equal(t, 0, region)

	sep, unc, region = model.Lookup(-75.65, 35.8)
	require.Equal(t, 39.018, sep)
	require.InDelta(t, 0.065, unc, 1e-9)
	require.Equal(t, 1, region)

	sep, _, region = model.Lookup(-76.05, 35.9)
	require.True(t, math.IsNaN(sep))
	require.Equal(t, -1, region)
}

func TestBuildSeparationBadSpacing(t *testing.T) {
	orch := testOrchestrator(t)
	builder := NewRasterSeparationBuilder(orch)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})
	_, err := builder.BuildSeparation(testRaster(t).Bound(), 0, inCRS, outCRS)
	require.ErrorContains(t, err, "spacing must be positive")
}

func TestApplySep(t *testing.T) {
	orch := testOrchestrator(t)
	builder := NewRasterSeparationBuilder(orch)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})
	src := testRaster(t)
	model, err := builder.BuildSeparation(src.Bound(), 0.1, inCRS, outCRS)
	require.NoError(t, err)

	elev, unc, contributor, err := builder.ApplySep(src, model, false)
	require.NoError(t, err)

	// covered pixels: depth minus separation, uncertainties add
	require.InDelta(t, -29.0, elev[1], 1e-9)
	require.InDelta(t, 0.182, unc[1], 1e-9)
	require.InDelta(t, -29.018, elev[7], 1e-9)
	require.InDelta(t, 0.165, unc[7], 1e-9)
	require.Equal(t, 7.0, contributor[1])

	// outside coverage is blanked, contributor included
	require.True(t, math.IsNaN(elev[0]))
	require.True(t, math.IsNaN(unc[0]))
	require.True(t, math.IsNaN(contributor[0]))

	// nodata stays nodata
	require.True(t, math.IsNaN(elev[10]))
}

func TestApplySepAllowOutsideCoverage(t *testing.T) {
	orch := testOrchestrator(t)
	builder := NewRasterSeparationBuilder(orch)
	builder.AllowOutsideCoverage = true
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})
	src := testRaster(t)
	model, err := builder.BuildSeparation(src.Bound(), 0.1, inCRS, outCRS)
	require.NoError(t, err)

	elev, unc, _, err := builder.ApplySep(src, model, false)
	require.NoError(t, err)

	// positive values pass through with the uncertainty floor
	require.Equal(t, 10.0, elev[0])
	require.Equal(t, 3.0, unc[0])
	// negative values grow the uncertainty with magnitude
	require.Equal(t, -2.0, elev[8])
	require.InDelta(t, 3.12, unc[8], 1e-9)
}

func TestApplySepHeightInput(t *testing.T) {
	orch := testOrchestrator(t)
	builder := NewRasterSeparationBuilder(orch)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})
	src := testRaster(t)
	model, err := builder.BuildSeparation(src.Bound(), 0.1, inCRS, outCRS)
	require.NoError(t, err)

	elev, _, _, err := builder.ApplySep(src, model, true)
	require.NoError(t, err)
	require.InDelta(t, -49.0, elev[1], 1e-9)
}

func TestApplySepNoElevationBand(t *testing.T) {
	orch := testOrchestrator(t)
	builder := NewRasterSeparationBuilder(orch)
	r := NewMemoryRaster(2, 2, [6]float64{-75.8, 0.01, 0, 36.0, 0, -0.01})
	require.NoError(t, r.AddBand("Slope", make([]float64, 4), math.NaN()))
	_, _, _, err := builder.ApplySep(r, &SeparationModel{}, false)
	require.ErrorContains(t, err, "no elevation band")
}

func TestTransformRaster(t *testing.T) {
	orch := testOrchestrator(t)
	builder := NewRasterSeparationBuilder(orch)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})
	src := testRaster(t)

	out, err := builder.TransformRaster(src, 0.1, inCRS, outCRS, false)
	require.NoError(t, err)
	require.Equal(t, []string{"Elevation", "Uncertainty", "Contributor"}, out.Bands())

	width, height := out.Size()
	require.Equal(t, 8, width)
	require.Equal(t, 2, height)
	require.Equal(t, src.GeoTransform(), out.GeoTransform())

	elev, err := out.Read("Elevation")
	require.NoError(t, err)
	require.InDelta(t, -29.018, elev[7], 1e-9)

	wkt, ok := outCRS.ToWKT()
	require.True(t, ok)
	require.Equal(t, wkt, out.WKT())
}

func TestNearestIndexClamps(t *testing.T) {
	centers := []float64{0, 1, 2, 3}
	require.Equal(t, 0, nearestIndex(centers, -5))
	require.Equal(t, 0, nearestIndex(centers, 0.4))
	require.Equal(t, 1, nearestIndex(centers, 0.6))
	require.Equal(t, 3, nearestIndex(centers, 99))
	require.Equal(t, 0, nearestIndex([]float64{5}, 99))
}
