package transform

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/geodesy"
	"github.com/noaa-ocs-hydrography/vyperdatum/mods/vdatum"
	"github.com/noaa-ocs-hydrography/vyperdatum/mods/vypercrs"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func coverageJSON(minX, minY, maxX, maxY float64) string {
	return fmt.Sprintf(`{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"name": "valid-transform"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[%[1]f,%[2]f],[%[3]f,%[2]f],[%[3]f,%[4]f],[%[1]f,%[4]f],[%[1]f,%[2]f]]]
      }
    }
  ]
}`, minX, minY, maxX, maxY)
}

var testRegionBounds = map[string][4]float64{
	"NCcoast11_8301":  {-76.0, 35.5, -75.5, 36.2},
	"NCinner11_8301":  {-75.9, 35.7, -75.3, 36.1},
	"AKglacier00_010": {-140.0, 58.0, -136.0, 60.0},
}

func testCatalog(t *testing.T) *vdatum.Catalog {
	t.Helper()
	root := t.TempDir()
	for name, b := range testRegionBounds {
		writeFile(t, filepath.Join(root, name, "tss.gtx"), name+" tss")
		writeFile(t, filepath.Join(root, name, "mllw.gtx"), name+" mllw")
		writeFile(t, filepath.Join(root, name, name+".geojson"), coverageJSON(b[0], b[1], b[2], b[3]))
	}
	writeFile(t, filepath.Join(root, "core", "geoid12b", "g2012bu0.gtx"), "geoid12b")
	writeFile(t, filepath.Join(root, "core", "xgeoid18b", "AK_18B.gtx"), "xgeoid18b")
	writeFile(t, filepath.Join(root, "vdatum_sigma.inf"), strings.Join([]string{
		"conus.navd88.nad83=5.0",
		"conus.xgeoid18b.nad83=7.0",
		"nccoast.navd88.lmsl=1.2",
		"nccoast.lmsl.mllw=2.0",
		"ncinner.lmsl.mllw=1.5",
		"akglacier.lmsl.mllw=1.0",
	}, "\n")+"\n")
	cat, err := vdatum.Open(root)
	require.NoError(t, err)
	return cat
}

// testEngine samples constant separations per grid, reporting out of coverage
// outside the owning region's rectangle.
func testEngine() geodesy.Engine {
	offsets := map[string]float64{
		"core/geoid12b/g2012bu0.gtx": -35.0,
		"core/xgeoid18b/AK_18B.gtx":  6.0,
		"NCcoast11_8301/tss.gtx":     -73.4,
		"NCcoast11_8301/mllw.gtx":    0.6,
		"NCinner11_8301/tss.gtx":     -73.5,
		"NCinner11_8301/mllw.gtx":    0.518,
		"AKglacier00_010/tss.gtx":    -3.0,
		"AKglacier00_010/mllw.gtx":   1.0,
	}
	return geodesy.NewEngine(func(grid string, x, y []float64) ([]float64, error) {
		off, ok := offsets[grid]
		if !ok {
			return nil, fmt.Errorf("no such grid %s", grid)
		}
		region, _, _ := strings.Cut(grid, "/")
		out := make([]float64, len(x))
		for i := range x {
			if b, regional := testRegionBounds[region]; regional &&
				(x[i] < b[0] || x[i] > b[2] || y[i] < b[1] || y[i] > b[3]) {
				out[i] = geodesy.OutOfCoverage()
			} else {
				out[i] = off
			}
		}
		return out, nil
	})
}

func testOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	return NewOrchestrator(testCatalog(t), testEngine())
}

func crsPair(t *testing.T, cat *vdatum.Catalog, in []any, out []any) (*vypercrs.CompoundCRS, *vypercrs.CompoundCRS) {
	t.Helper()
	inCRS := vypercrs.NewCompoundCRS(cat)
	require.NoError(t, inCRS.SetCRS(in...))
	outCRS := vypercrs.NewCompoundCRS(cat)
	require.NoError(t, outCRS.SetCRS(out...))
	return inCRS, outCRS
}

func TestTransformNAD83ToMLLW(t *testing.T) {
	orch := testOrchestrator(t)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})

	batch := Batch{
		X: []float64{-75.79180, -75.79190, -75.79200},
		Y: []float64{36.01570, 36.01560, 36.01550},
		Z: []float64{10.5, 11.0, 11.5},
	}
	res, err := orch.Transform(batch, inCRS, outCRS, Options{
		IncludeUncertainty: true,
		IncludeRegionIndex: true,
	})
	require.NoError(t, err)
	require.Equal(t, []float64{49.518, 50.018, 50.518}, res.Z)
	require.Equal(t, batch.X, res.X)
	require.Equal(t, batch.Y, res.Y)
	for i := range res.Z {
		require.InDelta(t, 0.065, res.Uncertainty[i], 1e-9)
	}
	// both regions cover the points, the later one in list order wins
	require.Equal(t, []string{"NCcoast11_8301", "NCinner11_8301"}, inCRS.Regions())
	require.Equal(t, []int{1, 1, 1}, res.RegionIndex)
}

func TestTransformSameDatumNoOp(t *testing.T) {
	orch := testOrchestrator(t)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD832D, "mllw"}, []any{geodesy.NAD832D, "mllw"})

	batch := Batch{
		X: []float64{-75.7918},
		Y: []float64{36.0157},
		Z: []float64{12.3456},
	}
	res, err := orch.Transform(batch, inCRS, outCRS, Options{})
	require.NoError(t, err)
	require.Equal(t, []float64{12.346}, res.Z)
	require.Equal(t, batch.X, res.X)
	require.Nil(t, res.Uncertainty)
	require.Nil(t, res.RegionIndex)
}

func TestTransformRoundTrip(t *testing.T) {
	orch := testOrchestrator(t)
	fromNAD83, toMLLW := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})

	batch := Batch{
		X: []float64{-75.7918, -75.7920},
		Y: []float64{36.0157, 36.0155},
		Z: []float64{10.5, -3.25},
	}
	first, err := orch.Transform(batch, fromNAD83, toMLLW, Options{})
	require.NoError(t, err)

	fromMLLW, toNAD83 := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD832D, "mllw"}, []any{geodesy.NAD833D})
	back, err := orch.Transform(Batch{X: first.X, Y: first.Y, Z: first.Z}, fromMLLW, toNAD83, Options{
		IncludeUncertainty: true,
	})
	require.NoError(t, err)
	for i := range batch.Z {
		require.InDelta(t, batch.Z[i], back.Z[i], 0.0011)
		// the pivot datum has no output pipeline, so no uncertainty
		require.Zero(t, back.Uncertainty[i])
	}
}

func TestTransformDepthConvention(t *testing.T) {
	orch := testOrchestrator(t)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D},
		[]any{geodesy.NAD832D, `VERTCRS["mllw",VDATUM["mllw"],CS[vertical,1],AXIS["depth (D)",down],LENGTHUNIT["metre",1]]`})

	res, err := orch.Transform(Batch{
		X: []float64{-75.7918},
		Y: []float64{36.0157},
		Z: []float64{10.5},
	}, inCRS, outCRS, Options{})
	require.NoError(t, err)
	require.Equal(t, vypercrs.ConventionDown, outCRS.Convention())
	require.Equal(t, []float64{-49.518}, res.Z)
}

func TestTransformSpecialGeographyReprojects(t *testing.T) {
	orch := testOrchestrator(t)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})

	res, err := orch.Transform(Batch{
		X: []float64{-138.0},
		Y: []float64{59.0},
		Z: []float64{5.0},
	}, inCRS, outCRS, Options{
		IncludeUncertainty: true,
		IncludeRegionIndex: true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"AKglacier00_010"}, inCRS.Regions())
	require.Equal(t, 0, res.RegionIndex[0])

	// the batch is carried into the region's itrf geoid frame before the
	// grid shifts apply, so the coordinates move by the helmert shift and
	// the height picks it up on top of the sampled separations
	require.NotEqual(t, -138.0, res.X[0])
	require.InDelta(t, -138.0, res.X[0], 1e-3)
	require.InDelta(t, 59.0, res.Y[0], 1e-3)
	require.InDelta(t, 15.0, res.Z[0], 4.0)
	require.InDelta(t, 0.08, res.Uncertainty[0], 1e-9)
}

func TestTransformCoverageMerge(t *testing.T) {
	orch := testOrchestrator(t)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})

	// A is covered by both regions, B only by NCcoast, C by neither
	batch := Batch{
		X: []float64{-75.8, -75.95, -75.2},
		Y: []float64{36.0, 35.6, 35.6},
		Z: []float64{0, 0, 0},
	}
	res, err := orch.Transform(batch, inCRS, outCRS, Options{IncludeRegionIndex: true})
	require.NoError(t, err)
	require.Equal(t, []int{1, 0, -1}, res.RegionIndex)
	require.Equal(t, 39.018, res.Z[0])
	require.Equal(t, 39.0, res.Z[1])
	require.True(t, math.IsNaN(res.Z[2]))
	require.True(t, math.IsNaN(res.X[2]))
}

func TestTransformDropsBarrenRegions(t *testing.T) {
	orch := testOrchestrator(t)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})
	require.NoError(t, inCRS.UpdateRegions([]string{"NCcoast11_8301", "NCinner11_8301"}))
	require.NoError(t, outCRS.UpdateRegions([]string{"NCcoast11_8301", "NCinner11_8301"}))

	// only NCcoast covers this point, NCinner contributes nothing
	res, err := orch.Transform(Batch{
		X: []float64{-75.95},
		Y: []float64{35.6},
		Z: []float64{1.0},
	}, inCRS, outCRS, Options{})
	require.NoError(t, err)
	require.Equal(t, []float64{40.0}, res.Z)
	require.Equal(t, []string{"NCcoast11_8301"}, inCRS.Regions())
	require.Equal(t, []string{"NCcoast11_8301"}, outCRS.Regions())
}

func TestTransformNoRegionResolved(t *testing.T) {
	orch := testOrchestrator(t)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})

	_, err := orch.Transform(Batch{
		X: []float64{-97.0, -97.1},
		Y: []float64{27.5, 27.6},
		Z: []float64{0, 0},
	}, inCRS, outCRS, Options{})
	var noRegion *NoValidRegionError
	require.ErrorAs(t, err, &noRegion)
}

func TestTransformInvalidCRS(t *testing.T) {
	orch := testOrchestrator(t)
	inCRS := vypercrs.NewCompoundCRS(orch.Catalog())
	require.NoError(t, inCRS.SetCRS(geodesy.NAD832D)) // horizontal only
	outCRS := vypercrs.NewCompoundCRS(orch.Catalog())
	require.NoError(t, outCRS.SetCRS(geodesy.NAD832D, "mllw"))

	_, err := orch.Transform(Batch{
		X: []float64{-75.7918},
		Y: []float64{36.0157},
		Z: []float64{1.0},
	}, inCRS, outCRS, Options{})
	var invalid *vypercrs.InvalidCRSError
	require.ErrorAs(t, err, &invalid)
}

func TestTransformLengthMismatch(t *testing.T) {
	orch := testOrchestrator(t)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})
	_, err := orch.Transform(Batch{X: []float64{1, 2}, Y: []float64{1}}, inCRS, outCRS, Options{})
	require.ErrorContains(t, err, "disagree in length")
}

func TestExportCSV(t *testing.T) {
	orch := testOrchestrator(t)
	inCRS, outCRS := crsPair(t, orch.Catalog(),
		[]any{geodesy.NAD833D}, []any{geodesy.NAD832D, "mllw"})
	points := NewPointTransformer(orch, inCRS, outCRS)

	res, err := points.Transform(
		[]float64{-75.7918, -75.2},
		[]float64{36.0157, 35.6},
		[]float64{10.5, 1.0},
		Options{IncludeUncertainty: true, IncludeRegionIndex: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, points.ExportCSV(&buf, res))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "x,y,z,uncertainty,region_index", lines[0])
	fields := strings.Split(lines[1], ",")
	require.Len(t, fields, 5)
	require.Equal(t, "-75.7918", fields[0])
	require.Equal(t, "36.0157", fields[1])
	require.Equal(t, "49.518", fields[2])
	unc, err := strconv.ParseFloat(fields[3], 64)
	require.NoError(t, err)
	require.InDelta(t, 0.065, unc, 1e-9)
	require.Equal(t, "1", fields[4])
	// the uncovered point keeps its row with empty fields
	require.Equal(t, ",,,,", lines[2])
}
