package geodesy_test

import (
	"math"
	"testing"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/geodesy"
	"github.com/stretchr/testify/require"
)

func TestFrameLookups(t *testing.T) {
	frame, ok := geodesy.FrameForEPSG(geodesy.NAD832D)
	require.True(t, ok)
	require.Equal(t, geodesy.FrameNAD83, frame)

	frame, ok = geodesy.FrameForEPSG(geodesy.ITRF20083D)
	require.True(t, ok)
	require.Equal(t, geodesy.FrameITRF2008, frame)

	code, ok := geodesy.EPSG3DForFrame(geodesy.FrameITRF2014)
	require.True(t, ok)
	require.Equal(t, geodesy.ITRF20143D, code)

	_, ok = geodesy.FrameForEPSG(4326)
	require.False(t, ok)

	require.True(t, geodesy.Is3D(geodesy.NAD833D))
	require.False(t, geodesy.Is3D(geodesy.NAD832D))
	require.Equal(t, geodesy.NAD832D, geodesy.To2D(geodesy.NAD833D))
}

func TestPipelineEngineVerticalSteps(t *testing.T) {
	// constant offset surfaces keyed by grid name
	seps := map[string]float64{
		"REGIONA/tss.gtx":  2.0,
		"REGIONA/mllw.gtx": 0.5,
	}
	engine := geodesy.NewEngine(func(grid string, x, y []float64) ([]float64, error) {
		out := make([]float64, len(x))
		for i := range out {
			out[i] = seps[grid]
		}
		return out, nil
	})

	spec := "+proj=pipeline +step +inv +proj=vgridshift grids=REGIONA/tss.gtx " +
		"+step +proj=vgridshift grids=REGIONA/mllw.gtx"
	x := []float64{-75.7, -75.8}
	y := []float64{36.0, 36.1}
	z := []float64{10.0, 20.0}
	xx, yy, zz, err := engine.TransformPipeline(spec, x, y, z)
	require.NoError(t, err)
	require.Equal(t, x, xx)
	require.Equal(t, y, yy)
	require.InDelta(t, 10.0-2.0+0.5, zz[0], 1e-9)
	require.InDelta(t, 20.0-2.0+0.5, zz[1], 1e-9)
	// inputs untouched
	require.Equal(t, []float64{10.0, 20.0}, z)
}

func TestPipelineEngineOutOfCoverage(t *testing.T) {
	engine := geodesy.NewEngine(func(grid string, x, y []float64) ([]float64, error) {
		out := make([]float64, len(x))
		for i := range out {
			if x[i] > 0 {
				out[i] = geodesy.OutOfCoverage()
			} else {
				out[i] = 1.0
			}
		}
		return out, nil
	})
	spec := "+proj=pipeline +step +proj=vgridshift grids=REGIONA/tss.gtx"
	_, _, zz, err := engine.TransformPipeline(spec, []float64{-1, 1}, []float64{0, 0}, []float64{5, 5})
	require.NoError(t, err)
	require.True(t, geodesy.Covered(zz[0]))
	require.False(t, geodesy.Covered(zz[1]))
}

func TestPipelineEngineRejectsMalformedSpec(t *testing.T) {
	engine := geodesy.NewEngine(func(grid string, x, y []float64) ([]float64, error) {
		return make([]float64, len(x)), nil
	})
	_, _, _, err := engine.TransformPipeline("+proj=vgridshift grids=REGIONA/tss.gtx", []float64{0}, []float64{0}, []float64{0})
	require.Error(t, err)
	_, _, _, err = engine.TransformPipeline("+proj=pipeline +step +proj=utm +zone=18", []float64{0}, []float64{0}, []float64{0})
	require.Error(t, err)
}

func TestPipelineEngineRequiresSampler(t *testing.T) {
	engine := geodesy.NewEngine(nil)
	_, _, _, err := engine.TransformPipeline("+proj=pipeline +step +proj=vgridshift grids=a/b.gtx", []float64{0}, []float64{0}, []float64{0})
	require.Error(t, err)
}

func TestTransformEPSGIdentityFrames(t *testing.T) {
	engine := geodesy.NewEngine(nil)
	x := []float64{-75.79180}
	y := []float64{36.01570}
	z := []float64{10.5}
	xx, yy, zz, err := engine.TransformEPSG(geodesy.ITRF20083D, geodesy.ITRF20143D, x, y, z)
	require.NoError(t, err)
	require.InDelta(t, x[0], xx[0], 1e-9)
	require.InDelta(t, y[0], yy[0], 1e-9)
	require.InDelta(t, z[0], zz[0], 1e-9)
}

func TestTransformEPSGNAD83Shift(t *testing.T) {
	engine := geodesy.NewEngine(nil)
	x := []float64{-75.79180}
	y := []float64{36.01570}
	z := []float64{0.0}
	xx, yy, _, err := engine.TransformEPSG(geodesy.NAD833D, geodesy.ITRF20143D, x, y, z)
	require.NoError(t, err)
	// helmert between the frames moves the point by roughly a meter
	require.NotEqual(t, x[0], xx[0])
	require.Less(t, math.Abs(xx[0]-x[0]), 1e-3)
	require.Less(t, math.Abs(yy[0]-y[0]), 1e-3)
}

func TestTransformEPSGNAD83RoundTrip(t *testing.T) {
	engine := geodesy.NewEngine(nil)
	x := []float64{-138.0}
	y := []float64{59.0}
	z := []float64{5.0}
	xx, yy, zz, err := engine.TransformEPSG(geodesy.NAD833D, geodesy.ITRF20083D, x, y, z)
	require.NoError(t, err)
	require.NotEqual(t, z[0], zz[0])
	bx, by, bz, err := engine.TransformEPSG(geodesy.ITRF20083D, geodesy.NAD833D, xx, yy, zz)
	require.NoError(t, err)
	require.InDelta(t, x[0], bx[0], 1e-9)
	require.InDelta(t, y[0], by[0], 1e-9)
	require.InDelta(t, z[0], bz[0], 1e-6)
}

func TestTransformEPSGUnknownCode(t *testing.T) {
	engine := geodesy.NewEngine(nil)
	_, _, _, err := engine.TransformEPSG(32618, geodesy.NAD832D, []float64{0}, []float64{0}, nil)
	require.Error(t, err)
}
