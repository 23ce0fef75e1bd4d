package vdatum_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/vdatum"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func testExtendedDir(t *testing.T) string {
	t.Helper()
	ext := t.TempDir()

	// a complete extended region
	dir := filepath.Join(ext, "hudson_river_1")
	writeFile(t, filepath.Join(dir, "tss.gtx"), "hudson tss")
	writeFile(t, filepath.Join(dir, "mllw.gtx"), "hudson mllw")
	writeFile(t, filepath.Join(dir, "hudson_river_1.geojson"),
		coverageJSON("valid-transform coverage", -74.1, 40.5, -73.8, 41.5))
	writeFile(t, filepath.Join(dir, "hudson_river_1.config"), `[Default]
reference_frame=NAD83
reference_geoid=core/geoid12b/g2012bu0.gtx
uncertainty_tss=0.02
uncertainty_mllw=0.01
`)

	// grids but no config file: not a region
	stray := filepath.Join(ext, "strays")
	writeFile(t, filepath.Join(stray, "tss.gtx"), "stray")

	// config missing the required keys
	bad := filepath.Join(ext, "badconfig")
	writeFile(t, filepath.Join(bad, "tss.gtx"), "bad")
	writeFile(t, filepath.Join(bad, "badconfig.geojson"),
		coverageJSON("valid-transform coverage", 0, 0, 1, 1))
	writeFile(t, filepath.Join(bad, "badconfig.config"), "[Default]\nreference_frame=NAD83\n")

	return ext
}

func TestWithExtendedDirectory(t *testing.T) {
	catalog, err := vdatum.Open(testDatumDir(t))
	require.NoError(t, err)
	base := len(catalog.Regions())

	merged, err := catalog.WithExtendedDirectory(testExtendedDir(t))
	require.NoError(t, err)
	require.Len(t, merged.Regions(), base+1)

	// the original value is untouched
	require.Len(t, catalog.Regions(), base)
	require.False(t, catalog.HasGrid("hudson_river_1/tss.gtx"))

	r, ok := merged.Region("hudson_river_1")
	require.True(t, ok)
	require.True(t, r.Extended)
	require.Equal(t, "NAD83", r.GeoidFrame)
	require.Equal(t, vdatum.GeoidGeoid12B, r.GeoidName)
	require.InDelta(t, 0.02, r.Sigma("tss"), 1e-9)
	require.InDelta(t, 0.01, r.Sigma("mllw"), 1e-9)
	require.True(t, merged.HasGrid("hudson_river_1/tss.gtx"))

	// the grid resolves into the extended directory, not the datum root
	path, ok := merged.GridPath("hudson_river_1/tss.gtx")
	require.True(t, ok)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hudson tss", string(data))

	matched, err := merged.Resolve(orb.Bound{
		Min: orb.Point{-74.05, 40.6},
		Max: orb.Point{-73.9, 40.9},
	})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	require.Equal(t, "hudson_river_1", matched[0].Name)
}

func TestExtendedFirstRegistrationWins(t *testing.T) {
	catalog, err := vdatum.Open(testDatumDir(t))
	require.NoError(t, err)

	ext := t.TempDir()
	dir := filepath.Join(ext, "NCcoast11_8301")
	writeFile(t, filepath.Join(dir, "tss.gtx"), "shadow")
	writeFile(t, filepath.Join(dir, "NCcoast11_8301.geojson"),
		coverageJSON("valid-transform coverage", 10, 10, 11, 11))
	writeFile(t, filepath.Join(dir, "NCcoast11_8301.config"), `[Default]
reference_frame=ITRF2014
reference_geoid=core/xgeoid20b/conuspac.gtx
`)

	merged, err := catalog.WithExtendedDirectory(ext)
	require.NoError(t, err)
	require.Len(t, merged.Regions(), len(catalog.Regions()))

	r, ok := merged.Region("NCcoast11_8301")
	require.True(t, ok)
	require.False(t, r.Extended)
	require.Equal(t, "NAD83", r.GeoidFrame)
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vyperdatum", "vdatum.config")
	cfg, err := vdatum.LoadConfig(path)
	require.NoError(t, err)
	require.Empty(t, cfg.DatumPath())

	root := testDatumDir(t)
	ext := testExtendedDir(t)
	require.NoError(t, cfg.SetDatumPath(root))
	require.NoError(t, cfg.SetExtendedPath("hudson_path", ext))
	require.Error(t, cfg.SetExtendedPath("vdatum_path", ext))
	require.Error(t, cfg.SetExtendedPath("hudson", ext))

	reloaded, err := vdatum.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, root, reloaded.DatumPath())
	require.Equal(t, []string{ext}, reloaded.ExtendedPaths())

	catalog, err := vdatum.OpenFromConfig(reloaded)
	require.NoError(t, err)
	_, ok := catalog.Region("hudson_river_1")
	require.True(t, ok)

	require.NoError(t, reloaded.RemoveExtendedPath("hudson_path"))
	again, err := vdatum.LoadConfig(path)
	require.NoError(t, err)
	require.Empty(t, again.ExtendedPaths())
}
