package ini_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/util/ini"
	"github.com/stretchr/testify/require"
)

func TestLoadString(t *testing.T) {
	cfg, err := ini.Load("[Default]\nvdatum_path=/data/vdatum\n; comment\nverbose = true\n")
	require.NoError(t, err)
	require.True(t, cfg.HasSection("Default"))
	require.Equal(t, "/data/vdatum", cfg.Section("Default").GetValueWithDefault("vdatum_path", ""))
	require.True(t, cfg.Section("Default").GetBoolWithDefault("verbose", false))
}

func TestLoadRegionConfig(t *testing.T) {
	content := `[region]
reference_frame=NAD83
reference_geoid=core/geoid12b/g2012bu0.gtx
uncertainty_tss=0.02
uncertainty_mllw=0.015
`
	cfg, err := ini.Load(content)
	require.NoError(t, err)
	sec := cfg.Section("region")
	require.Equal(t, "NAD83", sec.GetValueWithDefault("reference_frame", ""))
	require.Equal(t, 0.015, sec.GetFloat64WithDefault("uncertainty_mllw", 0))

	flat := cfg.Flatten()
	require.Equal(t, "core/geoid12b/g2012bu0.gtx", flat["reference_geoid"])
}

func TestFlattenFirstWins(t *testing.T) {
	cfg, err := ini.Load("[a]\nkey=first\n[b]\nkey=second\n")
	require.NoError(t, err)
	require.Equal(t, "first", cfg.Flatten()["key"])
}

func TestDefaultSection(t *testing.T) {
	cfg, err := ini.Load("orphan=1\n[sec]\nx=2\n")
	require.NoError(t, err)
	require.Equal(t, 1, cfg.DefaultSection().GetIntWithDefault("orphan", 0))
	require.Equal(t, 2, cfg.Section("sec").GetIntWithDefault("x", 0))
}

func TestWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "vdatum.config")

	w, err := ini.Load("[Default]\nvdatum_path=/somewhere\n")
	require.NoError(t, err)
	require.NoError(t, w.WriteFile(path))

	_, err = os.Stat(path)
	require.NoError(t, err)

	back, err := ini.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/somewhere", back.Section("Default").GetValueWithDefault("vdatum_path", ""))
}
