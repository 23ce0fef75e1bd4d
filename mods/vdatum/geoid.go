package vdatum

import "github.com/noaa-ocs-hydrography/vyperdatum/mods/geodesy"

// Geoid grid paths as they appear inside pipeline specifications, relative to
// the datum directory root.
const (
	GeoidGeoid12B        = "core/geoid12b/g2012bu0.gtx"
	GeoidXGeoid16BAK     = "core/xgeoid16b/ak.gtx"
	GeoidXGeoid16BConus  = "core/xgeoid16b/conus.gtx"
	GeoidXGeoid16BHI     = "core/xgeoid16b/hi.gtx"
	GeoidXGeoid16BPRVI   = "core/xgeoid16b/prvi.gtx"
	GeoidXGeoid17BAK     = "core/xgeoid17b/AK_17B.gtx"
	GeoidXGeoid17BConus  = "core/xgeoid17b/CONUS_17B.gtx"
	GeoidXGeoid17BPRVI   = "core/xgeoid17b/PRVI_17B.gtx"
	GeoidXGeoid18BAK     = "core/xgeoid18b/AK_18B.gtx"
	GeoidXGeoid18BConus  = "core/xgeoid18b/CONUS_18B.gtx"
	GeoidXGeoid18BPRVI   = "core/xgeoid18b/PRVI_18B.gtx"
	GeoidXGeoid18BGU     = "core/xgeoid18b/GU_18B.gtx"
	GeoidXGeoid19B       = "core/xgeoid19b/CONUSPAC.pc.gtx"
	GeoidXGeoid20BConus  = "core/xgeoid20b/conuspac.gtx"
	GeoidXGeoid20BAS     = "core/xgeoid20b/as.gtx"
	GeoidXGeoid20BGU     = "core/xgeoid20b/gu.gtx"
)

// GeoidFrame maps each geoid grid to the horizontal reference frame its
// ellipsoid heights are expressed in.
var GeoidFrame = map[string]string{
	GeoidGeoid12B:       geodesy.FrameNAD83,
	GeoidXGeoid16BAK:    geodesy.FrameITRF2008,
	GeoidXGeoid16BConus: geodesy.FrameITRF2008,
	GeoidXGeoid16BHI:    geodesy.FrameITRF2008,
	GeoidXGeoid16BPRVI:  geodesy.FrameITRF2008,
	GeoidXGeoid17BAK:    geodesy.FrameITRF2008,
	GeoidXGeoid17BConus: geodesy.FrameITRF2008,
	GeoidXGeoid17BPRVI:  geodesy.FrameITRF2008,
	GeoidXGeoid18BAK:    geodesy.FrameITRF2008,
	GeoidXGeoid18BConus: geodesy.FrameITRF2008,
	GeoidXGeoid18BPRVI:  geodesy.FrameITRF2008,
	GeoidXGeoid18BGU:    geodesy.FrameITRF2008,
	GeoidXGeoid19B:      geodesy.FrameITRF2008,
	GeoidXGeoid20BConus: geodesy.FrameITRF2014,
	GeoidXGeoid20BAS:    geodesy.FrameITRF2014,
	GeoidXGeoid20BGU:    geodesy.FrameITRF2014,
}

// GeoidPossibilities lists the geoid model names that can appear inside a
// pipeline specification, used when deciding which geoid sigma applies.
var GeoidPossibilities = []string{
	"geoid12b", "xgeoid16b", "xgeoid17b", "xgeoid18b", "xgeoid19b", "xgeoid20b",
}

type geoidChoice struct {
	standard string
	special  string
}

// Geoid selection by datum-directory version. Alaskan tidal models are
// referenced to the experimental geoid, everything else to geoid12b.
var geoidByVersion = map[string]geoidChoice{
	"vdatum_4.2_20201203": {standard: GeoidGeoid12B, special: GeoidXGeoid18BAK},
	"vdatum_4.3_20210603": {standard: GeoidGeoid12B, special: GeoidXGeoid18BAK},
	"vdatum_4.4_20220208": {standard: GeoidGeoid12B, special: GeoidXGeoid18BAK},
}

var defaultGeoidChoice = geoidChoice{standard: GeoidGeoid12B, special: GeoidXGeoid18BAK}

// frameForGeoid resolves the horizontal frame of a geoid grid, defaulting to
// NAD83 for grids outside the lookup.
func frameForGeoid(geoid string) string {
	if frame, ok := GeoidFrame[geoid]; ok {
		return frame
	}
	return geodesy.FrameNAD83
}

func geoidForVersion(version string, special bool) string {
	choice, ok := geoidByVersion[version]
	if !ok {
		choice = defaultGeoidChoice
	}
	if special {
		return choice.special
	}
	return choice.standard
}
