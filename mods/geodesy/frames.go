package geodesy

// EPSG codes for the geographic reference frames a datum directory's geoid
// models are defined in.
const (
	NAD832D    = 6318
	NAD833D    = 6319
	ITRF20082D = 8999
	ITRF20083D = 7911
	ITRF20142D = 9000
	ITRF20143D = 7912
)

// Frame names as they appear in geoid frame lookups and provenance records.
const (
	FrameNAD83    = "NAD83"
	FrameITRF2008 = "ITRF2008"
	FrameITRF2014 = "ITRF2014"
)

var frameByEPSG = map[int]string{
	NAD832D:    FrameNAD83,
	NAD833D:    FrameNAD83,
	ITRF20082D: FrameITRF2008,
	ITRF20083D: FrameITRF2008,
	ITRF20142D: FrameITRF2014,
	ITRF20143D: FrameITRF2014,
}

var frame2D = map[string]int{
	FrameNAD83:    NAD832D,
	FrameITRF2008: ITRF20082D,
	FrameITRF2014: ITRF20142D,
}

var frame3D = map[string]int{
	FrameNAD83:    NAD833D,
	FrameITRF2008: ITRF20083D,
	FrameITRF2014: ITRF20143D,
}

// FrameForEPSG names the reference frame of a registered geographic code.
func FrameForEPSG(epsg int) (string, bool) {
	name, ok := frameByEPSG[epsg]
	return name, ok
}

// EPSGForFrame returns the 2D geographic code of a frame name.
func EPSGForFrame(frame string) (int, bool) {
	code, ok := frame2D[frame]
	return code, ok
}

// EPSG3DForFrame returns the 3D geographic code of a frame name.
func EPSG3DForFrame(frame string) (int, bool) {
	code, ok := frame3D[frame]
	return code, ok
}

// Is3D reports whether the code is one of the registered 3D geographic CRS.
func Is3D(epsg int) bool {
	return epsg == NAD833D || epsg == ITRF20083D || epsg == ITRF20143D
}

// To2D collapses a registered 3D geographic code to its 2D sibling.
func To2D(epsg int) int {
	switch epsg {
	case NAD833D:
		return NAD832D
	case ITRF20083D:
		return ITRF20082D
	case ITRF20143D:
		return ITRF20142D
	}
	return epsg
}

// Reference-frame bridge pipelines between the NAD83 pivot frame and the
// ITRF realizations, in engine pipeline syntax. Kept verbatim from the
// operational transformation set.
const (
	NAD83ITRF2008Pipeline = "+proj=pipeline +step +proj=axisswap +order=2,1 " +
		"+step +proj=unitconvert +xy_in=deg +xy_out=rad " +
		"+step +proj=cart +ellps=GRS80 " +
		"+step +inv +proj=helmert +x=0.99343 +y=-1.90331 +z=-0.52655 " +
		"+rx=0.02591467 +ry=0.00942644999999999 +rz=0.01159935 +s=0.00171504 " +
		"+dx=0.00079 +dy=-0.0006 +dz=-0.00134 +drx=6.667e-05 +dry=-0.00075744 " +
		"+drz=-5.133e-05 +ds=-0.00010201 +t_epoch=1997 +convention=coordinate_frame " +
		"+step +inv +proj=cart +ellps=GRS80 " +
		"+step +proj=unitconvert +xy_in=rad +xy_out=deg " +
		"+step +proj=axisswap +order=2,1"

	NAD83ITRF2014Pipeline = "+proj=pipeline +step +proj=axisswap +order=2,1 " +
		"+step +proj=unitconvert +xy_in=deg +xy_out=rad " +
		"+step +proj=cart +ellps=GRS80 " +
		"+step +inv +proj=helmert +x=1.0053 +y=-1.9092 +z=-0.5416 " +
		"+rx=0.0267814 +ry=-0.0004203 +rz=0.0109321 +s=0.00037 " +
		"+dx=0.0008 +dy=-0.0006 +dz=-0.0014 +drx=6.67e-05 +dry=-0.0007574 " +
		"+drz=-5.13e-05 +ds=-7e-05 +t_epoch=2010 +convention=coordinate_frame " +
		"+step +inv +proj=cart +ellps=GRS80 " +
		"+step +proj=unitconvert +xy_in=rad +xy_out=deg " +
		"+step +proj=axisswap +order=2,1"
)
