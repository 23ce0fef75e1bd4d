package vypercrs

import (
	"fmt"
	"strings"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/geodesy"
)

// Horizontal is the horizontal half of a compound CRS: an EPSG code, the CRS
// display name and a WKT rendering.
type Horizontal struct {
	EPSG int
	Name string
	wkt  string
}

type horizontalDef struct {
	name      string
	datum     string
	ellipsoid string
}

// The geographic systems the transformation core works in. Projected input
// systems are carried through by their WKT and only reprojected at the
// geodesy boundary.
var knownHorizontal = map[int]horizontalDef{
	geodesy.NAD832D: {
		name:      "NAD83(2011)",
		datum:     "NAD83 (National Spatial Reference System 2011)",
		ellipsoid: `ELLIPSOID["GRS 1980",6378137,298.257222101,LENGTHUNIT["metre",1]]`,
	},
	geodesy.ITRF20082D: {
		name:      "IGS08",
		datum:     "IGS08",
		ellipsoid: `ELLIPSOID["GRS 1980",6378137,298.257222101,LENGTHUNIT["metre",1]]`,
	},
	geodesy.ITRF20142D: {
		name:      "IGS14",
		datum:     "IGS14",
		ellipsoid: `ELLIPSOID["GRS 1980",6378137,298.257222101,LENGTHUNIT["metre",1]]`,
	},
}

// HorizontalFromEPSG builds the horizontal member for a code. The three
// geographic pivot frames carry full definitions; any other code is kept by
// number alone.
func HorizontalFromEPSG(code int) *Horizontal {
	lookup := code
	if geodesy.Is3D(code) {
		lookup = geodesy.To2D(code)
	}
	if def, ok := knownHorizontal[lookup]; ok {
		return &Horizontal{EPSG: lookup, Name: def.name}
	}
	return &Horizontal{EPSG: code, Name: fmt.Sprintf("EPSG:%d", code)}
}

// ParseHorizontalWKT keeps the original text and lifts out the display name
// and authority code.
func ParseHorizontalWKT(wkt string) (*Horizontal, error) {
	wkt = strings.TrimSpace(wkt)
	key := ""
	for _, k := range []string{"GEOGCRS[", "PROJCRS[", "GEOGCS[", "PROJCS["} {
		if strings.HasPrefix(wkt, k) {
			key = k
			break
		}
	}
	if key == "" {
		return nil, fmt.Errorf("not a horizontal crs wkt: %.40q", wkt)
	}
	name, err := wktQuoted(wkt, key)
	if err != nil {
		return nil, err
	}
	return &Horizontal{EPSG: wktEPSG(wkt), Name: name, wkt: wkt}, nil
}

// Frame names the reference frame when the code is one of the registered
// geographic frames.
func (h *Horizontal) Frame() (string, bool) {
	return geodesy.FrameForEPSG(h.EPSG)
}

func (h *Horizontal) ToWKT() string {
	if h.wkt != "" {
		return h.wkt
	}
	if def, ok := knownHorizontal[h.EPSG]; ok {
		return fmt.Sprintf(`GEOGCRS["%s",DATUM["%s",%s],CS[ellipsoidal,2],`+
			`AXIS["geodetic latitude (Lat)",north],AXIS["geodetic longitude (Lon)",east],`+
			`ANGLEUNIT["degree",0.0174532925199433],ID["EPSG",%d]]`,
			def.name, def.datum, def.ellipsoid, h.EPSG)
	}
	return fmt.Sprintf(`GEOGCRS["%s",ID["EPSG",%d]]`, h.Name, h.EPSG)
}
