// Package vdatum loads the datum grid directory and resolves which regions
// apply to an area of interest. A catalog is immutable once opened; adding an
// extended region directory produces a new catalog value.
package vdatum

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Region is one named geography with its own grid-shift files, coverage
// polygon and uncertainty table. Values are shared and must not be mutated
// after the catalog is built.
type Region struct {
	Name        string
	Coverage    orb.MultiPolygon
	GeoidName   string
	GeoidFrame  string
	Uncertainty map[string]float64
	Extended    bool
}

// Special reports whether the region belongs to the polar sub-geography whose
// tidal models are referenced to the experimental geoid.
func (r *Region) Special() bool {
	return strings.Contains(r.Name, "AK")
}

// Sigma returns the 1-sigma uncertainty in meters for the named layer
// (tss, mhhw, mhw, mlw, mllw, dtl, mtl). Unknown layers are 0.
func (r *Region) Sigma(layer string) float64 {
	return r.Uncertainty[strings.ToLower(layer)]
}

// IntersectsBound reports whether the coverage polygon intersects the
// rectangle.
func (r *Region) IntersectsBound(b orb.Bound) bool {
	for _, poly := range r.Coverage {
		if polygonIntersectsBound(poly, b) {
			return true
		}
	}
	return false
}

// MixedRegionError signals that a resolved region set mixes the special
// sub-geography with ordinary regions, making the geoid selection ambiguous.
type MixedRegionError struct {
	Regions []string
}

func (e *MixedRegionError) Error() string {
	return fmt.Sprintf("regions %v mix alaskan and non-alaskan geographies, geoid selection is ambiguous", e.Regions)
}

// SpecialRegionSet reports whether every region in the set is special. A mix
// is a *MixedRegionError; an empty set is an error since nothing can be
// decided from it.
func SpecialRegionSet(regions []*Region) (bool, error) {
	if len(regions) == 0 {
		return false, fmt.Errorf("no regions given, cannot determine geography")
	}
	special := 0
	names := make([]string, len(regions))
	for i, r := range regions {
		names[i] = r.Name
		if r.Special() {
			special++
		}
	}
	switch special {
	case 0:
		return false, nil
	case len(regions):
		return true, nil
	default:
		return false, &MixedRegionError{Regions: names}
	}
}

// polygonIntersectsBound is a rectangle-vs-polygon intersection test built on
// the planar containment primitive: the shapes intersect when a corner of one
// lies inside the other or any edges cross.
func polygonIntersectsBound(poly orb.Polygon, b orb.Bound) bool {
	if len(poly) == 0 {
		return false
	}
	if !poly.Bound().Intersects(b) {
		return false
	}
	rect := b.ToPolygon()
	for _, pt := range rect[0] {
		if planar.PolygonContains(poly, pt) {
			return true
		}
	}
	for _, pt := range poly[0] {
		if b.Contains(pt) {
			return true
		}
	}
	for _, ring := range poly {
		for i := 1; i < len(ring); i++ {
			for j := 1; j < len(rect[0]); j++ {
				if segmentsCross(ring[i-1], ring[i], rect[0][j-1], rect[0][j]) {
					return true
				}
			}
		}
	}
	return false
}

func segmentsCross(a1, a2, b1, b2 orb.Point) bool {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return d1 == 0 && onSegment(b1, b2, a1) ||
		d2 == 0 && onSegment(b1, b2, a2) ||
		d3 == 0 && onSegment(a1, a2, b1) ||
		d4 == 0 && onSegment(a1, a2, b2)
}

func cross(o, a, p orb.Point) float64 {
	return (a[0]-o[0])*(p[1]-o[1]) - (a[1]-o[1])*(p[0]-o[0])
}

func onSegment(s1, s2, p orb.Point) bool {
	return min(s1[0], s2[0]) <= p[0] && p[0] <= max(s1[0], s2[0]) &&
		min(s1[1], s2[1]) <= p[1] && p[1] <= max(s1[1], s2[1])
}
