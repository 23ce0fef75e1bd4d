package vdatum

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/logging"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var gridFormats = []string{".gtx", ".tif", ".tiff"}

const validTransformPrefix = "valid-transform"

// Catalog is the loaded datum directory: regions in scan order, the grid
// inventory for feasibility checks, the geoid sigmas and the directory
// version. Immutable after Open; WithExtendedDirectory returns a new value.
type Catalog struct {
	root       string
	version    string
	log        logging.Log
	regions    []*Region
	byName     map[string]*Region
	grids      map[string]string // pipeline grid name to on-disk path
	geoidSigma map[string]float64
}

type Option func(*Catalog)

func WithLogger(log logging.Log) Option {
	return func(c *Catalog) { c.log = log }
}

// Open scans the datum directory: one subdirectory per region holding grid
// files and a coverage polygon, the core geoid grids under core/, the sigma
// table and the version fingerprint.
func Open(root string, opts ...Option) (*Catalog, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("datum directory not found at %s", root)
	}
	c := &Catalog{
		root:       root,
		byName:     make(map[string]*Region),
		grids:      make(map[string]string),
		geoidSigma: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.GetLog("vdatum")
	}

	regionNames, err := c.scanGrids(root)
	if err != nil {
		return nil, err
	}
	if len(c.grids) == 0 {
		c.log.Warnf("no grid files found in %s", root)
	}

	c.version, err = datumVersion(root, c.grids)
	if err != nil {
		return nil, fmt.Errorf("identifying datum directory version: %w", err)
	}

	sigma := &sigmaSet{regions: map[string]map[string]float64{}, geoids: map[string]float64{}}
	sigmaPath := filepath.Join(root, sigmaFileName)
	if _, err := os.Stat(sigmaPath); err == nil {
		sigma, err = parseSigmaFile(sigmaPath, regionNames)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", sigmaFileName, err)
		}
	} else {
		c.log.Warnf("no sigma table found at %s, uncertainties are zero", sigmaPath)
	}
	c.geoidSigma = sigma.geoids

	for _, name := range regionNames {
		coverage, err := loadCoverage(filepath.Join(root, name), name)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", name, err)
		}
		if coverage == nil {
			c.log.Warnf("region %s has no coverage polygon, it will never resolve", name)
		}
		uncertainty := sigma.regions[name]
		if uncertainty == nil {
			uncertainty = emptyLayerTable()
		}
		r := &Region{
			Name:        name,
			Coverage:    coverage,
			Uncertainty: uncertainty,
		}
		r.GeoidName = geoidForVersion(c.version, r.Special())
		r.GeoidFrame = frameForGeoid(r.GeoidName)
		c.regions = append(c.regions, r)
		c.byName[name] = r
	}
	return c, nil
}

// scanGrids inventories <region>/<file> and core/<model>/<file> grids,
// returning the sorted region directory names.
func (c *Catalog) scanGrids(root string) ([]string, error) {
	seen := map[string]bool{}
	for _, ext := range gridFormats {
		matches, err := filepath.Glob(filepath.Join(root, "*", "*"+ext))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			dir := filepath.Base(filepath.Dir(m))
			if dir == "core" {
				continue
			}
			name := dir + "/" + filepath.Base(m)
			c.grids[name] = m
			seen[dir] = true
		}
		coreMatches, err := filepath.Glob(filepath.Join(root, "core", "*", "*"+ext))
		if err != nil {
			return nil, err
		}
		for _, m := range coreMatches {
			name := "core/" + filepath.Base(filepath.Dir(m)) + "/" + filepath.Base(m)
			c.grids[name] = m
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// loadCoverage reads the region's coverage polygon from a geojson file in the
// region directory. Features named valid-transform* hold the usable coverage;
// when no feature carries the marker every polygon counts.
func loadCoverage(dir, region string) (orb.MultiPolygon, error) {
	path := filepath.Join(dir, region+".geojson")
	if _, err := os.Stat(path); err != nil {
		matches, _ := filepath.Glob(filepath.Join(dir, "*.geojson"))
		if len(matches) == 0 {
			return nil, nil
		}
		path = matches[0]
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing coverage %s: %w", path, err)
	}
	var marked, all orb.MultiPolygon
	for _, feature := range fc.Features {
		polys := asPolygons(feature.Geometry)
		all = append(all, polys...)
		if name, ok := feature.Properties["name"].(string); ok &&
			strings.HasPrefix(name, validTransformPrefix) {
			marked = append(marked, polys...)
		}
	}
	if len(marked) > 0 {
		return marked, nil
	}
	return all, nil
}

func asPolygons(g orb.Geometry) orb.MultiPolygon {
	switch geom := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{geom}
	case orb.MultiPolygon:
		return geom
	default:
		return nil
	}
}

func (c *Catalog) Root() string    { return c.root }
func (c *Catalog) Version() string { return c.version }

// Regions returns the catalog's regions in scan order.
func (c *Catalog) Regions() []*Region {
	return c.regions
}

func (c *Catalog) Region(name string) (*Region, bool) {
	r, ok := c.byName[name]
	return r, ok
}

// HasGrid reports whether a grid referenced by a materialized pipeline exists
// in the directory. Implements the pipeline feasibility resolver.
func (c *Catalog) HasGrid(name string) bool {
	_, ok := c.grids[name]
	return ok
}

// GridPath resolves a pipeline grid name to the file it was inventoried from.
// Extended-region grids resolve into their own directory, not the root.
func (c *Catalog) GridPath(name string) (string, bool) {
	path, ok := c.grids[name]
	return path, ok
}

// GeoidSigma returns the 1-sigma uncertainty in meters of the named geoid
// model (geoid12b, xgeoid18b, ...).
func (c *Catalog) GeoidSigma(model string) (float64, bool) {
	v, ok := c.geoidSigma[model]
	return v, ok
}

// PipelineGeoidSigma finds which geoid model a materialized pipeline passes
// through and returns that model's sigma.
func (c *Catalog) PipelineGeoidSigma(spec string) (float64, error) {
	for _, model := range GeoidPossibilities {
		if strings.Contains(spec, model) {
			return c.geoidSigma[model], nil
		}
	}
	return 0, fmt.Errorf("no geoid model found in pipeline %q", spec)
}

// Resolve returns the regions whose coverage intersects the bound, in catalog
// scan order. An empty result means the area is out of coverage and is not an
// error. A zero-extent bound is a point query and is fine; an inverted bound
// is not.
func (c *Catalog) Resolve(b orb.Bound) ([]*Region, error) {
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return nil, fmt.Errorf("inverted bound %v", b)
	}
	var matched []*Region
	for _, r := range c.regions {
		if r.Coverage != nil && r.IntersectsBound(b) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}
