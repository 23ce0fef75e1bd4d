package vdatum

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/util/ini"
)

// WithExtendedDirectory returns a new catalog with the regions found under
// path merged in. An extended region is a subdirectory holding grid files, a
// coverage polygon and a <region>.config declaring at least reference_frame
// and reference_geoid. A name already present in the catalog keeps its first
// registration; the duplicate is skipped with a warning.
func (c *Catalog) WithExtendedDirectory(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("extended region directory not found at %s", path)
	}

	next := &Catalog{
		root:       c.root,
		version:    c.version,
		log:        c.log,
		regions:    append([]*Region(nil), c.regions...),
		byName:     make(map[string]*Region, len(c.byName)+4),
		grids:      make(map[string]string, len(c.grids)+4),
		geoidSigma: c.geoidSigma,
	}
	for k, v := range c.byName {
		next.byName[k] = v
	}
	for k, v := range c.grids {
		next.grids[k] = v
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	added := 0
	for _, name := range names {
		dir := filepath.Join(path, name)
		grids := extendedGrids(dir, name)
		if len(grids) == 0 {
			continue
		}
		region, err := loadExtendedRegion(dir, name)
		if err != nil {
			next.log.Warnf("skipping extended region %s: %v", name, err)
			continue
		}
		if region == nil {
			continue
		}
		if _, exists := next.byName[name]; exists {
			next.log.Warnf("region %s already registered, keeping the first registration", name)
			continue
		}
		next.regions = append(next.regions, region)
		next.byName[name] = region
		for g, p := range grids {
			next.grids[g] = p
		}
		added++
	}
	next.log.Infof("added %d extended region(s) from %s", added, path)
	return next, nil
}

func extendedGrids(dir, region string) map[string]string {
	grids := map[string]string{}
	for _, ext := range gridFormats {
		matches, _ := filepath.Glob(filepath.Join(dir, "*"+ext))
		for _, m := range matches {
			grids[region+"/"+filepath.Base(m)] = m
		}
	}
	return grids
}

// loadExtendedRegion builds a Region from the directory's coverage polygon
// and config file. A missing config is not an error, just not a region.
func loadExtendedRegion(dir, name string) (*Region, error) {
	configPath := filepath.Join(dir, name+".config")
	if _, err := os.Stat(configPath); err != nil {
		return nil, nil
	}
	cfg, err := ini.Load(configPath)
	if err != nil {
		return nil, err
	}
	settings := cfg.Flatten()
	frame, hasFrame := settings["reference_frame"]
	geoid, hasGeoid := settings["reference_geoid"]
	if !hasFrame || !hasGeoid {
		return nil, fmt.Errorf("config %s must declare reference_frame and reference_geoid", configPath)
	}
	coverage, err := loadCoverage(dir, name)
	if err != nil {
		return nil, err
	}
	if coverage == nil {
		return nil, fmt.Errorf("no coverage polygon in %s", dir)
	}

	uncertainty := emptyLayerTable()
	for _, layer := range sigmaLayers {
		if raw, ok := settings["uncertainty_"+layer]; ok {
			val, err := parseMeters(raw)
			if err != nil {
				return nil, fmt.Errorf("config %s: uncertainty_%s: %w", configPath, layer, err)
			}
			uncertainty[layer] = val
		}
	}
	return &Region{
		Name:        name,
		Coverage:    coverage,
		GeoidName:   geoid,
		GeoidFrame:  frame,
		Uncertainty: uncertainty,
		Extended:    true,
	}, nil
}
