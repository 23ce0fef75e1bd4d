package vdatum

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// sigmaSet is the parsed vdatum_sigma.inf: per-region per-layer sigmas plus
// the geoid sigmas keyed by geoid model name. All values in meters.
type sigmaSet struct {
	regions map[string]map[string]float64
	geoids  map[string]float64
}

var sigmaLayers = []string{"tss", "mhhw", "mhw", "mlw", "mllw", "dtl", "mtl"}

func emptyLayerTable() map[string]float64 {
	table := make(map[string]float64, len(sigmaLayers))
	for _, layer := range sigmaLayers {
		table[layer] = 0
	}
	return table
}

// parseSigmaFile reads the sigma table. Lines look like
// `akglacier.navd88.lmsl=8.0` with values in centimeters; `n/a` means no
// published estimate and becomes 0. regionNames are the known region
// directory names; sigma entries prefix-match them case-insensitively.
func parseSigmaFile(path string, regionNames []string) (*sigmaSet, error) {
	set := &sigmaSet{
		regions: make(map[string]map[string]float64, len(regionNames)),
		geoids:  make(map[string]float64),
	}
	for _, name := range regionNames {
		set.regions[name] = emptyLayerTable()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, rawVal, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		parts := strings.Split(key, ".")
		if len(parts) != 3 {
			continue
		}
		region, src, target := parts[0], parts[1], parts[2]
		val, err := sigmaValue(rawVal)
		if err != nil {
			return nil, fmt.Errorf("sigma entry %q: %w", key, err)
		}
		if region == "conus" {
			switch {
			case src == "navd88" && target == "nad83":
				set.geoids["geoid12b"] = val
			case isGeoidModel(src):
				set.geoids[src] = val
			}
			continue
		}
		name, matches := matchRegion(region, regionNames)
		if matches > 1 {
			return nil, fmt.Errorf("sigma entry %q matches more than one region", key)
		}
		if matches == 0 {
			continue
		}
		switch {
		case src == "navd88" && target == "lmsl":
			set.regions[name]["tss"] = val
		case src == "lmsl":
			set.regions[name][target] = val
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}

// sigmaValue converts a centimeter string to meters, treating n/a as zero.
func sigmaValue(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "n/a" {
		return 0, nil
	}
	cm, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return cm * 0.01, nil
}

// matchRegion finds the region directory whose lowercased name starts with
// the sigma entry prefix, reporting how many names matched.
func matchRegion(prefix string, regionNames []string) (string, int) {
	match := ""
	count := 0
	for _, name := range regionNames {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			match = name
			count++
		}
	}
	return match, count
}

// parseMeters reads an uncertainty already expressed in meters, as the
// extended region configs declare them.
func parseMeters(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

func isGeoidModel(name string) bool {
	for _, g := range GeoidPossibilities {
		if g == name {
			return true
		}
	}
	return false
}
