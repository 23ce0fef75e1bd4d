package vdatum

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/util/ini"
)

// Config is the persisted tool configuration: the datum directory path plus
// any extended region directories, kept in an ini file between runs.
type Config struct {
	path     string
	settings map[string]string
}

// DefaultConfigPath is <home>/vyperdatum/vdatum.config.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "vyperdatum", "vdatum.config"), nil
}

// LoadConfig reads the config file, creating an empty one when it does not
// exist yet.
func LoadConfig(path string) (*Config, error) {
	c := &Config{path: path, settings: map[string]string{}}
	if _, err := os.Stat(path); err != nil {
		if err := c.save(); err != nil {
			return nil, err
		}
		return c, nil
	}
	parsed, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	c.settings = parsed.Flatten()
	return c, nil
}

func (c *Config) save() error {
	out := ini.New()
	section := out.DefaultSection()
	keys := make([]string, 0, len(c.settings))
	for k := range c.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		section.Add(k, c.settings[k])
	}
	return out.WriteFile(c.path)
}

func (c *Config) DatumPath() string {
	return c.settings["vdatum_path"]
}

func (c *Config) SetDatumPath(path string) error {
	c.settings["vdatum_path"] = path
	return c.save()
}

// ExtendedPaths returns the registered extended region directories keyed by
// their config key, sorted by key for deterministic catalog merges.
func (c *Config) ExtendedPaths() []string {
	var keys []string
	for k := range c.settings {
		if strings.HasSuffix(k, "_path") && k != "vdatum_path" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	paths := make([]string, len(keys))
	for i, k := range keys {
		paths[i] = c.settings[k]
	}
	return paths
}

// SetExtendedPath registers an extended region directory under the given key.
// The key must end in _path so it is picked up on the next load.
func (c *Config) SetExtendedPath(key, path string) error {
	if !strings.HasSuffix(key, "_path") || key == "vdatum_path" {
		return fmt.Errorf("extended path key %q must end in _path", key)
	}
	c.settings[key] = path
	return c.save()
}

func (c *Config) RemoveExtendedPath(key string) error {
	if _, ok := c.settings[key]; !ok {
		return nil
	}
	delete(c.settings, key)
	return c.save()
}

// OpenFromConfig opens the datum directory named by the config and merges in
// every registered extended region directory that still exists.
func OpenFromConfig(cfg *Config, opts ...Option) (*Catalog, error) {
	catalog, err := Open(cfg.DatumPath(), opts...)
	if err != nil {
		return nil, err
	}
	for _, path := range cfg.ExtendedPaths() {
		if _, err := os.Stat(path); err != nil {
			catalog.log.Warnf("extended region directory %s is gone, skipping", path)
			continue
		}
		catalog, err = catalog.WithExtendedDirectory(path)
		if err != nil {
			return nil, err
		}
	}
	return catalog, nil
}
