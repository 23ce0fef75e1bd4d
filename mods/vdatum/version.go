package vdatum

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const versionCacheFile = "vdatum_vyperversion.txt"
const sigmaFileName = "vdatum_sigma.inf"

// Fingerprints of released datum directories, keyed by the combined digest of
// their grid set and sigma file. Filled in as releases are verified.
var knownFingerprints = map[string]string{}

// datumVersion identifies the directory release. The hash comparison over the
// full grid set runs once; the result is cached next to the grids in
// vdatum_vyperversion.txt so later opens skip it.
func datumVersion(root string, grids map[string]string) (string, error) {
	cache := filepath.Join(root, versionCacheFile)
	if data, err := os.ReadFile(cache); err == nil {
		if version := strings.TrimSpace(string(data)); version != "" {
			return version, nil
		}
	}
	digest, err := fingerprintGrids(root, grids)
	if err != nil {
		return "", err
	}
	version, ok := knownFingerprints[digest]
	if !ok {
		version = "unverified_" + digest[:10]
	}
	if err := os.WriteFile(cache, []byte(version), 0644); err != nil {
		return version, fmt.Errorf("writing version cache: %w", err)
	}
	return version, nil
}

// fingerprintGrids hashes every grid file plus the sigma file and combines
// the per-file digests into one. The combination is order-independent: files
// are sorted by name first.
func fingerprintGrids(root string, grids map[string]string) (string, error) {
	names := make([]string, 0, len(grids))
	for name := range grids {
		names = append(names, name)
	}
	sort.Strings(names)

	combined := md5.New()
	for _, name := range names {
		sum, err := hashFile(grids[name])
		if err != nil {
			return "", err
		}
		fmt.Fprintf(combined, "%s %s\n", name, sum)
	}
	sigmaPath := filepath.Join(root, sigmaFileName)
	if _, err := os.Stat(sigmaPath); err == nil {
		sum, err := hashFile(sigmaPath)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(combined, "%s %s\n", sigmaFileName, sum)
	}
	return fmt.Sprintf("%x", combined.Sum(nil)), nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
