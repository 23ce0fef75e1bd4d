package vypercrs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/geodesy"
	"github.com/noaa-ocs-hydrography/vyperdatum/mods/logging"
	"github.com/noaa-ocs-hydrography/vyperdatum/mods/pipeline"
	"github.com/noaa-ocs-hydrography/vyperdatum/mods/vdatum"
)

// InvalidCRSError reports an operation attempted on a CRS that is missing
// horizontal, vertical or region state.
type InvalidCRSError struct {
	Reason string
}

func (e *InvalidCRSError) Error() string {
	return "invalid crs: " + e.Reason
}

// Vertical EPSG codes understood as symbolic datum names.
var verticalEPSGName = map[int]string{
	5703: "NAVD88 height",
}

// CompoundCRS builds up a compound coordinate system incrementally. The value
// stays queryable in every intermediate state; only ToWKT requires validity.
type CompoundCRS struct {
	catalog *vdatum.Catalog
	log     logging.Log

	hori        *Horizontal
	vert        *VerticalCRS
	regions     []string
	datumName   string
	pipelineStr string
	valid       bool
	convention  VerticalConvention
}

func NewCompoundCRS(catalog *vdatum.Catalog) *CompoundCRS {
	return &CompoundCRS{
		catalog: catalog,
		log:     logging.GetLog("vypercrs"),
	}
}

// SetCRS applies one or two CRS descriptions: an EPSG code, a symbolic
// vertical datum name, or a WKT string (compound, vertical, horizontal, or 3D
// geographic which splits into a 2D horizontal plus an ellipse vertical).
// Setting the same axis twice overwrites it; opposite axes are additive.
func (c *CompoundCRS) SetCRS(values ...any) error {
	if len(values) == 0 || len(values) > 2 {
		return fmt.Errorf("SetCRS takes one or two descriptions, got %d", len(values))
	}
	for _, value := range values {
		switch v := value.(type) {
		case int:
			if err := c.setEPSG(v); err != nil {
				return err
			}
		case string:
			if err := c.setString(v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("crs description type %T is not recognized", value)
		}
	}
	return c.rebuild()
}

// UpdateRegions replaces the region list and re-derives the per-region
// pipelines.
func (c *CompoundCRS) UpdateRegions(regions []string) error {
	c.regions = append([]string(nil), regions...)
	return c.rebuild()
}

func (c *CompoundCRS) setEPSG(code int) error {
	if name, ok := verticalEPSGName[code]; ok {
		c.setVertical(&VerticalCRS{Name: name})
		return nil
	}
	if geodesy.Is3D(code) {
		c.hori = HorizontalFromEPSG(geodesy.To2D(code))
		c.setVertical(&VerticalCRS{Name: c.hori.Name + "_ellipse"})
		return nil
	}
	c.hori = HorizontalFromEPSG(code)
	return nil
}

func (c *CompoundCRS) setString(value string) error {
	if pipeline.IsKnownDatum(value) {
		name := value
		if strings.EqualFold(value, "ellipse") && c.hori != nil {
			name = c.hori.Name + "_ellipse"
		}
		c.setVertical(&VerticalCRS{Name: name})
		return nil
	}
	trimmed := strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(trimmed, "COMPOUNDCRS["):
		horiWKT, vertWKT, err := splitCompound(trimmed)
		if err != nil {
			return err
		}
		hori, err := ParseHorizontalWKT(horiWKT)
		if err != nil {
			return err
		}
		vert, err := ParseVerticalWKT(vertWKT)
		if err != nil {
			return err
		}
		c.hori = hori
		c.setVertical(vert)
		return nil
	case strings.HasPrefix(trimmed, "VERTCRS["):
		vert, err := ParseVerticalWKT(trimmed)
		if err != nil {
			return err
		}
		c.setVertical(vert)
		return nil
	default:
		hori, err := ParseHorizontalWKT(trimmed)
		if err != nil {
			return err
		}
		if geodesy.Is3D(hori.EPSG) {
			c.hori = HorizontalFromEPSG(geodesy.To2D(hori.EPSG))
			c.setVertical(&VerticalCRS{Name: c.hori.Name + "_ellipse"})
			return nil
		}
		c.hori = hori
		return nil
	}
}

func (c *CompoundCRS) setVertical(vert *VerticalCRS) {
	c.vert = vert
	if len(vert.Regions) > 0 {
		c.regions = append([]string(nil), vert.Regions...)
	}
}

// rebuild re-derives the vertical pipelines and the validity predicate. The
// CRS is valid only when horizontal, vertical, regions and provenance are all
// in place.
func (c *CompoundCRS) rebuild() error {
	if c.vert != nil && len(c.regions) > 0 {
		if err := c.buildValidVertical(); err != nil {
			return err
		}
	}
	c.valid = c.hori != nil && c.vert != nil && c.vert.HasValidRemarks()
	if c.valid {
		c.convention = c.vert.Convention
		c.pipelineStr = c.vert.PipelineString()
	}
	return nil
}

func (c *CompoundCRS) buildValidVertical() error {
	datum, err := pipeline.GuessDatum(c.vert.Name)
	if err != nil {
		return err
	}
	if datum == "" {
		return nil
	}
	if err := c.checkHomogeneity(); err != nil {
		return err
	}

	next := &VerticalCRS{
		Name:       c.vert.Name,
		Convention: c.vert.Convention,
		Meta: Metadata{
			VDatumVersion: c.catalog.Version(),
			ToolVersion:   ToolVersion,
		},
	}
	seen := map[string]bool{}
	for _, region := range c.regions {
		if seen[region] {
			continue
		}
		seen[region] = true
		if strings.EqualFold(datum, "ellipse") {
			next.AddPipeline(NoOpPipeline, region)
			next.Meta.BaseDatum = append(next.Meta.BaseDatum, c.baseFrame(region))
			continue
		}
		info, ok := c.catalog.Region(region)
		if !ok {
			c.log.Warnf("region %s is not in the catalog, dropping it from the crs", region)
			continue
		}
		compiled, err := pipeline.Compile("ellipse", datum, region, info.GeoidName)
		if err != nil {
			var unsupported *pipeline.UnsupportedDatumError
			if errors.As(err, &unsupported) {
				c.log.Warnf("region %s: %v, dropping it from the crs", region, err)
				continue
			}
			return err
		}
		if compiled == nil {
			next.AddPipeline(NoOpPipeline, region)
		} else {
			next.AddPipeline(compiled.String(), region)
		}
		next.Meta.BaseDatum = append(next.Meta.BaseDatum, info.GeoidFrame)
	}

	if strings.EqualFold(datum, "geoid") {
		model, err := geoidModelFor(next.PipelineString())
		if err != nil {
			return err
		}
		next.Name = model
	}
	c.datumName = datum
	c.vert = next
	c.regions = append([]string(nil), next.Regions...)
	c.pipelineStr = next.PipelineString()
	return nil
}

// checkHomogeneity rejects a region set that mixes the special polar
// sub-geography with ordinary regions. Regions unknown to the catalog are
// judged by name.
func (c *CompoundCRS) checkHomogeneity() error {
	if len(c.regions) < 2 {
		return nil
	}
	set := make([]*vdatum.Region, 0, len(c.regions))
	for _, name := range c.regions {
		if r, ok := c.catalog.Region(name); ok {
			set = append(set, r)
		} else {
			set = append(set, &vdatum.Region{Name: name})
		}
	}
	_, err := vdatum.SpecialRegionSet(set)
	return err
}

func (c *CompoundCRS) baseFrame(region string) string {
	if info, ok := c.catalog.Region(region); ok {
		return info.GeoidFrame
	}
	if c.hori != nil {
		if frame, ok := c.hori.Frame(); ok {
			return frame
		}
	}
	return geodesy.FrameNAD83
}

// geoidModelFor names the single geoid model a pipeline set passes through.
func geoidModelFor(pipelineStr string) (string, error) {
	var found []string
	for _, model := range vdatum.GeoidPossibilities {
		if strings.Contains(pipelineStr, model) {
			found = append(found, model)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", fmt.Errorf("no geoid found in pipeline string %q", pipelineStr)
	default:
		return "", fmt.Errorf("multiple geoids in the pipeline string, only one geoid per pipeline is supported: %v", found)
	}
}

func (c *CompoundCRS) IsValid() bool { return c.valid }

func (c *CompoundCRS) Horizontal() *Horizontal { return c.hori }

// Vertical returns the vertical member once it carries valid remarks, nil
// before that.
func (c *CompoundCRS) Vertical() *VerticalCRS {
	if c.vert != nil && c.vert.HasValidRemarks() {
		return c.vert
	}
	return nil
}

// Regions returns a copy; callers may reorder it freely.
func (c *CompoundCRS) Regions() []string { return append([]string(nil), c.regions...) }

// DatumName is the symbolic datum the vertical member resolved to, for
// example "mllw".
func (c *CompoundCRS) DatumName() string { return c.datumName }

// PipelineString is the bracketed per-region pipeline list.
func (c *CompoundCRS) PipelineString() string { return c.pipelineStr }

// Convention reports which way the vertical axis points; valid CRS only.
func (c *CompoundCRS) Convention() VerticalConvention { return c.convention }

// IsHeight reports whether the vertical axis points up.
func (c *CompoundCRS) IsHeight() bool { return c.convention == ConventionUp }

// CompoundName is the display name of the pair.
func (c *CompoundCRS) CompoundName() string {
	if c.hori == nil || c.vert == nil {
		return ""
	}
	return c.hori.Name + " + " + c.vert.Name
}

// ToWKT serializes the compound representation. It returns ok=false instead
// of an error while the CRS is not yet valid, so intermediate states can be
// probed without failure handling.
func (c *CompoundCRS) ToWKT() (string, bool) {
	if !c.valid {
		return "", false
	}
	return fmt.Sprintf(`COMPOUNDCRS["%s",%s,%s]`,
		c.CompoundName(), c.hori.ToWKT(), c.vert.ToWKT()), true
}
