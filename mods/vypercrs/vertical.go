package vypercrs

import (
	"fmt"
	"strings"
)

// NoOpPipeline is the pipeline recorded for a region when the vertical datum
// is the ellipsoid itself and no grid shift applies.
const NoOpPipeline = "[]"

// VerticalCRS is the vertical half of a compound CRS. The datum has no EPSG
// registration, so the per-region transformation pipelines and the provenance
// travel in the WKT REMARK element.
type VerticalCRS struct {
	Name       string
	Convention VerticalConvention
	Regions    []string
	Pipelines  []string
	Meta       Metadata
}

// AddPipeline registers a region and its pipeline. A region already present
// keeps its first pipeline.
func (v *VerticalCRS) AddPipeline(pipeline, region string) {
	for _, r := range v.Regions {
		if r == region {
			return
		}
	}
	v.Regions = append(v.Regions, region)
	v.Pipelines = append(v.Pipelines, pipeline)
}

// PipelineString renders the pipelines the way the remarks carry them:
// bracketed, separated by semicolons.
func (v *VerticalCRS) PipelineString() string {
	return "[" + strings.Join(v.Pipelines, ";") + "]"
}

func (v *VerticalCRS) regionsString() string {
	return "[" + strings.Join(v.Regions, ",") + "]"
}

func (v *VerticalCRS) baseDatumString() string {
	return "[" + strings.Join(v.Meta.BaseDatum, ",") + "]"
}

// HasValidRemarks reports whether the value carries everything a valid
// vertical CRS needs: regions, pipelines, base datum frames and a tool
// version.
func (v *VerticalCRS) HasValidRemarks() bool {
	return len(v.Regions) > 0 && len(v.Pipelines) > 0 &&
		len(v.Meta.BaseDatum) > 0 && v.Meta.ToolVersion != ""
}

func (v *VerticalCRS) remarks() string {
	return fmt.Sprintf(`REMARK["vdatum=%s,vyperdatum=%s,base_datum=%s,regions=%s,pipelines=%s"]`,
		v.Meta.VDatumVersion, ToolVersion, v.baseDatumString(), v.regionsString(), v.PipelineString())
}

// ToWKT renders the VERTCRS element. The remark is attached only once
// pipelines exist.
func (v *VerticalCRS) ToWKT() string {
	wkt := fmt.Sprintf(`VERTCRS["%s",VDATUM["%s"],CS[vertical,1],%s,LENGTHUNIT["metre",1]`,
		v.Name, v.Name, v.Convention.axisWKT())
	if len(v.Pipelines) > 0 {
		return wkt + "," + v.remarks() + "]"
	}
	return wkt + "]"
}

// ParseVerticalWKT reads a VERTCRS element back, including any remark fields.
func ParseVerticalWKT(wkt string) (*VerticalCRS, error) {
	name, err := wktQuoted(wkt, "VERTCRS[")
	if err != nil {
		return nil, err
	}
	csType, err := wktBare(wkt, "CS[")
	if err != nil {
		return nil, err
	}
	if csType != "vertical" {
		return nil, fmt.Errorf("vertical crs has %s coordinate system, want vertical", csType)
	}
	axis, err := wktQuoted(wkt, "AXIS[")
	if err != nil {
		return nil, err
	}
	convention, err := conventionForAxis(axis)
	if err != nil {
		return nil, err
	}
	unit, err := wktQuoted(wkt, "LENGTHUNIT[")
	if err != nil {
		return nil, err
	}
	if !isMeters(unit) {
		return nil, fmt.Errorf("only meters is supported, got %q", unit)
	}
	v := &VerticalCRS{Name: name, Convention: convention}
	if strings.Contains(wkt, "REMARK[") {
		if err := v.parseRemarks(wkt); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func isMeters(unit string) bool {
	switch strings.ToLower(unit) {
	case "m", "meter", "metre", "meters", "metres":
		return true
	}
	return false
}

func (v *VerticalCRS) parseRemarks(wkt string) error {
	remarks, err := wktQuoted(wkt, "REMARK[")
	if err != nil {
		return err
	}
	if val, ok := remarkField(remarks, "vdatum=", ","); ok {
		v.Meta.VDatumVersion = val
	}
	if val, ok := remarkField(remarks, "vyperdatum=", ","); ok {
		if err := CheckToolVersion(val); err != nil {
			return err
		}
		v.Meta.ToolVersion = val
	}
	if val, ok := remarkField(remarks, "base_datum=[", "],"); ok {
		v.Meta.BaseDatum = splitTrim(val, ",")
	}
	regions, ok := remarkField(remarks, "regions=[", "],")
	if !ok {
		return fmt.Errorf("no regions keyword in remarks %q", remarks)
	}
	v.Regions = splitTrim(regions, ",")
	pipelines, ok := remarkField(remarks, "pipelines=[", "],")
	if !ok {
		return fmt.Errorf("no pipelines keyword in remarks %q", remarks)
	}
	// pipelines is the last field, the terminator is the closing bracket
	pipelines = strings.TrimSuffix(pipelines, "]")
	v.Pipelines = splitTrim(pipelines, ";")
	if len(v.Regions) != len(v.Pipelines) {
		return fmt.Errorf("remarks carry %d regions but %d pipelines", len(v.Regions), len(v.Pipelines))
	}
	return nil
}

func remarkField(remarks, key, terminator string) (string, bool) {
	start := strings.Index(remarks, key)
	if start == -1 {
		return "", false
	}
	start += len(key)
	end := strings.Index(remarks[start:], terminator)
	if end == -1 {
		return remarks[start:], true
	}
	return remarks[start : start+end], true
}

func splitTrim(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
