package transform

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/noaa-ocs-hydrography/vyperdatum/mods/vypercrs"
)

// PointTransformer binds an orchestrator to a fixed in/out CRS pair so point
// sets can be pushed through repeatedly. Successive calls narrow the CRS
// region lists to the regions that actually contributed.
type PointTransformer struct {
	orch *Orchestrator
	in   *vypercrs.CompoundCRS
	out  *vypercrs.CompoundCRS
}

func NewPointTransformer(orch *Orchestrator, in, out *vypercrs.CompoundCRS) *PointTransformer {
	return &PointTransformer{orch: orch, in: in, out: out}
}

func (t *PointTransformer) InputCRS() *vypercrs.CompoundCRS  { return t.in }
func (t *PointTransformer) OutputCRS() *vypercrs.CompoundCRS { return t.out }

// Transform converts the point set. Z may be nil to sample the separation
// surface itself.
func (t *PointTransformer) Transform(x, y, z []float64, opts Options) (*Result, error) {
	return t.orch.Transform(Batch{X: x, Y: y, Z: z}, t.in, t.out, opts)
}

// ExportCSV writes the result as one row per point. Points outside coverage
// keep their row with empty value fields so row order matches the input
// order. Optional columns appear only when the result carries them.
func (t *PointTransformer) ExportCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	header := []string{"x", "y", "z"}
	if res.Uncertainty != nil {
		header = append(header, "uncertainty")
	}
	if res.RegionIndex != nil {
		header = append(header, "region_index")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i := range res.Z {
		row[0] = csvFloat(res.X[i])
		row[1] = csvFloat(res.Y[i])
		row[2] = csvFloat(res.Z[i])
		col := 3
		if res.Uncertainty != nil {
			row[col] = csvFloat(res.Uncertainty[i])
			col++
		}
		if res.RegionIndex != nil {
			if res.RegionIndex[i] < 0 {
				row[col] = ""
			} else {
				row[col] = strconv.Itoa(res.RegionIndex[i])
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
