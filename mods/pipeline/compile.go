package pipeline

import (
	"strings"
)

// Pipeline is an ordered sequence of grid-shift steps materialized for one
// region. It renders to the specification string the geodesy engine consumes;
// the compiler never executes it.
type Pipeline struct {
	steps  []Step
	region string
	geoid  string
}

// Compile derives the minimal pipeline from one datum to another for the
// given region. Identical datums (case-insensitive) compile to a nil
// pipeline, which is a valid no-op rather than an error. Unknown names
// return *UnsupportedDatumError.
func Compile(fromDatum, toDatum, region, geoidName string) (*Pipeline, error) {
	from := strings.ToLower(fromDatum)
	to := strings.ToLower(toDatum)
	if from == to {
		return nil, nil
	}
	fromDef, err := ParseDatum(from)
	if err != nil {
		return nil, err
	}
	toDef, err := ParseDatum(to)
	if err != nil {
		return nil, err
	}
	return CompileDatums(fromDef, toDef, region, geoidName), nil
}

// CompileDatums is Compile for already-resolved datum values, used when one
// side is a custom datum that has no table entry.
func CompileDatums(from, to Datum, region, geoidName string) *Pipeline {
	if from.Name == to.Name {
		return nil
	}
	fromSteps, toSteps := CompareAndReduce(from.Steps, to.Steps)
	steps := append(Invert(fromSteps), toSteps...)
	return &Pipeline{steps: steps, region: region, geoid: geoidName}
}

// Steps returns a copy of the pipeline's step list.
func (p *Pipeline) Steps() []Step {
	return cloneSteps(p.steps)
}

func (p *Pipeline) Region() string { return p.region }

// String renders the engine specification,
// "+proj=pipeline +step <step> +step <step> ...".
// Placeholders are substituted with the pipeline's region and geoid names.
func (p *Pipeline) String() string {
	parts := make([]string, 0, len(p.steps)+1)
	parts = append(parts, "+proj=pipeline")
	for _, s := range p.steps {
		parts = append(parts, s.Render(p.region, p.geoid))
	}
	return strings.Join(parts, " +step ")
}

// Template renders the pipeline with REGION/GEOID placeholders intact, the
// form embedded in vertical CRS remarks.
func (p *Pipeline) Template() string {
	parts := make([]string, 0, len(p.steps)+1)
	parts = append(parts, "+proj=pipeline")
	for _, s := range p.steps {
		parts = append(parts, s.Render("", ""))
	}
	return strings.Join(parts, " +step ")
}

// Grids lists the substituted grid references the pipeline touches.
func (p *Pipeline) Grids() []string {
	grids := make([]string, 0, len(p.steps))
	for _, s := range p.steps {
		grids = append(grids, s.Grid.Resolve(p.region, p.geoid))
	}
	return grids
}

// GridResolver reports whether a grid reference can be located on the
// configured search paths. The datum directory catalog implements this.
type GridResolver interface {
	HasGrid(grid string) bool
}

// Feasible reports whether every grid the pipeline references resolves. An
// infeasible pipeline is not an error: a region may legitimately lack a
// particular grid.
func (p *Pipeline) Feasible(resolver GridResolver) bool {
	for _, g := range p.Grids() {
		if !resolver.HasGrid(g) {
			return false
		}
	}
	return true
}

// ExtractGrids pulls the grids= references out of a rendered pipeline
// specification.
func ExtractGrids(spec string) []string {
	var grids []string
	for _, tok := range strings.Fields(spec) {
		if strings.HasPrefix(tok, "grids=") {
			grids = append(grids, strings.TrimPrefix(tok, "grids="))
		}
	}
	return grids
}
