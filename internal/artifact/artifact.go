// Package artifact decides, per output artifact of the stage, whether it has
// to be produced or may be reused from a previous run.
package artifact

import (
	"os"

	"github.com/ecopia-map/georeferencer/internal/io"
	"github.com/ecopia-map/georeferencer/tools"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// ShouldRun is true iff outputPath does not exist or a rerun was requested
func ShouldRun(outputPath string, rerun bool) bool {
	return rerun || !tools.FileExists(outputPath)
}

type Artifact struct {
	Name string
	Path string
	Deps []string
}

// Graph holds the named artifacts of a stage and the artifacts each one is built from
type Graph struct {
	artifacts map[string]*Artifact
	names     []string
}

func NewGraph() *Graph {
	return &Graph{artifacts: make(map[string]*Artifact)}
}

// Add registers an artifact. Dependencies must already be registered.
func (g *Graph) Add(name string, path string, deps ...string) error {
	if _, ok := g.artifacts[name]; ok {
		return errors.Errorf("artifact %q already registered", name)
	}
	for _, dep := range deps {
		if _, ok := g.artifacts[dep]; !ok {
			return errors.Errorf("artifact %q depends on unknown artifact %q", name, dep)
		}
	}
	g.artifacts[name] = &Artifact{Name: name, Path: path, Deps: deps}
	g.names = append(g.names, name)
	return nil
}

func (g *Graph) Get(name string) (*Artifact, bool) {
	a, ok := g.artifacts[name]
	return a, ok
}

// Order returns artifact names so that every artifact follows its dependencies.
// Registration order is kept among independent artifacts.
func (g *Graph) Order() []string {
	visited := make(map[string]bool, len(g.names))
	order := make([]string, 0, len(g.names))
	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, dep := range g.artifacts[name].Deps {
			visit(dep)
		}
		order = append(order, name)
	}
	for _, name := range g.names {
		visit(name)
	}
	return order
}

// Evaluate snapshots the freshness of every artifact. An artifact is fresh
// when it exists and no rerun was requested.
func (g *Graph) Evaluate(rerun bool) *Plan {
	plan := &Plan{graph: g, rerun: rerun, fresh: make(map[string]bool, len(g.names))}
	for _, name := range g.names {
		plan.fresh[name] = !ShouldRun(g.artifacts[name].Path, rerun)
	}
	return plan
}

// Plan is the freshness snapshot taken at stage entry
type Plan struct {
	graph   *Graph
	rerun   bool
	fresh   map[string]bool
	claimed map[string]bool
}

func (p *Plan) Rerun() bool {
	return p.rerun
}

func (p *Plan) Path(name string) string {
	if a, ok := p.graph.Get(name); ok {
		return a.Path
	}
	return ""
}

// ShouldRun reports whether the named artifact has to be produced.
// Unknown artifacts always run.
func (p *Plan) ShouldRun(name string) bool {
	fresh, ok := p.fresh[name]
	return !ok || !fresh
}

// Claim is ShouldRun with the side effect of deleting the stale output and its
// stale _unaligned sibling, so that old and new artifacts never mix.
func (p *Plan) Claim(name string) (bool, error) {
	if !p.ShouldRun(name) {
		return false, nil
	}
	if p.claimed[name] {
		return true, nil
	}
	a, ok := p.graph.Get(name)
	if !ok {
		return false, errors.Errorf("unknown artifact %q", name)
	}
	for _, stale := range []string{a.Path, io.BackupPath(a.Path)} {
		if tools.FileExists(stale) {
			glog.Infof("Removing stale %s", stale)
			if err := os.Remove(stale); err != nil {
				return false, errors.Wrapf(err, "cannot remove stale %s", stale)
			}
		}
	}
	if p.claimed == nil {
		p.claimed = make(map[string]bool)
	}
	p.claimed[name] = true
	return true, nil
}

// Stale lists, in dependency order, the artifacts the stage has to produce
func (p *Plan) Stale() []string {
	var stale []string
	for _, name := range p.graph.Order() {
		if p.ShouldRun(name) {
			stale = append(stale, name)
		}
	}
	return stale
}
