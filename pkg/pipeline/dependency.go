package pipeline

import (
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-relay/pkg/pipeline/model"
)

// dependencies tracks which step produces which key and the producer -> consumer
// edges between steps. Edges always point from an earlier step to a later one.
type dependencies struct {
	graph     graph.Graph[string, string]
	producers map[string]*model.StepInfo
}

func newDependencies() *dependencies {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	_ = g.AddVertex(model.StartStep.Name)

	return &dependencies{
		graph:     g,
		producers: make(map[string]*model.StepInfo),
	}
}

// parents returns the producers of the inputs of step, in input order, without duplicates.
// Inputs nobody produced yet are attributed to the start step.
func (d *dependencies) parents(step *model.StepInfo) []*model.StepInfo {
	var parents []*model.StepInfo

	seen := make(map[string]struct{})

	for _, key := range step.Inputs {
		parent, ok := d.producers[key]
		if !ok {
			parent = model.StartStep
		}

		if _, ok := seen[parent.Name]; ok {
			continue
		}

		seen[parent.Name] = struct{}{}

		parents = append(parents, parent)
	}

	if len(parents) == 0 {
		parents = append(parents, model.StartStep)
	}

	return parents
}

func (d *dependencies) unresolved(step *model.StepInfo, seedKeys map[string]struct{}) []string {
	var keys []string

	for _, key := range step.Inputs {
		if _, ok := d.producers[key]; ok {
			continue
		}

		if _, ok := seedKeys[key]; ok {
			continue
		}

		keys = append(keys, key)
	}

	return keys
}

func (d *dependencies) add(step *model.StepInfo) error {
	err := d.graph.AddVertex(step.Name)
	if err != nil {
		return errors.Wrapf(err, "unable to add step %s", step.Name)
	}

	for _, key := range step.Inputs {
		parent, ok := d.producers[key]
		if !ok {
			parent = model.StartStep
		}

		err := d.link(parent.Name, step.Name, key)
		if err != nil {
			return err
		}
	}

	d.producers[step.Output] = step

	return nil
}

// remove undoes add for the last added step.
func (d *dependencies) remove(step *model.StepInfo) {
	for _, key := range step.Inputs {
		parent, ok := d.producers[key]
		if !ok || parent == step {
			parent = model.StartStep
		}

		_ = d.graph.RemoveEdge(parent.Name, step.Name)
	}

	_ = d.graph.RemoveVertex(step.Name)

	if d.producers[step.Output] == step {
		delete(d.producers, step.Output)
	}
}

func (d *dependencies) link(parentName, childName, key string) error {
	edge, err := d.graph.Edge(parentName, childName)
	if errors.Is(err, graph.ErrEdgeNotFound) {
		err = d.graph.AddEdge(parentName, childName, graph.EdgeAttribute("label", key))
		if err != nil {
			return errors.Wrapf(err, "unable to link %s to %s", parentName, childName)
		}

		return nil
	}

	if err != nil {
		return errors.Wrapf(err, "unable to get edge from %s to %s", parentName, childName)
	}

	label := edge.Properties.Attributes["label"] + ", " + key

	err = d.graph.UpdateEdge(parentName, childName, graph.EdgeAttribute("label", label))
	if err != nil {
		return errors.Wrapf(err, "unable to update edge from %s to %s", parentName, childName)
	}

	return nil
}

// upstream returns every step the given step transitively depends on, sorted by name.
// The start step is not reported.
func (d *dependencies) upstream(stepName string) ([]string, error) {
	predecessors, err := d.graph.PredecessorMap()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get predecessor map")
	}

	if _, ok := predecessors[stepName]; !ok {
		return nil, errors.Wrapf(graph.ErrVertexNotFound, "step %s", stepName)
	}

	visited := make(map[string]struct{})
	stack := []string{stepName}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for parent := range predecessors[current] {
			if _, ok := visited[parent]; ok {
				continue
			}

			visited[parent] = struct{}{}

			stack = append(stack, parent)
		}
	}

	delete(visited, model.StartStep.Name)

	res := make([]string, 0, len(visited))
	for name := range visited {
		res = append(res, name)
	}

	sort.Strings(res)

	return res, nil
}
