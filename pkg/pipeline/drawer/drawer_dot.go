package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-relay/pkg/pipeline/measure"
	"github.com/askiada/go-relay/pkg/pipeline/model"
)

// DOTDrawer is a drawer that creates a Graphviz DOT file with the pipeline graph.
type DOTDrawer struct {
	graph    graph.Graph[string, string]
	fileName string
}

// NewDOTDrawer creates a new DOT drawer writing to fileName.
func NewDOTDrawer(fileName string) *DOTDrawer {
	return &DOTDrawer{
		fileName: fileName,
		graph:    graph.New(graph.StringHash, graph.Directed()),
	}
}

// AddStep adds a step to the pipeline graph.
func (d *DOTDrawer) AddStep(name string) error {
	err := d.graph.AddVertex(name, graph.VertexAttribute("shape", "box"))
	if err != nil {
		return errors.Wrap(err, "unable to add vertex")
	}

	return nil
}

// AddLink adds a link between parent and children steps.
// Adding the same link twice is not an error.
func (d *DOTDrawer) AddLink(parentName, childrenName, label string) error {
	err := d.graph.AddEdge(parentName, childrenName, graph.EdgeAttribute("label", label))
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childrenName)
	}

	return nil
}

var statusRGB = map[model.Status][3]uint8{
	model.StatusPending:   {200, 200, 200},
	model.StatusRunning:   {255, 200, 0},
	model.StatusCompleted: {120, 200, 120},
	model.StatusFailed:    {230, 80, 80},
}

// SetStatus fills the step with the colour of its status.
func (d *DOTDrawer) SetStatus(stepName string, status model.Status) error {
	_, properties, err := d.graph.VertexWithProperties(stepName)
	if err != nil {
		return errors.Wrapf(err, "unable to get %s vertex properties", stepName)
	}

	rgb, ok := statusRGB[status]
	if !ok {
		rgb = statusRGB[model.StatusPending]
	}

	color, err := colors.RGB(rgb[0], rgb[1], rgb[2])
	if err != nil {
		return errors.Wrap(err, "unable to get colour")
	}

	properties.Attributes["style"] = "filled"
	properties.Attributes["fillcolor"] = color.ToHEX().String()

	return nil
}

const totalPrefix = "total: "

// SetTotalTime sets the total time for the step, replacing the one of a previous run.
func (d *DOTDrawer) SetTotalTime(stepName string, total time.Duration) error {
	_, properties, err := d.graph.VertexWithProperties(stepName)
	if err != nil {
		return errors.Wrap(err, "unable to get end vertex properties")
	}

	var parts []string

	for _, part := range strings.Split(properties.Attributes["xlabel"], ", ") {
		if part != "" && !strings.HasPrefix(part, totalPrefix) {
			parts = append(parts, part)
		}
	}

	properties.Attributes["xlabel"] = strings.Join(append(parts, totalPrefix+total.String()), ", ")

	return nil
}

// Draw creates a DOT file with the pipeline graph.
func (d *DOTDrawer) Draw() error {
	file, err := os.Create(d.fileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.fileName)
	}
	defer file.Close()

	err = dot(d.graph, file)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", d.fileName)
	}

	return nil
}

const maxRGB = 240

// AddMeasure writes the average durations on the steps, colours the handoff
// edges from blue (fastest) to red (slowest) and outlines the slowest step.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	handoffColors := make(map[time.Duration]string)
	sortedHandoffs := []time.Duration{}

	for _, step := range msr.AllMetrics() {
		for _, info := range step.AVGTransportDuration() {
			if info.Elapsed == 0 {
				continue
			}

			if _, ok := handoffColors[info.Elapsed]; ok {
				continue
			}

			handoffColors[info.Elapsed] = ""

			sortedHandoffs = append(sortedHandoffs, info.Elapsed)
		}
	}

	sort.Slice(sortedHandoffs, func(i, j int) bool {
		return sortedHandoffs[i] > sortedHandoffs[j]
	})

	if len(sortedHandoffs) > 0 {
		maxValue := sortedHandoffs[0]
		minValue := sortedHandoffs[len(sortedHandoffs)-1]

		for curr := range handoffColors {
			fraction := 1.0
			if maxValue > minValue {
				fraction = float64(curr-minValue) / float64(maxValue-minValue)
			}

			red := maxRGB * fraction
			blue := maxRGB - maxRGB*fraction

			color, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
			if err != nil {
				return errors.Wrap(err, "unable to get colour")
			}

			handoffColors[curr] = color.ToHEX().String()
		}
	}

	err := d.updateMetrics(msr, handoffColors)
	if err != nil {
		return errors.Wrap(err, "unable to update metrics")
	}

	if slowest := measure.Slowest(msr); len(slowest) > 0 {
		_, properties, err := d.graph.VertexWithProperties(slowest[0].Name)
		if err == nil {
			properties.Attributes["penwidth"] = "3"
		}
	}

	return nil
}

func (d *DOTDrawer) updateMetrics(msr measure.Measure, handoffColors map[time.Duration]string) error {
	for name, step := range msr.AllMetrics() {
		_, properties, err := d.graph.VertexWithProperties(name)
		if errors.Is(err, graph.ErrVertexNotFound) {
			continue
		}

		if err != nil {
			return errors.Wrap(err, "unable to get vertex properties")
		}

		label := ""
		if stepAvg := step.AVGDuration(); stepAvg != 0 {
			label = "avg: " + stepAvg.String()
		}

		if failures := step.Failures(); failures > 0 {
			label += ", failures: " + strconv.FormatInt(failures, 10)
		}

		if label == "" {
			delete(properties.Attributes, "xlabel")
		} else {
			properties.Attributes["xlabel"] = label
		}

		for inputStep, info := range step.AVGTransportDuration() {
			if info.Elapsed == 0 {
				continue
			}

			// handoffs follow the execution order, which is not always a data link
			err := d.graph.UpdateEdge(inputStep, name,
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", handoffColors[info.Elapsed]),
				graph.EdgeAttribute("tooltip", info.Elapsed.String()),
			)
			if err != nil && !errors.Is(err, graph.ErrEdgeNotFound) {
				return errors.Wrap(err, "unable to update edge")
			}
		}
	}

	return nil
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.SourceWeight}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           interface{}
	Target           interface{}
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func dot[K comparable, T any](g graph.Graph[K, T], wrt io.Writer) error {
	desc, err := generateDOT(g)
	if err != nil {
		return fmt.Errorf("failed to generate DOT description: %w", err)
	}

	return renderDOT(wrt, desc)
}

// generateDOT lists vertices and edges in a stable order so that two runs of the
// same pipeline produce the same file.
func generateDOT[K comparable, T any](gra graph.Graph[K, T]) (description, error) {
	desc := description{
		GraphType:    "digraph",
		Attributes:   map[string]string{"rankdir": "LR"},
		EdgeOperator: "->",
		Statements:   make([]statement, 0),
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	vertices := make([]K, 0, len(adjacencyMap))
	for vertex := range adjacencyMap {
		vertices = append(vertices, vertex)
	}

	sortByString(vertices)

	for _, vertex := range vertices {
		_, sourceProperties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		htmlAttributes := make(map[string]string)
		sourceAttributes := make(map[string]string, len(sourceProperties.Attributes))

		for k, v := range sourceProperties.Attributes {
			sourceAttributes[k] = v
		}

		if xlabel, ok := sourceAttributes["xlabel"]; ok {
			htmlAttributes["label"] = fmt.Sprintf(`<%+v <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, xlabel)

			delete(sourceAttributes, "xlabel")
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: sourceAttributes,
			HTMLAttributes:   htmlAttributes,
		})

		targets := make([]K, 0, len(adjacencyMap[vertex]))
		for target := range adjacencyMap[vertex] {
			targets = append(targets, target)
		}

		sortByString(targets)

		for _, target := range targets {
			edge := adjacencyMap[vertex][target]
			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

func sortByString[K comparable](keys []K) {
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
	})
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
