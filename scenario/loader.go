package scenario

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Readm/backend_flow_sim/core"
)

// File is the on-disk layout of a scenarios file:
//
//	scenarios:
//	  - id: READ_THROUGH
//	    title: Read Request
//	    subtitle: Read-through cache
//	    steps:
//	      - {from: CLIENT, to: APP, label: GET /user/7, log: Client asks for user 7.}
//	      - {from: CACHE, to: APP, kind: error, log: Miss., side_effect: {node: CACHE, flash: error}}
type File struct {
	Scenarios []fileScenario `yaml:"scenarios"`
}

type fileScenario struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Subtitle    string     `yaml:"subtitle"`
	Description string     `yaml:"description"`
	Steps       []fileStep `yaml:"steps"`
}

type fileStep struct {
	From       string          `yaml:"from"`
	To         string          `yaml:"to"`
	Label      string          `yaml:"label"`
	Log        string          `yaml:"log"`
	Kind       string          `yaml:"kind"`
	Travel     string          `yaml:"travel"`
	Delay      string          `yaml:"delay"`
	SideEffect *fileSideEffect `yaml:"side_effect"`
}

type fileSideEffect struct {
	Node     string `yaml:"node"`
	Flash    string `yaml:"flash"`
	Duration string `yaml:"duration"`
}

// LoadFile reads scenario definitions from a YAML file.
func LoadFile(path string) ([]Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenarios file: %w", err)
	}
	defer f.Close()
	list, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// Decode parses scenario definitions. Structural checks against the node
// registry happen when the scenarios are added to a Table.
func Decode(r io.Reader) ([]Scenario, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}

	out := make([]Scenario, 0, len(file.Scenarios))
	for i, fs := range file.Scenarios {
		s, err := fs.toScenario()
		if err != nil {
			return nil, fmt.Errorf("scenario %d (%s): %w", i, fs.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (fs fileScenario) toScenario() (Scenario, error) {
	s := Scenario{
		ID:          ID(normalize(fs.ID)),
		Title:       fs.Title,
		Subtitle:    fs.Subtitle,
		Description: fs.Description,
		Steps:       make([]core.FlowStep, 0, len(fs.Steps)),
	}
	for i, st := range fs.Steps {
		step, err := st.toStep()
		if err != nil {
			return Scenario{}, fmt.Errorf("%w: step %d: %v", ErrInvalid, i, err)
		}
		s.Steps = append(s.Steps, step)
	}
	return s, nil
}

func (st fileStep) toStep() (core.FlowStep, error) {
	kind, err := core.ParsePacketKind(st.Kind)
	if err != nil {
		return core.FlowStep{}, err
	}
	travel, err := parseDuration("travel", st.Travel)
	if err != nil {
		return core.FlowStep{}, err
	}
	delay, err := parseDuration("delay", st.Delay)
	if err != nil {
		return core.FlowStep{}, err
	}
	step := core.FlowStep{
		From:   core.NodeID(normalize(st.From)),
		To:     core.NodeID(normalize(st.To)),
		Label:  st.Label,
		Log:    st.Log,
		Kind:   kind,
		Travel: travel,
		Delay:  delay,
	}
	if se := st.SideEffect; se != nil {
		flash, err := core.ParseFlashKind(se.Flash)
		if err != nil {
			return core.FlowStep{}, err
		}
		d, err := parseDuration("side_effect.duration", se.Duration)
		if err != nil {
			return core.FlowStep{}, err
		}
		step.SideEffect = &core.SideEffect{Node: core.NodeID(normalize(se.Node)), Flash: flash, Duration: d}
	}
	return step, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must be non-negative", field)
	}
	return d, nil
}

// LoadInto merges the scenarios defined in path into t.
func LoadInto(t *Table, path string) (int, error) {
	list, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := t.Merge(list); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return len(list), nil
}
