package scenario

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/zeebo/xxh3"

	"github.com/Readm/backend_flow_sim/core"
)

// ID names a scenario on the trigger surface.
type ID string

const (
	ReadHit   ID = "READ_HIT"
	ReadMiss  ID = "READ_MISS"
	Write     ID = "WRITE"
	AsyncTask ID = "ASYNC_TASK"
)

// ErrInvalid is wrapped by every scenario validation failure.
var ErrInvalid = errors.New("invalid scenario")

// Scenario is a named, fixed sequence of steps.
type Scenario struct {
	ID          ID              `json:"id"`
	Title       string          `json:"title"`
	Subtitle    string          `json:"subtitle"`
	Description string          `json:"description,omitempty"`
	Steps       []core.FlowStep `json:"steps"`
}

// Clone returns a deep copy so callers cannot mutate table contents.
func (s Scenario) Clone() Scenario {
	out := s
	out.Steps = make([]core.FlowStep, len(s.Steps))
	for i, st := range s.Steps {
		out.Steps[i] = st.Clone()
	}
	return out
}

// Validate checks the scenario against a node registry.
func (s Scenario) Validate(reg *core.Registry) error {
	if s.ID == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalid)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: %s has no steps", ErrInvalid, s.ID)
	}
	for i, st := range s.Steps {
		if !reg.Has(st.From) {
			return fmt.Errorf("%w: %s step %d: unknown source node %q", ErrInvalid, s.ID, i, st.From)
		}
		if !reg.Has(st.To) {
			return fmt.Errorf("%w: %s step %d: unknown destination node %q", ErrInvalid, s.ID, i, st.To)
		}
		if _, err := core.ParsePacketKind(string(st.Kind)); err != nil {
			return fmt.Errorf("%w: %s step %d: %v", ErrInvalid, s.ID, i, err)
		}
		if st.Travel < 0 || st.Delay < 0 {
			return fmt.Errorf("%w: %s step %d: durations must be non-negative", ErrInvalid, s.ID, i)
		}
		if se := st.SideEffect; se != nil {
			if !reg.Has(se.Node) {
				return fmt.Errorf("%w: %s step %d: side effect on unknown node %q", ErrInvalid, s.ID, i, se.Node)
			}
			if se.Flash == core.FlashNone {
				return fmt.Errorf("%w: %s step %d: side effect needs a flash kind", ErrInvalid, s.ID, i)
			}
			if se.Duration < 0 {
				return fmt.Errorf("%w: %s step %d: side effect duration must be non-negative", ErrInvalid, s.ID, i)
			}
		}
	}
	return nil
}

// Table maps scenario ids to their step lists, in trigger-surface order.
type Table struct {
	reg     *core.Registry
	order   []ID
	byID    map[ID]Scenario
	builtin map[ID]bool
}

// NewTable creates an empty table bound to a node registry.
func NewTable(reg *core.Registry) *Table {
	if reg == nil {
		reg = core.DefaultRegistry()
	}
	return &Table{
		reg:     reg,
		byID:    make(map[ID]Scenario),
		builtin: make(map[ID]bool),
	}
}

// Registry returns the node registry scenarios are validated against.
func (t *Table) Registry() *core.Registry {
	if t == nil {
		return core.DefaultRegistry()
	}
	return t.reg
}

// Add validates and appends a scenario. Ids must be unique.
func (t *Table) Add(s Scenario) error {
	if t == nil {
		return errors.New("scenario table is nil")
	}
	if err := s.Validate(t.reg); err != nil {
		return err
	}
	if _, exists := t.byID[s.ID]; exists {
		if t.builtin[s.ID] {
			return fmt.Errorf("%w: %s is built in and cannot be redefined", ErrInvalid, s.ID)
		}
		return fmt.Errorf("%w: duplicate scenario id %s", ErrInvalid, s.ID)
	}
	t.order = append(t.order, s.ID)
	t.byID[s.ID] = s.Clone()
	return nil
}

// Merge adds every scenario or none of them.
func (t *Table) Merge(list []Scenario) error {
	staged := t.clone()
	for _, s := range list {
		if err := staged.Add(s); err != nil {
			return err
		}
	}
	*t = *staged
	return nil
}

func (t *Table) clone() *Table {
	out := NewTable(t.reg)
	out.order = append(out.order, t.order...)
	for id, s := range t.byID {
		out.byID[id] = s
	}
	for id, b := range t.builtin {
		out.builtin[id] = b
	}
	return out
}

// Lookup returns a copy of the scenario registered under id.
func (t *Table) Lookup(id ID) (Scenario, bool) {
	if t == nil {
		return Scenario{}, false
	}
	s, ok := t.byID[id]
	if !ok {
		return Scenario{}, false
	}
	return s.Clone(), true
}

// All returns copies of every scenario in trigger-surface order.
func (t *Table) All() []Scenario {
	if t == nil {
		return nil
	}
	out := make([]Scenario, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id].Clone())
	}
	return out
}

// IDs returns the registered ids in order.
func (t *Table) IDs() []ID {
	if t == nil {
		return nil
	}
	out := make([]ID, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of scenarios.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

func normalize(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	return strings.NewReplacer("-", "_", " ", "_").Replace(name)
}

// Parse resolves a user supplied name ("read-hit", "READ_HIT", "read hit").
func (t *Table) Parse(name string) (ID, bool) {
	if t == nil {
		return "", false
	}
	id := ID(normalize(name))
	if _, ok := t.byID[id]; ok {
		return id, true
	}
	return "", false
}

// Suggest returns the registered id closest to name by edit distance, if any
// is reasonably close.
func (t *Table) Suggest(name string) (ID, bool) {
	if t == nil || len(t.order) == 0 {
		return "", false
	}
	target := normalize(name)
	best := ID("")
	bestDist := -1
	for _, id := range t.order {
		d := levenshtein.ComputeDistance(target, string(id))
		if bestDist < 0 || d < bestDist {
			best, bestDist = id, d
		}
	}
	if bestDist > len(best)/2 {
		return "", false
	}
	return best, true
}

// Hash returns a stable fingerprint of the table contents. Frontends use it
// to notice that the scenario set changed.
func (t *Table) Hash() string {
	if t == nil {
		return ""
	}
	h := xxh3.New()
	for _, id := range t.order {
		s := t.byID[id]
		writeField(h, string(s.ID), s.Title, s.Subtitle)
		for _, st := range s.Steps {
			writeField(h, string(st.From), string(st.To), st.Label, st.Log, string(st.Kind.OrDefault()),
				st.Travel.String(), st.Delay.String())
			if se := st.SideEffect; se != nil {
				writeField(h, string(se.Node), string(se.Flash), se.Duration.String())
			}
		}
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

func writeField(h *xxh3.Hasher, fields ...string) {
	for _, f := range fields {
		_, _ = h.WriteString(f)
		_, _ = h.Write([]byte{0})
	}
}
