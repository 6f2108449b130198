package scenario

import (
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/Readm/backend_flow_sim/core"
)

func TestBuiltinTableOrderAndSizes(t *testing.T) {
	g := NewWithT(t)
	table := Builtin()

	g.Expect(table.IDs()).To(Equal([]ID{ReadHit, ReadMiss, Write, AsyncTask}))

	sizes := map[ID]int{ReadHit: 4, ReadMiss: 7, Write: 6, AsyncTask: 5}
	for id, n := range sizes {
		s, ok := table.Lookup(id)
		g.Expect(ok).To(BeTrue(), string(id))
		g.Expect(s.Steps).To(HaveLen(n), string(id))
	}
	for _, id := range table.IDs() {
		g.Expect(table.IsBuiltin(id)).To(BeTrue())
	}
}

func TestReadHitNeverTouchesDatabaseOrQueue(t *testing.T) {
	g := NewWithT(t)
	s, _ := Builtin().Lookup(ReadHit)
	for _, st := range s.Steps {
		g.Expect([]core.NodeID{st.From, st.To}).NotTo(ContainElement(core.NodeDB))
		g.Expect([]core.NodeID{st.From, st.To}).NotTo(ContainElement(core.NodeQueue))
	}
	g.Expect(s.Steps[2].SideEffect).NotTo(BeNil())
	g.Expect(s.Steps[2].SideEffect.Flash).To(Equal(core.FlashSuccess))
}

func TestReadMissOrdering(t *testing.T) {
	g := NewWithT(t)
	s, _ := Builtin().Lookup(ReadMiss)

	miss, dbQuery, dbResp, populate, reply := -1, -1, -1, -1, -1
	for i, st := range s.Steps {
		switch {
		case st.From == core.NodeCache && st.IsError():
			miss = i
		case st.To == core.NodeDB:
			dbQuery = i
		case st.From == core.NodeDB:
			dbResp = i
		case st.To == core.NodeCache && st.Kind == core.PacketSync:
			populate = i
		case st.To == core.NodeClient:
			reply = i
		}
	}
	g.Expect(miss).To(BeNumerically("<", dbQuery))
	g.Expect(dbResp).To(BeNumerically("<", populate))
	g.Expect(populate).To(BeNumerically("<", reply))
}

func TestLookupReturnsCopies(t *testing.T) {
	g := NewWithT(t)
	table := Builtin()
	s, _ := table.Lookup(ReadHit)
	s.Steps[0].Log = "mutated"
	s.Steps[2].SideEffect.Flash = core.FlashError

	again, _ := table.Lookup(ReadHit)
	g.Expect(again.Steps[0].Log).To(Equal("Client requests user profile via API."))
	g.Expect(again.Steps[2].SideEffect.Flash).To(Equal(core.FlashSuccess))
}

func TestParseAndSuggest(t *testing.T) {
	g := NewWithT(t)
	table := Builtin()

	id, ok := table.Parse("read-miss")
	g.Expect(ok).To(BeTrue())
	g.Expect(id).To(Equal(ReadMiss))

	_, ok = table.Parse("read-hti")
	g.Expect(ok).To(BeFalse())
	id, ok = table.Suggest("read-hti")
	g.Expect(ok).To(BeTrue())
	g.Expect(id).To(Equal(ReadHit))

	_, ok = table.Suggest("xyz")
	g.Expect(ok).To(BeFalse())
}

func TestNilTableLookups(t *testing.T) {
	g := NewWithT(t)
	var table *Table

	_, ok := table.Parse("read-hit")
	g.Expect(ok).To(BeFalse())
	_, ok = table.Lookup(ReadHit)
	g.Expect(ok).To(BeFalse())
	_, ok = table.Suggest("read-hit")
	g.Expect(ok).To(BeFalse())
	g.Expect(table.IDs()).To(BeEmpty())
}

func TestHashTracksContents(t *testing.T) {
	g := NewWithT(t)
	a := Builtin()
	b := Builtin()
	g.Expect(a.Hash()).To(Equal(b.Hash()))

	err := b.Add(Scenario{ID: "PING", Steps: []core.FlowStep{{From: core.NodeClient, To: core.NodeApp}}})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(a.Hash()).NotTo(Equal(b.Hash()))
}

func TestAddRejectsInvalidScenarios(t *testing.T) {
	table := Builtin()
	tests := []struct {
		name string
		s    Scenario
	}{
		{"empty id", Scenario{Steps: []core.FlowStep{{From: core.NodeClient, To: core.NodeApp}}}},
		{"no steps", Scenario{ID: "EMPTY"}},
		{"unknown node", Scenario{ID: "BAD", Steps: []core.FlowStep{{From: "LB", To: core.NodeApp}}}},
		{"unknown kind", Scenario{ID: "BAD", Steps: []core.FlowStep{{From: core.NodeClient, To: core.NodeApp, Kind: "smoke"}}}},
		{"negative travel", Scenario{ID: "BAD", Steps: []core.FlowStep{{From: core.NodeClient, To: core.NodeApp, Travel: -time.Second}}}},
		{"flashless side effect", Scenario{ID: "BAD", Steps: []core.FlowStep{{From: core.NodeClient, To: core.NodeApp, SideEffect: &core.SideEffect{Node: core.NodeApp}}}}},
		{"builtin override", Scenario{ID: ReadHit, Steps: []core.FlowStep{{From: core.NodeClient, To: core.NodeApp}}}},
	}
	for _, tt := range tests {
		err := table.Add(tt.s)
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", tt.name, err)
		}
	}
	if table.Len() != 4 {
		t.Fatalf("invalid scenarios must not be added, table has %d", table.Len())
	}
}

const sampleFile = `
scenarios:
  - id: read-through
    title: Read Request
    subtitle: Read-through
    steps:
      - {from: client, to: app, label: GET /user/7, log: Client asks for user 7.}
      - {from: app, to: cache, label: GET, log: App asks the cache., travel: 400ms}
      - from: CACHE
        to: DB
        label: LOAD
        kind: sync
        log: Cache loads the row itself.
        delay: 250ms
        side_effect: {node: CACHE, flash: error, duration: 1s}
`

func TestDecodeAndMerge(t *testing.T) {
	g := NewWithT(t)

	list, err := Decode(strings.NewReader(sampleFile))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(list).To(HaveLen(1))

	s := list[0]
	g.Expect(s.ID).To(Equal(ID("READ_THROUGH")))
	g.Expect(s.Steps).To(HaveLen(3))
	g.Expect(s.Steps[0].From).To(Equal(core.NodeClient))
	g.Expect(s.Steps[0].Kind).To(Equal(core.PacketRequest))
	g.Expect(s.Steps[1].Travel).To(Equal(400 * time.Millisecond))
	g.Expect(s.Steps[2].Delay).To(Equal(250 * time.Millisecond))
	g.Expect(s.Steps[2].SideEffect).To(Equal(&core.SideEffect{Node: core.NodeCache, Flash: core.FlashError, Duration: time.Second}))

	table := Builtin()
	g.Expect(table.Merge(list)).To(Succeed())
	g.Expect(table.IDs()).To(HaveLen(5))
	g.Expect(table.IsBuiltin("READ_THROUGH")).To(BeFalse())
}

func TestMergeIsAllOrNothing(t *testing.T) {
	table := Builtin()
	list := []Scenario{
		{ID: "GOOD", Steps: []core.FlowStep{{From: core.NodeClient, To: core.NodeApp}}},
		{ID: "BAD", Steps: []core.FlowStep{{From: "NOWHERE", To: core.NodeApp}}},
	}
	if err := table.Merge(list); err == nil {
		t.Fatalf("expected merge failure")
	}
	if _, ok := table.Lookup("GOOD"); ok {
		t.Fatalf("partial merge leaked GOOD")
	}
}

func TestDecodeErrors(t *testing.T) {
	bad := []string{
		"scenarios:\n  - id: X\n    steps:\n      - {from: APP, to: DB, kind: smoke}\n",
		"scenarios:\n  - id: X\n    steps:\n      - {from: APP, to: DB, travel: fast}\n",
		"scenarios:\n  - id: X\n    bogus: 1\n",
	}
	for i, doc := range bad {
		if _, err := Decode(strings.NewReader(doc)); err == nil {
			t.Fatalf("case %d: expected decode error", i)
		}
	}
	list, err := Decode(strings.NewReader(""))
	if err != nil || len(list) != 0 {
		t.Fatalf("empty document should decode to nothing, got %v %v", list, err)
	}
}
