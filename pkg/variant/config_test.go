package variant

import (
	"strings"
	"testing"

	"github.com/ZenLiuCN/fn"
	"github.com/davecgh/go-spew/spew"
)

const sampleConfig = `
groups:
  - name: gen
    objects:
      - {path: a.o, slot: 0}
      - {path: ./b.o, slot: 1}
    equal: .text.equal
    jump-table-on-clash: true
    remove-execute: true
    patterns: [".text.", ".bss."]
  - name: alt
    objects:
      - {path: c.o}
      - {path: d.o}
`

func TestParseConfig(t *testing.T) {
	cfg := fn.Panic1(ParseConfig([]byte(sampleConfig)))
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	if len(cfg.Groups) != 2 {
		t.Fatalf("groups %s", spew.Sdump(cfg))
	}
	gen := cfg.Groups[0]
	if gen.Equal != ".text.equal" || !gen.JumpTableOnClash || !gen.RemoveExecute {
		t.Errorf("flags not parsed: %s", spew.Sdump(gen))
	}
	if gen.Objects[1].SlotIndex() != 1 || cfg.Groups[1].Objects[0].SlotIndex() != -1 {
		t.Errorf("slots not parsed: %s", spew.Sdump(cfg))
	}
	if gen.Ignore != nil {
		t.Error("ignore list must default")
	}

	s := fn.Panic1(NewSessionFromConfig(cfg))
	g := s.Group("gen")
	if g.Flags != JumpTableOnClash|RemoveExecuteFlag || g.EqualOutput != ".text.equal" {
		t.Errorf("group flags %x", g.Flags)
	}
	if !g.Matcher.Matches(".bss.x") || g.Matcher.Matches(".text.hot.x") {
		t.Error("matcher not configured")
	}
	if got, slot, ok := s.Object("b.o"); !ok || got != g || slot != 1 {
		t.Errorf("object lookup %v %d %v", got, slot, ok)
	}
	if !g.IsDefaultObject("./a.o") || g.IsDefaultObject("b.o") {
		t.Error("default object lookup")
	}
	if !g.StripExec(1) || g.StripExec(0) {
		t.Error("strip policy")
	}
	if strings.Join(s.Objects(), ",") != "a.o,b.o,c.o,d.o" {
		t.Errorf("objects %v", s.Objects())
	}
}

func TestParseConfigUnknownField(t *testing.T) {
	if _, err := ParseConfig([]byte("groups:\n  - name: gen\n    slots: 2\n")); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestValidateConfig(t *testing.T) {
	slot := func(n int) *int { return &n }
	obj := func(path string, n int) ObjectConfig { return ObjectConfig{Path: path, Slot: slot(n)} }

	tests := []struct {
		name   string
		groups []*GroupConfig
		msg    string
	}{
		{"no name", []*GroupConfig{{Objects: []ObjectConfig{obj("a.o", 0), obj("b.o", 1)}}}, "without a name"},
		{"duplicate group", []*GroupConfig{
			{Name: "gen", Objects: []ObjectConfig{obj("a.o", 0), obj("b.o", 1)}},
			{Name: "gen", Objects: []ObjectConfig{obj("c.o", 0), obj("d.o", 1)}},
		}, "more than once"},
		{"shared object", []*GroupConfig{
			{Name: "gen", Objects: []ObjectConfig{obj("a.o", 0), obj("b.o", 1)}},
			{Name: "alt", Objects: []ObjectConfig{obj("a.o", 0), obj("d.o", 1)}},
		}, "already belongs"},
		{"negative slot", []*GroupConfig{{Name: "gen", Objects: []ObjectConfig{obj("a.o", 0), obj("b.o", -2)}}}, "negative slot"},
		{"single slot", []*GroupConfig{{Name: "gen", Objects: []ObjectConfig{obj("a.o", 0), obj("b.o", 0)}}}, "at least two"},
		{"no default", []*GroupConfig{{Name: "gen", Objects: []ObjectConfig{obj("a.o", 1), obj("b.o", 2)}}}, "default slot 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Config{Groups: tt.groups}).Validate()
			le := wantKind(t, err, InvalidConfig)
			if !strings.Contains(le.Detail, tt.msg) {
				t.Errorf("got %q, want %q", le.Detail, tt.msg)
			}
		})
	}
}

func TestParseObjectSpec(t *testing.T) {
	o := fn.Panic1(ParseObjectSpec("1:out/b.o"))
	if o.Path != "out/b.o" || o.SlotIndex() != 1 {
		t.Errorf("got %s", spew.Sdump(o))
	}

	o = fn.Panic1(ParseObjectSpec("c:/objs/a.o"))
	if o.Path != "c:/objs/a.o" || o.SlotIndex() != -1 {
		t.Errorf("got %s", spew.Sdump(o))
	}

	for _, bad := range []string{"", "2:"} {
		if _, err := ParseObjectSpec(bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestConfigGroupCreates(t *testing.T) {
	cfg := &Config{}
	if !cfg.Empty() {
		t.Fatal("new config not empty")
	}
	g := cfg.Group("gen")
	if cfg.Group("gen") != g || len(cfg.Groups) != 1 {
		t.Fatal("group not reused")
	}
}
