package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/ergraph/pkg/ergraph"
	"github.com/matzehuels/ergraph/pkg/integrity"
	"github.com/matzehuels/ergraph/pkg/pipeline"
	"github.com/matzehuels/ergraph/pkg/schema"
)

func loadGraph(t *testing.T, data string) (*ergraph.Graph, integrity.Report) {
	t.Helper()
	g, err := pipeline.Load(pipeline.Options{
		Schema:       []byte(testSchema),
		SchemaFormat: schema.FormatYAML,
		Data:         []byte(data),
		Logger:       log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return g, integrity.Check(g)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds keys to m and returns the resulting model and last command.
func press(m BrowseModel, keys ...string) (BrowseModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(BrowseModel)
	}
	return m, cmd
}

func TestBrowseNavigation(t *testing.T) {
	g, report := loadGraph(t, testData)
	m := NewBrowseModel(g, report)

	if view := m.View(); !strings.Contains(view, "Entity Kinds") || !strings.Contains(view, "animal") {
		t.Fatalf("kind list view:\n%s", view)
	}

	m, _ = press(m, "down", "down", "up")
	if m.Cursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.Cursor)
	}
	m, _ = press(m, "up")
	if m.Cursor != 0 {
		t.Fatalf("cursor moved above the first row: %d", m.Cursor)
	}

	m, _ = press(m, "enter")
	if m.Kind != "person" {
		t.Fatalf("open kind = %q, want person", m.Kind)
	}
	if view := m.View(); !strings.Contains(view, "Alice") || !strings.Contains(view, "Bob") {
		t.Errorf("entity view:\n%s", view)
	}

	m, _ = press(m, "down", "down")
	if m.Cursor != 1 {
		t.Fatalf("cursor = %d, want 1 (last person)", m.Cursor)
	}

	m, cmd := press(m, "esc")
	if m.Kind != "" || cmd != nil {
		t.Fatalf("esc should return to the kind list, kind = %q", m.Kind)
	}

	m, _ = press(m, "j", "l")
	if m.Kind != "animal" {
		t.Fatalf("open kind = %q, want animal", m.Kind)
	}
	if m.Selected != nil {
		t.Fatal("opening a kind must not select")
	}
}

func TestBrowseSelect(t *testing.T) {
	g, report := loadGraph(t, testData)
	m, cmd := press(NewBrowseModel(g, report), "enter", "down", "enter")
	if cmd == nil {
		t.Fatal("selecting an entity should quit")
	}
	if m.Selected == nil || m.Selected.Kind != "person" || m.Selected.ID != "b" {
		t.Fatalf("selected = %+v, want person b", m.Selected)
	}
	if m.Selected.Record["name"] != "Bob" {
		t.Errorf("record = %v", m.Selected.Record)
	}
}

func TestBrowseQuit(t *testing.T) {
	g, report := loadGraph(t, testData)
	for _, k := range []string{"q", "esc"} {
		m, cmd := press(NewBrowseModel(g, report), k)
		if cmd == nil || m.Selected != nil {
			t.Errorf("%q: want quit without selection", k)
		}
	}
}

func TestBrowseWindowSize(t *testing.T) {
	g, report := loadGraph(t, testData)
	next, _ := NewBrowseModel(g, report).Update(tea.WindowSizeMsg{Width: 80, Height: 3})
	if h := next.(BrowseModel).Height; h != 5 {
		t.Errorf("height = %d, want minimum 5", h)
	}
}

func TestBrowseMarksUnresolved(t *testing.T) {
	g, report := loadGraph(t, brokenData)
	m := NewBrowseModel(g, report)
	if m.unresolved["person"] != 1 || !m.missing["person/a"] {
		t.Fatalf("unresolved = %v, missing = %v", m.unresolved, m.missing)
	}

	rec, _ := g.Get("person", "a")
	var buf bytes.Buffer
	printEntity(&buf, g, &EntitySelection{Kind: "person", ID: "a", Record: rec})
	out := buf.String()
	for _, want := range []string{"person a", "Alice", "person/ghost (missing)"} {
		if !strings.Contains(out, want) {
			t.Errorf("printEntity missing %q:\n%s", want, out)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "—"},
		{"x", "x"},
		{3.5, "3.5"},
		{float64(42), "42"},
		{json.Number("12345678901234567890"), "12345678901234567890"},
		{true, "true"},
		{ergraph.Reference{Kind: "person", ID: "a"}, "person/a"},
		{[]ergraph.Reference{{Kind: "person", ID: "a"}, {Kind: "animal", ID: "rex"}}, "person/a, animal/rex"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
