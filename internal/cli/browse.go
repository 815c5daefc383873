package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ergraph/pkg/ergraph"
	"github.com/matzehuels/ergraph/pkg/integrity"
	"github.com/matzehuels/ergraph/pkg/schema"
)

var (
	browseHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	browseDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

// maxBrowseColumns caps the scalar attributes shown per entity row.
const maxBrowseColumns = 4

// =============================================================================
// BrowseModel - Interactive kind and entity selection
// =============================================================================

// EntitySelection is the entity picked in the browser.
type EntitySelection struct {
	Kind   string
	ID     string
	Record ergraph.Record
}

// BrowseModel is the bubbletea model of the entity browser. It starts on
// the list of kinds; enter opens a kind, enter on an entity selects it and
// quits, esc goes back.
type BrowseModel struct {
	Graph    *ergraph.Graph
	Selected *EntitySelection

	// Kind is the open kind, or "" on the kind list.
	Kind   string
	Cursor int
	Offset int
	Height int

	unresolved map[string]int // per source kind
	missing    map[string]bool
	kindCursor int
}

// NewBrowseModel creates a browser over g, marking the references listed
// in report as unresolved.
func NewBrowseModel(g *ergraph.Graph, report integrity.Report) BrowseModel {
	m := BrowseModel{
		Graph:      g,
		Height:     15,
		unresolved: make(map[string]int),
		missing:    make(map[string]bool),
	}
	for _, u := range report.Unresolved {
		m.unresolved[u.FromKind]++
		m.missing[u.FromKind+"/"+u.FromID] = true
	}
	return m
}

func (m BrowseModel) rows() []string {
	if m.Kind == "" {
		return m.Graph.Kinds()
	}
	return m.Graph.IDs(m.Kind)
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		n := len(m.rows())
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "backspace", "left", "h":
			if m.Kind == "" {
				if msg.String() == "esc" {
					return m, tea.Quit
				}
				return m, nil
			}
			m.Kind = ""
			m.Cursor, m.Offset = m.kindCursor, 0
			m.scroll()
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				m.scroll()
			}
		case "down", "j":
			if m.Cursor < n-1 {
				m.Cursor++
				m.scroll()
			}
		case "enter", "right", "l":
			if n == 0 {
				return m, nil
			}
			if m.Kind == "" {
				m.kindCursor = m.Cursor
				m.Kind = m.rows()[m.Cursor]
				m.Cursor, m.Offset = 0, 0
				return m, nil
			}
			if msg.String() != "enter" {
				return m, nil
			}
			id := m.rows()[m.Cursor]
			rec, _ := m.Graph.Get(m.Kind, id)
			m.Selected = &EntitySelection{Kind: m.Kind, ID: id, Record: rec}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
		m.scroll()
	}
	return m, nil
}

// scroll keeps the cursor inside the visible window.
func (m *BrowseModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m BrowseModel) View() string {
	var b strings.Builder

	rows := m.rows()
	if m.Kind == "" {
		b.WriteString(StyleTitle.Render("Entity Kinds"))
		b.WriteString("\n")
		b.WriteString(browseDimStyle.Render("↑/↓ navigate  ⏎ open  q quit"))
	} else {
		b.WriteString(StyleTitle.Render(m.Kind))
		b.WriteString("\n")
		b.WriteString(browseDimStyle.Render("↑/↓ navigate  ⏎ select  esc back  q quit"))
	}
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(rows))
	var t *table.Table
	if m.Kind == "" {
		t = m.kindTable(rows[m.Offset:end])
	} else {
		t = m.entityTable(rows[m.Offset:end])
	}
	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(browseDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(rows)), len(rows))))
	return b.String()
}

func (m BrowseModel) cursorMark(i int) string {
	if m.Offset+i == m.Cursor {
		return "▸ "
	}
	return "  "
}

func (m BrowseModel) kindTable(kinds []string) *table.Table {
	rows := make([][]string, len(kinds))
	for i, kind := range kinds {
		key, _ := m.Graph.Schema().KeyAttributeOf(kind)
		unresolved := "—"
		if n := m.unresolved[kind]; n > 0 {
			unresolved = strconv.Itoa(n)
		}
		rows[i] = []string{m.cursorMark(i), kind, key, strconv.Itoa(m.Graph.Count(kind)), unresolved}
	}
	return m.styled(table.New().Headers("", "Kind", "Key", "Entities", "Unresolved").Rows(rows...), func(row int) bool {
		return m.unresolved[kinds[row]] > 0
	})
}

func (m BrowseModel) entityTable(ids []string) *table.Table {
	k, _ := m.Graph.Schema().Kind(m.Kind)
	var scalars []string
	var multis []string
	for _, a := range k.Attributes() {
		switch {
		case a.Tag == schema.TagMulti:
			multis = append(multis, a.Name)
		case a.Name != k.Key && len(scalars) < maxBrowseColumns:
			scalars = append(scalars, a.Name)
		}
	}

	headers := append([]string{"", k.Key}, scalars...)
	headers = append(headers, "Refs")
	rows := make([][]string, len(ids))
	for i, id := range ids {
		rec, _ := m.Graph.Get(m.Kind, id)
		row := []string{m.cursorMark(i), id}
		for _, name := range scalars {
			row = append(row, formatValue(rec[name]))
		}
		refs := 0
		for _, name := range multis {
			refs += len(rec.References(name))
		}
		rows[i] = append(row, strconv.Itoa(refs))
	}
	return m.styled(table.New().Headers(headers...).Rows(rows...), func(row int) bool {
		return m.missing[m.Kind+"/"+ids[row]]
	})
}

// styled applies the shared border and row styles. Rows for which broken
// reports true are drawn as warnings.
func (m BrowseModel) styled(t *table.Table, broken func(row int) bool) *table.Table {
	return t.
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return browseHeaderStyle
			}
			style := lipgloss.NewStyle().Foreground(colorWhite)
			if broken(row) {
				style = style.Foreground(colorYellow)
			}
			if m.Offset+row == m.Cursor {
				style = style.Bold(true)
				if !broken(row) {
					style = style.Foreground(colorCyan)
				}
			}
			return style
		})
}

// formatValue renders one record value for display.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "—"
	case string:
		return v
	case json.Number:
		return ergraph.FormatNumber(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case ergraph.Reference:
		return v.String()
	case []ergraph.Reference:
		parts := make([]string, len(v))
		for i, r := range v {
			parts[i] = r.String()
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

// =============================================================================
// Command
// =============================================================================

// browseCommand opens the interactive entity browser.
func (c *CLI) browseCommand() *cobra.Command {
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "browse <data.json>",
		Short: "Browse the entities of a document interactively",
		Long: `Load a document and browse its entities by kind. Kinds and entities with
unresolved references are highlighted. Selecting an entity prints its
attributes.`,
		Example: `  ergraph browse -s people.yaml people.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			runner, err := c.newRunner(true)
			if err != nil {
				return err
			}
			defer runner.Close()

			g, err := runner.Load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			report := runner.Check(cmd.Context(), g)

			p := tea.NewProgram(NewBrowseModel(g, report),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.ErrOrStderr()))
			final, err := p.Run()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fm, ok := final.(BrowseModel)
			if !ok || fm.Selected == nil {
				printDetail(w, "No selection made")
				return nil
			}
			printEntity(w, g, fm.Selected)
			return nil
		},
	}

	flags.addLoad(cmd)
	return cmd
}

// printEntity prints the attributes of sel in declaration order, marking
// references whose target is missing.
func printEntity(w io.Writer, g *ergraph.Graph, sel *EntitySelection) {
	fmt.Fprintln(w, StyleTitle.Render(sel.Kind+" "+sel.ID))
	attrs, _ := g.Schema().AttributesOf(sel.Kind)
	for _, a := range attrs {
		v, ok := sel.Record[a.Name]
		if !ok {
			continue
		}
		if a.Tag != schema.TagMulti {
			printKeyValue(w, a.Name, formatValue(v))
			continue
		}
		refs := sel.Record.References(a.Name)
		parts := make([]string, len(refs))
		for i, r := range refs {
			parts[i] = r.String()
			if !g.Resolve(r) {
				parts[i] = StyleWarning.Render(parts[i] + " (missing)")
			}
		}
		printKeyValue(w, a.Name, strings.Join(parts, ", "))
	}
}
