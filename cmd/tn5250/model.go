package main

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/drake/tn5250/controller"
	"github.com/drake/tn5250/history"
	"github.com/drake/tn5250/scripting"
)

// tickMsg drives the periodic repaint that picks up host-pushed screen
// changes arriving on the network goroutine — the only way a
// non-blocking façade surfaces async updates to a single-threaded
// bubbletea model.
type tickMsg time.Time

func doTick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// model is the top-level bubbletea model rendering one
// controller.Controller's fixed character grid (24x80/32x80/43x80/
// 27x132), styled cell by cell from the field table's attributes.
type model struct {
	ctrl       *controller.Controller
	engine     *scripting.Engine
	hist       *history.Store
	macros     map[string][]string
	styles     styles
	width      int
	height     int
	status     string
	macroInput textinput.Model
	macroMode  bool
	quitting   bool

	connecting *connectForm
}

// newMacroInput builds the `:macro NAME key...` command-line widget:
// prompt, no char limit, focus toggled on mode entry/exit rather than
// held focused for the widget's whole lifetime.
func newMacroInput() textinput.Model {
	ti := textinput.New()
	ti.Prompt = ":"
	ti.Width = 76
	return ti
}

func newModel(ctrl *controller.Controller, engine *scripting.Engine, hist *history.Store) model {
	return model{
		ctrl:       ctrl,
		engine:     engine,
		hist:       hist,
		macros:     make(map[string][]string),
		styles:     newStyles(),
		status:     "disconnected",
		macroInput: newMacroInput(),
	}
}

func (m model) Init() tea.Cmd {
	return doTick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.connecting != nil {
		cmd := m.connecting.Update(msg)
		if m.connecting.done {
			m.connecting = nil
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		if err, ok := m.ctrl.TakeLastError(); ok {
			m.status = err.Code + ": " + err.UserMessage
		}
		return m, doTick()

	case tea.KeyMsg:
		if msg.String() == "ctrl+n" {
			m.connecting = newConnectForm(m.ctrl)
			m.connecting.SetSize(m.width, m.height)
			return m, m.connecting.form.Init()
		}
		cmd := m.handleKey(msg)
		return m, cmd

	case callbackMsg:
		msg()
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.connecting != nil {
		return m.connecting.View()
	}

	content := m.ctrl.TerminalContent()
	fields := m.ctrl.Fields()
	cursorRow, cursorCol := m.ctrl.Cursor()

	rows := strings.Split(content, "\n")
	var b strings.Builder
	for r, row := range rows {
		b.WriteString(m.renderRow(r, row, fields, cursorRow, cursorCol))
		b.WriteByte('\n')
	}

	statusLine := m.styles.statusBar.Render(m.statusText())
	return b.String() + statusLine
}

// renderRow styles one screen row, cell by cell, consulting the field
// table for protected/intensified/non-display attributes and the
// cursor position for the reverse-video caret. go-runewidth accounts
// for the rare double-width glyph when computing the cursor's visual
// column; uniseg walks the row as grapheme clusters rather than raw
// runes so a combining mark (never produced by the EBCDIC codec today,
// but not forbidden by the wire format) can't desync column math from
// cell math.
func (m model) renderRow(row int, text string, fields []controller.FieldInfo, cursorRow, cursorCol int) string {
	var b strings.Builder
	col := 0
	state := -1
	gr := text
	for len(gr) > 0 {
		cluster, rest, _, newState := uniseg.FirstGraphemeClusterInString(gr, state)
		state = newState
		gr = rest

		attr := attrAt(fields, row, col)
		style := m.styleFor(attr)
		if row == cursorRow && col == cursorCol {
			style = m.styles.cursor
		}
		b.WriteString(style.Render(cluster))
		col += runewidth.StringWidth(cluster)
	}
	return b.String()
}

func (m model) styleFor(attr cellAttr) lipgloss.Style {
	switch {
	case attr.nonDisplay:
		return m.styles.nonDisplay
	case attr.intensified:
		return m.styles.intensified
	default:
		return m.styles.normal
	}
}

// cellAttr is the subset of a field's attributes relevant to rendering
// one on-screen cell.
type cellAttr struct {
	intensified bool
	nonDisplay  bool
	protected   bool
}

// attrAt finds the field (if any) covering (row, col) in an 80-column
// grid and returns its render-relevant attributes. Cells outside every
// field render as plain text.
func attrAt(fields []controller.FieldInfo, row, col int) cellAttr {
	const cols = 80 // matches the default session model
	idx := row*cols + col
	for _, f := range fields {
		if idx >= f.StartAddress && idx < f.StartAddress+f.Length {
			return cellAttr{intensified: f.Intensified, nonDisplay: f.NonDisplay, protected: f.Protected}
		}
	}
	return cellAttr{}
}

func (m model) statusText() string {
	if m.macroMode {
		return m.macroInput.View()
	}
	state := m.ctrl.ConnectionState()
	return state.String() + " | " + m.status
}
