package main

import (
	"os"
	"strings"

	shlex "github.com/anmitsu/go-shlex"
	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/drake/tn5250/controller"
)

// handleKey routes one keypress either into the active `:macro` command
// line, into a bound scripting.Engine macro, or into the controller
// façade directly: normal mode dispatches straight through, `:` enters
// command-line mode for the `:macro NAME key1 key2 ...` binder.
//
// handleKey and everything it calls takes a pointer receiver: bubbletea
// hands Update a model by value, but Update's own receiver variable is
// an addressable local, so `m.handleKey(msg)` here implicitly operates
// on that local and its mutations are visible once Update returns it.
func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.macroMode {
		return m.handleMacroLineKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return tea.Quit
	case ":":
		m.macroMode = true
		m.macroInput.SetValue("")
		m.macroInput.Focus()
		return textinput.Blink
	case "tab":
		m.reportErr(m.ctrl.NextField())
		return nil
	case "shift+tab":
		m.reportErr(m.ctrl.PrevField())
		return nil
	case "backspace":
		m.reportErr(m.ctrl.Backspace())
		return nil
	case "delete":
		m.reportErr(m.ctrl.Delete())
		return nil
	case "enter":
		m.reportErr(m.ctrl.FunctionKey(controller.Enter))
		return nil
	case "ctrl+y":
		m.copyCurrentField()
		return nil
	case "ctrl+d":
		m.ctrl.Disconnect()
		m.status = "disconnected"
		return nil
	case "ctrl+x":
		m.ctrl.CancelConnect()
		return nil
	}

	if pf, ok := parsePF(msg.String()); ok {
		m.reportErr(m.ctrl.FunctionKey(pf))
		return nil
	}

	if m.engine != nil && m.engine.HandleKey(msg.String()) {
		return nil
	}

	if macro, ok := m.macros[msg.String()]; ok {
		m.playMacro(macro)
		return nil
	}

	if msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			if err := m.ctrl.TypeChar(r); err != nil {
				m.status = err.Error()
				break
			}
		}
	}
	return nil
}

// handleMacroLineKey collects keystrokes for the `:macro NAME key...`
// command line via bubbles/textinput and executes it on Enter.
func (m *model) handleMacroLineKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.macroMode = false
		m.macroInput.Blur()
		return nil
	case "enter":
		line := m.macroInput.Value()
		m.macroMode = false
		m.macroInput.Blur()
		m.runMacroCommand(line)
		return nil
	}

	var cmd tea.Cmd
	m.macroInput, cmd = m.macroInput.Update(msg)
	return cmd
}

// runMacroCommand tokenizes a `:macro NAME key1 key2 ...` line with
// go-shlex and persists the raw line to the history store so it
// survives a restart.
func (m *model) runMacroCommand(line string) {
	if m.hist != nil {
		m.hist.Add(m.ctrl.SessionID(), line)
	}

	tokens, err := shlex.Split(line, true)
	if err != nil || len(tokens) == 0 {
		m.status = "macro: " + line + ": parse error"
		return
	}
	if tokens[0] != "macro" || len(tokens) < 3 {
		m.status = "usage: :macro NAME key1 key2 ..."
		return
	}
	name, keys := tokens[1], tokens[2:]
	m.macros[name] = keys
	m.status = "bound macro " + name
}

// playMacro replays a recorded key sequence against the façade, one
// function-key AID per token (text between function keys is typed
// literally).
func (m *model) playMacro(keys []string) {
	for _, k := range keys {
		if pf, ok := parsePF(k); ok {
			m.reportErr(m.ctrl.FunctionKey(pf))
			continue
		}
		switch k {
		case "Enter":
			m.reportErr(m.ctrl.FunctionKey(controller.Enter))
		case "Tab":
			m.reportErr(m.ctrl.NextField())
		default:
			for _, r := range k {
				m.ctrl.TypeChar(r)
			}
		}
	}
}

// copyCurrentField copies the content of the field under the cursor to
// the system clipboard, falling back to an OSC52 terminal escape
// (atotto/clipboard needs a local X11/Wayland/pbcopy target; go-osc52
// instead asks the terminal emulator itself to set the selection,
// which also works over SSH where clipboard has nothing to shell out
// to).
func (m *model) copyCurrentField() {
	row, col := m.ctrl.Cursor()
	const cols = 80
	idx := row*cols + col
	for _, f := range m.ctrl.Fields() {
		if idx >= f.StartAddress && idx < f.StartAddress+f.Length {
			content := strings.TrimRight(f.Content, " ")
			if err := clipboard.WriteAll(content); err != nil {
				osc52.New(content).WriteTo(os.Stdout)
			}
			m.status = "copied field"
			return
		}
	}
	m.status = "no field under cursor"
}

// reportErr surfaces a façade error on the status line; nil is a no-op.
func (m *model) reportErr(err error) {
	if err != nil {
		m.status = err.Error()
	}
}

// parsePF maps bubbletea's "f1".."f24" key names to the façade's
// FunctionKey PF constants.
func parsePF(key string) (controller.FunctionKey, bool) {
	if len(key) < 2 || key[0] != 'f' {
		return "", false
	}
	n := 0
	for _, c := range key[1:] {
		if c < '0' || c > '9' {
			return "", false
		}
		n = n*10 + int(c-'0')
	}
	pf := controller.PF(n)
	return pf, pf != ""
}
