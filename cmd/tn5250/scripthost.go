package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/drake/tn5250/controller"
)

// callbackMsg carries a scripting.Engine timer callback across to the
// bubbletea loop, the single goroutine allowed to touch the gopher-lua
// state (scripting.Host.PostCallback's contract).
type callbackMsg func()

// scriptHost adapts controller.Controller and a running *tea.Program to
// scripting.Host, letting init.lua macros drive the same façade the
// keyboard does.
type scriptHost struct {
	ctrl    *controller.Controller
	program *tea.Program
}

func (h *scriptHost) TypeString(s string) error {
	for _, r := range s {
		if err := h.ctrl.TypeChar(r); err != nil {
			return err
		}
	}
	return nil
}

func (h *scriptHost) FunctionKey(name string) error {
	if pf, ok := parsePF(strings.ToLower(name)); ok {
		return h.ctrl.FunctionKey(pf)
	}
	switch name {
	case "Enter":
		return h.ctrl.FunctionKey(controller.Enter)
	case "FieldExit":
		return h.ctrl.FunctionKey(controller.FieldExit)
	case "SysReq":
		return h.ctrl.FunctionKey(controller.SysReq)
	case "Attn":
		return h.ctrl.FunctionKey(controller.Attn)
	}
	return fmt.Errorf("scripting: unknown function key %q", name)
}

func (h *scriptHost) NextField() error           { return h.ctrl.NextField() }
func (h *scriptHost) PrevField() error           { return h.ctrl.PrevField() }
func (h *scriptHost) ClickAt(row, col int) error { return h.ctrl.ClickAt(row, col) }
func (h *scriptHost) TerminalContent() string    { return h.ctrl.TerminalContent() }
func (h *scriptHost) Cursor() (int, int)         { return h.ctrl.Cursor() }
func (h *scriptHost) IsConnected() bool          { return h.ctrl.IsConnected() }

func (h *scriptHost) PostCallback(fn func()) {
	if h.program != nil {
		h.program.Send(callbackMsg(fn))
	}
}
