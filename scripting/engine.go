package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	glua "github.com/yuin/gopher-lua"

	"github.com/drake/tn5250/timer"
)

// Engine is a gopher-lua VM wired to one Host. gopher-lua's *LState is
// not safe for concurrent use, so every call into L — including timer
// callbacks firing on timer.Service's own goroutine — is funneled
// through Host.PostCallback onto whichever goroutine owns the engine.
type Engine struct {
	L        *glua.LState
	host     Host
	tnTable  *glua.LTable
	binds    map[string]*glua.LFunction
	bindsMu  sync.Mutex
	timerSvc *timer.Service
	timerCh  chan timer.Event
	timerFns map[int]*glua.LFunction
	timerMu  sync.Mutex
	done     chan struct{}
}

// NewEngine creates a fresh Lua VM and binds the tn5250.* API to host.
func NewEngine(host Host) *Engine {
	e := &Engine{
		host:     host,
		binds:    make(map[string]*glua.LFunction),
		timerCh:  make(chan timer.Event, 16),
		timerFns: make(map[int]*glua.LFunction),
		done:     make(chan struct{}),
	}
	e.timerSvc = timer.NewService(e.timerCh)
	e.L = glua.NewState()
	e.tnTable = e.L.NewTable()
	e.L.SetGlobal("tn5250", e.tnTable)
	e.registerCoreFuncs()
	e.registerBindFuncs()
	e.registerTimerFuncs()
	go e.pumpTimers()
	return e
}

// pumpTimers hands every fired timer back to the host's callback queue
// so the Lua call itself always happens on the owning goroutine.
func (e *Engine) pumpTimers() {
	for {
		select {
		case <-e.done:
			return
		case ev := <-e.timerCh:
			e.timerMu.Lock()
			fn, ok := e.timerFns[ev.ID]
			if ok && !ev.Repeating {
				delete(e.timerFns, ev.ID)
			}
			e.timerMu.Unlock()
			if !ok {
				continue
			}
			e.host.PostCallback(func() { e.call(fn) })
		}
	}
}

// call invokes a stored Lua function, protected against panics escaping
// as Go errors instead (glua.LState.PCall already recovers internally,
// this just logs to stderr the way the rest of the core treats macro
// failures as non-fatal).
func (e *Engine) call(fn *glua.LFunction, args ...glua.LValue) {
	e.L.Push(fn)
	for _, a := range args {
		e.L.Push(a)
	}
	if err := e.L.PCall(len(args), 0, nil); err != nil {
		fmt.Fprintf(os.Stderr, "scripting: macro error: %v\n", err)
	}
}

// LoadFile executes a user script (typically init.lua) that registers
// macros via tn5250.bind.
func (e *Engine) LoadFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil // no init.lua is not an error
	}
	if err := e.L.DoFile(abs); err != nil {
		return fmt.Errorf("executing %s: %w", abs, err)
	}
	return nil
}

// HandleKey runs the macro bound to key, if any, and reports whether
// one was found.
func (e *Engine) HandleKey(key string) bool {
	e.bindsMu.Lock()
	fn, ok := e.binds[key]
	e.bindsMu.Unlock()
	if !ok {
		return false
	}
	e.call(fn)
	return true
}

// BoundKeys lists every key with a registered macro.
func (e *Engine) BoundKeys() []string {
	e.bindsMu.Lock()
	defer e.bindsMu.Unlock()
	keys := make([]string, 0, len(e.binds))
	for k := range e.binds {
		keys = append(keys, k)
	}
	return keys
}

// Close cancels all pending timers and tears down the Lua state.
func (e *Engine) Close() {
	e.timerSvc.CancelAll()
	close(e.done)
	e.L.Close()
}
