package scripting

import glua "github.com/yuin/gopher-lua"

// registerBindFuncs registers tn5250.bind(key, fn)/tn5250.unbind(key),
// the key-to-macro table init.lua populates.
func (e *Engine) registerBindFuncs() {
	e.L.SetField(e.tnTable, "bind", e.L.NewFunction(func(L *glua.LState) int {
		key := L.CheckString(1)
		fn := L.CheckFunction(2)
		e.bindsMu.Lock()
		e.binds[key] = fn
		e.bindsMu.Unlock()
		return 0
	}))

	e.L.SetField(e.tnTable, "unbind", e.L.NewFunction(func(L *glua.LState) int {
		key := L.CheckString(1)
		e.bindsMu.Lock()
		delete(e.binds, key)
		e.bindsMu.Unlock()
		return 0
	}))
}
