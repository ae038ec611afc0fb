package scripting

import glua "github.com/yuin/gopher-lua"

// registerCoreFuncs binds tn5250.type/key/next_field/prev_field/click,
// plus the read-only tn5250.screen()/cursor()/connected() queries, to
// the host.
func (e *Engine) registerCoreFuncs() {
	e.L.SetField(e.tnTable, "type", e.L.NewFunction(func(L *glua.LState) int {
		s := L.CheckString(1)
		if err := e.host.TypeString(s); err != nil {
			L.Push(glua.LString(err.Error()))
			return 1
		}
		return 0
	}))

	e.L.SetField(e.tnTable, "key", e.L.NewFunction(func(L *glua.LState) int {
		name := L.CheckString(1)
		if err := e.host.FunctionKey(name); err != nil {
			L.Push(glua.LString(err.Error()))
			return 1
		}
		return 0
	}))

	e.L.SetField(e.tnTable, "next_field", e.L.NewFunction(func(L *glua.LState) int {
		e.host.NextField()
		return 0
	}))

	e.L.SetField(e.tnTable, "prev_field", e.L.NewFunction(func(L *glua.LState) int {
		e.host.PrevField()
		return 0
	}))

	e.L.SetField(e.tnTable, "click", e.L.NewFunction(func(L *glua.LState) int {
		row := L.CheckInt(1)
		col := L.CheckInt(2)
		e.host.ClickAt(row, col)
		return 0
	}))

	e.L.SetField(e.tnTable, "screen", e.L.NewFunction(func(L *glua.LState) int {
		L.Push(glua.LString(e.host.TerminalContent()))
		return 1
	}))

	e.L.SetField(e.tnTable, "cursor", e.L.NewFunction(func(L *glua.LState) int {
		row, col := e.host.Cursor()
		L.Push(glua.LNumber(row))
		L.Push(glua.LNumber(col))
		return 2
	}))

	e.L.SetField(e.tnTable, "connected", e.L.NewFunction(func(L *glua.LState) int {
		L.Push(glua.LBool(e.host.IsConnected()))
		return 1
	}))
}
