package scripting

import (
	"time"

	glua "github.com/yuin/gopher-lua"
)

// registerTimerFuncs registers tn5250.timer.after/every/cancel/
// cancel_all, backed by timer.Service.
func (e *Engine) registerTimerFuncs() {
	t := e.L.NewTable()
	e.L.SetField(e.tnTable, "timer", t)

	e.L.SetField(t, "after", e.L.NewFunction(func(L *glua.LState) int {
		seconds := L.CheckNumber(1)
		fn := L.CheckFunction(2)
		id := e.timerSvc.After(toDuration(seconds))
		e.timerMu.Lock()
		e.timerFns[id] = fn
		e.timerMu.Unlock()
		L.Push(glua.LNumber(id))
		return 1
	}))

	e.L.SetField(t, "every", e.L.NewFunction(func(L *glua.LState) int {
		seconds := L.CheckNumber(1)
		fn := L.CheckFunction(2)
		id := e.timerSvc.Every(toDuration(seconds))
		e.timerMu.Lock()
		e.timerFns[id] = fn
		e.timerMu.Unlock()
		L.Push(glua.LNumber(id))
		return 1
	}))

	e.L.SetField(t, "cancel", e.L.NewFunction(func(L *glua.LState) int {
		id := L.CheckInt(1)
		e.timerSvc.Cancel(id)
		e.timerMu.Lock()
		delete(e.timerFns, id)
		e.timerMu.Unlock()
		return 0
	}))

	e.L.SetField(t, "cancel_all", e.L.NewFunction(func(L *glua.LState) int {
		e.timerSvc.CancelAll()
		e.timerMu.Lock()
		e.timerFns = make(map[int]*glua.LFunction)
		e.timerMu.Unlock()
		return 0
	}))
}

func toDuration(seconds glua.LNumber) time.Duration {
	return time.Duration(float64(seconds) * float64(time.Second))
}
