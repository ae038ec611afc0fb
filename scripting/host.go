// Package scripting hosts an optional gopher-lua VM that plays macros
// back against the controller façade: typing strings, pressing function
// keys, and reading the current screen, all bound to keys from a user's
// init.lua.
package scripting

// Host is the bridge between the Lua VM and whatever drives the
// controller façade. Decoupling the engine from controller.Controller
// directly keeps it testable with a fake.
type Host interface {
	TypeString(s string) error
	FunctionKey(name string) error
	NextField() error
	PrevField() error
	ClickAt(row, col int) error
	TerminalContent() string
	Cursor() (row, col int)
	IsConnected() bool

	// PostCallback schedules fn to run on whatever goroutine owns the
	// Lua state (gopher-lua's *LState is not safe for concurrent use).
	// A timer firing on its own goroutine must hand its callback back
	// through this instead of calling into Lua directly.
	PostCallback(fn func())
}
