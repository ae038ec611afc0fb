package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Dir returns the tn5250 configuration directory.
// Respects XDG_CONFIG_HOME on Unix, APPDATA on Windows.
func Dir() string {
	var base string

	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, "tn5250")
}

// InitFile returns the path to the optional scripting.Engine macro
// script loaded at startup.
func InitFile() string {
	return filepath.Join(Dir(), "init.lua")
}

// SessionsFile returns the path to the YAML-persisted list of saved
// session endpoints the CLI's configfile reads/writes.
func SessionsFile() string {
	return filepath.Join(Dir(), "sessions.yaml")
}

// HistoryFile returns the path to the sqlite-backed macro/command
// history database.
func HistoryFile() string {
	return filepath.Join(Dir(), "history.db")
}
