package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	isatty "github.com/mattn/go-isatty"
	"github.com/xo/terminfo"

	"github.com/drake/tn5250/cmd/tn5250/configfile"
	"github.com/drake/tn5250/config"
	"github.com/drake/tn5250/controller"
	"github.com/drake/tn5250/history"
	"github.com/drake/tn5250/logging"
	"github.com/drake/tn5250/recovery"
	"github.com/drake/tn5250/scripting"
)

var (
	flagDebug = flag.Bool("debug", false, "log at debug level")
	flagHost  = flag.String("host", "", "host to connect to at startup")
	flagPort  = flag.Int("port", 23, "port to connect to at startup")
)

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	level := logging.Info
	if *flagDebug {
		level = logging.Debug
	}
	logger := logging.New(os.Stderr, level)

	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		fmt.Fprintln(os.Stderr, "tn5250: stdout is not a terminal")
		os.Exit(1)
	}
	if ti, err := terminfo.LoadFromEnv(); err != nil {
		logger.Warnf(recovery.KindBug, "failed to load terminfo for $TERM", err)
	} else if ti.Num(terminfo.MaxColors) < 8 {
		logger.Infof("terminal reports fewer than 8 colors; rendering will degrade to monochrome")
	}

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		fmt.Fprintln(os.Stderr, "tn5250:", err)
		os.Exit(1)
	}

	hist, err := history.Open(config.HistoryFile())
	if err != nil {
		logger.Errorf(recovery.KindBug, "failed to open history store", err)
		hist = nil
	}
	if hist != nil {
		defer hist.Close()
	}

	sessions, err := configfile.Load(config.SessionsFile())
	if err != nil {
		logger.Errorf(recovery.KindBug, "failed to load sessions.yaml", err)
	} else if err := sessions.Watch(func() {
		logger.Infof("sessions.yaml reloaded")
	}); err != nil {
		logger.Warnf(recovery.KindBug, "failed to watch sessions.yaml", err)
	}
	if sessions != nil {
		defer sessions.Close()
	}

	ctrl := controller.New()

	host := &scriptHost{ctrl: ctrl}
	engine := scripting.NewEngine(host)
	defer engine.Close()
	if err := engine.LoadFile(config.InitFile()); err != nil {
		logger.Warnf(recovery.KindBug, "failed to load init.lua", err)
	}

	m := newModel(ctrl, engine, hist)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	host.program = program

	if *flagHost != "" {
		go func() {
			if err := ctrl.Connect(*flagHost, *flagPort, controller.TLSOptions{}); err != nil {
				logger.Errorf(recovery.KindConnectRefused, "initial connect failed", err)
			}
		}()
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "tn5250:", err)
		os.Exit(1)
	}
}
