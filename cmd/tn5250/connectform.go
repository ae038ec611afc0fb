package main

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/drake/tn5250/config"
	"github.com/drake/tn5250/controller"
)

// connectForm gathers a host/port/TLS/username/password before calling
// controller.Controller.Connect. Credentials live only in this model's
// fields and the façade's SetCredentials call — neither crosses into
// logging.Logger, which must never see a password.
type connectForm struct {
	ctrl *controller.Controller

	width, height int
	done          bool
	err           error

	host     string
	port     string
	tlsMode  string
	username string
	password string

	form *huh.Form
}

func newConnectForm(ctrl *controller.Controller) *connectForm {
	m := &connectForm{ctrl: ctrl, port: "23", tlsMode: "off"}
	m.form = buildConnectForm(&m.host, &m.port, &m.tlsMode, &m.username, &m.password)
	return m
}

func buildConnectForm(host, port, tlsMode, username, password *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Host").Value(host).Validate(nonEmptyField("host")),
			huh.NewInput().Title("Port").Value(port).Validate(validPort),
			huh.NewSelect[string]().Title("TLS").
				Options(
					huh.NewOption("Off", "off"),
					huh.NewOption("On", "on"),
					huh.NewOption("On (custom CA)", "custom-ca"),
				).
				Value(tlsMode),
			huh.NewInput().Title("Username").Value(username),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(password),
		),
	)
}

func (m *connectForm) SetSize(w, h int) {
	m.width, m.height = w, h
}

func (m *connectForm) Update(msg tea.Msg) tea.Cmd {
	if m.err != nil {
		if key, ok := msg.(tea.KeyMsg); ok && (key.String() == "esc" || key.String() == "enter") {
			m.done = true
		}
		return nil
	}

	updated, cmd := m.form.Update(msg)
	f, ok := updated.(*huh.Form)
	if !ok {
		m.err = fmt.Errorf("connect form: unexpected model type")
		return nil
	}
	m.form = f

	if m.form.State == huh.StateCompleted {
		if err := m.submit(); err != nil {
			m.err = err
			return nil
		}
		m.done = true
		return nil
	}
	return cmd
}

// submit validates the form fields and kicks off the connect in its own
// goroutine: Controller.Connect blocks up to the configured connect
// timeout, and Update runs on the single bubbletea event-loop goroutine
// that must never stall waiting on it. Any connect failure still
// reaches the status bar through the model's existing TakeLastError
// poll once the session records it.
func (m *connectForm) submit() error {
	port, err := strconv.Atoi(strings.TrimSpace(m.port))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}

	tlsOpts := controller.TLSOptions{}
	switch m.tlsMode {
	case "on":
		tlsOpts.Mode = config.TLSOn
	case "custom-ca":
		tlsOpts.Mode = config.TLSOnWithCustomCA
	default:
		tlsOpts.Mode = config.TLSOff
	}

	if m.username != "" || m.password != "" {
		m.ctrl.SetCredentials(m.username, m.password)
	}

	host, ctrl := strings.TrimSpace(m.host), m.ctrl
	go ctrl.Connect(host, port, tlsOpts)
	return nil
}

func (m *connectForm) View() string {
	if m.err != nil {
		return fmt.Sprintf("connect error: %v\n\n(enter/esc to dismiss)", m.err)
	}
	return m.form.View()
}

func nonEmptyField(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func validPort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
