// Package tui provides a terminal user interface for sf2-to-opxy
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/charlesvestal/sf2-to-opxy/pkg/converter"
	"github.com/charlesvestal/sf2-to-opxy/pkg/sf2"
)

// OP-XY inspired color scheme: near-monochrome with a warm accent
var (
	accentOrange = lipgloss.Color("#FF6A00")
	boneWhite    = lipgloss.Color("#EDEDED")
	silverGray   = lipgloss.Color("#C0C0C0")
	darkGray     = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentOrange).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(accentOrange).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(boneWhite).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(accentOrange).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentOrange).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Mode        string // converter force mode, or "inspect"
}

var menuItems = []MenuItem{
	{Title: "Convert", Description: "Convert every preset, auto-detecting drums", Mode: converter.ModeAuto},
	{Title: "Convert as drum", Description: "Force every preset into a drum patch", Mode: converter.ModeDrum},
	{Title: "Convert as instrument", Description: "Force every preset into a multisampler patch", Mode: converter.ModeInstrument},
	{Title: "Inspect", Description: "List a bank's presets without converting", Mode: "inspect"},
	{Title: "Exit", Description: "Exit the application", Mode: ""},
}

// Model represents the TUI model
type Model struct {
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	action       MenuItem
	summary      string
	err          error
	width        int
	height       int
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	summary string
	err     error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New() Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".sf2"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentOrange)

	return Model{
		state:      StateMenu,
		menuIndex:  0,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker needs to receive all messages while active
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.performAction())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.summary = msg.summary
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if m.menuIndex == len(menuItems)-1 {
			return m, tea.Quit
		}
		m.action = menuItems[m.menuIndex]
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.summary = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performAction() tea.Cmd {
	return func() tea.Msg {
		if m.action.Mode == "inspect" {
			return m.inspect()
		}

		cfg := converter.DefaultConfig()
		cfg.OutDir = filepath.Dir(m.selectedFile)
		cfg.ForceMode = m.action.Mode
		conv := converter.New(cfg)

		log, err := conv.ConvertFile(m.selectedFile)
		if err != nil {
			return conversionDoneMsg{err: err}
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%d presets written to %s\n\n", len(log.Presets), cfg.OutDir)
		for _, p := range log.Presets {
			fmt.Fprintf(&sb, "  %-10s %-28s %d regions\n", p.Type, p.Name, p.Regions)
		}
		if n := len(log.Warnings); n > 0 {
			fmt.Fprintf(&sb, "\n%d warnings (see conversion-log.json)", n)
		}
		return conversionDoneMsg{summary: sb.String()}
	}
}

func (m Model) inspect() tea.Msg {
	bank, err := sf2.ParseFile(m.selectedFile)
	if err != nil {
		return conversionDoneMsg{err: err}
	}
	presets, parseLog := bank.Resolve(sf2.DefaultDrumHeuristic())

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d presets\n\n", len(presets))
	for i := range presets {
		p := &presets[i]
		kind := "melodic"
		if p.IsDrum {
			kind = "drum"
		}
		fmt.Fprintf(&sb, "  %-28s bank %3d prog %3d  %-7s %d zones\n",
			p.Name, p.Bank, p.Program, kind, len(p.Zones))
	}
	if n := len(parseLog.SkippedZones); n > 0 {
		fmt.Fprintf(&sb, "\n%d zones skipped during parsing", n)
	}
	return conversionDoneMsg{summary: sb.String()}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(boneWhite).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT SOUNDFONT "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Processing %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  %s", m.action.Title)))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" DONE "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render(fmt.Sprintf("✓ %s", filepath.Base(m.selectedFile))))
		s.WriteString("\n\n")
		s.WriteString(m.summary)
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   ____  _____ ____    _          ___  ____     __  ____   __
  / ___||  ___|___ \  | |_ ___   / _ \|  _ \    \ \/ /\ \ / /
  \___ \| |_    __) | | __/ _ \ | | | | |_) |____\  /  \ V /
   ___) |  _|  / __/  | || (_) || |_| |  __/_____/  \   | |
  |____/|_|   |_____|  \__\___/  \___/|_|       /_/\_\  |_|
`
	return lipgloss.NewStyle().Foreground(accentOrange).Render(logo)
}

// Run starts the TUI application
func Run() error {
	p := tea.NewProgram(New(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
