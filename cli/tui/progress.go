package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

type progressKeyMap struct {
	Quit key.Binding
}

var progressKeys = progressKeyMap{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "abandon (does not stop the write)")),
}

// ProgressMsg carries one frame from the running command. Done, when
// true, ends the program (successfully or not, per Err).
type ProgressMsg struct {
	Kind  string
	Now   int64
	Total int64
	Done  bool
	Err   error
}

// ProgressModel renders one command's progress as a bar, driven by
// ProgressMsg values sent over Frames.
type ProgressModel struct {
	Verb   string
	Frames <-chan ProgressMsg

	bar      progress.Model
	kind     string
	now      int64
	total    int64
	done     bool
	err      error
	quitting bool
}

// NewProgressModel constructs a model that reads frames off ch until it
// receives a Done message.
func NewProgressModel(verb string, ch <-chan ProgressMsg) ProgressModel {
	return ProgressModel{
		Verb:   verb,
		Frames: ch,
		bar:    progress.New(progress.WithDefaultGradient()),
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.waitForFrame()
}

func (m ProgressModel) waitForFrame() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.Frames
		if !ok {
			return ProgressMsg{Done: true}
		}
		return msg
	}
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, progressKeys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}

	case ProgressMsg:
		m.kind, m.now, m.total, m.err = msg.Kind, msg.Now, msg.Total, msg.Err
		if msg.Done {
			m.done = true
			return m, tea.Quit
		}
		return m, m.waitForFrame()
	}
	return m, nil
}

func (m ProgressModel) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("%s failed: %v", m.Verb, m.err)) + "\n"
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.now) / float64(m.total)
	}
	line := TitleStyle.Render(m.Verb) + " " + m.kind + "\n" + m.bar.ViewAs(pct)
	if m.done {
		line += "\n" + SuccessStyle.Render("done")
	} else {
		line += "\n" + HelpStyle.Render("press q to detach (the write keeps running)")
	}
	return line + "\n"
}
