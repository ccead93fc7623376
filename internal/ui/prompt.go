package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// promptModel asks for a single line of input.
type promptModel struct {
	title     string
	input     textinput.Model
	value     string
	cancelled bool
}

func newPromptModel(title, placeholder string) promptModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	ti.CharLimit = 512
	ti.Width = 72
	ti.Focus()
	return promptModel{title: title, input: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			m.value = strings.TrimSpace(m.input.Value())
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	return fmt.Sprintf("%s\n%s\n%s\n", styles.title.Render(m.title), m.input.View(), Muted("enter to confirm • esc to cancel"))
}

// PromptReference asks for a Spotify URL on an interactive terminal.
//
// It returns an empty string when the user cancels or submits nothing.
func PromptReference(in io.Reader, out io.Writer) (string, error) {
	m := newPromptModel("Spotify URL to download", "https://open.spotify.com/playlist/...")
	final, err := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}

	result := final.(promptModel)
	if result.cancelled {
		return "", nil
	}
	return result.value, nil
}
