package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scribe/pipeline"
	"scribe/prompt"
)

// TUI message types
type RecordingStartMsg struct{}
type RecordingTickMsg struct{ Duration float64 }
type AudioLevelMsg struct{ Level float64 }
type SelectStageMsg struct{ Options []prompt.Option }
type PipelineStageMsg struct{ Stage pipeline.Stage }
type RunDoneMsg struct {
	Path   string
	Text   string
	Copied bool
}
type RunErrorMsg struct{ Text string }
type NewRunMsg struct{ Title string } // pre-filled with the retained title
type ModeLineMsg struct{ Text string }
type DeviceLineMsg struct{ Text string }
type tickMsg time.Time

// Intents flow from the TUI back to the session loop in main.
type intentKind int

const (
	intentTitleDone intentKind = iota
	intentStopRecording
	intentSelect
	intentCancel
	intentNewRun
	intentQuit
)

type Intent struct {
	Kind   intentKind
	Title  string
	Option prompt.Option
}

type tuiState int

const (
	tuiStateTitle tuiState = iota
	tuiStateRecording
	tuiStateSelect
	tuiStateRunning
	tuiStateDone
	tuiStateFailed
)

type tuiModel struct {
	state         tuiState
	frame         int
	width, height int

	title string

	recordingDuration float64
	audioLevel        float64
	peakLevel         float64
	levels            []float64 // rolling window for the waveform

	options []prompt.Option
	cursor  int

	runStage pipeline.Stage

	notePath string
	lastText string
	copied   bool
	errText  string

	modeLine   string
	deviceLine string

	intents chan<- Intent
}

var (
	tuiProgram    *tea.Program
	tuiMu         sync.Mutex
	tuiReady      = make(chan struct{})
	tuiReadyOnce  sync.Once
	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

const waveformWidth = 40

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true)
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	waveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
)

func NewTUIProgram(intents chan<- Intent) *tea.Program {
	m := tuiModel{intents: intents}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (m tuiModel) intend(it Intent) {
	select {
	case m.intents <- it:
	default:
	}
}

func (m tuiModel) Init() tea.Cmd {
	tuiReadyOnce.Do(func() { close(tuiReady) })
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case RecordingStartMsg:
		m.state = tuiStateRecording
		m.recordingDuration = 0
		m.audioLevel = 0
		m.peakLevel = 0
		m.levels = nil

	case RecordingTickMsg:
		m.recordingDuration = msg.Duration

	case AudioLevelMsg:
		if m.state == tuiStateRecording {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
			if msg.Level > m.peakLevel {
				m.peakLevel = msg.Level
			}
			m.levels = append(m.levels, m.audioLevel)
			if len(m.levels) > waveformWidth {
				m.levels = m.levels[len(m.levels)-waveformWidth:]
			}
		}

	case SelectStageMsg:
		m.state = tuiStateSelect
		m.options = msg.Options
		m.cursor = 0

	case PipelineStageMsg:
		m.state = tuiStateRunning
		m.runStage = msg.Stage

	case RunDoneMsg:
		m.state = tuiStateDone
		m.notePath = msg.Path
		m.lastText = msg.Text
		m.copied = msg.Copied
		m.title = ""

	case RunErrorMsg:
		m.state = tuiStateFailed
		m.errText = msg.Text

	case NewRunMsg:
		m.state = tuiStateTitle
		m.title = msg.Title
		m.errText = ""

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.intend(Intent{Kind: intentQuit})
		return m, tea.Quit
	}

	switch m.state {
	case tuiStateTitle:
		switch msg.Type {
		case tea.KeyEnter:
			m.intend(Intent{Kind: intentTitleDone, Title: m.title})
		case tea.KeyEsc:
			m.intend(Intent{Kind: intentQuit})
			return m, tea.Quit
		case tea.KeyBackspace:
			if len(m.title) > 0 {
				runes := []rune(m.title)
				m.title = string(runes[:len(runes)-1])
			}
		case tea.KeySpace:
			m.title += " "
		case tea.KeyRunes:
			m.title += string(msg.Runes)
		}

	case tuiStateRecording:
		switch msg.Type {
		case tea.KeyEnter, tea.KeySpace:
			m.intend(Intent{Kind: intentStopRecording})
		case tea.KeyEsc:
			// Discard the take, keep the title for the next attempt.
			m.intend(Intent{Kind: intentCancel})
		}

	case tuiStateSelect:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.options) {
				m.intend(Intent{Kind: intentSelect, Option: m.options[m.cursor]})
			}
		case "esc":
			m.intend(Intent{Kind: intentCancel})
		}

	case tuiStateRunning:
		// No cancellation once the request is issued.

	case tuiStateDone, tuiStateFailed:
		switch msg.String() {
		case "n":
			m.intend(Intent{Kind: intentNewRun, Title: m.title})
		case "q", "esc":
			m.intend(Intent{Kind: intentQuit})
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("scribe") + "\n")
	if m.modeLine != "" {
		b.WriteString(dimStyle.Render(m.modeLine) + "\n")
	}
	if m.deviceLine != "" {
		b.WriteString(dimStyle.Render(m.deviceLine) + "\n")
	}
	b.WriteString("\n")

	switch m.state {
	case tuiStateTitle:
		b.WriteString("Note title (optional):\n\n")
		b.WriteString("  " + m.title + cursorStyle.Render("█") + "\n\n")
		b.WriteString(helpStyle.Render("Enter to start recording · Esc to quit"))

	case tuiStateRecording:
		b.WriteString(recStyle.Render("● REC "+formatElapsed(m.recordingDuration)) + "\n\n")
		b.WriteString("  " + waveStyle.Render(renderWaveform(m.levels, waveformWidth)) + "\n")
		if m.recordingDuration > 1.0 && m.peakLevel < 0.02 {
			b.WriteString(warnStyle.Render("  ⚠ no voice detected") + "\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("Enter to stop · Esc to discard"))

	case tuiStateSelect:
		b.WriteString("Select transcription type:\n\n")
		for i, opt := range m.options {
			line := opt.Name
			if opt.Description != "" {
				line += dimStyle.Render("  " + opt.Description)
			}
			if i == m.cursor {
				b.WriteString(cursorStyle.Render("  ▶ ") + line + "\n")
			} else {
				b.WriteString("    " + line + "\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ to choose · Enter to transcribe · Esc to discard"))

	case tuiStateRunning:
		spinner := spinnerFrames[m.frame%len(spinnerFrames)]
		b.WriteString(fmt.Sprintf("%s %s\n", spinner, stageLabel(m.runStage)))

	case tuiStateDone:
		b.WriteString(okStyle.Render("✓ Note saved") + "\n")
		b.WriteString(dimStyle.Render("  "+m.notePath) + "\n")
		if m.copied {
			b.WriteString(okStyle.Render("  [✓ copied to clipboard]") + "\n")
		}
		b.WriteString("\n")
		wrapWidth := m.width - 4
		if wrapWidth > 76 {
			wrapWidth = 76
		}
		for _, line := range wrapText(m.lastText, wrapWidth) {
			b.WriteString("  " + textStyle.Render(line) + "\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("n for a new note · q to quit"))

	case tuiStateFailed:
		b.WriteString(errStyle.Render("✗ "+m.errText) + "\n\n")
		b.WriteString(helpStyle.Render("n to try again · q to quit"))
	}

	b.WriteString("\n\n" + helpStyle.Render("scribe "+version))
	return b.String()
}

func stageLabel(s pipeline.Stage) string {
	switch s {
	case pipeline.StageTranscribing:
		return "Transcribing audio..."
	case pipeline.StageSaving:
		return "Saving note..."
	case pipeline.StageCompleted:
		return "Done"
	default:
		return "Failed"
	}
}

// formatElapsed renders seconds as MM:SS.
func formatElapsed(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

var waveChars = []rune("▁▂▃▄▅▆▇█")

// renderWaveform maps the rolling level window onto block characters,
// right-aligned so new audio enters from the right edge.
func renderWaveform(levels []float64, width int) string {
	out := make([]rune, width)
	for i := range out {
		out[i] = ' '
	}
	if len(levels) > width {
		levels = levels[len(levels)-width:]
	}
	start := width - len(levels)
	for i, lvl := range levels {
		idx := int(lvl * 8 / 0.2) // full bar around RMS 0.2
		if idx >= len(waveChars) {
			idx = len(waveChars) - 1
		}
		out[start+i] = waveChars[idx]
	}
	return string(out)
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	// Rune-indexed so multi-byte characters never get split mid-sequence.
	runes := []rune(text)
	var lines []string
	for len(runes) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if runes[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(runes[:splitAt]))
		runes = runes[splitAt:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}
