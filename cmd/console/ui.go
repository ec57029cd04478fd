package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/maduarte95/arena-test/pkg/arena"
	"github.com/maduarte95/arena-test/pkg/chat"
)

const PlaceHolderText = "Describe your action..."

type logRole int

const (
	logUser logRole = iota
	logGameMaster
	logPlayerB
	logNarrator
	logError
)

type logEntry struct {
	role logRole
	text string
}

// Stream messages delivered from the SSE reader goroutine.
type turnChunkMsg struct{ text string }
type turnResultMsg struct{ result *chat.TurnResult }
type turnErrorMsg struct{ err error }
type streamDoneMsg struct{}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	gameState    *arena.GameState
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	loading      bool

	log       []logEntry
	streaming strings.Builder
	streamCh  chan tea.Msg

	showQuitModal     bool
	showGameOverModal bool
	winner            string
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	gmStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	playerBStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")) // purple

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	boardAStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	boardBStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, gs *arena.GameState) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(30, 20)

	return ConsoleUI{
		config:       cfg,
		client:       client,
		gameState:    gs,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

// listenStream waits for the next message from the SSE reader.
func listenStream(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return streamDoneMsg{}
		}
		return msg
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showGameOverModal {
		return m.updateGameOverModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			return m.sendTurn(input)
		}

	case turnChunkMsg:
		m.streaming.WriteString(msg.text)
		m.writeChatContent()
		return m, listenStream(m.streamCh)

	case turnResultMsg:
		m.loading = false
		m.streaming.Reset()
		m.applyResult(msg.result)
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())
		if msg.result.GameOver {
			m.showGameOverModal = true
			m.winner = msg.result.Winner
		}
		return m, listenStream(m.streamCh)

	case turnErrorMsg:
		m.loading = false
		m.streaming.Reset()
		m.log = append(m.log, logEntry{logError, msg.err.Error()})
		m.writeChatContent()
		return m, listenStream(m.streamCh)

	case streamDoneMsg:
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.65) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) sendTurn(input string) (tea.Model, tea.Cmd) {
	m.textarea.Reset()
	m.loading = true
	m.streaming.Reset()
	m.log = append(m.log, logEntry{logUser, input})
	m.writeChatContent()

	ch := make(chan tea.Msg, 16)
	m.streamCh = ch
	sessionID := m.gameState.ID
	go streamTurn(m.client, m.config.APIBaseURL, sessionID, input, ch)
	return m, listenStream(ch)
}

// applyResult folds a completed turn into the local log and state.
func (m *ConsoleUI) applyResult(result *chat.TurnResult) {
	m.log = append(m.log, logEntry{logGameMaster, result.Narrative})
	if result.PlayerBNarrative != "" {
		m.log = append(m.log, logEntry{logPlayerB, result.PlayerBNarrative})
	}
	if result.Summary != "" {
		m.log = append(m.log, logEntry{logNarrator, result.Summary})
	}
	if result.GameState != nil {
		m.gameState = result.GameState
	}
}

func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6
	if chatWidth < 10 {
		chatWidth = 10
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("AI ARENA") + "\n\n")
	content.WriteString("Describe your actions to battle Player B.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	for _, entry := range m.log {
		content.WriteString(renderLogEntry(entry, chatWidth) + "\n\n")
	}

	if m.loading {
		if m.streaming.Len() > 0 {
			content.WriteString(renderLogEntry(logEntry{logGameMaster, m.streaming.String()}, chatWidth) + "\n\n")
		} else {
			content.WriteString(promptStyle.Render("The Game Master considers your move...") + "\n\n")
		}
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func renderLogEntry(entry logEntry, width int) string {
	var prefix, body string
	switch entry.role {
	case logUser:
		prefix = userStyle.Render("You: ")
		body = entry.text
	case logGameMaster:
		prefix = gmStyle.Render("Game Master: ")
		body = entry.text
	case logPlayerB:
		prefix = playerBStyle.Render("Player B: ")
		body = entry.text
	case logNarrator:
		prefix = narratorStyle.Render("Narrator: ")
		body = narratorStyle.Render(entry.text)
	case logError:
		prefix = errorStyle.Render("Error: ")
		body = entry.text
	}
	return prefix + wordwrap.String(body, width-10)
}

func (m *ConsoleUI) writeMetadata() string {
	gs := m.gameState
	var content strings.Builder
	content.WriteString(titleStyle.Render("ARENA") + "\n\n")
	content.WriteString(renderBoard(gs) + "\n")

	content.WriteString(renderHPBar("A", gs.PlayerA.HP, boardAStyle) + "\n")
	content.WriteString(renderHPBar("B", gs.PlayerB.HP, boardBStyle) + "\n\n")

	content.WriteString(fmt.Sprintf("Turn: %d\n", gs.TurnNumber))
	content.WriteString(fmt.Sprintf("Cycle: %d of %d\n", gs.Cycles+1, arena.MaxCycles))
	content.WriteString(fmt.Sprintf("Until Player B: %d turns\n\n", arena.HumanTurnsPerCycle-gs.HumanTurns))

	content.WriteString("Session:\n")
	content.WriteString(gs.ID.String()[:8] + "...\n\n")

	if len(gs.PublicNarrative) > 0 {
		content.WriteString("Last summary:\n")
		last := gs.PublicNarrative[len(gs.PublicNarrative)-1]
		content.WriteString(narratorStyle.Render(wordwrap.String(last, m.metaViewport.Width-2)) + "\n\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")

	return content.String()
}

// renderBoard draws the grid with both combatants. A shared cell is
// shown as a clash.
func renderBoard(gs *arena.GameState) string {
	posA := gs.PlayerA.Position
	posB := gs.PlayerB.Position

	var b strings.Builder
	for y := 0; y < arena.BoardSize; y++ {
		for x := 0; x < arena.BoardSize; x++ {
			switch {
			case posA.X() == x && posA.Y() == y && posB.X() == x && posB.Y() == y:
				b.WriteString(errorStyle.Render("X"))
			case posA.X() == x && posA.Y() == y:
				b.WriteString(boardAStyle.Render("A"))
			case posB.X() == x && posB.Y() == y:
				b.WriteString(boardBStyle.Render("B"))
			default:
				b.WriteString(separatorStyle.Render("·"))
			}
			if x < arena.BoardSize-1 {
				b.WriteString(" ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderHPBar(label string, hp int, style lipgloss.Style) string {
	const segments = 10
	filled := hp * segments / arena.StartingHP
	if filled > segments {
		filled = segments
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", segments-filled)
	return fmt.Sprintf("%s %s %d HP", style.Render(label), style.Render(bar), hp)
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))

	switch cmd {
	case "/help":
		helpText := `
Commands:
• /help - Show this help
• Ctrl+C - Quit game

How to play:
• Describe your action and press Enter
• The Game Master adjudicates and narrates the outcome
• Every 5th turn, Player B makes its own move
• Reduce Player B to 0 HP to win; after 3 cycles the
  higher HP wins
`
		currentContent := m.chatViewport.View()
		m.chatViewport.SetContent(currentContent + titleStyle.Render("Help:") + helpText + "\n")
		m.chatViewport.GotoBottom()
	}

	m.textarea.Reset()
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) updateGameOverModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "q", "Q":
				return m, tea.Quit
			case "v", "V":
				// Dismiss the modal to review the final board.
				m.showGameOverModal = false
				return m, nil
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave the arena?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderGameOverModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Game Over"))
	content.WriteString("\n\n")
	switch m.winner {
	case "Draw":
		content.WriteString("The battle ends in a draw.")
	case "Player A":
		content.WriteString("Victory! You have defeated Player B.")
	default:
		content.WriteString("Defeat. " + m.winner + " wins the arena.")
	}
	content.WriteString("\n\n")
	content.WriteString(fmt.Sprintf("Final HP: You %d, Player B %d",
		m.gameState.PlayerA.HP, m.gameState.PlayerB.HP))
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Q to quit, V to view the final board"))

	modal := modalStyle.Width(54).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showGameOverModal {
		return m.renderGameOverModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.65) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
