package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Results go to Stdout; messages, prompts and the spinner go to Stderr, so
// `beodata lines 1 11 --json > out.json` stays clean.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Logger is the package-level structured logger. It is usable before Init.
var Logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

var (
	headerStyle  lipgloss.Style
	brandStyle   lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	dimStyle     lipgloss.Style
	boldStyle    lipgloss.Style
	promptStyle  lipgloss.Style
	accentStyle  lipgloss.Style
	oldEnglish   lipgloss.Style
	modern       lipgloss.Style
)

// Init sets up the color profile, styles and logger. Call it once at startup.
func Init(noColorFlag bool) {
	noColor := noColorFlag || os.Getenv("NO_COLOR") != ""

	// Pre-set dark background to prevent termenv OSC query that leaks ^[[I focus events
	lipgloss.SetHasDarkBackground(true)
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	} else {
		lipgloss.SetColorProfile(termenv.EnvColorProfile())
	}

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	brandStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("178"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle = lipgloss.NewStyle().Faint(true)
	boldStyle = lipgloss.NewStyle().Bold(true)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	oldEnglish = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	modern = lipgloss.NewStyle().Italic(true)

	Logger = log.NewWithOptions(Stderr, log.Options{ReportTimestamp: false})
	if noColor {
		Logger.SetStyles(log.DefaultStyles())
	}
}

func Success(msg string) { fmt.Fprintf(Stderr, "%s %s\n", successStyle.Render("✓"), msg) }
func Warning(msg string) { fmt.Fprintf(Stderr, "%s %s\n", warningStyle.Render("⚠"), msg) }
func Error(msg string)   { fmt.Fprintf(Stderr, "%s %s\n", errorStyle.Render("✗"), msg) }

// EmptyState prints a dimmed note for an empty result.
func EmptyState(msg string) {
	fmt.Fprintf(Stderr, "  %s\n", dimStyle.Render(msg))
}

// SectionHeader prints a divider with a label.
func SectionHeader(label string) {
	fmt.Fprintf(Stderr, "\n%s\n\n", headerStyle.Render(fmt.Sprintf("── %s ──", label)))
}

// Field is one labelled value of a Fields block.
type Field struct {
	Key   string
	Value string
}

// Fields prints labelled values with the keys padded to a common width.
func Fields(fields ...Field) {
	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.Key))
	}
	for _, f := range fields {
		pad := strings.Repeat(" ", width-lipgloss.Width(f.Key))
		fmt.Fprintf(Stderr, "  %s%s  %s\n", boldStyle.Render(f.Key), pad, f.Value)
	}
}

// Table prints rows under bold headers on Stdout. Columns are padded by
// display width, so styled cells line up.
func Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	measure := func(cells []string) {
		for i := 0; i < len(cells) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(cells[i]))
		}
	}
	measure(headers)
	for _, r := range rows {
		measure(r)
	}

	var b strings.Builder
	writeRow := func(cells []string, style *lipgloss.Style) {
		n := min(len(cells), len(widths))
		for i := 0; i < n; i++ {
			c := cells[i]
			pad := widths[i] - lipgloss.Width(c)
			if style != nil {
				c = style.Render(c)
			}
			b.WriteString(c)
			if i < n-1 {
				b.WriteString(strings.Repeat(" ", pad+2))
			}
		}
		b.WriteByte('\n')
	}
	writeRow(headers, &boldStyle)
	for _, r := range rows {
		writeRow(r, nil)
	}
	fmt.Fprint(Stdout, b.String())
}

// Verse is one numbered line of a facing-text listing.
type Verse struct {
	Number        int
	OldEnglish    string
	ModernEnglish string
	Title         bool
	Absent        bool
}

// Bilingual prints verses as a facing-text table: Old English beside its
// translation. Title lines are bold and absent lines show a placeholder.
func Bilingual(verses []Verse) {
	rows := make([][]string, len(verses))
	for i, v := range verses {
		n := strconv.Itoa(v.Number)
		switch {
		case v.Absent:
			rows[i] = []string{dimStyle.Render(n), dimStyle.Render("(absent)"), ""}
		case v.Title:
			rows[i] = []string{n, boldStyle.Render(v.OldEnglish), boldStyle.Render(v.ModernEnglish)}
		default:
			rows[i] = []string{n, oldEnglish.Render(v.OldEnglish), modern.Render(v.ModernEnglish)}
		}
	}
	Table([]string{"LINE", "OLD ENGLISH", "MODERN ENGLISH"}, rows)
}

// CommandBanner renders a small branded banner for a command.
func CommandBanner(command string, subtitle string) {
	content := brandStyle.Render("B · E · O · D · A · T · A") + "\n" +
		accentStyle.Render(fmt.Sprintf("─── %s ───", strings.ToUpper(command)))
	if subtitle != "" {
		content += "\n" + dimStyle.Render(subtitle)
	}
	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("178")).
		Padding(0, 1).
		Render(content)
	fmt.Fprintf(Stderr, "\n%s\n\n", box)
}

// confirmModel is a yes/no prompt. choice 0 is yes.
type confirmModel struct {
	prompt   string
	choice   int
	accepted bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.accepted = true
	case "n", "N", "ctrl+c", "esc":
		m.accepted = false
	case "enter", " ":
		m.accepted = m.choice == 0
	case "left", "h":
		m.choice = 0
		return m, nil
	case "right", "l":
		m.choice = 1
		return m, nil
	default:
		return m, nil
	}
	return m, tea.Quit
}

func (m confirmModel) View() string {
	opts := [2]string{"Yes", "No"}
	var b strings.Builder
	b.WriteString(promptStyle.Render(m.prompt) + "\n\n ")
	for i, o := range opts {
		switch {
		case i != m.choice:
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %-4s", o)))
		case i == 0:
			b.WriteString(successStyle.Render(fmt.Sprintf("▸ %-4s", o)))
		default:
			b.WriteString(errorStyle.Render(fmt.Sprintf("▸ %-4s", o)))
		}
		b.WriteString(" ")
	}
	b.WriteString("\n\n" + dimStyle.Render("  ←/→ select · enter confirm · y/n"))
	return b.String()
}

// Confirm asks a yes/no question on the terminal.
func Confirm(prompt string) (bool, error) {
	p := tea.NewProgram(confirmModel{prompt: prompt}, tea.WithOutput(Stderr))
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	fmt.Fprintln(Stderr)
	return result.(confirmModel).accepted, nil
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message on Stderr while corpus construction or a fetch
// runs. Stop is safe to call more than once.
type Spinner struct {
	msg  string
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewSpinner(msg string) *Spinner {
	s := &Spinner{msg: msg, stop: make(chan struct{})}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Spinner) draw(i int) {
	fmt.Fprintf(Stderr, "\r%s %s", accentStyle.Render(spinnerFrames[i%len(spinnerFrames)]), dimStyle.Render(s.msg))
}

func (s *Spinner) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	// First frame immediately, so a short run still shows something.
	s.draw(0)
	for i := 1; ; i++ {
		select {
		case <-s.stop:
			fmt.Fprint(Stderr, "\r\033[K")
			return
		case <-ticker.C:
			s.draw(i)
		}
	}
}

// Stop halts the spinner and clears its line.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}
