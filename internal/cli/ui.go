package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mCRL2org/ltsgraph/pkg/pipeline"
)

// Terminal palette (ANSI 256).
var (
	colorCyan  = lipgloss.Color("37")
	colorGreen = lipgloss.Color("71")
	colorAmber = lipgloss.Color("214")
	colorRed   = lipgloss.Color("167")
	colorBlue  = lipgloss.Color("75")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

// Shared styles.
var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleLink    = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning = lipgloss.NewStyle().Foreground(colorAmber)
)

var (
	styleSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// A mark prefixes a status line.
type mark struct {
	icon  string
	style lipgloss.Style
}

var (
	markSuccess = mark{"✓", lipgloss.NewStyle().Foreground(colorGreen)}
	markError   = mark{"✗", lipgloss.NewStyle().Foreground(colorRed)}
	markWarning = mark{"!", lipgloss.NewStyle().Foreground(colorAmber)}
	markInfo    = mark{"›", lipgloss.NewStyle().Foreground(colorGray)}
)

func (m mark) println(msg string) {
	fmt.Println(m.style.Render(m.icon) + " " + msg)
}

func printSuccess(format string, args ...any) { markSuccess.println(fmt.Sprintf(format, args...)) }
func printError(format string, args ...any)   { markError.println(fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { markInfo.println(fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	markWarning.println(StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written output path.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render("→") + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printStats prints model size and cache status on one dim line, e.g.
// "42 states · 97 transitions · cached".
func printStats(states, transitions int, cached bool) {
	parts := []string{
		fmt.Sprintf("%d states", states),
		fmt.Sprintf("%d transitions", transitions),
	}
	status := StyleDim.Render("fresh")
	if cached {
		status = StyleSuccess.Render("cached")
	}
	for i, p := range parts {
		parts[i] = StyleDim.Render(p)
	}
	fmt.Println("  " + strings.Join(append(parts, status), StyleDim.Render(" · ")))
}

// statsTable renders a pipeline result as a two-column table.
func statsTable(res pipeline.Result) string {
	ms := func(d time.Duration) string { return d.Round(time.Millisecond).String() }
	cached := "no"
	if res.CacheInfo.LayoutHit {
		cached = "yes"
	}
	rows := [][]string{
		{"states", fmt.Sprint(res.Stats.States)},
		{"transitions", fmt.Sprint(res.Stats.Transitions)},
		{"iterations", fmt.Sprint(res.Stats.Iterations)},
		{"stable", fmt.Sprint(res.Layout.Stable)},
		{"load", ms(res.Stats.LoadTime)},
		{"layout", ms(res.Stats.LayoutTime)},
		{"render", ms(res.Stats.RenderTime)},
		{"cached", cached},
	}

	key := lipgloss.NewStyle().Foreground(colorGray).PaddingRight(1)
	value := lipgloss.NewStyle().Foreground(colorWhite).PaddingLeft(1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return key
			}
			return value
		}).
		Render()
}
