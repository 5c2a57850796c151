package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/grantline/assist/internal/event"
	"github.com/grantline/assist/pkg/types"
)

// Renderer prints session activity to the terminal.
type Renderer struct{}

// NewRenderer creates a Renderer, honoring the global color flag.
func NewRenderer() *Renderer {
	if flagNoColor {
		color.NoColor = true
	}
	return &Renderer{}
}

// Attach subscribes the renderer to a session bus. The returned function
// detaches it.
func (r *Renderer) Attach(bus *event.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(event.StreamDelta, func(e event.Event) {
			if d, ok := e.Data.(event.StreamDeltaData); ok {
				fmt.Print(d.Delta)
			}
		}),
		bus.Subscribe(event.StreamProgress, func(e event.Event) {
			if d, ok := e.Data.(event.StreamProgressData); ok {
				r.Progress(d.Progress)
			}
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Banner prints the connection line.
func (r *Renderer) Banner(url string, scope types.Scope) {
	fmt.Fprintln(os.Stderr, color.New(color.FgHiBlack).Sprintf("Connected to %s (%s)", url, scope.Key()))
}

// User echoes the question being sent.
func (r *Renderer) User(text string) {
	fmt.Printf("%s %s\n", color.New(color.FgCyan, color.Bold).Sprint("you ›"), text)
}

// AssistantPrefix prints the assistant marker ahead of streamed tokens.
func (r *Renderer) AssistantPrefix() {
	fmt.Printf("%s ", color.New(color.FgGreen, color.Bold).Sprint("assistant ›"))
}

// EndAnswer terminates the streamed answer line.
func (r *Renderer) EndAnswer() {
	fmt.Println()
}

// Progress prints an advisory progress line.
func (r *Renderer) Progress(p types.Progress) {
	if p.Detail != "" {
		fmt.Fprintln(os.Stderr, color.New(color.FgHiBlack).Sprintf("… %s (%s)", p.Step, p.Detail))
		return
	}
	fmt.Fprintln(os.Stderr, color.New(color.FgHiBlack).Sprintf("… %s", p.Step))
}

// Citations prints the sources for an answer.
func (r *Renderer) Citations(citations []types.Citation) {
	for _, c := range citations {
		line := fmt.Sprintf("[%d] %s", c.Index, c.Title)
		if c.URL != "" {
			line += " — " + c.URL
		}
		fmt.Println(color.New(color.FgYellow).Sprint(line))
	}
}

// Suggestions prints suggested follow-up questions.
func (r *Renderer) Suggestions(questions []string) {
	if len(questions) == 0 {
		return
	}
	fmt.Println(color.New(color.FgHiBlack).Sprint("Try asking:"))
	for _, q := range questions {
		fmt.Println(color.New(color.FgHiBlack).Sprintf("  • %s", q))
	}
}

// ErrorLine prints a session error.
func (r *Renderer) ErrorLine(msg string) {
	fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprintf("error: %s", msg))
}

// Help prints help text.
func (r *Renderer) Help(text string) {
	fmt.Println(text)
}
