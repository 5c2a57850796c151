package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grantline/assist/internal/session"
)

var chatNew bool

const chatHelp = `Commands:
  /new          start a new conversation
  /retry        retry the last question
  /suggestions  show suggested questions
  /help         show this help
  /exit         quit

Press Ctrl+C while an answer is streaming to stop it.`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the assistant. The previous
conversation for the scope is restored unless --new is given.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatNew, "new", false, "Start a new conversation instead of restoring")
}

func runChat(cmd *cobra.Command, args []string) error {
	sess, scope := newSession()
	defer sess.Close()

	renderer := NewRenderer()
	detach := renderer.Attach(sess.Bus())
	defer detach()

	ctx := cmd.Context()
	if err := sess.Activate(ctx, session.ActivateOptions{ForceNew: chatNew}); err != nil {
		return err
	}

	renderer.Banner(appConfig.BaseURL, scope)
	snap := sess.Snapshot()
	if snap.ConversationID != "" {
		fmt.Fprintf(os.Stderr, "Resumed conversation %q (%d messages)\n", snap.ConversationTitle, len(snap.Messages))
	} else {
		renderer.Suggestions(snap.SuggestedQuestions)
	}

	// Ctrl+C stops a streaming answer instead of killing the process.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		for range interrupts {
			sess.Stop()
		}
	}()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s> ", scope.Key())
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := handleChatCommand(ctx, sess, renderer, input); quit {
				return nil
			}
			continue
		}

		exchange(ctx, sess, renderer, input)
	}
}

// handleChatCommand runs one slash command, reporting whether to quit.
func handleChatCommand(ctx context.Context, sess *session.Session, renderer *Renderer, input string) bool {
	switch input {
	case "/exit", "/quit":
		return true
	case "/help":
		renderer.Help(chatHelp)
	case "/new":
		sess.StartNewConversation()
		fmt.Println("Started a new conversation.")
	case "/retry":
		renderer.AssistantPrefix()
		err := sess.RetryLastMessage(ctx)
		renderer.EndAnswer()
		if err != nil {
			renderer.ErrorLine(err.Error())
		}
	case "/suggestions":
		if err := sess.LoadSuggestions(ctx); err != nil {
			renderer.ErrorLine(err.Error())
			return false
		}
		renderer.Suggestions(sess.Snapshot().SuggestedQuestions)
	default:
		renderer.Help(fmt.Sprintf("Unknown command: %s\n%s", input, chatHelp))
	}
	return false
}

// exchange sends one question and renders the streamed answer.
func exchange(ctx context.Context, sess *session.Session, renderer *Renderer, text string) {
	renderer.AssistantPrefix()
	err := sess.Send(ctx, text)
	renderer.EndAnswer()
	if err != nil {
		renderer.ErrorLine(err.Error())
		fmt.Println("Use /retry to try again.")
		return
	}

	snap := sess.Snapshot()
	if n := len(snap.Messages); n > 0 {
		renderer.Citations(snap.Messages[n-1].Citations)
	}
	renderer.Suggestions(snap.SuggestedQuestions)
}
