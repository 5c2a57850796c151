package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grantline/assist/internal/session"
)

var (
	askNew          bool
	askConversation string
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask a one-shot question",
	Long: `Ask a single question and print the streamed answer with citations.

Examples:
  assist ask "What grants are closing soon?"
  assist ask --scope grant/g1 "When is the next reporting deadline?"
  assist ask --new "Start over with a fresh conversation"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askNew, "new", false, "Start a new conversation instead of continuing")
	askCmd.Flags().StringVar(&askConversation, "conversation", "", "Continue a specific conversation id")
}

func runAsk(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("question required. Usage: assist ask \"your question\"")
	}

	sess, _ := newSession()
	defer sess.Close()

	renderer := NewRenderer()
	detach := renderer.Attach(sess.Bus())
	defer detach()

	ctx := cmd.Context()
	if err := sess.Activate(ctx, session.ActivateOptions{
		ForceNew:       askNew,
		ConversationID: askConversation,
	}); err != nil {
		return err
	}

	renderer.AssistantPrefix()
	err := sess.Send(ctx, text)
	renderer.EndAnswer()
	if err != nil {
		return err
	}

	snap := sess.Snapshot()
	if n := len(snap.Messages); n > 0 {
		renderer.Citations(snap.Messages[n-1].Citations)
	}
	return nil
}
