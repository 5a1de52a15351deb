package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentmux/agentmux/internal/domain"
	"github.com/agentmux/agentmux/internal/events"
	"github.com/agentmux/agentmux/internal/session"
	"github.com/agentmux/agentmux/internal/store"
	"github.com/agentmux/agentmux/internal/track"
)

var (
	promptColor    = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgGreen)
	systemColor    = color.New(color.FgBlue)
	errorColor     = color.New(color.FgRed)
	toolColor      = color.New(color.FgYellow)
	faintColor     = color.New(color.Faint)
)

func newChatCmd() *cobra.Command {
	var (
		agentName string
		message   string
		debug     bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a backend agent",
		Long:  "Starts an interactive chat session, or sends a single message with --message. Tool-call progress and usage telemetry stream in live over the push channel.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			if agentName == "" {
				agentName = cfg.Chat.DefaultAgent
			}
			if agentName == "" {
				return fmt.Errorf("no agent selected; use --agent or set chat.defaultAgent in config")
			}

			var recorder session.Recorder
			if cfg.Ledger.Enabled {
				if err := paths.EnsureDirs(); err != nil {
					return err
				}
				db, err := store.Open(paths.LedgerPath(cfg.Ledger), log)
				if err != nil {
					log.Warn().Err(err).Msg("usage ledger unavailable")
				} else {
					defer db.Close()
					recorder = store.NewLedger(db)
				}
			}

			sink := &chatSink{debug: debug || cfg.Chat.Debug}
			sess := session.New(session.Config{
				Agent:    agentName,
				Debug:    debug || cfg.Chat.Debug,
				Sink:     sink,
				Recorder: recorder,
			}, newGatewayClient(cfg), log)

			ch := events.NewChannel(events.Config{
				ServerURL:            cfg.Server.URL,
				Token:                cfg.Server.Token,
				ReconnectMaxAttempts: cfg.Channel.ReconnectMaxAttempts,
				ReconnectBaseDelay:   msecs(cfg.Channel.ReconnectBaseDelayMs),
				ReconnectMaxDelay:    msecs(cfg.Channel.ReconnectMaxDelayMs),
				KeepaliveWindow:      secs(cfg.Channel.KeepaliveWindowSecs),
			}, sess, log)
			sess.AttachChannel(ch)
			defer ch.Close()

			if message != "" {
				return runSingleMessage(cmd.Context(), sess, message)
			}
			return runInteractive(sess)
		},
	}

	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "agent to chat with")
	cmd.Flags().StringVarP(&message, "message", "m", "", "send a single message and exit")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug mode for the exchange")
	return cmd
}

func runSingleMessage(ctx context.Context, sess *session.Session, message string) error {
	if err := sess.SendMessage(ctx, message); err != nil {
		return err
	}
	printNewEntries(sess, 0)
	if id := sess.ConversationID(); id != "" {
		faintColor.Printf("conversation: %s\n", id)
	}
	return nil
}

func runInteractive(sess *session.Session) error {
	fmt.Printf("Chatting with %s. Type 'quit' to leave, /help for commands.\n", sess.AgentName())

	// Ctrl-C during a pending exchange cancels it; at the prompt it exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if sess.Awaiting() {
				sess.Kill(context.Background())
			} else {
				fmt.Println()
				os.Exit(0)
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "quit", "exit", "bye":
			if id := sess.ConversationID(); id != "" {
				faintColor.Printf("conversation saved as %s\n", id)
			}
			return nil
		case "":
			continue
		}

		before := len(sess.Transcript())
		if err := sess.SendMessage(context.Background(), line); err != nil {
			errorColor.Printf("%v\n", err)
			continue
		}
		printNewEntries(sess, before)
	}
}

// printNewEntries renders transcript entries from index on. User entries are
// skipped: the terminal already shows what was typed.
func printNewEntries(sess *session.Session, from int) {
	entries := sess.Transcript()
	if from > len(entries) {
		// The transcript was reset mid-send (/new); everything is new.
		from = 0
	}
	for _, e := range entries[from:] {
		switch e.Role {
		case domain.RoleAssistant:
			assistantColor.Printf("%s> ", sess.AgentName())
			fmt.Println(e.Content)
		case domain.RoleSystem:
			systemColor.Println(e.Content)
		case domain.RoleError:
			errorColor.Println(e.Content)
		}
	}
}

// chatSink renders live tool progress and usage telemetry.
type chatSink struct {
	debug bool
}

func (c *chatSink) ToolUpdate(tc track.ToolCall) {
	switch tc.Status {
	case track.StatusRequested:
		toolColor.Printf("  [tool] %s requested\n", tc.Name)
	case track.StatusExecuting:
		toolColor.Printf("  [tool] %s running...\n", tc.Name)
	case track.StatusCompleted:
		out := truncate(tc.Output, 80)
		toolColor.Printf("  [tool] %s done", tc.Name)
		if tc.DurationMS != nil {
			toolColor.Printf(" (%dms)", *tc.DurationMS)
		}
		if out != "" {
			toolColor.Printf(": %s", out)
		}
		fmt.Println()
	case track.StatusError:
		errorColor.Printf("  [tool] %s failed: %s\n", tc.Name, tc.Err)
	}
}

// truncate shortens s to at most limit runes, never splitting a rune.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func msecs(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func (c *chatSink) UsageUpdate(rec track.UsageRecord) {
	if !c.debug {
		return
	}
	line := fmt.Sprintf("  [usage] %s: %d in / %d out / %d total", rec.Model, rec.InputTokens, rec.OutputTokens, rec.TotalTokens)
	if rec.EstimatedCost != nil {
		line += fmt.Sprintf(" ($%.4f)", *rec.EstimatedCost)
	}
	faintColor.Println(line)
}
