package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentmux/agentmux/internal/domain"
)

const helpText = `Available commands:
  /help                        show this help
  /info                        show session info
  /debug                       toggle debug mode
  /new                         start a new conversation
  /switch <provider> <model>   switch the agent's model
  /tools                       show tool call history
  /history                     show the transcript`

// runCommand handles slash commands. Everything except /switch is resolved
// locally; /switch maps to the switch-model gateway call. Outcomes land in
// the transcript as system or error entries.
func (s *Session) runCommand(ctx context.Context, agent, input string) {
	parts := strings.Fields(input)
	switch parts[0] {
	case "/help":
		s.append(domain.RoleSystem, helpText)

	case "/info":
		s.append(domain.RoleSystem, s.infoText())

	case "/debug":
		s.mu.Lock()
		s.debug = !s.debug
		on := s.debug
		s.mu.Unlock()
		if on {
			s.append(domain.RoleSystem, "debug mode on")
		} else {
			s.append(domain.RoleSystem, "debug mode off")
		}

	case "/new":
		s.StartNewConversation()
		s.append(domain.RoleSystem, "started a new conversation")

	case "/switch":
		if len(parts) != 3 {
			s.append(domain.RoleError, "usage: /switch <provider> <model>")
			return
		}
		res, err := s.gw.SwitchModel(ctx, agent, parts[1], parts[2], s.ConversationID())
		if err != nil {
			s.append(domain.RoleError, errorText(err))
			return
		}
		s.append(domain.RoleSystem, res.Message)

	case "/tools":
		s.append(domain.RoleSystem, s.toolsText())

	case "/history":
		s.append(domain.RoleSystem, s.historyText())

	default:
		s.append(domain.RoleError, "unknown command: "+parts[0])
	}
}

func (s *Session) infoText() string {
	s.mu.Lock()
	agent := s.agentName
	conv := s.conversationID
	debug := s.debug
	s.mu.Unlock()

	if conv == "" {
		conv = "(none)"
	}
	state := "off"
	if debug {
		state = "on"
	}
	in, out, total, cost := s.usage.Totals()
	return fmt.Sprintf(
		"agent: %s\nconversation: %s\ndebug: %s\ntool calls: %d\ntokens: %d in / %d out / %d total\nestimated cost: $%.4f",
		agent, conv, state, s.tracker.Len(), in, out, total, cost)
}

func (s *Session) toolsText() string {
	calls := s.tracker.List()
	if len(calls) == 0 {
		return "no tool calls in this session"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "tool calls (%d):\n", len(calls))
	for i, tc := range calls {
		fmt.Fprintf(&b, "  %d. [%s] %s(%s)", i+1, tc.Status, tc.Name, string(tc.Params))
		if tc.Err != "" {
			fmt.Fprintf(&b, " error: %s", tc.Err)
		}
		if tc.DurationMS != nil {
			fmt.Fprintf(&b, " (%dms)", *tc.DurationMS)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Session) historyText() string {
	entries := s.Transcript()
	if len(entries) == 0 {
		return "transcript is empty"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "transcript (%d entries):\n", len(entries))
	for i, e := range entries {
		fmt.Fprintf(&b, "  %d. %s: %s\n", i+1, e.Role, truncate(e.Content, 100))
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate shortens s to at most limit runes, never splitting a rune.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
