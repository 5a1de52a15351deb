// Package session is the top-level conversation controller. A Session owns
// the conversation identifier, the selected agent, debug mode, and the
// send/kill/new-conversation protocol; it drives the event channel lifecycle
// and the gateway calls, and it is the only component that mutates
// session-level state.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentmux/agentmux/internal/domain"
	"github.com/agentmux/agentmux/internal/events"
	"github.com/agentmux/agentmux/internal/gateway"
	"github.com/agentmux/agentmux/internal/logging"
	"github.com/agentmux/agentmux/internal/track"
)

// User-input rejections. These never reach the gateway; callers show a hint.
var (
	ErrBusy         = errors.New("a response is already pending")
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoAgent      = errors.New("no agent selected")
)

// placeholderPrefix marks client-generated conversation ids used before the
// backend confirms or replaces them.
const placeholderPrefix = "conv_local_"

// Gateway is the synchronous transport the session depends on.
type Gateway interface {
	SendChat(ctx context.Context, agent, message, conversationID string, debug bool) (*gateway.ChatResult, error)
	SwitchModel(ctx context.Context, agent, provider, model, conversationID string) (*gateway.SwitchModelResult, error)
	Kill(ctx context.Context, conversationID string) error
}

// EventChannel is the push-channel binding the session drives.
type EventChannel interface {
	Bind(conversationID string) error
	Close()
}

// Sink receives live progress updates for rendering. All methods are called
// from the event-dispatch path; implementations must be fast.
type Sink interface {
	ToolUpdate(tc track.ToolCall)
	UsageUpdate(rec track.UsageRecord)
}

// Recorder persists usage telemetry; the session mirrors every usage record
// into it when configured.
type Recorder interface {
	RecordUsage(agent, conversationID string, rec track.UsageRecord) error
}

// Config configures a Session.
type Config struct {
	Agent    string // initially selected agent, may be ""
	Debug    bool
	Sink     Sink     // optional
	Recorder Recorder // optional
}

// Session reconciles the synchronous chat exchange and the push channel
// against one logical conversation.
type Session struct {
	gw       Gateway
	sink     Sink
	recorder Recorder
	tracker  *track.Tracker
	usage    *track.UsageLog
	log      *logging.Logger

	mu             sync.Mutex
	channel        EventChannel
	agentName      string
	conversationID string
	debug          bool
	awaiting       bool
	transcript     []domain.TranscriptEntry
}

// New creates a session. The event channel is attached separately because it
// needs the session as its event handler; see AttachChannel.
func New(cfg Config, gw Gateway, log *logging.Logger) *Session {
	return &Session{
		gw:        gw,
		sink:      cfg.Sink,
		recorder:  cfg.Recorder,
		tracker:   track.NewTracker(log),
		usage:     track.NewUsageLog(),
		log:       log.Sub("session"),
		agentName: cfg.Agent,
		debug:     cfg.Debug,
	}
}

// AttachChannel wires the push channel. Must be called before SendMessage.
func (s *Session) AttachChannel(ch EventChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = ch
}

// HandleEvent implements events.Handler: decoded push-channel events are
// folded into the tracker or the usage log, then forwarded to the sink.
func (s *Session) HandleEvent(ev events.Event) {
	if ev.Type == events.TypeLLMUsage {
		rec := track.DecodeUsage(ev)
		s.usage.Append(rec)
		if s.recorder != nil {
			if err := s.recorder.RecordUsage(s.AgentName(), s.ConversationID(), rec); err != nil {
				s.log.Warn().Err(err).Msg("recording usage to ledger failed")
			}
		}
		if s.sink != nil {
			s.sink.UsageUpdate(rec)
		}
		return
	}

	s.tracker.Apply(ev)
	if s.sink != nil {
		if tc, ok := s.tracker.Get(ev.ToolID); ok {
			s.sink.ToolUpdate(tc)
		}
	}
}

// SelectAgent switches the session to a different agent, clearing all
// conversation state. Selecting the already-selected agent is a no-op.
func (s *Session) SelectAgent(name string) {
	s.mu.Lock()
	if s.agentName == name {
		s.mu.Unlock()
		return
	}
	s.agentName = name
	s.conversationID = ""
	s.transcript = nil
	s.mu.Unlock()

	s.tracker.Reset()
	s.usage.Reset()
	s.log.Info().Str("agent", name).Msg("agent selected")
}

// SendMessage runs one exchange: it binds the push channel to the (possibly
// just-generated placeholder) conversation id before issuing the gateway
// call, so no tool-progress events are lost to a race with channel setup.
// Gateway failures are absorbed into the transcript; only user-input
// rejections (ErrBusy, ErrEmptyMessage, ErrNoAgent) are returned.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.awaiting {
		s.mu.Unlock()
		return ErrBusy
	}
	if text == "" {
		s.mu.Unlock()
		return ErrEmptyMessage
	}
	if s.agentName == "" {
		s.mu.Unlock()
		return ErrNoAgent
	}

	if strings.HasPrefix(text, "/") {
		agent := s.agentName
		s.mu.Unlock()
		s.runCommand(ctx, agent, text)
		return nil
	}

	if s.conversationID == "" {
		s.conversationID = placeholderPrefix + uuid.NewString()
		s.log.Debug().Str("conversationId", s.conversationID).Msg("generated placeholder conversation id")
	}
	localID := s.conversationID
	agent := s.agentName
	debug := s.debug
	channel := s.channel
	s.awaiting = true
	s.appendLocked(domain.RoleUser, text)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.awaiting = false
		s.mu.Unlock()
	}()

	// Channel first: progress events may start before the chat call returns.
	if channel != nil {
		if err := channel.Bind(localID); err != nil {
			s.log.Warn().Err(err).Msg("event channel bind failed, tool progress unavailable")
		}
	}

	res, err := s.gw.SendChat(ctx, agent, text, localID, debug)
	if err != nil {
		s.append(domain.RoleError, errorText(err))
		return nil
	}

	s.mu.Lock()
	if res.ConversationID != "" && s.conversationID == localID && res.ConversationID != localID {
		// The backend id is authoritative; the placeholder only bridged the
		// gap until now. Tracker and usage state carry over: events received
		// under the placeholder belong to this same exchange.
		s.conversationID = res.ConversationID
		rebind := s.awaiting
		s.mu.Unlock()
		s.log.Info().
			Str("placeholder", localID).
			Str("conversationId", res.ConversationID).
			Msg("backend assigned conversation id")
		if rebind && channel != nil {
			if err := channel.Bind(res.ConversationID); err != nil {
				s.log.Warn().Err(err).Msg("rebinding event channel failed")
			}
		}
	} else {
		s.mu.Unlock()
	}

	// A result that arrives after Kill is still appended; awaiting stays
	// false because Kill already cleared it and the deferred reset is a no-op.
	s.append(domain.RoleAssistant, res.Response)
	return nil
}

// StartNewConversation clears the conversation id, tracker, usage records,
// and transcript. The channel is left bound; the next SendMessage rebinds.
func (s *Session) StartNewConversation() {
	s.mu.Lock()
	s.conversationID = ""
	s.transcript = nil
	s.mu.Unlock()

	s.tracker.Reset()
	s.usage.Reset()
	s.log.Info().Msg("new conversation started")
}

// Kill requests cancellation of the in-flight exchange. It is a no-op unless
// a response is pending for a known conversation. Local state is reset
// unconditionally, independent of backend confirmation; the pending chat
// call may still resolve later and its result is absorbed harmlessly.
func (s *Session) Kill(ctx context.Context) {
	s.mu.Lock()
	if !s.awaiting || s.conversationID == "" {
		s.mu.Unlock()
		return
	}
	id := s.conversationID
	channel := s.channel
	s.mu.Unlock()

	err := s.gw.Kill(ctx, id)

	s.mu.Lock()
	s.awaiting = false
	s.mu.Unlock()
	if channel != nil {
		channel.Close()
	}

	if err != nil {
		s.log.Warn().Err(err).Str("conversationId", id).Msg("kill request failed")
		s.append(domain.RoleSystem, "cancellation requested, backend reported: "+errorText(err))
		return
	}
	s.append(domain.RoleSystem, "response cancelled")
}

// AgentName returns the selected agent, or "".
func (s *Session) AgentName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentName
}

// ConversationID returns the current conversation id, or "".
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Debug reports whether debug mode is on.
func (s *Session) Debug() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debug
}

// Awaiting reports whether a chat exchange is pending.
func (s *Session) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

// Transcript returns a copy of the transcript.
func (s *Session) Transcript() []domain.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Tracker exposes the tool-call tracker for rendering.
func (s *Session) Tracker() *track.Tracker { return s.tracker }

// Usage exposes the usage log for rendering.
func (s *Session) Usage() *track.UsageLog { return s.usage }

func (s *Session) append(role domain.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(role, content)
}

func (s *Session) appendLocked(role domain.Role, content string) {
	s.transcript = append(s.transcript, domain.TranscriptEntry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// errorText renders gateway failures for the transcript, preferring the
// backend's own detail.
func errorText(err error) string {
	var rerr *gateway.RemoteError
	if errors.As(err, &rerr) {
		return rerr.Detail
	}
	return fmt.Sprintf("request failed: %v", err)
}
