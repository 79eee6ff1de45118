package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gonzalo-munillag/RPI-Chatbot/contacts"
	"github.com/gonzalo-munillag/RPI-Chatbot/guard"
	"github.com/gonzalo-munillag/RPI-Chatbot/history"
	"github.com/gonzalo-munillag/RPI-Chatbot/internal/bus"
	"github.com/gonzalo-munillag/RPI-Chatbot/llm"
)

type fakeAdapter struct {
	mu      sync.Mutex
	replies []string
	events  chan bus.InboundMessage
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{events: make(chan bus.InboundMessage, 8)}
}

func (a *fakeAdapter) Events() <-chan bus.InboundMessage { return a.events }

func (a *fakeAdapter) Reply(_ context.Context, _ string, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.replies = append(a.replies, text)
	return nil
}

func (a *fakeAdapter) Typing(context.Context, string) error { return nil }

func (a *fakeAdapter) sentReplies() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.replies...)
}

type fakeLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	result   llm.Result
	err      error
}

func (f *fakeLLM) Chat(_ context.Context, req llm.Request) (llm.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func (f *fakeLLM) calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

type fakeSpeaker struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return time.Second, f.err
}

func newTestRuntime(t *testing.T, adapter *fakeAdapter, model llm.Client, speaker Speaker) *Runtime {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gate := guard.NewRateGate(guard.Config{MinInterval: 2 * time.Second})
	gate.Now = func() time.Time { return now }
	rt, err := NewRuntime(Dependencies{
		Logger:  logger,
		Adapter: adapter,
		LLM:     model,
		Speech:  speaker,
		Resolver: contacts.NewResolver(contacts.ResolverOptions{
			Operators: []string{"49555"},
			Logger:    logger,
		}),
		History: history.NewStore(history.Options{Logger: logger}),
		Rate:    gate,
	}, Options{
		TriggerWord: "Prometheus",
		SpeakWord:   "speak",
		BotName:     "Prometheus",
		Now:         func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	return rt
}

func groupMessage(text string) bus.InboundMessage {
	return bus.InboundMessage{
		ID:              "m1",
		Channel:         bus.ChannelWhatsApp,
		ConversationKey: "wa:12036304@g.us",
		ParticipantKey:  "wa:49555@s.whatsapp.net",
		Group:           true,
		GroupName:       "Hausprojekt",
		SenderName:      "Gonzalo",
		Kind:            bus.KindText,
		Text:            text,
		SentAt:          time.Date(2025, 6, 1, 11, 59, 0, 0, time.UTC),
	}
}

func TestProcess_GroupTriggerProducesReply(t *testing.T) {
	adapter := newFakeAdapter()
	model := &fakeLLM{result: llm.Result{Text: "It is 4.", Model: "llama3"}}
	rt := newTestRuntime(t, adapter, model, nil)

	rt.process(context.Background(), groupMessage("Prometheus what is 2+2?"))

	calls := model.calls()
	if len(calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(calls))
	}
	if calls[0].Message != "what is 2+2?" {
		t.Fatalf("prompt = %q, want bare question with no context block", calls[0].Message)
	}
	if calls[0].Temperature != 0.7 || calls[0].MaxTokens != 500 {
		t.Fatalf("request knobs = (%v, %d), want (0.7, 500)", calls[0].Temperature, calls[0].MaxTokens)
	}
	replies := adapter.sentReplies()
	if len(replies) != 1 || replies[0] != "It is 4." {
		t.Fatalf("replies = %v, want the model text", replies)
	}

	entries := rt.history.Get("wa:12036304@g.us")
	if len(entries) != 2 {
		t.Fatalf("stored entries = %d, want question plus reply", len(entries))
	}
	if !entries[1].Generated || entries[1].Sender != "Prometheus" {
		t.Fatalf("second entry = %+v, want generated bot reply", entries[1])
	}
}

func TestProcess_ContextRendersPriorMessages(t *testing.T) {
	adapter := newFakeAdapter()
	model := &fakeLLM{result: llm.Result{Text: "Rain later."}}
	rt := newTestRuntime(t, adapter, model, nil)

	other := groupMessage("anyone up for a hike tomorrow?")
	other.ParticipantKey = "wa:49111@s.whatsapp.net"
	other.SenderName = "Alice"
	rt.process(context.Background(), other)

	rt.process(context.Background(), groupMessage("Prometheus what's the weather?"))

	calls := model.calls()
	if len(calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(calls))
	}
	if !strings.Contains(calls[0].Message, "Alice: anyone up for a hike tomorrow?") {
		t.Fatalf("prompt missing bystander context:\n%s", calls[0].Message)
	}
	if strings.Contains(calls[0].Message, "Prometheus what's the weather?") {
		t.Fatalf("prompt leaked the trigger message:\n%s", calls[0].Message)
	}
	if !strings.Contains(calls[0].Message, "what's the weather?") {
		t.Fatalf("prompt missing the question:\n%s", calls[0].Message)
	}
}

func TestProcess_UnauthorizedIsSilentButStored(t *testing.T) {
	adapter := newFakeAdapter()
	model := &fakeLLM{}
	rt := newTestRuntime(t, adapter, model, nil)

	msg := groupMessage("Prometheus tell me a secret")
	msg.ParticipantKey = "wa:49999@s.whatsapp.net"
	msg.SenderName = "Mallory"
	rt.process(context.Background(), msg)

	if calls := model.calls(); len(calls) != 0 {
		t.Fatalf("model calls = %d, want 0", len(calls))
	}
	if replies := adapter.sentReplies(); len(replies) != 0 {
		t.Fatalf("replies = %v, want none", replies)
	}
	if entries := rt.history.Get("wa:12036304@g.us"); len(entries) != 1 {
		t.Fatalf("stored entries = %d, want the group message recorded", len(entries))
	}
}

func TestProcess_DebugDumpSkipsModel(t *testing.T) {
	adapter := newFakeAdapter()
	model := &fakeLLM{}
	rt := newTestRuntime(t, adapter, model, nil)

	rt.process(context.Background(), groupMessage("Prometheus debug context"))

	if calls := model.calls(); len(calls) != 0 {
		t.Fatalf("model calls = %d, want 0", len(calls))
	}
	replies := adapter.sentReplies()
	if len(replies) != 1 || !strings.Contains(replies[0], "Context for wa:12036304@g.us") {
		t.Fatalf("replies = %v, want a context dump", replies)
	}
}

func TestProcess_ClearContextEmptiesHistory(t *testing.T) {
	adapter := newFakeAdapter()
	model := &fakeLLM{result: llm.Result{Text: "ok"}}
	rt := newTestRuntime(t, adapter, model, nil)

	rt.process(context.Background(), groupMessage("Prometheus hello"))
	rt.process(context.Background(), groupMessage("Prometheus clear context"))

	if entries := rt.history.Get("wa:12036304@g.us"); len(entries) != 0 {
		t.Fatalf("stored entries = %d after clear, want 0", len(entries))
	}
	replies := adapter.sentReplies()
	if len(replies) != 2 || replies[1] != "Conversation history cleared." {
		t.Fatalf("replies = %v, want clear confirmation last", replies)
	}
}

func TestProcess_RateLimitedSecondRequest(t *testing.T) {
	adapter := newFakeAdapter()
	model := &fakeLLM{result: llm.Result{Text: "first"}}
	rt := newTestRuntime(t, adapter, model, nil)

	rt.process(context.Background(), groupMessage("Prometheus one"))
	rt.process(context.Background(), groupMessage("Prometheus two"))

	if calls := model.calls(); len(calls) != 1 {
		t.Fatalf("model calls = %d, want only the first admitted", len(calls))
	}
	replies := adapter.sentReplies()
	if len(replies) != 2 {
		t.Fatalf("replies = %v, want model reply plus rate notice", replies)
	}
	want := "You're sending messages too fast. Please wait 2 seconds."
	if replies[1] != want {
		t.Fatalf("rate reply = %q, want %q", replies[1], want)
	}
}

func TestProcess_SpeakInvokesVoiceBackend(t *testing.T) {
	adapter := newFakeAdapter()
	model := &fakeLLM{result: llm.Result{Text: "Good morning."}}
	speaker := &fakeSpeaker{}
	rt := newTestRuntime(t, adapter, model, speaker)

	rt.process(context.Background(), groupMessage("Prometheus speak good morning"))

	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	if len(speaker.texts) != 1 || speaker.texts[0] != "Good morning." {
		t.Fatalf("spoken texts = %v, want the reply text", speaker.texts)
	}
}

func TestProcess_SpeechFailureDoesNotDisturbReply(t *testing.T) {
	adapter := newFakeAdapter()
	model := &fakeLLM{result: llm.Result{Text: "still delivered"}}
	speaker := &fakeSpeaker{err: errors.New("audio device busy")}
	rt := newTestRuntime(t, adapter, model, speaker)

	rt.process(context.Background(), groupMessage("Prometheus speak hi"))

	replies := adapter.sentReplies()
	if len(replies) != 1 || replies[0] != "still delivered" {
		t.Fatalf("replies = %v, want the text reply intact", replies)
	}
}

func TestErrorReply(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", context.DeadlineExceeded, replyTimeout},
		{"status with detail", &llm.StatusError{StatusCode: 503, Detail: "model loading"}, fmt.Sprintf(replyStatus, "model loading")},
		{"status without detail", &llm.StatusError{StatusCode: 500}, fmt.Sprintf(replyStatus, "status 500")},
		{"transport", errors.New("connection refused"), replyTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorReply(tc.err); got != tc.want {
				t.Fatalf("errorReply(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestProcess_ModelFailureSendsApology(t *testing.T) {
	adapter := newFakeAdapter()
	model := &fakeLLM{err: context.DeadlineExceeded}
	rt := newTestRuntime(t, adapter, model, nil)

	rt.process(context.Background(), groupMessage("Prometheus hello"))

	replies := adapter.sentReplies()
	if len(replies) != 1 || replies[0] != replyTimeout {
		t.Fatalf("replies = %v, want the timeout apology", replies)
	}
	entries := rt.history.Get("wa:12036304@g.us")
	for _, e := range entries {
		if e.Generated {
			t.Fatalf("found generated entry %+v after failed call", e)
		}
	}
}
