package chat

import (
	"strings"
	"testing"
)

func TestEscapedMarkerRoutesAsText(t *testing.T) {
	r := NewRegistry()
	r.Connect(1, "alice")
	r.Connect(2, "bob")
	r.PullPending(1)
	r.PullPending(2)

	if consumed := r.Broadcast(1, "//hello"); consumed {
		t.Fatal("escaped marker consumed as command")
	}

	msgs := r.PullPending(2)
	if len(msgs) != 1 || msgs[0].Text != "/hello" {
		t.Fatalf("expected single /hello, got %v", msgs)
	}
	if own := r.PullPending(1); countMode(own, ModeCommandResult) != 0 {
		t.Fatalf("escaped marker produced a command result: %v", own)
	}
}

func TestNickCommandRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.Connect(1, "Alice")
	r.PullPending(1)

	if consumed := r.Broadcast(1, "/nick Bob"); !consumed {
		t.Fatal("command not consumed")
	}

	if id, ok := r.FindConnection("Bob"); !ok || id != 1 {
		t.Fatalf("Bob not indexed: %d, %v", id, ok)
	}
	if _, ok := r.FindConnection("Alice"); ok {
		t.Fatal("Alice still indexed after rename")
	}

	msgs := r.PullPending(1)
	if countMode(msgs, ModeCommandResult) != 1 {
		t.Fatalf("expected one command result, got %v", msgs)
	}
	if !hasText(msgs, "Nick changed to Bob") {
		t.Fatalf("missing confirmation, got %v", msgs)
	}
	if msgs[0].FromNick != ServerNick {
		t.Fatalf("result attributed to %q", msgs[0].FromNick)
	}
}

func TestWhisperCommand(t *testing.T) {
	r := NewRegistry()
	r.Connect(1, "alice")
	r.Connect(2, "bob")
	r.PullPending(1)
	r.PullPending(2)

	if consumed := r.Broadcast(1, "/w bob see you at 5"); !consumed {
		t.Fatal("command not consumed")
	}

	msgs := r.PullPending(2)
	if len(msgs) != 1 || msgs[0].Text != "see you at 5" {
		t.Fatalf("target got %v", msgs)
	}
	if msgs[0].Context.Mode != ModeWhisper || msgs[0].FromNick != "alice" {
		t.Fatalf("wrong context/attribution: %+v", msgs[0])
	}

	// A successful /w produces no separate response, only the echo.
	own := r.PullPending(1)
	if countMode(own, ModeCommandResult) != 0 {
		t.Fatalf("successful /w produced a response: %v", own)
	}
	if !hasText(own, "see you at 5") {
		t.Fatalf("sender missing echo: %v", own)
	}
}

func TestWhisperCommandQuotedTarget(t *testing.T) {
	r := NewRegistry()
	r.Connect(1, "alice")
	r.Connect(2, "Bo B")
	r.PullPending(2)

	r.Broadcast(1, `/w "Bo B" hello there`)

	msgs := r.PullPending(2)
	if len(msgs) != 1 || msgs[0].Text != "hello there" {
		t.Fatalf("quoted target got %v", msgs)
	}
}

func TestWhisperCommandUnknownNick(t *testing.T) {
	r := NewRegistry()
	r.Connect(1, "alice")
	r.Connect(2, "bob")
	r.PullPending(1)
	r.PullPending(2)

	r.Broadcast(1, "/w carol hi")

	msgs := r.PullPending(1)
	if countMode(msgs, ModeCommandResult) != 1 || !hasText(msgs, "No such nick carol") {
		t.Fatalf("expected missing-nick response, got %v", msgs)
	}
	if stray := r.PullPending(2); len(stray) != 0 {
		t.Fatalf("bystander received %v", stray)
	}
}

func TestUnknownCommandWithoutHandler(t *testing.T) {
	r := NewRegistry()
	r.Connect(1, "alice")
	r.Connect(2, "bob")
	r.PullPending(1)
	r.PullPending(2)

	if consumed := r.Broadcast(1, "/frobnicate"); !consumed {
		t.Fatal("command not consumed")
	}

	msgs := r.PullPending(1)
	if countMode(msgs, ModeCommandResult) != 1 || !hasText(msgs, "frobnicate") {
		t.Fatalf("expected error naming frobnicate, got %v", msgs)
	}
	if stray := r.PullPending(2); len(stray) != 0 {
		t.Fatalf("fan-out happened for a command: %v", stray)
	}
}

func TestCommandHandlerDelegation(t *testing.T) {
	r := NewRegistry()
	r.Connect(1, "alice")
	r.PullPending(1)

	var gotFrom ConnectionID
	var gotCommand, gotArgs string
	r.SetCommandHandler(func(from ConnectionID, command, args string) string {
		gotFrom, gotCommand, gotArgs = from, command, args
		return "rolled a 6"
	})

	r.Broadcast(1, "/roll 2d6 hard")

	if gotFrom != 1 || gotCommand != "roll" || gotArgs != "2d6 hard" {
		t.Fatalf("handler saw (%d, %q, %q)", gotFrom, gotCommand, gotArgs)
	}
	msgs := r.PullPending(1)
	if !hasText(msgs, "rolled a 6") {
		t.Fatalf("handler response not queued: %v", msgs)
	}

	// Empty responses queue nothing.
	r.SetCommandHandler(func(ConnectionID, string, string) string { return "" })
	r.Broadcast(1, "/silent")
	if msgs := r.PullPending(1); len(msgs) != 0 {
		t.Fatalf("empty response queued something: %v", msgs)
	}

	r.ClearCommandHandler()
	r.Broadcast(1, "/roll")
	if msgs := r.PullPending(1); !hasText(msgs, "No such command roll") {
		t.Fatalf("cleared handler not falling back: %v", msgs)
	}
}

func TestSplitWhisperTarget(t *testing.T) {
	cases := []struct {
		args, target, body string
	}{
		{"bob hello", "bob", "hello"},
		{"bob", "bob", ""},
		{`"Bo B" hello there`, "Bo B", "hello there"},
		{`"unterminated hello`, "", ""},
		{`""`, "", ""},
	}
	for _, c := range cases {
		target, body := splitWhisperTarget(c.args)
		if target != c.target || body != c.body {
			t.Errorf("splitWhisperTarget(%q) = (%q, %q), want (%q, %q)",
				c.args, target, body, c.target, c.body)
		}
	}
}

func TestWhisperedCommandIsIntercepted(t *testing.T) {
	// A whisper whose body is itself a command goes through the
	// interceptor again, same as the direct entry points.
	r := NewRegistry()
	r.Connect(1, "alice")
	r.Connect(2, "bob")
	r.PullPending(1)
	r.PullPending(2)

	r.Broadcast(1, "/w bob /nick carol")

	if _, ok := r.FindConnection("carol"); !ok {
		t.Fatal("nested command did not run")
	}
	if msgs := r.PullPending(2); len(msgs) != 0 {
		t.Fatalf("intercepted whisper still delivered: %v", msgs)
	}
	if msgs := r.PullPending(1); !hasText(msgs, "Nick changed to carol") {
		t.Fatalf("missing nested confirmation: %v", msgs)
	}
}

func TestCommandInChannelMessage(t *testing.T) {
	r := NewRegistry()
	r.Connect(1, "alice")
	r.Connect(2, "bob")
	r.Join(1, "x")
	r.Join(2, "x")
	r.PullPending(1)
	r.PullPending(2)

	if consumed := r.Message(1, ModeChannel, "x", "/frobnicate"); !consumed {
		t.Fatal("channel command not consumed")
	}
	if stray := r.PullPending(2); len(stray) != 0 {
		t.Fatalf("channel fan-out happened for a command: %v", stray)
	}
}

func TestMarkerOnlyTextIsACommand(t *testing.T) {
	r := NewRegistry()
	r.Connect(1, "alice")
	r.PullPending(1)

	if consumed := r.Broadcast(1, "/"); !consumed {
		t.Fatal("bare marker not consumed")
	}
	msgs := r.PullPending(1)
	if countMode(msgs, ModeCommandResult) != 1 {
		t.Fatalf("expected one response, got %v", msgs)
	}
	if !strings.Contains(msgs[0].Text, "No such command") {
		t.Fatalf("unexpected response %q", msgs[0].Text)
	}
}
