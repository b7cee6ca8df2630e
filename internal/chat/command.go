package chat

import (
	"fmt"
	"strings"
)

const commandMarker = "/"

// interceptLocked inspects an outgoing message for the command syntax and
// handles it if present. It returns true when the message was consumed as a
// command and must not be fanned out. A doubled marker escapes itself: the
// message text is rewritten with one marker stripped and routed normally.
//
// Non-empty responses are queued to the sender only, attributed to the
// server identity. An empty response means the command carried out its own
// side effects (a successful /w) and nothing further is queued.
func (r *Registry) interceptLocked(msg *ReceivedMessage) bool {
	if !strings.HasPrefix(msg.Text, commandMarker) {
		return false
	}
	if strings.HasPrefix(msg.Text, commandMarker+commandMarker) {
		msg.Text = msg.Text[1:]
		return false
	}

	command, args := splitCommand(msg.Text[1:])

	var response string
	switch command {
	case "nick":
		newNick := r.renameLocked(msg.FromConnection, strings.TrimSpace(args))
		response = fmt.Sprintf("Nick changed to %s", newNick)

	case "w":
		target, body := splitWhisperTarget(args)
		if id, ok := r.nicks[target]; ok {
			r.whisperLocked(msg.FromConnection, id, body)
		} else {
			response = fmt.Sprintf("No such nick %s", target)
		}

	default:
		if r.handler != nil {
			response = r.handler(msg.FromConnection, command, args)
		} else {
			response = fmt.Sprintf("No such command %s", command)
		}
	}

	if response != "" {
		ci := r.mustClientLocked(msg.FromConnection)
		ci.pending = append(ci.pending, ReceivedMessage{
			Context:        MessageContext{Mode: ModeCommandResult},
			FromConnection: ServerConnectionID,
			FromNick:       r.nicknameLocked(ServerConnectionID),
			Text:           response,
		})
	}

	return true
}

// splitCommand extracts the first whitespace-delimited word; the remainder
// keeps everything after the separating whitespace run.
func splitCommand(line string) (word, rest string) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimLeft(line[i:], " \t")
}

// splitWhisperTarget parses the /w argument string. The target is either a
// bare token or, when the string opens with a double quote, everything up
// to the next quote. An unterminated quote yields an empty target, which
// resolves to no nick and surfaces as an error response.
func splitWhisperTarget(args string) (target, body string) {
	if strings.HasPrefix(args, `"`) {
		end := strings.Index(args[1:], `"`)
		if end < 0 {
			return "", ""
		}
		return args[1 : end+1], strings.TrimSpace(args[end+2:])
	}
	target, body = splitCommand(args)
	return target, strings.TrimSpace(body)
}
