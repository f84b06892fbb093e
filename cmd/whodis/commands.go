package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/whodis/internal/media"
	"github.com/1ureka/whodis/internal/protocol"
	"github.com/1ureka/whodis/internal/session"
)

const helpText = `/next   skip to the next stranger
/end    stop chatting (stay connected to the server)
/start  look for someone again
/mute   toggle your microphone
/video  toggle your camera
/status show connection info
/quit   exit`

// parseCommand splits a stdin line. Lines not starting with '/' are chat.
func parseCommand(line string) (cmd, rest string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", line
	}
	cmd, rest, _ = strings.Cut(line[1:], " ")
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}

// console turns stdin lines into session calls.
type console struct {
	sess     *session.Session
	src      *media.Source
	criteria protocol.Criteria
	online   func() int64
	quit     context.CancelFunc
}

// run reads lines until ctx ends, in closes or the user quits.
func (c *console) run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil || c.exec(scanner.Text()) {
			return
		}
	}
}

// exec handles one line and reports whether the user asked to quit.
func (c *console) exec(line string) bool {
	cmd, text := parseCommand(line)
	switch cmd {
	case "":
		if text == "" {
			return false
		}
		if c.sess.State() != session.Connected {
			pterm.Warning.Println("Nobody to talk to yet.")
			return false
		}
		c.sess.SendChat(text)
		c.sess.SetTyping(false)

	case "next", "skip":
		c.sess.Skip()

	case "end":
		c.sess.End()

	case "start":
		c.sess.Start(c.criteria)

	case "mute":
		toggle(c.src, media.Audio, "Microphone")

	case "video":
		toggle(c.src, media.Video, "Camera")

	case "status":
		pterm.Info.Printfln("state: %s, online: %d", c.sess.State(), c.online())

	case "quit", "exit":
		c.quit()
		return true

	case "help":
		pterm.Println(helpText)

	default:
		pterm.Warning.Printfln("Unknown command /%s (try /help)", cmd)
	}
	return false
}

func toggle(src *media.Source, kind media.Kind, label string) {
	if src == nil || !src.Has(kind) {
		pterm.Warning.Printfln("%s not available in this mode.", label)
		return
	}
	if src.Toggle(kind) {
		pterm.Info.Printfln("%s on", label)
	} else {
		pterm.Info.Printfln("%s off", label)
	}
}
