package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"golang.org/x/term"

	"github.com/1ureka/whodis/internal/config"
)

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// askCriteria falls back to interactive prompts when no interests were
// given by flag, env or config file.
func askCriteria(cfg *config.Client) {
	raw, _ := pterm.DefaultInteractiveTextInput.
		WithDefaultText("Your interests, comma-separated (empty = anyone)").
		Show()
	cfg.Interests = config.SplitList(raw)
	pterm.Println()

	gender, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"any", "female", "male", "other"}).
		WithDefaultText("Your gender").
		Show()
	cfg.Gender = gender
	pterm.Println()

	mode, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"Video — camera and microphone", "Text  — chat only"}).
		WithDefaultText("Chat mode").
		Show()
	if strings.HasPrefix(mode, "Text") {
		cfg.Mode = config.ModeText
	} else {
		cfg.Mode = config.ModeVideo
	}
	pterm.Println()
}

// normalizeWSURL validates a server address. A bare host gets wss:// and an
// empty path gets /ws.
func normalizeWSURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "wss://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid WebSocket URL scheme: %s", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}
