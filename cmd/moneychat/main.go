package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lekos21/moneychat/internal/api"
	"github.com/lekos21/moneychat/internal/config"
	"github.com/lekos21/moneychat/internal/llm"
	"github.com/lekos21/moneychat/internal/parse"
	"github.com/lekos21/moneychat/internal/tags"
	"github.com/lekos21/moneychat/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logPath := logFilePath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err == nil {
		if f, err := tea.LogToFile(logPath, "moneychat"); err == nil {
			defer f.Close()
		}
	}

	tokens := tokenSource(cfg)
	client := api.NewClient(cfg.API.BaseURL, tokens)

	remote, err := remoteParser(ctx, cfg, client)
	if err != nil {
		log.Fatalf("parser: %v", err)
	}

	dispatcher := &parse.Dispatcher{Remote: remote}
	resolver := tags.NewResolver(client)

	if _, err := time.LoadLocation(cfg.UI.Timezone); err != nil {
		log.Printf("warn: unknown timezone %q, using local: %v", cfg.UI.Timezone, err)
	}

	p := tea.NewProgram(tui.New(ctx, cfg, client, dispatcher, resolver), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func logFilePath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "moneychat", "debug.log")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state", "moneychat", "debug.log")
}

// tokenSource returns the configured token directly when one is present.
// Otherwise it hands out an async source and polls the token env var in the
// background, for dev setups where the credential lands after startup;
// callers block up to the bounded wait before failing unauthenticated.
func tokenSource(cfg config.Config) api.TokenSource {
	if t := cfg.BearerToken(); t != "" {
		return api.StaticToken(t)
	}
	const wait = 5 * time.Second
	async := api.NewAsyncToken(wait)
	go func() {
		deadline := time.Now().Add(wait)
		for time.Now().Before(deadline) {
			if t := cfg.BearerToken(); t != "" {
				async.Set(t)
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
		async.Fail(api.ErrUnauthenticated)
	}()
	return async
}

func remoteParser(ctx context.Context, cfg config.Config, client *api.Client) (parse.RemoteParser, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Parser.Provider)) {
	case "gemini":
		key := cfg.GeminiKey()
		if key == "" {
			return nil, fmt.Errorf("parser.provider is gemini but no API key is configured")
		}
		return llm.NewGeminiParser(ctx, key, cfg.LLM.Model)
	default:
		return client, nil
	}
}
