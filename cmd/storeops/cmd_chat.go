package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/yangwenmai/storeops/internal/chat"
	"github.com/yangwenmai/storeops/internal/tui"
)

type chatCmd struct {
	env *env
}

func newChatCmd(e *env) *chatCmd {
	return &chatCmd{env: e}
}

// Register adds the chat command to the application.
func (cmd *chatCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "chat",
		Usage:     "Talk to the store assistant",
		UsageText: "storeops chat",
		Description: `Opens the assistant chat in the terminal. Suggestions appear as you type;
use the arrow keys and enter to pick one, or alt+1..5 for the quick questions.`,
		Action: cmd.run,
	})
	return app
}

func (cmd *chatCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.env.cfg

	// Console logs would draw over the screen.
	log := cmd.env.log
	if cfg.LogFile == "" {
		log = zerolog.Nop()
	}

	session := chat.NewSession(ctx, cmd.env.cat.Matcher(), cmd.env.cat.Chat.Welcome,
		chat.WithReplyDelay(cfg.ChatReplyDelay, cfg.ChatReplyJitter),
		chat.WithSerialize(cfg.ChatSerialize),
		chat.WithLogger(log),
	)
	defer session.Close()

	m := tui.New(session, cmd.env.cat.Chat.Prompts, cmd.env.cat.Chat.QuickQuestions, cfg.SuggestionLimit)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run chat: %w", err)
	}
	return nil
}
