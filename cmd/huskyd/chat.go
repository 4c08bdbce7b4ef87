package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/openhusky/huskyd/internal/brain"
	"github.com/openhusky/huskyd/internal/client"
	"github.com/openhusky/huskyd/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat terminal",
	Long:  `Opens a chat terminal against a running huskyd gateway. With a Gemini API key configured, the see and ask commands interpret the camera's view in natural language.`,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	endpoint := cfg.ServerURL
	if serverURL != "" {
		endpoint = serverURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := client.Connect(ctx, endpoint)
	if err != nil {
		return err
	}
	defer c.Close()

	var b *brain.Brain
	if cfg.Gemini.APIKey != "" {
		b, err = brain.New(brain.Config{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
		})
		if err != nil {
			return err
		}
	} else {
		log.Println("No Gemini API key configured; see/ask will show raw labels only")
	}

	return tui.New(c, b).Run()
}
