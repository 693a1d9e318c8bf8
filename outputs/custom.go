package outputs

import (
	"bytes"
	"context"
	"encoding/json"
	"feedwatch/models"
	"fmt"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"
)

// customEntry is the JSON document handed to external commands
type customEntry struct {
	Feed        string    `json:"feed"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author,omitempty"`
	URL         string    `json:"url"`
	Timestamp   time.Time `json:"timestamp"`
}

// Custom runs an external command once per entry
type Custom struct {
	command   string
	arguments []string
	useStdin  bool
}

func NewCustom(command string, arguments []string, useStdin bool) *Custom {
	return &Custom{command: command, arguments: arguments, useStdin: useStdin}
}

func (c *Custom) Deliver(ctx context.Context, feedName string, entries []models.Entry) error {
	for _, entry := range entries {
		payload, err := json.Marshal(customEntry{
			Feed:        feedName,
			Title:       entry.Title,
			Description: entry.Description,
			Author:      entry.Author,
			URL:         entry.URL,
			Timestamp:   entry.Published,
		})
		if err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}

		if err := c.run(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

func (c *Custom) run(ctx context.Context, payload []byte) error {
	args := append([]string(nil), c.arguments...)
	if !c.useStdin {
		args = append(args, string(payload))
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	if c.useStdin {
		cmd.Stdin = bytes.NewReader(payload)
	}

	log.WithFields(log.Fields{
		"command": c.command,
		"stdin":   c.useStdin,
	}).Debug("Pushing entry to custom command")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("command %s failed: %w: %s", c.command, err, bytes.TrimSpace(output))
	}
	if len(output) > 0 {
		log.WithFields(log.Fields{
			"command": c.command,
			"output":  string(bytes.TrimSpace(output)),
		}).Debug("Custom command output")
	}
	return nil
}
