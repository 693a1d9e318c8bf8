package cmd

import (
	"feedwatch/config"
	"fmt"
	"strings"

	"github.com/cqroot/prompt"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a starter configuration interactively",
		Flags: []cli.Flag{
			configFlag(),
		},
		Action: func(ctx *cli.Context) error {
			name, err := prompt.New().Ask("Feed name:").Input("blog")
			if err != nil {
				return err
			}

			url, err := prompt.New().Ask("Feed URL:").Input("https://go.dev/blog/feed.atom")
			if err != nil {
				return err
			}

			outputType, err := prompt.New().Ask("Output:").Choose([]string{
				config.TypeDiscordWebhook,
				config.TypeSlack,
				config.TypeCustom,
			})
			if err != nil {
				return err
			}

			var output config.Output
			switch outputType {
			case config.TypeCustom:
				command, err := prompt.New().Ask("Command:").Input("notify-send")
				if err != nil {
					return err
				}
				output = config.Output{Type: outputType, Command: command}
			default:
				hook, err := prompt.New().Ask("Webhook URL:").Input("")
				if err != nil {
					return err
				}
				output = config.Output{Type: outputType, URL: hook}
			}

			cfg := starterConfig(strings.TrimSpace(name), strings.TrimSpace(url), output)
			if err := cfg.Validate(); err != nil {
				return cli.Exit(err, 1)
			}

			path := ctx.String("config")
			if err := config.Save(path, cfg); err != nil {
				return cli.Exit(err, 1)
			}

			log.WithFields(log.Fields{
				"path": path,
			}).Info("Wrote configuration")
			fmt.Fprintf(ctx.App.Writer, "Run `feedwatch watch --config %s` to start watching\n", path)
			return nil
		},
	}
}

// starterConfig routes a single feed to one output through the default tag
func starterConfig(name, url string, output config.Output) *config.Config {
	return &config.Config{
		HTTP: config.HTTP{UserAgent: config.DefaultUserAgent},
		Inputs: map[string]config.Input{
			name: {URL: url},
		},
		Outputs: map[string][]config.Output{
			config.DefaultTag: {output},
		},
	}
}
