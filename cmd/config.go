package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/report-agent/internal/config"
)

const redacted = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration as YAML with secrets redacted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeConfig(os.Stdout, cfg)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// writeConfig encodes a redacted copy of c as YAML.
func writeConfig(out io.Writer, c *config.Config) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(redact(*c)); err != nil {
		return eris.Wrap(err, "config show")
	}
	return enc.Close()
}

// redact blanks credentials in a copy of c.
func redact(c config.Config) config.Config {
	for _, s := range []*string{
		&c.Google.APIKey,
		&c.Jina.Key,
		&c.Embed.APIKey,
		&c.SMTP.Password,
		&c.Notion.Token,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	// Postgres URLs carry credentials; sqlite paths do not.
	if c.RunLog.Driver == "postgres" && c.RunLog.DatabaseURL != "" {
		c.RunLog.DatabaseURL = redacted
	}
	return c
}
