package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chat-relay/internal/config"
)

// Version is stamped at build time with -ldflags "-X chat-relay/internal/cli.Version=...".
var Version = "1.0.0"

type rootOptions struct {
	cfgFile string
	envFile string
}

// load reads .env, then the optional config file and the environment.
func (o *rootOptions) load() (config.Config, error) {
	if o.envFile != "" {
		if err := config.LoadDotEnv(o.envFile); err != nil {
			return config.Config{}, err
		}
	} else if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}

	v := viper.New()
	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "chat-relay",
		Short: "Programming tutor chat relay in front of the OpenAI chat completions API",
		Long: `chat-relay validates a conversation, prepends the tutoring instruction and
relays it to the OpenAI chat completions API. It runs as an HTTP server, as an
AWS Lambda behind API Gateway, or as an interactive terminal client.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (yaml, toml or json); environment variables take precedence")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default .env)")

	root.AddCommand(newServeCmd(opts), newChatCmd(opts), newVersionCmd())
	return root
}

// Execute runs the root command. It is called by main.main().
func Execute() error {
	return NewRootCommand().Execute()
}
