package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/hearthkit/hearth/pkg/agent"
	"github.com/hearthkit/hearth/pkg/channels"
	"github.com/hearthkit/hearth/pkg/config"
)

const appName = "hearth"

var (
	version   = "dev"
	gitCommit string
)

func main() {
	if err := buildRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Hearth is a household voice assistant with memory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newChatCommand())
	root.AddCommand(newGatewayCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func newChatCommand() *cobra.Command {
	var userID string
	var message string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := agent.Default()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.StartSession(ctx, userID, ""); err != nil {
				return err
			}
			defer a.EndSession(context.Background(), true)

			if message != "" {
				reply, err := a.Process(ctx, message)
				if err != nil {
					return err
				}
				fmt.Printf("\n%s %s\n", appName, reply)
				return nil
			}

			fmt.Printf("%s %s\n\n", appName, a.Greeting())
			interactiveMode(ctx, a)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id for the session (defaults to the configured default user)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "process a single message and exit")
	return cmd
}

func interactiveMode(ctx context.Context, a *agent.Agent) {
	prompt := fmt.Sprintf("%s You: ", appName)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".hearth_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleInteractiveMode(ctx, a)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if done := handleInput(ctx, a, line); done {
			return
		}
	}
}

func simpleInteractiveMode(ctx context.Context, a *agent.Agent) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s You: ", appName)
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if done := handleInput(ctx, a, line); done {
			return
		}
	}
}

func handleInput(ctx context.Context, a *agent.Agent, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}
	if input == "exit" || input == "quit" {
		fmt.Println("Goodbye!")
		return true
	}

	reply, err := a.Process(ctx, input)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	fmt.Printf("\n%s %s\n\n", appName, reply)
	return false
}

func newGatewayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run the Discord gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := agent.Default()
			if err != nil {
				return err
			}

			discord, err := channels.NewDiscordChannel(cfg.Discord, a)
			if err != nil {
				return err
			}
			manager := channels.NewManager(discord)

			ctx := cmd.Context()
			if err := manager.Start(ctx); err != nil {
				return err
			}
			fmt.Printf("%s gateway running. Ctrl+C to stop.\n", appName)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			fmt.Println("Shutting down...")
			return manager.Stop(context.Background())
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			fmt.Printf("Model:        %s (cheap: %s)\n", cfg.OpenAI.Model, cfg.OpenAI.CheapModel)
			fmt.Printf("Store:        %s\n", cfg.Store.Path)
			fmt.Printf("OpenAI key:   %s\n", configuredFlag(cfg.OpenAI.APIKey))
			fmt.Printf("Weather key:  %s\n", configuredFlag(cfg.Tools.OpenWeatherAPIKey))
			fmt.Printf("Discord:      %s\n", configuredFlag(cfg.Discord.Token))
			return nil
		},
	}
}

func configuredFlag(value string) string {
	if strings.TrimSpace(value) == "" {
		return "not configured"
	}
	return "configured"
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			v := version
			if gitCommit != "" {
				v += fmt.Sprintf(" (git: %s)", gitCommit)
			}
			fmt.Printf("%s %s\n  Go: %s\n", appName, v, runtime.Version())
		},
	}
}
