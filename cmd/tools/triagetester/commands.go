package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	analysis "github.com/zhouzirui/mindwell/backend/internal/analysis/triage"
	"github.com/zhouzirui/mindwell/backend/internal/config"
	"github.com/zhouzirui/mindwell/backend/internal/model/resource"
	"github.com/zhouzirui/mindwell/backend/internal/service/reply"
	"github.com/zhouzirui/mindwell/backend/internal/service/triage"
	"github.com/zhouzirui/mindwell/backend/internal/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "triagetester",
		Short: "Exercise the triage classifier and reply selector from a terminal",
		Long: `Operator tool for checking how utterances are triaged.

Available subcommands:
  classify - Print the category and matched phrase for an utterance
  lexicon  - Print the phrase sets in priority order
  reply    - Draw a reply for a category
  chat     - Interactive session against a local engine`,
		SilenceUsage: true,
	}

	root.AddCommand(newClassifyCmd(), newLexiconCmd(), newReplyCmd(), newChatCmd())
	return root
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Print the category and matched phrase for an utterance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision := analysis.Analyze(strings.Join(args, " "))
			trigger := decision.Trigger
			if trigger == "" {
				trigger = "-"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", decision.Category, trigger)
			return nil
		},
	}
}

func newLexiconCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lexicon",
		Short: "Print the phrase sets in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, lex := range analysis.Lexicons() {
				fmt.Fprintf(out, "%s: %s\n", lex.Category, strings.Join(lex.Phrases, ", "))
			}
			fmt.Fprintf(out, "%s: (fallback)\n", analysis.Neutral)
			return nil
		},
	}
}

func newReplyCmd() *cobra.Command {
	var seed uint64

	cmd := &cobra.Command{
		Use:   "reply <category>",
		Short: "Draw a reply for a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, ok := analysis.ParseCategory(args[0])
			if !ok {
				return fmt.Errorf("unknown category %q", args[0])
			}

			selector := reply.NewSelector(nil, nil)
			if cmd.Flags().Changed("seed") {
				selector = reply.NewSeededSelector(seed, nil)
			}

			r, err := selector.Select(category)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, r.Text)
			printResources(out, r.Resources)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for reproducible selection")
	return cmd
}

func newChatCmd() *cobra.Command {
	var (
		driver         string
		dsn            string
		conversationID string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive session against a local engine",
		Long: `Reads one utterance per line and prints the reply immediately.
Type /history to print the conversation and /quit to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			storeCfg, err := chatStoreConfig(cmd, driver, dsn)
			if err != nil {
				return err
			}

			st, err := store.Open(ctx, storeCfg.Driver, storeCfg.DSN(), store.WithTimeout(storeCfg.Timeout))
			if err != nil {
				return err
			}
			defer st.Close()

			engine := triage.NewEngine(st, nil, triage.Config{DefaultConversation: conversationID})
			return runChat(ctx, engine, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&driver, "store", "", "store driver: memory, sqlite, postgres or redis (default $STORE_DRIVER, else memory)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "store connection string or SQLite path (default from $SQLITE_PATH, $DATABASE_URL or $REDIS_URL)")
	cmd.Flags().StringVar(&conversationID, "conversation", "cli", "conversation id")
	return cmd
}

// chatStoreConfig starts from the same environment the API server reads and
// lets explicit flags override it.
func chatStoreConfig(cmd *cobra.Command, driver, dsn string) (config.StoreConfig, error) {
	flags := cmd.Flags()
	if flags.Changed("store") && driver != "" {
		// 显式指定驱动时不校验环境里其他驱动的配置
		cfg := config.StoreConfig{
			Driver:      strings.ToLower(driver),
			SQLitePath:  os.Getenv("SQLITE_PATH"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			RedisURL:    os.Getenv("REDIS_URL"),
		}
		if flags.Changed("dsn") {
			cfg = withDSN(cfg, dsn)
		}
		return cfg, nil
	}

	cfg, err := config.LoadStore()
	if err != nil {
		return config.StoreConfig{}, err
	}
	if flags.Changed("dsn") {
		cfg = withDSN(cfg, dsn)
	}
	return cfg, nil
}

func withDSN(cfg config.StoreConfig, dsn string) config.StoreConfig {
	switch cfg.Driver {
	case config.DriverSQLite:
		cfg.SQLitePath = dsn
	case config.DriverPostgres:
		cfg.DatabaseURL = dsn
	case config.DriverRedis:
		cfg.RedisURL = dsn
	}
	return cfg
}

func runChat(ctx context.Context, engine *triage.Engine, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "system: %s\n", reply.Greeting)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			messages, err := engine.History(ctx, "")
			if err != nil {
				return err
			}
			for _, m := range messages {
				fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), m.Sender, m.Content)
			}
			continue
		}

		turn, err := engine.Submit(ctx, "", line)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "system (%s): %s\n", turn.Reply.Category, turn.Reply.Content)
		printResources(out, turn.Resources)
	}
}

func printResources(out io.Writer, resources []resource.CrisisResource) {
	for _, r := range resources {
		fmt.Fprintf(out, "  * %s: %s (%s)\n", r.Name, r.Contact, r.Availability)
	}
}
