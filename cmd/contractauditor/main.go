// Command contractauditor checks procurement contracts against the 44-ФЗ and
// 223-ФЗ statutes.
//
// Usage:
//
//	contractauditor analyze --contract contract.pdf [--notice notice.docx] [--law 44-ФЗ]
//	contractauditor articles --law 44-ФЗ --query "цена контракта"
//	contractauditor serve
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"ContractAuditor/internal/app"
	"ContractAuditor/internal/config"
	"ContractAuditor/internal/domain"
	"ContractAuditor/internal/logging"
)

func main() {
	cliApp := &cli.App{
		Name:  "contractauditor",
		Usage: "Audit procurement contracts against Russian procurement statutes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration",
				EnvVars: []string{"CONTRACT_AUDITOR_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			analyzeCommand(),
			articlesCommand(),
			serveCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Analyse a contract and print the JSON report",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "contract",
				Usage:    "Path to the contract (pdf, docx, txt)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "notice",
				Usage: "Optional path to the procurement notice",
			},
			&cli.StringFlag{
				Name:  "law",
				Usage: "Statute identifier, e.g. 44-ФЗ or 223-ФЗ",
			},
		},
		Action: runAnalyze,
	}
}

func articlesCommand() *cli.Command {
	return &cli.Command{
		Name:  "articles",
		Usage: "Look up statute articles by number or text",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "law",
				Usage: "Statute identifier",
			},
			&cli.StringFlag{
				Name:  "number",
				Usage: "Article number, e.g. 93 or 34.1",
			},
			&cli.StringFlag{
				Name:  "query",
				Usage: "Case-insensitive text to search for",
			},
		},
		Action: runArticles,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the HTTP API",
		Action: runServe,
	}
}

func runAnalyze(c *cli.Context) error {
	application, err := newApplication(c)
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.Analyze(c.Context, c.String("contract"), c.String("notice"), c.String("law"))
	if err != nil {
		return fmt.Errorf("analyze contract: %w", err)
	}
	return printJSON(c.App.Writer, report)
}

func runArticles(c *cli.Context) error {
	application, err := newApplication(c)
	if err != nil {
		return err
	}
	defer application.Close()

	law := c.String("law")
	if law == "" {
		law = application.DefaultStatute()
	}
	statutes := application.Statutes()

	switch {
	case c.String("number") != "":
		article, ok := statutes.Article(c.Context, law, c.String("number"))
		if !ok {
			return fmt.Errorf("article %s not found in %s", c.String("number"), law)
		}
		return printJSON(c.App.Writer, article)
	case c.String("query") != "":
		articles := statutes.Search(c.Context, law, c.String("query"))
		if articles == nil {
			articles = []domain.Article{}
		}
		return printJSON(c.App.Writer, articles)
	default:
		return printJSON(c.App.Writer, statutes.Articles(c.Context, law))
	}
}

func runServe(c *cli.Context) error {
	application, err := newApplication(c)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return application.Serve(ctx)
}

func newApplication(c *cli.Context) (*app.Application, error) {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	// Reports go to stdout, so logs go to stderr.
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level)
	return app.New(contextOrBackground(c.Context), cfg, logger.With(slog.String("app", "contractauditor")))
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Load(), nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
