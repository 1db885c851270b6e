package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/smark/internal"
	"github.com/starford/smark/internal/datetime"
	"github.com/starford/smark/internal/frontmatter"
	"github.com/starford/smark/internal/lang"
	pkgconfig "github.com/starford/smark/pkg/config"
)

var version = "dev"

// options loads the config named by --config and applies --log-level.
func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if s := cmd.String("log-level"); s != "" {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func prep(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Prep(ctx, cmd.String("input"), cmd.Bool("rebuild"), opts...)
}

func dump(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Dump(ctx, cmd.String("outdir"), opts...)
}

func normalize(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Normalize(ctx, cmd.String("input"), opts...)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func template(_ context.Context, cmd *cli.Command) error {
	l, err := lang.Parse(cmd.String("lang"))
	if err != nil {
		return err
	}
	return internal.Template(os.Stdout, l, cmd.Bool("with-date"), datetime.Format(cmd.String("datetime-format")))
}

func replace(_ context.Context, cmd *cli.Command) error {
	var o frontmatter.Overrides
	for name, dst := range map[string]**string{
		"uuid":        &o.UUID,
		"title":       &o.Title,
		"description": &o.Description,
		"category":    &o.Category,
	} {
		if cmd.IsSet(name) {
			v := cmd.String(name)
			*dst = &v
		}
	}
	if cmd.IsSet("lang") {
		l, err := lang.Parse(cmd.String("lang"))
		if err != nil {
			return err
		}
		o.Lang = &l
	}
	if cmd.IsSet("tag") {
		o.Tags = cmd.StringSlice("tag")
	}

	return internal.Replace(os.Stdout, cmd.String("input"), internal.ReplaceParams{
		Overrides: o,
		CreatedAt: cmd.String("created-at"),
		UpdatedAt: cmd.String("updated-at"),
		Now:       cmd.Bool("now"),
		Write:     cmd.Bool("write"),
	})
}

func main() {
	cmd := &cli.Command{
		Name:    "smark",
		Usage:   "Markdown post indexer with full-text search over HTTP and MCP",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file; defaults are used when empty",
				Sources: cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "prep",
				Usage:  "Index every post under a directory",
				Action: prep,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Posts directory (default: vault.path)"},
					&cli.BoolFlag{Name: "rebuild", Usage: "Drop the index and ledger first"},
				},
			},
			{
				Name:   "run",
				Usage:  "Serve the HTTP API",
				Action: run,
			},
			{
				Name:   "template",
				Usage:  "Print the front matter of a new post",
				Action: template,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "with-date", Usage: "Fill created_at and updated_at with now"},
					&cli.StringFlag{Name: "lang", Value: lang.Default.String(), Usage: "Post language (ja, en)"},
					&cli.StringFlag{Name: "datetime-format", Value: string(datetime.Default), Usage: "RFC3339, RFC2822 or a strftime pattern"},
				},
			},
			{
				Name:   "replace",
				Usage:  "Rewrite the front matter of a post",
				Action: replace,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "Post file"},
					&cli.StringFlag{Name: "uuid"},
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "category"},
					&cli.StringFlag{Name: "lang"},
					&cli.StringSliceFlag{Name: "tag", Usage: "Tag; repeat for several"},
					&cli.StringFlag{Name: "created-at"},
					&cli.StringFlag{Name: "updated-at"},
					&cli.BoolFlag{Name: "now", Usage: "Set updated_at to the current time"},
					&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "Rewrite the file instead of printing"},
				},
			},
			{
				Name:   "dump",
				Usage:  "Write every indexed post to <outdir>/<lang>/<slug>.md",
				Action: dump,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "outdir", Aliases: []string{"o"}, Required: true},
				},
			},
			{
				Name:   "normalize",
				Usage:  "Strip HTML comments from posts without bumping updated_at",
				Action: normalize,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Posts directory (default: vault.path)"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve read-only MCP tools on stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
