// Package main 是 studyctl 命令行工具的入口，用于在服务之外手动触发生成与维护数据。
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/urfave/cli/v2"
	"studyai-go/internal/app"
	"studyai-go/internal/config"
	"studyai-go/internal/pipeline"
	"studyai-go/internal/repository"
	"studyai-go/pkg/database"
	"studyai-go/pkg/log"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func documentFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "document",
		Aliases:  []string{"d"},
		Usage:    "Document ID",
		Required: true,
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "studyctl",
		Usage:     "Trigger study content generation and maintain documents",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config.yaml",
				Value:   "./configs/config.yaml",
				EnvVars: []string{"STUDYAI_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run-all",
				Usage:  "Run notes, quiz, flashcards and podcast generation for a document",
				Action: runAllCommand,
				Flags:  []cli.Flag{documentFlag()},
			},
			{
				Name:   "regenerate",
				Usage:  "Regenerate a single stage for a document",
				Action: regenerateCommand,
				Flags: []cli.Flag{
					documentFlag(),
					&cli.StringFlag{
						Name:     "stage",
						Aliases:  []string{"s"},
						Usage:    "Stage to run (notes, quiz, flashcards, podcast)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of quiz questions or flashcards (0 uses the configured default)",
					},
					&cli.IntFlag{
						Name:  "duration",
						Usage: "Podcast duration in minutes (0 lets the worker decide)",
					},
				},
			},
			{
				Name:   "clear-chat",
				Usage:  "Delete the chat history of a user for a document",
				Action: clearChatCommand,
				Flags: []cli.Flag{
					documentFlag(),
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User ID",
						Required: true,
					},
				},
			},
		},
	}
}

// setup 加载配置并组装命令需要的组件。
func setup(c *cli.Context) (*app.Components, func(), error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	log.Init(cfg.Log.Level, cfg.Log.Format, "")

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	var rdb *redis.Client
	if cfg.Pipeline.StageLock.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Database.Redis.Addr,
			Password: cfg.Database.Redis.Password,
			DB:       cfg.Database.Redis.DB,
		})
	}
	cleanup := func() {
		_ = sqlDB.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		log.Sync()
	}

	components, err := app.Build(c.Context, cfg, db, rdb)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return components, cleanup, nil
}

func runAllCommand(c *cli.Context) error {
	components, cleanup, err := setup(c)
	if err != nil {
		return err
	}
	defer cleanup()

	doc, err := components.Docs.FindByID(c.Context, c.String("document"))
	if err != nil {
		return err
	}
	report := components.Orchestrator.RunAll(c.Context, doc.ID, doc.ExtractedText, doc.Filename)
	if report.Skipped {
		fmt.Fprintf(c.App.Writer, "%s: text too short, nothing generated\n", doc.ID)
		return nil
	}
	for _, o := range report.Outcomes {
		status := "ok"
		if o.Err != nil {
			status = "failed: " + o.Err.Error()
		}
		fmt.Fprintf(c.App.Writer, "%-10s %s (%s)\n", o.Stage, status, o.Duration.Round(time.Millisecond))
	}
	if report.Aborted {
		fmt.Fprintf(c.App.Writer, "%s: document deleted during run, remaining stages skipped\n", doc.ID)
	}
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d stage(s) failed: %v", len(failed), failed)
	}
	return nil
}

func regenerateCommand(c *cli.Context) error {
	stage, err := pipeline.ParseStage(c.String("stage"))
	if err != nil {
		return err
	}
	components, cleanup, err := setup(c)
	if err != nil {
		return err
	}
	defer cleanup()

	doc, err := components.Docs.FindByID(c.Context, c.String("document"))
	if err != nil {
		return err
	}
	in := pipeline.Input{
		DocumentID: doc.ID,
		Text:       doc.ExtractedText,
		Filename:   doc.Filename,
		Count:      c.Int("count"),
	}
	if minutes := c.Int("duration"); minutes > 0 {
		in.DurationMinutes = &minutes
	}
	if err := components.Orchestrator.RunStage(context.WithoutCancel(c.Context), stage, in); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s regenerated for %s\n", stage, doc.ID)
	return nil
}

func clearChatCommand(c *cli.Context) error {
	components, cleanup, err := setup(c)
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := components.ChatTurns.Clear(c.Context, c.String("document"), c.String("user"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted %d chat turn(s)\n", n)
	return nil
}
