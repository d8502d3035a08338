package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"reposync/config"
	"reposync/logger"
	"reposync/models"
	"reposync/service"
)

type cliCtx struct {
	context.Context
	EnvFile string
	Out     io.Writer
}

type cli struct {
	EnvFile string  `help:"Optional env file loaded before reading the environment" default:".env" name:"env-file"`
	Sync    SyncCmd `cmd:"" default:"1" help:"Mirror the account's repositories into the store"`
	List    ListCmd `cmd:"" help:"Print stored repositories, highest commit count first"`
}

// SyncCmd runs one ingestion, or keeps syncing when SYNC_INTERVAL is set.
type SyncCmd struct {
	Once bool `help:"Run a single ingestion even when SYNC_INTERVAL is set"`
}

// ListCmd prints the stored records.
type ListCmd struct {
	Page     int    `help:"Print only this page (1-based); 0 prints everything" default:"0"`
	PageSize int    `help:"Records per page; defaults to PAGE_GROUP_SIZE" name:"page-size"`
	Format   string `help:"Output format" enum:"json,table" default:"json" short:"f"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.UsageOnError(),
		kong.Name("reposync"),
		kong.Description("reposync mirrors the public repositories of a GitHub account into a key-value store"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := kctx.Run(&cliCtx{Context: ctx, EnvFile: c.EnvFile, Out: os.Stdout})
	logger.Sync()
	kctx.FatalIfErrorf(err)
}

// setup loads configuration, initializes logging and builds the service.
func setup(ctx *cliCtx) (*config.Config, *service.Service, error) {
	cfg := config.NewConfig()
	if err := cfg.Load(ctx.EnvFile); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to load configuration: %w", service.ErrConfiguration, err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to initialize logger: %w", service.ErrConfiguration, err)
	}

	svc, err := service.NewService(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, svc, nil
}

func (c *SyncCmd) Run(ctx *cliCtx) error {
	cfg, svc, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Error during service shutdown", zap.Error(err))
		}
	}()

	if c.Once {
		cfg.SyncInterval = 0
	}
	return svc.Start(ctx)
}

func (c *ListCmd) Run(ctx *cliCtx) error {
	cfg, svc, err := setup(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	records, err := svc.Records(ctx)
	if err != nil {
		return err
	}

	if c.Page > 0 {
		pageSize := c.PageSize
		if pageSize < 1 {
			pageSize = cfg.PageGroupSize
		}
		records = models.Page(records, models.NewPaginationParams(c.Page, pageSize))
	}

	if c.Format == "table" {
		return writeTable(ctx.Out, records)
	}
	enc := json.NewEncoder(ctx.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeTable(out io.Writer, records []models.RepositoryRecord) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCOMMITS\tSTARS\tLANGUAGE\tPUSHED\tDESCRIPTION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n",
			r.Name, r.CommitCount, r.StarCount, r.Language, r.SimpleDate(), r.Description)
	}
	return w.Flush()
}
