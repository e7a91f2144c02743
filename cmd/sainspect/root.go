package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/koustreak/sqlany/internal/config"
	"github.com/koustreak/sqlany/internal/database"
	"github.com/koustreak/sqlany/internal/database/sqlanywhere"
	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/filestore"
	"github.com/koustreak/sqlany/internal/filestore/minio"
	"github.com/koustreak/sqlany/internal/logger"
	"github.com/koustreak/sqlany/internal/schema"
)

// app carries the global flags and the lazily opened connection shared by
// every subcommand.
type app struct {
	configPath string
	envFile    string
	schemaName string
	output     string

	cfg       *config.Config
	log       *logger.Logger
	driver    *sqlanywhere.Driver
	inspector *schema.Inspector
	store     filestore.Store
}

// newRootCmd builds the command tree. The caller closes the returned app
// once the command has run.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:           "sainspect",
		Short:         "Reflect and call into a SQL Anywhere database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file (default .env)")
	flags.StringVarP(&a.schemaName, "schema", "s", "", "schema (owner); defaults to database.default_schema")
	flags.StringVarP(&a.output, "output", "o", "json", "output format: json or text")

	root.AddCommand(
		newSchemasCmd(a),
		newTablesCmd(a),
		newDescribeCmd(a),
		newRoutinesCmd(a),
		newRoutineCmd(a),
		newCallCmd(a),
		newIntegrityCmd(a),
		newDDLCmd(a),
		newSnapshotCmd(a),
		newServeCmd(a),
	)
	return root, a
}

// loadConfig reads configuration and builds the logger without touching
// the database.
func (a *app) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.New(&cfg.Logging)
	logger.SetGlobal(a.log)
	return nil
}

// open connects to the database and builds the inspector.
func (a *app) open(ctx context.Context) error {
	if a.inspector != nil {
		return nil
	}
	if err := a.loadConfig(); err != nil {
		return err
	}
	drv, err := sqlanywhere.Open(ctx, &a.cfg.Database)
	if err != nil {
		return err
	}
	a.driver = drv
	dialect := sqlanywhere.New(drv, a.cfg.Database.DefaultSchema, a.log)
	a.inspector = schema.NewInspector(dialect, a.log)
	return nil
}

// publisher connects to the configured object store.
func (a *app) publisher(ctx context.Context) (*filestore.Publisher, error) {
	if err := a.loadConfig(); err != nil {
		return nil, err
	}
	if !a.cfg.Store.Enabled() {
		return nil, errs.New(errs.ErrKindConfiguration, "no snapshot store configured (store.provider, store.endpoint)")
	}
	if a.store == nil {
		store, err := minio.New(ctx, &a.cfg.Store)
		if err != nil {
			return nil, err
		}
		a.store = store
	}
	return filestore.NewPublisher(a.store, a.cfg.Store.Bucket, a.log), nil
}

func (a *app) close() {
	if a.driver != nil {
		a.driver.Close()
		a.driver = nil
	}
	if a.store != nil {
		_ = a.store.Close()
		a.store = nil
	}
}

// schema returns the --schema flag or the configured default schema.
func (a *app) schema() string {
	if a.schemaName != "" {
		return a.schemaName
	}
	if a.cfg != nil && a.cfg.Database.DefaultSchema != "" {
		return a.cfg.Database.DefaultSchema
	}
	return database.DefaultSchema
}

// queryContext applies the configured per-call deadline.
func (a *app) queryContext(parent context.Context) (context.Context, context.CancelFunc) {
	if a.cfg == nil || a.cfg.Database.QueryTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, a.cfg.Database.QueryTimeout)
}

// print writes v as indented JSON.
func (a *app) print(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printNames writes one name per line in text mode and JSON otherwise.
func (a *app) printNames(w io.Writer, header []string, rows [][]string, v any) error {
	if a.output != "text" {
		return a.print(w, v)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(header) > 1 {
		writeRow(tw, header)
	}
	for _, r := range rows {
		writeRow(tw, r)
	}
	return tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}
