// cmd/provision/main.go
//
// One-shot relational store provisioning.
//
// Opens (creating if needed) the SQL database named by -dsn or by the
// loaded config, creates the customer_sites table, and records the DSN in
// conf/global.yaml as `storage.backend: sql` so the server picks it up on
// the next start.  Safe to run repeatedly.
//
// Usage
// -----
//
//	provision                         # use config, write yaml
//	provision -dsn data/sites.db      # explicit sqlite file
//	provision -dsn "postgres://…" -write=false
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"

	"github.com/yanizio/libretv-sites/internal/config"
	"github.com/yanizio/libretv-sites/internal/logger"
	"github.com/yanizio/libretv-sites/internal/store/sqlstore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run provisions the store and returns the process exit code: 0 on
// success, 1 on failure, and 2 on bad flags.
func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		dsn   = fs.String("dsn", "", "database DSN (default: storage.sql.dsn from config)")
		table = fs.String("table", "", "table name (default: storage.sql.table from config)")
		write = fs.Bool("write", true, "record the DSN in conf/global.yaml")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log, err := logger.New(logger.Options{Level: "info", Tee: true})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Errorw("load config", "err", err)
		return 1
	}
	if *dsn == "" {
		*dsn = cfg.Storage.SQL.DSN
	}
	if *dsn == "" {
		*dsn = filepath.Join(cfg.Paths.Root, "data", "customer_sites.db")
	}
	if *table == "" {
		*table = cfg.Storage.SQL.Table
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := sqlstore.Open(*dsn, *table)
	if err != nil {
		log.Errorw("open database", "err", err)
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warnw("close database", "err", err)
		}
	}()

	if err := st.EnsureSchema(ctx); err != nil {
		log.Errorw("create schema", "table", *table, "err", err)
		return 1
	}
	log.Infow("schema ready", "table", *table)

	if !*write {
		return 0
	}
	path := config.YAMLPath(cfg.Paths.Root)
	if err := recordDSN(path, *dsn, *table); err != nil {
		log.Errorw("update config", "file", path, "err", err)
		return 1
	}
	log.Infow("config updated", "file", path, "backend", config.BackendSQL)
	return 0
}

// recordDSN merges storage.backend, storage.sql.dsn, and storage.sql.table
// into the YAML file at path, keeping every other key.
func recordDSN(path, dsn, table string) error {
	k := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return err
		}
	}
	for key, val := range map[string]string{
		"storage.backend":   config.BackendSQL,
		"storage.sql.dsn":   dsn,
		"storage.sql.table": table,
	} {
		if err := k.Set(key, val); err != nil {
			return err
		}
	}

	out, err := k.Marshal(yaml.Parser())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
