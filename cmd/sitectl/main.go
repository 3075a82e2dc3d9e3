// cmd/sitectl/main.go
//
// Operator CLI for the customer-site registry.
//
// Usage
// -----
//
//	sitectl [-server URL] [-password PW | -credential HEX] [-json] <command> [args]
//
//	list                         every site the server knows
//	get    <id>                  one site with timestamps
//	add    <id> <api> <name>     create (add -adult to flag adult content)
//	update <id> <api> <name>     overwrite api, name, and adult
//	rm     <id>                  delete
//
// The password may also come from SITES_PASSWORD or the legacy PASSWORD
// variable; only its SHA-256 digest is ever sent.  Input is checked here
// (required fields, http(s) api) before anything goes over the wire.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/internal/auth"
	"github.com/yanizio/libretv-sites/internal/directory"
	"github.com/yanizio/libretv-sites/internal/logger"
	"github.com/yanizio/libretv-sites/internal/site"
	"github.com/yanizio/libretv-sites/internal/sitecache"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type app struct {
	out     io.Writer
	asJSON  bool
	client  *sitecache.Client
	cache   *sitecache.Cache
	cred    string
	timeout time.Duration
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sitectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		serverURL  = fs.String("server", envOr("SITES_SERVER", "http://localhost:8080"), "service base URL")
		password   = fs.String("password", envOr("SITES_PASSWORD", os.Getenv("PASSWORD")), "operator password")
		credential = fs.String("credential", "", "pre-computed credential (hex SHA-256), overrides -password")
		asJSON     = fs.Bool("json", false, "print JSON instead of a table")
		timeout    = fs.Duration("timeout", 15*time.Second, "per-command timeout")
		verbose    = fs.Bool("v", false, "log requests to stderr")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: sitectl [flags] list|get|add|update|rm [args]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	log := zap.NewNop().Sugar()
	if *verbose {
		if l, err := logger.New(logger.Options{Level: "debug"}); err == nil {
			log = l
		}
	}

	client, err := sitecache.NewClient(*serverURL)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	cred := *credential
	if cred == "" && *password != "" {
		cred = auth.Digest(*password)
	}

	a := &app{
		out:     stdout,
		asJSON:  *asJSON,
		client:  client,
		cache:   sitecache.New(client, directory.New(nil), sitecache.WithLogger(log)),
		cred:    cred,
		timeout: *timeout,
	}

	if err := a.dispatch(fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintln(stderr, "sitectl:", err)
		var ue usageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

type usageError string

func (u usageError) Error() string { return string(u) }

func (a *app) dispatch(cmd string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if a.cred == "" {
		return usageError("no credential: pass -password, -credential, or set SITES_PASSWORD")
	}

	switch cmd {
	case "list", "ls":
		if len(args) != 0 {
			return usageError("usage: list")
		}
		if err := a.cache.Init(ctx, a.cred); err != nil {
			return err
		}
		return a.printEntries(a.cache.Sites())

	case "get":
		if len(args) != 1 {
			return usageError("usage: get <id>")
		}
		rec, err := a.client.Get(ctx, a.cred, args[0])
		if err != nil {
			return err
		}
		return a.printRecord(rec)

	case "add", "update":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		adult := fs.Bool("adult", false, "adult content")
		if err := fs.Parse(args); err != nil || fs.NArg() != 3 {
			return usageError("usage: " + cmd + " [-adult] <id> <api> <name>")
		}
		id, api, name := fs.Arg(0), fs.Arg(1), fs.Arg(2)
		if err := checkInput(id, api, name); err != nil {
			return err
		}
		if err := a.cache.Init(ctx, a.cred); err != nil {
			return err
		}
		var err error
		if cmd == "add" {
			err = a.cache.Add(ctx, id, api, name, *adult)
		} else {
			err = a.cache.Update(ctx, id, api, name, *adult)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: %s\n", cmd, id)
		return nil

	case "rm", "delete":
		if len(args) != 1 {
			return usageError("usage: rm <id>")
		}
		if err := a.cache.Init(ctx, a.cred); err != nil {
			return err
		}
		if err := a.cache.Remove(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "removed: %s\n", args[0])
		return nil

	default:
		return usageError("unknown command " + cmd)
	}
}

// checkInput mirrors the server's validation so obvious mistakes never
// leave the machine.
func checkInput(id, api, name string) error {
	var missing []string
	for _, f := range []struct{ k, v string }{{"id", id}, {"api", api}, {"name", name}} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.k)
		}
	}
	if len(missing) > 0 {
		return usageError("missing required field(s): " + strings.Join(missing, ", "))
	}
	if !site.ValidAPI(api) {
		return usageError("api must start with http:// or https://")
	}
	return nil
}

func (a *app) printEntries(m map[string]site.Entry) error {
	if a.asJSON {
		return json.NewEncoder(a.out).Encode(m)
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADULT\tAPI")
	for _, id := range ids {
		e := m[id]
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", id, e.Name, e.Adult, e.API)
	}
	return tw.Flush()
}

func (a *app) printRecord(r *site.Record) error {
	if a.asJSON {
		return json.NewEncoder(a.out).Encode(r)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\nname\t%s\napi\t%s\nadult\t%t\ncreated\t%s\nupdated\t%s\n",
		r.ID, r.Name, r.API, r.Adult, r.CreatedAt, r.UpdatedAt)
	return tw.Flush()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
