// SPDX-License-Identifier: MIT

// catalogctl is a thin operational wrapper around the catalog cache: it is
// not part of the cache's own API contract, only a convenience for
// inspecting and driving one account's sync from a terminal or a cron job.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtreamcache/xtreamcache/internal/catalog"
	"github.com/xtreamcache/xtreamcache/internal/syncengine"
	"github.com/xtreamcache/xtreamcache/internal/xtream"
	"golang.org/x/time/rate"
)

var (
	version = "v0.1.0"
	commit  = "none"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "status":
		runStatus(os.Args[2:])
	case "sync":
		runSync(os.Args[2:])
	case "cancel":
		runCancel(os.Args[2:])
	case "vacuum":
		runVacuum(os.Args[2:])
	case "version":
		fmt.Printf("catalogctl %s (%s)\n", version, commit)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: catalogctl <status|sync|cancel|vacuum|version> [flags]")
}

func openStore(dbPath string) *catalog.Cache {
	store, err := catalog.Init(dbPath, catalog.DefaultConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, "open catalog:", err)
		os.Exit(1)
	}
	return store
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	dbPath := fs.String("db", "catalog.db", "path to the catalog database")
	account := fs.String("account", "", "account id")
	_ = fs.Parse(args)
	if *account == "" {
		fmt.Fprintln(os.Stderr, "status: -account is required")
		os.Exit(2)
	}

	store := openStore(*dbPath)
	defer store.Close()

	ctx := context.Background()
	status, err := store.GetSyncStatus(ctx, *account)
	if err != nil {
		fmt.Fprintln(os.Stderr, "get sync status:", err)
		os.Exit(1)
	}
	counts, err := store.GetContentCounts(ctx, *account)
	if err != nil {
		fmt.Fprintln(os.Stderr, "get content counts:", err)
		os.Exit(1)
	}

	out := struct {
		Status catalog.SyncStatus    `json:"status"`
		Counts catalog.ContentCounts `json:"counts"`
	}{status, counts}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	dbPath := fs.String("db", "catalog.db", "path to the catalog database")
	account := fs.String("account", "", "account id")
	baseURL := fs.String("base-url", "", "Xtream panel base URL")
	username := fs.String("username", "", "Xtream panel username")
	password := fs.String("password", "", "Xtream panel password")
	incremental := fs.Bool("incremental", false, "run an incremental sync instead of a full one")
	_ = fs.Parse(args)
	if *account == "" || *baseURL == "" {
		fmt.Fprintln(os.Stderr, "sync: -account and -base-url are required")
		os.Exit(2)
	}

	store := openStore(*dbPath)
	defer store.Close()

	fetcher := xtream.NewHTTPFetcher(rate.Limit(5), 10)
	pipeline := syncengine.NewPipeline(store.Store, fetcher)
	acct := xtream.Account{ID: *account, BaseURL: *baseURL, Username: *username, Password: *password}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := make(chan syncengine.Progress, 16)
	done := make(chan syncengine.Result, 1)
	go func() {
		if *incremental {
			done <- pipeline.RunIncremental(ctx, *account, acct, progress)
		} else {
			done <- pipeline.RunFull(ctx, *account, acct, progress)
		}
	}()

	for {
		select {
		case p, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			fmt.Fprintf(os.Stderr, "[%s] %d%% (%d/%d) %s\n", p.Stage, p.Percent, p.ItemsDone, p.ItemsTotal, p.Message)
		case result := <-done:
			fmt.Printf("channels=%d movies=%d series=%d cancelled=%v errors=%d\n",
				result.Channels, result.Movies, result.Series, result.Cancelled, len(result.Errors))
			return
		}
	}
}

func runCancel(args []string) {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	pid := fs.Int("pid", 0, "process id of a running 'catalogctl sync' to interrupt")
	_ = fs.Parse(args)
	if *pid == 0 {
		fmt.Fprintln(os.Stderr, "cancel: catalogctl runs syncs in the foreground; "+
			"pass -pid to send the running 'sync' invocation SIGTERM")
		os.Exit(2)
	}
	proc, err := os.FindProcess(*pid)
	if err != nil {
		fmt.Fprintln(os.Stderr, "find process:", err)
		os.Exit(1)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		fmt.Fprintln(os.Stderr, "signal process:", err)
		os.Exit(1)
	}
}

func runVacuum(args []string) {
	fs := flag.NewFlagSet("vacuum", flag.ExitOnError)
	dbPath := fs.String("db", "catalog.db", "path to the catalog database")
	force := fs.Bool("force", false, "vacuum even if ShouldVacuum reports it isn't needed")
	_ = fs.Parse(args)

	store := openStore(*dbPath)
	defer store.Close()

	ctx := context.Background()
	should, err := store.ShouldVacuum(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "check vacuum:", err)
		os.Exit(1)
	}
	if !should && !*force {
		fmt.Println("vacuum not needed (use -force to run anyway)")
		return
	}
	if err := store.AnalyzeTables(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "analyze:", err)
		os.Exit(1)
	}
	if err := store.Vacuum(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "vacuum:", err)
		os.Exit(1)
	}
	fmt.Println("vacuum complete")
}
