// Command cooksync syncs recipes exported from Cooksync into a folder of
// Markdown notes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cooksync/cooksync/internal/auth"
	"github.com/cooksync/cooksync/internal/domain"
	"github.com/cooksync/cooksync/internal/notify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "cooksync:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cooksync",
		Usage: "Sync Cooksync recipes into Markdown notes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"COOKSYNC_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "vault",
				Usage: "Vault directory (overrides vault.root)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Send notices to the log instead of the terminal",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "connect",
				Usage: "Authorize this device with your Cooksync account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening it",
					},
				},
				Action: connect,
			},
			{
				Name:   "sync",
				Usage:  "Fetch new recipes now",
				Action: syncNow,
			},
			{
				Name:   "start",
				Usage:  "Sync if auto sync is on and the last sync is stale",
				Action: start,
			},
			{
				Name:  "status",
				Usage: "Show settings and recent activity",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of activity entries to show",
						Value: 10,
					},
				},
				Action: status,
			},
			{
				Name:   "unlock",
				Usage:  "Clear a sync lock left behind by an interrupted run",
				Action: unlock,
			},
			{
				Name:  "settings",
				Usage: "Change client settings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Vault folder recipes are written to",
					},
					&cli.BoolFlag{
						Name:  "auto-sync",
						Usage: "Sync automatically on start",
					},
				},
				Action: updateSettings,
			},
			{
				Name:   "customize",
				Usage:  "Open the page that controls how recipes are formatted",
				Action: customize,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored token",
				Action: logout,
			},
		},
	}
}

// urlPrinter is a BrowserOpener that only shows the URL.
type urlPrinter struct {
	notifier notify.Notifier
}

func (p urlPrinter) Open(url string) error {
	p.notifier.Info("Open this page to authorize Cooksync: " + url)
	return nil
}

func connect(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	var browser auth.BrowserOpener = auth.SystemBrowser{}
	if c.Bool("no-browser") {
		browser = urlPrinter{notifier: rt.notifier}
	}

	fmt.Fprintln(c.App.Writer, "Waiting for authorization in the browser...")
	if _, ok := rt.acquirer(browser).AcquireToken(c.Context); !ok {
		return cli.Exit("authorization did not complete", 1)
	}
	rt.notifier.Info("Connected to Cooksync")
	return nil
}

func syncNow(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.orch.Settings().Token == "" {
		rt.logger.Warn("no token stored, run `cooksync connect` first")
	}

	out := rt.orch.SyncNow(c.Context, newLabel(c.App.Writer))
	switch out.Status {
	case domain.SyncFailed:
		return cli.Exit("sync failed: "+out.Message, 1)
	case domain.SyncSkipped:
		return cli.Exit("another sync is running; use `cooksync unlock` if it was interrupted", 2)
	case domain.SyncCompleted:
		fmt.Fprintf(c.App.Writer, "%d written, %d failed\n", out.Written, out.Failed)
	}
	return nil
}

func start(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.orch.Startup(c.Context) {
		rt.logger.Info("startup sync not needed")
		return nil
	}
	rt.orch.Wait()
	if rt.orch.Settings().LastSyncFailed {
		return cli.Exit("sync failed", 1)
	}
	return nil
}

func status(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	s := rt.orch.Settings()
	w := c.App.Writer

	connected := "no"
	if s.Token != "" {
		connected = "yes"
	}
	lastSync := "never"
	if s.LastSyncTimestamp != nil {
		lastSync = s.LastSyncTimestamp.Local().Format(time.RFC1123)
	}

	fmt.Fprintf(w, "Server:           %s\n", rt.cfg.Server.BaseURL)
	fmt.Fprintf(w, "Device ID:        %s\n", rt.ids.DeviceID())
	fmt.Fprintf(w, "Connected:        %s\n", connected)
	fmt.Fprintf(w, "Target directory: %s\n", s.TargetDirectory)
	fmt.Fprintf(w, "Auto sync:        %t\n", s.AutoSyncOnStartup)
	fmt.Fprintf(w, "Syncing:          %t\n", s.IsSyncing)
	fmt.Fprintf(w, "Last sync:        %s\n", lastSync)
	fmt.Fprintf(w, "Last sync failed: %t\n", s.LastSyncFailed)
	fmt.Fprintf(w, "Imported records: %d\n", len(s.ImportedRecordIDs))

	entries, err := rt.activity.Recent(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("read activity: %w", err)
	}
	if len(entries) > 0 {
		fmt.Fprintln(w, "\nRecent activity:")
		for _, e := range entries {
			fmt.Fprintf(w, "  %s  %-5s  %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Level, e.Message)
		}
	}
	return nil
}

func unlock(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	cleared, err := rt.orch.ClearSyncLock(c.Context)
	if err != nil {
		return err
	}
	if cleared {
		rt.notifier.Info("Sync lock cleared")
	} else {
		fmt.Fprintln(c.App.Writer, "No sync lock was set")
	}
	return nil
}

func updateSettings(c *cli.Context) error {
	if !c.IsSet("dir") && !c.IsSet("auto-sync") {
		return cli.Exit("nothing to change: pass --dir or --auto-sync", 2)
	}

	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	if c.IsSet("dir") {
		if err := rt.orch.SetTargetDirectory(c.Context, c.String("dir")); err != nil {
			return err
		}
	}
	if c.IsSet("auto-sync") {
		if err := rt.orch.SetAutoSync(c.Context, c.Bool("auto-sync")); err != nil {
			return err
		}
	}

	s := rt.orch.Settings()
	fmt.Fprintf(c.App.Writer, "Target directory: %s\nAuto sync:        %t\n", s.TargetDirectory, s.AutoSyncOnStartup)
	return nil
}

func customize(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	url := rt.client.CustomizeURL()
	if err := (auth.SystemBrowser{}).Open(url); err != nil {
		rt.logger.Warn("open customize page", "error", err)
		fmt.Fprintln(c.App.Writer, url)
	}
	return nil
}

func logout(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.orch.StoreToken(c.Context, ""); err != nil {
		return err
	}
	rt.notifier.Info("Disconnected from Cooksync")
	return nil
}
