// Easlistenerctl is the command-line client for monitoring and controlling
// a running easlistenerd instance. It connects over HTTP and WebSocket to
// query status and stream live events from the daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/wagsendc/eas-listener/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "EAS listener daemon URL (e.g. http://192.168.8.1:8080)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter stream,log)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags like --limit are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	// ── Query commands ────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		err = ctl.Health(*host, *jsonOut)

	case "version":
		err = ctl.VersionInfo(*host, *jsonOut)

	case "streams":
		err = ctl.Streams(*host, *jsonOut)

	case "alerts":
		err = ctl.Alerts(*host, *jsonOut)

	case "logs":
		opts := ctl.LogsOptions{JSON: *jsonOut}
		logFlags := pflag.NewFlagSet("logs", pflag.ContinueOnError)
		logFlags.IntVar(&opts.Limit, "limit", 0, "Limit number of log entries shown")
		logFlags.BoolVar(&opts.Tail, "tail", false, "Stream live log events (like watch --filter log)")
		_ = logFlags.Parse(subArgs)
		err = ctl.Logs(*host, opts)

	// ── Control commands ──────────────────────────────────────────
	case "reload":
		err = ctl.Reload(*host, ctl.ReloadOptions{JSON: *jsonOut})

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
  easlistenerctl — EAS listener control CLI

  USAGE
    easlistenerctl [flags] <command> [command-flags]

  COMMANDS (query)
    status          Show daemon uptime, stream counts, and active alerts
    health          Check daemon liveness
    version         Show CLI and daemon version information
    streams         List per-stream connection telemetry
    alerts          List the currently active alerts
    logs            Show recent daemon log messages

  COMMANDS (control)
    reload          Touch the reload sentinel so config/filters re-load

  COMMANDS (live)
    watch           Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    logs:
        --limit N       Limit number of log entries shown
        --tail          Stream live log events

  EXAMPLES
    easlistenerctl status
    easlistenerctl --json status
    easlistenerctl --host http://192.168.8.1:8080 watch
    easlistenerctl streams
    easlistenerctl alerts
    easlistenerctl logs --limit 20
    easlistenerctl logs --tail
    easlistenerctl reload
    easlistenerctl watch --filter stream,log,alerts

`)
}
