package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"rpi-imager-diskwriter/cli/config"
	"rpi-imager-diskwriter/diagnostics"
	"rpi-imager-diskwriter/fatcustom"
	"rpi-imager-diskwriter/helper"
	"rpi-imager-diskwriter/ipc"
	"rpi-imager-diskwriter/log"
	"rpi-imager-diskwriter/manifest"
	"rpi-imager-diskwriter/metrics"
	"rpi-imager-diskwriter/notify"
	"rpi-imager-diskwriter/types"
	"rpi-imager-diskwriter/verify"
	"rpi-imager-diskwriter/writeengine"
)

// Exit codes for imgwriter-helper, per spec.md §6.
const (
	ExitSuccess       = 0
	ExitFailed        = 1
	ExitArgValidation = 2
	ExitNoOperation   = 3
)

// HelperApp builds the imgwriter-helper CLI: a flat, single-Action
// program rather than urfave/cli/v2 subcommands, since every flag here
// is a mode switch on the same process rather than a distinct verb tree
// (the closer analog is the runtime's flat run command, not the
// multi-command dashboard CLI).
func HelperApp() *cli.App {
	return &cli.App{
		Name:  "imgwriter-helper",
		Usage: "Elevated disk-write helper: serves one IPC session, or runs a single one-shot command",
		Flags: []cli.Flag{
			DaemonFlag, HelperFormatFlag, HelperWriteFlag, SourceFlag, SocketFlag,
			ConfigFlag, NoDiagnosticsFlag, NotifyRedisFlag, ManifestBucketFlag, LogLevelFlag,
		},
		Action:         helperAction,
		ExitErrHandler: exitErrHandler,
	}
}

// exitErrHandler unwraps a cli.ExitCoder (including through wrapped
// errors) so the process exits with the code the Action chose, rather
// than urfave/cli's default of always exiting 1.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		msg := exitCoder.Error()
		if msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(exitCoder.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitFailed)
}

func helperAction(c *cli.Context) error {
	cfg, err := loadHelperConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), ExitArgValidation)
	}

	socketName := firstNonEmpty(cfg.Socket.Name, ipc.DefaultSocketName)
	if c.IsSet("socket") {
		socketName = c.String("socket")
	}
	logLevel := firstNonEmpty(cfg.LogLevel, "info")
	if c.IsSet("log-level") {
		logLevel = c.String("log-level")
	}

	meta := types.SessionMeta{SessionID: uuid.NewString(), SocketName: socketName}
	logger := log.NewLoggerAtLevel(meta, log.ParseLevel(logLevel))

	diagSink, closeDiag, err := buildDiagnosticsSink(c, cfg, meta, logger)
	if err != nil {
		return cli.Exit(err.Error(), ExitArgValidation)
	}
	defer closeDiag()

	notifySink, closeNotify, err := buildNotifySink(c, cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), ExitArgValidation)
	}
	defer closeNotify()

	manifestSink, err := buildManifestSink(c, cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), ExitArgValidation)
	}

	collector := metrics.NewCollector(meta.SessionID, meta.SocketName)
	collector.IncSessionStarted()

	engine := writeengine.NewEngine(writeengine.NewDiskpart(), writeengine.NewDeviceOpener())
	customizer := fatcustom.NewCustomizer(fatcustom.NewFilesystemOpener())
	verifier := verify.NewVerifier(verify.NewDeviceReader())
	disp := newDispatcher(engine, customizer, verifier, diagSink, notifySink, manifestSink, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	switch {
	case c.Bool("daemon"):
		return runDaemon(ctx, socketName, disp, logger, collector, diagSink)
	case c.String("format") != "":
		return runOneShot(ctx, disp, logger, collector, types.VerbFormat, []string{c.String("format")})
	case c.String("write") != "":
		if c.String("source") == "" {
			return cli.Exit("--write requires --source", ExitArgValidation)
		}
		return runOneShot(ctx, disp, logger, collector, types.VerbWrite, []string{c.String("source"), c.String("write")})
	default:
		return cli.Exit("nothing to do: pass --daemon, --format, or --write", ExitNoOperation)
	}
}

func runDaemon(ctx context.Context, socketName string, disp *dispatcher, logger *log.Logger, collector *metrics.Collector, diagSink *diagnostics.Sink) error {
	listener, err := ipc.Listen(socketName)
	if err != nil {
		return cli.Exit(fmt.Sprintf("listen on %q: %v", socketName, err), ExitFailed)
	}
	defer listener.Close()

	diagSink.Record(ctx, diagnostics.MilestoneConnect, "", "", "")
	server := helper.NewServer(listener, disp, logger)
	if err := server.Serve(ctx); err != nil {
		collector.IncSessionErrored()
		diagSink.Record(ctx, diagnostics.MilestoneError, "", "", err.Error())
		return cli.Exit(err.Error(), ExitFailed)
	}
	collector.IncSessionCompleted()
	return nil
}

func runOneShot(ctx context.Context, disp *dispatcher, logger *log.Logger, collector *metrics.Collector, verb types.Verb, args []string) error {
	report := func(kind types.ProgressKind, now, total int64) {
		fmt.Fprintf(os.Stderr, "\r%s: %d/%d", kind, now, total)
		if now == total {
			fmt.Fprintln(os.Stderr)
		}
	}

	var err error
	switch verb {
	case types.VerbFormat:
		err = disp.Format(ctx, args, report)
	case types.VerbWrite:
		err = disp.Write(ctx, args, report)
	}

	if err != nil {
		collector.IncSessionErrored()
		logger.Error("one-shot command failed", map[string]any{"verb": string(verb), "error": err.Error()})
		return cli.Exit(err.Error(), ExitFailed)
	}
	collector.IncSessionCompleted()
	return nil
}

func loadHelperConfig(path string) (*config.Config, error) {
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

func buildDiagnosticsSink(c *cli.Context, cfg *config.Config, meta types.SessionMeta, logger *log.Logger) (*diagnostics.Sink, func(), error) {
	noop := func() {}
	if c.Bool("no-diagnostics") {
		return diagnostics.NewSink(nil, meta.SessionID, meta.SocketName, meta.PeerPID, logger, false), noop, nil
	}
	dir := firstNonEmpty(cfg.Diagnostics.Dir, defaultDiagnosticsDir())
	client, err := diagnostics.NewLodeClient(dir)
	if err != nil {
		return nil, noop, fmt.Errorf("open diagnostics dataset at %q: %w", dir, err)
	}
	sink := diagnostics.NewSink(client, meta.SessionID, meta.SocketName, meta.PeerPID, logger, true)
	return sink, func() { sink.Close() }, nil
}

func buildNotifySink(c *cli.Context, cfg *config.Config, logger *log.Logger) (*notify.Sink, func(), error) {
	noop := func() {}
	redisURL := firstNonEmpty(c.String("notify-redis"), cfg.Notify.RedisURL)
	if redisURL == "" {
		return notify.NewSink(nil, logger), noop, nil
	}
	notifierCfg := notify.Config{URL: redisURL, Channel: cfg.Notify.Channel, Timeout: cfg.Notify.Timeout.Duration, Retries: notify.DefaultRetries}
	if cfg.Notify.Retries != nil {
		notifierCfg.Retries = *cfg.Notify.Retries
	}
	notifier, err := notify.NewRedisNotifier(notifierCfg)
	if err != nil {
		return nil, noop, err
	}
	sink := notify.NewSink(notifier, logger)
	return sink, func() { sink.Close() }, nil
}

func buildManifestSink(c *cli.Context, cfg *config.Config, logger *log.Logger) (*manifest.Sink, error) {
	bucket := firstNonEmpty(c.String("manifest-bucket"), cfg.Manifest.Bucket)
	if bucket == "" {
		return manifest.NewSink(nil, logger), nil
	}
	uploader, err := manifest.NewS3Uploader(context.Background(), manifest.S3Config{Bucket: bucket, Region: cfg.Manifest.Region})
	if err != nil {
		return nil, err
	}
	return manifest.NewSink(uploader, logger), nil
}

func defaultDiagnosticsDir() string {
	if pd := os.Getenv("ProgramData"); pd != "" {
		return pd + `\rpi-imager-helper\diag`
	}
	return "./rpi-imager-helper-diag"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
