package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/internal/auth/ntlm"
	"github.com/bastionsec/sharescan/internal/cli/prompt"
	"github.com/bastionsec/sharescan/internal/cli/timeutil"
	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/internal/rlimit"
	"github.com/bastionsec/sharescan/internal/telemetry"
	"github.com/bastionsec/sharescan/pkg/config"
	"github.com/bastionsec/sharescan/pkg/engine"
	metricsprom "github.com/bastionsec/sharescan/pkg/metrics/prometheus"
	"github.com/bastionsec/sharescan/pkg/models"
	"github.com/bastionsec/sharescan/pkg/store"
)

var (
	scanDomain       string
	scanServer       string
	scanUsername     string
	scanPassword     string
	scanHashes       string
	scanOU           string
	scanLDAPPort     int
	scanThreads      int
	scanBatchSize    int
	scanMaxDepth     int
	scanMaxComputers int
	scanShareTimeout time.Duration
	scanHostTimeout  time.Duration
	scanNoSensitive  bool
	scanRemote       string
	scanToken        string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan domain computers for SMB shares",
	Long: `Enumerate domain computers over LDAP and scan their SMB shares.

The scan probes every enumerated host, inventories its shares with the
achieved access level, and walks readable shares for filenames matching
the sensitivity patterns stored in the database. Results are written to
the result store under a new scan session.

Credentials are never read from the config file. Pass them with flags,
or omit --password to be prompted. Anonymous scans run when no username
is given. --hashes takes an NTLM hash (LM:NT or bare NT) instead of a
password.

With --remote the scan is submitted to a running sharescan server
instead of executing locally; progress is then followed over its API.

Examples:
  # Scan with a domain account, prompting for the password
  sharescan scan -d corp.example.com -s dc01.corp.example.com -u auditor

  # Anonymous scan of one OU with more workers
  sharescan scan -d corp.example.com -s dc01 --ou "OU=Servers,DC=corp,DC=example,DC=com" --threads 50

  # Pass-the-hash, skipping the sensitive-filename walk
  sharescan scan -d corp.example.com -s dc01 -u auditor -H 'aad3b435b51404eeaad3b435b51404ee:8846f7eaee8fb117ad06bdd830b7586c' --no-sensitive

  # Submit to a sharescan server and watch progress
  sharescan scan -d corp.example.com -s dc01 -u auditor -p secret --remote http://scanhost:8080 --token $TOKEN`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanDomain, "domain", "d", "", "DNS domain to enumerate (e.g. corp.example.com)")
	scanCmd.Flags().StringVarP(&scanServer, "server", "s", "", "Directory server hostname or address")
	scanCmd.Flags().StringVarP(&scanUsername, "username", "u", "", "Account to authenticate as (empty for anonymous)")
	scanCmd.Flags().StringVarP(&scanPassword, "password", "p", "", "Account password (prompted when omitted)")
	scanCmd.Flags().StringVarP(&scanHashes, "hashes", "H", "", "NTLM hash instead of a password (LM:NT or NT)")
	scanCmd.Flags().StringVar(&scanOU, "ou", "", "Restrict enumeration to one OU distinguished name")
	scanCmd.Flags().IntVar(&scanLDAPPort, "ldap-port", 0, "LDAP port (default from config)")
	scanCmd.Flags().IntVar(&scanThreads, "threads", 0, "Concurrent host scans (default from config)")
	scanCmd.Flags().IntVar(&scanBatchSize, "batch-size", 0, "Host partition and storage flush size (default from config)")
	scanCmd.Flags().IntVar(&scanMaxDepth, "max-depth", 0, "Directory depth of the sensitive-filename walk (default from config)")
	scanCmd.Flags().IntVar(&scanMaxComputers, "max-computers", 0, "Cap on enumerated computers (default from config)")
	scanCmd.Flags().DurationVar(&scanShareTimeout, "share-timeout", 0, "Per-share scan deadline (default from config)")
	scanCmd.Flags().DurationVar(&scanHostTimeout, "host-timeout", 0, "Per-host scan deadline (default from config)")
	scanCmd.Flags().BoolVar(&scanNoSensitive, "no-sensitive", false, "Inventory shares without the sensitive-filename walk")
	scanCmd.Flags().StringVar(&scanRemote, "remote", "", "Submit the scan to a sharescan server (URL) instead of running locally")
	scanCmd.Flags().StringVar(&scanToken, "token", "", "Bearer token for --remote (mint one with 'sharescan token')")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)

	if scanDomain == "" {
		scanDomain = cfg.Directory.Domain
	}
	if scanServer == "" {
		scanServer = cfg.Directory.Server
	}
	if scanDomain == "" {
		return fmt.Errorf("domain is required (--domain or directory.domain in config)")
	}
	if scanServer == "" {
		return fmt.Errorf("directory server is required (--server or directory.server in config)")
	}

	// Credentials come from flags or the prompt, never from the config
	// file.
	password := scanPassword
	if scanUsername != "" && password == "" && scanHashes == "" {
		password, err = prompt.Password(fmt.Sprintf("Password for %s", scanUsername))
		if err != nil {
			if prompt.IsAborted(err) {
				fmt.Println("\nAborted.")
				return nil
			}
			return err
		}
	}

	if scanRemote != "" {
		if scanHashes != "" {
			return fmt.Errorf("pass-the-hash is only supported for local scans")
		}
		return runRemoteScan(password)
	}

	creds, err := ntlm.Parse(scanUsername, password, scanHashes, scanDomain)
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "sharescan",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Each worker holds SMB sockets; a wide scan needs more than the
	// default soft nofile limit.
	if soft, err := rlimit.Maximize(); err != nil {
		logger.Warn("Could not raise file descriptor limit", logger.Err(err))
	} else {
		logger.Debug("File descriptor limit", "nofile", soft)
	}

	// Initialize metrics before the engine so instruments register on
	// the live registry.
	config.InitializeMetrics(cfg)
	m := metricsprom.NewScanMetrics()

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer func() { _ = st.Close() }()
	if err := st.Init(ctx); err != nil {
		return err
	}

	source, err := config.CreateDirectorySource(cfg.Directory, creds)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	prog := newProgressLine(os.Stderr)
	engineCfg := config.EngineConfig(cfg.Scan, scanDomain, scanOU)
	eng, err := engine.New(&engineCfg, source, config.CreateScannerFactory(cfg.Scan, creds), st, prog.Sink(), m)
	if err != nil {
		return err
	}

	// First Ctrl+C drains in-flight hosts, a second one kills the
	// process the usual way.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		signal.Stop(sigChan)
		logger.Warn("Interrupt received, draining in-flight hosts")
		cancel()
	}()

	logger.Info("Starting scan",
		"domain", scanDomain,
		"server", cfg.Directory.Server,
		"auth", creds.String(),
		"threads", engineCfg.Threads,
		"sensitive", engineCfg.ScanSensitive)

	summary, runErr := eng.Run(ctx)
	prog.Finish()

	if summary != nil {
		printScanSummary(os.Stdout, st, summary)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			// Partial results were persisted and summarized above.
			return fmt.Errorf("scan interrupted")
		}
		return runErr
	}
	return nil
}

// applyScanFlags overlays changed flags onto the loaded configuration.
// Unset flags keep the config file (or default) values.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("domain") {
		cfg.Directory.Domain = scanDomain
	}
	if flags.Changed("server") {
		cfg.Directory.Server = scanServer
	}
	if flags.Changed("ldap-port") {
		cfg.Directory.Port = scanLDAPPort
	}
	if flags.Changed("threads") {
		cfg.Scan.Threads = scanThreads
	}
	if flags.Changed("batch-size") {
		cfg.Scan.BatchSize = scanBatchSize
	}
	if flags.Changed("max-depth") {
		cfg.Scan.MaxDepth = scanMaxDepth
	}
	if flags.Changed("max-computers") {
		cfg.Scan.MaxComputers = scanMaxComputers
	}
	if flags.Changed("share-timeout") {
		cfg.Scan.ShareTimeout = scanShareTimeout
	}
	if flags.Changed("host-timeout") {
		cfg.Scan.HostTimeout = scanHostTimeout
	}
	if flags.Changed("no-sensitive") {
		enabled := !scanNoSensitive
		cfg.Scan.Sensitive = &enabled
	}
}

// progressLine renders lossy per-host progress on one stderr line. When
// stderr is not a terminal the line updates are suppressed; the log
// stream carries progress instead.
type progressLine struct {
	w    io.Writer
	tty  bool
	seen bool
}

func newProgressLine(w io.Writer) *progressLine {
	return &progressLine{w: w, tty: isCharDevice(w)}
}

// Sink returns the engine progress sink. Report is invoked from the
// engine's collector goroutine only, so no locking is needed.
func (p *progressLine) Sink() engine.ProgressSink {
	if !p.tty {
		return engine.NopSink{}
	}
	return engine.SinkFunc(func(host string, processed, total int) {
		p.seen = true
		fmt.Fprintf(p.w, "\r\033[K  %d/%d hosts  %s", processed, total, host)
	})
}

// Finish terminates the progress line so summary output starts clean.
func (p *progressLine) Finish() {
	if p.seen {
		fmt.Fprintln(p.w)
	}
}

func isCharDevice(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// printScanSummary renders the end-of-scan summary: totals from the
// engine plus access-level and category breakdowns from the store.
func printScanSummary(w io.Writer, st *store.GORMStore, sum *engine.Summary) {
	detail, err := st.Summary(context.Background(), sum.SessionID)
	if err != nil {
		logger.Debug("Session breakdown unavailable", logger.Err(err))
		detail = nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Scan summary")
	fmt.Fprintln(w, "============")
	fmt.Fprintf(w, "  Session:    %s\n", sum.SessionID)
	fmt.Fprintf(w, "  Status:     %s\n", sum.Status)
	fmt.Fprintf(w, "  Duration:   %s\n", timeutil.FormatDuration(sum.Duration))
	fmt.Fprintf(w, "  Hosts:      %s\n", humanize.Comma(int64(sum.Hosts)))

	fmt.Fprintf(w, "  Shares:     %s\n", humanize.Comma(int64(sum.Shares)))
	if detail != nil && len(detail.AccessLevels) > 0 {
		for _, level := range models.AccessLevelOrder() {
			if count, ok := detail.AccessLevels[string(level)]; ok {
				fmt.Fprintf(w, "    %-12s %s\n", level.String()+":", humanize.Comma(int64(count)))
			}
		}
	}

	fmt.Fprintf(w, "  Sensitive:  %s\n", humanize.Comma(int64(sum.Sensitive)))
	if detail != nil {
		for _, c := range detail.TopCategories {
			fmt.Fprintf(w, "    %-12s %s\n", c.Category+":", humanize.Comma(int64(c.Count)))
		}
	}

	if sum.DroppedBatches > 0 {
		fmt.Fprintf(w, "  Dropped batches: %d (counts above undercount actual findings)\n", sum.DroppedBatches)
	}
	fmt.Fprintln(w)
}
