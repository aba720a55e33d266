package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/opd-ai/openelp"
	"github.com/opd-ai/openelp/logging"
)

// DefaultConfigPath is used when no configuration path is given.
const DefaultConfigPath = "ELProxy.conf"

var (
	errLogConflict   = errors.New("cannot use both syslog and a log file")
	errExtraArgument = errors.New("config path already specified")
	errShowHelp      = errors.New("help requested")
)

// CLIConfig holds the parsed command line.
type CLIConfig struct {
	foreground bool
	logPath    string
	syslog     bool
	configPath string
}

// parseCLIFlags parses args, not including the program name.
func parseCLIFlags(args []string) (*CLIConfig, error) {
	config := &CLIConfig{}
	var help bool

	fs := flag.NewFlagSet("openelpd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.BoolVarP(&config.foreground, "foreground", "F", false, "Stay in foreground")
	fs.StringVarP(&config.logPath, "log", "L", "", "Log to the given file")
	fs.BoolVarP(&config.syslog, "syslog", "S", false, "Log to syslog")
	fs.BoolVar(&help, "help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errShowHelp
		}
		return nil, err
	}
	if help {
		return nil, errShowHelp
	}

	switch fs.NArg() {
	case 0:
		config.configPath = DefaultConfigPath
	case 1:
		config.configPath = fs.Arg(0)
	default:
		return nil, errExtraArgument
	}

	return config, validateCLIConfig(config)
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.syslog && config.logPath != "" {
		return errLogConflict
	}
	if config.configPath == "" {
		return fmt.Errorf("invalid config path")
	}
	return nil
}

// printUsage prints the usage information.
func printUsage(w io.Writer) {
	fmt.Fprintf(w, "%s\n\n", openelp.Banner())
	fmt.Fprintln(w, "Usage: openelpd [-F] [-L <log path>] [-S] [--help] [<config path>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "    -F            Stay in foreground (accepted; openelpd never detaches)")
	fmt.Fprintln(w, "    -L <log path> Log to the given file once the proxy is open")
	fmt.Fprintln(w, "    -S            Log to syslog once the proxy is open")
	fmt.Fprintf(w, "    <config path> Path to the proxy configuration. Defaults to %s\n", DefaultConfigPath)
}

// exitCode maps err to the process exit status: the negated errno when err
// carries one, fallback otherwise.
func exitCode(err error, fallback int) int {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return -int(errno)
	}
	return fallback
}

// handleSignals calls Shutdown for every signal received until done closes.
func handleSignals(proxy *openelp.Proxy, sigs <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case sig := <-sigs:
			proxy.Log(logging.LevelInfo, "Caught signal %v, shutting down", sig)
			proxy.Shutdown()
		case <-done:
			return
		}
	}
}

// run executes the daemon and returns its exit status.
func run(args []string, stdout, stderr io.Writer, sigs <-chan os.Signal) int {
	cliConfig, err := parseCLIFlags(args)
	if errors.Is(err, errShowHelp) {
		printUsage(stdout)
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		fmt.Fprintln(stderr, "Use --help for usage information.")
		return -int(syscall.EINVAL)
	}

	proxy, err := openelp.New(&openelp.Options{Console: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize proxy: %v\n", err)
		return exitCode(err, -int(syscall.EINVAL))
	}

	done := make(chan struct{})
	go handleSignals(proxy, sigs, done)

	code := serve(proxy, cliConfig)

	close(done)
	if err := proxy.Free(); err != nil {
		fmt.Fprintf(stderr, "Failed to release proxy: %v\n", err)
	}
	return code
}

// serve takes a freshly created proxy from configuration to shutdown.
func serve(proxy *openelp.Proxy, cliConfig *CLIConfig) int {
	if err := proxy.LoadConfig(cliConfig.configPath); err != nil {
		proxy.Log(logging.LevelFatal, "Failed to load config from '%s': %v", cliConfig.configPath, err)
		return exitCode(err, -int(syscall.EINVAL))
	}

	if err := proxy.Open(); err != nil {
		proxy.Log(logging.LevelFatal, "Failed to open proxy: %v", err)
		return exitCode(err, -int(syscall.EIO))
	}

	proxy.Ident()

	switch {
	case cliConfig.logPath != "":
		proxy.Log(logging.LevelInfo, "Switching log to file \"%s\"", cliConfig.logPath)
		if err := proxy.SelectMedium(logging.MediumFile, cliConfig.logPath); err != nil {
			proxy.Log(logging.LevelError, "Failed to open log file: %v", err)
		}
	case cliConfig.syslog:
		proxy.Log(logging.LevelInfo, "Switching log to syslog")
		if err := proxy.SelectMedium(logging.MediumSyslog, ""); err != nil {
			proxy.Log(logging.LevelError, "Failed to activate syslog: %v", err)
		}
	}

	proxy.Log(logging.LevelInfo, "Ready")

	if err := proxy.Run(); err != nil {
		proxy.Log(logging.LevelFatal, "Proxy stopped: %v", err)
		return exitCode(err, -int(syscall.EIO))
	}

	proxy.Log(logging.LevelInfo, "Shutting down")
	return 0
}

// main is the entry point for the daemon.
func main() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, sigs))
}
