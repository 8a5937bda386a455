package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/shard-runtime/cmd/shard/internal/config"
	"github.com/wippyai/shard-runtime/engine"
)

func main() {
	var (
		file        = flag.String("file", "", "Path to the JSON view document (- for stdin)")
		url         = flag.String("url", "", "HTTP(S) URL to fetch the JSON view document from")
		host        = flag.String("host", "", "Host to render with: html, term or wasm")
		guest       = flag.String("guest", "", "Guest module for -host wasm")
		width       = flag.Float64("width", 0, "Viewport width (0 = terminal width or unbounded)")
		height      = flag.Float64("height", 0, "Viewport height (0 = unbounded)")
		configPath  = flag.String("config", "", "Path to shard.yaml")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Log engine activity to stderr")
		stats       = flag.Bool("stats", false, "Print manager statistics after rendering")
	)
	flag.Parse()

	source := *file
	if *url != "" {
		if source != "" {
			fmt.Fprintln(os.Stderr, "Error: -file and -url are mutually exclusive")
			os.Exit(1)
		}
		if !isURL(*url) {
			fmt.Fprintf(os.Stderr, "Error: -url %q is not an http or https URL\n", *url)
			os.Exit(1)
		}
		source = *url
	}
	if source == "" {
		fmt.Fprintln(os.Stderr, "Usage: shard -file <doc.json> [-host html|term|wasm] [-width N] [-height N]")
		fmt.Fprintln(os.Stderr, "       shard -url <http://host/doc.json> [-host html|term|wasm]")
		fmt.Fprintln(os.Stderr, "       shard -file <doc.json> -host wasm -guest <views.wasm>")
		fmt.Fprintln(os.Stderr, "       shard -file <doc.json> -i  (interactive mode)")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath, *host, *guest, float32(*width), float32(*height))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	engine.SetLogger(log)

	if *interactive {
		err = runInteractive(cfg, source, log)
	} else {
		err = run(cfg, source, log, *stats)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads shard.yaml and applies flag overrides.
func loadConfig(path, host, guest string, width, height float32) (*config.Config, error) {
	required := path != ""
	if path == "" {
		path = config.DefaultFile
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}

	if host != "" {
		cfg.Host = host
	}
	if guest != "" {
		cfg.Guest = guest
		if host == "" {
			cfg.Host = config.HostWasm
		}
	}
	if width > 0 {
		cfg.Viewport.Width = width
	}
	if height > 0 {
		cfg.Viewport.Height = height
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	lvl, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func run(cfg *config.Config, file string, log *zap.Logger, showStats bool) (err error) {
	s, err := newSession(context.Background(), cfg, file, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	size := viewport(cfg.Viewport.Width, cfg.Viewport.Height)
	if cfg.Host == config.HostTerm && cfg.Viewport.Width == 0 {
		if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
			if w, _, err := term.GetSize(fd); err == nil {
				size.Width = float32(w)
			}
		}
	}
	if err := s.load(size); err != nil {
		return err
	}
	out, err := s.render()
	if err != nil {
		return err
	}
	fmt.Println(out)

	if showStats {
		fmt.Fprintln(os.Stderr, s.stats())
	}
	return nil
}
