package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/cmd/shard/internal/config"
	"github.com/wippyai/shard-runtime/engine"
	"github.com/wippyai/shard-runtime/host/htmlview"
	"github.com/wippyai/shard-runtime/host/termview"
	"github.com/wippyai/shard-runtime/host/wasmguest"
)

// fetchTimeout bounds one document download.
const fetchTimeout = 30 * time.Second

// session owns one manager and the Root currently rendered from a file or
// URL.
type session struct {
	ctx     context.Context
	cfg     *config.Config
	log     *zap.Logger
	file    string
	client  *http.Client
	manager *engine.ViewManager
	current *engine.Root
	output  func(w io.Writer, r *engine.Root) error
	closers []func() error
}

func newSession(ctx context.Context, cfg *config.Config, file string, log *zap.Logger) (*session, error) {
	s := &session{ctx: ctx, cfg: cfg, log: log, file: file, client: &http.Client{Timeout: fetchTimeout}}

	var factory shardruntime.ViewFactory
	switch cfg.Host {
	case config.HostHTML:
		factory = htmlview.NewHost(htmlview.WithLogger(log))
		s.output = func(w io.Writer, r *engine.Root) error {
			if err := htmlview.Render(w, r.View()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(w)
			return err
		}
	case config.HostTerm:
		factory = termview.NewHost(termview.WithLogger(log))
		s.output = func(w io.Writer, r *engine.Root) error {
			c, err := termview.Draw(r.View())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, c.String())
			return err
		}
	case config.HostWasm:
		wasm, err := os.ReadFile(cfg.Guest)
		if err != nil {
			return nil, fmt.Errorf("read guest: %w", err)
		}
		g, err := wasmguest.Load(ctx, wasm, &wasmguest.Config{Logger: log, Name: "views"})
		if err != nil {
			return nil, err
		}
		factory = g
		s.closers = append(s.closers, g.Close)
		s.output = writeFrames
	default:
		return nil, fmt.Errorf("unknown host %q", cfg.Host)
	}

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithMaxDepth(cfg.Document.MaxDepth),
	}
	if len(cfg.Document.Kinds) > 0 {
		opts = append(opts, engine.WithKinds(cfg.Document.Kinds...))
	}
	s.manager = engine.NewViewManager(factory, opts...)
	return s, nil
}

// writeFrames prints one line per view for hosts without a visual form.
func writeFrames(w io.Writer, r *engine.Root) error {
	for i, f := range r.Frames() {
		if _, err := fmt.Fprintf(w, "%3d  x=%g y=%g w=%g h=%g\n", i, f.X, f.Y, f.Width, f.Height); err != nil {
			return err
		}
	}
	return nil
}

func viewport(width, height float32) shardruntime.Size {
	size := shardruntime.UnboundedSize()
	if width > 0 {
		size.Width = width
	}
	if height > 0 {
		size.Height = height
	}
	return size
}

// load renders the file against size, replacing the current Root only on
// success.
func (s *session) load(size shardruntime.Size) error {
	data, err := s.read()
	if err != nil {
		return err
	}
	root, err := s.manager.RenderWith(nil, data, engine.RenderOptions{Constraint: &size})
	if err != nil {
		return err
	}
	if s.current != nil {
		if err := s.current.Free(); err != nil {
			s.log.Warn("previous root released with errors", zap.Error(err))
		}
	}
	s.current = root
	return nil
}

func (s *session) read() ([]byte, error) {
	if s.file == "-" {
		return io.ReadAll(os.Stdin)
	}
	if isURL(s.file) {
		return s.fetch(s.file)
	}
	data, err := os.ReadFile(s.file)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// fetch downloads a document. Anything but 200 OK is a failure.
func (s *session) fetch(url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch document: server responded with status code %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	s.log.Debug("document fetched", zap.String("url", url), zap.Int("bytes", len(data)))
	return data, nil
}

func (s *session) measure(size shardruntime.Size) error {
	if s.current == nil {
		return fmt.Errorf("nothing rendered")
	}
	return s.current.Measure(size)
}

func (s *session) render() (string, error) {
	if s.current == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := s.output(&buf, s.current); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func (s *session) stats() string {
	st := s.manager.Stats()
	return fmt.Sprintf("renders=%d failed=%d created=%d released=%d live=%d roots=%d",
		st.Renders, st.FailedRenders, st.ViewsCreated, st.ViewsReleased, st.LiveViews, st.LiveRoots)
}

func (s *session) close() error {
	var err error
	if s.current != nil {
		err = s.current.Free()
		s.current = nil
	}
	err = multierr.Append(err, s.manager.Close())
	for _, c := range s.closers {
		err = multierr.Append(err, c())
	}
	return err
}
