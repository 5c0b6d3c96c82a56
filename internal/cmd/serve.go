package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nguyengg/rangetar"
	"github.com/nguyengg/rangetar/httpserve"
	"github.com/nguyengg/rangetar/internal"
	"github.com/nguyengg/rangetar/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Serve serves the archive at /<base>.tar (see internal.ArchiveName) and Prometheus metrics at /metrics until interrupted.
type Serve struct {
	Addr            string        `long:"addr" description:"the address to listen on" default:":8080"`
	ShutdownTimeout time.Duration `long:"shutdown-timeout" description:"how long to wait for in-flight requests on interrupt" default:"5s"`
	Args            DirArg        `positional-args:"yes"`

	global *internal.GlobalOptions
}

func (c *Serve) Execute(args []string) error {
	ctx, stop, err := start(args, c.Args.Dir)
	if err != nil {
		return err
	}
	defer stop()

	logger := internal.MustLogger(ctx)

	return scanAndRun(ctx, c.global, c.Args.Dir, func(idx *rangetar.Index) error {
		ln, err := net.Listen("tcp", c.Addr)
		if err != nil {
			return fmt.Errorf("listen error: %w", err)
		}

		path := ArchivePath(idx)
		logger.Printf("serving archive at http://%s%s", ln.Addr(), path)

		return serve(ctx, ln, NewServeMux(idx, prometheus.NewRegistry()), c.ShutdownTimeout)
	})
}

// ArchivePath returns the URL path at which the archive is served.
func ArchivePath(idx *rangetar.Index) string {
	return "/" + internal.ArchiveName(idx)
}

// NewServeMux returns the handler serving the archive at ArchivePath and the metrics registered with reg at /metrics.
func NewServeMux(idx *rangetar.Index, reg *prometheus.Registry) *http.ServeMux {
	m := metrics.New(reg)
	m.ArchiveBytes.Set(float64(idx.TotalLength()))
	m.Entries.Set(float64(len(idx.Entries())))

	path := ArchivePath(idx)

	archive := httpserve.New(idx, path[1:], func(opts *httpserve.Options) {
		opts.Observe = m.Observe
	})

	// the base name may contain characters that are not valid in a ServeMux pattern so match the path manually.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}

		archive.ServeHTTP(w, r)
	})
	return mux
}

// serve runs an HTTP server on ln until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve error: %w", err)
		}

		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}

		return nil
	})

	return eg.Wait()
}
