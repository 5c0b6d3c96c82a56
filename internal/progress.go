package internal

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

// NewProgressBar returns a progress bar on stderr for writing size bytes of an archive.
//
// The description carries the verb and the humanised total, for example "uploading 1.2 GiB". Stdout is never touched
// so that it can carry archive bytes.
func NewProgressBar(size int64, verb string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetDescription(fmt.Sprintf("%s %s", verb, humanize.IBytes(uint64(size)))),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(20),
		progressbar.OptionThrottle(500*time.Millisecond),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(os.Stderr)
		}))
}

// ProgressLogger is an io.Writer that tallies the bytes written to it and logs the tally at most once per interval.
//
// Write is safe for concurrent use so the same ProgressLogger can be shared by parallel part uploads.
type ProgressLogger struct {
	logger *log.Logger
	verb   string
	rate   *rate.Sometimes
	size   int64
	n      atomic.Int64
}

var _ io.Writer = (*ProgressLogger)(nil)

// NewProgressLogger returns a ProgressLogger that logs `<verb> X / Y so far` every interval.
func NewProgressLogger(logger *log.Logger, verb string, size int64, interval time.Duration) *ProgressLogger {
	return &ProgressLogger{
		logger: logger,
		verb:   verb,
		rate:   &rate.Sometimes{Interval: interval},
		size:   size,
	}
}

func (l *ProgressLogger) Write(p []byte) (int, error) {
	n := l.n.Add(int64(len(p)))

	l.rate.Do(func() {
		l.logger.Printf("%s %s / %s so far", l.verb, humanize.IBytes(uint64(n)), humanize.IBytes(uint64(l.size)))
	})

	return len(p), nil
}

// Done logs the final tally.
func (l *ProgressLogger) Done() {
	if n := l.n.Load(); n == l.size {
		l.logger.Printf("%s %s in total", l.verb, humanize.IBytes(uint64(n)))
	} else {
		l.logger.Printf("%s %s / %s in total", l.verb, humanize.IBytes(uint64(n)), humanize.IBytes(uint64(l.size)))
	}
}

// Written returns the number of bytes tallied so far.
func (l *ProgressLogger) Written() int64 {
	return l.n.Load()
}
