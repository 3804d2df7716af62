// fs-loadgen is a tiny in-process load generator for the rate-limited
// file-system facade. It wraps a local-disk backend, applies a quota, and
// hammers it with a mix of read and stat traffic from concurrent
// workers, pacing request issue with golang.org/x/time/rate so the offered
// load is steady rather than bursty.
//
// Usage examples:
//
//	fs-loadgen -dir=/tmp/loadgen -read_rate=1048576 -read_burst=262144 -n=5000 -c=8
//	fs-loadgen -dir=/tmp/loadgen -mode=non_blocking -issue_rps=2000 -n=10000
//
// It prints a one-line summary with admitted/limited/exceeded counts and the
// observed throughput.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"ratelimitfs"
	"ratelimitfs/config"
	"ratelimitfs/fsys"
	"ratelimitfs/fsys/localfs"
	"ratelimitfs/throttled"
)

func main() {
	var (
		dir       = flag.String("dir", "", "Working directory (required); a scratch file is created inside")
		readRate  = flag.Int64("read_rate", 1<<20, "Read rate in bytes/second (0 = unlimited)")
		readBurst = flag.Int64("read_burst", 1<<18, "Read burst in bytes (0 = uncapped)")
		modeS     = flag.String("mode", "non_blocking", "Limiter mode: blocking|non_blocking")
		ioSize    = flag.Int("io_size", 4096, "Bytes per read request")
		n         = flag.Int("n", 5000, "Total requests to issue")
		conc      = flag.Int("c", 8, "Number of concurrent workers")
		issueRPS  = flag.Float64("issue_rps", 0, "Pace request issue at this rate (0 = as fast as possible)")
		statEvery = flag.Int("stat_every", 10, "Issue one stat per this many reads (0 = no stats)")
	)
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "-dir is required")
		os.Exit(2)
	}
	if *n <= 0 || *conc <= 0 || *ioSize <= 0 {
		fmt.Fprintln(os.Stderr, "-n, -c and -io_size must be > 0")
		os.Exit(2)
	}
	mode, err := config.ParseMode(*modeS)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Seed a scratch file big enough for offset reads.
	scratch := filepath.Join(*dir, "loadgen.dat")
	if err := os.WriteFile(scratch, make([]byte, *ioSize*4), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "seeding scratch file:", err)
		os.Exit(1)
	}

	reg := config.NewRegistry()
	inner := localfs.New("loadgen")
	if *readRate > 0 {
		if err := reg.SetRate(inner.Name(), config.OpRead, *readRate, mode); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *readBurst > 0 {
		if err := reg.SetBurst(inner.Name(), config.OpRead, *readBurst); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	fs := throttled.Wrap(inner, reg)

	// Pace request issue. An infinite limit turns the pacer into a no-op.
	pace := rate.NewLimiter(rate.Inf, 1)
	if *issueRPS > 0 {
		pace = rate.NewLimiter(rate.Limit(*issueRPS), *conc)
	}

	var (
		admitted atomic.Int64
		limited  atomic.Int64
		exceeded atomic.Int64
		failed   atomic.Int64
		issued   atomic.Int64
	)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		go func() {
			defer wg.Done()
			h, err := fs.OpenFile(scratch, fsys.OpenRead)
			if err != nil {
				failed.Add(1)
				return
			}
			defer h.Close()
			buf := make([]byte, *ioSize)
			for {
				i := issued.Add(1)
				if int(i) > *n {
					return
				}
				_ = pace.Wait(context.Background())
				var err error
				if *statEvery > 0 && int(i)%*statEvery == 0 {
					_, err = fs.FileSize(h)
				} else {
					_, err = fs.ReadAt(h, buf, int64((int(i)%4)**ioSize))
				}
				switch {
				case err == nil:
					admitted.Add(1)
				case errors.Is(err, ratelimitfs.ErrRateLimited):
					limited.Add(1)
				case errors.Is(err, ratelimitfs.ErrExceedsBurst):
					exceeded.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	bytes := admitted.Load() * int64(*ioSize)
	fmt.Printf("issued=%d admitted=%d rate_limited=%d exceeds_burst=%d failed=%d elapsed=%s approx=%.0f B/s\n",
		*n, admitted.Load(), limited.Load(), exceeded.Load(), failed.Load(),
		elapsed.Round(time.Millisecond), float64(bytes)/elapsed.Seconds())
}
