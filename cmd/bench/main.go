// Command bench runs a synthetic workload against the two-tier cache and
// exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tiercache/tiercache/cache"
	"github.com/tiercache/tiercache/codec"
	"github.com/tiercache/tiercache/disk"
	"github.com/tiercache/tiercache/memory"
	pmet "github.com/tiercache/tiercache/metrics/prom"
)

func main() {
	// ---- Flags ----
	var (
		memCost  = flag.Int64("mem_cost", 32<<20, "memory tier cost limit (bytes of value payload)")
		diskSize = flag.Int64("disk_bytes", 256<<20, "disk tier byte limit")
		dir      = flag.String("dir", "", "parent directory for the disk tier (default: temp dir)")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")
		valSize  = flag.Int("val", 512, "value size in bytes")

		keys  = flag.Int("keys", 100_000, "keyspace size")
		zipfS = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed  = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	memMetrics := pmet.New(nil, "tiercache", "memory", nil)
	diskMetrics := pmet.New(nil, "tiercache", "disk", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache ----
	parent := *dir
	if parent == "" {
		var err error
		parent, err = os.MkdirTemp("", "tiercache-bench-")
		if err != nil {
			log.Fatal(err)
		}
		defer os.RemoveAll(parent)
	}

	mem, err := memory.New[string, []byte](memory.Options[string, []byte]{
		CostLimit: *memCost,
		Metrics:   memMetrics,
	})
	if err != nil {
		log.Fatal(err)
	}
	dsk, err := disk.Open(disk.Options[string, []byte]{
		Name:      "bench",
		Dir:       parent,
		ByteLimit: *diskSize,
		Codec:     codec.Bytes(),
		Keys:      disk.StringKeys(),
		Metrics:   diskMetrics,
	})
	if err != nil {
		log.Fatal(err)
	}
	c, err := cache.New(mem, dsk, cache.Options[string, []byte]{})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	value := make([]byte, *valSize)
	for i := range value {
		value[i] = byte('a' + i%26)
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, hits, misses, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			keyByZipf := func() string {
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					if _, ok := c.Fetch(keyByZipf()); ok {
						atomic.AddUint64(&hits, 1)
					} else {
						atomic.AddUint64(&misses, 1)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					c.Set(keyByZipf(), value, int64(len(value)))
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	writesN := atomic.LoadUint64(&writes)
	hitsN := atomic.LoadUint64(&hits)
	missesN := atomic.LoadUint64(&misses)

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	st := dsk.Stats()
	fmt.Printf("mem_cost=%d disk_bytes=%d workers=%d keys=%d dur=%v seed=%d\n",
		*memCost, *diskSize, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
	fmt.Printf("disk: entries=%d bytes=%d evictions=%d\n", st.Entries, st.Bytes, st.Evictions)
}
