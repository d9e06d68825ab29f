// Command authgate-loadtest drives an engine against Redis (or miniredis)
// and reports per-phase throughput and latency percentiles.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/userstore/memory"
)

type sessionState struct {
	access  string
	refresh string
	revoked atomic.Bool
}

func main() {
	var (
		sessions    = flag.Int("sessions", 2000, "number of sessions to log in")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per validate phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "rv-load", "revocation key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	client, cleanup, err := connect(*redisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	engine, err := buildEngine(client, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	if _, err := engine.Register(ctx, authgate.RegisterRequest{Identifier: "load", Password: "load-test-pw"}); err != nil {
		fmt.Fprintf(os.Stderr, "register: %v\n", err)
		os.Exit(1)
	}

	states := make([]sessionState, *sessions)
	loginStats := runPhase(*sessions, *concurrency, func(_ *mrand.Rand, i int) error {
		res, err := engine.LoginWithResult(ctx, "load", "load-test-pw")
		if err != nil {
			return err
		}
		states[i].access = res.AccessToken
		states[i].refresh = res.RefreshToken
		return nil
	})

	validateStats := runPhase(*ops, *concurrency, func(r *mrand.Rand, _ int) error {
		_, err := engine.ValidateAccess(ctx, states[r.Intn(len(states))].access)
		return err
	})

	// every other session logs out
	half := (len(states) + 1) / 2
	logoutStats := runPhase(half, *concurrency, func(_ *mrand.Rand, i int) error {
		s := &states[i*2]
		res := engine.LogoutWithResult(ctx, s.refresh)
		if res.Outcome != authgate.LogoutRevoked {
			return fmt.Errorf("logout outcome %s", res.Outcome)
		}
		s.revoked.Store(true)
		return nil
	})

	// a failure here is a token whose validity disagrees with its logout state
	mixedStats := runPhase(*ops, *concurrency, func(r *mrand.Rand, _ int) error {
		s := &states[r.Intn(len(states))]
		_, err := engine.ValidateAccess(ctx, s.access)
		switch {
		case s.revoked.Load() && !errors.Is(err, authgate.ErrTokenRevoked):
			return fmt.Errorf("revoked session accepted: %v", err)
		case !s.revoked.Load() && err != nil:
			return err
		}
		return nil
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("validate", validateStats)
	printStats("logout", logoutStats)
	printStats("validate-mixed", mixedStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: sessions=%d revoked=%d validate_revoked=%d store_errors=%d\n",
		snap.Counters[authgate.MetricSessionCreated],
		snap.Counters[authgate.MetricSessionRevoked],
		snap.Counters[authgate.MetricValidateRevoked],
		snap.Counters[authgate.MetricRevocationStoreError],
	)
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func buildEngine(client redis.UniversalClient, prefix string) (*authgate.Engine, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	cfg := authgate.DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.Revocation.RedisPrefix = prefix
	// login cost is not what this measures
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false

	return authgate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(memory.New()).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
}

func runPhase(ops, concurrency int, op func(r *mrand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-15s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
