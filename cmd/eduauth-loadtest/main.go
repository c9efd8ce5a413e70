package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/directory/memstore"
)

const otpSecret = "JBSWY3DPEHPK3PXP"

type account struct {
	email string
	token string
}

func main() {
	var (
		principals  = flag.Int("principals", 2000, "number of users to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase")
		throttle    = flag.Bool("throttle", false, "enable redis-backed throttles")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *principals <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "principals, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	cfg := eduAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("loadtest-signing-secret-loadtest")
	cfg.OTP.Secret = otpSecret
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	builder := eduAuth.New()
	if *throttle {
		client, cleanup, err := redisClient(*redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		builder = builder.WithRedis(client)

		cfg.Security.EnableLoginThrottle = true
		cfg.Security.MaxLoginAttempts = 1 << 20
		cfg.Security.EnableOTPThrottle = true
		cfg.Security.MaxOTPAttempts = 1 << 20
	}

	engine, err := builder.WithConfig(cfg).WithDirectory(memstore.New()).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	accounts := make([]account, *principals)
	fmt.Printf("seeding %d users...\n", *principals)
	startSeed := time.Now()
	for i := range accounts {
		accounts[i].email = fmt.Sprintf("user%d@load.test", i)
		_, err := engine.Register(ctx, eduAuth.RoleUser, eduAuth.RegisterRequest{
			Name:     fmt.Sprintf("User %d", i),
			Email:    accounts[i].email,
			Password: "load-secret",
			Mobile:   fmt.Sprintf("9%09d", i),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runPhase(*ops, *concurrency, len(accounts), func(idx int) error {
		return engine.Login(ctx, eduAuth.RoleUser, eduAuth.LoginRequest{
			Email:    accounts[idx].email,
			Password: "load-secret",
		})
	})

	var tokens sync.Map
	verifyStats := runPhase(*ops, *concurrency, len(accounts), func(idx int) error {
		code, err := engine.OTPCode(time.Now())
		if err != nil {
			return err
		}
		res, err := engine.VerifyOTP(ctx, eduAuth.RoleUser, eduAuth.VerifyOTPRequest{
			Email: accounts[idx].email,
			OTP:   code,
		})
		if err != nil {
			return err
		}
		tokens.Store(idx, res.Token)
		return nil
	})
	tokens.Range(func(k, v any) bool {
		accounts[k.(int)].token = v.(string)
		return true
	})

	authStats := runPhase(*ops, *concurrency, len(accounts), func(idx int) error {
		token := accounts[idx].token
		if token == "" {
			return nil
		}
		_, err := engine.AuthenticateSession(ctx, eduAuth.RoleUser, token)
		return err
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("verify-otp", verifyStats)
	printStats("authenticate", authStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("authenticate latency buckets: %v\n", snap.Histograms[eduAuth.MetricAuthenticateLatency])
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
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
		return nil, nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// runPhase spreads ops calls of fn over concurrency workers, each picking a
// random account index.
func runPhase(ops, concurrency, accounts int, fn func(idx int) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(accounts)
				t0 := time.Now()
				err := fn(idx)
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
		return phaseStats{total: total}
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
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
