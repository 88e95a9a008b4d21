// Load generator for the moderation API. It posts a configurable mix of
// clean, spammy and toxic content and reports the decision breakdown, so
// threshold changes can be sanity-checked against realistic traffic.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/observability"
)

var (
	server   string
	users    int
	totalReq int
	conc     int
	rate     float64
	spamPct  float64
	toxicPct float64
)

var logger *zap.Logger

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
	},
}

var userAgents = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_3_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:111.0) Gecko/20100101 Firefox/111.0",
}

var cleanSamples = []string{
	"Just finished a great book about woodworking, highly recommend it.",
	"Does anyone have tips for growing tomatoes in a small garden?",
	"The sunset over the lake tonight was absolutely stunning.",
	"Thanks everyone for the helpful answers on my last question.",
}

var spamSamples = []string{
	"Buy now! Limited offer today! Click here: http://deals.example/a http://deals.example/b http://deals.example/c",
	"Make money fast, visit our website for an amazing discount deal now",
	"win win win win win win win win win win win prize",
}

var toxicSamples = []string{
	"You are all idiots and I hate this toxic community",
	"This site is full of stupid worthless morons",
	"I hate everything about this hateful place",
}

const statsInterval = 5 * time.Second

var (
	countSent   uint64
	countErrors uint64
	actionMu    sync.Mutex
	actionCount = map[string]uint64{}
)

type moderateRequest struct {
	Content   string `json:"content"`
	UserID    string `json:"user_id"`
	ContentID string `json:"content_id"`
}

func pickContent() string {
	r := rand.Float64()
	switch {
	case r < spamPct:
		return spamSamples[rand.Intn(len(spamSamples))]
	case r < spamPct+toxicPct:
		return toxicSamples[rand.Intn(len(toxicSamples))]
	default:
		return cleanSamples[rand.Intn(len(cleanSamples))]
	}
}

func sendOne(i int) {
	payload := moderateRequest{
		Content:   pickContent(),
		UserID:    fmt.Sprintf("sim-user-%d", rand.Intn(users)),
		ContentID: fmt.Sprintf("sim-content-%d", i),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		return
	}

	req, err := http.NewRequest(http.MethodPost, server+"/v1/moderate/content", bytes.NewReader(body))
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	atomic.AddUint64(&countSent, 1)
	resp, err := httpClient.Do(req)
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		atomic.AddUint64(&countErrors, 1)
		return
	}

	var decision models.Decision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		atomic.AddUint64(&countErrors, 1)
		return
	}
	actionMu.Lock()
	actionCount[string(decision.Action)]++
	actionMu.Unlock()
}

func printStats() {
	actionMu.Lock()
	breakdown := make(map[string]uint64, len(actionCount))
	for k, v := range actionCount {
		breakdown[k] = v
	}
	actionMu.Unlock()

	logger.Info("progress",
		zap.Uint64("sent", atomic.LoadUint64(&countSent)),
		zap.Uint64("errors", atomic.LoadUint64(&countErrors)),
		zap.Any("actions", breakdown))
}

func main() {
	flag.StringVar(&server, "server", "http://localhost:8790", "moderation server base URL")
	flag.IntVar(&users, "users", 50, "number of simulated users")
	flag.IntVar(&totalReq, "n", 1000, "total requests to send")
	flag.IntVar(&conc, "c", 10, "concurrent workers")
	flag.Float64Var(&rate, "rate", 100, "target requests per second")
	flag.Float64Var(&spamPct, "spam", 0.15, "fraction of spammy content")
	flag.Float64Var(&toxicPct, "toxic", 0.1, "fraction of toxic content")
	flag.Parse()

	var err error
	logger, err = observability.InitLogger("traffic-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting simulation",
		zap.String("server", server),
		zap.Int("requests", totalReq),
		zap.Int("workers", conc),
		zap.Float64("rate", rate))

	interval := time.Duration(float64(time.Second) / rate)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < conc; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				sendOne(i)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				printStats()
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	for i := 0; i < totalReq; i++ {
		<-ticker.C
		jobs <- i
	}
	ticker.Stop()
	close(jobs)
	wg.Wait()
	close(done)

	printStats()
	logger.Info("simulation complete")
}
