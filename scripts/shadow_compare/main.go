// Command shadow_compare replays a set of read-only requests against the Go
// API and the legacy dashboard backend and reports response drift. Used
// during cutover to prove payout and metrics parity before retiring the old
// service.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type result struct {
	Target         target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	BodyMatch      bool
	Err            error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

func (r result) diverged() bool {
	return r.Err != nil || !r.StatusMatch || !r.BodyMatch
}

func main() {
	var (
		goBase      = flag.String("go-base", "http://localhost:8080", "Go API base URL")
		legacyBase  = flag.String("legacy-base", "http://localhost:5000", "Legacy dashboard base URL")
		targetsPath = flag.String("targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
		bearerToken = flag.String("token", os.Getenv("SHADOW_COMPARE_TOKEN"), "Bearer token sent to both backends")
		timeout     = flag.Duration("timeout", 10*time.Second, "HTTP client timeout")
	)
	flag.Parse()

	targets, err := loadTargets(*targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	runner := &runner{
		client:     &http.Client{Timeout: *timeout},
		goBase:     *goBase,
		legacyBase: *legacyBase,
		token:      *bearerToken,
	}

	var breaking, optional int
	results := make([]result, 0, len(targets))
	for _, t := range targets {
		res := runner.compare(t)
		if res.diverged() {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	report(results)
	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg struct {
		Targets []target `json:"targets"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

type runner struct {
	client     *http.Client
	goBase     string
	legacyBase string
	token      string
}

func (r *runner) compare(tgt target) result {
	res := result{Target: tgt}

	goBody, goStatus, goDur, err := r.fetch(r.goBase, tgt)
	res.DurationGo = goDur
	if err != nil {
		res.Err = fmt.Errorf("go request failed: %w", err)
		return res
	}
	legacyBody, legacyStatus, legacyDur, err := r.fetch(r.legacyBase, tgt)
	res.DurationLegacy = legacyDur
	if err != nil {
		res.Err = fmt.Errorf("legacy request failed: %w", err)
		return res
	}

	res.GoStatus = goStatus
	res.LegacyStatus = legacyStatus
	res.StatusMatch = goStatus == legacyStatus
	res.BodyMatch = bodiesEqual(goBody, legacyBody)
	return res
}

func (r *runner) fetch(base string, tgt target) (body []byte, status int, elapsed time.Duration, err error) {
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	url := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(tgt.Path, "/")

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	elapsed = time.Since(start)
	if err != nil {
		return nil, 0, elapsed, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, elapsed, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, elapsed, nil
}

// bodiesEqual tolerates float/int representation drift between the two
// backends; payout totals come back as 192.5 from one and "192.50" parsed to
// the same number from the other.
func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if json.Unmarshal(a, &aj) != nil || json.Unmarshal(b, &bj) != nil {
		return false
	}
	return reflect.DeepEqual(normalize(aj), normalize(bj))
}

// normalize collapses whole-valued floats to ints recursively so 192.0 and
// 192 compare equal.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			val[k] = normalize(inner)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = normalize(inner)
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	default:
		return v
	}
}

func report(results []result) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		switch {
		case res.Err != nil:
			status = "ERROR"
		case res.diverged():
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Printf("  Go Status: %d (%s)\n", res.GoStatus, res.DurationGo)
		fmt.Printf("  Legacy Status: %d (%s)\n", res.LegacyStatus, res.DurationLegacy)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
			continue
		}
		fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
	}
}
