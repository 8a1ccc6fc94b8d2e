// Package probe answers "is this service up?" and "what hardware is this?"
// with short timeouts. Results are meant to be computed once per run and
// cached by the caller through Once.
package probe

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Timeouts.
const (
	DefaultTimeout = 2 * time.Second
	DefaultMaxWait = 3 * time.Minute
)

// Result is the outcome of a single probe.
type Result struct {
	Name      string
	Target    string
	Reachable bool
	Latency   time.Duration
	Status    string
	Err       error
}

// Once caches the first Result computed through it.
type Once struct {
	once sync.Once
	res  Result
}

// Do runs fn the first time it is called and returns the cached result afterwards.
func (o *Once) Do(fn func() Result) Result {
	o.once.Do(func() {
		o.res = fn()
	})
	return o.res
}

// TCP dials addr ("host:port").
func TCP(ctx context.Context, addr string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	res := Result{Name: "tcp", Target: addr}

	d := net.Dialer{Timeout: timeout}
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", addr)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err
		res.Status = "closed"
		return res
	}
	_ = conn.Close()
	res.Reachable = true
	res.Status = "open"

	return res
}

// NewClient returns an HTTP client for probes. With insecure set it accepts
// self-signed certificates.
func NewClient(timeout time.Duration, insecure bool) *req.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := req.C().
		SetTimeout(timeout).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)
	if insecure {
		c.EnableInsecureSkipVerify()
	}
	return c
}

// HTTP issues a GET against url. Any response below 500 counts as reachable.
func HTTP(ctx context.Context, client *req.Client, url string) Result {
	name := "http"
	if strings.HasPrefix(url, "https://") {
		name = "https"
	}
	res := Result{Name: name, Target: url}

	start := time.Now()
	resp, err := client.R().SetContext(ctx).Get(url)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err
		res.Status = "unreachable"
		return res
	}
	res.Status = resp.Status
	if resp.StatusCode >= 500 {
		res.Err = errors.Errorf("%s answered %s", url, resp.Status)
		return res
	}
	res.Reachable = true

	return res
}

// ---------------------------------------------------------------------------
// Health endpoint
// ---------------------------------------------------------------------------

// Health is the body of a translation server's GET /health.
type Health struct {
	Status string `json:"status"`
	Phase  string `json:"phase,omitempty"`
}

// Ready reports whether the server can take translation requests.
func (h Health) Ready() bool {
	switch strings.ToLower(h.Status) {
	case "ok", "ready", "healthy":
	default:
		return false
	}
	return h.Phase == "" || strings.EqualFold(h.Phase, "ready")
}

// CheckHealth fetches baseURL/health.
func CheckHealth(ctx context.Context, client *req.Client, baseURL string) (Health, error) {
	var h Health
	url := strings.TrimRight(baseURL, "/") + "/health"

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return h, errors.Wrapf(err, "GET %s", url)
	}
	if !resp.IsSuccessState() {
		return h, errors.Errorf("GET %s: %s", url, resp.Status)
	}
	if err := json.Unmarshal(resp.Bytes(), &h); err != nil {
		return h, errors.Wrapf(err, "GET %s: decoding health", url)
	}
	if h.Status == "" {
		return h, errors.Errorf("GET %s: response has no status", url)
	}

	return h, nil
}

// WaitHealthy polls baseURL/health with exponential backoff until the server
// reports ready or maxWait elapses. onPoll, if set, sees every answer.
func WaitHealthy(ctx context.Context, client *req.Client, baseURL string, maxWait time.Duration, onPoll func(Health, error)) (Health, error) {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = maxWait

	var last Health
	op := func() error {
		h, err := CheckHealth(ctx, client, baseURL)
		if onPoll != nil {
			onPoll(h, err)
		}
		if err != nil {
			return err
		}
		last = h
		if !h.Ready() {
			return errors.Errorf("server is %s (phase %q)", h.Status, h.Phase)
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return last, errors.Wrapf(err, "%s not healthy after %s", baseURL, maxWait)
	}

	return last, nil
}

// ---------------------------------------------------------------------------
// Parallel report
// ---------------------------------------------------------------------------

// Check is a named probe for Run.
type Check struct {
	Name string
	Fn   func(ctx context.Context) Result
}

// Run executes the independent checks concurrently and returns their results
// in input order.
func Run(ctx context.Context, checks []Check) []Result {
	results := make([]Result, len(checks))
	g, gctx := errgroup.WithContext(ctx)

	for i, c := range checks {
		g.Go(func() error {
			r := c.Fn(gctx)
			if r.Name == "" || c.Name != "" {
				r.Name = c.Name
			}
			results[i] = r
			log.Debug().Str("probe", r.Name).Str("target", r.Target).Bool("reachable", r.Reachable).Dur("latency", r.Latency).Msg("probe finished")
			return nil
		})
	}
	_ = g.Wait()

	return results
}
