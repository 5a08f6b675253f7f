package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	ghAPI "github.com/cli/go-gh/v2/pkg/api"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.github.com/"

// Options configures a Client. Token is used as-is; acquiring it is the
// caller's job.
type Options struct {
	Owner   string
	Repo    string
	Token   string
	BaseURL string
	// RateLimit caps outgoing requests per second. Zero disables throttling.
	RateLimit float64
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client performs one HTTP call per logical GitHub Actions resource. It is
// safe for concurrent use by fetch workers.
type Client struct {
	rest    *ghAPI.RESTClient
	baseURL string
	owner   string
	repo    string
	limiter *rate.Limiter
	log     *zap.Logger

	rateLimit atomic.Pointer[RateLimit]
}

type RateLimit struct {
	Remaining int
	Limit     int
	Reset     int64
}

func NewClient(opts Options) (*Client, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", base, err)
	}

	rest, err := ghAPI.NewRESTClient(ghAPI.ClientOptions{
		AuthToken:    opts.Token,
		Host:         hostForAPI(u.Hostname()),
		Timeout:      opts.Timeout,
		Transport:    opts.Transport,
		LogIgnoreEnv: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		rest:    rest,
		baseURL: base,
		owner:   opts.Owner,
		repo:    opts.Repo,
		log:     log.Named("api"),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return c, nil
}

// hostForAPI maps the REST endpoint host to the host go-gh authenticates.
func hostForAPI(host string) string {
	if strings.EqualFold(host, "api.github.com") {
		return "github.com"
	}
	return host
}

func (c *Client) repoPath(path string) string {
	return fmt.Sprintf("%srepos/%s/%s/%s", c.baseURL, c.owner, c.repo, path)
}

// RateLimit returns the quota reported by the most recent response.
func (c *Client) RateLimit() RateLimit {
	if rl := c.rateLimit.Load(); rl != nil {
		return *rl
	}
	return RateLimit{}
}

func (c *Client) get(ctx context.Context, u string, result interface{}) error {
	resp, err := c.request(ctx, http.MethodGet, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &TransportError{Op: "decode " + u, Err: err}
	}
	return nil
}

func (c *Client) post(ctx context.Context, u string) error {
	resp, err := c.request(ctx, http.MethodPost, u)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// request issues one call and classifies failures. The caller owns the
// response body on success.
func (c *Client) request(ctx context.Context, method, u string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: method + " " + u, Err: err}
		}
	}
	reqID := uuid.NewString()
	start := time.Now()
	c.log.Debug("request", zap.String("request_id", reqID), zap.String("method", method), zap.String("url", u))

	resp, err := c.rest.RequestWithContext(ctx, method, u, nil)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("request_id", reqID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, classify(method+" "+u, err)
	}
	rl := ParseRateLimit(resp)
	c.rateLimit.Store(&rl)
	c.log.Debug("response",
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Int("rate_remaining", rl.Remaining),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

func ParseRateLimit(resp *http.Response) RateLimit {
	rl := RateLimit{}
	if resp == nil {
		return rl
	}
	rl.Remaining, _ = strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	rl.Limit, _ = strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	rl.Reset, _ = strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	return rl
}
