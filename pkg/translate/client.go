package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"ytmeta-go/pkg/logger"
)

// Translator turns text in source language into target language. "auto"
// as source lets the service detect it.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// StatusError is a non-200 answer from the translation endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("translation endpoint returned status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == fasthttp.StatusTooManyRequests || e.Code >= 500
}

var errEmptyTranslation = errors.New("empty translation")

type ClientConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialInterval   time.Duration `mapstructure:"initial_interval"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	// BreakerFailures consecutive failed translations open the circuit for
	// BreakerCooldown.
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:          "https://translate.googleapis.com/translate_a/single",
		Timeout:           10 * time.Second,
		MaxRetries:        5,
		InitialInterval:   time.Second,
		RequestsPerSecond: 1,
		BreakerFailures:   5,
		BreakerCooldown:   time.Minute,
	}
}

// HTTPClient talks to the public gtx translation endpoint over fasthttp.
type HTTPClient struct {
	config  ClientConfig
	client  *fasthttp.Client
	limiter *rate.Limiter
	breaker *CircuitBreaker
	log     *logger.Logger
}

func NewHTTPClient(config ClientConfig) *HTTPClient {
	def := DefaultClientConfig()
	if config.Endpoint == "" {
		config.Endpoint = def.Endpoint
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = def.InitialInterval
	}
	if config.BreakerFailures <= 0 {
		config.BreakerFailures = def.BreakerFailures
	}
	if config.BreakerCooldown <= 0 {
		config.BreakerCooldown = def.BreakerCooldown
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &HTTPClient{
		config: config,
		client: &fasthttp.Client{
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxConnsPerHost:     16,
			MaxIdleConnDuration: 90 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
		breaker: NewCircuitBreaker(config.BreakerFailures, config.BreakerCooldown),
		log:     logger.GetLogger().WithField("component", "translate_client"),
	}
}

// Translate retries 429 and 5xx answers with jittered exponential backoff,
// MaxRetries attempts in total. Any other failure is returned at once.
// While the circuit is open calls fail with ErrCircuitOpen without a request.
func (c *HTTPClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	if err := c.breaker.Allow(); err != nil {
		return "", err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.config.InitialInterval
	policy.MaxElapsedTime = 0

	attempt := 0
	var out string
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		res, err := c.do(text, source, target)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && se.Retryable() {
				return err
			}
			return backoff.Permanent(err)
		}
		out = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.WithFields(map[string]interface{}{
			"attempt": attempt,
			"wait":    wait.String(),
		}).WithError(err).Warn("Translation throttled, backing off")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.config.MaxRetries-1)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		c.breaker.Record(ctx.Err() == nil)
		if c.breaker.State() == StateOpen {
			c.log.WithField("cooldown", c.config.BreakerCooldown.String()).Warn("Translation circuit opened")
		}
		return "", fmt.Errorf("translate after %d attempt(s): %w", attempt, err)
	}
	c.breaker.Record(false)
	return out, nil
}

func (c *HTTPClient) do(text, source, target string) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", source)
	params.Set("tl", target)
	params.Set("dt", "t")

	req.SetRequestURI(c.config.Endpoint + "?" + params.Encode())
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString(url.Values{"q": {text}}.Encode())

	if err := c.client.DoTimeout(req, resp, c.config.Timeout); err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		body := string(resp.Body())
		if len(body) > 200 {
			body = body[:200]
		}
		return "", &StatusError{Code: resp.StatusCode(), Body: body}
	}
	return parseGTX(resp.Body())
}

// parseGTX extracts the translated segments from the nested array answer:
// [[["translated","original",...],...],...].
func parseGTX(body []byte) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("unexpected translation response: %w", err)
	}
	if len(raw) == 0 {
		return "", errEmptyTranslation
	}

	var segments [][]interface{}
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return "", fmt.Errorf("unexpected translation segments: %w", err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			sb.WriteString(s)
		}
	}
	if sb.Len() == 0 {
		return "", errEmptyTranslation
	}
	return sb.String(), nil
}
