package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/archivist/internal/observability"
)

// UserAgent identifies Archivist on outbound webhook requests.
const UserAgent = "Archivist-Webhook/1.0"

// Store is the persistence the dispatcher depends on.
type Store interface {
	ListActiveForEvent(ctx context.Context, event string) ([]Webhook, error)
	Find(ctx context.Context, id uuid.UUID) (*Webhook, error)
	InsertLog(ctx context.Context, l *Log) error
	TouchLastTriggered(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Config controls delivery defaults.
type Config struct {
	DefaultTimeout    time.Duration
	DefaultRetryCount int
	MaxBackoff        time.Duration
	MaxResponseBytes  int64
}

func (c Config) normalize() Config {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 30 * time.Second
	}
	if c.DefaultRetryCount < 0 {
		c.DefaultRetryCount = 0
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 60 * time.Second
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = 10000
	}
	return c
}

// SleepFunc waits for d or until ctx is done. It reports whether the full
// delay elapsed.
type SleepFunc func(ctx context.Context, d time.Duration) bool

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClient sets the HTTP client used for deliveries. Redirects are never
// followed regardless of the client's own policy.
func WithClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		client := *c
		client.CheckRedirect = noRedirect
		d.client = &client
	}
}

// WithSleep replaces the retry delay implementation.
func WithSleep(fn SleepFunc) Option {
	return func(d *Dispatcher) { d.sleep = fn }
}

// WithClock replaces the time source used for payload timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// Dispatcher delivers signed event payloads to subscribed webhooks.
// First attempts are awaited by Trigger; retries run in the background
// until Wait or Shutdown observes them finishing.
type Dispatcher struct {
	store  Store
	client *http.Client
	cfg    Config
	logger *slog.Logger
	sleep  SleepFunc
	now    func() time.Time

	root   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher backed by store.
func NewDispatcher(store Store, cfg Config, logger *slog.Logger, opts ...Option) *Dispatcher {
	root, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		store:  store,
		client: &http.Client{CheckRedirect: noRedirect},
		cfg:    cfg.normalize(),
		logger: logger.With("system", "webhooks"),
		sleep:  sleepContext,
		now:    time.Now,
		root:   root,
		cancel: cancel,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Trigger delivers event to every active webhook subscribed to it.
// Failures are logged and recorded; they are never returned. After Shutdown
// the event is dropped.
func (d *Dispatcher) Trigger(ctx context.Context, event string, data any) {
	if d.isClosed() {
		d.logger.Warn("dispatcher closed, event dropped", "event", event)
		return
	}

	hooks, err := d.store.ListActiveForEvent(ctx, event)
	if err != nil {
		d.logger.Error("list webhooks failed", "event", event, "error", err)
		return
	}
	if len(hooks) == 0 {
		return
	}

	body, err := d.payload(event, data)
	if err != nil {
		d.logger.Error("encode payload failed", "event", event, "error", err)
		return
	}

	var g errgroup.Group
	for _, hook := range hooks {
		g.Go(func() error {
			d.deliver(ctx, &hook, event, body)
			return nil
		})
	}
	g.Wait()

	d.logger.Info("event dispatched", "event", event, "webhooks", len(hooks))
}

// Test sends a webhook.test event to a single webhook through the normal
// delivery pipeline and returns the first attempt's outcome.
func (d *Dispatcher) Test(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	hook, err := d.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !hook.IsActive {
		return nil, ErrInactive
	}

	body, err := d.payload(EventTest, map[string]any{
		"message":    "Test webhook from Archivist",
		"webhook_id": hook.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	delivery := d.deliver(ctx, hook, EventTest, body)
	return &delivery, nil
}

// Wait blocks until all background retries have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown waits for background retries until ctx is done, then cancels the
// remainder and waits for them to record their cancellation.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Dispatcher) payload(event string, data any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(Payload{
		Event:     event,
		Timestamp: d.now().UTC().Format(time.RFC3339),
		Data:      data,
	})
}

// deliver performs the first attempt and, on failure, schedules the
// retry sequence.
func (d *Dispatcher) deliver(ctx context.Context, hook *Webhook, event string, body []byte) Delivery {
	first := d.attempt(ctx, hook, event, body, 0)
	if first.Success || hook.RetryCount <= 0 {
		return first
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, retries skipped", "webhook_id", hook.ID, "event", event)
		return first
	}

	retryCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(d.root, cancel)

	d.wg.Go(func() {
		defer cancel()
		defer stop()
		d.retry(retryCtx, *hook, event, body)
	})

	return first
}

func (d *Dispatcher) retry(ctx context.Context, hook Webhook, event string, body []byte) {
	for n := 1; n <= hook.RetryCount; n++ {
		delay := d.backoff(n)

		if !d.sleep(ctx, delay) {
			msg := fmt.Sprintf("retry cancelled: %v", ctx.Err())
			d.record(ctx, &Log{
				WebhookID:    hook.ID,
				Event:        event,
				Payload:      body,
				ErrorMessage: &msg,
				Attempt:      n,
			})
			observability.WebhookDeliveries.WithLabelValues(event, "cancelled").Inc()
			d.logger.Warn("webhook retry cancelled", "webhook_id", hook.ID, "event", event, "attempt", n)
			return
		}

		if d.attempt(ctx, &hook, event, body, n).Success {
			return
		}
	}

	d.logger.Warn("webhook retries exhausted", "webhook_id", hook.ID, "event", event, "attempts", hook.RetryCount+1)
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := time.Duration(1<<min(attempt, 30)) * time.Second
	return min(delay, d.cfg.MaxBackoff)
}

func (d *Dispatcher) attempt(ctx context.Context, hook *Webhook, event string, body []byte, n int) Delivery {
	timeout := d.cfg.DefaultTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}

	entry := &Log{
		WebhookID: hook.ID,
		Event:     event,
		Payload:   body,
		Attempt:   n,
	}

	start := time.Now()
	code, respBody, err := d.post(ctx, hook, event, body, timeout)
	elapsed := time.Since(start)
	entry.ExecutionTimeMs = elapsed.Milliseconds()

	delivery := Delivery{
		WebhookID:  hook.ID,
		Event:      event,
		Attempt:    n,
		StatusCode: code,
		DurationMs: entry.ExecutionTimeMs,
	}

	switch {
	case err != nil:
		msg := err.Error()
		entry.ErrorMessage = &msg
		delivery.Error = msg
	default:
		entry.ResponseCode = &code
		entry.ResponseBody = &respBody
		if code < 200 || code >= 300 {
			msg := fmt.Sprintf("HTTP %d", code)
			entry.ErrorMessage = &msg
			delivery.Error = msg
		} else {
			delivery.Success = true
		}
	}

	d.record(ctx, entry)

	outcome := "failure"
	if delivery.Success {
		outcome = "success"
		if err := d.store.TouchLastTriggered(context.WithoutCancel(ctx), hook.ID, time.Now()); err != nil {
			d.logger.Error("update last triggered failed", "webhook_id", hook.ID, "error", err)
		}
	}

	observability.WebhookDeliveries.WithLabelValues(event, outcome).Inc()
	observability.WebhookDuration.WithLabelValues(event).Observe(elapsed.Seconds())

	d.logger.Info(
		"webhook attempt",
		"webhook_id", hook.ID,
		"event", event,
		"attempt", n,
		"status", code,
		"success", delivery.Success,
		"duration", elapsed,
	)

	return delivery
}

func (d *Dispatcher) post(
	ctx context.Context,
	hook *Webhook,
	event string,
	body []byte,
	timeout time.Duration,
) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Webhook-Signature", Sign(hook.Secret, body))
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Id", hook.ID.String())

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxResponseBytes))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, responseText(data), nil
}

// responseText makes a captured body storable as TEXT: a rune split by the
// size cap is dropped, invalid sequences become U+FFFD and NUL bytes are
// removed.
func responseText(data []byte) string {
	if n := len(data); n > 0 {
		start := n - 1
		for start > 0 && n-start < utf8.UTFMax && !utf8.RuneStart(data[start]) {
			start--
		}
		if !utf8.FullRune(data[start:]) {
			data = data[:start]
		}
	}

	text := strings.ToValidUTF8(string(data), string(utf8.RuneError))
	return strings.ReplaceAll(text, "\x00", "")
}

// record persists a log entry even when ctx has been cancelled.
func (d *Dispatcher) record(ctx context.Context, l *Log) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := d.store.InsertLog(ctx, l); err != nil {
		d.logger.Error("insert webhook log failed", "webhook_id", l.WebhookID, "error", err)
	}
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
