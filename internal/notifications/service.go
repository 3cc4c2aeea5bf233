package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"vanguard/internal/config"
)

const userAgent = "Vanguard-Go/0.1.0"

// Service publishes notices.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	message, ok := Format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, message)
}

func (n *ntfyService) send(ctx context.Context, data Message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.Body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.Title != "" {
		req.Header.Set("Title", data.Title)
	}
	if len(data.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.Tags, ","))
	}
	if data.Priority != "" && data.Priority != "default" {
		req.Header.Set("Priority", data.Priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// NewConsole prints notice bodies to w, one per line.
func NewConsole(w io.Writer) Service {
	if w == nil {
		return noopService{}
	}
	return &consoleService{writer: w}
}

type consoleService struct {
	mu     sync.Mutex
	writer io.Writer
}

func (c *consoleService) Publish(_ context.Context, event Event, payload Payload) error {
	message, ok := Format(event, payload)
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.writer, message.Body)
	return err
}

// Multi publishes to every service and joins their errors.
func Multi(services ...Service) Service {
	filtered := make([]Service, 0, len(services))
	for _, svc := range services {
		if svc == nil {
			continue
		}
		if _, ok := svc.(noopService); ok {
			continue
		}
		filtered = append(filtered, svc)
	}
	switch len(filtered) {
	case 0:
		return noopService{}
	case 1:
		return filtered[0]
	default:
		return multiService(filtered)
	}
}

type multiService []Service

func (m multiService) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, svc := range m {
		if err := svc.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewNoop returns a service that discards every notice.
func NewNoop() Service { return noopService{} }

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
