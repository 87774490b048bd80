package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Clay-Signature"

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// Service manages subscriptions and delivers moderation events.
type Service struct {
	store      store
	httpClient *http.Client
	delays     []time.Duration
	onMetrics  MetricsRecorder
	inflight   sync.WaitGroup
	logger     *zap.Logger
}

// NewService creates a Service. Deliveries retry after 1s and 5s.
func NewService(st store, logger *zap.Logger) *Service {
	return &Service{
		store:      st,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		delays:     []time.Duration{0, time.Second, 5 * time.Second},
		logger:     logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (s *Service) SetMetricsRecorder(fn MetricsRecorder) { s.onMetrics = fn }

// SetRetryDelays replaces the per-attempt delays. The first element is the
// delay before the first attempt.
func (s *Service) SetRetryDelays(d []time.Duration) { s.delays = d }

// Subscribe creates a subscription with a generated HMAC secret.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID, req *CreateSubscriptionRequest) (*Subscription, error) {
	for _, e := range req.Events {
		if !knownEvents[e] {
			return nil, &model.ErrValidation{Msg: fmt.Sprintf("unknown event %q", e)}
		}
	}
	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	sub := &Subscription{UserID: userID, URL: req.URL, Events: req.Events, Secret: secret}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Unsubscribe deletes a subscription owned by userID.
func (s *Service) Unsubscribe(ctx context.Context, userID, subID uuid.UUID) error {
	sub, err := s.store.GetByID(ctx, subID)
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return model.ErrForbidden
	}
	return s.store.Delete(ctx, subID)
}

// ListByUser returns all subscriptions for a user.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Subscription, error) {
	return s.store.ListByUser(ctx, userID)
}

// Dispatch fans an event out to matching subscriptions in the background.
// Delivery outlives the caller's request.
func (s *Service) Dispatch(ctx context.Context, eventType string, payload map[string]string) {
	subs, err := s.store.ListByEvent(ctx, eventType)
	if err != nil {
		s.logger.Error("webhook: list subscribers", zap.String("event", eventType), zap.Error(err))
		return
	}
	event := Event{Type: eventType, Timestamp: time.Now().UTC(), Payload: payload}
	detached := context.WithoutCancel(ctx)
	for _, sub := range subs {
		s.inflight.Add(1)
		go func(sub *Subscription) {
			defer s.inflight.Done()
			s.deliver(detached, sub, event)
		}(sub)
	}
}

// Wait blocks until in-flight deliveries finish. Used on shutdown and in tests.
func (s *Service) Wait() { s.inflight.Wait() }

func (s *Service) deliver(ctx context.Context, sub *Subscription, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("webhook: marshal event", zap.Error(err))
		return
	}
	signature := Sign(body, sub.Secret)

	for attempt, delay := range s.delays {
		if delay > 0 {
			time.Sleep(delay)
		}
		success, status, errMsg := s.post(ctx, sub.URL, body, signature)

		d := &Delivery{
			SubscriptionID: sub.ID,
			EventType:      event.Type,
			StatusCode:     status,
			Attempt:        attempt + 1,
			Success:        success,
			ErrorMessage:   errMsg,
		}
		if err := s.store.RecordDelivery(ctx, d); err != nil {
			s.logger.Warn("webhook: record delivery", zap.Error(err))
		}
		if s.onMetrics != nil {
			s.onMetrics(success)
		}
		if success {
			return
		}
		s.logger.Warn("webhook: delivery failed",
			zap.String("url", sub.URL),
			zap.Int("attempt", attempt+1),
			zap.String("error", errMsg),
		)
	}
}

func (s *Service) post(ctx context.Context, url string, body []byte, signature string) (bool, int, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, 0, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, 0, err.Error()
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, resp.StatusCode, ""
	}
	return false, resp.StatusCode, fmt.Sprintf("HTTP %d", resp.StatusCode)
}

// Sign returns "sha256=" followed by the hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
