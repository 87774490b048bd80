package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

func newTestService() (*Service, *MemoryStore) {
	st := NewMemoryStore()
	svc := NewService(st, zap.NewNop())
	svc.SetRetryDelays([]time.Duration{0, time.Millisecond, time.Millisecond})
	return svc, st
}

func TestSubscribe_rejectsUnknownEvent(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Subscribe(context.Background(), uuid.New(), &CreateSubscriptionRequest{
		URL: "https://example.com/hook", Events: []string{"agent.registered"},
	})
	assert.Equal(t, model.OutcomeValidation, model.Classify(err))
}

func TestDispatch_signsAndDelivers(t *testing.T) {
	var (
		gotBody []byte
		gotSig  string
	)
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusNoContent)
		close(done)
	}))
	defer srv.Close()

	svc, st := newTestService()
	sub, err := svc.Subscribe(context.Background(), uuid.New(), &CreateSubscriptionRequest{
		URL: srv.URL, Events: []string{EventUserSuspended},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Dispatch(ctx, EventUserSuspended, map[string]string{"user_id": "u-1"})
	cancel() // delivery must survive the request context ending
	svc.Wait()

	select {
	case <-done:
	default:
		t.Fatal("subscriber was not called")
	}
	assert.Equal(t, Sign(gotBody, sub.Secret), gotSig)

	var ev Event
	require.NoError(t, json.Unmarshal(gotBody, &ev))
	assert.Equal(t, EventUserSuspended, ev.Type)
	assert.Equal(t, "u-1", ev.Payload["user_id"])

	deliveries := st.Deliveries()
	require.Len(t, deliveries, 1)
	assert.True(t, deliveries[0].Success)
}

func TestDispatch_retriesThenGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc, st := newTestService()
	var failures int32
	svc.SetMetricsRecorder(func(ok bool) {
		if !ok {
			atomic.AddInt32(&failures, 1)
		}
	})
	_, err := svc.Subscribe(context.Background(), uuid.New(), &CreateSubscriptionRequest{
		URL: srv.URL, Events: []string{EventReportFlagged},
	})
	require.NoError(t, err)

	svc.Dispatch(context.Background(), EventReportFlagged, nil)
	svc.Wait()

	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.EqualValues(t, 3, atomic.LoadInt32(&failures))
	assert.Len(t, st.Deliveries(), 3)
}

func TestDispatch_skipsOtherEvents(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	svc, _ := newTestService()
	_, _ = svc.Subscribe(context.Background(), uuid.New(), &CreateSubscriptionRequest{
		URL: srv.URL, Events: []string{EventAppealResolved},
	})
	svc.Dispatch(context.Background(), EventUserWarned, nil)
	svc.Wait()
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestUnsubscribe_ownership(t *testing.T) {
	svc, _ := newTestService()
	owner := uuid.New()
	sub, err := svc.Subscribe(context.Background(), owner, &CreateSubscriptionRequest{
		URL: "https://example.com/hook", Events: []string{EventUserWarned},
	})
	require.NoError(t, err)

	err = svc.Unsubscribe(context.Background(), uuid.New(), sub.ID)
	assert.True(t, errors.Is(err, model.ErrForbidden))

	require.NoError(t, svc.Unsubscribe(context.Background(), owner, sub.ID))
	err = svc.Unsubscribe(context.Background(), owner, sub.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
