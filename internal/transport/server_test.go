// File: internal/transport/server_test.go
package transport

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/codealphago/ai2thor/api/schemas"
	"github.com/codealphago/ai2thor/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockSession scripts the controller half of the exchange.
type mockSession struct {
	nextActionFunc   func(ctx context.Context) (schemas.Action, error)
	deliverEventFunc func(ctx context.Context, ev *schemas.Event) error

	mu        sync.Mutex
	delivered []*schemas.Event
}

func (m *mockSession) NextAction(ctx context.Context) (schemas.Action, error) {
	if m.nextActionFunc != nil {
		return m.nextActionFunc(ctx)
	}
	return schemas.MoveAhead{}, nil
}

func (m *mockSession) DeliverEvent(ctx context.Context, ev *schemas.Event) error {
	m.mu.Lock()
	m.delivered = append(m.delivered, ev)
	m.mu.Unlock()
	if m.deliverEventFunc != nil {
		return m.deliverEventFunc(ctx, ev)
	}
	return nil
}

func (m *mockSession) deliveredCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.delivered)
}

func newTestServer(session Session) *Server {
	return NewServer(config.EngineConfig{Host: "127.0.0.1"}, session, zap.NewNop())
}

func postJSONEvent(t *testing.T, srv *Server, token string, ev *schemas.Event) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/train", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Token", token)
	rec := httptest.NewRecorder()
	srv.handleTrain(rec, req)
	return rec
}

func TestHandleTrainRoundTrip(t *testing.T) {
	session := &mockSession{
		nextActionFunc: func(context.Context) (schemas.Action, error) {
			return schemas.RotateLook{Rotation: 90, Horizon: 30}, nil
		},
	}
	srv := newTestServer(session)

	ev := &schemas.Event{Metadata: schemas.Metadata{
		LastActionSuccess: true,
		Agent:             schemas.Agent{Position: schemas.Vector3{X: 0.25}},
	}}
	rec := postJSONEvent(t, srv, srv.Token(), ev)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, session.delivered, 1)
	assert.Equal(t, 0.25, session.delivered[0].Metadata.Agent.Position.X)

	var reply map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "RotateLook", reply["action"])
	assert.Equal(t, float64(90), reply["rotation"])
	assert.Equal(t, float64(1), reply["sequenceId"])
}

func TestHandleTrainMultipart(t *testing.T) {
	session := &mockSession{}
	srv := newTestServer(session)

	md, err := json.Marshal(schemas.Metadata{LastActionSuccess: true, SceneName: "FloorPlan5"})
	require.NoError(t, err)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("metadata", string(md)))
	require.NoError(t, w.WriteField("token", srv.Token()))
	part, err := w.CreateFormFile("image", "frame.png")
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 0x50})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/train", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.handleTrain(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, session.delivered, 1)
	assert.Equal(t, "FloorPlan5", session.delivered[0].Metadata.SceneName)
	assert.Equal(t, []byte{0x89, 0x50}, session.delivered[0].Image)
}

func TestHandleTrainRejectsBadToken(t *testing.T) {
	session := &mockSession{}
	srv := newTestServer(session)

	rec := postJSONEvent(t, srv, "not-the-token", &schemas.Event{})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, session.delivered)
}

func TestHandleTrainRejectsMalformedBody(t *testing.T) {
	session := &mockSession{}
	srv := newTestServer(session)

	req := httptest.NewRequest(http.MethodPost, "/train", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Token", srv.Token())
	rec := httptest.NewRecorder()
	srv.handleTrain(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, session.delivered)
}

func TestHandleTrainRejectsGet(t *testing.T) {
	srv := newTestServer(&mockSession{})
	req := httptest.NewRequest(http.MethodGet, "/train", nil)
	rec := httptest.NewRecorder()
	srv.handleTrain(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// A Reset restarts the sequence counter; subsequent actions count up from
// zero again.
func TestSequenceIDResetsOnReset(t *testing.T) {
	srv := newTestServer(&mockSession{})

	assert.Equal(t, int64(1), srv.nextSequenceID(schemas.MoveAhead{}))
	assert.Equal(t, int64(2), srv.nextSequenceID(schemas.MoveAhead{}))
	assert.Equal(t, int64(0), srv.nextSequenceID(schemas.Reset{SceneName: "FloorPlan1"}))
	assert.Equal(t, int64(1), srv.nextSequenceID(schemas.MoveAhead{}))
}

func TestServerStartAndShutdown(t *testing.T) {
	srv := newTestServer(&mockSession{})
	require.NoError(t, srv.Listen())
	require.NotEmpty(t, srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	// Wait for the server to come up, then ping it.
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr() + "/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	http.DefaultClient.CloseIdleConnections()
}

// The engine always has one final POST parked on the rendezvous when the
// planner finishes; shutting down must cancel that wait instead of
// blocking on it.
func TestShutdownUnblocksParkedExchange(t *testing.T) {
	session := &mockSession{
		nextActionFunc: func(ctx context.Context) (schemas.Action, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	srv := newTestServer(session)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	// Park one exchange: the event is delivered, then the handler blocks
	// waiting for an action that will never come.
	posted := make(chan struct{})
	go func() {
		defer close(posted)
		body, err := json.Marshal(&schemas.Event{})
		if err != nil {
			return
		}
		req, err := http.NewRequest(http.MethodPost, "http://"+srv.Addr()+"/train", bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Client-Token", srv.Token())
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
		}
	}()
	require.Eventually(t, func() bool {
		return session.deliveredCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return; shutdown is blocked on the parked exchange")
	}
	<-posted
	http.DefaultClient.CloseIdleConnections()
}

// An engine POST above the event size cap must be rejected, not buffered.
func TestHandleTrainRejectsOversizedBody(t *testing.T) {
	session := &mockSession{}
	srv := newTestServer(session)

	big := bytes.Repeat([]byte("x"), maxEventBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/train", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Token", srv.Token())
	rec := httptest.NewRecorder()
	srv.handleTrain(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, session.delivered)
}
