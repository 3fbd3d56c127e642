package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-comic-kit/pkg/character"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/models"
	"github.com/shouni/go-comic-kit/pkg/provider"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

const testStory = "A robot and a cat share a sandwich in the rain."

type stubAcquirer struct {
	block chan struct{}
}

func (s *stubAcquirer) Capabilities(context.Context, domain.StoryRequest) provider.Capabilities {
	return provider.FreeTextCapabilities()
}

func (s *stubAcquirer) Run(ctx context.Context, _ domain.StoryRequest) ([]domain.PanelDescriptor, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []domain.PanelDescriptor{{SceneNumber: 1, ImagePrompt: "robot", Dialogues: []string{}}}, nil
}

type stubImager struct{}

func (stubImager) Generate(context.Context, domain.PanelDescriptor, domain.StoryRequest, *int64) (*domain.PanelImage, error) {
	return &domain.PanelImage{Data: []byte{1}, MimeType: "image/png"}, nil
}

func newTestServer(t *testing.T, acq workflow.SceneAcquirer) (*Server, *workflow.Controller) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := workflow.NewRegistry("mock", "mock")
	registry.RegisterText("mock", acq)
	registry.RegisterImage("mock", stubImager{})
	controller, err := workflow.NewController(workflow.Config{}, registry, character.NewDefaultInjector())
	require.NoError(t, err)

	catalog := models.NewCatalog(0)
	catalog.Register("mock", nil, func(kind provider.ModelKind) []provider.ModelInfo {
		return []provider.ModelInfo{{ID: "mock-" + string(kind)}}
	})
	return NewServer(controller, catalog, registry, nil), controller
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func storyBody(story string) string {
	b, _ := json.Marshal(domain.StoryRequest{Story: story, NumPages: 1})
	return string(b)
}

func TestServer_Runs(t *testing.T) {
	t.Run("不正なJSONは400になること", func(t *testing.T) {
		s, _ := newTestServer(t, &stubAcquirer{})
		rec := doRequest(t, s, http.MethodPost, "/api/runs", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("短すぎる物語は前提条件エラーで400になること", func(t *testing.T) {
		s, _ := newTestServer(t, &stubAcquirer{})
		rec := doRequest(t, s, http.MethodPost, "/api/runs", storyBody("short"))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, provider.ClassPrecondition, resp.Class)
	})

	t.Run("実行中の投入は409になり、破棄できること", func(t *testing.T) {
		acq := &stubAcquirer{block: make(chan struct{})}
		s, controller := newTestServer(t, acq)
		defer close(acq.block)

		rec := doRequest(t, s, http.MethodPost, "/api/runs", storyBody(testStory))
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), "run_id")

		rec = doRequest(t, s, http.MethodPost, "/api/runs", storyBody(testStory))
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = doRequest(t, s, http.MethodGet, "/api/runs/current", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var snap workflow.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		assert.Equal(t, domain.StateAcquiringScenes, snap.State)

		rec = doRequest(t, s, http.MethodDelete, "/api/runs/current", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"abandoned": true}`, rec.Body.String())
		assert.Equal(t, domain.StateIdle, controller.Snapshot().State)
	})

	t.Run("完了した実行のスナップショットを取得できること", func(t *testing.T) {
		s, controller := newTestServer(t, &stubAcquirer{})
		rec := doRequest(t, s, http.MethodPost, "/api/runs", storyBody(testStory))
		require.Equal(t, http.StatusAccepted, rec.Code)

		_, err := controller.Wait(context.Background())
		require.NoError(t, err)

		rec = doRequest(t, s, http.MethodGet, "/api/runs/current", "")
		var snap workflow.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		assert.Equal(t, domain.StateComplete, snap.State)
		require.Len(t, snap.Panels, 1)
		assert.True(t, strings.HasPrefix(snap.Panels[0].ImageURL, "data:image/png;base64,"))
	})
}

func TestServer_Models(t *testing.T) {
	s, _ := newTestServer(t, &stubAcquirer{})

	rec := doRequest(t, s, http.MethodGet, "/api/models?backend=mock&kind=image", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mock-image")

	rec = doRequest(t, s, http.MethodGet, "/api/models?backend=mock&kind=audio", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/models?backend=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/backends", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text": ["mock"], "image": ["mock"]}`, rec.Body.String())
}

func TestServer_StreamEvents(t *testing.T) {
	s, _ := newTestServer(t, &stubAcquirer{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first snapshotMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "snapshot", first.Type)
	assert.Equal(t, domain.StateIdle, first.Snapshot.State)

	rec := doRequest(t, s, http.MethodPost, "/api/runs", storyBody(testStory))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var sawPanel bool
	for {
		var ev workflow.Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == workflow.EventPanel {
			sawPanel = true
		}
		if ev.Type == workflow.EventState && ev.State == domain.StateComplete {
			break
		}
	}
	assert.True(t, sawPanel)
}
