package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/neurasense/config"
	"github.com/yoockh/neurasense/internal/analysis"
	"github.com/yoockh/neurasense/internal/api/handlers"
	"github.com/yoockh/neurasense/internal/api/routes"
	"github.com/yoockh/neurasense/internal/cache"
	"github.com/yoockh/neurasense/internal/repositories/memory"
	"github.com/yoockh/neurasense/internal/services"
	"github.com/yoockh/neurasense/internal/workers"
)

const (
	testBufferSize = 4
	testChunk      = 100 // samples per channel per packet
)

type testServer struct {
	*httptest.Server
	sessions services.SessionService
	pool     *workers.AnalysisWorkerPool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	settings := config.AnalysisSettings{
		Preset:     analysis.PresetOpenBCIv03,
		BufferSize: testBufferSize,
		SampleRate: analysis.DefaultSampleRate,
		Welch:      analysis.DefaultWelch(),
	}
	presets := services.NewPresetService(memory.NewPresetRepo(analysis.BuiltinPresets()...), cache.NewMemoryCache(), time.Minute, settings, log)
	sessions := services.NewSessionService(presets)

	pool := &workers.AnalysisWorkerPool{NumWorkers: 2, QueueSize: 4, Logger: log}
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(pool.Stop)

	r := gin.New()
	routes.RegisterRoutes(r, routes.Deps{
		Health:  handlers.NewHealthHandler(sessions, pool),
		Presets: handlers.NewPresetHandler(presets),
		WS:      handlers.NewWSHandler(sessions, pool, log),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, sessions: sessions, pool: pool}
}

func (s *testServer) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Session-Id"))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// frame builds an inbound message whose channel c carries a sine at
// freqs[c], continuing from sample offset.
func frame(t *testing.T, freqs []float64, offset int, phantom bool) []byte {
	t.Helper()
	data := make([][]float64, len(freqs))
	for c, f := range freqs {
		data[c] = make([]float64, testChunk)
		for i := range data[c] {
			n := float64(offset + i)
			data[c][i] = math.Sin(2 * math.Pi * f * n / analysis.DefaultSampleRate)
		}
	}
	b, err := json.Marshal(map[string]any{"data": data, "isPhantom": phantom})
	require.NoError(t, err)
	return b
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func send(t *testing.T, conn *websocket.Conn, b []byte) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))
}

var fourChannels = []float64{10, 10, 20, 20}

func TestWS_EndToEnd(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t, "")

	for i := 0; i < testBufferSize-1; i++ {
		send(t, conn, frame(t, fourChannels, i*testChunk, true))
	}

	// Nothing is written for pending packets, so the first frame back is the
	// error for this malformed one.
	send(t, conn, []byte(`{"data":[[1,2],[3]],"isPhantom":true}`))
	errFrame := readJSON(t, conn)
	assert.Equal(t, "error", errFrame["type"])
	assert.Equal(t, "INVALID_ARGUMENT", errFrame["code"])

	send(t, conn, frame(t, fourChannels, (testBufferSize-1)*testChunk, true))
	res := readJSON(t, conn)

	for _, k := range []string{"DAR", "DBR", "RBP_Alpha", "RBP_Beta", "RD_Alpha", "RD_Beta", "HI_Alpha", "HI_Beta", "stroke",
		"ratio_flag", "rbpb_flag", "rbpa_flag", "rda_flag", "rdb_flag", "hia_flag", "hib_flag"} {
		assert.Contains(t, res, k)
	}
	// Alpha on the left, beta on the right.
	assert.Equal(t, "Abnormal", res["rda_flag"])
	assert.Equal(t, "Abnormal", res["rdb_flag"])
	assert.Equal(t, "Abnormal", res["hib_flag"])
	assert.Equal(t, "Normal", res["hia_flag"])
	assert.Equal(t, float64(0), res["stroke"], "three flags stay below the quorum of four")

	assert.Equal(t, int64(1), srv.pool.Stats().Completed)
}

func TestWS_BaselineWindowIsNormal(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t, "?preset="+analysis.PresetOpenBCIAlt)

	for i := 0; i < testBufferSize; i++ {
		send(t, conn, frame(t, []float64{10, 20, 10, 20}, i*testChunk, i%2 == 0))
	}
	// The last packet had isPhantom false.
	res := readJSON(t, conn)
	assert.Equal(t, float64(0), res["stroke"])
	for _, k := range []string{"ratio_flag", "rbpb_flag", "rbpa_flag", "rda_flag", "rdb_flag", "hia_flag", "hib_flag"} {
		assert.Equal(t, "Normal", res[k], k)
	}
}

func TestWS_WindowErrorKeepsSession(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t, "")

	// Two channels cannot satisfy the channel_1..channel_4 partition.
	for i := 0; i < testBufferSize; i++ {
		send(t, conn, frame(t, []float64{10, 20}, i*testChunk, true))
	}
	errFrame := readJSON(t, conn)
	assert.Equal(t, "error", errFrame["type"])
	assert.Equal(t, "INVALID_ARGUMENT", errFrame["code"])

	for i := 0; i < testBufferSize; i++ {
		send(t, conn, frame(t, fourChannels, i*testChunk, true))
	}
	res := readJSON(t, conn)
	assert.Contains(t, res, "stroke")
}

func TestWS_UnknownPresetRejectedBeforeUpgrade(t *testing.T) {
	srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?preset=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, srv.sessions.ActiveCount())
}

func TestWS_DisconnectUnregistersSession(t *testing.T) {
	srv := newTestServer(t)
	conn := srv.dial(t, "")
	send(t, conn, frame(t, fourChannels, 0, true))

	require.Eventually(t, func() bool { return srv.sessions.ActiveCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return srv.sessions.ActiveCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestWS_SessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	a := srv.dial(t, "")
	b := srv.dial(t, "")

	// a fills three quarters of its window, b a full one.
	for i := 0; i < testBufferSize-1; i++ {
		send(t, a, frame(t, fourChannels, i*testChunk, true))
	}
	for i := 0; i < testBufferSize; i++ {
		send(t, b, frame(t, fourChannels, i*testChunk, true))
	}
	assert.Contains(t, readJSON(t, b), "stroke")

	send(t, a, frame(t, fourChannels, (testBufferSize-1)*testChunk, true))
	assert.Contains(t, readJSON(t, a), "stroke")
}

func TestPresetsAndHealth(t *testing.T) {
	srv := newTestServer(t)

	get := func(path string) (int, map[string]any) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out
	}

	code, body := get("/ping")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong", body["message"])

	code, body = get("/presets")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, analysis.PresetOpenBCIv03, body["default"])
	assert.Len(t, body["presets"], 2)

	code, body = get("/presets/" + analysis.PresetOpenBCIAlt)
	assert.Equal(t, http.StatusOK, code)
	eff := body["effective"].(map[string]any)
	assert.Equal(t, float64(testBufferSize), eff["buffer_size"])
	assert.Equal(t, float64(3), eff["thresholds"].(map[string]any)["quorum"])

	code, body = get("/presets/nope")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", body["code"])

	code, body = get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["active_sessions"])
	assert.Contains(t, body, "pool")

	code, body = get("/sessions")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "sessions")
}
