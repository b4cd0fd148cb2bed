package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/neurasense/internal/analysis"
	"github.com/yoockh/neurasense/internal/metrics"
	"github.com/yoockh/neurasense/internal/models"
	"github.com/yoockh/neurasense/internal/services"
	"github.com/yoockh/neurasense/internal/utils"
	"github.com/yoockh/neurasense/internal/workers"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = (wsPongWait * 9) / 10
	wsMaxFrameSize = 1 << 20
)

// WindowPool runs completed windows. *workers.AnalysisWorkerPool implements it.
type WindowPool interface {
	Submit(ctx context.Context, proc workers.Processor, w *analysis.Window) (models.AssessmentResult, error)
	Stats() workers.PoolStats
}

type WSHandler struct {
	sessions services.SessionService
	pool     WindowPool
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions services.SessionService, pool WindowPool, log *logrus.Logger) *WSHandler {
	if log == nil {
		log = logrus.New()
	}
	return &WSHandler{
		sessions: sessions,
		pool:     pool,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The headset bridge runs as a local desktop app with a file:// origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (w *wsConn) writeError(err error) error {
	return w.writeJSON(models.ErrorFrame{
		Type:    "error",
		Code:    string(utils.CodeOf(err)),
		Message: utils.SafeMessage(err),
	})
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// Stream serves GET /ws. Each connection is one session with its own
// buffer; the optional ?preset= query selects the threshold preset.
func (h *WSHandler) Stream(c *gin.Context) {
	ss, err := h.sessions.Start(c.Request.Context(), c.Query("preset"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("session_id", ss.ID)
	defer func() { _, _ = h.sessions.End(ss.ID) }()

	log := h.log.WithFields(logrus.Fields{
		"session_id": ss.ID,
		"preset":     ss.Preset,
	})

	hdr := http.Header{}
	hdr.Set("X-Session-Id", ss.ID)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, hdr)
	if err != nil {
		// upgrade already wrote response
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	conn.SetReadLimit(wsMaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// keepalive
	go func() {
		t := time.NewTicker(wsPingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := wc.ping(); err != nil {
					return
				}
			}
		}
	}()

	log.Info("stream session opened")
	defer func() {
		info := ss.Info()
		log.WithFields(logrus.Fields{
			"packets": info.Packets,
			"windows": info.Windows,
			"errors":  info.Errors,
		}).Info("stream session closed")
	}()

	for {
		mt, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		if mt != websocket.TextMessage {
			ss.CountError()
			metrics.RecordRejectedPacket("binary_frame")
			_ = wc.writeError(utils.E(utils.CodeInvalidArgument, "WSHandler.Stream", "expected a text frame", utils.ErrMalformedPacket))
			continue
		}

		p, err := models.ParsePacket(data)
		var w *analysis.Window
		if err == nil {
			w, err = ss.Buffer.Submit(p)
		}
		if err != nil {
			ss.CountError()
			metrics.RecordRejectedPacket(errorReason(err))
			log.WithError(err).Debug("packet rejected")
			if werr := wc.writeError(err); werr != nil {
				return
			}
			continue
		}

		ss.CountPacket()
		metrics.RecordPacket(ss.Preset)
		if w == nil {
			continue
		}
		if werr := h.processWindow(ctx, wc, ss, w, log); werr != nil {
			return
		}
	}
}

// processWindow runs w on the pool and writes either the result or an error
// frame. Only a failed write is returned; analysis errors end the window,
// never the session.
func (h *WSHandler) processWindow(ctx context.Context, wc *wsConn, ss *services.StreamSession, w *analysis.Window, log *logrus.Entry) error {
	log = log.WithFields(logrus.Fields{"window": w.Seq, "active": w.Active})

	done := metrics.ObserveWindow(ss.Preset)
	res, err := h.pool.Submit(ctx, ss.Pipeline, w)
	done()

	if err != nil {
		ss.CountError()
		metrics.RecordWindowError(errorReason(err))
		log.WithError(err).Warn("window analysis failed")
		return wc.writeError(err)
	}

	stroke := res.Stroke == 1
	ss.CountWindow(stroke)
	mode := "baseline"
	if w.Active {
		mode = "active"
	}
	flags := abnormalFlags(res)
	metrics.RecordWindow(ss.Preset, mode, stroke, flags)
	log.WithFields(logrus.Fields{
		"stroke":   res.Stroke,
		"abnormal": len(flags),
	}).Debug("window assessed")

	return wc.writeJSON(res)
}

func abnormalFlags(r models.AssessmentResult) []string {
	var out []string
	for _, f := range []struct {
		name, label string
	}{
		{"ratio_flag", r.RatioFlag},
		{"rbpb_flag", r.RBPBFlag},
		{"rbpa_flag", r.RBPAFlag},
		{"rda_flag", r.RDAFlag},
		{"rdb_flag", r.RDBFlag},
		{"hia_flag", r.HIAFlag},
		{"hib_flag", r.HIBFlag},
	} {
		if f.label == models.FlagAbnormal {
			out = append(out, f.name)
		}
	}
	return out
}

// errorReason is the metrics label for err.
func errorReason(err error) string {
	switch {
	case errors.Is(err, utils.ErrMalformedPacket):
		return "malformed_packet"
	case errors.Is(err, utils.ErrChannelCountMismatch):
		return "channel_count_mismatch"
	case errors.Is(err, utils.ErrInsufficientSamples):
		return "insufficient_samples"
	case errors.Is(err, utils.ErrInvalidPartition):
		return "invalid_partition"
	case errors.Is(err, utils.ErrPoolSaturated):
		return "pool_saturated"
	case errors.Is(err, utils.ErrPoolStopped):
		return "pool_stopped"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "abandoned"
	default:
		return "internal"
	}
}
