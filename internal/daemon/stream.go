package daemon

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"adgen/internal/api"
	"adgen/internal/broadcast"
	"adgen/internal/logging"
)

const (
	streamWriteWait  = 10 * time.Second
	streamBuffer     = 32
	streamReadLimit  = 4096
	defaultKeepalive = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleStream upgrades to a websocket and relays the job's snapshots until
// the peer disconnects. Ownership is checked before the upgrade so missing or
// foreign jobs still get a plain 404/403.
func (s *apiServer) handleStream(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if _, err := s.daemon.manager.Query(jobID, callerID(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.String(logging.FieldJobID, jobID), logging.Error(err))
		return
	}
	defer conn.Close()

	logger := logging.WithContext(r.Context(), s.logger).With(logging.String(logging.FieldJobID, jobID))
	obs := broadcast.NewChannelObserver(streamBuffer)
	hub := s.daemon.hub
	hub.Subscribe(jobID, obs)
	defer func() {
		hub.Unsubscribe(jobID, obs)
		obs.Close()
	}()

	// The reader only exists to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(streamReadLimit)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	keepalive := s.cfg.StreamKeepalive()
	if keepalive <= 0 {
		keepalive = defaultKeepalive
	}
	idle := time.NewTimer(keepalive)
	defer idle.Stop()

	logger.Debug("stream opened", logging.String(logging.FieldEventType, "stream_open"))
	for {
		select {
		case <-gone:
			logger.Debug("stream closed by peer", logging.String(logging.FieldEventType, "stream_close"))
			return
		case frame, ok := <-obs.Frames():
			if !ok {
				return
			}
			if err := writeFrame(conn, frame); err != nil {
				return
			}
		case <-idle.C:
			if err := writeFrame(conn, api.PingFrame()); err != nil {
				return
			}
		}
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(keepalive)
	}
}

func writeFrame(conn *websocket.Conn, frame []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}
