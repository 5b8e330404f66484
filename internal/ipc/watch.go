package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"adgen/internal/api"
)

// Watch follows jobID over the live stream, calling fn for every snapshot
// until the job succeeds or fails. Keepalive frames are skipped. The final
// snapshot is returned; an error from fn stops the watch.
func (c *Client) Watch(ctx context.Context, jobID string, fn func(api.JobView) error) (api.JobView, error) {
	endpoint := *c.base
	switch endpoint.Scheme {
	case "https":
		endpoint.Scheme = "wss"
	default:
		endpoint.Scheme = "ws"
	}
	endpoint.Path = ""
	target := endpoint.JoinPath(api.StreamPath(jobID))

	header := http.Header{}
	c.authorize(header)
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, target.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			var payload api.ErrorResponse
			_ = json.NewDecoder(resp.Body).Decode(&payload)
			return api.JobView{}, &APIError{Status: resp.StatusCode, Message: payload.Error}
		}
		return api.JobView{}, fmt.Errorf("websocket connect: %w", err)
	}

	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return api.JobView{}, ctx.Err()
			}
			return api.JobView{}, fmt.Errorf("read stream: %w", err)
		}

		var envelope api.StreamMessage
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Type == api.MessageTypePing {
			continue
		}
		var view api.JobView
		if err := json.Unmarshal(data, &view); err != nil {
			return api.JobView{}, fmt.Errorf("decode snapshot: %w", err)
		}
		if fn != nil {
			if err := fn(view); err != nil {
				return view, err
			}
		}
		if api.IsTerminal(view.Status) {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return view, nil
		}
	}
}
