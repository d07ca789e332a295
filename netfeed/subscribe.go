package netfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gekko3d/framepipe/pipeline/exchange"
	"github.com/gorilla/websocket"
)

// Subscribe dials url and publishes every decoded frame into ex until ctx is
// cancelled or the server closes the stream. Frames that fail to decode are
// logged and skipped. A frame whose data is JSON null clears ex.
func Subscribe[T any](ctx context.Context, url string, ex *exchange.Exchange[T], logger Logger) error {
	if logger == nil {
		logger = nopLogger{}
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to dial feed %s: %w", url, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	var lastSeq uint64
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("failed to read feed: %w", err)
		}

		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			logger.Warnf("discarding malformed feed frame: %v", err)
			continue
		}
		if env.Seq != 0 && env.Seq <= lastSeq {
			continue
		}
		lastSeq = env.Seq

		if len(env.Data) == 0 || string(env.Data) == "null" {
			ex.Clear()
			continue
		}

		var v T
		if err := json.Unmarshal(env.Data, &v); err != nil {
			logger.Warnf("discarding undecodable snapshot %d: %v", env.Seq, err)
			continue
		}
		ex.Publish(v)
	}
}

// IsClosed reports whether err ends a subscription normally.
func IsClosed(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
