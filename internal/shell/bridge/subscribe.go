package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gorillawebsocket "github.com/gorilla/websocket"

	"github.com/news2/shell/internal/platform/apperr"
	"github.com/news2/shell/internal/platform/websocket"
)

// Subscribe opens the host's event stream for topics (navigation when none
// are given). The returned channel is closed when ctx ends or the connection
// drops.
func (c *Client) Subscribe(ctx context.Context, topics ...string) (<-chan websocket.Event, error) {
	const op = "subscribe"
	if len(topics) == 0 {
		topics = []string{websocket.TopicNavigation}
	}

	u, err := url.Parse(c.baseURL + "/bridge/ws")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"topics": {strings.Join(topics, ",")}}.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := gorillawebsocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, apperr.New(apperr.KindServiceUnreachable, op, "host refused event stream: %d", resp.StatusCode)
		}
		return nil, apperr.Wrap(apperr.KindServiceUnreachable, op, fmt.Errorf("host unreachable: %w", err))
	}

	out := make(chan websocket.Event, 8)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(gorillawebsocket.CloseMessage,
				gorillawebsocket.FormatCloseMessage(gorillawebsocket.CloseNormalClosure, ""))
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(out)
		defer close(done)
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					c.logger.Warn().Err(err).Msg("event stream closed")
				}
				return
			}
			var ev websocket.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				c.logger.Debug().Err(err).Msg("ignoring malformed event")
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
