package firebase

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/dafibh/contribboard/contribboard-backend/internal/tree"
)

// maxEventSize bounds a single event; a put at the root carries the whole subtree
const maxEventSize = 16 << 20

// errStreamClosed is reported when the server ends the stream without a cancel event
var errStreamClosed = errors.New("firebase: stream closed by server")

// streamEvent is the payload of put and patch events
type streamEvent struct {
	Path string `json:"path"`
	Data any    `json:"data"`
}

// Subscribe streams the value at path. onValue receives the full current value
// after every put or patch. The subscription ends on cancel, on ctx, or on the
// first error, which is passed to onError.
func (c *Client) Subscribe(ctx context.Context, path string, onValue func(domain.Snapshot), onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		err := c.stream(ctx, path, onValue)
		if err != nil && ctx.Err() == nil && onError != nil {
			onError(err)
		}
	}()

	return cancel
}

func (c *Client) stream(ctx context.Context, path string, onValue func(domain.Snapshot)) error {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("firebase: building stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("firebase: streaming %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}

	var (
		cache any
		event string
		data  strings.Builder
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64<<10), maxEventSize)

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			next, changed, err := applyEvent(cache, event, data.String())
			if err != nil {
				return err
			}
			if changed {
				cache = next
				if onValue != nil {
					onValue(domain.Snapshot{Exists: cache != nil, Value: tree.Clone(cache)})
				}
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("firebase: reading stream: %w", err)
	}
	return errStreamClosed
}

// applyEvent folds one server event into the cached value
func applyEvent(cache any, event, data string) (any, bool, error) {
	switch event {
	case "put", "patch":
		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return cache, false, fmt.Errorf("firebase: decoding %s event: %w", event, err)
		}
		if event == "put" {
			return tree.Set(cache, ev.Path, ev.Data), true, nil
		}
		fields, ok := ev.Data.(map[string]any)
		if !ok {
			return cache, false, fmt.Errorf("firebase: patch event at %q is not an object", ev.Path)
		}
		return tree.Merge(cache, ev.Path, fields), true, nil
	case "cancel":
		return cache, false, fmt.Errorf("%w: subscription cancelled by security rules", domain.ErrPermissionDenied)
	case "auth_revoked":
		return cache, false, fmt.Errorf("%w: credential revoked", domain.ErrPermissionDenied)
	default:
		// keep-alive and unnamed events carry nothing
		return cache, false, nil
	}
}
