package api

import (
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-web/domain"
	"todo-web/view"
)

const (
	sseRefreshPrefix = "event: refresh\ndata: "
	sseTerminator    = "\n\n"
)

type refreshEvent struct {
	Stats      domain.Stats   `json:"stats"`
	Generation uint64         `json:"generation"`
	Mutation   *view.Mutation `json:"mutation,omitempty"`
}

// updateBroker fans snapshot changes out to SSE subscribers. It is registered
// as a view observer.
type updateBroker struct {
	logger *log.Logger

	mu      sync.Mutex
	subs    map[chan struct{}]struct{}
	latest  refreshEvent
	pending *view.Mutation
}

func newUpdateBroker(logger *log.Logger) *updateBroker {
	return &updateBroker{logger: logger, subs: make(map[chan struct{}]struct{})}
}

func (b *updateBroker) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *updateBroker) unsubscribe(ch chan struct{}) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

func (b *updateBroker) notify() {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
}

func (b *updateBroker) snapshot() refreshEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// OnRender implements view.Observer.
func (b *updateBroker) OnRender(p view.Page) {
	b.mu.Lock()
	b.latest = refreshEvent{Stats: p.Stats, Generation: p.Generation, Mutation: b.pending}
	b.pending = nil
	b.mu.Unlock()
	b.notify()
}

// OnMutationComplete implements view.Observer. The mutation is reported with
// the render that follows it.
func (b *updateBroker) OnMutationComplete(m view.Mutation) {
	b.mu.Lock()
	b.pending = &m
	b.mu.Unlock()
}

func streamEvents(b *updateBroker) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		ctx := c.Request().Context()
		ch := b.subscribe()
		defer b.unsubscribe(ch)
		for {
			data, err := sonic.Marshal(b.snapshot())
			if err != nil {
				b.logger.WithError(err).Error("encode refresh event")
				return err
			}
			if _, err := c.Response().Write([]byte(sseRefreshPrefix)); err != nil {
				return err
			}
			if _, err := c.Response().Write(data); err != nil {
				return err
			}
			if _, err := c.Response().Write([]byte(sseTerminator)); err != nil {
				return err
			}
			flusher.Flush()
			select {
			case <-ctx.Done():
				return nil
			case <-ch:
				continue
			}
		}
	}
}
