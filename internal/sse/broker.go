// Package sse pushes post changes to browsers over Server-Sent Events.
// Clients get one event per created, updated or deleted post and, when the
// set of tags or categories moves, a facets.updated event carrying only
// what was added or removed.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

// Event types written to the stream.
const (
	TypePostCreated   = "post.created"
	TypePostUpdated   = "post.updated"
	TypePostDeleted   = "post.deleted"
	TypeFacetsUpdated = "facets.updated"
)

// Change is the payload of the post.* events.
type Change struct {
	Path string `json:"path"`
	UUID string `json:"uuid"`
}

// FacetsDiff is the payload of facets.updated: the tags and categories that
// appeared or disappeared since the previous facets.updated event.
type FacetsDiff struct {
	TagsAdded         []string `json:"tags_added"`
	TagsRemoved       []string `json:"tags_removed"`
	CategoriesAdded   []string `json:"categories_added"`
	CategoriesRemoved []string `json:"categories_removed"`
}

// Empty reports whether nothing moved.
func (d FacetsDiff) Empty() bool {
	return len(d.TagsAdded)+len(d.TagsRemoved)+len(d.CategoriesAdded)+len(d.CategoriesRemoved) == 0
}

type facets struct {
	tags       []string
	categories []string
}

func (from facets) diff(to facets) FacetsDiff {
	d := FacetsDiff{}
	d.TagsAdded, d.TagsRemoved = setDiff(from.tags, to.tags)
	d.CategoriesAdded, d.CategoriesRemoved = setDiff(from.categories, to.categories)
	return d
}

// setDiff returns the sorted values only in to and only in from.
func setDiff(from, to []string) (added, removed []string) {
	added, removed = []string{}, []string{}
	for _, v := range to {
		if !slices.Contains(from, v) && !slices.Contains(added, v) {
			added = append(added, v)
		}
	}
	for _, v := range from {
		if !slices.Contains(to, v) && !slices.Contains(removed, v) {
			removed = append(removed, v)
		}
	}
	slices.Sort(added)
	slices.Sort(removed)
	return added, removed
}

type changeReq struct {
	kind   string
	change Change
	facets facets
}

// Broker fans post changes out to the connected clients.
//
// One goroutine owns the client set, the last facets sent and the pending
// facets flush. Public methods talk to it over channels.
type Broker struct {
	facetsMin time.Duration
	keepAlive time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	seedCh        chan facets
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. facets.updated is sent at most once per
// facetsThrottle; changes arriving inside the window are folded into one
// event at its end.
func NewBroker(facetsThrottle time.Duration) *Broker {
	if facetsThrottle <= 0 {
		facetsThrottle = 2 * time.Second
	}

	b := &Broker{
		facetsMin:     facetsThrottle,
		keepAlive:     25 * time.Second,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		seedCh:        make(chan facets),
		changeCh:      make(chan changeReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq        uint64
		sent       facets
		latest     facets
		lastFacets time.Time
		flush      <-chan time.Time
	)

	broadcast := func(typ string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, typ, payload))
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	sendFacets := func() {
		d := sent.diff(latest)
		if d.Empty() {
			return
		}
		sent = latest
		lastFacets = time.Now()
		broadcast(TypeFacetsUpdated, d)
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case f := <-b.seedCh:
			sent, latest = f, f

		case req := <-b.changeCh:
			switch req.kind {
			case "created":
				broadcast(TypePostCreated, req.change)
			case "updated":
				broadcast(TypePostUpdated, req.change)
			case "deleted":
				broadcast(TypePostDeleted, req.change)
			default:
				continue
			}

			latest = req.facets
			if flush != nil {
				continue
			}
			if wait := b.facetsMin - time.Since(lastFacets); wait > 0 {
				flush = time.After(wait)
				continue
			}
			sendFacets()

		case <-flush:
			flush = nil
			sendFacets()

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its message channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// SeedFacets sets the facets clients are assumed to know already, without
// sending anything.
func (b *Broker) SeedFacets(tags, categories []string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.seedCh <- facets{tags: tags, categories: categories}:
	case <-b.stopped:
	}
}

// PublishChange sends the post event for kind ("created", "updated" or
// "deleted"; anything else is dropped) and records tags and categories as
// the facets after the change.
func (b *Broker) PublishChange(kind, path, uuid string, tags, categories []string) {
	if b.closed.Load() {
		return
	}
	req := changeReq{
		kind:   kind,
		change: Change{Path: path, UUID: uuid},
		facets: facets{tags: tags, categories: categories},
	}
	select {
	case b.changeCh <- req:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", 3000)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
