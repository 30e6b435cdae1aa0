package menu

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/small-frappuccino/guildsettings/pkg/guildlock"
	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

type memRepo struct {
	mu      sync.Mutex
	docs    map[string]settings.Settings
	saveErr error
	loadErr error
	saves   int
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[string]settings.Settings)}
}

func (r *memRepo) Load(_ context.Context, k settings.Kind, guildID string) (settings.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return settings.Settings{}, r.loadErr
	}
	doc, ok := r.docs[k.CacheKey(guildID)]
	if !ok {
		doc = settings.Defaults(guildID, k)
		r.docs[k.CacheKey(guildID)] = doc
	}
	return doc.Clone(), nil
}

func (r *memRepo) Save(_ context.Context, s settings.Settings) (settings.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return settings.Settings{}, r.saveErr
	}
	r.saves++
	r.docs[s.Kind.CacheKey(s.GuildID)] = s.Clone()
	return s.Clone(), nil
}

func (r *memRepo) get(k settings.Kind, guildID string) settings.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[k.CacheKey(guildID)].Clone()
}

type recReplier struct {
	updates    []settings.Payload
	ephemerals []string
}

func (r *recReplier) Update(_ context.Context, p settings.Payload) error {
	r.updates = append(r.updates, p)
	return nil
}

func (r *recReplier) Ephemeral(_ context.Context, content string) error {
	r.ephemerals = append(r.ephemerals, content)
	return nil
}

func (r *recReplier) last() settings.Payload {
	if len(r.updates) == 0 {
		return settings.Payload{}
	}
	return r.updates[len(r.updates)-1]
}

type recDisplay struct {
	shows []settings.Payload
}

func (d *recDisplay) Show(_ context.Context, p settings.Payload) error {
	d.shows = append(d.shows, p)
	return nil
}

func (d *recDisplay) last() settings.Payload {
	if len(d.shows) == 0 {
		return settings.Payload{}
	}
	return d.shows[len(d.shows)-1]
}

type sentMessage struct {
	channelID, id, content string
}

type recChannel struct {
	mu      sync.Mutex
	sent    []sentMessage
	deleted []string
	sendErr error
}

func (c *recChannel) Send(_ context.Context, channelID, content string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return "", c.sendErr
	}
	id := fmt.Sprintf("prompt-%d", len(c.sent)+1)
	c.sent = append(c.sent, sentMessage{channelID: channelID, id: id, content: content})
	return id, nil
}

func (c *recChannel) Delete(_ context.Context, _ string, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, ids...)
	return nil
}

type manualTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{d: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// active returns the timers that have neither fired nor been stopped.
func (c *manualClock) active() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*manualTimer
	for _, t := range c.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// fire runs every active timer as if its window elapsed.
func (c *manualClock) fire() {
	for _, t := range c.active() {
		t.stopped = true
		t.fn()
	}
}

type countingObserver struct {
	mu       sync.Mutex
	started  []string
	ended    []string
	saves    map[string]int
	rejected int
	open     int
}

func (o *countingObserver) SessionStarted(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, kind)
}

func (o *countingObserver) SessionEnded(kind, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ended = append(o.ended, kind+":"+reason)
}

func (o *countingObserver) FlowOpened() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open++
}

func (o *countingObserver) FlowClosed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open--
}

func (o *countingObserver) SaveResult(kind string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.saves == nil {
		o.saves = make(map[string]int)
	}
	key := kind + ":ok"
	if err != nil {
		key = kind + ":error"
	}
	o.saves[key]++
}

func (o *countingObserver) LockRejected() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected++
}

type harness struct {
	t       *testing.T
	m       *Manager
	repo    *memRepo
	locks   *guildlock.Locker
	channel *recChannel
	clock   *manualClock
	obs     *countingObserver
	display *recDisplay
	flow    *Flow
}

var testTimeouts = Timeouts{Selector: 2 * time.Minute, Menu: 3 * time.Minute, Prompt: 90 * time.Second}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		repo:    newMemRepo(),
		locks:   guildlock.New(time.Hour),
		channel: &recChannel{},
		clock:   &manualClock{},
		obs:     &countingObserver{},
		display: &recDisplay{},
	}
	t.Cleanup(h.locks.Shutdown)

	n := 0
	h.m = NewManager(h.repo, h.locks, h.channel,
		WithClock(h.clock),
		WithObserver(h.obs),
		WithTimeouts(testTimeouts),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("flow%d", n) }),
	)
	return h
}

// open starts a flow for owner u1 in guild g1.
func (h *harness) open(f settings.Family) settings.Payload {
	h.t.Helper()
	flow, view, err := h.m.Open(OpenRequest{GuildID: "g1", ChannelID: "c1", UserID: "u1", Family: f, Display: h.display})
	require.NoError(h.t, err)
	h.flow = flow
	return view
}

func (h *harness) press(user string, a settings.Action, values ...string) (*recReplier, error) {
	h.t.Helper()
	r := &recReplier{}
	err := h.m.HandleComponent(context.Background(), ComponentEvent{
		CustomID: CustomID(h.flow.ID(), a),
		UserID:   user,
		Values:   values,
	}, r)
	return r, err
}

// owner presses a control as u1 and expects it to be accepted.
func (h *harness) owner(a settings.Action, values ...string) *recReplier {
	h.t.Helper()
	r, err := h.press("u1", a, values...)
	require.NoError(h.t, err)
	return r
}

func (h *harness) reply(content string) bool {
	return h.m.HandleMessage(context.Background(), MessageEvent{
		GuildID: "g1", ChannelID: "c1", UserID: "u1", MessageID: "reply-1", Content: content,
	})
}
