package menu

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/small-frappuccino/guildsettings/pkg/log"
	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

// NoticeShutdown is shown on menus still open when the process stops.
const NoticeShutdown = "ℹ️ The bot is restarting. Any unsaved changes have been lost."

// Manager owns every open flow and routes platform events to them.
type Manager struct {
	repo     Repository
	locks    Locker
	channel  Channel
	observer Observer
	clock    Clock
	timeouts Timeouts
	newID    func() string

	mu      sync.Mutex
	flows   map[string]*Flow
	byGuild map[string]*Flow
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver reports lifecycle events, typically to metrics.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithClock replaces the wall clock used for idle timeouts.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithTimeouts overrides DefaultTimeouts. Zero fields keep their default.
func WithTimeouts(t Timeouts) Option {
	return func(m *Manager) {
		if t.Selector > 0 {
			m.timeouts.Selector = t.Selector
		}
		if t.Menu > 0 {
			m.timeouts.Menu = t.Menu
		}
		if t.Prompt > 0 {
			m.timeouts.Prompt = t.Prompt
		}
	}
}

// WithIDGenerator replaces the flow ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// NewManager creates a Manager.
func NewManager(repo Repository, locks Locker, channel Channel, opts ...Option) *Manager {
	m := &Manager{
		repo:     repo,
		locks:    locks,
		channel:  channel,
		observer: nopObserver{},
		clock:    realClock{},
		timeouts: DefaultTimeouts,
		newID:    func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
		flows:    make(map[string]*Flow),
		byGuild:  make(map[string]*Flow),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OpenRequest starts a flow.
type OpenRequest struct {
	GuildID   string
	ChannelID string
	UserID    string
	Family    settings.Family
	// Display edits the message the caller posts the returned payload in.
	Display Display
}

// Open takes the guild lock and returns the family selector to post.
// It returns ErrLocked when another flow holds the guild.
func (m *Manager) Open(req OpenRequest) (*Flow, settings.Payload, error) {
	if req.GuildID == "" || req.UserID == "" || req.Display == nil {
		return nil, settings.Payload{}, fmt.Errorf("open configuration flow: incomplete request")
	}
	if len(req.Family.Kinds()) == 0 {
		return nil, settings.Payload{}, fmt.Errorf("open configuration flow: %w", settings.ErrUnknownKind)
	}

	id := m.newID()
	if !m.locks.TryAcquire(req.GuildID, id, req.UserID) {
		m.observer.LockRejected()
		log.ApplicationLogger().Info("Configuration refused, guild is locked", "guildID", req.GuildID, "userID", req.UserID)
		return nil, settings.Payload{}, ErrLocked
	}

	// A flow still registered here lost its lock to expiry or an operator.
	if stale := m.flowForGuild(req.GuildID); stale != nil {
		stale.mu.Lock()
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		stale.close(ctx, ReasonClosed, NoticeClosed, nil)
		cancel()
		stale.mu.Unlock()
	}

	f := &Flow{
		m:         m,
		id:        id,
		guildID:   req.GuildID,
		userID:    req.UserID,
		channelID: req.ChannelID,
		family:    req.Family,
		display:   req.Display,
		openedAt:  time.Now(),
		phase:     phaseSelecting,
	}

	m.mu.Lock()
	m.flows[id] = f
	m.byGuild[req.GuildID] = f
	m.mu.Unlock()
	m.observer.FlowOpened()

	f.mu.Lock()
	f.arm(m.timeouts.Selector)
	view := f.current()
	f.mu.Unlock()

	log.ApplicationLogger().Info("Configuration menu opened", f.logArgs("family", req.Family)...)
	return f, view, nil
}

// ComponentEvent is a button press or select submission on a flow's menu.
type ComponentEvent struct {
	CustomID string
	UserID   string
	Values   []string
}

// HandleComponent routes a component event. Events from other users are
// answered privately and return ErrNotOwner; closed flows return ErrUnknownFlow
// after telling the user. Both leave every flow untouched.
func (m *Manager) HandleComponent(ctx context.Context, ev ComponentEvent, r Replier) error {
	flowID, action, ok := ParseCustomID(ev.CustomID)
	if !ok {
		return ErrUnknownFlow
	}

	f := m.flow(flowID)
	if f == nil {
		_ = r.Ephemeral(ctx, NoticeExpired)
		return ErrUnknownFlow
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase == phaseClosed {
		_ = r.Ephemeral(ctx, NoticeExpired)
		return ErrUnknownFlow
	}
	if ev.UserID != f.userID {
		log.ApplicationLogger().Debug("Configuration control used by another user", f.logArgs("actor", ev.UserID, "action", action)...)
		_ = r.Ephemeral(ctx, NoticeNotOwner)
		return ErrNotOwner
	}

	f.handle(ctx, action, ev.Values, r)
	return nil
}

// MessageEvent is a plain message posted in a guild channel.
type MessageEvent struct {
	GuildID   string
	ChannelID string
	UserID    string
	MessageID string
	Content   string
}

// HandleMessage feeds a message to the guild's open prompt. It reports whether
// the message was consumed as a prompt reply.
func (m *Manager) HandleMessage(ctx context.Context, ev MessageEvent) bool {
	f := m.flowForGuild(ev.GuildID)
	if f == nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != phasePrompting || f.prompt == nil || ev.ChannelID != f.channelID || ev.UserID != f.userID {
		return false
	}
	f.m.locks.Refresh(f.guildID, f.id)
	f.answer(ctx, ev.MessageID, ev.Content)
	return true
}

// Close ends the flow identified by guildID and flowID, used when the lock
// was released from outside (operator action or TTL expiry).
func (m *Manager) Close(guildID, flowID string, reason Reason) bool {
	f := m.flowForGuild(guildID)
	if f == nil || f.id != flowID {
		return false
	}

	notice := NoticeClosed
	if reason == ReasonTimeout {
		notice = NoticeTimedOut
	}

	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase == phaseClosed {
		return false
	}
	f.close(ctx, reason, notice, nil)
	return true
}

// Active returns the number of open flows.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.flows)
}

// Shutdown closes every open flow, releasing their locks.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	open := make([]*Flow, 0, len(m.flows))
	for _, f := range m.flows {
		open = append(open, f)
	}
	m.mu.Unlock()

	for _, f := range open {
		f.mu.Lock()
		f.close(ctx, ReasonClosed, NoticeShutdown, nil)
		f.mu.Unlock()
	}
}

func (m *Manager) flow(id string) *Flow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flows[id]
}

func (m *Manager) flowForGuild(guildID string) *Flow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byGuild[guildID]
}

// forget unregisters f. Caller holds f.mu; m.mu is always taken after a flow's lock.
func (m *Manager) forget(f *Flow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flows[f.id] == f {
		delete(m.flows, f.id)
		m.observer.FlowClosed()
	}
	if m.byGuild[f.guildID] == f {
		delete(m.byGuild, f.guildID)
	}
}
