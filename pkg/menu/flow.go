package menu

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/small-frappuccino/guildsettings/pkg/log"
	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

type phase int

const (
	phaseSelecting phase = iota
	phaseEditing
	phasePrompting
	phaseClosed
)

func (p phase) String() string {
	switch p {
	case phaseSelecting:
		return "selecting"
	case phaseEditing:
		return "editing"
	case phasePrompting:
		return "prompting"
	default:
		return "closed"
	}
}

const (
	awaitingReply = "⌛ Waiting for your reply in this channel…"
	ioTimeout     = 10 * time.Second
)

// openPrompt is a question waiting for the owner's next message.
type openPrompt struct {
	*Prompt
	messageID string
	origin    Replier
}

// Flow is one open configuration menu, from the family selector until a
// terminal event. It owns the guild lock for its whole life, including trips
// back to the selector.
type Flow struct {
	mu sync.Mutex
	m  *Manager

	id        string
	guildID   string
	userID    string
	channelID string
	family    settings.Family
	display   Display
	openedAt  time.Time

	phase   phase
	session *Session
	prompt  *openPrompt

	timer Timer
	gen   uint64
}

// ID is the flow's identifier, embedded in its component IDs and used as the lock token.
func (f *Flow) ID() string { return f.id }

func (f *Flow) logArgs(extra ...any) []any {
	args := []any{"flowID", f.id, "guildID", f.guildID, "userID", f.userID, "phase", f.phase.String()}
	if f.session != nil {
		args = append(args, "kind", f.session.Kind())
	}
	return append(args, extra...)
}

// arm replaces the running idle timer. Older timers become stale through the
// generation counter even if Stop loses the race with their firing.
func (f *Flow) arm(d time.Duration) {
	if f.timer != nil {
		f.timer.Stop()
	}
	f.gen++
	gen := f.gen
	f.timer = f.m.clock.AfterFunc(d, func() { f.expire(gen) })
}

func (f *Flow) disarm() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.gen++
}

func (f *Flow) expire(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen || f.phase == phaseClosed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()

	if f.phase == phasePrompting {
		f.promptExpired(ctx)
		return
	}
	log.ApplicationLogger().Info("Configuration menu timed out", f.logArgs()...)
	f.close(ctx, ReasonTimeout, NoticeTimedOut, nil)
}

func (f *Flow) current() settings.Payload {
	if f.session == nil {
		return SelectorPayload(f.family, f.phase == phaseClosed)
	}
	return f.session.Render(f.phase == phaseClosed)
}

func (f *Flow) show(ctx context.Context, r Replier, p settings.Payload) {
	var err error
	if r != nil {
		err = r.Update(ctx, p)
	} else {
		err = f.display.Show(ctx, p)
	}
	if err != nil {
		log.DiscordLogger().Warn("Failed to update configuration menu", f.logArgs("err", err)...)
	}
}

func (f *Flow) tell(ctx context.Context, r Replier, content string) {
	if r == nil || content == "" {
		return
	}
	if err := r.Ephemeral(ctx, content); err != nil {
		log.DiscordLogger().Warn("Failed to send configuration notice", f.logArgs("err", err)...)
	}
}

// handle dispatches one owner event. Caller holds f.mu.
func (f *Flow) handle(ctx context.Context, a settings.Action, values []string, r Replier) {
	f.m.locks.Refresh(f.guildID, f.id)

	if f.phase == phasePrompting {
		// Any control other than the reply abandons the open question.
		f.abandonPrompt(ctx)
	}

	switch f.phase {
	case phaseSelecting:
		f.handleSelecting(ctx, a, values, r)
	case phaseEditing:
		f.handleEditing(ctx, a, values, r)
	}
}

func (f *Flow) handleSelecting(ctx context.Context, a settings.Action, values []string, r Replier) {
	switch a {
	case settings.ActionSelectKind:
		f.openKind(ctx, first(values), r)
	case settings.ActionCancel:
		f.close(ctx, ReasonCancelled, NoticeCancelled, r)
	default:
		f.unknown(ctx, a, r)
	}
}

func (f *Flow) openKind(ctx context.Context, raw string, r Replier) {
	k, err := settings.ParseKind(raw)
	if err != nil || k.Family() != f.family {
		f.unknown(ctx, settings.Action(raw), r)
		return
	}

	baseline, err := f.m.repo.Load(ctx, k, f.guildID)
	if err != nil {
		log.DatabaseLogger().Error("Failed to load settings for configuration menu", f.logArgs("kind", k, "err", err)...)
		f.arm(f.m.timeouts.Selector)
		f.show(ctx, r, f.current())
		f.tell(ctx, r, NoticeLoadFailed)
		return
	}

	f.session = NewSession(baseline)
	f.phase = phaseEditing
	f.m.observer.SessionStarted(string(k))
	log.ApplicationLogger().Info("Configuration session started", f.logArgs()...)

	f.arm(f.m.timeouts.Menu)
	f.show(ctx, r, f.current())
}

func (f *Flow) handleEditing(ctx context.Context, a settings.Action, values []string, r Replier) {
	s := f.session
	switch a {
	case settings.ActionCancel:
		f.close(ctx, ReasonCancelled, NoticeCancelled, r)
		return
	case settings.ActionFinished:
		if !s.Saved() {
			f.unknown(ctx, a, r)
			return
		}
		f.close(ctx, ReasonFinished, NoticeFinished, r)
		return
	case settings.ActionBack, settings.ActionNotFinished:
		f.backToSelector(ctx, a, r)
		return
	case settings.ActionSave:
		f.save(ctx, r)
		return
	}

	if p, ok := s.PromptFor(a); ok {
		f.ask(ctx, p, r)
		return
	}

	notice, err := s.Apply(a, values)
	if err != nil {
		f.unknown(ctx, a, r)
		return
	}
	f.arm(f.m.timeouts.Menu)
	f.show(ctx, r, f.current())
	f.tell(ctx, r, notice)
}

func (f *Flow) backToSelector(ctx context.Context, a settings.Action, r Replier) {
	s := f.session
	if a == settings.ActionNotFinished && !s.Saved() {
		f.unknown(ctx, a, r)
		return
	}
	reason := ReasonBack
	if s.Saved() {
		reason = ReasonSaved
	}
	f.m.observer.SessionEnded(string(s.Kind()), string(reason))
	log.ApplicationLogger().Info("Configuration session returned to selector", f.logArgs("reason", reason)...)

	f.session = nil
	f.phase = phaseSelecting
	f.arm(f.m.timeouts.Selector)
	f.show(ctx, r, f.current())
}

func (f *Flow) save(ctx context.Context, r Replier) {
	s := f.session
	if s.Saved() || !s.HasChanges() {
		f.unknown(ctx, settings.ActionSave, r)
		return
	}

	draft := s.Draft()
	if err := settings.Validate(draft); err != nil {
		var verr *settings.ValidationError
		msg := NoticeSaveFailed
		if errors.As(err, &verr) {
			msg = "⚠️ " + verr.Error()
		}
		f.arm(f.m.timeouts.Menu)
		f.show(ctx, r, f.current())
		f.tell(ctx, r, msg)
		return
	}

	stored, err := f.m.repo.Save(ctx, draft)
	f.m.observer.SaveResult(string(s.Kind()), err)
	if err != nil {
		log.DatabaseLogger().Error("Failed to save configuration", f.logArgs("err", err)...)
		f.arm(f.m.timeouts.Menu)
		f.show(ctx, r, f.current())
		f.tell(ctx, r, NoticeSaveFailed)
		return
	}

	s.MarkSaved(stored)
	log.ApplicationLogger().Info("Configuration saved", f.logArgs()...)
	f.arm(f.m.timeouts.Menu)
	f.show(ctx, r, f.current())
}

// ask posts p in the channel and waits for the owner's reply. The menu's own
// idle window is suspended until the prompt resolves.
func (f *Flow) ask(ctx context.Context, p *Prompt, r Replier) {
	msgID, err := f.m.channel.Send(ctx, f.channelID, "<@"+f.userID+"> "+p.Text)
	if err != nil {
		log.DiscordLogger().Warn("Failed to send configuration prompt", f.logArgs("action", p.Action, "err", err)...)
		f.arm(f.m.timeouts.Menu)
		f.show(ctx, r, f.current())
		f.tell(ctx, r, NoticeUnknown)
		return
	}

	f.prompt = &openPrompt{Prompt: p, messageID: msgID, origin: r}
	f.phase = phasePrompting
	f.arm(f.m.timeouts.Prompt)

	view := f.current()
	view.Content = awaitingReply
	f.show(ctx, r, view)
}

// answer consumes the owner's reply to the open prompt.
func (f *Flow) answer(ctx context.Context, messageID, content string) {
	p := f.prompt
	summary := f.session.Answer(p.Prompt, content)
	log.ApplicationLogger().Debug("Configuration prompt answered", f.logArgs("action", p.Action)...)

	f.clearPrompt(ctx, messageID)
	f.phase = phaseEditing
	f.arm(f.m.timeouts.Menu)
	f.show(ctx, nil, f.current())
	f.tell(ctx, p.origin, summary)
}

func (f *Flow) promptExpired(ctx context.Context) {
	origin := f.prompt.origin
	f.clearPrompt(ctx)
	f.phase = phaseEditing
	f.arm(f.m.timeouts.Menu)
	f.show(ctx, nil, f.current())
	f.tell(ctx, origin, NoticePromptExpiry)
}

func (f *Flow) abandonPrompt(ctx context.Context) {
	f.clearPrompt(ctx)
	f.phase = phaseEditing
}

// clearPrompt deletes the prompt message and any extra messages (the reply).
func (f *Flow) clearPrompt(ctx context.Context, extra ...string) {
	if f.prompt == nil {
		return
	}
	ids := append([]string{f.prompt.messageID}, extra...)
	if err := f.m.channel.Delete(ctx, f.channelID, ids...); err != nil {
		log.DiscordLogger().Warn("Failed to clean up configuration prompt", f.logArgs("err", err)...)
	}
	f.prompt = nil
}

func (f *Flow) unknown(ctx context.Context, a settings.Action, r Replier) {
	log.ApplicationLogger().Warn("Unhandled configuration control", f.logArgs("action", a)...)
	switch f.phase {
	case phaseSelecting:
		f.arm(f.m.timeouts.Selector)
	case phaseEditing:
		f.arm(f.m.timeouts.Menu)
	}
	f.show(ctx, r, f.current())
	f.tell(ctx, r, NoticeUnknown)
}

// close is the single terminal path: it stops timers, removes the prompt,
// renders the locked view and releases the guild lock.
func (f *Flow) close(ctx context.Context, reason Reason, notice string, r Replier) {
	if f.phase == phaseClosed {
		return
	}
	f.disarm()
	f.clearPrompt(ctx)
	f.phase = phaseClosed

	view := f.current()
	view.Content = notice
	f.show(ctx, r, view)

	if f.session != nil {
		f.m.observer.SessionEnded(string(f.session.Kind()), string(reason))
	}
	f.m.locks.Release(f.guildID, f.id)
	f.m.forget(f)
	log.ApplicationLogger().Info("Configuration menu closed",
		f.logArgs("reason", reason, "open", time.Since(f.openedAt).Round(time.Second))...)
}
