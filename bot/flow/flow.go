// Package flow implements the interactive dialog chains of the bot:
// select an application, manage it, adjust its settings, confirm
// destructive actions. Each flow owns exactly one ephemeral message
// and rewrites it on every transition; every state is bound to an
// independent timeout after which the dialog becomes inert.
package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Joab0/squarecloud-manager/bot/locale"
	"github.com/Joab0/squarecloud-manager/squarecloud"
)

// Action is one user input routed to a flow: a button press or a
// select choice, together with the interaction that carries it.
type Action struct {
	ID          string
	Value       string
	Interaction *discordgo.Interaction

	// acked is set after the first response to the interaction; later
	// renders go through the webhook edit endpoint instead.
	acked bool
}

type transitionOp int

const (
	opStay transitionOp = iota
	opPush
	opPop
	opReplace
	opEnd
)

// transition is the result of handling an action: stay in the current
// dialog, move through the navigation stack, or terminate the flow.
type transition struct {
	op    transitionOp
	next  state
	final *View
}

func stay() transition              { return transition{op: opStay} }
func push(next state) transition    { return transition{op: opPush, next: next} }
func pop() transition               { return transition{op: opPop} }
func replace(next state) transition { return transition{op: opReplace, next: next} }
func end(final *View) transition    { return transition{op: opEnd, final: final} }

// state is one dialog of a flow.
type state interface {
	view(f *Flow) *View
	handle(ctx context.Context, f *Flow, act *Action) (transition, error)
	timeout() time.Duration
}

// expirer lets a state observe its own timeout before the flow goes
// inert. Used by confirm prompts to report the timed-out outcome.
type expirer interface {
	expire(ctx context.Context, f *Flow)
}

// Flow is one dialog chain bound to a single user and a single
// message. Actions are processed strictly one at a time by the flow's
// goroutine; controls are disabled while an action is in progress.
type Flow struct {
	id     string
	userID string
	client *squarecloud.Client
	t      *locale.Translator
	r      Renderer
	log    *zap.Logger
	mgr    *Manager

	stack   []state
	actions chan *Action
	last    *discordgo.Interaction
}

func (f *Flow) current() state { return f.stack[len(f.stack)-1] }

// controlID builds the custom ID routing a component back to this flow.
func (f *Flow) controlID(action string) string {
	return "flow:" + f.id + ":" + action
}

// depth is used by states to decide whether a "back" control applies.
func (f *Flow) depth() int { return len(f.stack) }

// respond renders v as the reaction to act: the first render answers
// the interaction, subsequent renders edit the original response.
func (f *Flow) respond(act *Action, v *View) {
	var err error
	if !act.acked {
		act.acked = true
		err = f.r.Update(act.Interaction, v)
	} else {
		err = f.r.Edit(act.Interaction, v)
	}
	if err != nil {
		f.log.Warn("flow render failed", zap.String("flow", f.id), zap.Error(err))
	}
}

// ackBusy immediately re-renders the current dialog with every control
// disabled, so no second action can race the one being processed.
func (f *Flow) ackBusy(act *Action) {
	v := f.current().view(f)
	v.DisableAll()
	f.respond(act, v)
}

// ackLoading swaps the dialog for a bare loading notice while a slow
// chain of API calls runs.
func (f *Flow) ackLoading(act *Action) {
	f.respond(act, &View{Description: "⌛ **|** " + f.t.T("apps.loading")})
}

func (f *Flow) run(ctx context.Context) {
	timer := time.NewTimer(f.current().timeout())
	defer timer.Stop()

	for {
		select {
		case act := <-f.actions:
			f.last = act.Interaction
			f.ackBusy(act)

			tr, err := f.current().handle(ctx, f, act)
			if err != nil {
				f.notifyError(act, err)
				f.respond(act, f.current().view(f))
				resetTimer(timer, f.current().timeout())
				continue
			}

			switch tr.op {
			case opStay:
			case opPush:
				f.stack = append(f.stack, tr.next)
			case opPop:
				if len(f.stack) > 1 {
					f.stack = f.stack[:len(f.stack)-1]
				}
			case opReplace:
				f.stack[len(f.stack)-1] = tr.next
			case opEnd:
				f.respond(act, tr.final)
				f.mgr.remove(f.id)
				return
			}

			f.respond(act, f.current().view(f))
			resetTimer(timer, f.current().timeout())

		case <-timer.C:
			if e, ok := f.current().(expirer); ok {
				e.expire(ctx, f)
			}
			// The dialog stays visible but is no longer interactive.
			v := f.current().view(f)
			v.DisableAll()
			if f.last != nil {
				if err := f.r.Edit(f.last, v); err != nil {
					f.log.Warn("flow expiry render failed", zap.String("flow", f.id), zap.Error(err))
				}
			}
			f.mgr.remove(f.id)
			return
		}
	}
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}

// notifyError renders a failure as an ephemeral notice scoped to the
// triggering interaction. The flow's rendered state is untouched and
// remains interactive.
func (f *Flow) notifyError(act *Action, err error) {
	var httpErr *squarecloud.HTTPError
	var msg string
	switch {
	case errors.As(err, &httpErr):
		msg = f.t.T("errors.api_error", httpErr.Code)
	default:
		msg = f.t.T("errors.unexpected_error")
	}
	f.log.Error("flow action failed",
		zap.String("flow", f.id),
		zap.String("action", act.ID),
		zap.Error(err),
	)
	if err := f.r.Notify(act.Interaction, errorView(msg)); err != nil {
		f.log.Warn("flow error notice failed", zap.String("flow", f.id), zap.Error(err))
	}
}

func errorView(msg string) *View {
	return &View{Description: "❌ **|** " + msg, Color: colorRed}
}

// Manager owns all live flows and routes component interactions to them.
type Manager struct {
	r   Renderer
	log *zap.Logger

	mu    sync.Mutex
	flows map[string]*Flow
}

// NewManager creates a flow manager rendering through r.
func NewManager(r Renderer, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{r: r, log: log, flows: make(map[string]*Flow)}
}

func (m *Manager) newFlow(userID string, t *locale.Translator, client *squarecloud.Client) *Flow {
	return &Flow{
		id:      uuid.NewString(),
		userID:  userID,
		client:  client,
		t:       t,
		r:       m.r,
		log:     m.log,
		mgr:     m,
		actions: make(chan *Action, 1),
	}
}

func (m *Manager) register(f *Flow) {
	m.mu.Lock()
	m.flows[f.id] = f
	m.mu.Unlock()
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.flows, id)
	m.mu.Unlock()
}

// Dispatch routes a component interaction to its flow. It reports
// whether the custom ID belonged to the flow namespace.
func (m *Manager) Dispatch(i *discordgo.InteractionCreate) bool {
	data := i.MessageComponentData()
	parts := strings.SplitN(data.CustomID, ":", 3)
	if len(parts) != 3 || parts[0] != "flow" {
		return false
	}

	m.mu.Lock()
	f := m.flows[parts[1]]
	m.mu.Unlock()

	// Dead flow or someone else's dialog: acknowledge so the Discord
	// client does not report a failure, but do nothing.
	if f == nil || interactionUserID(i.Interaction) != f.userID {
		if err := m.r.Ack(i.Interaction); err != nil {
			m.log.Debug("stale component ack failed", zap.Error(err))
		}
		return true
	}

	act := &Action{ID: parts[2], Interaction: i.Interaction}
	if len(data.Values) > 0 {
		act.Value = data.Values[0]
	}

	select {
	case f.actions <- act:
	default:
		// The flow is mid-action and its controls are disabled; this
		// can only happen on a stale client. Drop the input.
		if err := m.r.Ack(i.Interaction); err != nil {
			m.log.Debug("busy flow ack failed", zap.Error(err))
		}
	}
	return true
}

func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// StartApps opens the application management flow: straight into the
// manage dialog when the user has a single application, otherwise the
// paginated select dialog.
func (m *Manager) StartApps(
	ctx context.Context,
	ic *discordgo.Interaction,
	t *locale.Translator,
	client *squarecloud.Client,
	apps []squarecloud.PartialApplication,
) error {
	f := m.newFlow(interactionUserID(ic), t, client)

	if len(apps) == 1 {
		if err := m.r.Respond(ic, &View{Description: "⌛ **|** " + t.T("apps.loading")}); err != nil {
			return err
		}
		st, err := newManage(ctx, f, apps[0].ID)
		if err != nil {
			if editErr := m.r.Edit(ic, errorView(t.T("errors.unexpected_error"))); editErr != nil {
				m.log.Warn("manage bootstrap render failed", zap.Error(editErr))
			}
			return err
		}
		f.stack = []state{st}
		f.last = ic
		m.register(f)
		if err := m.r.Edit(ic, st.view(f)); err != nil {
			return err
		}
	} else {
		st := newSelect(apps, 1)
		f.stack = []state{st}
		f.last = ic
		if err := m.r.Respond(ic, st.view(f)); err != nil {
			return err
		}
		m.register(f)
	}

	go f.run(ctx)
	return nil
}

// StartUploaded opens the post-upload dialog.
func (m *Manager) StartUploaded(
	ctx context.Context,
	ic *discordgo.Interaction,
	t *locale.Translator,
	client *squarecloud.Client,
	app *squarecloud.UploadedApplication,
) error {
	f := m.newFlow(interactionUserID(ic), t, client)
	st := &uploadedState{app: app}
	f.stack = []state{st}
	f.last = ic

	if err := m.r.Edit(ic, st.view(f)); err != nil {
		return err
	}
	m.register(f)

	go f.run(ctx)
	return nil
}
