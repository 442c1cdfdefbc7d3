package telegram

import (
	"errors"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/loopline/trackbot/internal/flow"
	"github.com/loopline/trackbot/internal/logger"
	"github.com/loopline/trackbot/internal/session"
	"github.com/loopline/trackbot/internal/tracker"
)

// Callback keys. Flow choice buttons carry the option token; the project
// shortcuts carry the Airtable record id.
const (
	cbFlow     = "flow"
	cbUpdate   = "updproj"
	cbView     = "viewproj"
	cbCancel   = "cancel"
	payloadKey = "cb_payload"
)

const errorReply = "An error occurred. Please try again later."

// Handlers binds the conversation engine and the tracker service to the
// Telegram surface.
type Handlers struct {
	eng  *flow.Engine
	svc  *tracker.Service
	disp *Dispatcher
}

// NewHandlers creates the handler set. The dispatcher may be nil; sends then
// run synchronously.
func NewHandlers(eng *flow.Engine, svc *tracker.Service, disp *Dispatcher) *Handlers {
	return &Handlers{eng: eng, svc: svc, disp: disp}
}

// Register installs all commands and callbacks into the registry.
func (h *Handlers) Register(reg *Registry) {
	reg.RegisterCommand("/start", Command{Handler: h.onStart, Description: "Start the bot"})
	reg.RegisterCommand("/help", Command{Handler: h.onHelp, Description: "Show available commands"})
	reg.RegisterCommand("/newproject", Command{Handler: h.startFlow(session.KindNewProject), Description: "Log a new project"})
	reg.RegisterCommand("/updateproject", Command{Handler: h.startFlow(session.KindUpdateProject), Description: "Update an existing project"})
	reg.RegisterCommand("/searchprojects", Command{Handler: h.startFlow(session.KindSearch), Description: "Search for projects"})
	reg.RegisterCommand("/myprojects", Command{Handler: h.onMyProjects, Description: "View your projects"})
	reg.RegisterCommand("/cancel", Command{Handler: h.onCancel, Description: "Cancel current operation"})

	_ = reg.RegisterCallback(cbFlow, h.onFlowChoice)
	_ = reg.RegisterCallback(cbUpdate, h.onUpdateShortcut)
	_ = reg.RegisterCallback(cbView, h.onViewProject)
	_ = reg.RegisterCallback(cbCancel, h.onCancel)
	reg.SetTextFallback(h.onText)
	reg.SetCallbackNotFound(h.onUnknownCallback)
}

// onUnknownCallback answers presses on buttons whose key no longer maps to a
// handler, e.g. from messages sent before a deploy changed the callback set.
func (h *Handlers) onUnknownCallback(c tele.Context) error {
	return c.Respond(&tele.CallbackResponse{Text: "This button is no longer active."})
}

func (h *Handlers) onStart(c tele.Context) error {
	var name string
	if u := c.Sender(); u != nil {
		name = u.FirstName
	}
	return SendText(h.disp, c, tracker.Greeting(name))
}

func (h *Handlers) onHelp(c tele.Context) error {
	return SendMD(h.disp, c, tracker.HelpText())
}

// startFlow begins a conversation, discarding any in-progress one.
func (h *Handlers) startFlow(kind session.Kind) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := BuildContext(c)
		prompt, err := h.eng.Start(ctx, c.Sender().ID, kind)
		if err != nil {
			return h.sendStartError(c, err)
		}
		return h.sendPrompt(c, prompt)
	}
}

func (h *Handlers) sendStartError(c tele.Context, err error) error {
	var ee *flow.EndError
	if errors.As(err, &ee) {
		return SendText(h.disp, c, ee.Msg)
	}
	logger.Error(BuildContext(c), "tg", "flow.start.fail",
		slog.String("error", redactToken(err)))
	return SendText(h.disp, c, errorReply)
}

// onText feeds free text into the active conversation.
func (h *Handlers) onText(c tele.Context) error {
	ctx := BuildContext(c)
	res, err := h.eng.HandleEvent(ctx, flow.Event{
		UserID: c.Sender().ID,
		Input:  flow.InputText,
		Text:   c.Text(),
	})
	return h.deliver(c, res, err)
}

// onFlowChoice feeds an inline button selection into the active conversation.
func (h *Handlers) onFlowChoice(c tele.Context) error {
	_ = c.Respond()
	ctx := BuildContext(c)
	res, err := h.eng.HandleEvent(ctx, flow.Event{
		UserID: c.Sender().ID,
		Input:  flow.InputChoice,
		Choice: callbackPayload(c),
	})
	return h.deliver(c, res, err)
}

// onUpdateShortcut jumps straight into the update conversation with the
// project preselected. The selection still goes through the engine, so the
// ownership check applies to shortcut buttons too.
func (h *Handlers) onUpdateShortcut(c tele.Context) error {
	_ = c.Respond()
	ctx := BuildContext(c)
	userID := c.Sender().ID

	if _, err := h.eng.Start(ctx, userID, session.KindUpdateProject); err != nil {
		return h.sendStartError(c, err)
	}
	res, err := h.eng.HandleEvent(ctx, flow.Event{
		UserID: userID,
		Input:  flow.InputChoice,
		Choice: callbackPayload(c),
	})
	return h.deliver(c, res, err)
}

func (h *Handlers) onViewProject(c tele.Context) error {
	_ = c.Respond()
	ctx := BuildContext(c)
	recordID := callbackPayload(c)

	card, err := h.svc.ProjectCard(ctx, c.Sender().ID, recordID)
	if err != nil {
		logger.Error(ctx, "tg", "view.fail",
			slog.String("record_id", recordID),
			slog.String("error", redactToken(err)))
		return SendText(h.disp, c, errorReply)
	}
	markup := InlineButtons([]InlineBtn{
		{Text: "📝 Update Project", Unique: cbUpdate, Data: recordID},
	})
	if card.Markdown {
		return SendMD(h.disp, c, card.Text, markup)
	}
	return SendText(h.disp, c, card.Text, &tele.SendOptions{ReplyMarkup: markup})
}

func (h *Handlers) onMyProjects(c tele.Context) error {
	ctx := BuildContext(c)
	projects, text, err := h.svc.MyProjects(ctx, c.Sender().ID)
	if err != nil {
		logger.Error(ctx, "tg", "myprojects.fail",
			slog.String("error", redactToken(err)))
		return SendText(h.disp, c, errorReply)
	}
	if len(projects) == 0 {
		return SendText(h.disp, c, text)
	}

	rows := make([][]InlineBtn, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []InlineBtn{
			{Text: "📝 Update", Unique: cbUpdate, Data: p.ID},
			{Text: "👁 View", Unique: cbView, Data: p.ID},
		})
	}
	return SendMD(h.disp, c, text, InlineButtonsRows(rows...))
}

func (h *Handlers) onCancel(c tele.Context) error {
	if c.Callback() != nil {
		_ = c.Respond()
	}
	ctx := BuildContext(c)
	cancelled, err := h.eng.Cancel(ctx, c.Sender().ID)
	if err != nil {
		logger.Error(ctx, "tg", "cancel.fail", slog.String("error", redactToken(err)))
		return SendText(h.disp, c, errorReply)
	}
	if !cancelled {
		return SendText(h.disp, c, "Nothing to cancel. Use /help to see available commands.")
	}
	return SendText(h.disp, c, "Operation cancelled.")
}

// deliver turns an engine outcome into an outbound message.
func (h *Handlers) deliver(c tele.Context, res flow.Result, err error) error {
	if err != nil {
		if errors.Is(err, flow.ErrNoSession) {
			return SendText(h.disp, c, "I didn't catch that. Use /help to see available commands.")
		}
		logger.Error(BuildContext(c), "tg", "flow.event.fail",
			slog.String("error", redactToken(err)))
		return SendText(h.disp, c, errorReply)
	}
	return h.sendPrompt(c, res.Prompt)
}

// sendPrompt renders a flow prompt: choices become single-column inline
// buttons whose token round-trips through the flow callback.
func (h *Handlers) sendPrompt(c tele.Context, p *flow.Prompt) error {
	if p == nil || p.Text == "" {
		return nil
	}
	var markup *tele.ReplyMarkup
	if len(p.Choices) > 0 {
		btns := make([]InlineBtn, 0, len(p.Choices))
		for _, ch := range p.Choices {
			btns = append(btns, InlineBtn{Text: ch.Label, Unique: cbFlow, Data: ch.Token})
		}
		markup = InlineButtons(btns)
	}
	if p.Markdown {
		return SendMD(h.disp, c, p.Text, markup)
	}
	opts := &tele.SendOptions{ReplyMarkup: markup}
	return SendText(h.disp, c, p.Text, opts)
}

func callbackPayload(c tele.Context) string {
	if v, ok := c.Get(payloadKey).(string); ok && v != "" {
		return v
	}
	if cb := c.Callback(); cb != nil {
		_, payload := parseCallback(cb)
		return payload
	}
	return ""
}
