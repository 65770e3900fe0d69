package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bryfeng/sherpa-front-sub002/internal/model"
	"github.com/bryfeng/sherpa-front-sub002/internal/panel"
	"github.com/bryfeng/sherpa-front-sub002/internal/session"
)

var log = logrus.WithField("component", "chat")

const refreshTimeout = 15 * time.Second

// Options carries the wallet context attached to every backend request.
type Options struct {
	Address string
	Chain   string
	Model   string
}

// Controller owns one conversation: the transcript, the merged board, and
// the highlight set. It is not safe for concurrent use.
type Controller struct {
	client *Client
	opts   Options

	conversationID string
	messages       []model.ChatMessage
	widgets        []panel.Widget
	highlights     *panel.Tracker
}

func NewController(client *Client, opts Options) *Controller {
	return &Controller{
		client:     client,
		opts:       opts,
		highlights: panel.NewTracker(),
	}
}

// Restore loads a persisted session into the controller.
func (c *Controller) Restore(snap session.Snapshot) {
	c.conversationID = snap.ConversationID
	c.messages = append([]model.ChatMessage(nil), snap.Messages...)
	c.widgets = append([]panel.Widget(nil), snap.Widgets...)
	c.highlights.Set(snap.Highlighted)
}

// Snapshot exports the controller state for persistence.
func (c *Controller) Snapshot() session.Snapshot {
	return session.Snapshot{
		ConversationID: c.conversationID,
		Messages:       append([]model.ChatMessage(nil), c.messages...),
		Widgets:        append([]panel.Widget(nil), c.widgets...),
		Highlighted:    c.highlights.IDs(),
	}
}

func (c *Controller) Widgets() []panel.Widget {
	return append([]panel.Widget(nil), c.widgets...)
}

// Turn is the outcome of one exchange.
type Turn struct {
	Reply          string
	ConversationID string
	Widgets        []panel.Widget
	Highlighted    []string
	Sources        []model.Source
}

// Send runs one chat turn: the prompt goes out with the full transcript and
// wallet context, the reply's panels are upserted into the board, and the
// highlight set becomes exactly the ids this turn touched.
func (c *Controller) Send(ctx context.Context, prompt string) (Turn, error) {
	userMsg := model.ChatMessage{Role: "user", Content: prompt}
	req := model.ChatRequest{
		Messages:       append(append([]model.ChatMessage(nil), c.messages...), userMsg),
		Address:        c.opts.Address,
		Chain:          c.opts.Chain,
		ConversationID: c.conversationID,
		Model:          c.opts.Model,
	}

	resp, err := c.client.Send(ctx, req)
	if err != nil {
		return Turn{}, err
	}

	c.messages = append(c.messages, userMsg, model.ChatMessage{Role: "assistant", Content: resp.Reply})
	c.adoptConversationID(resp.ConversationID)

	incoming := widgetsFromPanels(resp.Panels)
	c.widgets = panel.Upsert(c.widgets, incoming)
	ids := make([]string, 0, len(incoming))
	for _, w := range incoming {
		ids = append(ids, w.ID)
	}
	c.highlights.Set(ids)

	log.WithFields(logrus.Fields{
		"conversation": c.conversationID,
		"panels":       len(incoming),
	}).Debug("chat turn merged")

	return Turn{
		Reply:          resp.Reply,
		ConversationID: c.conversationID,
		Widgets:        c.Widgets(),
		Highlighted:    c.highlights.IDs(),
		Sources:        resp.Sources,
	}, nil
}

// RequestQuoteRefresh asks the backend for a fresh quote after a failed
// execution step. One-way: the outcome is logged and never surfaced, the
// failed attempt's error already tells the user what happened.
func (c *Controller) RequestQuoteRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	prompt := model.ChatMessage{Role: "user", Content: "The transaction attempt failed. Please refresh the quote."}
	resp, err := c.client.Send(ctx, model.ChatRequest{
		Messages:       append(append([]model.ChatMessage(nil), c.messages...), prompt),
		Address:        c.opts.Address,
		Chain:          c.opts.Chain,
		ConversationID: c.conversationID,
		Model:          c.opts.Model,
	})
	if err != nil {
		log.WithError(err).Debug("quote refresh request failed")
		return
	}

	c.messages = append(c.messages, prompt, model.ChatMessage{Role: "assistant", Content: resp.Reply})
	c.adoptConversationID(resp.ConversationID)
	if incoming := widgetsFromPanels(resp.Panels); len(incoming) > 0 {
		c.widgets = panel.Upsert(c.widgets, incoming)
	}
	log.WithField("panels", len(resp.Panels)).Debug("quote refresh merged")
}

func (c *Controller) adoptConversationID(returned string) {
	switch {
	case strings.TrimSpace(returned) != "":
		c.conversationID = returned
	case c.conversationID == "":
		c.conversationID = uuid.NewString()
	}
}

// widgetsFromPanels normalizes backend panels into widgets. Unknown panel
// types pass through as-is so new server-side kinds render as opaque cards
// without a client release.
func widgetsFromPanels(panels []model.Panel) []panel.Widget {
	out := make([]panel.Widget, 0, len(panels))
	for _, p := range panels {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		sources := make([]panel.Source, 0, len(p.Sources))
		for _, s := range p.Sources {
			sources = append(sources, panel.Source{Label: s.Label, Href: s.Href})
		}
		out = append(out, panel.Widget{
			ID:      p.ID,
			Kind:    normalizeKind(p.Type),
			Title:   p.Title,
			Payload: p.Payload,
			Sources: sources,
		})
	}
	return out
}

func normalizeKind(raw string) panel.Kind {
	switch panel.Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case panel.KindChart:
		return panel.KindChart
	case panel.KindPortfolio:
		return panel.KindPortfolio
	case panel.KindPrices, "price":
		return panel.KindPrices
	case panel.KindTrending:
		return panel.KindTrending
	case panel.KindHistorySummary:
		return panel.KindHistorySummary
	case panel.KindPolicyStatus:
		return panel.KindPolicyStatus
	case panel.KindPolicyAlert:
		return panel.KindPolicyAlert
	default:
		return panel.KindCard
	}
}
