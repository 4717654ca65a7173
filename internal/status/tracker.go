// Package status tracks document metadata, the loading indicator and the
// session permission mode.
package status

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/schema"
)

// State is a read-only view of the tracker.
type State struct {
	DocType     schema.DocType
	Width       int
	Height      int
	Parts       int
	CurrentPart int
	Pages       int
	CurrentPage int
	PartNames   []string
	Permission  schema.Permission
	Indicator   Indicator
}

// Indicator is the loading progress readout.
type Indicator struct {
	Visible bool
	Value   int
}

// Tracker owns the session's document description.
type Tracker struct {
	log        pslog.Logger
	lastStatus string
	state      State
	// prefetchPart is the part pre-fetching targets; -1 before the first status.
	prefetchPart int
}

// New constructs a Tracker with the given initial permission.
func New(permission schema.Permission, logger pslog.Logger) *Tracker {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if permission == "" {
		permission = schema.PermissionView
	}
	return &Tracker{
		log:          logger,
		state:        State{Permission: permission},
		prefetchPart: -1,
	}
}

// State returns a copy of the tracked state.
func (t *Tracker) State() State {
	st := t.state
	st.PartNames = append([]string(nil), t.state.PartNames...)
	return st
}

// CurrentPart returns the displayed part; always 0 for text documents.
func (t *Tracker) CurrentPart() int { return t.state.CurrentPart }

// DocType returns the document kind.
func (t *Tracker) DocType() schema.DocType { return t.state.DocType }

// Permission returns the session permission mode.
func (t *Tracker) Permission() schema.Permission { return t.state.Permission }

// PrefetchPart returns the part targeted by pre-fetching.
func (t *Tracker) PrefetchPart() int { return t.prefetchPart }

// StatusChange lists the effects of a status message.
type StatusChange struct {
	Changed bool
	// DocSize is the document extent in twips, for the viewport's max bounds.
	DocSize schema.Rect
	Events  []schema.Event
	// SetClientPart is set for multi-part documents.
	SetClientPart *protocol.Request
	// PrefetchReset reports that the pre-fetch part changed.
	PrefetchReset bool
}

// ApplyStatus processes a status message. A message identical to the last
// one is a no-op.
func (t *Tracker) ApplyStatus(raw string, st protocol.Status) StatusChange {
	if raw == t.lastStatus {
		return StatusChange{}
	}
	t.lastStatus = raw
	change := StatusChange{
		Changed: true,
		DocSize: schema.RectXYWH(0, 0, st.Width, st.Height),
	}
	t.state.DocType = st.Type
	t.state.Width = st.Width
	t.state.Height = st.Height
	if st.Type.IsText() {
		t.state.CurrentPart = 0
		t.state.Parts = 1
		t.state.CurrentPage = st.Current
		t.state.Pages = st.Parts
		t.state.PartNames = nil
		change.Events = append(change.Events, t.pageEvent())
	} else {
		t.state.CurrentPart = st.Current
		t.state.Parts = st.Parts
		t.state.PartNames = append([]string(nil), st.Names...)
		req := protocol.SetClientPart(st.Current)
		change.SetClientPart = &req
		change.Events = append(change.Events, schema.Event{
			Type: schema.EventPartsUpdated,
			Parts: schema.PartsEvent{
				CurrentPart: t.state.CurrentPart,
				Parts:       t.state.Parts,
				DocType:     t.state.DocType,
				Names:       append([]string(nil), t.state.PartNames...),
			},
		})
	}
	if t.prefetchPart != t.state.CurrentPart {
		t.prefetchPart = t.state.CurrentPart
		change.PrefetchReset = true
	}
	t.log.Info("status updated", "type", string(st.Type), "width", st.Width, "height", st.Height, "parts", st.Parts, "current", st.Current)
	return change
}

// SetPartChange lists the effects of a setpart message.
type SetPartChange struct {
	// Switched means the displayed part changed: selections must be cleared
	// and the tiles refreshed.
	Switched bool
	Event    *schema.Event
}

// ApplySetPart switches the part of a multi-part document or the page of a
// text document.
func (t *Tracker) ApplySetPart(part int) SetPartChange {
	if t.state.DocType.IsText() {
		t.state.CurrentPage = part
		ev := t.pageEvent()
		return SetPartChange{Event: &ev}
	}
	if part == t.state.CurrentPart {
		return SetPartChange{}
	}
	t.state.CurrentPart = part
	t.log.Debug("status part switched", "part", part)
	return SetPartChange{
		Switched: true,
		Event: &schema.Event{
			Type: schema.EventPartChanged,
			Part: schema.PartEvent{Part: part, DocType: t.state.DocType},
		},
	}
}

func (t *Tracker) pageEvent() schema.Event {
	return schema.Event{
		Type: schema.EventPageChanged,
		Page: schema.PageEvent{Page: t.state.CurrentPage, Pages: t.state.Pages, DocType: t.state.DocType},
	}
}

// ApplyIndicator updates the loading indicator and returns the event to surface.
func (t *Tracker) ApplyIndicator(status schema.IndicatorStatus, value int) schema.Event {
	switch status {
	case schema.IndicatorStart:
		t.state.Indicator = Indicator{Visible: true}
	case schema.IndicatorSetValue:
		t.state.Indicator.Value = value
	case schema.IndicatorFinish:
		t.state.Indicator.Visible = false
	}
	return schema.Event{
		Type:      schema.EventIndicator,
		Indicator: schema.IndicatorEvent{Status: status, Value: t.state.Indicator.Value},
	}
}

// SetPermission changes the permission mode and reports whether it changed.
func (t *Tracker) SetPermission(p schema.Permission) bool {
	if p == t.state.Permission {
		return false
	}
	t.log.Info("status permission changed", "from", string(t.state.Permission), "to", string(p))
	t.state.Permission = p
	return true
}
