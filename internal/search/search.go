// Package search builds document search commands and tracks the "not found"
// indication, which re-arms itself after a short delay.
package search

import (
	"context"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/internal/sched"
	"pkt.systems/tilesync/schema"
)

// DefaultRearm is how long a not-found indication stays up.
const DefaultRearm = 500 * time.Millisecond

// Controller is the search state of one session.
type Controller struct {
	log      pslog.Logger
	rearm    *sched.Debounce
	phrase   string
	notFound bool
}

// New constructs a Controller. A non-positive rearm uses DefaultRearm.
func New(s sched.Scheduler, rearm time.Duration, logger pslog.Logger) *Controller {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if rearm <= 0 {
		rearm = DefaultRearm
	}
	return &Controller{log: logger, rearm: sched.NewDebounce(s, rearm)}
}

// Command returns the search request for phrase in the given direction.
func (c *Controller) Command(phrase string, backward bool) (protocol.Request, error) {
	if phrase == "" {
		return protocol.Request{}, schema.ErrEmptySearch
	}
	req, err := protocol.Search(phrase, backward)
	if err != nil {
		return protocol.Request{}, err
	}
	c.phrase = phrase
	c.log.Debug("search requested", "phrase", phrase, "backward", backward)
	return req, nil
}

// NotFound raises the not-found indication and schedules found to run once it
// re-arms. It returns the event to surface now.
func (c *Controller) NotFound(phrase string, found func(schema.Event)) schema.Event {
	c.notFound = true
	c.rearm.Schedule(func() {
		c.notFound = false
		if found != nil {
			found(schema.Event{Type: schema.EventSearchFound, Search: schema.SearchEvent{Phrase: phrase}})
		}
	})
	c.log.Debug("search not found", "phrase", phrase)
	return schema.Event{Type: schema.EventSearchNotFound, Search: schema.SearchEvent{Phrase: phrase}}
}

// IsNotFound reports whether the not-found indication is up.
func (c *Controller) IsNotFound() bool {
	return c.notFound
}

// Phrase returns the last searched phrase.
func (c *Controller) Phrase() string {
	return c.phrase
}

// Stop cancels a pending re-arm.
func (c *Controller) Stop() {
	c.rearm.Stop()
}
