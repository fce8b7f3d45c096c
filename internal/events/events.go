// Package events fans committed poll mutations out to listeners.
package events

import (
	"context"
	"errors"
	"time"

	"degenecho/internal/models"
)

type Event struct {
	Type   string       `json:"type"`
	PollID string       `json:"poll_id"`
	Poll   *models.Poll `json:"poll,omitempty"`
	Bet    *models.Bet  `json:"bet,omitempty"`
	At     time.Time    `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
