package google

import (
	"context"
	"fmt"
	"log/slog"

	"gdqcal/internal/document"
	"gdqcal/internal/reconcile"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// CalendarInfo is an entry of the authenticated user's calendar list.
type CalendarInfo struct {
	ID      string
	Summary string
}

// OpResult is the outcome of one operation of a batch. A non-nil Err is a
// remote operation failure; other operations of the batch are unaffected.
type OpResult struct {
	Op  reconcile.Op
	Err error
}

// NewClient creates a Google Calendar client authenticated with token.
// Refreshed tokens are written back to tokenFile.
func NewClient(ctx context.Context, logger *slog.Logger, config *oauth2.Config, token *oauth2.Token, tokenFile string) (*CalendarClient, error) {
	src := newPersistingTokenSource(logger, config.TokenSource(ctx, token), tokenFile, token)
	return NewClientWithOptions(ctx, logger, option.WithHTTPClient(oauth2.NewClient(ctx, src)))
}

// NewClientWithOptions creates a client from raw API options.
func NewClientWithOptions(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{service: service, logger: logger}, nil
}

// ListCalendars returns every calendar on the account's calendar list.
func (c *CalendarClient) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	var out []CalendarInfo
	err := c.service.CalendarList.List().Pages(ctx, func(list *calendar.CalendarList) error {
		for _, item := range list.Items {
			out = append(out, CalendarInfo{ID: item.Id, Summary: item.Summary})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	c.logger.Debug("Listed calendars", "count", len(out))
	return out, nil
}

// CreateCalendar creates a secondary calendar and returns its id.
func (c *CalendarClient) CreateCalendar(ctx context.Context, name, timezone string) (string, error) {
	cal, err := c.service.Calendars.Insert(&calendar.Calendar{
		Summary:  name,
		TimeZone: timezone,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create calendar %q: %w", name, err)
	}
	c.logger.Info("Created calendar", "name", name, "calendarID", cal.Id)
	return cal.Id, nil
}

// SetDefaultReadACL makes a calendar publicly readable.
func (c *CalendarClient) SetDefaultReadACL(ctx context.Context, calendarID string) error {
	_, err := c.service.Acl.Insert(calendarID, &calendar.AclRule{
		Role:  "reader",
		Scope: &calendar.AclRuleScope{Type: "default"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to set public read access on %s: %w", calendarID, err)
	}
	return nil
}

// ListEventIDs returns the ids of every event on the calendar, across all
// pages. Deleted events are included: their ids stay reserved, so they must
// be revived with an update rather than created again.
func (c *CalendarClient) ListEventIDs(ctx context.Context, calendarID string) (reconcile.IDSet, error) {
	ids := reconcile.NewIDSet()
	err := c.service.Events.List(calendarID).
		ShowDeleted(true).
		Fields("nextPageToken", "items(id)").
		Pages(ctx, func(events *calendar.Events) error {
			for _, item := range events.Items {
				ids[item.Id] = struct{}{}
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list events of %s: %w", calendarID, err)
	}
	c.logger.Debug("Listed existing events", "calendarID", calendarID, "count", len(ids))
	return ids, nil
}

// InsertEvent creates a new event from a payload.
func (c *CalendarClient) InsertEvent(ctx context.Context, calendarID string, p document.Payload) error {
	_, err := c.service.Events.Insert(calendarID, toGoogleEvent(p)).Context(ctx).Do()
	return err
}

// UpdateEvent replaces an existing event with a payload.
func (c *CalendarClient) UpdateEvent(ctx context.Context, calendarID string, p document.Payload) error {
	_, err := c.service.Events.Update(calendarID, p.ID, toGoogleEvent(p)).Context(ctx).Do()
	return err
}

// ExecuteBatch runs every queued op against the calendar, in order, and
// reports each outcome. A failing op does not stop the batch and nothing is
// rolled back. The Go client has no batch endpoint, so ops are sent one
// request at a time.
func (c *CalendarClient) ExecuteBatch(ctx context.Context, calendarID string, ops []reconcile.Op) []OpResult {
	results := make([]OpResult, 0, len(ops))
	for _, op := range ops {
		var err error
		switch op.Kind {
		case reconcile.Update:
			err = c.UpdateEvent(ctx, calendarID, op.Payload)
		default:
			err = c.InsertEvent(ctx, calendarID, op.Payload)
		}
		if err != nil {
			err = fmt.Errorf("%s event %s: %w", op.Kind, op.Payload.ID, err)
		}
		results = append(results, OpResult{Op: op, Err: err})
	}
	return results
}

// toGoogleEvent converts a payload to a public, non-blocking Google event.
func toGoogleEvent(p document.Payload) *calendar.Event {
	return &calendar.Event{
		Id:           p.ID,
		Summary:      p.Summary,
		Description:  p.Description,
		Start:        &calendar.EventDateTime{DateTime: p.Start},
		End:          &calendar.EventDateTime{DateTime: p.End},
		Status:       "confirmed",
		Transparency: "transparent",
		Visibility:   "public",
	}
}
