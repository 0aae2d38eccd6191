package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"gdqcal/internal/document"
	"gdqcal/internal/google"
	"gdqcal/internal/identity"
	"gdqcal/internal/models"
	"gdqcal/internal/projection"
	"gdqcal/internal/reconcile"
	"gdqcal/internal/schedule"

	"github.com/google/uuid"
)

// ScheduleSource fetches the live schedule.
type ScheduleSource interface {
	Fetch(ctx context.Context, url string) (*models.Schedule, error)
}

// Remote is the subset of the remote calendar client the syncer drives.
type Remote interface {
	ListCalendars(ctx context.Context) ([]google.CalendarInfo, error)
	CreateCalendar(ctx context.Context, name, timezone string) (string, error)
	SetDefaultReadACL(ctx context.Context, calendarID string) error
	ListEventIDs(ctx context.Context, calendarID string) (reconcile.IDSet, error)
	ExecuteBatch(ctx context.Context, calendarID string, ops []reconcile.Op) []google.OpResult
}

// Publisher receives a copy of every written document.
type Publisher interface {
	Publish(ctx context.Context, name string, data []byte) error
}

// Options configure a Syncer.
type Options struct {
	ScheduleURL     string
	TaggedNamesFile string
	OutputDir       string

	// Subset enables the tagged-only projection.
	Subset       bool
	SubsetLabel  string
	SubsetSuffix string

	// DisableGeneral skips the general remote calendar. The general document
	// is still written.
	DisableGeneral bool
	DryRun         bool

	Reference      *time.Location
	ReferenceLabel string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Syncer orchestrates one export: fetch, normalize, then for each projection
// write the document and reconcile the remote calendar.
type Syncer struct {
	logger    *slog.Logger
	source    ScheduleSource
	remote    Remote
	publisher Publisher
	opts      Options
}

// target is one projection together with where it goes.
type target struct {
	proj         projection.Projection
	calendarName string
	remote       bool
}

// NewSyncer creates a new Syncer. remote and publisher may be nil to disable
// remote sync and publishing.
func NewSyncer(logger *slog.Logger, source ScheduleSource, remote Remote, publisher Publisher, opts Options) *Syncer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Reference == nil {
		opts.Reference = time.UTC
	}
	return &Syncer{
		logger:    logger,
		source:    source,
		remote:    remote,
		publisher: publisher,
		opts:      opts,
	}
}

// CheckConfig reports configuration problems that would fail every cycle,
// such as a missing tagged-name list when the subset projection is enabled.
func (s *Syncer) CheckConfig() error {
	if !s.opts.Subset {
		return nil
	}
	if _, err := schedule.LoadNames(s.opts.TaggedNamesFile); err != nil {
		return err
	}
	return nil
}

// Run performs a full export cycle. Fetch, configuration and normalization
// failures abort the cycle before anything is written. Failures of individual
// remote operations or uploads are logged, and returned joined after every
// projection has been processed.
func (s *Syncer) Run(ctx context.Context) error {
	logger := s.logger.With("cycle", uuid.NewString())
	logger.Info("Starting sync cycle.")

	sched, err := s.source.Fetch(ctx, s.opts.ScheduleURL)
	if err != nil {
		return fmt.Errorf("failed to fetch schedule: %w", err)
	}

	ec, err := models.NewEventContext(sched.Event, s.opts.ScheduleURL)
	if err != nil {
		return err
	}
	logger = logger.With("event", ec.ShortName, "year", ec.Year)

	targets := s.targets(logger, ec)

	var tagged schedule.NameSet
	if hasSubset(targets) {
		tagged, err = schedule.LoadNames(s.opts.TaggedNamesFile)
		if err != nil {
			return err
		}
		logger.Debug("Loaded tagged names", "count", len(tagged))
	}

	runs, err := schedule.Normalize(sched.Records, tagged)
	if err != nil {
		return fmt.Errorf("failed to normalize schedule: %w", err)
	}
	logger.Info("Normalized schedule.", "records", len(sched.Records), "runs", len(runs))

	var calendars []google.CalendarInfo
	if s.remote != nil && hasRemote(targets) {
		calendars, err = s.remote.ListCalendars(ctx)
		if err != nil {
			return err
		}
	}

	now := s.opts.Now()
	var failures []error
	for _, t := range targets {
		errs, err := s.export(ctx, logger.With("projection", t.proj.Name), ec, t, runs, calendars, now)
		if err != nil {
			return err
		}
		failures = append(failures, errs...)
	}

	if len(failures) > 0 {
		logger.Error("Sync cycle finished with failures.", "failures", len(failures))
		return errors.Join(failures...)
	}
	logger.Info("Sync cycle finished.")
	return nil
}

// targets returns the projections to produce, general first.
func (s *Syncer) targets(logger *slog.Logger, ec models.EventContext) []target {
	remote := s.remote != nil
	targets := []target{{
		proj:         projection.General(),
		calendarName: ec.GeneralCalendarName(),
		remote:       remote && !s.opts.DisableGeneral,
	}}

	if s.opts.Subset {
		if !ec.SubsetAllowed {
			logger.Info("Event is already restricted to tagged runners, skipping subset calendar.")
			return targets
		}
		targets = append(targets, target{
			proj:         projection.Subset(s.opts.SubsetSuffix),
			calendarName: ec.SubsetCalendarName(s.opts.SubsetLabel),
			remote:       remote,
		})
	}
	return targets
}

func hasSubset(targets []target) bool {
	for _, t := range targets {
		if t.proj.Name == projection.SubsetName {
			return true
		}
	}
	return false
}

func hasRemote(targets []target) bool {
	for _, t := range targets {
		if t.remote {
			return true
		}
	}
	return false
}

// export produces one projection. The returned slice holds non-fatal
// failures; the error is fatal.
func (s *Syncer) export(ctx context.Context, logger *slog.Logger, ec models.EventContext, t target, runs []models.Run, calendars []google.CalendarInfo, now time.Time) ([]error, error) {
	filtered := projection.Apply(t.proj, runs)
	res := document.Build(ec, t.proj, filtered, document.Options{
		Now:            now,
		Reference:      s.opts.Reference,
		ReferenceLabel: s.opts.ReferenceLabel,
		CalendarName:   t.calendarName,
		Remote:         t.remote,
	})

	data, err := document.Encode(res.Calendar)
	if err != nil {
		return nil, err
	}
	name := ec.FileName(t.proj.FileSuffix)
	if err := document.WriteFile(filepath.Join(s.opts.OutputDir, name), data); err != nil {
		return nil, fmt.Errorf("error writing calendar document: %w", err)
	}
	logger.Info("Calendar document written.", "file", name, "entries", len(res.Entries))

	var failures []error
	if s.publisher != nil {
		if s.opts.DryRun {
			logger.Info("[DRY RUN] Would publish document", "file", name)
		} else if err := s.publisher.Publish(ctx, name, data); err != nil {
			logger.Error("Failed to publish document", "file", name, "error", err)
			failures = append(failures, err)
		}
	}

	if !t.remote {
		return failures, nil
	}

	calendarID, existing, err := s.ensureCalendar(ctx, logger, calendars, t.calendarName, ec.Timezone)
	if err != nil {
		return nil, err
	}
	ec = ec.WithCalendarID(t.proj.Name, calendarID)

	ops := reconcile.Plan(res.Payloads, existing)
	for _, id := range reconcile.Stale(res.Payloads, existing) {
		uid, err := identity.DecodeRemoteID(id)
		if err != nil {
			logger.Debug("Remote entry not created by gdqcal, leaving it untouched", "id", id, "error", err)
			continue
		}
		logger.Debug("Remote entry no longer in schedule, leaving it untouched", "id", id, "uid", uid)
	}

	if s.opts.DryRun {
		for _, op := range ops {
			logger.Info("[DRY RUN] Would "+op.Kind.String()+" event", "id", op.Payload.ID, "summary", op.Payload.Summary)
		}
		return failures, nil
	}

	var created, updated int
	for _, r := range s.remote.ExecuteBatch(ctx, ec.CalendarID(t.proj.Name), ops) {
		if r.Err != nil {
			logger.Error("Remote operation failed", "op", r.Op.Kind.String(), "id", r.Op.Payload.ID, "summary", r.Op.Payload.Summary, "error", r.Err)
			failures = append(failures, r.Err)
			continue
		}
		if r.Op.Kind == reconcile.Update {
			updated++
		} else {
			created++
		}
	}
	logger.Info("Remote calendar reconciled.", "calendar", t.calendarName, "created", created, "updated", updated, "failed", len(ops)-created-updated)
	return failures, nil
}

// ensureCalendar finds the calendar by name or creates it with public read
// access, and returns the ids of the entries it already holds.
func (s *Syncer) ensureCalendar(ctx context.Context, logger *slog.Logger, calendars []google.CalendarInfo, name, timezone string) (string, reconcile.IDSet, error) {
	for _, c := range calendars {
		if c.Summary == name {
			logger.Debug("Found calendar", "name", name, "calendarID", c.ID)
			existing, err := s.remote.ListEventIDs(ctx, c.ID)
			if err != nil {
				return "", nil, err
			}
			return c.ID, existing, nil
		}
	}

	if s.opts.DryRun {
		logger.Info("[DRY RUN] Would create calendar", "name", name, "timezone", timezone)
		return "", reconcile.NewIDSet(), nil
	}

	id, err := s.remote.CreateCalendar(ctx, name, timezone)
	if err != nil {
		return "", nil, err
	}
	if err := s.remote.SetDefaultReadACL(ctx, id); err != nil {
		return "", nil, err
	}
	logger.Info("Did not find a calendar, created one.", "name", name, "calendarID", id)
	return id, reconcile.NewIDSet(), nil
}
