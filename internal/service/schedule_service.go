package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"clinic/internal/availability"
	"clinic/internal/cache"
	"clinic/internal/config"
	"clinic/internal/database"
	"clinic/internal/events"
	"clinic/internal/metrics"
	"clinic/internal/schedule"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrActorRequired    = errors.New("actor id is required")
	ErrInvalidSchedule  = errors.New("schedule is invalid")
	ErrRangeTooLarge    = errors.New("requested range is too large")
)

// Store persists schedule documents.
type Store interface {
	LoadDocument(ctx context.Context, professionalID uuid.UUID) (*schedule.Document, error)
	SaveDocument(ctx context.Context, doc schedule.Document, actorID uuid.UUID) (*schedule.Document, error)
	ListProfessionals(ctx context.Context) ([]uuid.UUID, error)
}

// WindowCache caches resolved availability.
type WindowCache interface {
	Get(ctx context.Context, key string, out any) bool
	Set(ctx context.Context, key string, val any)
}

// Publisher delivers domain events.
type Publisher interface {
	Publish(event events.Event) error
}

// Policy holds the reloadable service settings.
type Policy struct {
	DefaultTimeZone      string
	DefaultBufferMinutes int
	MaxRangeDays         int
}

func PolicyFromConfig(cfg config.AvailabilityConfig) Policy {
	return Policy{
		DefaultTimeZone:      cfg.DefaultTimeZone,
		DefaultBufferMinutes: cfg.DefaultBufferMinutes,
		MaxRangeDays:         cfg.MaxRangeDays,
	}
}

// Editable is a schedule in the shape editors work with.
type Editable struct {
	ProfessionalID uuid.UUID                  `json:"professionalId"`
	Rules          schedule.GroupedRules      `json:"rules"`
	Exceptions     []schedule.ExceptionPeriod `json:"exceptions"`
	Config         schedule.Config            `json:"config"`
	Revision       int64                      `json:"revision"`
	UpdatedBy      *uuid.UUID                 `json:"updatedBy,omitempty"`
	UpdatedAt      *time.Time                 `json:"updatedAt,omitempty"`
}

// UpdateRequest replaces a professional's schedule. Rules may come in
// either shape. Revision is the revision the editor started from.
type UpdateRequest struct {
	ProfessionalID uuid.UUID
	Rules          schedule.Shape
	Exceptions     []schedule.ExceptionPeriod
	Config         schedule.Config
	Revision       int64
	ActorID        uuid.UUID
}

// AvailabilityResult is the resolved availability of one professional.
type AvailabilityResult struct {
	ProfessionalID uuid.UUID                     `json:"professionalId"`
	Revision       int64                         `json:"revision"`
	TimeZone       string                        `json:"timeZone"`
	From           civil.Date                    `json:"from"`
	To             civil.Date                    `json:"to"`
	Windows        []availability.BookableWindow `json:"windows"`
	Blocked        []availability.BlockedDate    `json:"blocked"`
}

// ScheduleService edits schedules and answers availability queries.
type ScheduleService struct {
	store    Store
	cache    WindowCache
	bus      Publisher
	resolver *availability.Resolver
	logger   *zerolog.Logger

	mu     sync.RWMutex
	policy Policy

	concurrency int
}

func NewScheduleService(store Store, windowCache WindowCache, bus Publisher, policy Policy, logger *zerolog.Logger) *ScheduleService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "schedule").Logger()
	return &ScheduleService{
		store:       store,
		cache:       windowCache,
		bus:         bus,
		resolver:    availability.NewResolver(&l),
		logger:      &l,
		policy:      policy,
		concurrency: 4,
	}
}

// SetPolicy swaps the settings, e.g. after a config reload.
func (s *ScheduleService) SetPolicy(p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = p
}

func (s *ScheduleService) Policy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// Editable returns the schedule of a professional grouped by day. A
// professional without a stored schedule gets a blank one at revision 0.
func (s *ScheduleService) Editable(ctx context.Context, professionalID uuid.UUID) (*Editable, error) {
	doc, err := s.store.LoadDocument(ctx, professionalID)
	if errors.Is(err, database.ErrNotFound) {
		p := s.Policy()
		return &Editable{
			ProfessionalID: professionalID,
			Rules:          schedule.GroupedRules{},
			Exceptions:     []schedule.ExceptionPeriod{},
			Config:         schedule.Config{TimeZone: p.DefaultTimeZone, BufferMinutes: p.DefaultBufferMinutes},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return toEditable(doc), nil
}

// Validate checks a schedule without storing it.
func (s *ScheduleService) Validate(rules schedule.Shape, exceptions []schedule.ExceptionPeriod, cfg schedule.Config) schedule.ValidationErrors {
	errs := schedule.Validate(schedule.ToEditable(rules), exceptions, s.withDefaultZone(cfg))
	metrics.AddValidationErrors("validate", len(errs))
	return errs
}

// Update validates and stores a new version of a schedule. Validation
// failures are returned wrapped in ErrInvalidSchedule and carry every
// problem found as schedule.ValidationErrors.
func (s *ScheduleService) Update(ctx context.Context, req UpdateRequest) (*Editable, error) {
	if req.ActorID == uuid.Nil {
		return nil, ErrActorRequired
	}

	rules := schedule.ToEditable(req.Rules)
	exceptions := req.Exceptions
	if exceptions == nil {
		exceptions = []schedule.ExceptionPeriod{}
	}
	cfg := s.withDefaultZone(req.Config)
	if errs := schedule.Validate(rules, exceptions, cfg); len(errs) > 0 {
		metrics.AddValidationErrors("update", len(errs))
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, errs)
	}

	saved, err := s.store.SaveDocument(ctx, schedule.Document{
		ProfessionalID: req.ProfessionalID,
		Rules:          schedule.ToStorage(rules),
		Exceptions:     exceptions,
		Config:         cfg,
		Revision:       req.Revision,
	}, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("save schedule %s: %w", req.ProfessionalID, err)
	}
	metrics.IncScheduleUpdate()

	s.logger.Info().
		Str("professional_id", saved.ProfessionalID.String()).
		Int64("revision", saved.Revision).
		Str("actor_id", req.ActorID.String()).
		Msg("schedule updated")

	s.publishUpdate(saved, req.ActorID)
	return toEditable(saved), nil
}

// withDefaultZone gives an empty time zone the policy default. Edits are
// stored with the zone filled in.
func (s *ScheduleService) withDefaultZone(cfg schedule.Config) schedule.Config {
	if cfg.TimeZone == "" {
		cfg.TimeZone = s.Policy().DefaultTimeZone
	}
	return cfg
}

// publishUpdate announces an accepted edit. Cache invalidation subscribes to it.
func (s *ScheduleService) publishUpdate(saved *schedule.Document, actorID uuid.UUID) {
	if s.bus == nil {
		return
	}
	event, err := events.NewScheduleUpdated(events.ScheduleUpdated{
		ProfessionalID: saved.ProfessionalID,
		Revision:       saved.Revision,
		ActorID:        actorID,
	})
	if err == nil {
		err = s.bus.Publish(event)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("professional_id", saved.ProfessionalID.String()).Msg("publish schedule event failed")
	}
}

// Availability resolves bookable windows for [from, to]. A reversed range
// yields an empty result. Ranges longer than the policy allows are refused.
func (s *ScheduleService) Availability(ctx context.Context, professionalID uuid.UUID, from, to civil.Date) (*AvailabilityResult, error) {
	p := s.Policy()
	if !from.After(to) && p.MaxRangeDays > 0 && to.DaysSince(from)+1 > p.MaxRangeDays {
		return nil, fmt.Errorf("%w: %d days, max %d", ErrRangeTooLarge, to.DaysSince(from)+1, p.MaxRangeDays)
	}

	doc, err := s.store.LoadDocument(ctx, professionalID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg := s.withDefaultZone(doc.Config)

	result := &AvailabilityResult{
		ProfessionalID: professionalID,
		Revision:       doc.Revision,
		TimeZone:       cfg.TimeZone,
		From:           from,
		To:             to,
		Windows:        []availability.BookableWindow{},
		Blocked:        []availability.BlockedDate{},
	}
	if from.After(to) {
		return result, nil
	}

	key := cache.Key(professionalID, doc.Revision, cfg.TimeZone, from, to)
	if s.cache != nil {
		var cached AvailabilityResult
		if s.cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	rules := schedule.ToEditable(doc.Rules)
	result.Windows = s.resolver.Resolve(rules, doc.Exceptions, cfg, from, to)
	result.Blocked = availability.Blocked(rules, doc.Exceptions, from, to)

	if s.cache != nil {
		s.cache.Set(ctx, key, result)
	}
	return result, nil
}

// ResolveMany resolves several professionals concurrently. Professionals
// without a schedule are left out; any other failure aborts the call.
func (s *ScheduleService) ResolveMany(ctx context.Context, professionalIDs []uuid.UUID, from, to civil.Date) (map[uuid.UUID]*AvailabilityResult, error) {
	var (
		mu      sync.Mutex
		results = make(map[uuid.UUID]*AvailabilityResult, len(professionalIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range professionalIDs {
		g.Go(func() error {
			res, err := s.Availability(gctx, id, from, to)
			if errors.Is(err, ErrScheduleNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("professional %s: %w", id, err)
			}
			mu.Lock()
			results[id] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ResolveAll resolves every professional with a stored schedule.
func (s *ScheduleService) ResolveAll(ctx context.Context, from, to civil.Date) (map[uuid.UUID]*AvailabilityResult, error) {
	ids, err := s.store.ListProfessionals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list professionals: %w", err)
	}
	return s.ResolveMany(ctx, ids, from, to)
}

// SeedMissing stores seed schedules for professionals that have none yet.
// Invalid seed entries are logged and skipped. It returns how many were stored.
func (s *ScheduleService) SeedMissing(ctx context.Context, seed *config.SeedFile, actorID uuid.UUID) (int, error) {
	if actorID == uuid.Nil {
		return 0, ErrActorRequired
	}
	stored := 0
	for _, p := range seed.Professionals {
		doc, err := p.Document()
		if err != nil {
			return stored, err
		}
		_, err = s.store.LoadDocument(ctx, doc.ProfessionalID)
		if err == nil {
			continue
		}
		if !errors.Is(err, database.ErrNotFound) {
			return stored, err
		}

		_, err = s.Update(ctx, UpdateRequest{
			ProfessionalID: doc.ProfessionalID,
			Rules:          p.Rules,
			Exceptions:     p.Exceptions,
			Config:         p.Config(),
			ActorID:        actorID,
		})
		if errors.Is(err, ErrInvalidSchedule) {
			s.logger.Warn().Err(err).Str("professional_id", p.ID).Str("name", p.Name).Msg("skipping invalid seed schedule")
			continue
		}
		if err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

func toEditable(doc *schedule.Document) *Editable {
	e := &Editable{
		ProfessionalID: doc.ProfessionalID,
		Rules:          schedule.ToEditable(doc.Rules),
		Exceptions:     doc.Exceptions,
		Config:         doc.Config,
		Revision:       doc.Revision,
	}
	if e.Rules == nil {
		e.Rules = schedule.GroupedRules{}
	}
	if e.Exceptions == nil {
		e.Exceptions = []schedule.ExceptionPeriod{}
	}
	if doc.UpdatedBy != uuid.Nil {
		by := doc.UpdatedBy
		e.UpdatedBy = &by
	}
	if !doc.UpdatedAt.IsZero() {
		at := doc.UpdatedAt
		e.UpdatedAt = &at
	}
	return e
}
