package cases

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"beacon/internal/crypto/envelope"
	"beacon/internal/location"
	"beacon/internal/notify"
	"beacon/internal/responders"
	"beacon/internal/timeline"
	"beacon/internal/verification"
	"beacon/pkg/domain"
	dErrors "beacon/pkg/domain-errors"
	txcontext "beacon/pkg/platform/tx"
)

// DefaultLocatorTimeout bounds the nearest-responder lookup at creation.
// A slow locator degrades the case to pending rather than delaying intake.
const DefaultLocatorTimeout = 2 * time.Second

// Service is the case lifecycle engine. All writes go through the store's
// conditional update, and every mutation lands a timeline entry and an
// outbox event in the same transaction as the case row.
type Service struct {
	store         Store
	verifications VerificationStore
	responders    responders.Store
	timeline      *timeline.Publisher
	locator       location.Locator
	dispatcher    notify.Dispatcher
	protocol      *verification.Protocol

	// sealer is optional; when set, case descriptions are envelope
	// encrypted at rest and unsealed on read.
	sealer *envelope.Encryptor

	// db is optional; when set, mutations run inside a transaction shared
	// through context with the timeline and outbox stores.
	db *sql.DB

	logger         *slog.Logger
	tracer         trace.Tracer
	now            func() time.Time
	autoAssign     bool
	locatorTimeout time.Duration
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSealer enables envelope encryption of case descriptions at rest.
func WithSealer(enc *envelope.Encryptor) Option {
	return func(s *Service) { s.sealer = enc }
}

// WithDB makes mutations transactional across the case, timeline, and
// outbox stores.
func WithDB(db *sql.DB) Option {
	return func(s *Service) { s.db = db }
}

// WithAutoAssign toggles nearest-responder assignment at creation.
func WithAutoAssign(enabled bool) Option {
	return func(s *Service) { s.autoAssign = enabled }
}

// WithLocatorTimeout bounds the auto-assignment lookup.
func WithLocatorTimeout(d time.Duration) Option {
	return func(s *Service) { s.locatorTimeout = d }
}

// NewService wires the lifecycle engine.
func NewService(
	store Store,
	verifications VerificationStore,
	responderStore responders.Store,
	timelinePub *timeline.Publisher,
	locator location.Locator,
	dispatcher notify.Dispatcher,
	protocol *verification.Protocol,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:          store,
		verifications:  verifications,
		responders:     responderStore,
		timeline:       timelinePub,
		locator:        locator,
		dispatcher:     dispatcher,
		protocol:       protocol,
		logger:         logger,
		tracer:         otel.Tracer("beacon/cases"),
		now:            time.Now,
		autoAssign:     true,
		locatorTimeout: DefaultLocatorTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// transact runs fn inside a database transaction when the service has one
// to offer, so the case write, its timeline entry, and its outbox row
// commit together. Memory-backed wiring runs fn directly.
func (s *Service) transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.db == nil {
		return fn(ctx)
	}
	return txcontext.InTx(ctx, s.db, fn)
}

// CreateCase validates the report, computes priority, allocates the case
// uid, optionally auto-assigns the nearest responder, and persists the case
// with its creation timeline entry and notification event.
func (s *Service) CreateCase(ctx context.Context, req CreateCaseRequest) (Case, error) {
	ctx, span := s.tracer.Start(ctx, "cases.Create")
	defer span.End()

	incidentType, err := domain.ParseIncidentType(req.IncidentType)
	if err != nil {
		return Case{}, err
	}
	var loc *domain.Location
	if req.Lat != nil || req.Lng != nil {
		if req.Lat == nil || req.Lng == nil {
			return Case{}, dErrors.New(dErrors.CodeInvalidInput, "latitude and longitude must be provided together")
		}
		parsed, err := domain.ParseLocation(*req.Lat, *req.Lng, req.Accuracy)
		if err != nil {
			return Case{}, err
		}
		loc = &parsed
	}

	// Priority is computed on the plaintext description before sealing.
	priority := domain.ComputePriority(incidentType, req.Description)

	now := s.now().UTC()
	c := Case{
		ID:              domain.NewCaseID(),
		Anonymous:       req.Anonymous,
		DeviceID:        req.DeviceID,
		IncidentType:    incidentType,
		Priority:        priority,
		Status:          domain.StatusPending,
		Title:           req.Title,
		Description:     req.Description,
		InitialLocation: loc,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !req.Anonymous {
		c.ReporterID = req.ReporterID
	}

	var assigned *responders.Responder
	if s.autoAssign && loc != nil {
		assigned = s.findNearest(ctx, *loc, incidentType)
		if assigned != nil {
			c.Status = domain.StatusAssigned
			c.AssignedResponderID = &assigned.ID
			c.AssignedAgencyID = &assigned.AgencyID
			c.AssignedStationID = &assigned.StationID
		}
	}

	if s.sealer != nil {
		sealed, err := s.sealDescription(c.Description)
		if err != nil {
			return Case{}, err
		}
		c.Description = sealed
	}

	err = s.transact(ctx, func(ctx context.Context) error {
		seq, err := s.store.NextSequence(ctx, now)
		if err != nil {
			return err
		}
		c.CaseUID = domain.FormatCaseUID(now, seq)

		if err := s.store.Create(ctx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist case")
		}

		entry := timeline.Entry{
			CaseID:      c.ID,
			Actor:       creationActor(req),
			Action:      timeline.ActionCreated,
			Description: "case reported",
			NewValue:    string(domain.StatusPending),
			Metadata: map[string]string{
				"incident_type": incidentType.String(),
				"priority":      priority.String(),
			},
		}
		if c.DeviceID != "" {
			entry.Metadata["device"] = c.DeviceID
		}
		if err := s.timeline.Emit(ctx, entry); err != nil {
			return err
		}

		created := notify.NewEvent(notify.EventCaseCreated, c.ID, c.CaseUID)
		created.Priority = priority.String()
		if err := s.dispatcher.Notify(ctx, created); err != nil {
			return err
		}

		if assigned != nil {
			assignEntry := timeline.Entry{
				CaseID:      c.ID,
				Actor:       domain.SystemActor(),
				Action:      timeline.ActionAssigned,
				Description: "responder auto-assigned",
				NewValue:    assigned.ID.String(),
			}
			if err := s.timeline.Emit(ctx, assignEntry); err != nil {
				return err
			}
			event := notify.NewEvent(notify.EventResponderAssigned, c.ID, c.CaseUID)
			event.ResponderID = assigned.ID.String()
			if err := s.dispatcher.Notify(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Case{}, err
	}

	casesCreated.WithLabelValues(priority.String()).Inc()
	span.SetAttributes(
		attribute.String("case.uid", c.CaseUID.String()),
		attribute.String("case.priority", priority.String()),
		attribute.String("case.status", string(c.Status)),
	)
	s.logger.InfoContext(ctx, "case created",
		slog.String("case_uid", c.CaseUID.String()),
		slog.String("incident_type", incidentType.String()),
		slog.String("priority", priority.String()),
		slog.String("status", string(c.Status)),
	)

	return s.unsealCase(c)
}

// findNearest runs the locator under its own deadline. Any failure,
// including the deadline, leaves the case pending; intake never waits on a
// slow geospatial lookup.
func (s *Service) findNearest(ctx context.Context, loc domain.Location, incidentType domain.IncidentType) *responders.Responder {
	lookupCtx, cancel := context.WithTimeout(ctx, s.locatorTimeout)
	defer cancel()

	r, err := s.locator.FindNearest(lookupCtx, loc, incidentType)
	if err != nil {
		autoAssignOutcomes.WithLabelValues("error").Inc()
		s.logger.WarnContext(ctx, "auto-assignment degraded to pending", slog.Any("error", err))
		return nil
	}
	if r == nil {
		autoAssignOutcomes.WithLabelValues("no_match").Inc()
		return nil
	}
	autoAssignOutcomes.WithLabelValues("assigned").Inc()
	return r
}

func creationActor(req CreateCaseRequest) domain.Actor {
	if !req.Anonymous && req.ReporterID != nil {
		return domain.UserActor(*req.ReporterID)
	}
	return domain.SystemActor()
}

// sealedPrefix marks an envelope-encrypted description at rest.
const sealedPrefix = "enc:v1:"

func (s *Service) sealDescription(plaintext string) (string, error) {
	env, err := s.sealer.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "serialize sealed description")
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// unsealCase returns a copy with the description decrypted when it was
// sealed at rest. Unsealed rows pass through untouched so a deployment can
// turn the KEK on without migrating history.
func (s *Service) unsealCase(c Case) (Case, error) {
	if s.sealer == nil || !strings.HasPrefix(c.Description, sealedPrefix) {
		return c, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(c.Description, sealedPrefix))
	if err != nil {
		return Case{}, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "decode sealed description")
	}
	var env envelope.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Case{}, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "decode sealed description")
	}
	plaintext, err := s.sealer.Decrypt(env)
	if err != nil {
		return Case{}, err
	}
	c.Description = string(plaintext)
	return c, nil
}
