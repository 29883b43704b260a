package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/observability"
	"github.com/noah-isme/campus-grievance-api/internal/repository"
)

const (
	feedEventComplaint = "complaint"
	feedEventAccount   = "account"
)

// IdentityResolver loads the current identity of an account.
type IdentityResolver interface {
	Identity(ctx context.Context, userID string) (models.Identity, error)
}

// ComplaintFeed streams full scoped complaint snapshots to live subscribers.
type ComplaintFeed interface {
	ComplaintChangeNotifier
	AccountChangeNotifier
	// Subscribe returns a channel whose first value is the current result set. Later values
	// are fresh result sets after relevant changes. The channel closes when ctx ends or the
	// subscriber's profile disappears.
	Subscribe(ctx context.Context, userID string, req dto.ComplaintListRequest) (<-chan dto.ComplaintSnapshot, error)
	Start(ctx context.Context)
}

// FeedConfig tunes the live feed.
type FeedConfig struct {
	RefreshInterval time.Duration
	ChannelBase     string
}

type complaintFeed struct {
	complaints  repository.ComplaintRepository
	identities  IdentityResolver
	validator   *validator.Validate
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	interval    time.Duration
	logger      zerolog.Logger
	nodeID      string

	mu          sync.RWMutex
	subscribers map[*feedSubscriber]struct{}
}

type feedSubscriber struct {
	userID string
	dirty  chan struct{}

	mu    sync.RWMutex
	scope access.Scope
}

type feedEvent struct {
	Source      string    `json:"source"`
	Kind        string    `json:"kind"`
	ComplaintID string    `json:"complaint_id,omitempty"`
	AuthorEmail string    `json:"author_email,omitempty"`
	Branch      string    `json:"branch,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// NewComplaintFeed constructs the live complaint feed. Redis and NATS are optional and only
// used to fan change events out to other API nodes.
func NewComplaintFeed(complaints repository.ComplaintRepository, identities IdentityResolver, validate *validator.Validate, redisClient *redis.Client, natsConn *nats.Conn, cfg FeedConfig, logger zerolog.Logger) ComplaintFeed {
	stream := ""
	subject := ""
	if cfg.ChannelBase != "" {
		stream = cfg.ChannelBase + ":complaints"
		subject = strings.ReplaceAll(cfg.ChannelBase, ":", ".") + ".complaints"
	}

	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	return &complaintFeed{
		complaints:  complaints,
		identities:  identities,
		validator:   validate,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		interval:    interval,
		logger:      logger.With().Str("component", "complaint_feed").Logger(),
		nodeID:      uuid.NewString(),
		subscribers: make(map[*feedSubscriber]struct{}),
	}
}

func (f *complaintFeed) Start(ctx context.Context) {
	if f.redis != nil && f.redisStream != "" {
		go f.consumeRedis(ctx)
	}
	if f.nats != nil && f.natsSubject != "" {
		go f.consumeNATS(ctx)
	}
}

func (f *complaintFeed) Subscribe(ctx context.Context, userID string, req dto.ComplaintListRequest) (<-chan dto.ComplaintSnapshot, error) {
	identity, err := f.identities.Identity(ctx, userID)
	if err != nil {
		return nil, err
	}

	filter, err := complaintFilter(f.validator, identity, req)
	if err != nil {
		return nil, err
	}

	sub := &feedSubscriber{
		userID: userID,
		dirty:  make(chan struct{}, 1),
		scope:  filter.Scope,
	}
	// Registered before the first query so no change between the query and the loop is lost.
	f.register(sub)

	initial, err := f.complaints.List(ctx, filter)
	if err != nil {
		f.unregister(sub)
		return nil, err
	}

	out := make(chan dto.ComplaintSnapshot, 1)
	out <- dto.ComplaintSnapshot{Sequence: 1, Items: dto.NewComplaintResponseSlice(initial), GeneratedAt: time.Now().UTC()}
	observability.FeedSnapshots().Inc()

	go f.run(ctx, sub, req, out)

	return out, nil
}

func (f *complaintFeed) run(ctx context.Context, sub *feedSubscriber, req dto.ComplaintListRequest, out chan dto.ComplaintSnapshot) {
	defer func() {
		f.unregister(sub)
		close(out)
	}()

	limiter := rate.NewLimiter(rate.Every(f.interval), 1)
	sequence := uint64(1)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.dirty:
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		identity, err := f.identities.Identity(ctx, sub.userID)
		if err != nil {
			if errors.Is(err, ErrProfileNotFound) {
				f.logger.Info().Str("user_id", sub.userID).Msg("closing feed for removed profile")
				return
			}
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn().Err(err).Str("user_id", sub.userID).Msg("failed to reload feed identity")
			continue
		}

		filter, err := complaintFilter(f.validator, identity, req)
		if err != nil {
			f.logger.Warn().Err(err).Str("user_id", sub.userID).Msg("feed subscriber lost its scope")
			return
		}
		sub.setScope(filter.Scope)

		complaints, err := f.complaints.List(ctx, filter)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn().Err(err).Str("user_id", sub.userID).Msg("failed to refresh complaint snapshot")
			continue
		}

		sequence++
		deliverLatest(out, dto.ComplaintSnapshot{
			Sequence:    sequence,
			Items:       dto.NewComplaintResponseSlice(complaints),
			GeneratedAt: time.Now().UTC(),
		})
		observability.FeedSnapshots().Inc()
	}
}

// deliverLatest hands the snapshot to the consumer, replacing an undelivered older one.
func deliverLatest(out chan dto.ComplaintSnapshot, snapshot dto.ComplaintSnapshot) {
	for {
		select {
		case out <- snapshot:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}

// ComplaintChanged marks every subscriber that can see the complaint for refresh and
// fans the change out to other nodes.
func (f *complaintFeed) ComplaintChanged(ctx context.Context, complaint models.Complaint) {
	event := feedEvent{
		Source:      f.nodeID,
		Kind:        feedEventComplaint,
		ComplaintID: complaint.ID,
		AuthorEmail: complaint.AuthorEmail,
		Branch:      complaint.Branch,
		SentAt:      time.Now().UTC(),
	}
	f.apply(event)
	observability.FeedEvents().WithLabelValues("local").Inc()
	if err := f.publish(ctx, event); err != nil {
		f.logger.Warn().Err(err).Msg("failed to publish complaint change to broker")
	}
}

// AccountChanged marks the account's subscribers for refresh so a new role or a deletion
// takes effect on their streams.
func (f *complaintFeed) AccountChanged(ctx context.Context, userID string) {
	event := feedEvent{
		Source: f.nodeID,
		Kind:   feedEventAccount,
		UserID: userID,
		SentAt: time.Now().UTC(),
	}
	f.apply(event)
	observability.FeedEvents().WithLabelValues("local").Inc()
	if err := f.publish(ctx, event); err != nil {
		f.logger.Warn().Err(err).Msg("failed to publish account change to broker")
	}
}

func (f *complaintFeed) apply(event feedEvent) {
	complaint := models.Complaint{ID: event.ComplaintID, AuthorEmail: event.AuthorEmail, Branch: event.Branch}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.subscribers {
		switch event.Kind {
		case feedEventComplaint:
			if sub.currentScope().Matches(complaint) {
				sub.markDirty()
			}
		case feedEventAccount:
			if sub.userID == event.UserID {
				sub.markDirty()
			}
		}
	}
}

func (f *complaintFeed) publish(ctx context.Context, event feedEvent) error {
	if (f.redis == nil || f.redisStream == "") && (f.nats == nil || f.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if f.redis != nil && f.redisStream != "" {
		if err := f.redis.Publish(ctx, f.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if f.nats != nil && f.natsSubject != "" {
		if err := f.nats.Publish(f.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (f *complaintFeed) consumeRedis(ctx context.Context) {
	pubsub := f.redis.Subscribe(ctx, f.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			f.logger.Error().Err(err).Msg("complaint feed redis subscription closed")
			return
		}
		f.handleEvent([]byte(msg.Payload))
	}
}

func (f *complaintFeed) consumeNATS(ctx context.Context) {
	sub, err := f.nats.Subscribe(f.natsSubject, func(msg *nats.Msg) {
		f.handleEvent(msg.Data)
	})
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to subscribe to nats complaint subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			f.logger.Warn().Err(err).Msg("failed to drain complaint nats subscription")
		}
	}()
}

func (f *complaintFeed) handleEvent(payload []byte) {
	var event feedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		f.logger.Warn().Err(err).Msg("invalid complaint feed event payload")
		return
	}

	if event.Source == f.nodeID {
		return
	}

	observability.FeedEvents().WithLabelValues("remote").Inc()
	f.apply(event)
}

func (f *complaintFeed) register(sub *feedSubscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers[sub] = struct{}{}
	observability.FeedSubscribers().Inc()
}

func (f *complaintFeed) unregister(sub *feedSubscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subscribers[sub]; ok {
		delete(f.subscribers, sub)
		observability.FeedSubscribers().Dec()
	}
}

func (s *feedSubscriber) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *feedSubscriber) currentScope() access.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

func (s *feedSubscriber) setScope(scope access.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = scope
}

func complaintFilter(validate *validator.Validate, identity models.Identity, req dto.ComplaintListRequest) (repository.ComplaintFilter, error) {
	scope, err := access.ScopeFor(identity)
	if err != nil {
		return repository.ComplaintFilter{}, err
	}

	req.Status = strings.TrimSpace(req.Status)
	req.Category = strings.TrimSpace(req.Category)
	if err := validate.Struct(req); err != nil {
		return repository.ComplaintFilter{}, err
	}

	return repository.ComplaintFilter{
		Scope:    scope,
		Status:   models.ComplaintStatus(req.Status),
		Category: models.ComplaintCategory(req.Category),
	}, nil
}
