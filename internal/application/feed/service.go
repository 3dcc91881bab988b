package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/infrastructure/posthog"
	"github.com/inkeddraw/backend/internal/pkg/id"
)

const maxFeedPage = 50

type Service interface {
	CreatePost(ctx context.Context, userID string, req domain.CreatePostRequest) (*domain.Post, error)
	GetPost(ctx context.Context, viewerID, postID string) (*domain.Post, error)
	DeletePost(ctx context.Context, userID, role, postID string) error
	Home(ctx context.Context, viewerID string, cursor *domain.FeedCursor, limit int) ([]domain.Post, error)
	Discover(ctx context.Context, viewerID string, cursor *domain.FeedCursor, limit int) ([]domain.Post, error)

	Like(ctx context.Context, userID, postID string) error
	Unlike(ctx context.Context, userID, postID string) error

	Comment(ctx context.Context, userID, postID string, req domain.CreateCommentRequest) (*domain.Comment, error)
	ListComments(ctx context.Context, postID string, limit, page int) ([]domain.Comment, error)
	DeleteComment(ctx context.Context, userID, role, commentID string) error
}

type postStore interface {
	Put(ctx context.Context, p *domain.Post) error
	Get(ctx context.Context, postID, viewerID string) (*domain.Post, error)
	HomeFeed(ctx context.Context, viewerID string, cursor *domain.FeedCursor, limit int) ([]domain.Post, error)
	DiscoverFeed(ctx context.Context, viewerID string, cursor *domain.FeedCursor, limit int) ([]domain.Post, error)
	SoftDelete(ctx context.Context, postID string) error
	Like(ctx context.Context, postID, userID string) (bool, error)
	Unlike(ctx context.Context, postID, userID string) error
	PutComment(ctx context.Context, c *domain.Comment) error
	GetComment(ctx context.Context, commentID string) (*domain.Comment, error)
	ListComments(ctx context.Context, postID string, limit, offset int) ([]domain.Comment, error)
	SoftDeleteComment(ctx context.Context, commentID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type deviceStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
}

type pushSender interface {
	Push(ctx context.Context, endpointARN, title, body string, data map[string]string) error
}

type service struct {
	posts    postStore
	users    userStore
	devices  deviceStore
	push     pushSender
	tracker  posthog.Tracker
	log      zerolog.Logger
	pushSent prometheus.Counter
}

func NewService(posts postStore, users userStore, devices deviceStore, push pushSender, tracker posthog.Tracker, log zerolog.Logger, pushSent prometheus.Counter) Service {
	return &service{
		posts:    posts,
		users:    users,
		devices:  devices,
		push:     push,
		tracker:  tracker,
		log:      log.With().Str("component", "feed").Logger(),
		pushSent: pushSent,
	}
}

func (s *service) CreatePost(ctx context.Context, userID string, req domain.CreatePostRequest) (*domain.Post, error) {
	now := time.Now().UTC()
	p := &domain.Post{
		ID:        id.New(),
		UserID:    userID,
		Body:      req.Body,
		ImageURL:  req.ImageURL,
		ProductID: req.ProductID,
		Kind:      req.Kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Put(ctx, p); err != nil {
		return nil, err
	}
	s.tracker.Capture(userID, "post_created", map[string]interface{}{"has_image": p.ImageURL != ""})
	return s.posts.Get(ctx, p.ID, userID)
}

func (s *service) GetPost(ctx context.Context, viewerID, postID string) (*domain.Post, error) {
	return s.posts.Get(ctx, postID, viewerID)
}

func (s *service) DeletePost(ctx context.Context, userID, role, postID string) error {
	p, err := s.posts.Get(ctx, postID, userID)
	if err != nil {
		return err
	}
	if p.UserID != userID && role != domain.RoleAdmin {
		return fmt.Errorf("not your post: %w", domain.ErrForbidden)
	}
	return s.posts.SoftDelete(ctx, postID)
}

func (s *service) Home(ctx context.Context, viewerID string, cursor *domain.FeedCursor, limit int) ([]domain.Post, error) {
	return s.posts.HomeFeed(ctx, viewerID, cursor, clampLimit(limit))
}

func (s *service) Discover(ctx context.Context, viewerID string, cursor *domain.FeedCursor, limit int) ([]domain.Post, error) {
	return s.posts.DiscoverFeed(ctx, viewerID, cursor, clampLimit(limit))
}

func (s *service) Like(ctx context.Context, userID, postID string) error {
	fresh, err := s.posts.Like(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !fresh {
		// already liked, idempotent
		return nil
	}
	p, err := s.posts.Get(ctx, postID, userID)
	if err != nil {
		return nil
	}
	if p.UserID != userID {
		s.notifyOwner(userID, p.UserID, "liked your post", map[string]string{"post_id": postID, "type": "like"})
	}
	return nil
}

func (s *service) Unlike(ctx context.Context, userID, postID string) error {
	return s.posts.Unlike(ctx, postID, userID)
}

func (s *service) Comment(ctx context.Context, userID, postID string, req domain.CreateCommentRequest) (*domain.Comment, error) {
	p, err := s.posts.Get(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &domain.Comment{
		ID:        id.New(),
		PostID:    postID,
		UserID:    userID,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.PutComment(ctx, c); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		s.notifyOwner(userID, p.UserID, "commented on your post", map[string]string{"post_id": postID, "type": "comment"})
	}
	return c, nil
}

func (s *service) ListComments(ctx context.Context, postID string, limit, page int) ([]domain.Comment, error) {
	if limit < 1 || limit > maxFeedPage {
		limit = 25
	}
	if page < 1 {
		page = 1
	}
	return s.posts.ListComments(ctx, postID, limit, (page-1)*limit)
}

func (s *service) DeleteComment(ctx context.Context, userID, role, commentID string) error {
	c, err := s.posts.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if c.UserID != userID && role != domain.RoleAdmin {
		return fmt.Errorf("not your comment: %w", domain.ErrForbidden)
	}
	return s.posts.SoftDeleteComment(ctx, commentID)
}

// notifyOwner pushes to every registered device of the post owner. Runs in
// the background; failures are logged, never surfaced to the actor.
func (s *service) notifyOwner(actorID, ownerID, action string, data map[string]string) {
	if s.push == nil {
		// push delivery not configured
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		actor, err := s.users.Get(ctx, actorID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", actorID).Msg("push skipped")
			return
		}
		name := actor.DisplayName
		if name == "" {
			name = actor.Username
		}
		devices, err := s.devices.ListByUser(ctx, ownerID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", ownerID).Msg("push skipped")
			return
		}
		for _, d := range devices {
			if d.PushEndpoint == nil {
				continue
			}
			if err := s.push.Push(ctx, *d.PushEndpoint, "Inked Draw", name+" "+action, data); err != nil {
				s.log.Warn().Err(err).Str("device_id", d.DeviceID).Msg("push failed")
				continue
			}
			s.pushSent.Inc()
		}
	}()
}

func clampLimit(limit int) int {
	if limit < 1 || limit > maxFeedPage {
		return 20
	}
	return limit
}
