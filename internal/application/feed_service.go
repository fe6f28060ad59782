package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/feedstream/internal/domain/entity"
	repo "github.com/oksasatya/feedstream/internal/domain/repository"
	"github.com/oksasatya/feedstream/internal/realtime"
	"github.com/oksasatya/feedstream/pkg/helpers"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrForbidden    = errors.New("not allowed")
)

// ImageStore is the image resource manager: Store uploads bytes and
// returns a reference, Release frees a reference. Release failures are
// never surfaced to callers.
type ImageStore interface {
	Store(ctx context.Context, r io.Reader, filename, contentType string) (string, error)
	Release(ctx context.Context, url string) error
}

// FeedService orchestrates every post mutation: authorize ownership,
// persist, maintain the owner set, then broadcast. Within one request
// the broadcast always happens after persistence succeeded.
type FeedService struct {
	Posts        repo.PostRepository
	Users        repo.UserRepository
	Hub          realtime.Broadcaster
	Images       ImageStore
	Redis        *redis.Client
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESPostsIndex string
	PageSize     int
}

func NewFeedService(posts repo.PostRepository, users repo.UserRepository, hub realtime.Broadcaster, images ImageStore, rdb *redis.Client, logger *logrus.Logger, es *elasticsearch.Client, esPostsIndex string, pageSize int) *FeedService {
	if pageSize <= 0 {
		pageSize = 2
	}
	return &FeedService{
		Posts:        posts,
		Users:        users,
		Hub:          hub,
		Images:       images,
		Redis:        rdb,
		Logger:       logger,
		ES:           es,
		ESPostsIndex: esPostsIndex,
		PageSize:     pageSize,
	}
}

// isOwner is the single ownership predicate used by update and delete.
// It is checked against the loaded post, never against request input.
func isOwner(userID string, p *entity.Post) bool {
	return p != nil && p.CreatorID == userID
}

const feedTotalKey = "feed:total_items"

type CreatePostInput struct {
	Title    string
	Content  string
	ImageURL string
}

type UpdatePostInput struct {
	Title    string
	Content  string
	ImageURL string
}

// Create persists a new post for userID, appends it to the owner set,
// and broadcasts a "create" event. The event fires only after the post
// row is committed; an owner-set failure after that point aborts the
// request but leaves the row in place (no distributed rollback).
func (s *FeedService) Create(ctx context.Context, userID string, in CreatePostInput) (*entity.Post, *entity.CreatorSummary, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}

	p := &entity.Post{
		Title:     in.Title,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		CreatorID: u.ID,
	}
	if err := s.Posts.Create(ctx, p); err != nil {
		return nil, nil, err
	}

	// The owner set update is a separate write; once the post row exists
	// it should complete even if the client has gone away.
	dctx := context.WithoutCancel(ctx)
	if err := s.Users.AddPostRef(dctx, u.ID, p.ID); err != nil {
		return nil, nil, err
	}

	s.invalidateTotal(dctx)
	s.indexPost(dctx, p)

	creator := &entity.CreatorSummary{ID: u.ID, Name: u.Name}
	s.Hub.Publish(realtime.Message{Action: "create", Post: p, Creator: creator})
	return p, creator, nil
}

// Get returns a single post by id.
func (s *FeedService) Get(ctx context.Context, postID string) (*entity.Post, error) {
	p, err := s.Posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return p, nil
}

// Update loads the post, checks ownership, persists the new fields and
// broadcasts an "update" event. A replaced image is released in the
// background; release failure is logged, never surfaced.
func (s *FeedService) Update(ctx context.Context, userID, postID string, in UpdatePostInput) (*entity.Post, error) {
	p, err := s.Posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if !isOwner(userID, p) {
		return nil, ErrForbidden
	}

	oldImage := p.ImageURL
	p.Title = in.Title
	p.Content = in.Content
	p.ImageURL = in.ImageURL

	if err := s.Posts.Update(ctx, p); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	if oldImage != p.ImageURL {
		s.releaseImage(oldImage)
	}
	s.indexPost(context.WithoutCancel(ctx), p)

	s.Hub.Publish(realtime.Message{Action: "update", Post: p})
	return p, nil
}

// Delete removes the post record, then prunes the owner-set reference.
// The prune is best-effort: if it fails after the record is gone the
// owner set keeps a dangling reference until a retried RemovePostRef
// (idempotent) cleans it up. The "delete" event fires once the record
// removal is committed.
func (s *FeedService) Delete(ctx context.Context, userID, postID string) error {
	p, err := s.Posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	if !isOwner(userID, p) {
		return ErrForbidden
	}

	s.releaseImage(p.ImageURL)

	if err := s.Posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	dctx := context.WithoutCancel(ctx)
	if err := s.Users.RemovePostRef(dctx, p.CreatorID, postID); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"user_id": p.CreatorID,
			"post_id": postID,
		}).Warn("owner set prune failed, reference left dangling")
	}

	s.invalidateTotal(dctx)
	s.deletePostIndex(dctx, postID)

	s.Hub.Publish(realtime.Message{Action: "delete", PostID: postID})
	return nil
}

type FeedPage struct {
	Posts      []entity.Post `json:"posts"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalItems int64         `json:"total_items"`
}

// List returns one page of posts, newest first, with the total count so
// clients can do their own pagination math. Listing is public.
func (s *FeedService) List(ctx context.Context, page int) (*FeedPage, error) {
	if page < 1 {
		page = 1
	}
	total, err := s.totalItems(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.Posts.List(ctx, (page-1)*s.PageSize, s.PageSize)
	if err != nil {
		return nil, err
	}
	return &FeedPage{Posts: posts, Page: page, PerPage: s.PageSize, TotalItems: total}, nil
}

// StoreImage uploads an image and returns its public reference.
func (s *FeedService) StoreImage(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	if s.Images == nil {
		return "", errors.New("image store not configured")
	}
	return s.Images.Store(ctx, r, filename, contentType)
}

// releaseImage schedules an image release as a detached task. The
// caller never waits on it and never sees its error.
func (s *FeedService) releaseImage(url string) {
	if s.Images == nil || url == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.Images.Release(ctx, url); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("image_url", url).Warn("image release failed")
		}
	}()
}

func (s *FeedService) totalItems(ctx context.Context) (int64, error) {
	if s.Redis != nil {
		var cached int64
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, feedTotalKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	n, err := s.Posts.CountAll(ctx)
	if err != nil {
		return 0, err
	}
	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, feedTotalKey, n, 10*time.Second); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("failed to cache feed total")
		}
	}
	return n, nil
}

func (s *FeedService) invalidateTotal(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, feedTotalKey); err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("failed to invalidate feed total")
	}
}

func (s *FeedService) indexPost(ctx context.Context, p *entity.Post) {
	if s.ES == nil || s.ESPostsIndex == "" {
		return
	}
	doc := map[string]any{
		"id":         p.ID,
		"title":      p.Title,
		"content":    p.Content,
		"creator_id": p.CreatorID,
		"created_at": p.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := s.ES.Index(s.ESPostsIndex,
		strings.NewReader(string(b)),
		s.ES.Index.WithDocumentID(p.ID),
		s.ES.Index.WithContext(c),
	)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("post_id", p.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("post_id", p.ID).Warn("es index response error")
	}
}

func (s *FeedService) deletePostIndex(ctx context.Context, postID string) {
	if s.ES == nil || s.ESPostsIndex == "" {
		return
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := s.ES.Delete(s.ESPostsIndex, postID, s.ES.Delete.WithContext(c))
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("post_id", postID).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// Search performs a multi_match query on title and content.
func (s *FeedService) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESPostsIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"title^2", "content"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESPostsIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
