package application

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/oksasatya/feedstream/internal/domain/entity"
	repo "github.com/oksasatya/feedstream/internal/domain/repository"
	"github.com/oksasatya/feedstream/internal/realtime"
)

type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[string]entity.Post
	nextID int
	clock  time.Time
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[string]entity.Post{}, clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *fakePostRepo) Create(_ context.Context, p *entity.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = fmt.Sprintf("post-%d", r.nextID)
	r.clock = r.clock.Add(time.Second)
	p.CreatedAt = r.clock
	p.UpdatedAt = r.clock
	r.posts[p.ID] = *p
	return nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id string) (*entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *fakePostRepo) List(_ context.Context, offset, limit int) ([]entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]entity.Post, 0, len(r.posts))
	for _, p := range r.posts {
		all = append(all, p)
	}
	// newest first
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].CreatedAt.After(all[i].CreatedAt) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakePostRepo) Update(_ context.Context, p *entity.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; !ok {
		return repo.ErrNotFound
	}
	r.posts[p.ID] = *p
	return nil
}

func (r *fakePostRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *fakePostRepo) CountAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.posts)), nil
}

type fakeUserRepo struct {
	mu            sync.Mutex
	users         map[string]entity.User
	byEmail       map[string]string
	refs          map[string][]string
	nextID        int
	failRemoveRef bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]entity.User{}, byEmail: map[string]string{}, refs: map[string][]string{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = fmt.Sprintf("user-%d", r.nextID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = *u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, repo.ErrNotFound
	}
	u := r.users[id]
	return &u, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) AddPostRef(_ context.Context, userID, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.refs[userID] {
		if id == postID {
			return nil
		}
	}
	r.refs[userID] = append(r.refs[userID], postID)
	return nil
}

func (r *fakeUserRepo) RemovePostRef(_ context.Context, userID, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRemoveRef {
		return fmt.Errorf("store unavailable")
	}
	out := r.refs[userID][:0]
	for _, id := range r.refs[userID] {
		if id != postID {
			out = append(out, id)
		}
	}
	r.refs[userID] = out
	return nil
}

func (r *fakeUserRepo) ListPostRefs(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.refs[userID]...), nil
}

type recordBroadcaster struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (b *recordBroadcaster) Publish(msg realtime.Message) {
	b.mu.Lock()
	b.msgs = append(b.msgs, msg)
	b.mu.Unlock()
}

func (b *recordBroadcaster) all() []realtime.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.Message(nil), b.msgs...)
}

type fakeImages struct {
	released chan string
}

func newFakeImages() *fakeImages {
	return &fakeImages{released: make(chan string, 8)}
}

func (f *fakeImages) Store(_ context.Context, _ io.Reader, filename, _ string) (string, error) {
	return "https://img.test/" + filename, nil
}

func (f *fakeImages) Release(_ context.Context, url string) error {
	f.released <- url
	return nil
}

func (f *fakeImages) waitRelease(t *testing.T) string {
	t.Helper()
	select {
	case url := <-f.released:
		return url
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for image release")
		return ""
	}
}

func newTestFeedService(t *testing.T) (*FeedService, *fakePostRepo, *fakeUserRepo, *recordBroadcaster, *fakeImages) {
	t.Helper()
	posts := newFakePostRepo()
	users := newFakeUserRepo()
	hub := &recordBroadcaster{}
	imgs := newFakeImages()
	svc := NewFeedService(posts, users, hub, imgs, nil, nil, nil, "", 2)
	return svc, posts, users, hub, imgs
}

func seedUser(t *testing.T, users *fakeUserRepo, email, name string) *entity.User {
	t.Helper()
	u := &entity.User{Email: email, Name: name, Password: "x"}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestCreateAppendsOwnerRefAndBroadcasts(t *testing.T) {
	svc, _, users, hub, _ := newTestFeedService(t)
	ctx := context.Background()
	u := seedUser(t, users, "a@x.com", "Alice")

	p, creator, err := svc.Create(ctx, u.ID, CreatePostInput{Title: "Hello", Content: "World", ImageURL: "https://img.test/1.png"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.CreatorID != u.ID {
		t.Errorf("creator = %s, want %s", p.CreatorID, u.ID)
	}
	if creator.Name != "Alice" {
		t.Errorf("creator summary name = %q", creator.Name)
	}

	refs, _ := users.ListPostRefs(ctx, u.ID)
	if len(refs) != 1 || refs[0] != p.ID {
		t.Fatalf("owner refs = %v, want exactly [%s]", refs, p.ID)
	}

	msgs := hub.all()
	if len(msgs) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(msgs))
	}
	if msgs[0].Action != "create" || msgs[0].Post == nil || msgs[0].Post.ID != p.ID {
		t.Errorf("unexpected broadcast %+v", msgs[0])
	}
}

func TestUpdateByNonOwnerForbidden(t *testing.T) {
	svc, posts, users, hub, _ := newTestFeedService(t)
	ctx := context.Background()
	a := seedUser(t, users, "a@x.com", "Alice")
	b := seedUser(t, users, "b@x.com", "Bob")

	p, _, err := svc.Create(ctx, a.ID, CreatePostInput{Title: "Hello", Content: "World", ImageURL: "https://img.test/1.png"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before, _ := posts.GetByID(ctx, p.ID)

	_, err = svc.Update(ctx, b.ID, p.ID, UpdatePostInput{Title: "Hijacked", Content: "x", ImageURL: "https://img.test/2.png"})
	if err != ErrForbidden {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	after, _ := posts.GetByID(ctx, p.ID)
	if *after != *before {
		t.Errorf("post mutated by non-owner: %+v", after)
	}
	if got := len(hub.all()); got != 1 { // only the create event
		t.Errorf("broadcasts = %d, want 1", got)
	}
}

func TestDeleteByNonOwnerForbidden(t *testing.T) {
	svc, posts, users, _, _ := newTestFeedService(t)
	ctx := context.Background()
	a := seedUser(t, users, "a@x.com", "Alice")
	b := seedUser(t, users, "b@x.com", "Bob")

	p, _, _ := svc.Create(ctx, a.ID, CreatePostInput{Title: "Hello", Content: "World", ImageURL: "https://img.test/1.png"})

	if err := svc.Delete(ctx, b.ID, p.ID); err != ErrForbidden {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if _, err := posts.GetByID(ctx, p.ID); err != nil {
		t.Errorf("post removed by non-owner")
	}
}

func TestDeleteMissingPostNotFound(t *testing.T) {
	svc, _, users, hub, _ := newTestFeedService(t)
	u := seedUser(t, users, "a@x.com", "Alice")

	err := svc.Delete(context.Background(), u.ID, "no-such-post")
	if err != ErrPostNotFound {
		t.Fatalf("err = %v, want ErrPostNotFound", err)
	}
	if got := len(hub.all()); got != 0 {
		t.Errorf("broadcasts = %d, want 0", got)
	}
}

func TestDeleteReleasesImageAndPrunesOwnerSet(t *testing.T) {
	svc, _, users, hub, imgs := newTestFeedService(t)
	ctx := context.Background()
	u := seedUser(t, users, "a@x.com", "Alice")

	p, _, _ := svc.Create(ctx, u.ID, CreatePostInput{Title: "Hello", Content: "World", ImageURL: "https://img.test/ref1.png"})

	if err := svc.Delete(ctx, u.ID, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if url := imgs.waitRelease(t); url != "https://img.test/ref1.png" {
		t.Errorf("released %q", url)
	}
	refs, _ := users.ListPostRefs(ctx, u.ID)
	if len(refs) != 0 {
		t.Errorf("owner refs = %v, want empty", refs)
	}

	msgs := hub.all()
	last := msgs[len(msgs)-1]
	if last.Action != "delete" || last.PostID != p.ID {
		t.Errorf("unexpected delete broadcast %+v", last)
	}
}

func TestDeleteToleratesOwnerSetPruneFailure(t *testing.T) {
	svc, posts, users, hub, _ := newTestFeedService(t)
	ctx := context.Background()
	u := seedUser(t, users, "a@x.com", "Alice")

	p, _, _ := svc.Create(ctx, u.ID, CreatePostInput{Title: "Hello", Content: "World", ImageURL: "https://img.test/1.png"})
	users.failRemoveRef = true

	if err := svc.Delete(ctx, u.ID, p.ID); err != nil {
		t.Fatalf("delete should swallow prune failure, got %v", err)
	}
	if _, err := posts.GetByID(ctx, p.ID); err != repo.ErrNotFound {
		t.Errorf("post record should be gone")
	}
	// the reference is left dangling until reconciled
	refs, _ := users.ListPostRefs(ctx, u.ID)
	if len(refs) != 1 {
		t.Errorf("expected dangling ref, got %v", refs)
	}
	last := hub.all()[len(hub.all())-1]
	if last.Action != "delete" {
		t.Errorf("delete broadcast still expected, got %+v", last)
	}
}

func TestUpdateReleasesReplacedImage(t *testing.T) {
	svc, _, users, _, imgs := newTestFeedService(t)
	ctx := context.Background()
	u := seedUser(t, users, "a@x.com", "Alice")

	p, _, _ := svc.Create(ctx, u.ID, CreatePostInput{Title: "Hello", Content: "World", ImageURL: "https://img.test/old.png"})

	if _, err := svc.Update(ctx, u.ID, p.ID, UpdatePostInput{Title: "Hello", Content: "World", ImageURL: "https://img.test/new.png"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if url := imgs.waitRelease(t); url != "https://img.test/old.png" {
		t.Errorf("released %q, want old image", url)
	}
}

func TestListPagination(t *testing.T) {
	svc, _, users, _, _ := newTestFeedService(t)
	ctx := context.Background()
	u := seedUser(t, users, "a@x.com", "Alice")

	for i := 1; i <= 5; i++ {
		if _, _, err := svc.Create(ctx, u.ID, CreatePostInput{
			Title:    fmt.Sprintf("post %d", i),
			Content:  "content",
			ImageURL: "https://img.test/1.png",
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	wantSizes := []int{2, 2, 1}
	var seen []string
	for page := 1; page <= 3; page++ {
		res, err := svc.List(ctx, page)
		if err != nil {
			t.Fatalf("list page %d: %v", page, err)
		}
		if len(res.Posts) != wantSizes[page-1] {
			t.Errorf("page %d size = %d, want %d", page, len(res.Posts), wantSizes[page-1])
		}
		if res.TotalItems != 5 {
			t.Errorf("page %d total = %d, want 5", page, res.TotalItems)
		}
		for _, p := range res.Posts {
			seen = append(seen, p.Title)
		}
	}

	want := []string{"post 5", "post 4", "post 3", "post 2", "post 1"}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("order = %v, want %v", seen, want)
		}
	}
}
