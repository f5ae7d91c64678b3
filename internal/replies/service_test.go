package replies

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/forumhq/forumhq/internal/categories"
	"github.com/forumhq/forumhq/internal/platform/httpx"
	"github.com/forumhq/forumhq/internal/shared"
	"github.com/forumhq/forumhq/internal/topics"
)

type pairKey struct {
	user     uuid.UUID
	category uuid.UUID
}

type fakeCategoryStore struct {
	categories map[uuid.UUID]*categories.Category
	grants     map[pairKey]categories.Permission
}

func newFakeCategoryStore() *fakeCategoryStore {
	return &fakeCategoryStore{
		categories: make(map[uuid.UUID]*categories.Category),
		grants:     make(map[pairKey]categories.Permission),
	}
}

func (f *fakeCategoryStore) addCategory(isPrivate bool) *categories.Category {
	c := &categories.Category{
		ID:        uuid.New(),
		Name:      fmt.Sprintf("category-%d", len(f.categories)+1),
		IsPrivate: isPrivate,
		CreatedAt: time.Now(),
	}
	f.categories[c.ID] = c
	return c
}

func (f *fakeCategoryStore) grant(userID, categoryID uuid.UUID, level categories.AccessLevel) {
	f.grants[pairKey{userID, categoryID}] = categories.Permission{
		UserID: userID, CategoryID: categoryID, AccessLevel: level,
	}
}

func (f *fakeCategoryStore) ByID(ctx context.Context, id uuid.UUID) (*categories.Category, error) {
	if c, ok := f.categories[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, fmt.Errorf("category: %w", httpx.ErrNotFound)
}

func (f *fakeCategoryStore) GrantFor(ctx context.Context, userID, categoryID uuid.UUID) (*categories.Permission, error) {
	if p, ok := f.grants[pairKey{userID, categoryID}]; ok {
		return &p, nil
	}
	return nil, nil
}

type fakeRegistry struct {
	admins map[uuid.UUID]bool
}

func (f *fakeRegistry) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f.admins[userID], nil
}

type topicKey struct {
	user  uuid.UUID
	topic uuid.UUID
}

type fakeTopics struct {
	topics map[uuid.UUID]*topics.Topic
	denied map[topicKey]bool
}

func (f *fakeTopics) Get(ctx context.Context, ident shared.Identity, topicID uuid.UUID) (*topics.Topic, error) {
	t, ok := f.topics[topicID]
	if !ok {
		return nil, fmt.Errorf("topic: %w", httpx.ErrNotFound)
	}
	if f.denied[topicKey{ident.UserID, topicID}] && !ident.IsAdmin {
		return nil, fmt.Errorf("unauthorized: %w", httpx.ErrForbidden)
	}
	cp := *t
	return &cp, nil
}

type reactionKey struct {
	user  uuid.UUID
	reply uuid.UUID
}

type fakeRepo struct {
	replies   map[uuid.UUID]*Reply
	reactions map[reactionKey]Reaction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		replies:   make(map[uuid.UUID]*Reply),
		reactions: make(map[reactionKey]Reaction),
	}
}

func (f *fakeRepo) Insert(ctx context.Context, reply Reply) error {
	cp := reply
	f.replies[reply.ID] = &cp
	return nil
}

func (f *fakeRepo) ByID(ctx context.Context, id uuid.UUID) (*Reply, error) {
	if r, ok := f.replies[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, fmt.Errorf("reply: %w", httpx.ErrNotFound)
}

func (f *fakeRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	r, ok := f.replies[id]
	if !ok {
		return fmt.Errorf("reply: %w", httpx.ErrNotFound)
	}
	r.Content = content
	return nil
}

func (f *fakeRepo) ListByTopic(ctx context.Context, topicID uuid.UUID) ([]Reply, error) {
	var out []Reply
	for _, r := range f.replies {
		if r.TopicID == topicID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRepo) ToggleReaction(ctx context.Context, reaction Reaction) error {
	key := reactionKey{reaction.UserID, reaction.ReplyID}
	var existing *Reaction
	if r, ok := f.reactions[key]; ok {
		existing = &r
	}
	if resolveToggle(existing, reaction.Positive) == toggleRemove {
		delete(f.reactions, key)
		return nil
	}
	f.reactions[key] = reaction
	return nil
}

func (f *fakeRepo) Counts(ctx context.Context, replyID uuid.UUID) (VoteCounts, error) {
	var counts VoteCounts
	for _, r := range f.reactions {
		if r.ReplyID != replyID {
			continue
		}
		if r.Positive {
			counts.Upvotes++
		} else {
			counts.Downvotes++
		}
	}
	return counts, nil
}

func (f *fakeRepo) CountsByTopic(ctx context.Context, topicID uuid.UUID) (map[uuid.UUID]VoteCounts, error) {
	out := make(map[uuid.UUID]VoteCounts)
	for _, r := range f.replies {
		if r.TopicID != topicID {
			continue
		}
		counts, _ := f.Counts(ctx, r.ID)
		out[r.ID] = counts
	}
	return out, nil
}

type replyFixture struct {
	repo     *fakeRepo
	topics   *fakeTopics
	store    *fakeCategoryStore
	registry *fakeRegistry
	service  *Service
}

func newFixture(adminIDs ...uuid.UUID) *replyFixture {
	store := newFakeCategoryStore()
	registry := &fakeRegistry{admins: make(map[uuid.UUID]bool)}
	for _, id := range adminIDs {
		registry.admins[id] = true
	}
	repo := newFakeRepo()
	directory := &fakeTopics{
		topics: make(map[uuid.UUID]*topics.Topic),
		denied: make(map[topicKey]bool),
	}
	return &replyFixture{
		repo:     repo,
		topics:   directory,
		store:    store,
		registry: registry,
		service:  NewService(repo, directory, categories.NewResolver(store, registry)),
	}
}

func (fx *replyFixture) addTopic(authorID, categoryID uuid.UUID, locked bool) *topics.Topic {
	t := &topics.Topic{
		ID:         uuid.New(),
		Title:      fmt.Sprintf("topic-%d", len(fx.topics.topics)+1),
		AuthorID:   authorID,
		CategoryID: categoryID,
		IsLocked:   locked,
		CreatedAt:  time.Now(),
	}
	fx.topics.topics[t.ID] = t
	return t
}

func user(id uuid.UUID) shared.Identity  { return shared.Identity{UserID: id} }
func admin(id uuid.UUID) shared.Identity { return shared.Identity{UserID: id, IsAdmin: true} }

func TestCreateLockedTopicAdminOnly(t *testing.T) {
	author, root := uuid.New(), uuid.New()
	fx := newFixture(root)
	fx.registry.admins[root] = true
	public := fx.store.addCategory(false)
	topic := fx.addTopic(author, public.ID, true)

	_, err := fx.service.Create(context.Background(), user(author), topic.ID, "late answer")
	if !errors.Is(err, httpx.ErrForbidden) || !strings.Contains(err.Error(), "topic is locked") {
		t.Fatalf("author on locked topic: want lock refusal, got %v", err)
	}
	if _, err := fx.service.Create(context.Background(), admin(root), topic.ID, "admin answer"); err != nil {
		t.Fatalf("admin on locked topic: %v", err)
	}
}

func TestCreateRequiresCategoryWrite(t *testing.T) {
	author, reader := uuid.New(), uuid.New()
	fx := newFixture()
	private := fx.store.addCategory(true)
	fx.store.grant(author, private.ID, categories.AccessWrite)
	fx.store.grant(reader, private.ID, categories.AccessRead)
	topic := fx.addTopic(author, private.ID, false)

	if _, err := fx.service.Create(context.Background(), user(reader), topic.ID, "attempt"); !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("reader create: want forbidden, got %v", err)
	}
	reply, err := fx.service.Create(context.Background(), user(author), topic.ID, "answer")
	if err != nil {
		t.Fatalf("writer create: %v", err)
	}
	if reply.TopicID != topic.ID || reply.AuthorID != author {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestCreateMissingTopicIsNotFound(t *testing.T) {
	fx := newFixture()
	_, err := fx.service.Create(context.Background(), user(uuid.New()), uuid.New(), "answer")
	if !errors.Is(err, httpx.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestUpdateIsAuthorOnly(t *testing.T) {
	author, root := uuid.New(), uuid.New()
	fx := newFixture(root)
	public := fx.store.addCategory(false)
	topic := fx.addTopic(author, public.ID, false)
	reply, err := fx.service.Create(context.Background(), user(author), topic.ID, "v1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := fx.service.Update(context.Background(), admin(root), reply.ID, "admin edit"); !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("admin edit of foreign reply: want forbidden, got %v", err)
	}
	updated, err := fx.service.Update(context.Background(), user(author), reply.ID, "v2")
	if err != nil {
		t.Fatalf("author edit: %v", err)
	}
	if updated.Content != "v2" {
		t.Fatalf("content not updated: %q", updated.Content)
	}
}

func TestUpdateRequiresReadableTopic(t *testing.T) {
	author := uuid.New()
	fx := newFixture()
	private := fx.store.addCategory(true)
	fx.store.grant(author, private.ID, categories.AccessWrite)
	topic := fx.addTopic(author, private.ID, false)
	reply, err := fx.service.Create(context.Background(), user(author), topic.ID, "before")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Grant revoked after posting: the author loses read on the topic and
	// with it the ability to edit their own reply.
	delete(fx.store.grants, pairKey{author, private.ID})
	fx.topics.denied[topicKey{author, topic.ID}] = true

	if _, err := fx.service.Update(context.Background(), user(author), reply.ID, "after"); !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("read-denied author edit: want forbidden, got %v", err)
	}
	stored, _ := fx.repo.ByID(context.Background(), reply.ID)
	if stored.Content != "before" {
		t.Fatalf("content changed despite denial: %q", stored.Content)
	}
}

func TestResolveToggle(t *testing.T) {
	up := &Reaction{Positive: true}
	down := &Reaction{Positive: false}
	cases := []struct {
		name     string
		existing *Reaction
		positive bool
		want     toggleAction
	}{
		{"fresh vote creates", nil, true, toggleCreate},
		{"repeat upvote removes", up, true, toggleRemove},
		{"repeat downvote removes", down, false, toggleRemove},
		{"opposite polarity flips", down, true, toggleFlip},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveToggle(tc.existing, tc.positive); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVoteToggles(t *testing.T) {
	author, voter := uuid.New(), uuid.New()
	fx := newFixture()
	public := fx.store.addCategory(false)
	topic := fx.addTopic(author, public.ID, false)
	reply, err := fx.service.Create(context.Background(), user(author), topic.ID, "answer")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := fx.service.Vote(context.Background(), user(voter), reply.ID, true)
	if err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if got.Votes != (VoteCounts{Upvotes: 1}) {
		t.Fatalf("after upvote: %+v", got.Votes)
	}

	got, err = fx.service.Vote(context.Background(), user(voter), reply.ID, true)
	if err != nil {
		t.Fatalf("repeat vote: %v", err)
	}
	if got.Votes != (VoteCounts{}) {
		t.Fatalf("repeat upvote should remove: %+v", got.Votes)
	}

	if _, err := fx.service.Vote(context.Background(), user(voter), reply.ID, true); err != nil {
		t.Fatalf("third vote: %v", err)
	}
	got, err = fx.service.Vote(context.Background(), user(voter), reply.ID, false)
	if err != nil {
		t.Fatalf("flip vote: %v", err)
	}
	if got.Votes != (VoteCounts{Downvotes: 1}) {
		t.Fatalf("after flip: %+v", got.Votes)
	}
}

func TestVotesTallyPerUser(t *testing.T) {
	author, first, second := uuid.New(), uuid.New(), uuid.New()
	fx := newFixture()
	public := fx.store.addCategory(false)
	topic := fx.addTopic(author, public.ID, false)
	reply, err := fx.service.Create(context.Background(), user(author), topic.ID, "answer")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := fx.service.Vote(context.Background(), user(first), reply.ID, true); err != nil {
		t.Fatalf("first voter: %v", err)
	}
	got, err := fx.service.Vote(context.Background(), user(second), reply.ID, false)
	if err != nil {
		t.Fatalf("second voter: %v", err)
	}
	if got.Votes != (VoteCounts{Upvotes: 1, Downvotes: 1}) {
		t.Fatalf("mixed tally: %+v", got.Votes)
	}
}

func TestVoteRequiresReadableTopic(t *testing.T) {
	author, stranger := uuid.New(), uuid.New()
	fx := newFixture()
	public := fx.store.addCategory(false)
	topic := fx.addTopic(author, public.ID, false)
	reply, err := fx.service.Create(context.Background(), user(author), topic.ID, "answer")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fx.topics.denied[topicKey{stranger, topic.ID}] = true

	if _, err := fx.service.Vote(context.Background(), user(stranger), reply.ID, true); !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("denied voter: want forbidden, got %v", err)
	}
}

func TestListByTopicCarriesTallies(t *testing.T) {
	author, voter := uuid.New(), uuid.New()
	fx := newFixture()
	public := fx.store.addCategory(false)
	topic := fx.addTopic(author, public.ID, false)
	reply, err := fx.service.Create(context.Background(), user(author), topic.ID, "answer")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := fx.service.Vote(context.Background(), user(voter), reply.ID, true); err != nil {
		t.Fatalf("vote: %v", err)
	}

	all, err := fx.service.ListByTopic(context.Background(), user(author), topic.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Votes != (VoteCounts{Upvotes: 1}) {
		t.Fatalf("unexpected listing: %+v", all)
	}
}
