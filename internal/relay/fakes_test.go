package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/modmail/internal/attachment"
	"github.com/ashureev/modmail/internal/domain"
	"github.com/ashureev/modmail/internal/store"
)

const (
	testChannelID uint64 = 500
	testDMChannel uint64 = 700
	testStaffID   uint64 = 900
	testUserID    uint64 = 111
)

type sentRecord struct {
	target uint64
	ref    MessageRef
	msg    Outbound
}

type fakePlatform struct {
	mu             sync.Mutex
	nextID         uint64
	channelMissing bool
	members        map[uint64]*domain.User
	refused        map[uint64]bool
	dmErr          error
	posts          []sentRecord
	dms            []sentRecord
	edits          []string
	deleted        []MessageRef
	reactions      []MessageRef
	typing         int
	presence       []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:  1000,
		members: make(map[uint64]*domain.User),
		refused: make(map[uint64]bool),
	}
}

func (p *fakePlatform) addMember(u domain.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members[u.ID] = &u
}

func (p *fakePlatform) ResolveChannel(_ context.Context, channelID uint64) error {
	if p.channelMissing || channelID != testChannelID {
		return fmt.Errorf("channel %d: unknown channel", channelID)
	}
	return nil
}

func (p *fakePlatform) Send(_ context.Context, channelID uint64, msg Outbound) (Sent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	ref := MessageRef{ChannelID: channelID, MessageID: p.nextID}
	p.posts = append(p.posts, sentRecord{target: channelID, ref: ref, msg: msg})
	return Sent{Ref: ref}, nil
}

func (p *fakePlatform) SendDirect(_ context.Context, userID uint64, msg Outbound) (Sent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refused[userID] {
		return Sent{}, fmt.Errorf("send to %d: %w", userID, ErrDeliveryRefused)
	}
	if p.dmErr != nil {
		return Sent{}, p.dmErr
	}
	p.nextID++
	ref := MessageRef{ChannelID: testDMChannel, MessageID: p.nextID}
	p.dms = append(p.dms, sentRecord{target: userID, ref: ref, msg: msg})

	sent := Sent{Ref: ref}
	for _, f := range msg.Files {
		sent.Attachments = append(sent.Attachments, domain.Attachment{
			Filename: f.Name,
			Size:     int64(len(f.Data)),
			URL:      "https://cdn.test/" + f.Name,
		})
	}
	return sent, nil
}

func (p *fakePlatform) Edit(_ context.Context, _ MessageRef, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edits = append(p.edits, content)
	return nil
}

func (p *fakePlatform) Delete(_ context.Context, ref MessageRef) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, ref)
	return nil
}

func (p *fakePlatform) React(_ context.Context, ref MessageRef, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reactions = append(p.reactions, ref)
	return nil
}

func (p *fakePlatform) Typing(context.Context, uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typing++
	return nil
}

func (p *fakePlatform) SetPresence(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presence = append(p.presence, text)
	return nil
}

func (p *fakePlatform) Member(_ context.Context, userID uint64) (*domain.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[userID]
	if !ok {
		return nil, ErrTargetNotFound
	}
	cp := *m
	return &cp, nil
}

func (p *fakePlatform) postTexts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.posts))
	for _, r := range p.posts {
		out = append(out, r.msg.Content)
	}
	return out
}

func (p *fakePlatform) countPosts(substr string) int {
	n := 0
	for _, text := range p.postTexts() {
		if strings.Contains(text, substr) {
			n++
		}
	}
	return n
}

func (p *fakePlatform) dmCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.dms)
}

// memStore is an in-memory IgnoreStore.
type memStore struct {
	mu      sync.Mutex
	entries map[uint64]domain.IgnoreEntry
	err     error
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[uint64]domain.IgnoreEntry)}
}

func (s *memStore) IsIgnored(_ context.Context, userID uint64) (*domain.IgnoreEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	e, ok := s.entries[userID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *memStore) AddIgnore(_ context.Context, userID uint64, reason *string, quiet bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.entries[userID]; ok {
		return false, nil
	}
	s.entries[userID] = domain.IgnoreEntry{UserID: userID, Quiet: quiet, Reason: reason}
	return true, nil
}

func (s *memStore) RemoveIgnore(_ context.Context, userID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.entries[userID]
	delete(s.entries, userID)
	return ok, nil
}

func (s *memStore) ListIgnored(context.Context) ([]domain.IgnoreEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.IgnoreEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *memStore) Ping(context.Context) error { return s.err }
func (s *memStore) Close() error               { return nil }

var _ store.IgnoreStore = (*memStore)(nil)

type fakeFetcher struct {
	err error
}

func (f fakeFetcher) Fetch(_ context.Context, a domain.Attachment) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("data-" + a.Filename), nil
}

var _ attachment.Fetcher = fakeFetcher{}

// manualScheduler holds deferred tasks until the test fires them.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (m *manualScheduler) AfterFunc(_ time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, f)
}

func (m *manualScheduler) fireAll() {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()
	for _, f := range tasks {
		f()
	}
}

func (m *manualScheduler) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

type immediateScheduler struct{}

func (immediateScheduler) AfterFunc(_ time.Duration, f func()) { f() }

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Activity
}

func (r *recordingSink) Publish(a domain.Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, a)
}

func (r *recordingSink) kinds() []domain.ActivityKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ActivityKind, 0, len(r.events))
	for _, a := range r.events {
		out = append(out, a.Kind)
	}
	return out
}
