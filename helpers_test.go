package cybervault_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/cybervault"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type SpyMetaDataRepo struct {
	mock.Mock
}

func (s *SpyMetaDataRepo) Insert(ctx context.Context, f cybervault.NewFile) (cybervault.FileRecord, error) {
	args := s.Called(ctx, f)
	return args.Get(0).(cybervault.FileRecord), args.Error(1)
}

func (s *SpyMetaDataRepo) ListByOwner(ctx context.Context, ownerID string) ([]cybervault.FileRecord, error) {
	args := s.Called(ctx, ownerID)
	return args.Get(0).([]cybervault.FileRecord), args.Error(1)
}

func (s *SpyMetaDataRepo) Get(ctx context.Context, ownerID string, id uuid.UUID) (cybervault.FileRecord, error) {
	args := s.Called(ctx, ownerID, id)
	return args.Get(0).(cybervault.FileRecord), args.Error(1)
}

func (s *SpyMetaDataRepo) GetByKey(ctx context.Context, ownerID, key string) (cybervault.FileRecord, error) {
	args := s.Called(ctx, ownerID, key)
	return args.Get(0).(cybervault.FileRecord), args.Error(1)
}

func (s *SpyMetaDataRepo) DeleteByID(ctx context.Context, ownerID string, id uuid.UUID) error {
	args := s.Called(ctx, ownerID, id)
	return args.Error(0)
}

func (s *SpyMetaDataRepo) ListAll(ctx context.Context) ([]cybervault.FileRecord, error) {
	args := s.Called(ctx)
	return args.Get(0).([]cybervault.FileRecord), args.Error(1)
}

type SpyBlobStore struct {
	mock.Mock
}

func (s *SpyBlobStore) Put(ctx context.Context, key string, content io.Reader) (cybervault.PutResult, error) {
	args := s.Called(ctx, key, content)
	return args.Get(0).(cybervault.PutResult), args.Error(1)
}

func (s *SpyBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := s.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (s *SpyBlobStore) Delete(ctx context.Context, keys []string) error {
	args := s.Called(ctx, keys)
	return args.Error(0)
}

// SpyListingBlobStore adds BlobLister to SpyBlobStore.
type SpyListingBlobStore struct {
	SpyBlobStore
}

func (s *SpyListingBlobStore) List(ctx context.Context) ([]cybervault.BlobInfo, error) {
	args := s.Called(ctx)
	return args.Get(0).([]cybervault.BlobInfo), args.Error(1)
}

func NewGateway(t *testing.T, mode cybervault.ConsistencyMode) (*cybervault.Gateway, *SpyMetaDataRepo, *SpyBlobStore) {
	t.Helper()
	spyRepo := new(SpyMetaDataRepo)
	spyBlobs := new(SpyBlobStore)
	g, err := cybervault.NewGateway(spyRepo, spyBlobs, cybervault.GatewayConfig{Consistency: mode})
	require.NoError(t, err, "new gateway")
	return g, spyRepo, spyBlobs
}

func localFile(name, content string) cybervault.LocalFile {
	return cybervault.LocalFile{
		Name:        name,
		Size:        int64(len(content)),
		ContentType: "text/plain",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

// eventLog records collaborator calls across fakes in order.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

// memRepo is an in-memory MetaDataRepo with a deterministic clock.
type memRepo struct {
	mu        sync.Mutex
	log       *eventLog
	rows      map[uuid.UUID]cybervault.FileRecord
	clock     time.Time
	insertErr func(cybervault.NewFile) error
	deleteErr error
	listErr   error
}

func newMemRepo(log *eventLog) *memRepo {
	return &memRepo{
		log:   log,
		rows:  make(map[uuid.UUID]cybervault.FileRecord),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memRepo) Insert(_ context.Context, f cybervault.NewFile) (cybervault.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.log != nil {
		r.log.add("insert %s", f.StorageKey)
	}
	if r.insertErr != nil {
		if err := r.insertErr(f); err != nil {
			return cybervault.FileRecord{}, err
		}
	}
	r.clock = r.clock.Add(time.Second)

	rec := cybervault.FileRecord{
		ID:         uuid.New(),
		Name:       f.Name,
		Size:       f.Size,
		MimeType:   f.MimeType,
		StorageKey: f.StorageKey,
		OwnerID:    f.OwnerID,
		CreatedAt:  r.clock,
	}
	for id, existing := range r.rows {
		if existing.StorageKey == f.StorageKey {
			rec.ID = id
		}
	}
	r.rows[rec.ID] = rec
	return rec, nil
}

func (r *memRepo) ListByOwner(_ context.Context, ownerID string) ([]cybervault.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []cybervault.FileRecord{}
	for _, rec := range r.rows {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) Get(_ context.Context, ownerID string, id uuid.UUID) (cybervault.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	if !ok || rec.OwnerID != ownerID {
		return cybervault.FileRecord{}, cybervault.ErrNotFound
	}
	return rec, nil
}

func (r *memRepo) GetByKey(_ context.Context, ownerID, key string) (cybervault.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.rows {
		if rec.StorageKey == key && rec.OwnerID == ownerID {
			return rec, nil
		}
	}
	return cybervault.FileRecord{}, cybervault.ErrNotFound
}

func (r *memRepo) DeleteByID(_ context.Context, ownerID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.log != nil {
		r.log.add("delete-record %s", id)
	}
	if r.deleteErr != nil {
		return r.deleteErr
	}
	rec, ok := r.rows[id]
	if !ok || rec.OwnerID != ownerID {
		return cybervault.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) ListAll(_ context.Context) ([]cybervault.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []cybervault.FileRecord{}
	for _, rec := range r.rows {
		out = append(out, rec)
	}
	return out, nil
}

// memBlobs is an in-memory BlobStore and BlobLister.
type memBlobs struct {
	mu        sync.Mutex
	log       *eventLog
	blobs     map[string][]byte
	putErr    func(key string) error
	getErr    error
	deleteErr error
}

func newMemBlobs(log *eventLog) *memBlobs {
	return &memBlobs{log: log, blobs: make(map[string][]byte)}
}

func (b *memBlobs) Put(_ context.Context, key string, content io.Reader) (cybervault.PutResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.log != nil {
		b.log.add("put %s", key)
	}
	if b.putErr != nil {
		if err := b.putErr(key); err != nil {
			return cybervault.PutResult{}, err
		}
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return cybervault.PutResult{}, err
	}
	b.blobs[key] = data
	return cybervault.PutResult{Key: key, BytesWritten: int64(len(data))}, nil
}

func (b *memBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	data, ok := b.blobs[key]
	if !ok {
		return nil, cybervault.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Delete(_ context.Context, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.log != nil {
		b.log.add("delete-blobs %s", strings.Join(keys, ","))
	}
	if b.deleteErr != nil {
		return b.deleteErr
	}
	for _, k := range keys {
		delete(b.blobs, k)
	}
	return nil
}

func (b *memBlobs) List(_ context.Context) ([]cybervault.BlobInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []cybervault.BlobInfo{}
	for k, v := range b.blobs {
		out = append(out, cybervault.BlobInfo{Key: k, Size: int64(len(v))})
	}
	return out, nil
}

func (b *memBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blobs[key]
	return ok
}

type subscriptionFunc func()

func (f subscriptionFunc) Unsubscribe() { f() }

// fakeProvider is an in-memory IdentityProvider that fires change events synchronously.
type fakeProvider struct {
	mu           sync.Mutex
	session      *cybervault.Session
	fetchErr     error
	signInErr    error
	signUpErr    error
	signOutErr   error
	fetches      int
	unsubscribed int
	next         int
	listeners    map[int]func(cybervault.SessionEvent, *cybervault.Session)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{listeners: make(map[int]func(cybervault.SessionEvent, *cybervault.Session))}
}

func (p *fakeProvider) CurrentSession(context.Context) (*cybervault.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetches++
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.session, nil
}

func (p *fakeProvider) OnSessionChange(fn func(cybervault.SessionEvent, *cybervault.Session)) cybervault.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.listeners[id] = fn
	return subscriptionFunc(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.listeners[id]; ok {
			delete(p.listeners, id)
			p.unsubscribed++
		}
	})
}

func (p *fakeProvider) listenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

func (p *fakeProvider) emit(event cybervault.SessionEvent, s *cybervault.Session) {
	p.mu.Lock()
	p.session = s
	fns := make([]func(cybervault.SessionEvent, *cybervault.Session), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(event, s)
	}
}

func sessionFor(id, email string) *cybervault.Session {
	return &cybervault.Session{
		AccessToken: "token-" + id,
		Identity:    cybervault.Identity{ID: id, Email: email},
	}
}

func (p *fakeProvider) SignIn(_ context.Context, email, _ string) (*cybervault.Session, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	s := sessionFor("user-"+email, email)
	p.emit(cybervault.EventSignedIn, s)
	return s, nil
}

func (p *fakeProvider) SignUp(_ context.Context, email, _ string) (*cybervault.Session, error) {
	if p.signUpErr != nil {
		return nil, p.signUpErr
	}
	s := sessionFor("user-"+email, email)
	p.emit(cybervault.EventSignedIn, s)
	return s, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	if p.signOutErr != nil {
		return p.signOutErr
	}
	p.emit(cybervault.EventSignedOut, nil)
	return nil
}

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	notes []cybervault.Notification
}

func (r *recorder) Notify(n cybervault.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notes))
	for _, n := range r.notes {
		out = append(out, n.Message)
	}
	return out
}

func (r *recorder) count(level cybervault.Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, note := range r.notes {
		if note.Level == level {
			n++
		}
	}
	return n
}
