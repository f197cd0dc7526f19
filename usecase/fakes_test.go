package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"

	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type memConnections struct {
	mu      sync.Mutex
	rows    map[string]*model.PlatformConnection
	upserts int
}

func newMemConnections(rows ...*model.PlatformConnection) *memConnections {
	m := &memConnections{rows: map[string]*model.PlatformConnection{}}
	for _, r := range rows {
		m.rows[r.UserID+"|"+string(r.Platform)] = r
	}
	return m
}

func (m *memConnections) Get(_ context.Context, userID string, p model.Platform) (*model.PlatformConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[userID+"|"+string(p)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memConnections) Upsert(_ context.Context, c *model.PlatformConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	cp := *c
	m.rows[c.UserID+"|"+string(c.Platform)] = &cp
	return nil
}

func (m *memConnections) Clear(_ context.Context, userID string, p model.Platform) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.rows[userID+"|"+string(p)]; ok {
		c.Connected = false
		c.AccessToken = ""
		c.RefreshToken = ""
		c.ExpiresAt = nil
	}
	return nil
}

func (m *memConnections) ListByUser(_ context.Context, userID string) ([]*model.PlatformConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PlatformConnection
	for _, c := range m.rows {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memConnections) TouchLastSync(_ context.Context, userID string, p model.Platform, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.rows[userID+"|"+string(p)]; ok {
		c.LastSyncAt = &at
	}
	return nil
}

func (m *memConnections) get(userID string, p model.Platform) *model.PlatformConnection {
	c, _ := m.Get(context.Background(), userID, p)
	return c
}

type memNonces struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memNonces) Consume(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *eventRecorder) Publish(evt model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) ofType(t model.EventType) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type MockExchanger struct {
	mock.Mock
	platform model.Platform
}

func (m *MockExchanger) Platform() model.Platform { return m.platform }

func (m *MockExchanger) BuildAuthorizationURL(state string) (string, error) {
	args := m.Called(state)
	if fn, ok := args.Get(0).(func(string) string); ok {
		return fn(state), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

func (m *MockExchanger) tokenCall(method string, ctx context.Context, arg string) (*dto.TokenResult, error) {
	args := m.MethodCalled(method, ctx, arg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TokenResult), args.Error(1)
}

func (m *MockExchanger) ExchangeCode(ctx context.Context, code string) (*dto.TokenResult, error) {
	return m.tokenCall("ExchangeCode", ctx, code)
}

func (m *MockExchanger) ExtendToken(ctx context.Context, token string) (*dto.TokenResult, error) {
	return m.tokenCall("ExtendToken", ctx, token)
}

func (m *MockExchanger) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResult, error) {
	return m.tokenCall("RefreshToken", ctx, refreshToken)
}

func (m *MockExchanger) FetchAccount(ctx context.Context, accessToken string) (*dto.AccountInfo, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AccountInfo), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
	platform model.Platform
}

func (m *MockPublisher) Platform() model.Platform { return m.platform }

func (m *MockPublisher) Publish(ctx context.Context, cred dto.Credential, content dto.ContentRef, meta dto.PublishMetadata, onProgress dto.ProgressFunc) (*dto.PublishResult, error) {
	args := m.Called(ctx, cred, content, meta, onProgress)
	if fn, ok := args.Get(0).(func(context.Context, dto.Credential, dto.ContentRef, dto.PublishMetadata, dto.ProgressFunc) (*dto.PublishResult, error)); ok {
		return fn(ctx, cred, content, meta, onProgress)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PublishResult), args.Error(1)
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*model.ScheduledJob
}

func newMemJobs(jobs ...*model.ScheduledJob) *memJobs {
	m := &memJobs{jobs: map[string]*model.ScheduledJob{}}
	for _, j := range jobs {
		m.jobs[j.ID] = j
	}
	return m
}

func (m *memJobs) Create(_ context.Context, job *model.ScheduledJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobs) GetByID(_ context.Context, id string) (*model.ScheduledJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) ListByUser(_ context.Context, userID string, limit int) ([]*model.ScheduledJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ScheduledJob
	for _, j := range m.jobs {
		if j.UserID == userID {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ScheduledFor.After(out[b].ScheduledFor) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobs) FetchDue(_ context.Context, now time.Time, limit int) ([]*model.ScheduledJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ScheduledJob
	for _, j := range m.jobs {
		if j.Due(now) {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ScheduledFor.Before(out[b].ScheduledFor) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobs) Claim(_ context.Context, id string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != model.JobScheduled {
		return false, nil
	}
	j.Status = model.JobProcessing
	j.UpdatedAt = now
	return true, nil
}

func (m *memJobs) Finish(ctx context.Context, id string, status model.JobStatus, errMsg *string, executedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != model.JobProcessing || !model.CanTransition(j.Status, status) {
		return model.ErrInvalidTransition
	}
	j.Status = status
	j.ErrorMessage = errMsg
	j.ExecutedAt = &executedAt
	return nil
}

func (m *memJobs) Cancel(_ context.Context, id, userID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.UserID != userID || j.Status != model.JobScheduled {
		return false, nil
	}
	j.Status = model.JobCancelled
	j.UpdatedAt = now
	return true, nil
}

func (m *memJobs) status(id string) model.JobStatus {
	j, _ := m.GetByID(context.Background(), id)
	return j.Status
}

type memAttempts struct {
	mu   sync.Mutex
	rows []*model.PublishAttempt
}

func (m *memAttempts) Insert(ctx context.Context, attempts []*model.PublishAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range attempts {
		a.ID = int64(len(m.rows) + 1)
		m.rows = append(m.rows, a)
	}
	return nil
}

func (m *memAttempts) ListByJob(_ context.Context, jobID string) ([]*model.PublishAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PublishAttempt
	for _, a := range m.rows {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAttempts) ListRecentByUser(_ context.Context, userID string, limit int) ([]*model.PublishAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PublishAttempt
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].UserID == userID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

type memArchive struct {
	mu       sync.Mutex
	archived int
}

func (m *memArchive) Archive(ctx context.Context, attempts []*model.PublishAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archived += len(attempts)
	return nil
}

type memContents map[string]*model.Content

func (m memContents) GetByID(_ context.Context, id string) (*model.Content, error) {
	c, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, model.ErrNotFound)
	}
	return c, nil
}

type cdnBlobs struct{}

func (cdnBlobs) PublicURL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (cdnBlobs) Open(context.Context, string) (io.ReadCloser, *dto.BlobInfo, error) {
	return nil, nil, model.ErrNotFound
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
