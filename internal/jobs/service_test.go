package jobs

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bissquit/job-garden/internal/authz"
	"github.com/bissquit/job-garden/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository is an in-memory Repository.
type mockRepository struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
	// ignoreScope makes List return flagged jobs regardless of the filter.
	ignoreScope bool
	lastFilter  ListFilter
}

func newMockRepository() *mockRepository {
	return &mockRepository{jobs: make(map[string]*domain.Job)}
}

func (m *mockRepository) Create(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = uuid.NewString()
	job.CreatedAt = time.Now().Add(time.Duration(len(m.jobs)) * time.Millisecond)
	job.UpdatedAt = job.CreatedAt
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, ErrJobNotFound
}

func (m *mockRepository) List(_ context.Context, filter ListFilter) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	out := make([]domain.Job, 0)
	for _, j := range m.jobs {
		if j.IsFlagged && !filter.IncludeFlagged && !m.ignoreScope {
			continue
		}
		if filter.VerifiedOnly && !j.IsVerified {
			continue
		}
		if filter.EmployerID != "" && j.EmployerID != filter.EmployerID {
			continue
		}
		out = append(out, *j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (m *mockRepository) Update(_ context.Context, id string, update JobUpdate) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if update.Title != nil {
		j.Title = *update.Title
	}
	if update.Description != nil {
		j.Description = *update.Description
	}
	if update.EmploymentType != nil {
		j.EmploymentType = *update.EmploymentType
	}
	cp := *j
	return &cp, nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *mockRepository) SetVerified(_ context.Context, id string, verified bool) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	j.IsVerified = verified
	cp := *j
	return &cp, nil
}

func (m *mockRepository) SetFlagged(_ context.Context, id string, flagged bool) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	j.IsFlagged = flagged
	cp := *j
	return &cp, nil
}

var (
	employer  = authz.Actor{ID: "11111111-1111-4111-8111-111111111111", Role: domain.RoleEmployer}
	employer2 = authz.Actor{ID: "22222222-2222-4222-8222-222222222222", Role: domain.RoleEmployer}
	candidate = authz.Actor{ID: "33333333-3333-4333-8333-333333333333", Role: domain.RoleCandidate}
	admin     = authz.Actor{ID: "44444444-4444-4444-8444-444444444444", Role: domain.RoleAdmin}
)

func createJob(t *testing.T, s *Service, actor authz.Actor, title string) *domain.Job {
	t.Helper()
	job, err := s.Create(context.Background(), actor, CreateInput{
		Title:       title,
		Company:     "Acme",
		Description: "Build things",
	})
	require.NoError(t, err)
	return job
}

func TestCreate(t *testing.T) {
	t.Run("employer owns created job", func(t *testing.T) {
		s := NewService(newMockRepository())

		job := createJob(t, s, employer, "Go engineer")

		assert.Equal(t, employer.ID, job.EmployerID)
		assert.Equal(t, domain.EmploymentFullTime, job.EmploymentType)
		assert.False(t, job.IsFlagged)
		assert.False(t, job.IsVerified)
	})

	t.Run("admin may create", func(t *testing.T) {
		s := NewService(newMockRepository())

		job := createJob(t, s, admin, "Moderator")

		assert.Equal(t, admin.ID, job.EmployerID)
	})

	t.Run("candidate gets role required error", func(t *testing.T) {
		s := NewService(newMockRepository())

		_, err := s.Create(context.Background(), candidate, CreateInput{Title: "x"})

		require.ErrorIs(t, err, authz.ErrForbidden)
		var roleErr *authz.RoleRequiredError
		require.ErrorAs(t, err, &roleErr)
		assert.Contains(t, roleErr.Required, domain.RoleEmployer)
	})

	t.Run("invalid employment type", func(t *testing.T) {
		s := NewService(newMockRepository())

		_, err := s.Create(context.Background(), employer, CreateInput{Title: "x", EmploymentType: "gig"})

		assert.ErrorIs(t, err, ErrInvalidEmploymentType)
	})
}

func TestCreate_AfterSwitchingRole(t *testing.T) {
	s := NewService(newMockRepository())
	user := candidate

	_, err := s.Create(context.Background(), user, CreateInput{Title: "x"})
	require.ErrorIs(t, err, authz.ErrForbidden)

	// The actor is rebuilt from the store on the next request.
	user.Role = domain.RoleEmployer
	job, err := s.Create(context.Background(), user, CreateInput{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, job.EmployerID)
}

func TestList_ModerationScope(t *testing.T) {
	repo := newMockRepository()
	s := NewService(repo)
	ctx := context.Background()

	visible := createJob(t, s, employer, "visible")
	flagged := createJob(t, s, employer, "flagged")
	_, err := s.SetFlagged(ctx, admin, flagged.ID, true)
	require.NoError(t, err)

	for _, viewer := range []authz.Actor{{}, candidate, employer, employer2} {
		jobs, err := s.List(ctx, viewer, ListFilter{})
		require.NoError(t, err)
		require.Len(t, jobs, 1, "viewer %q", viewer.Role)
		assert.Equal(t, visible.ID, jobs[0].ID)
	}

	jobs, err := s.List(ctx, admin, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestList_ScopeCannotBeRequestedByCaller(t *testing.T) {
	repo := newMockRepository()
	s := NewService(repo)

	_, err := s.List(context.Background(), candidate, ListFilter{IncludeFlagged: true})
	require.NoError(t, err)

	assert.False(t, repo.lastFilter.IncludeFlagged)
}

func TestList_FiltersEvenIfStoreLeaks(t *testing.T) {
	repo := newMockRepository()
	repo.ignoreScope = true
	s := NewService(repo)

	flagged := createJob(t, s, employer, "flagged")
	_, err := s.SetFlagged(context.Background(), admin, flagged.ID, true)
	require.NoError(t, err)

	jobs, err := s.List(context.Background(), candidate, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestList_ClampsLimit(t *testing.T) {
	repo := newMockRepository()
	s := NewService(repo)

	_, err := s.List(context.Background(), candidate, ListFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, repo.lastFilter.Limit)

	_, err = s.List(context.Background(), candidate, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, repo.lastFilter.Limit)
}

func TestGet_FlaggedJobIsDirectlyFetchable(t *testing.T) {
	s := NewService(newMockRepository())
	job := createJob(t, s, employer, "flagged")
	_, err := s.SetFlagged(context.Background(), admin, job.ID, true)
	require.NoError(t, err)

	got, err := s.Get(context.Background(), job.ID)

	require.NoError(t, err)
	assert.True(t, got.IsFlagged)
}

func TestGet_MalformedID(t *testing.T) {
	s := NewService(newMockRepository())

	_, err := s.Get(context.Background(), "42")

	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name    string
		actor   authz.Actor
		wantErr error
	}{
		{name: "owner", actor: employer},
		{name: "admin", actor: admin},
		{name: "other employer", actor: employer2, wantErr: authz.ErrForbidden},
		{name: "candidate", actor: candidate, wantErr: authz.ErrForbidden},
		{name: "owner after switching to candidate", actor: authz.Actor{ID: employer.ID, Role: domain.RoleCandidate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(newMockRepository())
			job := createJob(t, s, employer, "job")

			err := s.Delete(context.Background(), tt.actor, job.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, getErr := s.Get(context.Background(), job.ID)
				assert.NoError(t, getErr, "job must survive a denied delete")
				return
			}
			require.NoError(t, err)
			_, getErr := s.Get(context.Background(), job.ID)
			assert.ErrorIs(t, getErr, ErrJobNotFound)
		})
	}
}

func TestDelete_AdminRemovesFromEveryListing(t *testing.T) {
	s := NewService(newMockRepository())
	job := createJob(t, s, employer, "doomed")

	require.NoError(t, s.Delete(context.Background(), admin, job.ID))

	for _, viewer := range []authz.Actor{{}, candidate, employer, admin} {
		jobs, err := s.List(context.Background(), viewer, ListFilter{})
		require.NoError(t, err)
		assert.Empty(t, jobs)
	}
	_, err := s.Get(context.Background(), job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestDelete_MissingIsNotFoundNotForbidden(t *testing.T) {
	s := NewService(newMockRepository())

	err := s.Delete(context.Background(), employer2, uuid.NewString())

	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.NotErrorIs(t, err, authz.ErrForbidden)
}

func TestUpdate(t *testing.T) {
	s := NewService(newMockRepository())
	job := createJob(t, s, employer, "before")
	title := "after"

	updated, err := s.Update(context.Background(), employer, job.ID, JobUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, employer.ID, updated.EmployerID)

	_, err = s.Update(context.Background(), employer2, job.ID, JobUpdate{Title: &title})
	assert.ErrorIs(t, err, authz.ErrForbidden)

	bad := domain.EmploymentType("gig")
	_, err = s.Update(context.Background(), employer, job.ID, JobUpdate{EmploymentType: &bad})
	assert.ErrorIs(t, err, ErrInvalidEmploymentType)
}

func TestModerationToggles_AdminOnly(t *testing.T) {
	s := NewService(newMockRepository())
	job := createJob(t, s, employer, "job")
	ctx := context.Background()

	_, err := s.SetVerified(ctx, employer, job.ID, true)
	assert.ErrorIs(t, err, authz.ErrForbidden, "owner cannot verify own job")

	_, err = s.SetFlagged(ctx, employer, job.ID, false)
	assert.ErrorIs(t, err, authz.ErrForbidden, "owner cannot unflag own job")

	got, err := s.SetVerified(ctx, admin, job.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)

	got, err = s.SetFlagged(ctx, admin, job.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsFlagged)
	assert.True(t, got.IsVerified, "flags are independent")
}
