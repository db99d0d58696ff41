package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complior/complior/internal/domain"
	"github.com/complior/complior/internal/service/logger"
)

type fakeEvidenceRepo struct {
	items map[string]*domain.Evidence
}

func newFakeEvidenceRepo() *fakeEvidenceRepo {
	return &fakeEvidenceRepo{items: make(map[string]*domain.Evidence)}
}

func (f *fakeEvidenceRepo) Create(ctx context.Context, ev *domain.Evidence) error {
	f.items[ev.ID] = ev
	return nil
}

func (f *fakeEvidenceRepo) FindByID(ctx context.Context, id string) (*domain.Evidence, error) {
	ev, ok := f.items[id]
	if !ok {
		return nil, domain.ErrEvidenceNotFound
	}
	return ev, nil
}

func (f *fakeEvidenceRepo) List(ctx context.Context, filter domain.EvidenceFilter) ([]*domain.Evidence, error) {
	var out []*domain.Evidence
	for _, ev := range f.items {
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeEvidenceRepo) Update(ctx context.Context, ev *domain.Evidence) error {
	f.items[ev.ID] = ev
	return nil
}

func (f *fakeEvidenceRepo) Delete(ctx context.Context, id string) error {
	delete(f.items, id)
	return nil
}

func TestCreateEvidence_SurvivesFailingAuditor(t *testing.T) {
	repo := newFakeEvidenceRepo()
	uc := NewEvidenceUseCase(repo, &recordingAuditor{fail: true}, logger.Noop())

	ev, err := uc.CreateEvidence(context.Background(), CreateEvidenceRequest{
		TenantID:       "t1",
		RequirementID:  "r1",
		OrganizationID: "o1",
		Title:          "Pentest report Q3",
		UploadedBy:     "auditor1",
	})
	require.NoError(t, err, "a broken audit store must not fail evidence creation")
	assert.Contains(t, repo.items, ev.ID)
	assert.Equal(t, domain.EvidenceStatusPending, ev.Status)
}

func TestReviewEvidence(t *testing.T) {
	repo := newFakeEvidenceRepo()
	auditor := &recordingAuditor{}
	uc := NewEvidenceUseCase(repo, auditor, logger.Noop())

	ev := domain.NewEvidence("t1", "r1", "o1", "Pentest report Q3", "", "auditor1")
	repo.items[ev.ID] = ev

	reviewed, err := uc.ReviewEvidence(context.Background(), ev.ID, domain.EvidenceStatusApproved, "reviewer")
	require.NoError(t, err)
	assert.Equal(t, domain.EvidenceStatusApproved, reviewed.Status)

	require.Len(t, auditor.entries, 1)
	entry := auditor.entries[0]
	assert.Equal(t, domain.ActionUpdate, entry.Action)
	assert.Equal(t, string(domain.EvidenceStatusPending), entry.Changes.Before["status"])
	assert.Equal(t, string(domain.EvidenceStatusApproved), entry.Changes.After["status"])
}

func TestReviewEvidence_RejectsUnknownStatus(t *testing.T) {
	uc := NewEvidenceUseCase(newFakeEvidenceRepo(), nil, logger.Noop())

	_, err := uc.ReviewEvidence(context.Background(), "e1", domain.EvidenceStatus("MAYBE"), "reviewer")
	assert.Error(t, err)
}
