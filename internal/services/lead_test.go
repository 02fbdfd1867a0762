package services

import (
	"context"
	"errors"
	"testing"

	"github.com/leadhub/apiserver/internal/events"
	"github.com/leadhub/apiserver/internal/store"
	"github.com/leadhub/apiserver/types"
	"github.com/stretchr/testify/require"
)

type fakeLeadRepo struct {
	lastLimit  int
	lastOffset int
	created    types.Lead
	deleteErr  error
}

func (f *fakeLeadRepo) List(ctx context.Context, ownerID int, filter types.LeadFilter, offset, limit int) ([]types.Lead, int, error) {
	f.lastOffset = offset
	f.lastLimit = limit
	return nil, 0, nil
}

func (f *fakeLeadRepo) ListAll(ctx context.Context, ownerID int, filter types.LeadFilter) ([]types.Lead, error) {
	return nil, nil
}

func (f *fakeLeadRepo) Get(ctx context.Context, ownerID, id int) (types.Lead, error) {
	return types.Lead{}, store.ErrNotFound
}

func (f *fakeLeadRepo) Create(ctx context.Context, lead types.Lead) (types.Lead, error) {
	lead.ID = 42
	f.created = lead
	return lead, nil
}

func (f *fakeLeadRepo) Update(ctx context.Context, lead types.Lead) (types.Lead, error) {
	return lead, nil
}

func (f *fakeLeadRepo) Delete(ctx context.Context, ownerID, id int) error {
	return f.deleteErr
}

type recordingPublisher struct {
	types []string
	err   error
}

func (p *recordingPublisher) LeadChanged(ctx context.Context, eventType string, leadID, ownerID int) error {
	p.types = append(p.types, eventType)
	return p.err
}

func TestLeadServiceListClampsLimit(t *testing.T) {
	repo := &fakeLeadRepo{}
	svc := NewLeadService(repo, nil, nil)

	_, _, err := svc.List(context.Background(), 1, types.LeadFilter{}, 0, 500)
	require.NoError(t, err)
	require.Equal(t, 100, repo.lastLimit)

	_, _, err = svc.List(context.Background(), 1, types.LeadFilter{}, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 20, repo.lastLimit)
}

func TestLeadServicePublishesMutationEvents(t *testing.T) {
	repo := &fakeLeadRepo{}
	publisher := &recordingPublisher{}
	svc := NewLeadService(repo, publisher, nil)

	created, err := svc.Create(context.Background(), types.Lead{OwnerID: 1})
	require.NoError(t, err)
	require.Equal(t, 42, created.ID)

	_, err = svc.Update(context.Background(), created)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 1, created.ID))

	require.Equal(t, []string{
		events.TypeLeadCreated,
		events.TypeLeadUpdated,
		events.TypeLeadDeleted,
	}, publisher.types)
}

func TestLeadServicePublishFailureDoesNotFailMutation(t *testing.T) {
	repo := &fakeLeadRepo{}
	publisher := &recordingPublisher{err: errors.New("broker down")}
	svc := NewLeadService(repo, publisher, nil)

	_, err := svc.Create(context.Background(), types.Lead{OwnerID: 1})
	require.NoError(t, err)
}

func TestLeadServiceNoEventOnFailedDelete(t *testing.T) {
	repo := &fakeLeadRepo{deleteErr: store.ErrNotFound}
	publisher := &recordingPublisher{}
	svc := NewLeadService(repo, publisher, nil)

	err := svc.Delete(context.Background(), 1, 99)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Empty(t, publisher.types)
}
