package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/leadhub/apiserver/internal/storage"
	"github.com/leadhub/apiserver/types"
	"github.com/stretchr/testify/require"
)

type captureBackend struct {
	key     string
	data    []byte
	deleted string
}

func (c *captureBackend) EnsureBucket(ctx context.Context) error { return nil }

func (c *captureBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	c.key = key
	data, err := io.ReadAll(r)
	c.data = data
	return err
}

func (c *captureBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if key != c.key {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(c.data)), nil
}

func (c *captureBackend) Delete(ctx context.Context, key string) error {
	if key != c.key {
		return errors.New("no such object")
	}
	c.deleted = key
	return nil
}

func (c *captureBackend) Bucket() string { return "lead-exports" }

type exportRepo struct {
	fakeLeadRepo
	leads []types.Lead
}

func (r *exportRepo) ListAll(ctx context.Context, ownerID int, filter types.LeadFilter) ([]types.Lead, error) {
	return r.leads, nil
}

func TestExportWritesCSVSnapshot(t *testing.T) {
	lastActivity := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	repo := &exportRepo{leads: []types.Lead{
		{
			ID:             5,
			OwnerID:        1,
			FirstName:      "Ada",
			LastName:       "Alpha",
			Email:          "ada@example.com",
			Company:        "Acme Inc",
			Source:         types.SourceReferral,
			Status:         types.StatusWon,
			Score:          88,
			LeadValue:      1250.5,
			LastActivityAt: &lastActivity,
			IsQualified:    true,
			CreatedAt:      time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			UpdatedAt:      time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
		},
		{ID: 6, OwnerID: 1, FirstName: "Bob", LastName: "Beta", Email: "bob@example.com"},
	}}

	backend := &captureBackend{}
	svc := NewExportService(repo, storage.NewStorage(backend))
	require.True(t, svc.Enabled())

	result, err := svc.Export(context.Background(), 1, types.LeadFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, result.Count)
	require.Equal(t, "lead-exports", result.Bucket)
	require.True(t, strings.HasPrefix(result.Key, "exports/1/leads-"))
	require.True(t, strings.HasSuffix(result.Key, ".csv"))

	records, err := csv.NewReader(bytes.NewReader(backend.data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t, "id", records[0][0])
	require.Equal(t, "firstName", records[0][1])

	require.Equal(t, "5", records[1][0])
	require.Equal(t, "Ada", records[1][1])
	require.Equal(t, "88", records[1][10])
	require.Equal(t, "1250.50", records[1][11])
	require.Equal(t, "2026-03-15T09:30:00Z", records[1][12])
	require.Equal(t, "true", records[1][13])

	// No last activity renders as an empty cell.
	require.Equal(t, "", records[2][12])
}

func TestExportServiceDisabledWithoutStorage(t *testing.T) {
	svc := NewExportService(&exportRepo{}, nil)
	require.False(t, svc.Enabled())
}

func TestExportOpenRoundTrip(t *testing.T) {
	backend := &captureBackend{key: "exports/1/leads-x.csv", data: []byte("id,firstName\n")}
	svc := NewExportService(&exportRepo{}, storage.NewStorage(backend))

	reader, err := svc.Open(context.Background(), 1, "leads-x.csv")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "id,firstName\n", string(data))

	// Keys are rebuilt from the owner prefix, so another owner's name
	// resolves to a different object.
	_, err = svc.Open(context.Background(), 2, "leads-x.csv")
	require.Error(t, err)
}

func TestExportOpenRejectsTraversalNames(t *testing.T) {
	backend := &captureBackend{key: "exports/1/leads-x.csv"}
	svc := NewExportService(&exportRepo{}, storage.NewStorage(backend))

	for _, name := range []string{"", "a/b", "../1/leads-x.csv"} {
		_, err := svc.Open(context.Background(), 2, name)
		require.ErrorIs(t, err, ErrInvalidExportName, name)
	}
}

func TestExportRemove(t *testing.T) {
	backend := &captureBackend{key: "exports/1/leads-x.csv"}
	svc := NewExportService(&exportRepo{}, storage.NewStorage(backend))

	require.NoError(t, svc.Remove(context.Background(), 1, "leads-x.csv"))
	require.Equal(t, "exports/1/leads-x.csv", backend.deleted)

	require.Error(t, svc.Remove(context.Background(), 1, "leads-missing.csv"))
}
