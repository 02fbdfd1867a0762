package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/leadhub/apiserver/internal/storage"
	"github.com/leadhub/apiserver/types"
)

// ExportResult describes a stored CSV snapshot.
type ExportResult struct {
	Key    string `json:"key"`
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// ExportService writes filtered lead snapshots to object storage as CSV.
type ExportService struct {
	repo    LeadRepository
	storage *storage.Storage
}

func NewExportService(repo LeadRepository, store *storage.Storage) *ExportService {
	return &ExportService{repo: repo, storage: store}
}

// Enabled reports whether a storage backend is configured.
func (s *ExportService) Enabled() bool {
	return s.storage != nil
}

// Export writes every lead matching the filter to a timestamped CSV
// object under the owner's export prefix.
func (s *ExportService) Export(ctx context.Context, ownerID int, filter types.LeadFilter) (ExportResult, error) {
	leads, err := s.repo.ListAll(ctx, ownerID, filter)
	if err != nil {
		return ExportResult{}, err
	}

	data, err := marshalLeadsCSV(leads)
	if err != nil {
		return ExportResult{}, err
	}

	key := fmt.Sprintf("exports/%d/leads-%s.csv", ownerID, time.Now().UTC().Format("20060102T150405Z"))
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "text/csv"); err != nil {
		return ExportResult{}, err
	}

	return ExportResult{
		Key:    key,
		Bucket: s.storage.Bucket(),
		Count:  len(leads),
	}, nil
}

// ErrInvalidExportName marks names that do not address a single object
// under the owner's export prefix.
var ErrInvalidExportName = errors.New("invalid export name")

// Open streams a previously stored snapshot. The key is always rebuilt
// from the owner's prefix, so one owner cannot address another's objects.
func (s *ExportService) Open(ctx context.Context, ownerID int, name string) (io.ReadCloser, error) {
	key, err := exportKey(ownerID, name)
	if err != nil {
		return nil, err
	}
	return s.storage.Get(ctx, key)
}

// Remove deletes a stored snapshot.
func (s *ExportService) Remove(ctx context.Context, ownerID int, name string) error {
	key, err := exportKey(ownerID, name)
	if err != nil {
		return err
	}
	return s.storage.Delete(ctx, key)
}

func exportKey(ownerID int, name string) (string, error) {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return "", ErrInvalidExportName
	}
	return fmt.Sprintf("exports/%d/%s", ownerID, name), nil
}

func marshalLeadsCSV(leads []types.Lead) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{
		"id", "firstName", "lastName", "email", "phone", "company", "city", "state",
		"source", "status", "score", "leadValue", "lastActivityAt", "isQualified",
		"createdAt", "updatedAt",
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for _, lead := range leads {
		lastActivity := ""
		if lead.LastActivityAt != nil {
			lastActivity = lead.LastActivityAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.Itoa(lead.ID),
			lead.FirstName,
			lead.LastName,
			lead.Email,
			lead.Phone,
			lead.Company,
			lead.City,
			lead.State,
			lead.Source,
			lead.Status,
			strconv.Itoa(lead.Score),
			strconv.FormatFloat(lead.LeadValue, 'f', 2, 64),
			lastActivity,
			strconv.FormatBool(lead.IsQualified),
			lead.CreatedAt.UTC().Format(time.RFC3339),
			lead.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
