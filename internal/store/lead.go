package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leadhub/apiserver/types"
	"github.com/lib/pq"
)

const leadColumns = `id, owner_id, first_name, last_name, email, phone, company, city, state,
		source, status, score, lead_value, last_activity_at, is_qualified, created_at, updated_at`

// LeadRepository handles persistence for leads. Every read and mutation is
// scoped by owner id, so a lead belonging to another owner behaves exactly
// like a nonexistent one.
type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// predicates accumulates WHERE clauses with positional placeholders. Each
// expr must contain a single %d verb for the placeholder index.
type predicates struct {
	clauses []string
	args    []any
}

func (p *predicates) add(expr string, value any) {
	p.args = append(p.args, value)
	p.clauses = append(p.clauses, fmt.Sprintf(expr, len(p.args)))
}

func (p *predicates) where() string {
	return strings.Join(p.clauses, " AND ")
}

// buildLeadPredicates compiles the owner scope plus the filter
// specification into the WHERE clause shared by the count and page
// queries. The owner clause always comes first and cannot be omitted.
func buildLeadPredicates(ownerID int, filter types.LeadFilter) *predicates {
	p := &predicates{}
	p.add("owner_id = $%d", ownerID)

	if filter.Email != "" {
		p.add("email ILIKE $%d", "%"+filter.Email+"%")
	}
	if filter.Company != "" {
		p.add("company ILIKE $%d", "%"+filter.Company+"%")
	}
	if filter.City != "" {
		p.add("city ILIKE $%d", "%"+filter.City+"%")
	}
	if len(filter.Statuses) > 0 {
		p.add("status = ANY($%d)", pq.Array(filter.Statuses))
	}
	if len(filter.Sources) > 0 {
		p.add("source = ANY($%d)", pq.Array(filter.Sources))
	}
	if filter.ScoreMin != nil {
		p.add("score >= $%d", *filter.ScoreMin)
	}
	if filter.ScoreMax != nil {
		p.add("score <= $%d", *filter.ScoreMax)
	}
	if filter.LeadValueMin != nil {
		p.add("lead_value >= $%d", *filter.LeadValueMin)
	}
	if filter.LeadValueMax != nil {
		p.add("lead_value <= $%d", *filter.LeadValueMax)
	}
	if filter.CreatedFrom != nil {
		p.add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		p.add("created_at <= $%d", *filter.CreatedTo)
	}
	if filter.LastActivityFrom != nil {
		p.add("last_activity_at >= $%d", *filter.LastActivityFrom)
	}
	if filter.LastActivityTo != nil {
		p.add("last_activity_at <= $%d", *filter.LastActivityTo)
	}
	if filter.IsQualified != nil {
		p.add("is_qualified = $%d", *filter.IsQualified)
	}
	return p
}

func scanLead(scanner interface{ Scan(...any) error }) (types.Lead, error) {
	var lead types.Lead
	var lastActivity sql.NullTime
	err := scanner.Scan(
		&lead.ID,
		&lead.OwnerID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.Phone,
		&lead.Company,
		&lead.City,
		&lead.State,
		&lead.Source,
		&lead.Status,
		&lead.Score,
		&lead.LeadValue,
		&lastActivity,
		&lead.IsQualified,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return types.Lead{}, err
	}
	if lastActivity.Valid {
		t := lastActivity.Time
		lead.LastActivityAt = &t
	}
	return lead, nil
}

// List returns one page of leads matching the filter, newest first, plus
// the total count ignoring pagination.
func (r *LeadRepository) List(ctx context.Context, ownerID int, filter types.LeadFilter, offset, limit int) ([]types.Lead, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	p := buildLeadPredicates(ownerID, filter)

	countQuery := "SELECT COUNT(1) FROM leads WHERE " + p.where()
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, p.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(
		"SELECT %s FROM leads WHERE %s ORDER BY created_at DESC, id DESC OFFSET $%d LIMIT $%d",
		leadColumns, p.where(), len(p.args)+1, len(p.args)+2,
	)
	args := append(append([]any{}, p.args...), offset, limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]types.Lead, 0, limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return leads, total, nil
}

// ListAll returns every lead matching the filter, newest first, without
// pagination. Used by CSV exports.
func (r *LeadRepository) ListAll(ctx context.Context, ownerID int, filter types.LeadFilter) ([]types.Lead, error) {
	p := buildLeadPredicates(ownerID, filter)

	query := fmt.Sprintf(
		"SELECT %s FROM leads WHERE %s ORDER BY created_at DESC, id DESC",
		leadColumns, p.where(),
	)
	rows, err := r.db.QueryContext(ctx, query, p.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []types.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return leads, nil
}

// Get fetches a single lead scoped by (id, ownerID).
func (r *LeadRepository) Get(ctx context.Context, ownerID, id int) (types.Lead, error) {
	query := fmt.Sprintf("SELECT %s FROM leads WHERE id = $1 AND owner_id = $2", leadColumns)
	lead, err := scanLead(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Lead{}, ErrNotFound
		}
		return types.Lead{}, err
	}
	return lead, nil
}

func (r *LeadRepository) Create(ctx context.Context, lead types.Lead) (types.Lead, error) {
	lead = withCreateTimestamps(lead, time.Now())

	const query = `
		INSERT INTO leads (owner_id, first_name, last_name, email, phone, company, city, state,
			source, status, score, lead_value, last_activity_at, is_qualified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		lead.OwnerID,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.City,
		lead.State,
		lead.Source,
		lead.Status,
		lead.Score,
		lead.LeadValue,
		lead.LastActivityAt,
		lead.IsQualified,
		lead.CreatedAt,
		lead.UpdatedAt,
	).Scan(&lead.ID); err != nil {
		return types.Lead{}, err
	}
	return lead, nil
}

// withCreateTimestamps fills in created_at/updated_at, keeping values the
// caller already set. The seed command backdates leads this way.
func withCreateTimestamps(lead types.Lead, now time.Time) types.Lead {
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = lead.CreatedAt
	}
	return lead
}

// Update replaces the mutable columns of a lead. The owner id is part of
// the WHERE clause, never of the SET list.
func (r *LeadRepository) Update(ctx context.Context, lead types.Lead) (types.Lead, error) {
	lead.UpdatedAt = time.Now()

	const query = `
		UPDATE leads
		SET first_name = $1,
			last_name = $2,
			email = $3,
			phone = $4,
			company = $5,
			city = $6,
			state = $7,
			source = $8,
			status = $9,
			score = $10,
			lead_value = $11,
			last_activity_at = $12,
			is_qualified = $13,
			updated_at = $14
		WHERE id = $15 AND owner_id = $16`
	result, err := r.db.ExecContext(
		ctx,
		query,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.City,
		lead.State,
		lead.Source,
		lead.Status,
		lead.Score,
		lead.LeadValue,
		lead.LastActivityAt,
		lead.IsQualified,
		lead.UpdatedAt,
		lead.ID,
		lead.OwnerID,
	)
	if err != nil {
		return types.Lead{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Lead{}, err
	}
	if affected == 0 {
		return types.Lead{}, ErrNotFound
	}
	return lead, nil
}

func (r *LeadRepository) Delete(ctx context.Context, ownerID, id int) error {
	const query = `DELETE FROM leads WHERE id = $1 AND owner_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByOwner removes every lead for an owner. Used by the seed command.
func (r *LeadRepository) DeleteByOwner(ctx context.Context, ownerID int) error {
	const query = `DELETE FROM leads WHERE owner_id = $1`
	_, err := r.db.ExecContext(ctx, query, ownerID)
	return err
}
