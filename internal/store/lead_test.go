package store

import (
	"testing"
	"time"

	"github.com/leadhub/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestBuildLeadPredicatesOwnerAlwaysFirst(t *testing.T) {
	p := buildLeadPredicates(7, types.LeadFilter{})

	require.Equal(t, "owner_id = $1", p.where())
	require.Equal(t, []any{7}, p.args)
}

func TestBuildLeadPredicatesSubstringFilters(t *testing.T) {
	p := buildLeadPredicates(3, types.LeadFilter{
		Email:   "acme",
		Company: "Initech",
		City:    "Austin",
	})

	require.Equal(t, "owner_id = $1 AND email ILIKE $2 AND company ILIKE $3 AND city ILIKE $4", p.where())
	require.Equal(t, []any{3, "%acme%", "%Initech%", "%Austin%"}, p.args)
}

func TestBuildLeadPredicatesEnumSets(t *testing.T) {
	p := buildLeadPredicates(1, types.LeadFilter{
		Statuses: []string{"qualified", "won"},
		Sources:  []string{"referral"},
	})

	require.Equal(t, "owner_id = $1 AND status = ANY($2) AND source = ANY($3)", p.where())
	require.Equal(t, pq.Array([]string{"qualified", "won"}), p.args[1])
	require.Equal(t, pq.Array([]string{"referral"}), p.args[2])
}

func TestBuildLeadPredicatesBoundsAreIndependent(t *testing.T) {
	min := 50
	p := buildLeadPredicates(1, types.LeadFilter{ScoreMin: &min})

	require.Equal(t, "owner_id = $1 AND score >= $2", p.where())
	require.Equal(t, []any{1, 50}, p.args)
}

func TestBuildLeadPredicatesFullRange(t *testing.T) {
	scoreMin, scoreMax := 50, 80
	valueMin, valueMax := 100.0, 5000.0
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	qualified := true

	p := buildLeadPredicates(9, types.LeadFilter{
		ScoreMin:     &scoreMin,
		ScoreMax:     &scoreMax,
		LeadValueMin: &valueMin,
		LeadValueMax: &valueMax,
		CreatedFrom:  &from,
		CreatedTo:    &to,
		IsQualified:  &qualified,
	})

	require.Equal(t,
		"owner_id = $1 AND score >= $2 AND score <= $3 AND lead_value >= $4 AND lead_value <= $5"+
			" AND created_at >= $6 AND created_at <= $7 AND is_qualified = $8",
		p.where(),
	)
	require.Equal(t, []any{9, 50, 80, 100.0, 5000.0, from, to, true}, p.args)
}

func TestWithCreateTimestampsDefaultsOnlyWhenZero(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	lead := withCreateTimestamps(types.Lead{}, now)
	require.Equal(t, now, lead.CreatedAt)
	require.Equal(t, now, lead.UpdatedAt)

	// A backdated lead keeps its timestamps.
	backdated := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	lead = withCreateTimestamps(types.Lead{CreatedAt: backdated, UpdatedAt: backdated}, now)
	require.Equal(t, backdated, lead.CreatedAt)
	require.Equal(t, backdated, lead.UpdatedAt)

	lead = withCreateTimestamps(types.Lead{CreatedAt: backdated}, now)
	require.Equal(t, backdated, lead.UpdatedAt)
}

func TestBuildLeadPredicatesLastActivityRange(t *testing.T) {
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	p := buildLeadPredicates(2, types.LeadFilter{LastActivityFrom: &from})

	require.Equal(t, "owner_id = $1 AND last_activity_at >= $2", p.where())
}
