package registry_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/permalink/internal/entity"
	"github.com/dmitrymomot/permalink/internal/registry"
)

// fakeConn emulates the slugs table with an in-memory set. Setting
// raceOnInsert simulates a concurrent transaction winning the same
// candidate between the existence check and the insert.
type fakeConn struct {
	taken        map[string]bool
	raceOnInsert bool
}

func newFakeConn(taken ...string) *fakeConn {
	m := make(map[string]bool, len(taken))
	for _, s := range taken {
		m[s] = true
	}
	return &fakeConn{taken: m}
}

type fakeRow struct {
	exists bool
}

func (r fakeRow) Scan(dest ...any) error {
	*(dest[0].(*bool)) = r.exists
	return nil
}

func (c *fakeConn) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	return fakeRow{exists: c.taken[args[0].(string)]}
}

func (c *fakeConn) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	s := args[0].(string)
	if c.raceOnInsert || c.taken[s] {
		return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", ConstraintName: "slugs_pkey"}
	}
	c.taken[s] = true
	return pgconn.CommandTag{}, nil
}

func TestReserve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := registry.New()

	t.Run("free base reserved verbatim", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()
		got, err := reg.Reserve(ctx, conn, "jane-doe", uuid.New(), entity.KindUser)
		require.NoError(t, err)
		assert.Equal(t, "jane-doe", got)
		assert.True(t, conn.taken["jane-doe"])
	})

	t.Run("collision appends random suffix", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn("jane-doe")
		got, err := reg.Reserve(ctx, conn, "jane-doe", uuid.New(), entity.KindUser)
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^jane-doe-[a-z0-9]{4}$`), got)
		assert.True(t, conn.taken[got])
	})

	t.Run("suffix widens after repeated collisions", func(t *testing.T) {
		t.Parallel()

		// Pre-claim the base and intercept narrow candidates so only
		// a widened suffix can succeed.
		conn := newFakeConn("acme")
		short := regexp.MustCompile(`^acme-[a-z0-9]{4}$`)
		wrapped := &collidingConn{fakeConn: conn, blocked: short}
		got, err := reg.Reserve(ctx, wrapped, "acme", uuid.New(), entity.KindBusiness)
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^acme-[a-z0-9]{6}$`), got)
	})

	t.Run("reserved name never reserved verbatim", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()
		got, err := reg.Reserve(ctx, conn, "admin", uuid.New(), entity.KindUser)
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^admin-[a-z0-9]{4}$`), got)
		assert.False(t, conn.taken["admin"])
	})

	t.Run("concurrent insert surfaces ErrSlugTaken", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn()
		conn.raceOnInsert = true
		_, err := reg.Reserve(ctx, conn, "acme", uuid.New(), entity.KindBusiness)
		require.ErrorIs(t, err, registry.ErrSlugTaken)
	})

	t.Run("exhausts retry budget", func(t *testing.T) {
		t.Parallel()

		conn := newFakeConn("acme")
		wrapped := &collidingConn{fakeConn: conn, blocked: regexp.MustCompile(`^acme-`)}
		_, err := reg.Reserve(ctx, wrapped, "acme", uuid.New(), entity.KindBusiness)
		require.ErrorIs(t, err, registry.ErrExhausted)
	})
}

// collidingConn reports every candidate matching blocked as already
// taken, forcing the retry loop onward.
type collidingConn struct {
	*fakeConn
	blocked *regexp.Regexp
}

func (c *collidingConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if c.blocked.MatchString(args[0].(string)) {
		return fakeRow{exists: true}
	}
	return c.fakeConn.QueryRow(ctx, sql, args...)
}
