package directory

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StaffMember is a transfer destination. Read-only here; staff management
// belongs to the management backend.
type StaffMember struct {
	ID        string
	Name      string
	Phone     string
	Available bool
}

// Directory returns an available human to transfer a live call to.
type Directory interface {
	Available(ctx context.Context) (StaffMember, bool, error)
}

// unavailableKey is set (with TTL) when staff mark themselves briefly away
// without flipping the durable availability flag.
func unavailableKey(staffID string) string {
	return "staff:unavailable:" + staffID
}

// PostgresDirectory reads the staff table and honors redis away-markers.
type PostgresDirectory struct {
	db  *sql.DB
	rdb *redis.Client
}

func NewPostgresDirectory(db *sql.DB, rdb *redis.Client) *PostgresDirectory {
	return &PostgresDirectory{db: db, rdb: rdb}
}

func (d *PostgresDirectory) Available(ctx context.Context) (StaffMember, bool, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, phone FROM staff WHERE available = TRUE ORDER BY priority, name`)
	if err != nil {
		return StaffMember{}, false, fmt.Errorf("directory: query staff: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m StaffMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Phone); err != nil {
			return StaffMember{}, false, fmt.Errorf("directory: scan staff: %w", err)
		}
		m.Available = true
		if d.isAway(ctx, m.ID) {
			continue
		}
		return m, true, nil
	}
	return StaffMember{}, false, rows.Err()
}

func (d *PostgresDirectory) isAway(ctx context.Context, staffID string) bool {
	if d.rdb == nil {
		return false
	}
	n, err := d.rdb.Exists(ctx, unavailableKey(staffID)).Result()
	if err != nil {
		// Redis being down must not block transfers.
		return false
	}
	return n > 0
}

// MarkAway flags a staff member unavailable for ttl without touching the
// durable record.
func (d *PostgresDirectory) MarkAway(ctx context.Context, staffID string, ttl time.Duration) error {
	if d.rdb == nil {
		return nil
	}
	return d.rdb.Set(ctx, unavailableKey(staffID), "1", ttl).Err()
}

// MemoryDirectory is a test double.
type MemoryDirectory struct {
	mu    sync.Mutex
	staff []StaffMember
}

func NewMemoryDirectory(staff ...StaffMember) *MemoryDirectory {
	return &MemoryDirectory{staff: staff}
}

func (d *MemoryDirectory) Add(m StaffMember) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staff = append(d.staff, m)
}

func (d *MemoryDirectory) Available(ctx context.Context) (StaffMember, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.staff {
		if m.Available {
			return m, true, nil
		}
	}
	return StaffMember{}, false, nil
}
