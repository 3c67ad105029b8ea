// Package dbtest opens throwaway SQLite databases carrying the order-core schema.
// Column names and constraints match the Postgres migrations; only the types differ.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/floorops-backend/pkg/db"
)

const schema = `
CREATE TABLE restaurant_settings (
  restaurant_id TEXT PRIMARY KEY,
  tax_rate TEXT NOT NULL,
  timezone TEXT NOT NULL DEFAULT 'UTC',
  updated_at DATETIME
);
CREATE TABLE menu_items (
  id TEXT PRIMARY KEY,
  restaurant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  available BOOLEAN NOT NULL DEFAULT 1,
  updated_at DATETIME
);
CREATE TABLE order_number_sequences (
  restaurant_id TEXT PRIMARY KEY,
  last_number INTEGER NOT NULL
);
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  restaurant_id TEXT NOT NULL,
  order_number INTEGER NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL,
  items TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL,
  tip_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  tax_rate TEXT NOT NULL,
  version INTEGER NOT NULL CHECK (version >= 1),
  is_scheduled BOOLEAN NOT NULL DEFAULT 0,
  scheduled_pickup_time DATETIME,
  auto_fire_time DATETIME,
  manually_fired BOOLEAN NOT NULL DEFAULT 0,
  notes TEXT,
  customer_name TEXT,
  table_number TEXT,
  metadata TEXT,
  created_by TEXT NOT NULL,
  confirmed_at DATETIME,
  preparing_at DATETIME,
  ready_at DATETIME,
  picked_up_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  CONSTRAINT ux_orders_restaurant_number UNIQUE (restaurant_id, order_number),
  CHECK (total_cents = subtotal_cents + tax_cents + tip_cents)
);
CREATE TABLE order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id),
  restaurant_id TEXT NOT NULL,
  from_status TEXT,
  to_status TEXT NOT NULL,
  actor TEXT NOT NULL,
  actor_role TEXT NOT NULL,
  version INTEGER NOT NULL,
  reason TEXT,
  occurred_at DATETIME NOT NULL,
  CONSTRAINT ux_order_status_history_version UNIQUE (order_id, version)
);
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME NOT NULL,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);
CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME NOT NULL,
  created_at DATETIME NOT NULL
);
`

// Open returns a private in-memory database for t with the schema applied.
// The pool is pinned to one connection, so transactions run one at a time.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(nil))
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
