package repos

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
)

// ErrTablesMissing is returned when the integration tables have not been
// migrated yet; handlers turn it into a 503 with a tablesMissing flag so
// the admin UI can prompt for migration instead of showing a generic 500.
var ErrTablesMissing = errors.New("integration tables missing")

// Well-known setting keys.
const (
	SettingCJCredentials = "cj_credentials"
	SettingKillSwitch    = "cj_fulfillment_disabled"
)

// CJCredentials is the value stored under SettingCJCredentials.
type CJCredentials struct {
	Email  string `json:"email"`
	APIKey string `json:"apiKey"`
}

// SettingsRepo reads and writes small JSON blobs in the kv_settings table.
// The table-existence check is cached per instance, not in package state,
// so independent instances (and tests) cannot cross-contaminate.
type SettingsRepo struct {
	db *sqlx.DB

	mu          sync.Mutex
	tablesState int // 0 unknown, 1 ready, -1 missing
}

func NewSettingsRepo(db *sqlx.DB) *SettingsRepo { return &SettingsRepo{db: db} }

func (r *SettingsRepo) q(s string) string { return r.db.Rebind(s) }

// TablesReady probes the integration tables once and caches the outcome.
// A negative result is re-probed on the next call so a migration applied
// while the process runs is picked up.
func (r *SettingsRepo) TablesReady() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tablesState == 1 {
		return nil
	}
	for _, probe := range []string{
		`SELECT 1 FROM kv_settings LIMIT 1`,
		`SELECT 1 FROM admin_jobs LIMIT 1`,
		`SELECT 1 FROM integration_tokens LIMIT 1`,
	} {
		if _, err := r.db.Exec(probe); err != nil {
			r.tablesState = -1
			return ErrTablesMissing
		}
	}
	r.tablesState = 1
	return nil
}

// Get unmarshals the value stored under key into out. Returns
// sql.ErrNoRows when the key is absent.
func (r *SettingsRepo) Get(key string, out any) error {
	if err := r.TablesReady(); err != nil {
		return err
	}
	var raw string
	if err := r.db.Get(&raw, r.q(`SELECT value_json FROM kv_settings WHERE key = ?`), key); err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

func (r *SettingsRepo) Put(key string, value any) error {
	if err := r.TablesReady(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(r.q(`
	  INSERT INTO kv_settings(key, value_json, updated_at)
	  VALUES(?,?,?)
	  ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`), key, string(raw), now())
	return err
}

// Bool reads a boolean flag; a missing key reads as false.
func (r *SettingsRepo) Bool(key string) (bool, error) {
	var v bool
	err := r.Get(key, &v)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v, nil
}
