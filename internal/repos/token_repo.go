package repos

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// IntegrationToken is the single persisted token row per provider. It is
// owned exclusively by the supplier client; nothing else mutates it.
type IntegrationToken struct {
	Provider      string `db:"provider"`
	AccessToken   string `db:"access_token"`
	AccessExpiry  string `db:"access_expiry"`
	RefreshToken  string `db:"refresh_token"`
	RefreshExpiry string `db:"refresh_expiry"`
	UpdatedAt     string `db:"updated_at"`
}

// Expired reports whether the access token is past (or within skew of)
// its expiry. Unparseable expiries count as expired.
func (t IntegrationToken) Expired(skew time.Duration) bool {
	exp, err := time.Parse(time.RFC3339, t.AccessExpiry)
	if err != nil {
		return true
	}
	return time.Now().Add(skew).After(exp)
}

type TokenRepo struct{ db *sqlx.DB }

func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{db: db} }

func (r *TokenRepo) q(s string) string { return r.db.Rebind(s) }

func (r *TokenRepo) Get(provider string) (IntegrationToken, error) {
	var t IntegrationToken
	err := r.db.Get(&t, r.q(`
	  SELECT provider, access_token, access_expiry, refresh_token, refresh_expiry, updated_at
	  FROM integration_tokens WHERE provider = ?
	`), provider)
	return t, err
}

func (r *TokenRepo) Put(t IntegrationToken) error {
	_, err := r.db.Exec(r.q(`
	  INSERT INTO integration_tokens(provider, access_token, access_expiry, refresh_token, refresh_expiry, updated_at)
	  VALUES(?,?,?,?,?,?)
	  ON CONFLICT(provider) DO UPDATE SET
	    access_token = excluded.access_token,
	    access_expiry = excluded.access_expiry,
	    refresh_token = excluded.refresh_token,
	    refresh_expiry = excluded.refresh_expiry,
	    updated_at = excluded.updated_at
	`), t.Provider, t.AccessToken, t.AccessExpiry, t.RefreshToken, t.RefreshExpiry, now())
	return err
}
