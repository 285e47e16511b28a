package repos

import (
	"github.com/MALKOO0044/shopixo-sub004/internal/domain"

	"github.com/jmoiron/sqlx"
)

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) q(s string) string { return r.db.Rebind(s) }

func (r *UserRepo) ByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.db.Get(&u, r.q(`
	  SELECT id, email, name, password_hash, role
	  FROM users WHERE LOWER(email) = LOWER(?)
	`), email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) BindSession(sid, userID string) error {
	_, err := r.db.Exec(r.q(`
	  INSERT INTO sessions(id, user_id, created_at, last_seen)
	  VALUES(?,?,?,?)
	  ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, last_seen = excluded.last_seen
	`), sid, userID, now(), now())
	return err
}

func (r *UserRepo) SessionUser(sid string) (*domain.User, error) {
	var u domain.User
	err := r.db.Get(&u, r.q(`
	  SELECT u.id, u.email, u.name, u.password_hash, u.role
	  FROM sessions s
	  JOIN users u ON u.id = s.user_id
	  WHERE s.id = ?
	`), sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) SetPasswordHash(userID, hash string) error {
	_, err := r.db.Exec(r.q(`UPDATE users SET password_hash = ? WHERE id = ?`), hash, userID)
	return err
}

func (r *UserRepo) UnbindSession(sid string) error {
	_, err := r.db.Exec(r.q(`UPDATE sessions SET user_id = NULL, last_seen = ? WHERE id = ?`), now(), sid)
	return err
}
