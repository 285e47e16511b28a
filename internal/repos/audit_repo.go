package repos

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AuditRepo persists raw supplier payloads and admin audit entries. All
// writes here are best-effort from the callers' point of view: audit
// failure must never fail the operation being audited.
type AuditRepo struct{ db *sqlx.DB }

func NewAuditRepo(db *sqlx.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) q(s string) string { return r.db.Rebind(s) }

// SaveRawPayload stores the original supplier item JSON for debugging.
func (r *AuditRepo) SaveRawPayload(cjProductID string, payload []byte) error {
	_, err := r.db.Exec(r.q(`
	  INSERT INTO cj_raw_payloads(id, cj_product_id, payload_json, created_at)
	  VALUES(?,?,?,?)
	`), uuid.NewString(), cjProductID, string(payload), now())
	return err
}

// Record writes an admin audit entry.
func (r *AuditRepo) Record(actor, action string, detail map[string]any) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		raw = []byte(`{}`)
	}
	_, err = r.db.Exec(r.q(`
	  INSERT INTO audit_logs(id, actor, action, detail_json, created_at)
	  VALUES(?,?,?,?,?)
	`), uuid.NewString(), actor, action, string(raw), now())
	return err
}
