package domain

// Job kinds.
const (
	JobKindFinder  = "finder"
	JobKindScanner = "scanner"
)

// Job statuses: pending -> running -> success | failure | cancelled.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobSuccess   = "success"
	JobFailure   = "failure"
	JobCancelled = "cancelled"
)

func TerminalJobStatus(s string) bool {
	return s == JobSuccess || s == JobFailure || s == JobCancelled
}

// Job is a persisted background task. There is no in-process scheduler:
// progress happens only while an external caller invokes the step endpoint,
// one page at a time, resuming from the persisted cursor.
type Job struct {
	ID         string `db:"id" json:"id"`
	Kind       string `db:"kind" json:"kind"`
	Status     string `db:"status" json:"status"`
	ParamsJSON string `db:"params_json" json:"-"`
	CursorJSON string `db:"cursor_json" json:"-"`
	ResultJSON string `db:"result_json" json:"-"`
	Error      string `db:"error" json:"error,omitempty"`
	Version    int    `db:"version" json:"-"`
	CreatedAt  string `db:"created_at" json:"createdAt"`
	UpdatedAt  string `db:"updated_at" json:"updatedAt,omitempty"`
}

// FinderParams configures a product discovery job.
type FinderParams struct {
	Keywords           []string `json:"keywords"`
	TargetQuantity     int      `json:"targetQuantity"`
	PageSize           int      `json:"pageSize"`
	MaxPagesPerKeyword int      `json:"maxPagesPerKeyword"`
	MinPrice           float64  `json:"minPrice,omitempty"`
	MaxPrice           float64  `json:"maxPrice,omitempty"`
}

// FinderCursor is the resume point of a discovery job: which keyword,
// which page, and how many candidates have been collected so far.
type FinderCursor struct {
	KeywordIndex int `json:"keywordIndex"`
	Page         int `json:"page"`
	Collected    int `json:"collected"`
}

// JobCandidate is one discovered supplier product, staged for review.
type JobCandidate struct {
	JobID       string  `db:"job_id" json:"jobId"`
	CJProductID string  `db:"cj_product_id" json:"cjProductId"`
	Title       string  `db:"title" json:"title"`
	Price       float64 `db:"price" json:"price"`
	ImageURL    string  `db:"image_url" json:"imageUrl,omitempty"`
	CreatedAt   string  `db:"created_at" json:"createdAt"`
}
