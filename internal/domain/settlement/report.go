package settlement

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

// SummaryRow is one method/outcome bucket of the daily till report.
type SummaryRow struct {
	Method   MethodKind `db:"method_kind" json:"method"`
	Outcome  Outcome    `db:"outcome" json:"outcome"`
	Attempts int64      `db:"attempts" json:"attempts"`
	Amount   int64      `db:"amount" json:"amount"`
}

// Reports runs read-only aggregate queries for the front desk close-out.
type Reports struct {
	db *sqlx.DB
}

// NewReports shares gorm's connection pool.
func NewReports(db *gorm.DB) (*Reports, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("reports: %w", err)
	}
	return &Reports{db: sqlx.NewDb(sqlDB, db.Dialector.Name())}, nil
}

const dailySummaryQuery = `
	SELECT method_kind, outcome, COUNT(*) AS attempts, COALESCE(SUM(total_amount), 0) AS amount
	FROM settlement_batches
	WHERE course_id = ? AND play_date = ?
	GROUP BY method_kind, outcome
	ORDER BY method_kind, outcome
`

// DailySummary totals batches for the course and date by method and outcome.
func (r *Reports) DailySummary(ctx context.Context, courseID int64, date string) ([]SummaryRow, error) {
	rows := []SummaryRow{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(dailySummaryQuery), courseID, date); err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}
	return rows, nil
}
