package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartTerminalRequestCleaner purges long-terminal recovery requests with
// interval. This is retention housekeeping only; timelock and expiry
// semantics are evaluated lazily by the service layer, never here.
func StartTerminalRequestCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM recovery_requests
                     WHERE state <> 'initiated'
                       AND created_at < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to purge terminal recovery requests", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("purged terminal recovery requests", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
