package insight

import (
	"database/sql"

	"github.com/HerbHall/cycleinsight/pkg/plugin"
)

// migrations returns the Insight module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create persistence state and analysis log tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS insight_persistence (
						user_id           TEXT PRIMARY KEY,
						consecutive_count INTEGER NOT NULL DEFAULT 0,
						last_signal       TEXT NOT NULL DEFAULT 'none',
						updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,

					`CREATE TABLE IF NOT EXISTS insight_analyses (
						id             TEXT PRIMARY KEY,
						user_id        TEXT NOT NULL,
						cycle_count    INTEGER NOT NULL,
						confidence     TEXT NOT NULL,
						deviation_type TEXT NOT NULL,
						result         TEXT NOT NULL,
						analyzed_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_insight_analyses_user ON insight_analyses(user_id, analyzed_at)`,
					`CREATE INDEX IF NOT EXISTS idx_insight_analyses_analyzed ON insight_analyses(analyzed_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
