package snapshots

import (
	"github.com/pnode-analytics/pnodelogger/database"
	"github.com/pnode-analytics/pnodelogger/database/models"
)

// GetVersionHistory lists the versions a node reported, newest first, one
// row per change.
func (s *Snapshots) GetVersionHistory(pubkey string) ([]models.NodeVersion, error) {

	var rows []models.NodeVersion

	SQL := `
		SELECT "pubkey", "version", "created_at"
		FROM (
			SELECT
				"pubkey", "version", "created_at",
				LAG("version") OVER (ORDER BY "created_at") AS "previous"
			FROM "node_snapshots"
			WHERE
				"pubkey" = ?
				AND "version" != ''
				AND "deleted_at" IS NULL
		) AS "history"
		WHERE "previous" IS DISTINCT FROM "version"
		ORDER BY
			"created_at" DESC`
	if err := database.Query(s.db, SQL, &rows, pubkey); err != nil {
		return rows, err
	}
	return rows, nil

}
