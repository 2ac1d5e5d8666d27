package sqlite

const (
	insertRunQuery = `
        INSERT INTO runs (
            id, video_id, source, method, status, error, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `

	finishRunQuery = `
        UPDATE runs SET
            status = ?,
            error = ?,
            finished_at = ?
        WHERE id = ?
    `

	recentRunsQuery = `
        SELECT id, video_id, source, method, status, error, started_at, finished_at
        FROM runs
        ORDER BY started_at DESC
        LIMIT ?
    `

	latestRunQuery = `
        SELECT id, video_id, source, method, status, error, started_at, finished_at
        FROM runs
        WHERE video_id = ?
        ORDER BY started_at DESC
        LIMIT 1
    `
)
