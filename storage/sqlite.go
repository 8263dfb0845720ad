package storage

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/doriscore/datareplicator/model"
	replstorage "github.com/doriscore/datareplicator/repl/storage"
)

// SQLiteDB is a repl/storage.Storage backed by a single sqlite3 file; it
// is the default persistence for a standalone replicator process.
type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(dbPath string) (replstorage.Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := execDDL(db, []string{
		"CREATE TABLE IF NOT EXISTS info (job_name TEXT PRIMARY KEY, job_info TEXT)",
		"CREATE TABLE IF NOT EXISTS progress (job_name TEXT PRIMARY KEY, progress TEXT)",
		"CREATE TABLE IF NOT EXISTS docs (id INTEGER PRIMARY KEY AUTOINCREMENT, database_name TEXT, collection_name TEXT, body TEXT)",
		"CREATE INDEX IF NOT EXISTS docs_ns ON docs (database_name, collection_name)",
	}); err != nil {
		return nil, err
	}

	return &SQLiteDB{db: db}, nil
}

func (s *SQLiteDB) AddJob(jobName string, jobInfo string) error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM info WHERE job_name = ?", jobName).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return ErrJobExists
	}
	_, err := s.db.Exec("INSERT INTO info (job_name, job_info) VALUES (?, ?)", jobName, jobInfo)
	return err
}

func (s *SQLiteDB) UpdateJob(jobName string, jobInfo string) error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM info WHERE job_name = ?", jobName).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return ErrJobNotExists
	}
	_, err := s.db.Exec("UPDATE info SET job_info = ? WHERE job_name = ?", jobInfo, jobName)
	return err
}

func (s *SQLiteDB) IsJobExist(jobName string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM info WHERE job_name = ?", jobName).Scan(&count)
	return count > 0, err
}

func (s *SQLiteDB) GetAllJobs() (map[string]string, error) {
	rows, err := s.db.Query("SELECT job_name, job_info FROM info")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var jobName, jobInfo string
		if err := rows.Scan(&jobName, &jobInfo); err != nil {
			return nil, err
		}
		result[jobName] = jobInfo
	}
	return result, rows.Err()
}

func (s *SQLiteDB) UpdateProgress(jobName string, progress string) error {
	if exists, err := s.IsProgressExist(jobName); err != nil {
		return err
	} else if exists {
		_, err := s.db.Exec("UPDATE progress SET progress = ? WHERE job_name = ?", progress, jobName)
		return err
	}
	_, err := s.db.Exec("INSERT INTO progress (job_name, progress) VALUES (?, ?)", jobName, progress)
	return err
}

func (s *SQLiteDB) IsProgressExist(jobName string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM progress WHERE job_name = ?", jobName).Scan(&count)
	return count > 0, err
}

func (s *SQLiteDB) GetProgress(jobName string) (string, error) {
	var progress string
	err := s.db.QueryRow("SELECT progress FROM progress WHERE job_name = ?", jobName).Scan(&progress)
	if err == sql.ErrNoRows {
		return "", ErrJobNotExists
	}
	return progress, err
}

func (s *SQLiteDB) DropUserDatabases(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM docs")
	return err
}

func (s *SQLiteDB) PutCollectionDoc(ctx context.Context, ns model.Namespace, doc model.Document) error {
	body, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO docs (database_name, collection_name, body) VALUES (?, ?, ?)",
		ns.Database, ns.Collection, body)
	return err
}

func (s *SQLiteDB) InsertMissingDoc(ctx context.Context, ns model.Namespace, doc model.Document) error {
	return s.PutCollectionDoc(ctx, ns, doc)
}

// ListNamespaceDocs returns every document body stored for ns, for the
// HTTP status surface's debug endpoint. database_name/collection_name are
// scanned but discarded via utils.MakeSingleColScanArgs since the caller
// already knows ns; id is discarded the same way.
func (s *SQLiteDB) ListNamespaceDocs(ctx context.Context, ns model.Namespace) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, database_name, collection_name, body FROM docs WHERE database_name = ? AND collection_name = ? ORDER BY id",
		ns.Database, ns.Collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bodies []string
	for rows.Next() {
		var body string
		if err := rows.Scan(scanBodyCol(&body)...); err != nil {
			return nil, err
		}
		bodies = append(bodies, body)
	}
	return bodies, rows.Err()
}
