package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/doriscore/datareplicator/model"
	replstorage "github.com/doriscore/datareplicator/repl/storage"
)

// MysqlDB is a repl/storage.Storage backed by a shared MySQL instance,
// for deployments that run several replicator processes against a
// common job registry.
type MysqlDB struct {
	db *sql.DB
}

func NewMysqlDB(host string, port int, user string, password string) (replstorage.Storage, error) {
	dbForDDL, err := sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/", user, password, host, port))
	if err != nil {
		return nil, errors.Wrapf(err, "open mysql %s@tcp(%s:%d) failed", user, host, port)
	}
	if _, err := dbForDDL.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", remoteDBName)); err != nil {
		dbForDDL.Close()
		return nil, errors.Wrapf(err, "create database %s failed", remoteDBName)
	}
	dbForDDL.Close()

	db, err := sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", user, password, host, port, remoteDBName))
	if err != nil {
		return nil, errors.Wrapf(err, "open mysql in db %s@tcp(%s:%d)/%s failed", user, host, port, remoteDBName)
	}

	if err := execDDL(db, []string{
		"CREATE TABLE IF NOT EXISTS info (job_name VARCHAR(128) PRIMARY KEY, job_info VARCHAR(4096))",
		"CREATE TABLE IF NOT EXISTS progress (job_name VARCHAR(128) PRIMARY KEY, progress VARCHAR(4096))",
		"CREATE TABLE IF NOT EXISTS docs (id BIGINT AUTO_INCREMENT PRIMARY KEY, database_name VARCHAR(128), collection_name VARCHAR(128), body MEDIUMTEXT, INDEX docs_ns (database_name, collection_name))",
	}); err != nil {
		return nil, err
	}

	return &MysqlDB{db: db}, nil
}

func (s *MysqlDB) AddJob(jobName string, jobInfo string) error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM info WHERE job_name = ?", jobName).Scan(&count); err != nil {
		return errors.Wrapf(err, "query job name %s failed", jobName)
	}
	if count > 0 {
		return ErrJobExists
	}
	if _, err := s.db.Exec("INSERT INTO info (job_name, job_info) VALUES (?, ?)", jobName, jobInfo); err != nil {
		return errors.Wrapf(err, "insert job name %s failed", jobName)
	}
	return nil
}

func (s *MysqlDB) UpdateJob(jobName string, jobInfo string) error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM info WHERE job_name = ?", jobName).Scan(&count); err != nil {
		return errors.Wrapf(err, "query job name %s failed", jobName)
	}
	if count == 0 {
		return ErrJobNotExists
	}
	if _, err := s.db.Exec("UPDATE info SET job_info = ? WHERE job_name = ?", jobInfo, jobName); err != nil {
		return errors.Wrapf(err, "update job name %s failed", jobName)
	}
	return nil
}

func (s *MysqlDB) IsJobExist(jobName string) (bool, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM info WHERE job_name = ?", jobName).Scan(&count); err != nil {
		return false, errors.Wrapf(err, "query job name %s failed", jobName)
	}
	return count > 0, nil
}

func (s *MysqlDB) GetAllJobs() (map[string]string, error) {
	rows, err := s.db.Query("SELECT job_name, job_info FROM info")
	if err != nil {
		return nil, errors.Wrap(err, "get all jobs failed")
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var jobName, jobInfo string
		if err := rows.Scan(&jobName, &jobInfo); err != nil {
			return nil, errors.Wrap(err, "scan job row failed")
		}
		result[jobName] = jobInfo
	}
	return result, rows.Err()
}

func (s *MysqlDB) UpdateProgress(jobName string, progress string) error {
	updateSQL := "INSERT INTO progress (job_name, progress) VALUES (?, ?) ON DUPLICATE KEY UPDATE progress = ?"
	if _, err := s.db.Exec(updateSQL, jobName, progress, progress); err != nil {
		return errors.Wrapf(err, "update progress failed, name: %s", jobName)
	}
	return nil
}

func (s *MysqlDB) IsProgressExist(jobName string) (bool, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM progress WHERE job_name = ?", jobName).Scan(&count); err != nil {
		return false, errors.Wrapf(err, "query progress %s failed", jobName)
	}
	return count > 0, nil
}

func (s *MysqlDB) GetProgress(jobName string) (string, error) {
	var progress string
	err := s.db.QueryRow("SELECT progress FROM progress WHERE job_name = ?", jobName).Scan(&progress)
	if err == sql.ErrNoRows {
		return "", ErrJobNotExists
	}
	if err != nil {
		return "", errors.Wrapf(err, "get progress %s failed", jobName)
	}
	return progress, nil
}

func (s *MysqlDB) DropUserDatabases(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM docs"); err != nil {
		return errors.Wrap(err, "drop user databases failed")
	}
	return nil
}

func (s *MysqlDB) PutCollectionDoc(ctx context.Context, ns model.Namespace, doc model.Document) error {
	body, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO docs (database_name, collection_name, body) VALUES (?, ?, ?)",
		ns.Database, ns.Collection, body); err != nil {
		return errors.Wrapf(err, "insert doc into %s failed", ns)
	}
	return nil
}

func (s *MysqlDB) InsertMissingDoc(ctx context.Context, ns model.Namespace, doc model.Document) error {
	return s.PutCollectionDoc(ctx, ns, doc)
}

// ListNamespaceDocs mirrors SQLiteDB.ListNamespaceDocs for the HTTP
// status surface's debug endpoint.
func (s *MysqlDB) ListNamespaceDocs(ctx context.Context, ns model.Namespace) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, database_name, collection_name, body FROM docs WHERE database_name = ? AND collection_name = ? ORDER BY id",
		ns.Database, ns.Collection)
	if err != nil {
		return nil, errors.Wrapf(err, "list docs for %s failed", ns)
	}
	defer rows.Close()

	var bodies []string
	for rows.Next() {
		var body string
		if err := rows.Scan(scanBodyCol(&body)...); err != nil {
			return nil, errors.Wrap(err, "scan doc row failed")
		}
		bodies = append(bodies, body)
	}
	return bodies, rows.Err()
}
