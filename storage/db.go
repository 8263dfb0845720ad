// Package storage provides SQL-backed implementations of
// repl/storage.Storage: the job/progress registry an operator-facing
// service uses to track named replications across restarts, plus the
// destination dataset Initial Sync and steady-state apply write into.
// Grounded on the teacher's storage/sqlite.go and storage/mysql.go (same
// table-per-concern layout, same NewSQLiteDB/NewMysqlDB constructor
// shape), generalized from the teacher's job-info/progress-only schema
// to also hold cloned documents.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/doriscore/datareplicator/model"
	replstorage "github.com/doriscore/datareplicator/repl/storage"
	"github.com/doriscore/datareplicator/utils"
)

const remoteDBName = "datareplicator"

var (
	ErrJobExists    = replstorage.ErrJobExists
	ErrJobNotExists = replstorage.ErrJobNotExists
)

func encodeDoc(doc model.Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

// scanBodyCol builds Scan args for a "SELECT id, database_name,
// collection_name, body FROM docs" row, keeping only body.
func scanBodyCol(body *string) []interface{} {
	return utils.MakeSingleColScanArgs(3, body, 0)
}

func execDDL(db *sql.DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("run DDL %q: %w", stmt, err)
		}
	}
	return nil
}
