package server

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/cznic/ql/driver"
)

// This file implements the validation history database using the QL
// embedded database. It is intended to be used in development and for
// small single-node installs.

type qlDB struct {
	db *sql.DB
}

var _ ValidationDB = &qlDB{}

const qlValidationInit = `
	CREATE TABLE IF NOT EXISTS validation (
		bag string,
		run_time time,
		status string,
		notes string
	);
	CREATE INDEX IF NOT EXISTS validationbag ON validation (bag);
	CREATE INDEX IF NOT EXISTS validationtime ON validation (run_time);
`

// NewQlDB makes a QL validation database. filename is the name of the file
// to save the database to. The filename "memory" means to keep everything in
// memory.
func NewQlDB(filename string) *qlDB {
	var db *sql.DB
	var err error
	if filename == "memory" {
		db, err = sql.Open("ql-mem", "mem.db")
	} else {
		db, err = sql.Open("ql", filename)
	}
	if err == nil {
		_, err = performExec(db, qlValidationInit)
	}
	if err != nil {
		log.Printf("Open QL: %s", err.Error())
		return nil
	}
	return &qlDB{db: db}
}

func (q *qlDB) Record(bag string, status string, notes string) error {
	const query = `INSERT INTO validation VALUES (?1,?2,?3,?4)`

	_, err := performExec(q.db, query, bag, time.Now(), status, notes)
	return err
}

func (q *qlDB) History(bag string) ([]ValidationRun, error) {
	const query = `
		SELECT run_time, status, notes
		FROM validation
		WHERE bag == ?1
		ORDER BY run_time DESC`

	rows, err := q.db.Query(query, bag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []ValidationRun
	for rows.Next() {
		run := ValidationRun{Bag: bag}
		err = rows.Scan(&run.When, &run.Status, &run.Notes)
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

func performExec(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	var result sql.Result
	result, err = tx.Exec(query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	err = tx.Commit()
	return result, err
}
