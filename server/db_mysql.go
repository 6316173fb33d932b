package server

import (
	"database/sql"
	"log"
	"time"

	"github.com/BurntSushi/migration"
	_ "github.com/go-sql-driver/mysql"
)

// This file implements the validation history database using MySQL as the
// backing store.

type msqlDB struct {
	db *sql.DB
}

var _ ValidationDB = &msqlDB{}

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var mysqlMigrations = []migration.Migrator{
	mysqlschema1,
}

// Adapt the schema versioning for MySQL

var mysqlVersioning = dbVersion{
	GetSQL:    `SELECT max(version) FROM migration_version`,
	SetSQL:    `INSERT INTO migration_version (version, applied) VALUES (?, now())`,
	CreateSQL: `CREATE TABLE migration_version (version INTEGER, applied datetime)`,
}

// NewMysqlDB connects to a MySQL database and returns a ValidationDB backed
// by it.
func NewMysqlDB(dial string) (*msqlDB, error) {
	db, err := migration.OpenWith(
		"mysql",
		dial,
		mysqlMigrations,
		mysqlVersioning.Get,
		mysqlVersioning.Set)
	if err != nil {
		log.Printf("Open Mysql: %s", err.Error())
		return nil, err
	}
	return &msqlDB{db: db}, nil
}

func (ms *msqlDB) Record(bag string, status string, notes string) error {
	const query = `INSERT INTO validation (bag, run_time, status, notes) VALUES (?, ?, ?, ?)`

	_, err := ms.db.Exec(query, bag, time.Now(), status, notes)
	return err
}

func (ms *msqlDB) History(bag string) ([]ValidationRun, error) {
	const query = `
		SELECT run_time, status, notes
		FROM validation
		WHERE bag = ?
		ORDER BY run_time DESC`

	rows, err := ms.db.Query(query, bag)
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

func mysqlschema1(tx migration.LimitedTx) error {
	var s = []string{
		`CREATE TABLE IF NOT EXISTS validation (
			id int PRIMARY KEY AUTO_INCREMENT,
			bag varchar(255),
			run_time datetime,
			status varchar(32),
			notes text)`,
		`CREATE INDEX i_validation_bag ON validation (bag)`,
		`CREATE INDEX i_validation_time ON validation (run_time)`,
	}

	return execlist(tx, s)
}

// execlist exec's each item in the list, return if there is an error.
// Used to work around mysql driver not handling compound exec statements.
func execlist(tx migration.LimitedTx, stms []string) error {
	var err error
	for _, s := range stms {
		_, err = tx.Exec(s)
		if err != nil {
			break
		}
	}
	return err
}
