package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/sirupsen/logrus"

	"github.com/jmartynas/socials/internal/config"
	"github.com/jmartynas/socials/internal/errs"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to the primary and every configured replica. Reads go to
// the replicas, writes and transactions to the primary.
func Open(cfg config.MySQLConfig, log logrus.FieldLogger) (dbresolver.DB, error) {
	dsn := cfg.DSN()
	if dsn == "" {
		return nil, errs.ErrDSNNotConfigured
	}

	primary, err := openOne(cfg, dsn)
	if err != nil {
		return nil, fmt.Errorf("open primary: %w", err)
	}
	conns := []dbresolver.OptionFunc{
		dbresolver.WithPrimaryDBs(primary),
	}

	for i, replicaDSN := range cfg.Replicas {
		replica, err := openOne(cfg, replicaDSN)
		if err != nil {
			_ = primary.Close()
			return nil, fmt.Errorf("open replica %d: %w", i, err)
		}
		conns = append(conns, dbresolver.WithReplicaDBs(replica))
	}
	log.WithField("replicas", len(cfg.Replicas)).Debug("mysql pool configured")

	return dbresolver.New(conns...), nil
}

// Primary is the connection migrations run on.
func Primary(dbc dbresolver.DB) *sql.DB {
	return dbc.PrimaryDBs()[0]
}

func openOne(cfg config.MySQLConfig, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	db.SetMaxIdleConns(maxIdle)
	connLife := time.Duration(cfg.ConnMaxLifetimeSec) * time.Second
	if connLife <= 0 {
		connLife = 5 * time.Minute
	}
	db.SetConnMaxLifetime(connLife)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return db, nil
}
