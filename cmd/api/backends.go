package main

import (
	"fmt"
	"strings"

	"github.com/brametal/chapas-backend/internal/lots"
	"github.com/brametal/chapas-backend/internal/production"
	"github.com/brametal/chapas-backend/internal/records"
	"github.com/brametal/chapas-backend/internal/wizard"
	"github.com/brametal/chapas-backend/pkg/config"
	"github.com/brametal/chapas-backend/pkg/db"
	"github.com/brametal/chapas-backend/pkg/logger"
	"github.com/brametal/chapas-backend/pkg/redis"
	"github.com/brametal/chapas-backend/pkg/retry"
)

type backends struct {
	lots     lots.Sequencer
	records  records.Store
	sessions wizard.SessionStore
	saver    production.Saver
}

func needsDB(cfg config.ProductionConfig) bool {
	return isBackend(cfg.LotsBackend, config.BackendSQL) || isBackend(cfg.RecordsBackend, config.BackendSQL)
}

func isBackend(value, want string) bool {
	return strings.EqualFold(strings.TrimSpace(value), want)
}

// buildBackends selects the lot, record and session stores from config. When
// lots and records share the SQL database the save runs in one transaction.
func buildBackends(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, policy retry.Policy) (backends, error) {
	var b backends
	prod := cfg.Production

	switch {
	case isBackend(prod.LotsBackend, config.BackendSQL):
		if dbClient == nil {
			return b, fmt.Errorf("sql lots backend requires a database")
		}
		b.lots = lots.NewSQLSequencer(dbClient.DB())
	case isBackend(prod.LotsBackend, config.BackendRedis):
		if redisClient == nil {
			return b, fmt.Errorf("redis lots backend requires redis")
		}
		b.lots = lots.NewRedisSequencer(redisClient)
	default:
		b.lots = lots.NewMemorySequencer()
	}

	switch {
	case isBackend(prod.RecordsBackend, config.BackendSQL):
		if dbClient == nil {
			return b, fmt.Errorf("sql records backend requires a database")
		}
		b.records = records.NewGormStore(dbClient.DB())
	case isBackend(prod.RecordsBackend, config.BackendWorkbook):
		b.records = records.NewWorkbookStore(prod.WorkbookPath)
	default:
		b.records = records.NewMemoryStore()
	}

	if isBackend(prod.SessionsBackend, config.BackendRedis) {
		if redisClient == nil {
			return b, fmt.Errorf("redis sessions backend requires redis")
		}
		b.sessions = wizard.NewRedisSessions(redisClient, prod.SessionTTL)
	} else {
		b.sessions = wizard.NewMemorySessions()
	}

	if isBackend(prod.LotsBackend, config.BackendSQL) && isBackend(prod.RecordsBackend, config.BackendSQL) {
		saver, err := production.NewTxSaver(dbClient, policy)
		if err != nil {
			return b, err
		}
		b.saver = saver
		return b, nil
	}

	saver, err := production.NewSequentialSaver(production.SequentialSaverParams{
		Lots:           b.lots,
		Records:        b.records,
		Retry:          policy,
		Logger:         logg,
		LotsBackend:    strings.ToLower(prod.LotsBackend),
		RecordsBackend: strings.ToLower(prod.RecordsBackend),
	})
	if err != nil {
		return b, err
	}
	b.saver = saver
	return b, nil
}
