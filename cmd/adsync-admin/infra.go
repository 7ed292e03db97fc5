package main

import (
	"errors"
	"fmt"

	"github.com/target/adsync/internal/bootstrap"
)

// serviceSession holds the connections behind a one-shot admin command.
type serviceSession struct {
	Services bootstrap.ServiceContainer
	closers  []func() error
}

// Close releases every connection, last opened first.
func (s *serviceSession) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openServices connects Postgres and, when configured, Redis, then builds the service
// container the same way the long-running binary does.
func openServices(cmdCtx *commandContext) (*serviceSession, error) {
	cfg := &cmdCtx.Config
	dbCfg := bootstrap.DatabaseConfig{
		DBConfig:    cfg.Postgres,
		RedisConfig: cfg.Redis,
		Logger:      cmdCtx.Logger,
	}

	session := &serviceSession{}

	db, err := bootstrap.ConnectDB(cmdCtx.Ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	session.closers = append(session.closers, db.Close)

	redisClient, err := bootstrap.ConnectRedis(cmdCtx.Ctx, dbCfg)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("connect redis: %w", err), session.Close())
	}
	if redisClient != nil {
		session.closers = append(session.closers, redisClient.Close)
	}

	services, err := bootstrap.NewServices(cmdCtx.Ctx, &bootstrap.ServiceDeps{
		Config:      cfg,
		DB:          db,
		RedisClient: redisClient,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("build services: %w", err), session.Close())
	}
	session.closers = append(session.closers, services.Observability.Close)
	session.Services = services

	return session, nil
}
