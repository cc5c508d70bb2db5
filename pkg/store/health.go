package store

import "context"

// Ping verifies database connectivity, used by readiness probes.
func (s *GORMStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.OpTimeout)
	defer cancel()

	return sqlDB.PingContext(ctx)
}
