// Package pgenv manages embedded PostgreSQL servers for tests and local
// tooling. It starts a real postgres process from an existing installation,
// waits until it accepts connections, and exposes the companion command-line
// utilities (pg_dump, pg_dumpall, pg_restore, pg_basebackup, pg_rewind,
// psql, pg_isready) behind typed configurations with captured output.
//
// A minimal session:
//
//	inst, err := pgenv.New(pgenv.DefaultSettings())
//	if err != nil {
//		return err
//	}
//	defer inst.Cleanup()
//
//	ctx := context.Background()
//	if err := inst.Start(ctx); err != nil {
//		return err
//	}
//	defer inst.Stop(ctx)
//
//	if err := inst.CreateDatabase(ctx, "app"); err != nil {
//		return err
//	}
//	res, err := inst.ExecuteSQLJSON(ctx, "SELECT 1 AS one", "app")
//
// Settings.Port of 0 selects a free port automatically; the bound port is
// visible through ConnectionInfo. Binaries are resolved in
// Settings.InstallationDir's bin directory, or on PATH when unset; pgenv
// never downloads PostgreSQL.
//
// Instances register themselves in a process-wide registry drained on
// SIGINT/SIGTERM, so interrupted test runs do not leak servers or
// temporary data directories. Cleanup is idempotent.
package pgenv
