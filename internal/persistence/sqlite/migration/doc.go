// Package migration applies versioned schema changes to the SQLite database.
//
// Migrations are SQL files named {version}_{description}.sql (for example
// "001_meetings.sql") read from an fs.FS, normally an embedded directory.
// Applied versions are tracked in the schema_migrations table so each file runs
// once, inside its own transaction.
//
// Example usage:
//
//	migrations, err := migration.Load(files, "migrations")
//	if err != nil {
//		return err
//	}
//	manager := migration.NewManager(migrations, migration.NewSQLiteExecutor(db), logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
