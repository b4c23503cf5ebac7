// Package database opens the SQLite database used by the sqlite state backend
// and applies the embedded schema migrations.
//
//	db, err := database.Open(database.Config{Path: "./data/homedash.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
