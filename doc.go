// Package SequelDB provides an embedded relational table engine whose
// tables and indexes are stored as blobs in Git.
//
// Every commit of a table is a Git commit, which gives version control,
// history and point-in-time restore for free. Tables can also be kept on a
// plain filesystem or exported to S3.
//
// # Quick Start
//
// Create an in-memory database:
//
//	persistence, _ := ps.NewMemoryPersistence()
//	instance := SequelDB.Open(persistence)
//	shop, _ := instance.Database("shop", core.Identity{Name: "App", Email: "app@example.com"})
//
//	users, _ := shop.CreateTable("users", []core.Column{
//	    {Name: "id", Type: core.NumberType, PrimaryKey: true},
//	    {Name: "name", Type: core.StringType},
//	})
//	users.Insert(db.Row{"id": core.Number(1), "name": core.String("Alice")})
//	users.Commit()
//
//	result, _ := users.Select("name", core.Equal(core.String("Alice")))
//	result.Display(os.Stdout)
//
// # Supported Operations
//
// SequelDB supports:
//   - typed columns (String, Number, Date, Url, Boolean) with Null values
//   - primary keys, or a synthetic tuple_id when none is declared
//   - insert, edit, delete rows; delete and rename columns
//   - secondary indexes used for equality and range filters
//   - stable sorting
//   - inner, left outer and cartesian joins
//   - snapshots, history and restore on Git-backed stores
package SequelDB
