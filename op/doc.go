// Package op provides high-level operations for working with SequelDB databases and tables.
//
// The op package sits between the table engine (db/) and the storage layer (ps/),
// binding live tables to the blob store they are saved in.
//
// # DatabaseOp
//
// A database is a directory of table and index blobs plus a marker blob:
//
//	dbOp, err := op.OpenDatabase("shop", store)
//	tables, _ := dbOp.TableNames()            // List stored tables
//	users, err := dbOp.CreateTable("users", columns)
//	users, err = dbOp.GetTable("users")       // Load table and indexes
//	dbOp.DropTable("users")
//
// # TableOp
//
// TableOp wraps a *db.Table and saves it back on Commit:
//
//	users.Insert(db.Row{"id": core.Number(1), "name": core.String("Alice")})
//	users.Update("id", "name", core.Equal(core.Number(1)), core.String("Alicia"))
//	users.Delete("age", core.IsNull())
//	result, _ := users.Select("age", core.GreaterThan(core.Number(30)))
//	txn, err := users.Commit()
//
// With AutoCommit set on the DatabaseOp every mutation commits by itself.
//
// # Architecture
//
// The layering is:
//
//	CLI (cmd/sequel)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Tables (db/) + Indexes (index/)
//	     ↓
//	Blob stores (ps/): git, filesystem, S3
package op
