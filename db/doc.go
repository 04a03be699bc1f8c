// Package db implements SequelDB tables: typed rows with primary key
// enforcement, secondary indexes, selection, sorting and sort-merge joins.
//
// # Tables
//
//	people, err := db.New("people", []core.Column{
//	    {Name: "id", Type: core.NumberType, PrimaryKey: true},
//	    {Name: "name", Type: core.StringType},
//	    {Name: "dept", Type: core.StringType},
//	})
//	err = people.InsertRow(db.Row{"id": core.Number(1), "name": core.String("Ann")})
//
// A table declared without a primary key gets a synthetic Number key
// column named tuple_id.
//
// # Indexes
//
// Primary key columns are always indexed. IndexColumn adds an index on any
// other column. SelectRows, EditRows and DeleteRows answer their
// condition from the index when one exists and falls back to a scan for
// conditions the index cannot answer (!= and not null).
//
// # Persistence
//
//	err = db.Save(store, "shop", people)
//	people, err = db.Load(store, "shop/PEOPLE.table")
//
// Each index blob records the table generation it was written at; Load
// refuses an index that does not match its table.
package db
