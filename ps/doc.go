// Package ps provides the blob storage layer for SequelDB.
//
// Tables and their secondary indexes are persisted as blobs through the
// BlobStore interface. Three backends are provided.
//
// # Git
//
// GitStore writes every blob as a git commit using go-git's plumbing API,
// giving full history, snapshots, branches and remotes:
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := ps.NewGitStore(persistence, core.Identity{Name: "me", Email: "me@example.com"})
//
// NewMemoryPersistence gives an in-memory repository for tests. PutAll
// batches several blobs into one commit through TransactionBuilder.
//
// # Filesystem
//
// FileStore keeps blobs as files on a billy filesystem (osfs or memfs):
//
//	store, err := ps.NewDirStore("/path/to/data")
//
// # S3
//
//	store, err := ps.NewS3Store(ctx, "s3://bucket/prefix", ps.S3Config{Region: "eu-west-1"})
//
// # Layout
//
// A table named "my table" in database dir "shop" is stored at
// shop/MY_TABLE.table, and its index on column "id" at
// shop/MY_TABLE.index.id.
package ps
