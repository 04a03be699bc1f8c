// Command sequel administers SequelDB databases stored in a git repository.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/nickyhof/SequelDB/core"
	"github.com/nickyhof/SequelDB/db"
	"github.com/nickyhof/SequelDB/internal/logging"
	"github.com/nickyhof/SequelDB/op"
	"github.com/nickyhof/SequelDB/ps"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	BaseDir      string `name:"base-dir" env:"SEQUEL_BASE_DIR" help:"Git repository directory; empty keeps everything in memory" type:"path"`
	GitURL       string `name:"git-url" help:"Clone this repository into base-dir on first use"`
	Database     string `short:"d" env:"SEQUEL_DATABASE" default:"main" help:"Database to operate on"`
	Name         string `default:"SequelDB" help:"User name for Git commits"`
	Email        string `default:"cli@sequeldb.local" help:"User email for Git commits"`
	LogLevel     string `name:"log-level" env:"SEQUEL_LOG_LEVEL" default:"warn" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat    string `name:"log-format" env:"SEQUEL_LOG_FORMAT" default:"text" enum:"text,json" help:"Log format"`
	Compress     bool   `help:"Store table blobs xz-compressed"`
	WriteThrough bool   `name:"write-through" help:"Persist index changes as they happen"`

	S3 S3Flags `embed:"" prefix:"s3-"`

	out         io.Writer
	persistence *ps.Persistence
}

type S3Flags struct {
	Region    string `env:"AWS_REGION" default:"us-east-1" help:"S3 region"`
	Endpoint  string `env:"SEQUEL_S3_ENDPOINT" help:"S3-compatible endpoint URL"`
	AccessKey string `name:"access-key" env:"AWS_ACCESS_KEY_ID" help:"S3 access key"`
	SecretKey string `name:"secret-key" env:"AWS_SECRET_ACCESS_KEY" help:"S3 secret key"`
}

// CLI defines the command-line interface for sequel.
type CLI struct {
	Globals

	Tables   TablesCmd   `cmd:"" help:"List tables in the database"`
	Create   CreateCmd   `cmd:"" help:"Create a table"`
	Describe DescribeCmd `cmd:"" help:"Show a table's columns and indexes"`
	Show     ShowCmd     `cmd:"" help:"Print rows, optionally filtered and sorted"`
	Insert   InsertCmd   `cmd:"" help:"Insert a row"`
	Update   UpdateCmd   `cmd:"" help:"Update rows matching a condition"`
	Delete   DeleteCmd   `cmd:"" help:"Delete rows matching a condition"`
	Drop     DropCmd     `cmd:"" help:"Drop a table"`
	Index    IndexCmd    `cmd:"" help:"Build a secondary index on a column"`
	Reindex  ReindexCmd  `cmd:"" help:"Rebuild every index of a table"`
	Verify   VerifyCmd   `cmd:"" help:"Check a table's indexes against its rows"`
	Snapshot SnapshotCmd `cmd:"" help:"Tag the current commit"`
	History  HistoryCmd  `cmd:"" help:"Show recent commits"`
	Branch   BranchCmd   `cmd:"" help:"List, create, switch, merge or delete branches"`
	Export   ExportCmd   `cmd:"" help:"Copy a table to s3://bucket/prefix or a local directory"`
	Push     PushCmd     `cmd:"" help:"Push commits to a remote"`
	Pull     PullCmd     `cmd:"" help:"Pull commits from a remote"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

func (g *Globals) identity() core.Identity {
	return core.Identity{Name: g.Name, Email: g.Email}
}

func (g *Globals) openPersistence() (*ps.Persistence, error) {
	if g.persistence != nil {
		return g.persistence, nil
	}

	var err error
	if g.BaseDir == "" {
		g.persistence, err = ps.NewMemoryPersistence()
	} else {
		var gitURL *string
		if g.GitURL != "" {
			gitURL = &g.GitURL
		}
		g.persistence, err = ps.NewFilePersistence(g.BaseDir, gitURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return g.persistence, nil
}

func (g *Globals) openDatabase() (*op.DatabaseOp, error) {
	persistence, err := g.openPersistence()
	if err != nil {
		return nil, err
	}

	dbOp, err := op.OpenDatabase(g.Database, ps.NewGitStore(persistence, g.identity()))
	if err != nil {
		return nil, err
	}
	dbOp.Compress = g.Compress
	dbOp.WriteThrough = g.WriteThrough
	return dbOp, nil
}

func (g *Globals) openTable(name string) (*op.TableOp, error) {
	dbOp, err := g.openDatabase()
	if err != nil {
		return nil, err
	}
	return dbOp.GetTable(name)
}

// TablesCmd lists tables.
type TablesCmd struct{}

func (c *TablesCmd) Run(g *Globals) error {
	dbOp, err := g.openDatabase()
	if err != nil {
		return err
	}
	names, err := dbOp.TableNames()
	if err != nil {
		return err
	}

	st := db.NewSimpleTable(g.out)
	st.Header([]string{"Table"})
	for _, name := range names {
		st.Row([]string{name})
	}
	return st.Render()
}

// CreateCmd creates a table from name:type[:pk] column specs.
type CreateCmd struct {
	Table   string   `arg:"" help:"Table name"`
	Columns []string `arg:"" help:"Columns as name:type or name:type:pk"`
}

func (c *CreateCmd) Run(g *Globals) error {
	columns, err := parseColumns(c.Columns)
	if err != nil {
		return err
	}

	dbOp, err := g.openDatabase()
	if err != nil {
		return err
	}
	if _, err := dbOp.CreateTable(c.Table, columns); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Created table %s.%s\n", g.Database, c.Table)
	return nil
}

// DescribeCmd prints a table's schema.
type DescribeCmd struct {
	Table string `arg:"" help:"Table name"`
}

func (c *DescribeCmd) Run(g *Globals) error {
	tableOp, err := g.openTable(c.Table)
	if err != nil {
		return err
	}

	st := db.NewSimpleTable(g.out)
	st.Header([]string{"Column", "Type", "Key", "Indexed"})
	for _, col := range tableOp.Table.Columns() {
		key := ""
		if col.PrimaryKey {
			key = "PRIMARY"
		}
		indexed := ""
		if tableOp.Table.HasIndex(col.Name) {
			indexed = "yes"
		}
		st.Row([]string{col.Name, col.Type.String(), key, indexed})
	}
	if err := st.Render(); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "%d row(s), generation %d\n", tableOp.Table.Len(), tableOp.Table.Generation())
	return nil
}

// ShowCmd prints rows.
type ShowCmd struct {
	Table   string   `arg:"" help:"Table name"`
	Where   string   `help:"Filter as '<column> <condition>', e.g. 'age > 30'"`
	SortBy  string   `name:"sort-by" help:"Column to sort by"`
	Order   string   `default:"numeric_ascending" help:"Sort order, e.g. alpha_descending"`
	Columns []string `help:"Columns to show"`
}

func (c *ShowCmd) Run(g *Globals) error {
	tableOp, err := g.openTable(c.Table)
	if err != nil {
		return err
	}

	column, cond, err := parseWhere(c.Where)
	if err != nil {
		return err
	}
	result, err := tableOp.Select(column, cond)
	if err != nil {
		return err
	}

	if c.SortBy != "" {
		order, ok := core.ParseSortCondition(c.Order)
		if !ok {
			return fmt.Errorf("unknown sort order %q", c.Order)
		}
		if err := result.Table.SortRows(order, c.SortBy); err != nil {
			return err
		}
	}
	if len(c.Columns) > 0 {
		if result.Table, err = result.Table.SelectColumns(c.Columns); err != nil {
			return err
		}
	}
	return result.Display(g.out)
}

// InsertCmd inserts one row from column=value pairs.
type InsertCmd struct {
	Table  string   `arg:"" help:"Table name"`
	Values []string `arg:"" help:"Values as column=value"`
}

func (c *InsertCmd) Run(g *Globals) error {
	tableOp, err := g.openTable(c.Table)
	if err != nil {
		return err
	}

	row := make(db.Row, len(c.Values))
	for _, assignment := range c.Values {
		name, value, err := parseAssignment(tableOp.Table, assignment)
		if err != nil {
			return err
		}
		row[name] = value
	}

	return commit(g, tableOp, func() (db.MutationResult, error) {
		return tableOp.Insert(row)
	})
}

// UpdateCmd sets one column on matching rows.
type UpdateCmd struct {
	Table string `arg:"" help:"Table name"`
	Where string `required:"" help:"Filter as '<column> <condition>'"`
	Set   string `required:"" help:"Assignment as column=value"`
}

func (c *UpdateCmd) Run(g *Globals) error {
	tableOp, err := g.openTable(c.Table)
	if err != nil {
		return err
	}

	column, cond, err := parseWhere(c.Where)
	if err != nil {
		return err
	}
	if column == "" {
		return errors.New("update needs a --where filter")
	}
	name, value, err := parseAssignment(tableOp.Table, c.Set)
	if err != nil {
		return err
	}

	return commit(g, tableOp, func() (db.MutationResult, error) {
		return tableOp.Update(column, name, cond, value)
	})
}

// DeleteCmd deletes matching rows.
type DeleteCmd struct {
	Table string `arg:"" help:"Table name"`
	Where string `required:"" help:"Filter as '<column> <condition>'"`
}

func (c *DeleteCmd) Run(g *Globals) error {
	tableOp, err := g.openTable(c.Table)
	if err != nil {
		return err
	}

	column, cond, err := parseWhere(c.Where)
	if err != nil {
		return err
	}
	if column == "" {
		return errors.New("delete needs a --where filter")
	}

	return commit(g, tableOp, func() (db.MutationResult, error) {
		return tableOp.Delete(column, cond)
	})
}

// DropCmd drops a table.
type DropCmd struct {
	Table string `arg:"" help:"Table name"`
}

func (c *DropCmd) Run(g *Globals) error {
	dbOp, err := g.openDatabase()
	if err != nil {
		return err
	}
	if err := dbOp.DropTable(c.Table); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Dropped table %s.%s\n", g.Database, c.Table)
	return nil
}

// IndexCmd indexes a column.
type IndexCmd struct {
	Table  string `arg:"" help:"Table name"`
	Column string `arg:"" help:"Column to index"`
}

func (c *IndexCmd) Run(g *Globals) error {
	tableOp, err := g.openTable(c.Table)
	if err != nil {
		return err
	}
	return commit(g, tableOp, func() (db.MutationResult, error) {
		return tableOp.Index(c.Column)
	})
}

// ReindexCmd rebuilds a table's indexes.
type ReindexCmd struct {
	Table string `arg:"" help:"Table name"`
}

func (c *ReindexCmd) Run(g *Globals) error {
	tableOp, err := g.openTable(c.Table)
	if err != nil {
		return err
	}
	return commit(g, tableOp, tableOp.Reindex)
}

// VerifyCmd checks index consistency.
type VerifyCmd struct {
	Table string `arg:"" help:"Table name"`
}

func (c *VerifyCmd) Run(g *Globals) error {
	tableOp, err := g.openTable(c.Table)
	if err != nil {
		return err
	}
	if err := tableOp.Table.VerifyIndexes(); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "%s: %d index(es) consistent\n", tableOp.Table.Name(), len(tableOp.Table.IndexedColumns()))
	return nil
}

// SnapshotCmd tags HEAD.
type SnapshotCmd struct {
	Name string `arg:"" help:"Snapshot name"`
}

func (c *SnapshotCmd) Run(g *Globals) error {
	persistence, err := g.openPersistence()
	if err != nil {
		return err
	}
	if err := persistence.Snapshot(c.Name, nil); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Created snapshot %s\n", c.Name)
	return nil
}

// HistoryCmd lists commits.
type HistoryCmd struct {
	Limit int `short:"n" default:"10" help:"Number of commits to show"`
}

func (c *HistoryCmd) Run(g *Globals) error {
	persistence, err := g.openPersistence()
	if err != nil {
		return err
	}
	history, err := persistence.History(c.Limit)
	if err != nil {
		return err
	}

	st := db.NewSimpleTable(g.out)
	st.Header([]string{"Commit", "When", "Author", "Message"})
	for _, txn := range history {
		st.Row([]string{txn.Id[:8], txn.When.Format("2006-01-02 15:04:05"), txn.Author, strings.TrimSpace(txn.Message)})
	}
	return st.Render()
}

// BranchCmd groups the branch subcommands.
type BranchCmd struct {
	List   BranchListCmd   `cmd:"" default:"1" help:"List branches"`
	Create BranchCreateCmd `cmd:"" help:"Create a branch at HEAD"`
	Switch BranchSwitchCmd `cmd:"" help:"Check out a branch"`
	Merge  BranchMergeCmd  `cmd:"" help:"Fast-forward the current branch"`
	Delete BranchDeleteCmd `cmd:"" help:"Delete a branch"`
}

type BranchListCmd struct{}

func (c *BranchListCmd) Run(g *Globals) error {
	persistence, err := g.openPersistence()
	if err != nil {
		return err
	}
	branches, err := persistence.Branches()
	if err != nil {
		return err
	}
	current, _ := persistence.CurrentBranch()

	for _, branch := range branches {
		marker := "  "
		if branch == current {
			marker = "* "
		}
		fmt.Fprintf(g.out, "%s%s\n", marker, branch)
	}
	return nil
}

type BranchCreateCmd struct {
	Name string `arg:"" help:"Branch name"`
}

func (c *BranchCreateCmd) Run(g *Globals) error {
	persistence, err := g.openPersistence()
	if err != nil {
		return err
	}
	if err := persistence.Branch(c.Name, nil); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Created branch %s\n", c.Name)
	return nil
}

type BranchSwitchCmd struct {
	Name string `arg:"" help:"Branch name"`
}

func (c *BranchSwitchCmd) Run(g *Globals) error {
	persistence, err := g.openPersistence()
	if err != nil {
		return err
	}
	if err := persistence.Checkout(c.Name); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Switched to branch %s\n", c.Name)
	return nil
}

type BranchMergeCmd struct {
	Source string `arg:"" help:"Branch to fast-forward to"`
}

func (c *BranchMergeCmd) Run(g *Globals) error {
	persistence, err := g.openPersistence()
	if err != nil {
		return err
	}
	txn, err := persistence.FastForward(c.Source)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Merged %s at %s\n", c.Source, txn.Id[:8])
	return nil
}

type BranchDeleteCmd struct {
	Name string `arg:"" help:"Branch name"`
}

func (c *BranchDeleteCmd) Run(g *Globals) error {
	persistence, err := g.openPersistence()
	if err != nil {
		return err
	}
	if err := persistence.DeleteBranch(c.Name); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Deleted branch %s\n", c.Name)
	return nil
}

// ExportCmd copies a table to another store.
type ExportCmd struct {
	Table  string `arg:"" help:"Table name"`
	Target string `arg:"" help:"s3://bucket/prefix or a local directory"`
}

func (c *ExportCmd) Run(g *Globals) error {
	tableOp, err := g.openTable(c.Table)
	if err != nil {
		return err
	}

	var store ps.BlobStore
	if strings.HasPrefix(c.Target, "s3://") {
		store, err = ps.NewS3Store(context.Background(), c.Target, ps.S3Config{
			AccessKey: g.S3.AccessKey,
			SecretKey: g.S3.SecretKey,
			Region:    g.S3.Region,
			Endpoint:  g.S3.Endpoint,
		})
	} else {
		store, err = ps.NewDirStore(c.Target)
	}
	if err != nil {
		return err
	}

	if err := tableOp.CopyTo(store, g.Database); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Exported %s (%d rows) to %s\n", tableOp.Table.Name(), tableOp.Table.Len(), c.Target)
	return nil
}

// RemoteFlags select a remote and its credentials.
type RemoteFlags struct {
	Remote string `default:"origin" help:"Remote name"`
	URL    string `help:"Add the remote with this URL first"`
	Branch string `help:"Branch; defaults to the current one"`
	Token  string `env:"SEQUEL_GIT_TOKEN" help:"Token for HTTPS remotes"`
	SSHKey string `name:"ssh-key" help:"Private key for SSH remotes"`
}

func (f RemoteFlags) auth() *ps.RemoteAuth {
	switch {
	case f.Token != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: f.Token}
	case f.SSHKey != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeSSH, KeyPath: f.SSHKey}
	default:
		return nil
	}
}

func (f RemoteFlags) prepare(g *Globals) (*ps.Persistence, error) {
	persistence, err := g.openPersistence()
	if err != nil {
		return nil, err
	}
	if f.URL != "" {
		if err := persistence.AddRemote(f.Remote, f.URL); err != nil {
			return nil, err
		}
	}
	return persistence, nil
}

type PushCmd struct {
	RemoteFlags
}

func (c *PushCmd) Run(g *Globals) error {
	persistence, err := c.prepare(g)
	if err != nil {
		return err
	}
	if err := persistence.Push(c.Remote, c.Branch, c.auth()); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Pushed to %s\n", c.Remote)
	return nil
}

type PullCmd struct {
	RemoteFlags
}

func (c *PullCmd) Run(g *Globals) error {
	persistence, err := c.prepare(g)
	if err != nil {
		return err
	}
	if err := persistence.Pull(c.Remote, c.Branch, c.auth()); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "Pulled from %s\n", c.Remote)
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Fprintf(g.out, "sequel %s\n", Version)
	return nil
}

// commit runs a mutation, saves the table and reports the result.
func commit(g *Globals, tableOp *op.TableOp, mutate func() (db.MutationResult, error)) error {
	result, err := mutate()
	if err != nil {
		return err
	}
	if result.Transaction, err = tableOp.Commit(); err != nil {
		return err
	}
	return result.Display(g.out)
}

func newParser(cli *CLI, stdout, stderr io.Writer) (*kong.Kong, error) {
	cli.out = stdout
	return kong.New(cli,
		kong.Name("sequel"),
		kong.Description("SequelDB - tables and indexes stored in git"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli, os.Stdout, os.Stderr)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	logging.InitLogger(logging.ParseLevel(cli.LogLevel), logging.ParseFormat(cli.LogFormat))

	err = ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
