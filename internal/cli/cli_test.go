package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/eventq/pkg/eventq"
	"github.com/marketpulse/eventq/pkg/eventq/store"
)

// runCommand executes the root command with args and returns its stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// seedQueue populates a SQLite database file with a small backlog.
func seedQueue(t *testing.T, path string) {
	t.Helper()
	st, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer st.Close()

	producer := eventq.NewProducer(st, eventq.DefaultRegistry())
	_, err = producer.Emit(context.Background(), eventq.EmitRequest{
		EventType:     "prediction_created",
		Payload:       store.Document{"prediction_id": 1},
		SourceService: "test",
	})
	require.NoError(t, err)
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := map[string]bool{}
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"queue-stats", "list", "retry-dead-letter", "cleanup", "work"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestQueueStats(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	seedQueue(t, dbPath)

	out, err := runCommand(t, "--db", dbPath, "queue-stats")
	require.NoError(t, err)
	assert.Contains(t, out, "CONSUMER GROUP")
	assert.Contains(t, out, "market_data")
	assert.Contains(t, out, "notifications")
	assert.Contains(t, out, "pending")
}

func TestList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	seedQueue(t, dbPath)

	out, err := runCommand(t, "--db", dbPath, "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "prediction_created")

	_, err = runCommand(t, "--db", dbPath, "list", "--status", "bogus")
	assert.Error(t, err)
}

func TestRetryDeadLetter_EmptyQueue(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	seedQueue(t, dbPath)

	out, err := runCommand(t, "--db", dbPath, "retry-dead-letter")
	require.NoError(t, err)
	assert.Contains(t, out, "re-queued 0 dead-letter events")
}

func TestCleanup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	seedQueue(t, dbPath)

	out, err := runCommand(t, "--db", dbPath, "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "pruned 0 completed and 0 dead-letter events")
}

func TestWork_RequiresConsumerGroup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")

	_, err := runCommand(t, "--db", dbPath, "work", "--drain")
	assert.Error(t, err)
}

func TestWork_DrainEmptyQueue(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	seedQueue(t, dbPath)

	out, err := runCommand(t, "--db", dbPath, "work",
		"--consumer-group", "analysis", "--drain")
	require.NoError(t, err)
	assert.Contains(t, out, "processed 0 events")
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "eventq.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"store:\n  driver: sqlite\n  path: /from/file.db\n"), 0o644))

	opts := &rootOptions{configPath: configPath}
	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/from/file.db", cfg.Store.Path)

	// --db overrides the file.
	opts.dbPath = "/from/flag.db"
	cfg, err = opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/from/flag.db", cfg.Store.Path)

	// --db-url switches the driver and overrides --db.
	opts.dbURL = "postgres://localhost/eventq"
	cfg, err = opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/eventq", cfg.Store.URL)
}
