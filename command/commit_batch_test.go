package command

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-aidimport/importer"
	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/goliatone/go-aidimport/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newCommitCommand(t *testing.T, stores types.Stores) *CommitBatchCommand {
	t.Helper()
	imp, err := importer.New(importer.Config{Stores: stores})
	require.NoError(t, err)
	cmd, err := NewCommitBatchCommand(CommitBatchCommandConfig{Importer: imp})
	require.NoError(t, err)
	return cmd
}

func readySession(t *testing.T) *session.Session {
	t.Helper()
	cmd := newImportCommand(t, nil)
	var sess *session.Session
	err := cmd.Execute(context.Background(), ImportDocumentInput{
		Reader:       strings.NewReader(cleanDocument),
		DocumentName: "edu.xml",
		Result:       &sess,
	})
	require.NoError(t, err)
	require.Equal(t, types.SessionReady, sess.State())
	return sess
}

func TestCommitBatchCommand_RequiresSession(t *testing.T) {
	cmd := newCommitCommand(t, newFakeStores())

	err := cmd.Execute(context.Background(), CommitBatchInput{
		Result: &types.ImportBatchResult{},
	})

	require.ErrorIs(t, err, ErrSessionRequired)
}

func TestCommitBatchCommand_RequiresResult(t *testing.T) {
	cmd := newCommitCommand(t, newFakeStores())

	err := cmd.Execute(context.Background(), CommitBatchInput{
		Session: readySession(t),
	})

	require.ErrorIs(t, err, ErrResultRequired)
}

func TestCommitBatchCommand_RefusesBlockedSession(t *testing.T) {
	cmd := newCommitCommand(t, newFakeStores())
	sess := orphanSession(t, nil, missingActivityIssue(0))

	err := cmd.Execute(context.Background(), CommitBatchInput{
		Session: sess,
		Result:  &types.ImportBatchResult{},
	})

	require.Error(t, err)
	require.Contains(t, err.Error(), "import blocked")
	require.Equal(t, types.SessionBlocked, sess.State())
}

func TestCommitBatchCommand_CommitsAndSealsSession(t *testing.T) {
	stores := newFakeStores()
	cmd := newCommitCommand(t, stores)
	sess := readySession(t)

	result := &types.ImportBatchResult{}
	err := cmd.Execute(context.Background(), CommitBatchInput{
		Session:      sess,
		DocumentName: "edu.xml",
		ActorID:      uuid.New(),
		Result:       result,
	})

	require.NoError(t, err)
	require.Equal(t, types.SessionCommitted, sess.State())
	require.Equal(t, 2, result.Organizations.Created)
	require.Equal(t, 1, result.Activities.Created)
	require.Equal(t, 1, result.Transactions.Created)
	require.Empty(t, result.Failures)

	logs := stores.ImportLogs.(*fakeImportLogRepo).logs
	require.Len(t, logs, 1)
	require.Equal(t, "edu.xml", logs[0].DocumentName)
}

func TestCommitBatchCommand_SecondCommitRefused(t *testing.T) {
	stores := newFakeStores()
	cmd := newCommitCommand(t, stores)
	sess := readySession(t)

	result := &types.ImportBatchResult{}
	input := CommitBatchInput{
		Session:      sess,
		DocumentName: "edu.xml",
		Result:       result,
	}
	require.NoError(t, cmd.Execute(context.Background(), input))

	err := cmd.Execute(context.Background(), input)
	require.ErrorIs(t, err, types.ErrSessionCommitted)

	repo := stores.Transactions.(*fakeTransactionRepo)
	require.Len(t, repo.byFingerprint, 1)
}
