package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"zest.dev/pkg/zest/internal/domain"
	m "zest.dev/pkg/zest/internal/model"
)

func TestListCmd_PassesSelection(t *testing.T) {
	mockWorkflow := useMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newListCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	mockWorkflow.On("List", mock.Anything, mock.MatchedBy(func(args domain.ListArgs) bool {
		return args.Selection.Match == "raises" &&
			args.Selection.Exclude == "message" &&
			args.Seed == 7 &&
			args.SeedSet &&
			args.Shuffle &&
			args.Output == m.Path(".zest_results")
	})).Return(nil)

	cmd.SetArgs([]string{"list", "raises", "-x", "message", "--seed", "7"})
	err := cmd.Execute()
	require.NoError(t, err)
}

func TestListCmd_AllowFailedMarker(t *testing.T) {
	mockWorkflow := useMockWorkflow(t)

	cmd := newRootCmd()
	cmd.AddCommand(newListCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	mockWorkflow.On("List", mock.Anything, mock.MatchedBy(func(args domain.ListArgs) bool {
		return assert.ObjectsAreEqual([]string{m.AllowFailed}, args.Selection.Allow)
	})).Return(nil)

	cmd.SetArgs([]string{"list", "--allow", "__failed__"})
	err := cmd.Execute()
	require.NoError(t, err)
}

func TestNewListCmd(t *testing.T) {
	cmd := newListCmd()
	assert.Equal(t, "list [match]", cmd.Use)
	assert.Equal(t, listLongDescription, cmd.Long)
	assert.NotNil(t, cmd.Flags().Lookup(allowFlagName))
	assert.Nil(t, cmd.Flags().Lookup(runParallelFlagName))
}
