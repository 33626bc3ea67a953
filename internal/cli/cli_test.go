package cli

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "seed"}, names)
}

func TestMigrateAndSeed(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:"+uuid.NewString()+"?mode=memory&cache=shared&_foreign_keys=1")

	for _, args := range [][]string{{"migrate"}, {"seed"}} {
		cmd := NewRootCommand()
		cmd.SetArgs(args)
		require.NoError(t, cmd.ExecuteContext(context.Background()), "storefront %v", args)
	}
}

func TestRootCommand_RejectsBadConfig(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"migrate"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}
