package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/chunkvault/pkg/configs"
)

func TestNamesSorted(t *testing.T) {
	got := names([]configs.DBType{configs.SQLite, configs.MySQL, configs.Pg})
	assert.Equal(t, []string{"mysql", "pg", "sqlite"}, got)
}

func TestListCmdOutput(t *testing.T) {
	c := newListCmd("kv", func() []string { return []string{"memory", "redis"} })

	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs(nil)

	require.NoError(t, c.Execute())
	assert.Equal(t, "Registered kv types:\n   - memory\n   - redis\n", out.String())
}
