package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/internal/adapters/config"
	"go.trai.ch/knit/internal/adapters/fs"
)

func TestLoader_Load(t *testing.T) {
	disk := fs.NewVirtualDisk()
	disk.Create(".knit.yaml", "jobs: 8\nkeepgoing: 0\nverbose: true\nstatus: fancy\n")

	d, err := config.NewLoader(disk).Load(".")
	require.NoError(t, err)
	assert.Equal(t, 8, d.Jobs)
	assert.Equal(t, 0, d.KeepGoing)
	assert.True(t, d.Verbose)
	assert.Equal(t, "fancy", d.Status)
}

func TestLoader_MissingFile(t *testing.T) {
	d, err := config.NewLoader(fs.NewVirtualDisk()).Load(".")
	require.NoError(t, err)
	assert.Equal(t, &config.Defaults{}, d)
}

func TestLoader_Malformed(t *testing.T) {
	disk := fs.NewVirtualDisk()
	disk.Create(".knit.yaml", "jobs: [not an int\n")

	_, err := config.NewLoader(disk).Load(".")
	assert.Error(t, err)
}
