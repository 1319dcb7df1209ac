package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"anoa.com/coinexchange/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableIsValid(t *testing.T) {
	table := Default()
	require.NoError(t, table.Validate())

	assert.Equal(t, int64(1), table.Cost(entity.ActionLike))
	assert.Equal(t, int64(10), table.Cost(entity.ActionStoryShare))
	assert.Equal(t, table.Cost(entity.ActionComment), table.PointsFor(entity.ActionComment))
	assert.True(t, table.RequiresEvidence(table.Cost(entity.ActionFollow)))
	assert.False(t, table.RequiresEvidence(table.Cost(entity.ActionLike)))
}

func TestEarning(t *testing.T) {
	tests := []struct {
		name     string
		rounding string
		cost     int64
		slot     entity.ProfileSlot
		want     int64
	}{
		{"primary floor of 5", RoundFloor, 5, entity.SlotPrimary, 1},
		{"secondary floor of 5", RoundFloor, 5, entity.SlotSecondary1, 0},
		{"primary story share", RoundFloor, 10, entity.SlotPrimary, 2},
		{"secondary of 8", RoundFloor, 8, entity.SlotSecondary2, 1},
		{"primary like", RoundFloor, 1, entity.SlotPrimary, 0},
		{"half up primary of 10", RoundHalfUp, 10, entity.SlotPrimary, 3},
		{"half up secondary of 5", RoundHalfUp, 5, entity.SlotSecondary1, 1},
		{"half up secondary of 3", RoundHalfUp, 3, entity.SlotSecondary1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Default()
			table.Rounding = tt.rounding
			assert.Equal(t, tt.want, table.Earning(tt.cost, tt.slot))
		})
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	content := []byte(`
costs:
  like: 2
points:
  like: 3
rounding: half_up
packages:
  50: 300
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	table, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(2), table.Cost(entity.ActionLike))
	assert.Equal(t, int64(3), table.PointsFor(entity.ActionLike))
	assert.Equal(t, int64(5), table.Cost(entity.ActionFollow))
	assert.Equal(t, RoundHalfUp, table.Rounding)

	price, ok := table.PackagePrice(50)
	assert.True(t, ok)
	assert.Equal(t, int64(300), price)
	_, ok = table.PackagePrice(100)
	assert.False(t, ok)
}

func TestLoadRejectsInvalidTable(t *testing.T) {
	cases := map[string]string{
		"unknown kind":   "costs:\n  poke: 3\n",
		"bad rounding":   "rounding: banker\n",
		"negative cost":  "costs:\n  like: -1\n",
		"share too high": "primary_share_bps: 20000\n",
		"zero threshold": "evidence_threshold: 0\n",
		"empty rounding": "rounding: \"\"\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pricing.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadAppliesExplicitZeros(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	content := []byte("default_balance: 0\nsecondary_share_bps: 0\ncomment_min_words: 0\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	table, err := Load(path)
	require.NoError(t, err)

	assert.Zero(t, table.DefaultBalance)
	assert.Zero(t, table.SecondaryShareBps)
	assert.Zero(t, table.CommentMinWords)
	assert.Equal(t, int64(2500), table.PrimaryShareBps)
	assert.Equal(t, int64(0), table.Earning(10, entity.SlotSecondary1))
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	table, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), table)
}
