package service

import (
	"testing"
	"time"

	"anoa.com/coinexchange/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRequestDoc(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := toRequestDoc(&entity.InteractionRequest{
		ID:             42,
		OwnerID:        7,
		PostRef:        "https://www.instagram.com/p/ABC123def/",
		ActionKind:     entity.ActionFollow,
		CostPerAction:  5,
		Quantity:       10,
		CompletedCount: 4,
		Status:         entity.RequestOpen,
		CreatedAt:      created,
	})

	assert.Equal(t, "42", doc.ID)
	assert.Equal(t, "ABC123def", doc.PostCode)
	assert.Equal(t, "follow", doc.ActionKind)
	assert.Equal(t, int64(6), doc.Remaining)
	assert.Equal(t, created.Unix(), doc.CreatedAt)
}

func TestDecodeHitIDs(t *testing.T) {
	ids, err := decodeHitIDs([]byte(`{"hits":[{"id":"3"},{"id":"x"},{"id":"11"}],"query":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 11}, ids)

	_, err = decodeHitIDs([]byte(`not json`))
	assert.Error(t, err)
}
