package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetQueryNormalize(t *testing.T) {
	assert.Equal(t, OffsetQuery{Limit: 20}, OffsetQuery{}.Normalize())
	assert.Equal(t, OffsetQuery{Limit: 5, Offset: 10}, OffsetQuery{Limit: 5, Offset: 10}.Normalize())
}

func TestEmptyPageEncodesAsArray(t *testing.T) {
	page := NewPaginatedResponse[int](nil, OffsetQuery{Limit: 20}, 0)

	raw, err := json.Marshal(page)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"meta":{"limit":20,"offset":0,"total_items":0}}`, string(raw))
}
