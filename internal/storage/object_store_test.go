package storage

import (
	"context"
	"errors"
	"testing"

	"go_lms_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryObjectStore_PutAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStore()

	tests := []struct {
		name string
		text string
	}{
		{
			name: "正常系: 通常のコード本文を保存して復元できる",
			text: "print('hello')\nprint('world')\n",
		},
		{
			name: "正常系: 空文字の本文も保存できる",
			text: "",
		},
		{
			name: "正常系: マルチバイト文字を含む本文が劣化しない",
			text: "# コメント: 結果を出力する\nprint('こんにちは')\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := store.Put(ctx, tt.text)
			require.NoError(t, err)
			require.NotEmpty(t, key)

			got, err := store.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, tt.text, got)
		})
	}
}

func TestMemoryObjectStore_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStore()

	_, err := store.Get(ctx, "no-such-key")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestMemoryObjectStore_Put_UniqueKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryObjectStore()

	// 同じ本文でもキーは毎回異なる (キーは不透明な識別子)
	key1, err := store.Put(ctx, "same body")
	require.NoError(t, err)
	key2, err := store.Put(ctx, "same body")
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)

	got1, err := store.Get(ctx, key1)
	require.NoError(t, err)
	got2, err := store.Get(ctx, key2)
	require.NoError(t, err)
	assert.Equal(t, got1, got2)
}
