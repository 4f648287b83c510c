package telegram

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDownloads_LatestFileWins(t *testing.T) {
	d := newDownloads()

	first := d.begin(1)
	second := d.begin(1)
	other := d.begin(2)

	require.False(t, d.current(1, first))
	require.True(t, d.current(1, second))
	require.True(t, d.current(2, other))

	require.True(t, d.pending(1))
	d.done(1)
	require.True(t, d.pending(1))
	d.done(1)
	require.False(t, d.pending(1))
	require.True(t, d.pending(2))

	d.done(2)
	require.False(t, d.pending(2))
	require.Empty(t, d.latest)
	require.Empty(t, d.active)
}

func TestDownloads_ConcurrentChats(t *testing.T) {
	d := newDownloads()

	var wg sync.WaitGroup
	for chat := int64(0); chat < 20; chat++ {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ticket := d.begin(chat)
				require.True(t, d.current(chat, ticket))
				d.done(chat)
			}
		}(chat)
	}
	wg.Wait()

	for chat := int64(0); chat < 20; chat++ {
		require.False(t, d.pending(chat))
	}
}
