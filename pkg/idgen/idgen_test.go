package idgen

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDShape(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^session_\d+_[0-9a-f]{12}$`), NewSessionID())
	assert.Regexp(t, regexp.MustCompile(`^user_\d+_[0-9a-f]{12}$`), NewUserID())
}

func TestIDsAreUniqueAcrossConcurrentCallers(t *testing.T) {
	const workers, perWorker = 16, 500

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				local = append(local, NewSessionID())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, workers*perWorker)
}
