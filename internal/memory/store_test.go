package memory_test

import (
	"testing"

	"github.com/cwrk-planet/poll-service/internal/memory"
	"github.com/cwrk-planet/poll-service/internal/service"
	"github.com/cwrk-planet/poll-service/internal/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) service.Store {
		return memory.NewStore()
	})
}
