package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Store = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestPutCopiesPayload() {
	payload := []byte(`{"name":"Alice"}`)
	id := model.NewPlayerID()
	s.Require().NoError(s.storage.Put(s.Ctx, "lobby", id, model.PlayerRecord{Payload: payload, LastUpdated: time.Now()}))

	payload[2] = 'X'

	rec, _, _ := s.storage.Get(s.Ctx, "lobby", id)
	s.Equal(`{"name":"Alice"}`, string(rec.Payload))
}

func (s *StorageSuite) TestConcurrentWritersAcrossServers() {
	servers := []model.ServerName{"lobby", "survival", "creative", "minigames"}
	var wg sync.WaitGroup
	for _, server := range servers {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(server model.ServerName) {
				defer wg.Done()
				_ = s.storage.Put(s.Ctx, server, model.NewPlayerID(), model.PlayerRecord{LastUpdated: time.Now()})
			}(server)
		}
	}
	wg.Wait()

	counts, err := s.storage.Counts(s.Ctx)
	s.Require().NoError(err)
	for _, server := range servers {
		s.Equal(50, counts[server])
	}
}
