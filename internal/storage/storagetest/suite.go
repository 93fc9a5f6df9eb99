// Package storagetest holds the behaviour every PlayerStore implementation
// must share. Implementation packages embed Suite and supply a fresh store.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/storage"
)

// Suite runs the common PlayerStore contract against Store
type Suite struct {
	suite.Suite
	Store storage.PlayerStore
	Ctx   context.Context
}

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

const (
	alice = model.PlayerID("0f8fad5b-d9cb-469f-a165-70867728950e")
	bob   = model.PlayerID("7c9e6679-7425-40de-944b-e07fc1f90ae7")
)

func record(payload string, at time.Time) model.PlayerRecord {
	return model.PlayerRecord{Payload: []byte(payload), LastUpdated: at}
}

func (s *Suite) put(server model.ServerName, id model.PlayerID, payload string, at time.Time) {
	s.Require().NoError(s.Store.Put(s.Ctx, server, id, record(payload, at)))
}

// Record tests

func (s *Suite) TestPutAndGet() {
	s.put("lobby", alice, `{"name":"Alice"}`, baseTime)

	rec, ok, err := s.Store.Get(s.Ctx, "lobby", alice)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(`{"name":"Alice"}`, string(rec.Payload))
	s.True(baseTime.Equal(rec.LastUpdated))
}

func (s *Suite) TestPutReplacesRecord() {
	s.put("lobby", alice, `{"v":1}`, baseTime)
	s.put("lobby", alice, `{"v":2}`, baseTime.Add(time.Second))

	rec, ok, err := s.Store.Get(s.Ctx, "lobby", alice)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(`{"v":2}`, string(rec.Payload))
	s.True(baseTime.Add(time.Second).Equal(rec.LastUpdated))
}

func (s *Suite) TestGetUnknownServer() {
	_, ok, err := s.Store.Get(s.Ctx, "nowhere", alice)
	s.NoError(err)
	s.False(ok)
}

func (s *Suite) TestDelete() {
	s.put("lobby", alice, `{}`, baseTime)

	removed, err := s.Store.Delete(s.Ctx, "lobby", alice)
	s.Require().NoError(err)
	s.True(removed)

	_, ok, _ := s.Store.Get(s.Ctx, "lobby", alice)
	s.False(ok)
}

func (s *Suite) TestDeleteAbsentIsNoop() {
	removed, err := s.Store.Delete(s.Ctx, "nowhere", alice)
	s.NoError(err)
	s.False(removed)
}

func (s *Suite) TestDeleteFromOthersKeepsCurrentServer() {
	s.put("lobby", alice, `{"at":"lobby"}`, baseTime)
	s.put("survival", alice, `{"at":"survival"}`, baseTime)
	s.put("creative", alice, `{"at":"creative"}`, baseTime)
	s.put("lobby", bob, `{}`, baseTime)

	removed, err := s.Store.DeleteFromOthers(s.Ctx, alice, "survival")
	s.Require().NoError(err)
	s.Equal(2, removed)

	_, ok, _ := s.Store.Get(s.Ctx, "lobby", alice)
	s.False(ok)
	_, ok, _ = s.Store.Get(s.Ctx, "creative", alice)
	s.False(ok)
	rec, ok, _ := s.Store.Get(s.Ctx, "survival", alice)
	s.True(ok)
	s.Equal(`{"at":"survival"}`, string(rec.Payload))
	_, ok, _ = s.Store.Get(s.Ctx, "lobby", bob)
	s.True(ok)
}

func (s *Suite) TestDeleteOlderThanUsesStrictCutoff() {
	cutoff := baseTime
	s.put("lobby", alice, `{}`, cutoff.Add(-time.Millisecond))
	s.put("lobby", bob, `{}`, cutoff.Add(time.Millisecond))

	removed, err := s.Store.DeleteOlderThan(s.Ctx, cutoff)
	s.Require().NoError(err)
	s.Equal(1, removed)

	_, ok, _ := s.Store.Get(s.Ctx, "lobby", alice)
	s.False(ok)
	_, ok, _ = s.Store.Get(s.Ctx, "lobby", bob)
	s.True(ok)
}

func (s *Suite) TestDeleteOlderThanSpansServers() {
	s.put("lobby", alice, `{}`, baseTime.Add(-time.Hour))
	s.put("survival", bob, `{}`, baseTime.Add(-time.Hour))

	removed, err := s.Store.DeleteOlderThan(s.Ctx, baseTime)
	s.Require().NoError(err)
	s.Equal(2, removed)
}

// Query tests

func (s *Suite) TestServersAndCounts() {
	s.put("lobby", alice, `{}`, baseTime)
	s.put("lobby", bob, `{}`, baseTime)
	s.put("survival", model.NewPlayerID(), `{}`, baseTime)

	servers, err := s.Store.Servers(s.Ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]model.ServerName{"lobby", "survival"}, servers)

	counts, err := s.Store.Counts(s.Ctx)
	s.Require().NoError(err)
	s.Equal(map[model.ServerName]int{"lobby": 2, "survival": 1}, counts)
}

func (s *Suite) TestEmptiedBucketStillListed() {
	s.put("lobby", alice, `{}`, baseTime)
	_, _ = s.Store.Delete(s.Ctx, "lobby", alice)

	counts, err := s.Store.Counts(s.Ctx)
	s.Require().NoError(err)
	s.Equal(map[model.ServerName]int{"lobby": 0}, counts)
}

func (s *Suite) TestRecords() {
	s.put("lobby", alice, `{"name":"Alice"}`, baseTime)
	s.put("lobby", bob, `{"name":"Bob"}`, baseTime)

	records, err := s.Store.Records(s.Ctx, "lobby")
	s.Require().NoError(err)
	s.Len(records, 2)
	s.Equal(`{"name":"Bob"}`, string(records[bob].Payload))
}

func (s *Suite) TestRecordsUnknownServerIsEmpty() {
	records, err := s.Store.Records(s.Ctx, "nowhere")
	s.NoError(err)
	s.Empty(records)
}

// Server info tests

func (s *Suite) TestServerInfo() {
	_, ok, err := s.Store.ServerInfo(s.Ctx, "lobby")
	s.Require().NoError(err)
	s.False(ok)

	info := model.ServerInfo{Version: "1.20.4", OnlinePlayers: 12, ReportedAt: baseTime}
	s.Require().NoError(s.Store.PutServerInfo(s.Ctx, "lobby", info))

	got, ok, err := s.Store.ServerInfo(s.Ctx, "lobby")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("1.20.4", got.Version)
	s.Equal(12, got.OnlinePlayers)
	s.True(baseTime.Equal(got.ReportedAt))
}
