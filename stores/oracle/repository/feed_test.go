package repository

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/service/query"
)

var mockCtx = bCtx.Background()

// countingQuery backs TableFeeds with a map and counts the FindOne round
// trips that reach the database layer.
type countingQuery struct {
	query.Mongo
	entries  map[domain.Address]*domain.FeedEntry
	findOnes int
}

func (q *countingQuery) FindOne(c bCtx.Ctx, table domain.Table, qry, result interface{}) error {
	q.findOnes++
	selector := qry.(bson.M)
	asset := selector["asset"].(domain.Address)
	entry, ok := q.entries[asset]
	if !ok {
		return query.ErrNotFound
	}
	*result.(*domain.FeedEntry) = *entry
	return nil
}

func (q *countingQuery) Upsert(c bCtx.Ctx, table domain.Table, selector, update interface{}) error {
	entry := update.(*domain.FeedEntry)
	cp := *entry
	q.entries[cp.Asset] = &cp
	return nil
}

type feedRepoSuite struct {
	suite.Suite
	query   *countingQuery
	subject domain.FeedRepo
}

func TestFeedRepoSuite(t *testing.T) {
	suite.Run(t, new(feedRepoSuite))
}

func (s *feedRepoSuite) SetupTest() {
	s.query = &countingQuery{entries: map[domain.Address]*domain.FeedEntry{}}
	s.subject = NewFeedRepo(s.query, nil)
}

func (s *feedRepoSuite) TestFindOneServedFromCache() {
	s.Require().NoError(s.subject.Upsert(mockCtx, &domain.FeedEntry{
		Asset: domain.NativeAsset, FeedRef: domain.Address("0xethfeed"), AssetDecimals: 18,
	}))

	entry, err := s.subject.FindOne(mockCtx, domain.NativeAsset)
	s.Require().NoError(err)
	s.True(entry.FeedRef.Equals(domain.Address("0xethfeed")))
	s.Equal(1, s.query.findOnes)

	// second read hits the cache layer, not the database
	entry, err = s.subject.FindOne(mockCtx, domain.NativeAsset)
	s.Require().NoError(err)
	s.True(entry.FeedRef.Equals(domain.Address("0xethfeed")))
	s.Equal(1, s.query.findOnes)
}

func (s *feedRepoSuite) TestUpsertInvalidatesCache() {
	s.Require().NoError(s.subject.Upsert(mockCtx, &domain.FeedEntry{
		Asset: domain.NativeAsset, FeedRef: domain.Address("0xethfeed"), AssetDecimals: 18,
	}))
	_, err := s.subject.FindOne(mockCtx, domain.NativeAsset)
	s.Require().NoError(err)

	s.Require().NoError(s.subject.Upsert(mockCtx, &domain.FeedEntry{
		Asset: domain.NativeAsset, FeedRef: domain.Address("0xethfeed2"), AssetDecimals: 18,
	}))

	entry, err := s.subject.FindOne(mockCtx, domain.NativeAsset)
	s.Require().NoError(err)
	s.True(entry.FeedRef.Equals(domain.Address("0xethfeed2")))
	s.Equal(2, s.query.findOnes)
}

func (s *feedRepoSuite) TestFindOneNotFound() {
	_, err := s.subject.FindOne(mockCtx, domain.Address("0xunknown"))
	s.ErrorIs(err, domain.ErrNotFound)
}
