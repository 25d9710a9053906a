package recorder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"

	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/stores/event/recorder"
	"github.com/young8i/nft-auction-market/stores/event/repository"
)

type failingRepo struct{}

func (r *failingRepo) Insert(ctx.Ctx, *domain.Event) error {
	return xerrors.New("insert failed")
}

func (r *failingRepo) FindByAuction(ctx.Ctx, string) ([]*domain.Event, error) {
	return nil, nil
}

func TestRecordKeepsOrder(t *testing.T) {
	c := ctx.Background()
	repo := repository.NewInmemEventRepo()
	rec := recorder.NewSync(repo)

	rec.Record(c, &domain.Event{Type: domain.EventBidPlaced, AuctionId: "a1"})
	rec.Record(c, &domain.Event{Type: domain.EventAuctionEnded, AuctionId: "a1"})

	events, err := repo.FindByAuction(c, "a1")
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, domain.EventBidPlaced, events[0].Type)
	assert.Equal(t, domain.EventAuctionEnded, events[1].Type)
	assert.False(t, events[0].CreatedAt.IsZero())
	assert.Equal(t, 0, recorder.Dropped(rec))
}

func TestRecordDropsOnFailure(t *testing.T) {
	c := ctx.Background()
	rec := recorder.NewSync(&failingRepo{})

	rec.Record(c, &domain.Event{Type: domain.EventBidPlaced, AuctionId: "a1"})
	rec.Record(c, &domain.Event{Type: domain.EventClaimed, AuctionId: "a1"})

	assert.Equal(t, 2, recorder.Dropped(rec))
}
