package domain

import (
	"time"

	"github.com/young8i/nft-auction-market/base/ctx"
)

type EventType string

const (
	EventFeedSet        EventType = "FeedSet"
	EventAuctionCreated EventType = "AuctionCreated"
	EventBidPlaced      EventType = "BidPlaced"
	EventRefundFailed   EventType = "RefundFailed"
	EventAuctionEnded   EventType = "AuctionEnded"
	EventUpgraded       EventType = "Upgraded"
	EventClaimed        EventType = "Claimed"
)

// Event is an append-only record for off-chain observers. Recording is
// best-effort and must never fail the operation that emits it.
type Event struct {
	Type      EventType              `bson:"type"`
	AuctionId string                 `bson:"auctionId,omitempty"`
	Data      map[string]interface{} `bson:"data"`
	CreatedAt time.Time              `bson:"createdAt"`
}

type EventRecorder interface {
	Record(c ctx.Ctx, e *Event)
}

type EventRepo interface {
	Insert(ctx.Ctx, *Event) error
	FindByAuction(c ctx.Ctx, auctionId string) ([]*Event, error)
}
