package auction

import (
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/domain"
)

// Logic is the runtime-replaceable behavior of an auction instance. Each
// stored Auction names its handler by LogicId; swapping the handler must not
// touch the persisted record, so every Logic with the same SchemaVersion has
// to read and write the exact same layout.
type Logic interface {
	// Id is the implementation identifier stored on auction records.
	Id() string
	// Version is the externally observable implementation name.
	Version() string
	// SchemaVersion is the state layout this logic reads and writes.
	SchemaVersion() int32

	Bid(c ctx.Ctx, p *BidParams) (*Auction, error)
	EndAuction(c ctx.Ctx, auctionId string) (*Settlement, error)
	Claim(c ctx.Ctx, auctionId string, bidder domain.Address) ([]*PendingReturn, error)
}

// LogicRegistry is the indirection table from implementation id to handler.
type LogicRegistry struct {
	logics map[string]Logic
}

func NewLogicRegistry(logics ...Logic) *LogicRegistry {
	r := &LogicRegistry{logics: map[string]Logic{}}
	for _, l := range logics {
		r.logics[l.Id()] = l
	}
	return r
}

func (r *LogicRegistry) Register(l Logic) {
	r.logics[l.Id()] = l
}

func (r *LogicRegistry) Get(id string) (Logic, error) {
	l, ok := r.logics[id]
	if !ok {
		return nil, domain.ErrUnknownImplementation
	}
	return l, nil
}
