package recorder

import (
	"time"

	"github.com/viney-shih/goroutines"

	"github.com/young8i/nft-auction-market/base/counter"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/domain"
)

type impl struct {
	repo    domain.EventRepo
	pool    *goroutines.Pool
	dropped *counter.Counter
}

// New builds an event recorder that persists events off the caller's
// goroutine. Recording is best-effort: a failed insert is logged and dropped,
// never surfaced to the operation that emitted the event.
func New(repo domain.EventRepo, poolSize int) domain.EventRecorder {
	return &impl{
		repo:    repo,
		pool:    goroutines.NewPool(poolSize),
		dropped: counter.NewCounter(),
	}
}

// NewSync builds a recorder that persists events on the caller's goroutine.
// The standalone mode and the tests use it to keep ordering deterministic.
func NewSync(repo domain.EventRepo) domain.EventRecorder {
	return &impl{repo: repo, dropped: counter.NewCounter()}
}

// Dropped reports how many events failed to persist since start.
func Dropped(r domain.EventRecorder) int {
	if im, ok := r.(*impl); ok {
		return im.dropped.Count()
	}
	return 0
}

func (im *impl) Record(c ctx.Ctx, e *domain.Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	if im.pool == nil {
		im.insert(c, e)
		return
	}

	// detach from the request context so a cancelled request does not lose
	// the event
	bg := ctx.Background()
	if err := im.pool.Schedule(func() { im.insert(bg, e) }); err != nil {
		c.WithFields(log.Fields{
			"err":  err,
			"type": e.Type,
		}).Warn("pool.Schedule failed, recording inline")
		im.insert(c, e)
	}
}

func (im *impl) insert(c ctx.Ctx, e *domain.Event) {
	if err := im.repo.Insert(c, e); err != nil {
		im.dropped.Add(1)
		c.WithFields(log.Fields{
			"err":       err,
			"type":      e.Type,
			"auctionId": e.AuctionId,
		}).Warn("event insert dropped")
	}
}
