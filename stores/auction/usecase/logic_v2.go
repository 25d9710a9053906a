package usecase

const (
	logicIdV2      = "v2"
	logicVersionV2 = "NftAuctionV2"
)

// LogicV2 shares v1's behavior and state layout; only the reported
// implementation changes. It exists to prove a live instance survives a
// logic swap with its record intact.
type LogicV2 struct {
	*LogicV1
}

func NewLogicV2(base *LogicV1) *LogicV2 {
	return &LogicV2{LogicV1: base}
}

func (l *LogicV2) Id() string      { return logicIdV2 }
func (l *LogicV2) Version() string { return logicVersionV2 }
