package menu

import (
	"math"

	"go.uber.org/zap"
)

// MaxTransferIterations 一次“全部填充/倒空”最多执行的轮数，保证循环终止
const MaxTransferIterations = 256

// FillSource 填充时的资源来源（外部库存的某个位置）
type FillSource interface {
	Extract(amount int64, mode Mode) int64
}

// FillSourceFunc 函数适配
type FillSourceFunc func(amount int64, mode Mode) int64

func (f FillSourceFunc) Extract(amount int64, mode Mode) int64 { return f(amount, mode) }

// DrainSink 倒空时的资源去处
type DrainSink interface {
	Insert(what Key, amount int64, mode Mode) int64
}

// DrainSinkFunc 函数适配
type DrainSinkFunc func(what Key, amount int64, mode Mode) int64

func (f DrainSinkFunc) Insert(what Key, amount int64, mode Mode) int64 { return f(what, amount, mode) }

// HeldContext 手持容器类物品（储罐等）的存取上下文；Simulate 调用不得产生修改
type HeldContext interface {
	Insert(what Key, amount int64, mode Mode) int64
	Extract(what Key, amount int64, mode Mode) int64
	ExtractableContent() (GenericStack, bool)
}

// HeldItemStrategy 为鼠标上持有的物品查找存取上下文
type HeldItemStrategy interface {
	// FindCarriedContext what 为 nil 时只要求能倒出内容
	FindCarriedContext(what *Key, carried *ItemStack) (HeldContext, bool)
	// EmptyingAction 持有物品可倒出的内容，用于设置过滤槽
	EmptyingAction(carried ItemStack) (GenericStack, bool)
}

// Effects 一次性效果（音效等）
type Effects interface {
	Filled(player *Player, what Key)
	Emptied(player *Player, what Key)
}

type noEffects struct{}

func (noEffects) Filled(*Player, Key)  {}
func (noEffects) Emptied(*Player, Key) {}

// TransferDirection 转移方向
type TransferDirection string

const (
	DirectionFill  TransferDirection = "fill"
	DirectionDrain TransferDirection = "drain"
)

// TransferResult 一次填充/倒空的结果
type TransferResult struct {
	Direction  TransferDirection `json:"direction"`
	What       Key               `json:"what"`
	Amount     int64             `json:"amount"`
	Iterations int               `json:"iterations"`
	Anomaly    bool              `json:"anomaly,omitempty"`
}

// TransferEngine 先探测、后提交的两阶段转移
type TransferEngine struct {
	log     *zap.SugaredLogger
	effects Effects
	player  *Player
}

func NewTransferEngine(log *zap.SugaredLogger, effects Effects, player *Player) *TransferEngine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if effects == nil {
		effects = noEffects{}
	}
	return &TransferEngine{log: log, effects: effects, player: player}
}

func budget(what Key, all bool) (amount int64, iterations int) {
	if all {
		return math.MaxInt64, MaxTransferIterations
	}
	return what.AmountPerUnit(), 1
}

// Fill 从 src 取出 what 填进手持物品
func (e *TransferEngine) Fill(src FillSource, held HeldContext, what Key, fillAll bool) TransferResult {
	res := TransferResult{Direction: DirectionFill, What: what}
	amount, iterations := budget(what, fillAll)

	for iterations > 0 {
		canPull := src.Extract(amount, Simulate)
		if canPull <= 0 {
			break
		}
		allowed := held.Insert(what, canPull, Simulate)
		if allowed <= 0 {
			break
		}
		extracted := src.Extract(allowed, Modulate)
		if extracted != allowed {
			e.log.Errorw("source committed a different amount than it simulated",
				"what", what.String(), "simulated", allowed, "committed", extracted)
			res.Anomaly = true
			if extracted <= 0 {
				break
			}
		}
		inserted := held.Insert(what, extracted, Modulate)
		if inserted != extracted {
			e.log.Errorw("held item accepted a different amount than it simulated",
				"what", what.String(), "extracted", extracted, "inserted", inserted)
			res.Anomaly = true
		}
		if inserted <= 0 {
			break
		}
		res.Amount += inserted
		res.Iterations++
		if res.Anomaly {
			break
		}
		iterations--
	}

	if res.Iterations > 0 {
		e.effects.Filled(e.player, what)
	}
	return res
}

// Drain 把手持物品中的内容倒入 sink
func (e *TransferEngine) Drain(sink DrainSink, held HeldContext, drainAll bool) TransferResult {
	res := TransferResult{Direction: DirectionDrain}
	content, ok := held.ExtractableContent()
	if !ok || content.Amount == 0 {
		return res
	}
	what := content.What
	res.What = what
	amount, iterations := budget(what, drainAll)

	for iterations > 0 {
		canExtract := held.Extract(what, amount, Simulate)
		if canExtract <= 0 {
			break
		}
		allowed := sink.Insert(what, canExtract, Simulate)
		if allowed <= 0 {
			break
		}
		extracted := held.Extract(what, allowed, Modulate)
		if extracted != allowed {
			e.log.Errorw("held item reported a different amount to drain than it actually provided",
				"what", what.String(), "simulated", allowed, "committed", extracted)
			res.Anomaly = true
			if extracted <= 0 {
				break
			}
		}
		inserted := sink.Insert(what, extracted, Modulate)
		if inserted != extracted {
			e.log.Errorw("failed to insert previously simulated amount into sink",
				"what", what.String(), "extracted", extracted, "inserted", inserted)
			res.Anomaly = true
		}
		if inserted <= 0 {
			break
		}
		res.Amount += inserted
		res.Iterations++
		if res.Anomaly {
			break
		}
		iterations--
	}

	if res.Iterations > 0 {
		e.effects.Emptied(e.player, what)
	}
	return res
}
