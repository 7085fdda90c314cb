package contracts

import (
	"context"
	"time"
)

// PanelQuery selects long-format rows from a panel source
type PanelQuery struct {
	Symbols []string  // empty = all symbols
	From    time.Time // inclusive
	To      time.Time // inclusive
	Columns []string  // value columns to load, in order
}

// PanelSource loads raw long-format rows
// ⭐ SSOT: 원천 데이터 로딩 인터페이스
type PanelSource interface {
	LoadPanel(ctx context.Context, q PanelQuery) (*Panel, error)
}
