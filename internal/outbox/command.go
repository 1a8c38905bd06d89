package outbox

import (
	"strconv"
	"strings"
)

// Action is the outbound command verb understood by the execution agent.
type Action string

const (
	ActionBuy           Action = "BUY"
	ActionSell          Action = "SELL"
	ActionCloseAll      Action = "CLOSE_ALL"
	ActionCloseWin      Action = "CLOSE_WIN"
	ActionCloseLoss     Action = "CLOSE_LOSS"
	ActionCloseTicket   Action = "CLOSE_TICKET"
	ActionModifyTicket  Action = "MODIFY_TICKET"
	ActionChangeSymbol  Action = "CHANGE_SYMBOL"
	ActionDataSync      Action = "DATA_SYNC"
	ActionDataSyncRange Action = "DATA_SYNC_RANGE"
)

// IsClose reports whether the action closes existing exposure. Close intents
// go through the dedupe guard before queueing.
func (a Action) IsClose() bool {
	return strings.HasPrefix(string(a), "CLOSE")
}

// Command is one outbound instruction to the agent. The argument set is
// action-specific; unused fields stay zero.
type Command struct {
	Action Action
	Symbol string
	Lot    float64
	SL     float64
	TP     float64
	Ticket int64

	// Data-sync arguments.
	Timeframe string
	Bars      int
	RangeFrom string
	RangeTo   string
}

// Serialize renders the agent wire format: ACTION|ARG1|ARG2|ARG3|ARG4.
// The agent consumes exactly one serialized command per poll.
func (c Command) Serialize() string {
	switch c.Action {
	case ActionDataSync:
		tf := c.Timeframe
		if tf == "" {
			tf = "H1"
		}
		bars := c.Bars
		if bars == 0 {
			bars = 5000
		}
		return join(string(c.Action), c.Symbol, tf, strconv.Itoa(bars), "0")
	case ActionDataSyncRange:
		tf := c.Timeframe
		if tf == "" {
			tf = "H1"
		}
		return join(string(c.Action), c.Symbol, tf, c.RangeFrom, c.RangeTo)
	case ActionCloseTicket:
		return join(string(c.Action), strconv.FormatInt(c.Ticket, 10), "0", "0", "0")
	case ActionModifyTicket:
		return join(string(c.Action), strconv.FormatInt(c.Ticket, 10), "0", num(c.SL), num(c.TP))
	default:
		return join(string(c.Action), c.Symbol, num(c.Lot), num(c.SL), num(c.TP))
	}
}

// DedupeKey identifies the re-send intent for close/modify commands: the
// ticket id when present, otherwise the action itself as a fixed sentinel.
func (c Command) DedupeKey() string {
	if c.Ticket != 0 {
		return string(c.Action) + "_" + strconv.FormatInt(c.Ticket, 10)
	}
	return string(c.Action)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func join(parts ...string) string {
	return strings.Join(parts, "|")
}
