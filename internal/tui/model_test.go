package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"solswap-engine/internal/engine"
	"solswap-engine/internal/model"
)

func TestQuitKeyReturnsTeaQuit(t *testing.T) {
	m := NewModel("SOL/USDC", nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected a quit command from 'q'")
	}
}

func TestTickEventUpdatesLastPrice(t *testing.T) {
	m := NewModel("SOL/USDC", nil)
	price := decimal.RequireFromString("123.45")
	ticker := model.TickerData{Last: price}

	updated, _ := m.Update(engineEventMsg(engine.Event{Kind: engine.EventTick, Tick: &ticker, At: time.Now()}))
	mm, ok := updated.(Model)
	if !ok {
		t.Fatal("Update did not return a tui.Model")
	}
	if !mm.LastPrice.Equal(price) {
		t.Fatalf("expected LastPrice %s, got %s", price, mm.LastPrice)
	}
}

func TestOrderEventAppendsLogLine(t *testing.T) {
	m := NewModel("SOL/USDC", nil)
	order := &model.Order{Side: model.Buy, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(10)}

	updated, _ := m.Update(engineEventMsg(engine.Event{Kind: engine.EventOrder, Order: order, At: time.Now()}))
	mm := updated.(Model)
	if len(mm.Logs) != 1 {
		t.Fatalf("expected 1 log line after an order event, got %d", len(mm.Logs))
	}
}

func TestErrorEventRecordsLastErr(t *testing.T) {
	m := NewModel("SOL/USDC", nil)
	updated, _ := m.Update(engineEventMsg(engine.Event{Kind: engine.EventError, Err: errors.New("rpc timeout"), At: time.Now()}))
	mm := updated.(Model)
	if mm.LastErr != "rpc timeout" {
		t.Fatalf("expected LastErr to be set, got %q", mm.LastErr)
	}
}

func TestViewRendersWithoutPanicBeforeWindowSize(t *testing.T) {
	m := NewModel("SOL/USDC", nil)
	if out := m.View(); out == "" {
		t.Fatal("expected non-empty view output")
	}
}

func TestLogsAreBoundedAtTwoHundredLines(t *testing.T) {
	m := NewModel("SOL/USDC", nil)
	for i := 0; i < 250; i++ {
		m.addLog("line")
	}
	if len(m.Logs) != 200 {
		t.Fatalf("expected logs capped at 200, got %d", len(m.Logs))
	}
}
