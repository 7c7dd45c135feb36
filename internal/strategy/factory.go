package strategy

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// New builds a Strategy variant from a flat key=value parameter map, as
// loaded by internal/config from spec.md §6 startup input (4). Grounded on
// the teacher's internal/config mapstructure-tagged pattern, simplified to
// a hand-rolled parser since strategy params are a flat string map rather
// than a nested YAML document.
func New(name string, params map[string]string) (Strategy, error) {
	switch name {
	case "random":
		buyChance, err := requiredInt(params, "buy_chance")
		if err != nil {
			return nil, err
		}
		sellChance, err := requiredInt(params, "sell_chance")
		if err != nil {
			return nil, err
		}
		return NewRandom(buyChance, sellChance), nil

	case "target_value":
		targetBuyPrice, err := requiredDecimal(params, "target_buy_price")
		if err != nil {
			return nil, err
		}
		targetProfitPercent, err := requiredDecimal(params, "target_profit_percent")
		if err != nil {
			return nil, err
		}
		return NewTargetValue(
			targetBuyPrice,
			targetProfitPercent,
			optionalDecimal(params, "stop_loss_percent"),
			optionalDecimal(params, "balance_percent"),
			optionalDecimal(params, "max_spread"),
		), nil

	case "dynamic_target":
		emaPeriod, _ := optionalInt(params, "ema_period")
		atrPeriod, _ := optionalInt(params, "atr_period")
		return NewDynamicTarget(
			emaPeriod,
			atrPeriod,
			optionalDecimal(params, "buy_factor"),
			optionalDecimal(params, "sell_factor"),
			optionalDecimal(params, "balance_percent"),
			optionalDecimal(params, "stop_loss_atr_factor"),
		), nil

	case "weighted_moving_average":
		shortWindow, _ := optionalInt(params, "short_window")
		longWindow, _ := optionalInt(params, "long_window")
		period, _ := optionalInt(params, "period")
		shiftPast, _ := optionalInt(params, "shift_past")
		buyWhenShortBelow := true
		if v, ok := params["buy_when_short_below"]; ok {
			buyWhenShortBelow = v == "true"
		}
		return NewWeightedMovingAverage(shortWindow, longWindow, buyWhenShortBelow, period, shiftPast), nil

	case "trailing_stop_loss":
		return NewTrailingStopLoss(optionalDecimal(params, "stop_loss_percent"), optionalDecimal(params, "balance_percent")), nil

	case "target_percent":
		return NewTargetPercent(optionalDecimal(params, "target_percent"), optionalDecimal(params, "balance_percent")), nil

	case "composer":
		buyMode := SignalMode(paramOr(params, "buy_mode", string(All)))
		sellMode := SignalMode(paramOr(params, "sell_mode", string(All)))
		return NewDefaultComposer(buyMode, sellMode), nil

	default:
		return nil, fmt.Errorf("strategy: unknown variant %q", name)
	}
}

func paramOr(params map[string]string, key, fallback string) string {
	if v, ok := params[key]; ok && v != "" {
		return v
	}
	return fallback
}

func requiredInt(params map[string]string, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("strategy: missing required param %q", key)
	}
	return strconv.Atoi(v)
}

func optionalInt(params map[string]string, key string) (int, error) {
	v, ok := params[key]
	if !ok || v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func requiredDecimal(params map[string]string, key string) (decimal.Decimal, error) {
	v, ok := params[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("strategy: missing required param %q", key)
	}
	return decimal.NewFromString(v)
}

func optionalDecimal(params map[string]string, key string) decimal.Decimal {
	v, ok := params[key]
	if !ok || v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}
