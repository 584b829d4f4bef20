package usecase

import (
	"fmt"
	"time"

	"AlphaWalk/internal/domain/models"
	"AlphaWalk/pkg/util"
)

// BuildSchedule generates rebalance dates over the panel's trading calendar.
// The first target is panel start plus the lookback, each target is snapped
// forward to the next trading date, and generation stops once a target falls
// past the panel's last date. Snapping can land two targets on the same
// trading date; duplicates collapse.
func BuildSchedule(panel *models.PricePanel, lookbackMonths int, freq models.RebalanceFreq) ([]time.Time, error) {
	if panel.IsEmpty() {
		return nil, fmt.Errorf("%w: empty panel", models.ErrDataInsufficiency)
	}

	dates := panel.Dates()
	end := panel.End()
	target := util.AddMonths(panel.Start(), lookbackMonths)

	var schedule []time.Time
	for !target.After(end) {
		snapped, ok := util.SnapToTradingDate(dates, target)
		if !ok {
			break
		}
		if n := len(schedule); n == 0 || !schedule[n-1].Equal(snapped) {
			schedule = append(schedule, snapped)
		}
		if step := freq.StepMonths(); step > 0 {
			target = util.AddMonths(target, step)
		} else {
			target = target.AddDate(0, 0, 7)
		}
	}
	if len(schedule) == 0 {
		return nil, fmt.Errorf("%w: lookback of %d months leaves no rebalance dates in %s..%s",
			models.ErrDataInsufficiency, lookbackMonths, util.FormatDate(panel.Start()), util.FormatDate(end))
	}
	return schedule, nil
}
