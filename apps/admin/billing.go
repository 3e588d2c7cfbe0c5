package main

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/alama/core/period"
)

const dayLayout = "2006-01-02"

var nowFunc = time.Now // mockable

// evaluateBilling runs the billing evaluation of the branch for month and reports who got deactivated.
func (cli *commandLine) evaluateBilling(branchID, month string) error {
	ev, err := cli.billingSvc.Evaluate(context.Background(), branchID, month)
	if err != nil {
		return err
	}
	cli.printf("pricing %s: %d fully paid, %d deactivated\n", ev.Pricing.Month, len(ev.FullyPaid), len(ev.Deactivated))
	for _, id := range ev.Deactivated {
		cli.printf("  - %s\n", id)
	}
	return nil
}

// period prints the inclusive bounds of the month window.
func (cli *commandLine) period(mode, month string) error {
	ref := nowFunc()
	if month != "" {
		var err error
		if ref, err = period.ParseMonth(month, ref.Location()); err != nil {
			return err
		}
	}
	w, err := period.Resolve(ref, period.Mode(strings.ToLower(mode)))
	if err != nil {
		return err
	}
	cli.printf("%s .. %s\n", w.Start.Format(dayLayout), w.Last().Format(dayLayout))
	return nil
}
