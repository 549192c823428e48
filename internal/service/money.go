package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-finance-api/internal/models"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// Clock returns the current time. Services take one so tests can pin today.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

func amount(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func optionalAmount(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// totalDue is the amount owed on a master after discount and fine.
func totalDue(master *models.FeeMaster, discount, fine decimal.Decimal) decimal.Decimal {
	return amount(master.Amount).Sub(discount).Add(fine)
}

// adjusts reports whether a requested amount differs from the stored one.
// An omitted request value never does.
func adjusts(requested, stored *float64) bool {
	if requested == nil {
		return false
	}
	return !amount(*requested).Equal(optionalAmount(stored))
}

// deriveStatus maps accumulated payment against the amount due.
func deriveStatus(paid, due decimal.Decimal) models.FeeStatus {
	switch {
	case paid.GreaterThanOrEqual(due):
		return models.FeeStatusPaid
	case paid.IsZero():
		return models.FeeStatusUnpaid
	default:
		return models.FeeStatusPartial
	}
}

// lateFine applies the master's fine policy. It does not check whether the
// obligation is overdue.
func lateFine(master *models.FeeMaster) decimal.Decimal {
	fineAmount := optionalAmount(master.FineAmount)
	switch master.FineType {
	case models.FineTypeFixed:
		return fineAmount
	case models.FineTypePercentage:
		return amount(master.Amount).Mul(fineAmount).Div(decimal.NewFromInt(100))
	default:
		return decimal.Zero
	}
}

// validDate accepts only canonical YYYY-MM-DD strings.
func validDate(value string) bool {
	t, err := time.Parse(dateLayout, value)
	return err == nil && t.Format(dateLayout) == value
}

func validMonth(value string) bool {
	t, err := time.Parse(monthLayout, value)
	return err == nil && t.Format(monthLayout) == value
}

// isInRange compares ISO dates as strings, inclusive at both ends. A nil
// bound is open.
func isInRange(date string, start, end *string) bool {
	if start != nil && date < *start {
		return false
	}
	if end != nil && date > *end {
		return false
	}
	return true
}

// normalizeRange trims empty bounds to nil and validates the rest.
func normalizeRange(start, end *string) (*string, *string, error) {
	clean := func(v *string) *string {
		if v == nil || *v == "" {
			return nil
		}
		return v
	}
	start, end = clean(start), clean(end)
	if start != nil && !validDate(*start) {
		return nil, nil, errInvalidDate("startDate")
	}
	if end != nil && !validDate(*end) {
		return nil, nil, errInvalidDate("endDate")
	}
	if start != nil && end != nil && *start > *end {
		return nil, nil, errValidation("startDate must not be after endDate")
	}
	return start, end, nil
}
