package instruments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/generic"
)

// termReader reads many attributes and keeps the first error, so recipe
// constructors can read everything and check once.
type termReader struct {
	t   *generic.Terms
	err error
}

func read(t *generic.Terms) *termReader {
	return &termReader{t: t}
}

func (r *termReader) keep(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *termReader) date(a generic.Attribute) time.Time {
	v, err := r.t.Date(a)
	r.keep(err)
	return v
}

func (r *termReader) optDate(a generic.Attribute) generic.Optional[time.Time] {
	v, err := r.t.OptDate(a)
	r.keep(err)
	return v
}

func (r *termReader) dec(a generic.Attribute) decimal.Decimal {
	v, err := r.t.Decimal(a)
	r.keep(err)
	return v
}

func (r *termReader) decOr(a generic.Attribute, def decimal.Decimal) decimal.Decimal {
	v, err := r.t.DecimalOr(a, def)
	r.keep(err)
	return v
}

func (r *termReader) optDec(a generic.Attribute) generic.Optional[decimal.Decimal] {
	v, err := r.t.OptDecimal(a)
	r.keep(err)
	return v
}

func (r *termReader) str(a generic.Attribute) string {
	v, err := r.t.String(a)
	r.keep(err)
	return v
}

func (r *termReader) strOr(a generic.Attribute, def string) string {
	v, err := r.t.StringOr(a, def)
	r.keep(err)
	return v
}

func (r *termReader) optCycle(a generic.Attribute) generic.Optional[string] {
	v, err := r.t.OptCycle(a)
	r.keep(err)
	return v
}

func (r *termReader) roleSign() decimal.Decimal {
	v, err := r.t.RoleSign()
	r.keep(err)
	return v
}

func (r *termReader) statusDate() time.Time {
	return r.date(generic.AttrStatusDate)
}

func (r *termReader) performance() generic.Performance {
	code := r.strOr(generic.AttrContractPerformance, string(generic.PerformancePerforming))
	p, err := generic.ParsePerformance(code)
	if err != nil {
		r.keep(&generic.AttributeError{Attribute: generic.AttrContractPerformance, Want: generic.KindString, Reason: err.Error()})
	}
	return p
}
