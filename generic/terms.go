/*
terms.go - Typed contract terms

PURPOSE:
  Terms is the key-by-name accessor the engine reads contract attributes
  through. Values are stored already typed; raw text is converted upstream
  by the factory package.

OPTIONAL VS REQUIRED:
  Required getters (Date, Decimal, String, ...) return an AttributeError
  when the attribute is missing or has the wrong kind. Optional getters
  (OptDate, OptDecimal, ...) return an Optional and never fail on absence;
  a present value of the wrong kind is still an error.

CONTRACT STRUCTURE:
  Composite instruments reference other contracts through the
  contractStructure attribute: nested terms (swap legs, cap/floor
  underlier), contract IDs (covered contracts of a guarantee) or market
  object codes (option underlier prices).

SEE ALSO:
  - attributes.go: Vocabulary and kinds
  - factory/terms.go: Raw document conversion
*/
package generic

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONTRACT REFERENCES
// =============================================================================

// ReferenceRole is the role a referenced contract plays.
type ReferenceRole string

const (
	RefUnderlying ReferenceRole = "UDL"  // underlier
	RefFirstLeg   ReferenceRole = "FIL"  // first leg
	RefSecondLeg  ReferenceRole = "SEL"  // second leg
	RefCovered    ReferenceRole = "COVE" // covered contract
	RefCovering   ReferenceRole = "COVI" // covering contract (collateral)
)

// ContractReference points at one related contract. Exactly one of Terms,
// ContractID and MarketObject is set.
type ContractReference struct {
	Role         ReferenceRole
	Terms        *Terms
	ContractID   ContractID
	MarketObject string
}

// =============================================================================
// TERMS
// =============================================================================

// Terms holds typed contract attributes.
type Terms struct {
	values map[Attribute]any
}

// NewTerms returns empty terms.
func NewTerms() *Terms {
	return &Terms{values: make(map[Attribute]any)}
}

// Set stores a typed value after checking it against the attribute's kind.
func (t *Terms) Set(a Attribute, v any) error {
	kind, ok := KindOf(a)
	if !ok {
		return &AttributeError{Attribute: a, Reason: "unknown attribute"}
	}
	if err := checkKind(a, kind, v); err != nil {
		return err
	}
	t.values[a] = v
	return nil
}

// MustSet is Set for literals known to be valid; it panics otherwise.
func (t *Terms) MustSet(a Attribute, v any) *Terms {
	if err := t.Set(a, v); err != nil {
		panic(err)
	}
	return t
}

// Delete removes attributes; absent ones are ignored.
func (t *Terms) Delete(attrs ...Attribute) {
	for _, a := range attrs {
		delete(t.values, a)
	}
}

// Has reports whether the attribute is present.
func (t *Terms) Has(a Attribute) bool {
	_, ok := t.values[a]
	return ok
}

// Attributes lists the present attributes in name order.
func (t *Terms) Attributes() []Attribute {
	out := make([]Attribute, 0, len(t.values))
	for a := range t.values {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Value returns the raw typed value.
func (t *Terms) Value(a Attribute) (any, bool) {
	v, ok := t.values[a]
	return v, ok
}

// Clone returns a shallow copy; nested reference terms are shared.
func (t *Terms) Clone() *Terms {
	c := NewTerms()
	for a, v := range t.values {
		c.values[a] = v
	}
	return c
}

func checkKind(a Attribute, kind Kind, v any) error {
	ok := false
	switch kind {
	case KindString, KindCycle:
		_, ok = v.(string)
	case KindDate:
		_, ok = v.(time.Time)
	case KindDecimal:
		_, ok = v.(decimal.Decimal)
	case KindInt:
		_, ok = v.(int)
	case KindReferences:
		_, ok = v.([]ContractReference)
	}
	if !ok {
		return &AttributeError{Attribute: a, Want: kind, Reason: fmt.Sprintf("got %T", v)}
	}
	return nil
}

func missing(a Attribute, k Kind) error {
	return &AttributeError{Attribute: a, Want: k, Reason: "missing"}
}

func lookup[T any](t *Terms, a Attribute, k Kind) (Optional[T], error) {
	raw, ok := t.values[a]
	if !ok {
		return None[T](), nil
	}
	v, ok := raw.(T)
	if !ok {
		return None[T](), &AttributeError{Attribute: a, Want: k, Reason: fmt.Sprintf("got %T", raw)}
	}
	return Some(v), nil
}

func require[T any](t *Terms, a Attribute, k Kind) (T, error) {
	o, err := lookup[T](t, a, k)
	if err != nil {
		var zero T
		return zero, err
	}
	v, ok := o.Get()
	if !ok {
		return v, missing(a, k)
	}
	return v, nil
}

// Required getters

func (t *Terms) Date(a Attribute) (time.Time, error) {
	return require[time.Time](t, a, KindDate)
}

func (t *Terms) Decimal(a Attribute) (decimal.Decimal, error) {
	return require[decimal.Decimal](t, a, KindDecimal)
}

func (t *Terms) String(a Attribute) (string, error) {
	return require[string](t, a, KindString)
}

func (t *Terms) Cycle(a Attribute) (string, error) {
	return require[string](t, a, KindCycle)
}

func (t *Terms) Int(a Attribute) (int, error) {
	return require[int](t, a, KindInt)
}

// Optional getters

func (t *Terms) OptDate(a Attribute) (Optional[time.Time], error) {
	return lookup[time.Time](t, a, KindDate)
}

func (t *Terms) OptDecimal(a Attribute) (Optional[decimal.Decimal], error) {
	return lookup[decimal.Decimal](t, a, KindDecimal)
}

func (t *Terms) OptString(a Attribute) (Optional[string], error) {
	return lookup[string](t, a, KindString)
}

func (t *Terms) OptCycle(a Attribute) (Optional[string], error) {
	return lookup[string](t, a, KindCycle)
}

// DecimalOr returns the attribute or def when absent.
func (t *Terms) DecimalOr(a Attribute, def decimal.Decimal) (decimal.Decimal, error) {
	o, err := t.OptDecimal(a)
	if err != nil {
		return def, err
	}
	return o.OrElse(def), nil
}

// StringOr returns the attribute or def when absent.
func (t *Terms) StringOr(a Attribute, def string) (string, error) {
	o, err := t.OptString(a)
	if err != nil {
		return def, err
	}
	return o.OrElse(def), nil
}

// References returns the contract structure, filtered by role when roles
// are given.
func (t *Terms) References(roles ...ReferenceRole) ([]ContractReference, error) {
	o, err := lookup[[]ContractReference](t, AttrContractStructure, KindReferences)
	if err != nil {
		return nil, err
	}
	refs, _ := o.Get()
	if len(roles) == 0 {
		return refs, nil
	}
	var out []ContractReference
	for _, r := range refs {
		for _, role := range roles {
			if r.Role == role {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

// Reference returns the single reference with the given role.
func (t *Terms) Reference(role ReferenceRole) (ContractReference, error) {
	refs, err := t.References(role)
	if err != nil {
		return ContractReference{}, err
	}
	if len(refs) != 1 {
		return ContractReference{}, &AttributeError{
			Attribute: AttrContractStructure,
			Want:      KindReferences,
			Reason:    fmt.Sprintf("want exactly one %s reference, got %d", role, len(refs)),
		}
	}
	return refs[0], nil
}

// =============================================================================
// COMMON ACCESSORS
// =============================================================================

// ContractID returns the contract identifier, or "" when absent.
func (t *Terms) ContractID() ContractID {
	v, _ := t.values[AttrContractID].(string)
	return ContractID(v)
}

// ContractType returns the declared type tag.
func (t *Terms) ContractType() (string, error) {
	return t.String(AttrContractType)
}

// StatusDate returns the required status date.
func (t *Terms) StatusDate() (time.Time, error) {
	return t.Date(AttrStatusDate)
}

// Currency returns the settlement currency, or "" when absent.
func (t *Terms) Currency() string {
	v, _ := t.values[AttrCurrency].(string)
	return v
}

// RoleSign returns the sign of the declared contract role.
func (t *Terms) RoleSign() (decimal.Decimal, error) {
	role, err := t.String(AttrContractRole)
	if err != nil {
		return Zero, err
	}
	s, err := ContractRole(role).Sign()
	if err != nil {
		return Zero, err
	}
	return decimal.NewFromInt(s), nil
}
