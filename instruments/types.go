package instruments

import (
	"fmt"
	"strings"

	"github.com/warp/cashflow-engine/generic"
)

// ContractType is the closed set of instrument types the engine evaluates.
type ContractType int

const (
	PAM   ContractType = iota // principal at maturity
	LAM                       // linear amortizer
	NAM                       // negative amortizer
	ANN                       // annuity
	CLM                       // call money
	UMP                       // undefined maturity profile
	CSH                       // cash
	STK                       // stock
	COM                       // commodity
	FXOUT                     // foreign exchange outright
	SWPPV                     // plain vanilla interest rate swap
	SWAPS                     // swap of two child legs
	CAPFL                     // cap / floor
	CDS                       // credit default swap
	MAR                       // margining account
	OPTNS                     // option
	FUTUR                     // future
	CEG                       // credit enhancement guarantee
	CEC                       // credit enhancement collateral

	contractTypeCount
)

var contractTypeNames = [contractTypeCount]string{
	PAM:   "PAM",
	LAM:   "LAM",
	NAM:   "NAM",
	ANN:   "ANN",
	CLM:   "CLM",
	UMP:   "UMP",
	CSH:   "CSH",
	STK:   "STK",
	COM:   "COM",
	FXOUT: "FXOUT",
	SWPPV: "SWPPV",
	SWAPS: "SWAPS",
	CAPFL: "CAPFL",
	CDS:   "CDS",
	MAR:   "MAR",
	OPTNS: "OPTNS",
	FUTUR: "FUTUR",
	CEG:   "CEG",
	CEC:   "CEC",
}

var contractTypeDescriptions = [contractTypeCount]string{
	PAM:   "principal at maturity",
	LAM:   "linear amortizer",
	NAM:   "negative amortizer",
	ANN:   "annuity",
	CLM:   "call money",
	UMP:   "undefined maturity profile",
	CSH:   "cash",
	STK:   "stock",
	COM:   "commodity",
	FXOUT: "foreign exchange outright",
	SWPPV: "plain vanilla interest rate swap",
	SWAPS: "swap",
	CAPFL: "cap / floor",
	CDS:   "credit default swap",
	MAR:   "margining account",
	OPTNS: "option",
	FUTUR: "future",
	CEG:   "credit enhancement guarantee",
	CEC:   "credit enhancement collateral",
}

func (c ContractType) Valid() bool {
	return c >= 0 && c < contractTypeCount
}

func (c ContractType) String() string {
	if !c.Valid() {
		return fmt.Sprintf("ContractType(%d)", int(c))
	}
	return contractTypeNames[c]
}

// Description is the human-readable name.
func (c ContractType) Description() string {
	if !c.Valid() {
		return ""
	}
	return contractTypeDescriptions[c]
}

func (c ContractType) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid contract type %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *ContractType) UnmarshalText(b []byte) error {
	parsed, err := ParseContractType(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseContractType resolves a type tag, ignoring case.
func ParseContractType(tag string) (ContractType, error) {
	code := strings.ToUpper(strings.TrimSpace(tag))
	for i, name := range contractTypeNames {
		if name == code {
			return ContractType(i), nil
		}
	}
	return 0, &generic.UnknownContractTypeError{Tag: tag}
}

// AllContractTypes lists every type in declaration order.
func AllContractTypes() []ContractType {
	out := make([]ContractType, 0, contractTypeCount)
	for c := ContractType(0); c < contractTypeCount; c++ {
		out = append(out, c)
	}
	return out
}
