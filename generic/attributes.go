package generic

import "fmt"

// =============================================================================
// ATTRIBUTE VOCABULARY - The fixed set of contract term names
// =============================================================================

// Attribute names a contract term.
type Attribute string

// Kind is the value type an attribute holds.
type Kind int

const (
	KindString Kind = iota
	KindDate
	KindDecimal
	KindInt
	KindCycle
	KindReferences
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindDecimal:
		return "decimal"
	case KindInt:
		return "int"
	case KindCycle:
		return "cycle"
	case KindReferences:
		return "references"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Identity and conventions
const (
	AttrContractType          Attribute = "contractType"
	AttrContractID            Attribute = "contractID"
	AttrStatusDate            Attribute = "statusDate"
	AttrContractRole          Attribute = "contractRole"
	AttrCurrency              Attribute = "currency"
	AttrCurrency2             Attribute = "currency2"
	AttrContractDealDate      Attribute = "contractDealDate"
	AttrMarketObjectCode      Attribute = "marketObjectCode"
	AttrContractPerformance   Attribute = "contractPerformance"
	AttrNonPerformingDate     Attribute = "nonPerformingDate"
	AttrDayCountConvention    Attribute = "dayCountConvention"
	AttrBusinessDayConvention Attribute = "businessDayConvention"
	AttrCalendar              Attribute = "calendar"
	AttrEndOfMonthConvention  Attribute = "endOfMonthConvention"
	AttrContractStructure     Attribute = "contractStructure"
)

// Notional and interest
const (
	AttrInitialExchangeDate              Attribute = "initialExchangeDate"
	AttrMaturityDate                     Attribute = "maturityDate"
	AttrNotionalPrincipal                Attribute = "notionalPrincipal"
	AttrNotionalPrincipal2               Attribute = "notionalPrincipal2"
	AttrNominalInterestRate              Attribute = "nominalInterestRate"
	AttrNominalInterestRate2             Attribute = "nominalInterestRate2"
	AttrAccruedInterest                  Attribute = "accruedInterest"
	AttrPremiumDiscountAtIED             Attribute = "premiumDiscountAtIED"
	AttrCycleAnchorDateOfInterestPayment Attribute = "cycleAnchorDateOfInterestPayment"
	AttrCycleOfInterestPayment           Attribute = "cycleOfInterestPayment"
	AttrCapitalizationEndDate            Attribute = "capitalizationEndDate"
)

// Principal redemption and interest calculation base
const (
	AttrCycleAnchorDateOfPrincipalRedemption     Attribute = "cycleAnchorDateOfPrincipalRedemption"
	AttrCycleOfPrincipalRedemption               Attribute = "cycleOfPrincipalRedemption"
	AttrNextPrincipalRedemptionPayment           Attribute = "nextPrincipalRedemptionPayment"
	AttrCycleAnchorDateOfInterestCalculationBase Attribute = "cycleAnchorDateOfInterestCalculationBase"
	AttrCycleOfInterestCalculationBase           Attribute = "cycleOfInterestCalculationBase"
	AttrInterestCalculationBase                  Attribute = "interestCalculationBase"
	AttrInterestCalculationBaseAmount            Attribute = "interestCalculationBaseAmount"
)

// Rate reset
const (
	AttrCycleAnchorDateOfRateReset  Attribute = "cycleAnchorDateOfRateReset"
	AttrCycleOfRateReset            Attribute = "cycleOfRateReset"
	AttrRateSpread                  Attribute = "rateSpread"
	AttrRateMultiplier              Attribute = "rateMultiplier"
	AttrNextResetRate               Attribute = "nextResetRate"
	AttrMarketObjectCodeOfRateReset Attribute = "marketObjectCodeOfRateReset"
	AttrPeriodCap                   Attribute = "periodCap"
	AttrPeriodFloor                 Attribute = "periodFloor"
	AttrLifeCap                     Attribute = "lifeCap"
	AttrLifeFloor                   Attribute = "lifeFloor"
)

// Fees, scaling and prepayment
const (
	AttrCycleAnchorDateOfFee           Attribute = "cycleAnchorDateOfFee"
	AttrCycleOfFee                     Attribute = "cycleOfFee"
	AttrFeeRate                        Attribute = "feeRate"
	AttrFeeBasis                       Attribute = "feeBasis"
	AttrFeeAccrued                     Attribute = "feeAccrued"
	AttrCycleAnchorDateOfScalingIndex  Attribute = "cycleAnchorDateOfScalingIndex"
	AttrCycleOfScalingIndex            Attribute = "cycleOfScalingIndex"
	AttrScalingEffect                  Attribute = "scalingEffect"
	AttrScalingIndexAtStatusDate       Attribute = "scalingIndexAtStatusDate"
	AttrMarketObjectCodeOfScalingIndex Attribute = "marketObjectCodeOfScalingIndex"
	AttrPenaltyType                    Attribute = "penaltyType"
	AttrPenaltyRate                    Attribute = "penaltyRate"
)

// Purchase, termination and trading
const (
	AttrPurchaseDate                Attribute = "purchaseDate"
	AttrPriceAtPurchaseDate         Attribute = "priceAtPurchaseDate"
	AttrTerminationDate             Attribute = "terminationDate"
	AttrPriceAtTerminationDate      Attribute = "priceAtTerminationDate"
	AttrQuantity                    Attribute = "quantity"
	AttrCycleAnchorDateOfDividend   Attribute = "cycleAnchorDateOfDividend"
	AttrCycleOfDividend             Attribute = "cycleOfDividend"
	AttrMarketObjectCodeOfDividends Attribute = "marketObjectCodeOfDividends"
	AttrDeliverySettlement          Attribute = "deliverySettlement"
	AttrSettlementPeriod            Attribute = "settlementPeriod"
	AttrXDayNotice                  Attribute = "xDayNotice"
)

// Options, futures and margining
const (
	AttrOptionType                  Attribute = "optionType"
	AttrOptionStrike1               Attribute = "optionStrike1"
	AttrOptionStrike2               Attribute = "optionStrike2"
	AttrOptionExerciseType          Attribute = "optionExerciseType"
	AttrOptionExerciseEndDate       Attribute = "optionExerciseEndDate"
	AttrFuturesPrice                Attribute = "futuresPrice"
	AttrExerciseDate                Attribute = "exerciseDate"
	AttrExerciseAmount              Attribute = "exerciseAmount"
	AttrCycleAnchorDateOfMargining  Attribute = "cycleAnchorDateOfMargining"
	AttrCycleOfMargining            Attribute = "cycleOfMargining"
	AttrInitialMargin               Attribute = "initialMargin"
	AttrMaintenanceMarginLowerBound Attribute = "maintenanceMarginLowerBound"
	AttrMaintenanceMarginUpperBound Attribute = "maintenanceMarginUpperBound"
)

// Credit enhancement and credit default swaps
const (
	AttrCoverageOfCreditEnhancement Attribute = "coverageOfCreditEnhancement"
	AttrGuaranteedExposure          Attribute = "guaranteedExposure"
	AttrCreditEventTypeCovered      Attribute = "creditEventTypeCovered"
)

// vocabulary declares the kind of every known attribute.
var vocabulary = map[Attribute]Kind{
	AttrContractType:          KindString,
	AttrContractID:            KindString,
	AttrStatusDate:            KindDate,
	AttrContractRole:          KindString,
	AttrCurrency:              KindString,
	AttrCurrency2:             KindString,
	AttrContractDealDate:      KindDate,
	AttrMarketObjectCode:      KindString,
	AttrContractPerformance:   KindString,
	AttrNonPerformingDate:     KindDate,
	AttrDayCountConvention:    KindString,
	AttrBusinessDayConvention: KindString,
	AttrCalendar:              KindString,
	AttrEndOfMonthConvention:  KindString,
	AttrContractStructure:     KindReferences,

	AttrInitialExchangeDate:              KindDate,
	AttrMaturityDate:                     KindDate,
	AttrNotionalPrincipal:                KindDecimal,
	AttrNotionalPrincipal2:               KindDecimal,
	AttrNominalInterestRate:              KindDecimal,
	AttrNominalInterestRate2:             KindDecimal,
	AttrAccruedInterest:                  KindDecimal,
	AttrPremiumDiscountAtIED:             KindDecimal,
	AttrCycleAnchorDateOfInterestPayment: KindDate,
	AttrCycleOfInterestPayment:           KindCycle,
	AttrCapitalizationEndDate:            KindDate,

	AttrCycleAnchorDateOfPrincipalRedemption:     KindDate,
	AttrCycleOfPrincipalRedemption:               KindCycle,
	AttrNextPrincipalRedemptionPayment:           KindDecimal,
	AttrCycleAnchorDateOfInterestCalculationBase: KindDate,
	AttrCycleOfInterestCalculationBase:           KindCycle,
	AttrInterestCalculationBase:                  KindString,
	AttrInterestCalculationBaseAmount:            KindDecimal,

	AttrCycleAnchorDateOfRateReset:  KindDate,
	AttrCycleOfRateReset:            KindCycle,
	AttrRateSpread:                  KindDecimal,
	AttrRateMultiplier:              KindDecimal,
	AttrNextResetRate:               KindDecimal,
	AttrMarketObjectCodeOfRateReset: KindString,
	AttrPeriodCap:                   KindDecimal,
	AttrPeriodFloor:                 KindDecimal,
	AttrLifeCap:                     KindDecimal,
	AttrLifeFloor:                   KindDecimal,

	AttrCycleAnchorDateOfFee:           KindDate,
	AttrCycleOfFee:                     KindCycle,
	AttrFeeRate:                        KindDecimal,
	AttrFeeBasis:                       KindString,
	AttrFeeAccrued:                     KindDecimal,
	AttrCycleAnchorDateOfScalingIndex:  KindDate,
	AttrCycleOfScalingIndex:            KindCycle,
	AttrScalingEffect:                  KindString,
	AttrScalingIndexAtStatusDate:       KindDecimal,
	AttrMarketObjectCodeOfScalingIndex: KindString,
	AttrPenaltyType:                    KindString,
	AttrPenaltyRate:                    KindDecimal,

	AttrPurchaseDate:                KindDate,
	AttrPriceAtPurchaseDate:         KindDecimal,
	AttrTerminationDate:             KindDate,
	AttrPriceAtTerminationDate:      KindDecimal,
	AttrQuantity:                    KindDecimal,
	AttrCycleAnchorDateOfDividend:   KindDate,
	AttrCycleOfDividend:             KindCycle,
	AttrMarketObjectCodeOfDividends: KindString,
	AttrDeliverySettlement:          KindString,
	AttrSettlementPeriod:            KindCycle,
	AttrXDayNotice:                  KindCycle,

	AttrOptionType:                  KindString,
	AttrOptionStrike1:               KindDecimal,
	AttrOptionStrike2:               KindDecimal,
	AttrOptionExerciseType:          KindString,
	AttrOptionExerciseEndDate:       KindDate,
	AttrFuturesPrice:                KindDecimal,
	AttrExerciseDate:                KindDate,
	AttrExerciseAmount:              KindDecimal,
	AttrCycleAnchorDateOfMargining:  KindDate,
	AttrCycleOfMargining:            KindCycle,
	AttrInitialMargin:               KindDecimal,
	AttrMaintenanceMarginLowerBound: KindDecimal,
	AttrMaintenanceMarginUpperBound: KindDecimal,

	AttrCoverageOfCreditEnhancement: KindDecimal,
	AttrGuaranteedExposure:          KindString,
	AttrCreditEventTypeCovered:      KindString,
}

// KindOf returns the declared kind of an attribute.
func KindOf(a Attribute) (Kind, bool) {
	k, ok := vocabulary[a]
	return k, ok
}

// Vocabulary returns every known attribute with its kind.
func Vocabulary() map[Attribute]Kind {
	out := make(map[Attribute]Kind, len(vocabulary))
	for a, k := range vocabulary {
		out[a] = k
	}
	return out
}

// =============================================================================
// CONTRACT ROLE
// =============================================================================

// ContractRole is the side the modelled party takes.
type ContractRole string

const (
	RoleRPA ContractRole = "RPA" // real position asset
	RoleRPL ContractRole = "RPL" // real position liability
	RoleLG  ContractRole = "LG"  // long
	RoleST  ContractRole = "ST"  // short
	RoleRFL ContractRole = "RFL" // receive first leg
	RolePFL ContractRole = "PFL" // pay first leg
	RoleBUY ContractRole = "BUY" // protection buyer
	RoleSEL ContractRole = "SEL" // protection seller
	RoleCOL ContractRole = "COL" // collateral position
	RoleCNO ContractRole = "CNO" // close-out netting
	RoleGUA ContractRole = "GUA" // guarantor
	RoleOBL ContractRole = "OBL" // obligee
)

// Sign returns +1 for asset-side roles and -1 for liability-side roles.
func (r ContractRole) Sign() (int64, error) {
	switch r {
	case RoleRPA, RoleLG, RoleRFL, RoleBUY, RoleCOL, RoleCNO, RoleOBL:
		return 1, nil
	case RoleRPL, RoleST, RolePFL, RoleSEL, RoleGUA:
		return -1, nil
	}
	return 0, &AttributeError{Attribute: AttrContractRole, Want: KindString, Reason: fmt.Sprintf("unknown role %q", string(r))}
}
