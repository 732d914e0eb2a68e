package models

// Step is one state of the checkout wizard
type Step int

const (
	StepBilling Step = iota + 1
	StepRental
	StepMethod
	StepConfirm
	StepPay
)

func (s Step) String() string {
	switch s {
	case StepBilling:
		return "billing"
	case StepRental:
		return "rental"
	case StepMethod:
		return "method"
	case StepConfirm:
		return "confirm"
	case StepPay:
		return "pay"
	}
	return "unknown"
}
