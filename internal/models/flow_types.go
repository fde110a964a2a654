// Package models defines flow type definitions to avoid circular imports.
package models

// FlowType represents a specific multi-turn conversation flow.
type FlowType string

// StepTag represents a specific step within a flow.
type StepTag string

// DataKey represents a key for storing partial session data.
type DataKey string

// Flow type constants.
const (
	FlowTypeBusiness FlowType = "business"
	FlowTypeListing  FlowType = "listing"
)

// Step constants for the business-registration flow.
const (
	StepAwaitingBusinessName StepTag = "AWAITING_BUSINESS_NAME"
	StepAwaitingLocation     StepTag = "AWAITING_LOCATION"
)

// Step constants for the listing-registration flow.
const (
	StepAwaitingItemTitle StepTag = "AWAITING_ITEM_TITLE"
	StepAwaitingVehicle   StepTag = "AWAITING_VEHICLE"
	StepAwaitingCondition StepTag = "AWAITING_CONDITION"
	StepAwaitingPrice     StepTag = "AWAITING_PRICE"
)

// AllSteps lists every declared step in flow order.
var AllSteps = []StepTag{
	StepAwaitingBusinessName,
	StepAwaitingLocation,
	StepAwaitingItemTitle,
	StepAwaitingVehicle,
	StepAwaitingCondition,
	StepAwaitingPrice,
}

// FlowOf returns the flow a step belongs to, or "" for an unknown step.
func FlowOf(step StepTag) FlowType {
	switch step {
	case StepAwaitingBusinessName, StepAwaitingLocation:
		return FlowTypeBusiness
	case StepAwaitingItemTitle, StepAwaitingVehicle, StepAwaitingCondition, StepAwaitingPrice:
		return FlowTypeListing
	default:
		return ""
	}
}

// Data key constants for session data.
const (
	DataKeyUserID       DataKey = "userID"
	DataKeyBusinessName DataKey = "businessName"
	DataKeyTitle        DataKey = "title"
	DataKeyVehicle      DataKey = "vehicle"
	DataKeyCondition    DataKey = "condition"
)
