// Package lifecycle implements the forward-only order stage machine.
package lifecycle

import (
	"github.com/kitchenconnect/kitchen-service/internal/models"
)

// StageInfo describes one stage of the progression
type StageInfo struct {
	Stage   models.OrderStage `json:"stage"`
	Ordinal int               `json:"ordinal"`
	Label   string            `json:"label"`
	// Responsible lists the roles allowed to move an order into this stage
	Responsible []models.UserRole `json:"responsible"`
}

// stages is the authoritative progression, in order
var stages = []StageInfo{
	{Stage: models.StagePlaced, Label: "Order Placed"},
	{Stage: models.StageConfirmed, Label: "Order Confirmed", Responsible: []models.UserRole{models.RoleChef}},
	{Stage: models.StagePreparing, Label: "Preparing", Responsible: []models.UserRole{models.RoleChef}},
	{Stage: models.StageReady, Label: "Ready for Pickup", Responsible: []models.UserRole{models.RoleChef}},
	{Stage: models.StagePickedUp, Label: "Picked Up", Responsible: []models.UserRole{models.RoleDriver}},
	{Stage: models.StageInDelivery, Label: "In Delivery", Responsible: []models.UserRole{models.RoleDriver}},
	{Stage: models.StageDelivered, Label: "Delivered", Responsible: []models.UserRole{models.RoleDriver}},
}

var ordinals = func() map[models.OrderStage]int {
	m := make(map[models.OrderStage]int, len(stages))
	for i := range stages {
		stages[i].Ordinal = i
		m[stages[i].Stage] = i
	}
	return m
}()

// Initial is the stage every order is created in
const Initial = models.StagePlaced

// Terminal is the stage with no outgoing transition
const Terminal = models.StageDelivered

// Stages returns the progression in order
func Stages() []StageInfo {
	out := make([]StageInfo, len(stages))
	copy(out, stages)
	return out
}

// Lookup returns the description of a stage
func Lookup(stage models.OrderStage) (StageInfo, bool) {
	i, ok := ordinals[stage]
	if !ok {
		return StageInfo{}, false
	}
	return stages[i], true
}

// Ordinal returns the position of stage in the progression, or -1 if unknown
func Ordinal(stage models.OrderStage) int {
	if i, ok := ordinals[stage]; ok {
		return i
	}
	return -1
}

// IsValid reports whether stage is part of the progression
func IsValid(stage models.OrderStage) bool {
	_, ok := ordinals[stage]
	return ok
}

// IsTerminal reports whether no transition leaves stage
func IsTerminal(stage models.OrderStage) bool {
	return stage == Terminal
}

// Label returns the display label, or the raw tag for unknown stages
func Label(stage models.OrderStage) string {
	if info, ok := Lookup(stage); ok {
		return info.Label
	}
	return string(stage)
}

// Progress is the completion percentage shown by progress bars
func Progress(stage models.OrderStage) int {
	i := Ordinal(stage)
	if i < 0 {
		return 0
	}
	return i * 100 / (len(stages) - 1)
}

// successor returns the stage immediately after stage
func successor(stage models.OrderStage) (models.OrderStage, bool) {
	i, ok := ordinals[stage]
	if !ok || i+1 >= len(stages) {
		return "", false
	}
	return stages[i+1].Stage, true
}
