package websocket

import (
	"github.com/planforge/api/internal/app"
)

// PlanProgressNotifier pushes plan generation progress through the hub. It
// implements app.PlanProgressNotifier.
//
// Every event goes to the generating user's channel and to the project's plan
// channel, so both the dashboard and a project detail view can follow along.
type PlanProgressNotifier struct {
	hub *Hub
}

// NewPlanProgressNotifier creates a new notifier backed by the hub.
func NewPlanProgressNotifier(hub *Hub) *PlanProgressNotifier {
	return &PlanProgressNotifier{hub: hub}
}

// NotifyPlanProgress broadcasts one progress event.
func (n *PlanProgressNotifier) NotifyPlanProgress(userID string, event app.PlanProgressEvent) {
	userChannel := MakeChannel(ChannelTypeUser, userID)
	n.hub.BroadcastEvent(userChannel, event, userID)

	if event.ProjectID != "" {
		planChannel := MakeChannel(ChannelTypePlan, event.ProjectID)
		n.hub.BroadcastEvent(planChannel, event, "")
	}
}

var _ app.PlanProgressNotifier = (*PlanProgressNotifier)(nil)
