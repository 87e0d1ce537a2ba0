package core

import "context"

// RosterListener is called after the students or instructors of a course change.
type RosterListener func(ctx context.Context, courseID string)

// RosterNotifier keeps the listeners of a service that writes course members.
type RosterNotifier struct {
	listeners []RosterListener
}

// OnRosterChange registers l; it is not safe to call once the service is in use.
func (n *RosterNotifier) OnRosterChange(l RosterListener) {
	n.listeners = append(n.listeners, l)
}

// NotifyRosterChange calls every listener once per distinct course.
func (n *RosterNotifier) NotifyRosterChange(ctx context.Context, courseIDs ...string) {
	seen := make(map[string]bool, len(courseIDs))
	for _, id := range courseIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, l := range n.listeners {
			l(ctx, id)
		}
	}
}
