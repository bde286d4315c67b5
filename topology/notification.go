package topology

import (
	"fmt"
	"strings"
)

const (
	PipelineEventSource     = "aws.codepipeline"
	PipelineExecutionChange = "CodePipeline Pipeline Execution State Change"
	StateFailed             = "FAILED"
)

// Event is the part of a bus event the filter looks at.
type Event struct {
	Source     string         `json:"source"`
	DetailType string         `json:"detail-type"`
	Detail     map[string]any `json:"detail"`
}

// EventFilter matches when the source and detail type are listed and every
// Detail key holds one of its allowed values.
type EventFilter struct {
	Sources     []string            `json:"source" yaml:"source"`
	DetailTypes []string            `json:"detail-type" yaml:"detail-type"`
	Detail      map[string][]string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (f EventFilter) Matches(e Event) bool {
	if !contains(f.Sources, e.Source) || !contains(f.DetailTypes, e.DetailType) {
		return false
	}
	for key, allowed := range f.Detail {
		v, ok := e.Detail[key].(string)
		if !ok || !contains(allowed, v) {
			return false
		}
	}
	return true
}

// Message is a text template whose %s verbs are filled, in order, from
// the JSON paths in Paths.
type Message struct {
	Format string   `json:"format" yaml:"format"`
	Paths  []string `json:"paths" yaml:"paths"`
}

// Render fills the template from e. Missing fields render empty.
func (m Message) Render(e Event) string {
	args := make([]any, len(m.Paths))
	for i, p := range m.Paths {
		args[i] = lookup(e, p)
	}
	return fmt.Sprintf(m.Format, args...)
}

func lookup(e Event, path string) string {
	key, ok := strings.CutPrefix(path, "$.detail.")
	if !ok {
		switch path {
		case "$.source":
			return e.Source
		case "$.detail-type":
			return e.DetailType
		}
		return ""
	}
	v, _ := e.Detail[key].(string)
	return v
}

type Topic struct {
	Name        string   `json:"name" yaml:"name"`
	DisplayName string   `json:"displayName" yaml:"displayName"`
	Subscribers []string `json:"subscribers" yaml:"subscribers"`
}

// NotificationRule routes matching events to a topic.
type NotificationRule struct {
	Name    string      `json:"name" yaml:"name"`
	Filter  EventFilter `json:"filter" yaml:"filter"`
	Message Message     `json:"message" yaml:"message"`
	Topic   Topic       `json:"topic" yaml:"topic"`
}

func newNotificationRule(pipeline, email string) NotificationRule {
	return NotificationRule{
		Name: pipeline + "-failed",
		Filter: EventFilter{
			Sources:     []string{PipelineEventSource},
			DetailTypes: []string{PipelineExecutionChange},
			Detail: map[string][]string{
				"state":    {StateFailed},
				"pipeline": {pipeline},
			},
		},
		Message: Message{
			Format: "The pipeline %s has failed. Execution ID: %s",
			Paths:  []string{"$.detail.pipeline", "$.detail.execution-id"},
		},
		Topic: Topic{
			Name:        pipeline + "-alerts",
			DisplayName: "Pipeline Alerts",
			Subscribers: []string{email},
		},
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
