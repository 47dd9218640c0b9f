package model_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/timeline-manager/internal/model"
)

func TestValidateEvent(t *testing.T) {
	tests := []struct {
		name  string
		event model.Event
		want  error
	}{
		{
			name:  "point",
			event: model.Event{Name: "Launch", Type: model.Point, StartDate: model.MustDate("2024-01-02")},
		},
		{
			name: "point ignores end date",
			event: model.Event{Name: "Launch", Type: model.Point,
				StartDate: model.MustDate("2024-01-02"), EndDate: model.MustDate("2023-01-01")},
		},
		{
			name: "one-day duration",
			event: model.Event{Name: "Sprint", Type: model.Duration,
				StartDate: model.MustDate("2024-01-02"), EndDate: model.MustDate("2024-01-02")},
		},
		{
			name: "duration ends before start",
			event: model.Event{Name: "Sprint", Type: model.Duration,
				StartDate: model.MustDate("2024-01-05"), EndDate: model.MustDate("2024-01-02")},
			want: model.ErrInvalidRange,
		},
		{
			name:  "duration without end",
			event: model.Event{Name: "Sprint", Type: model.Duration, StartDate: model.MustDate("2024-01-05")},
			want:  model.ErrInvalidRange,
		},
		{
			name:  "missing name",
			event: model.Event{Type: model.Point, StartDate: model.MustDate("2024-01-05")},
			want:  model.ErrInvalidEvent,
		},
		{
			name:  "unknown type",
			event: model.Event{Name: "X", StartDate: model.MustDate("2024-01-05")},
			want:  model.ErrUnknownEventType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := model.ValidateEvent(tt.event)
			if tt.want == nil && err != nil {
				t.Fatalf("ValidateEvent: unexpected error %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("ValidateEvent error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateTimelineRange(t *testing.T) {
	tl := &model.Timeline{
		Name:      "Backwards",
		StartDate: model.MustDate("2024-02-01"),
		EndDate:   model.MustDate("2024-01-01"),
	}
	if err := model.ValidateTimeline(tl); !errors.Is(err, model.ErrInvalidRange) {
		t.Fatalf("ValidateTimeline error = %v, want ErrInvalidRange", err)
	}

	tl.EndDate = tl.StartDate
	if err := model.ValidateTimeline(tl); err != nil {
		t.Fatalf("single-day timeline rejected: %v", err)
	}
}

func TestInRange(t *testing.T) {
	tl := &model.Timeline{StartDate: model.MustDate("2024-01-01"), EndDate: model.MustDate("2024-01-10")}
	tests := []struct {
		event model.Event
		want  bool
	}{
		{model.Event{Type: model.Point, StartDate: model.MustDate("2024-01-01")}, true},
		{model.Event{Type: model.Point, StartDate: model.MustDate("2024-01-10")}, true},
		{model.Event{Type: model.Point, StartDate: model.MustDate("2024-01-11")}, false},
		{model.Event{Type: model.Duration, StartDate: model.MustDate("2023-12-31"), EndDate: model.MustDate("2024-01-02")}, false},
		{model.Event{Type: model.Duration, StartDate: model.MustDate("2024-01-09"), EndDate: model.MustDate("2024-01-11")}, false},
		{model.Event{Type: model.Duration, StartDate: model.MustDate("2024-01-02"), EndDate: model.MustDate("2024-01-10")}, true},
	}
	for i, tt := range tests {
		if got := model.InRange(tl, tt.event); got != tt.want {
			t.Errorf("case %d: InRange = %v, want %v", i, got, tt.want)
		}
	}
}

func TestAllocateEventIDNeverReuses(t *testing.T) {
	tl := &model.Timeline{}
	first := tl.AllocateEventID()
	second := tl.AllocateEventID()
	if first != 1 || second != 2 {
		t.Fatalf("ids = %d, %d, want 1, 2", first, second)
	}

	// Simulate removing the newest event: the id must not come back.
	tl.Events = []model.Event{{ID: first}}
	if third := tl.AllocateEventID(); third != 3 {
		t.Errorf("third id = %d, want 3", third)
	}

	// A file written without next_event_id still yields fresh ids.
	loaded := &model.Timeline{Events: []model.Event{{ID: 7}, {ID: 4}}}
	if id := loaded.AllocateEventID(); id != 8 {
		t.Errorf("id after load = %d, want 8", id)
	}
}

func TestTimelineEncoding(t *testing.T) {
	tl := model.Timeline{
		ID:          "t1",
		Name:        "Project",
		StartDate:   model.MustDate("2024-01-01"),
		EndDate:     model.MustDate("2024-01-10"),
		NextEventID: 3,
		Events: []model.Event{
			{ID: 1, Name: "Kickoff", Type: model.Point, StartDate: model.MustDate("2024-01-02")},
			{ID: 2, Name: "Build", Type: model.Duration, StartDate: model.MustDate("2024-01-03"), EndDate: model.MustDate("2024-01-05")},
		},
		HasUnsavedChanges: true,
	}

	data, err := json.Marshal(tl)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"start_date":"2024-01-01"`, `"type":"POINT"`, `"type":"DURATION"`, `"end_date":"2024-01-05"`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON %s missing %s", s, want)
		}
	}
	if strings.Contains(s, "HasUnsavedChanges") || strings.Contains(s, `"end_date":null`) {
		t.Errorf("JSON leaked transient or empty fields: %s", s)
	}

	var fromJSON model.Timeline
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if !fromJSON.Events[1].EndDate.Equal(model.MustDate("2024-01-05")) {
		t.Errorf("JSON end date = %s", fromJSON.Events[1].EndDate)
	}

	doc := `
id: t2
name: From YAML
start_date: 2024-03-01
end_date: "2024-03-31"
events:
  - id: 1
    name: Release
    type: point
    start_date: 2024-03-15
`
	var fromYAML model.Timeline
	if err := yaml.Unmarshal([]byte(doc), &fromYAML); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if fromYAML.StartDate.String() != "2024-03-01" || fromYAML.EndDate.String() != "2024-03-31" {
		t.Errorf("YAML dates = %s..%s", fromYAML.StartDate, fromYAML.EndDate)
	}
	if len(fromYAML.Events) != 1 || fromYAML.Events[0].Type != model.Point {
		t.Errorf("YAML events = %+v", fromYAML.Events)
	}
}
