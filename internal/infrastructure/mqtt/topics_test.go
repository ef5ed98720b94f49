package mqtt

import "testing"

func TestTopicsReading(t *testing.T) {
	tests := []struct {
		name      string
		deviceID  string
		component string
		want      string
	}{
		{"plain", "devA", "temp", "sensaur/reading/devA/temp"},
		{"suffixed name", "devA", "temp 2", "sensaur/reading/devA/temp_2"},
		{"hostile characters", "a/b", "x+y#z", "sensaur/reading/a_b/x_y_z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Topics{}).Reading(tt.deviceID, tt.component); got != tt.want {
				t.Errorf("Reading(%q, %q) = %q, want %q", tt.deviceID, tt.component, got, tt.want)
			}
		})
	}
}

func TestTopicsOutputComponent(t *testing.T) {
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"sensaur/output/relay", "relay", true},
		{"sensaur/output/temp_2", "temp_2", true},
		{"sensaur/output/", "", false},
		{"sensaur/output/a/b", "", false},
		{"sensaur/reading/devA/temp", "", false},
		{"other/output/relay", "", false},
	}

	for _, tt := range tests {
		got, ok := (Topics{}).OutputComponent(tt.topic)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("OutputComponent(%q) = %q, %v, want %q, %v", tt.topic, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestOutputCommandsMatchesComponentTopics(t *testing.T) {
	// Every topic the extractor accepts must sit under the subscription
	// wildcard, or commands would never arrive.
	pattern := (Topics{}).OutputCommands()
	if pattern != "sensaur/output/+" {
		t.Errorf("OutputCommands() = %q, want sensaur/output/+", pattern)
	}
}

func TestTopicSafe(t *testing.T) {
	if got := TopicSafe("temp 2"); got != "temp_2" {
		t.Errorf("TopicSafe(%q) = %q, want temp_2", "temp 2", got)
	}
	if got := TopicSafe("plain"); got != "plain" {
		t.Errorf("TopicSafe(%q) = %q, want unchanged", "plain", got)
	}
}
