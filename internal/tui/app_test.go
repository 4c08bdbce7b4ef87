package tui

import (
	"strings"
	"testing"

	"github.com/openhusky/huskyd/internal/models"
)

func TestParseTaskSpec(t *testing.T) {
	tests := []struct {
		name    string
		fields  []string
		want    models.TaskSpec
		wantErr bool
	}{
		{
			name:   "trigger only",
			fields: []string{"trigger=cat"},
			want:   models.TaskSpec{Trigger: "cat", Handler: "take_photo"},
		},
		{
			name:   "trigger and time",
			fields: []string{"trigger=cat", "time=now"},
			want:   models.TaskSpec{Trigger: "cat", Time: "now", Handler: "take_photo"},
		},
		{
			name:   "explicit handler",
			fields: []string{"time=now", "handler=take_photo"},
			want:   models.TaskSpec{Time: "now", Handler: "take_photo"},
		},
		{
			name:    "no condition",
			fields:  []string{},
			wantErr: true,
		},
		{
			name:    "bad pair",
			fields:  []string{"trigger"},
			wantErr: true,
		},
		{
			name:    "unknown key",
			fields:  []string{"label=cat"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTaskSpec(tt.fields)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatTaskLine(t *testing.T) {
	line := formatTaskLine(models.Task{
		ID:      "0194f2aa-1111-2222-3333-444455556666",
		Trigger: "cat",
		Time:    "now",
		Handler: "take_photo",
		Status:  models.TaskStatusPending,
	})
	for _, want := range []string{"0194f2aa", "trigger=cat", "time=now", "take_photo"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}
