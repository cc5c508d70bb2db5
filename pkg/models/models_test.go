package models

import (
	"testing"
	"time"
)

func TestAccessLevel_IsValid(t *testing.T) {
	tests := []struct {
		level AccessLevel
		valid bool
	}{
		{AccessFull, true},
		{AccessReadOnly, true},
		{AccessDenied, true},
		{AccessError, true},
		{"full_access", false}, // case sensitive
		{"", false},
		{"OPEN", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := tt.level.IsValid(); got != tt.valid {
				t.Errorf("AccessLevel(%q).IsValid() = %v, want %v", tt.level, got, tt.valid)
			}
		})
	}
}

func TestAccessLevel_Readable(t *testing.T) {
	tests := []struct {
		level    AccessLevel
		readable bool
	}{
		{AccessFull, true},
		{AccessReadOnly, true},
		{AccessDenied, false},
		{AccessError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := tt.level.Readable(); got != tt.readable {
				t.Errorf("Readable() = %v, want %v", got, tt.readable)
			}
		})
	}
}

func TestParseAccessLevel(t *testing.T) {
	if got := ParseAccessLevel("READ_ONLY"); got != AccessReadOnly {
		t.Errorf("ParseAccessLevel(READ_ONLY) = %v", got)
	}
	if got := ParseAccessLevel("bogus"); got != AccessError {
		t.Errorf("ParseAccessLevel(bogus) = %v, want AccessError", got)
	}
}

func TestSessionStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   SessionStatus
		terminal bool
	}{
		{SessionRunning, false},
		{SessionCompleted, true},
		{SessionFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestAttributeNames(t *testing.T) {
	tests := []struct {
		name  string
		attrs uint32
		want  []string
	}{
		{"none", 0, nil},
		{"hidden only", FileAttributeHidden, []string{AttrHidden}},
		{"directory", FileAttributeDirectory, []string{AttrDirectory}},
		{"readonly hidden", FileAttributeReadOnly | FileAttributeHidden, []string{AttrReadOnly, AttrHidden}},
		{"all", FileAttributeDirectory | FileAttributeReadOnly | FileAttributeHidden, []string{AttrDirectory, AttrReadOnly, AttrHidden}},
		{"unmapped bits dropped", 0x80 | 0x20, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AttributeNames(tt.attrs)
			if len(got) != len(tt.want) {
				t.Fatalf("AttributeNames(%#x) = %v, want %v", tt.attrs, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("AttributeNames(%#x)[%d] = %q, want %q", tt.attrs, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRootFile_Attributes(t *testing.T) {
	rf := RootFile{Attributes: JoinAttributes([]string{AttrDirectory, AttrHidden})}

	if !rf.HasAttribute(AttrHidden) {
		t.Error("expected HIDDEN attribute")
	}
	if rf.HasAttribute(AttrReadOnly) {
		t.Error("unexpected READONLY attribute")
	}
	if got := rf.AttributeList(); len(got) != 2 {
		t.Errorf("AttributeList() = %v, want 2 entries", got)
	}

	empty := RootFile{}
	if got := empty.AttributeList(); got != nil {
		t.Errorf("empty AttributeList() = %v, want nil", got)
	}
}

func TestShare_Readable(t *testing.T) {
	tests := []struct {
		level    string
		readable bool
	}{
		{string(AccessFull), true},
		{string(AccessReadOnly), true},
		{string(AccessDenied), false},
		{string(AccessError), false},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			s := Share{AccessLevel: tt.level}
			if got := s.Readable(); got != tt.readable {
				t.Errorf("Readable() = %v, want %v", got, tt.readable)
			}
		})
	}
}

func TestScanSession_Duration(t *testing.T) {
	start := time.Now().Add(-time.Minute)
	end := start.Add(30 * time.Second)

	sealed := ScanSession{StartTime: start, EndTime: &end}
	if got := sealed.Duration(); got != 30*time.Second {
		t.Errorf("Duration() = %v, want 30s", got)
	}

	running := ScanSession{StartTime: start}
	if got := running.Duration(); got < time.Minute {
		t.Errorf("running Duration() = %v, want >= 1m", got)
	}
}
