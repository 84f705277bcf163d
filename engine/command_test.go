package engine

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Command
		ok   bool
	}{
		{name: "ban", text: "%ban someuser", want: Command{Verb: VerbBan, Target: "someuser"}, ok: true},
		{name: "unban", text: "%unban someuser", want: Command{Verb: VerbUnban, Target: "someuser"}, ok: true},
		{name: "remove", text: "%remove someuser", want: Command{Verb: VerbRemove, Target: "someuser"}, ok: true},
		{name: "ban with at-handle", text: "%ban @SomeUser", want: Command{Verb: VerbBan, Target: "@SomeUser"}, ok: true},
		{name: "extra args ignored", text: "%ban someuser for spamming", want: Command{Verb: VerbBan, Target: "someuser"}, ok: true},
		{name: "missing target still recognized", text: "%ban", want: Command{Verb: VerbBan}, ok: true},
		{name: "missing target with trailing space", text: "%ban  ", want: Command{Verb: VerbBan}, ok: true},
		{name: "not anchored at start", text: "hey %ban someuser", ok: false},
		{name: "unknown verb", text: "%kick someuser", ok: false},
		{name: "plain text", text: "check this link https://example.com", ok: false},
		{name: "percent alone", text: "%", ok: false},
		{name: "case sensitive verb", text: "%BAN someuser", ok: false},
		{name: "empty", text: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCommand(tt.text)
			if ok != tt.ok {
				t.Fatalf("ParseCommand(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}
