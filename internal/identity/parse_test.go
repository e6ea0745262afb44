package identity

import (
	"strings"
	"testing"
)

func TestParseInstanceID(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		wantVID   string
		wantPID   string
		wantToken string
	}{
		{"usb device", `USB\VID_046D&PID_C077\5&2B5A4F0&0&2`, "046D", "C077", "5_2B5A4F0_0_2"},
		{"lower case ids are upper-cased", `usb\vid_046d&pid_c077\abc`, "046D", "C077", "abc"},
		{"hid child interface", `HID\VID_046D&PID_C52B&MI_00\7&1A2B3C4D&0&0000`, "046D", "C52B", "7_1A2B3C4D_0_0000"},
		{"no vendor or product", `USB\ROOT_HUB30\4&1234&0&0`, Unknown, Unknown, "4_1234_0_0"},
		{"spaces and punctuation", `USB\VID_1234&PID_5678\My Device#1`, "1234", "5678", "My_Device_1"},
		{"empty last segment", `USB\VID_1234&PID_5678\`, "1234", "5678", emptyToken},
		{"truncated to 30", `USB\VID_1234&PID_5678\ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789ABCD`, "1234", "5678", "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123"},
		{"empty identifier", "", Unknown, Unknown, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vid, pid, token := ParseInstanceID(tt.id)
			if vid != tt.wantVID || pid != tt.wantPID || token != tt.wantToken {
				t.Errorf("ParseInstanceID(%q) = (%q, %q, %q), want (%q, %q, %q)",
					tt.id, vid, pid, token, tt.wantVID, tt.wantPID, tt.wantToken)
			}
		})
	}
}

func TestParseInstanceID_HashToken(t *testing.T) {
	id := `HID\VID_046D&PID_C077`

	_, _, first := ParseInstanceID(id)
	_, _, second := ParseInstanceID(id)
	if first != second {
		t.Fatalf("hash token not deterministic: %q != %q", first, second)
	}
	if len(first) != 8 {
		t.Errorf("hash token %q has length %d, want 8", first, len(first))
	}
	if strings.ToUpper(first) != first {
		t.Errorf("hash token %q is not upper-case", first)
	}

	_, _, other := ParseInstanceID(`HID\VID_046D&PID_C078`)
	if other == first {
		t.Errorf("distinct ids share hash token %q", first)
	}
}

func TestParseInstanceID_TokenAlphabet(t *testing.T) {
	ids := []string{
		`USB\VID_046D&PID_C077\5&2B5A4F0&0&2`,
		`USB\VID_1234&PID_5678\{weird}.chars-here`,
		`HID\VID_1234&PID_5678\ünïcödé`,
		`SHORT`,
	}
	for _, id := range ids {
		_, _, token := ParseInstanceID(id)
		if token == "" || len([]rune(token)) > maxTokenLen {
			t.Errorf("token %q for %q has bad length", token, id)
		}
		for _, r := range token {
			if !isAlphaNum(r) && r != '_' {
				t.Errorf("token %q for %q contains %q", token, id, r)
			}
		}
	}
}

func TestUniqueIDAndKeys(t *testing.T) {
	if got := UniqueID("046D", "C077", "5_2B5A4F0_0_2"); got != "VID_046D_PID_C077_INST_5_2B5A4F0_0_2" {
		t.Errorf("UniqueID() = %q", got)
	}
	if got := GroupKey("046D", "C077", "abc"); got != "046D_C077_abc" {
		t.Errorf("GroupKey() = %q", got)
	}

	tests := []struct {
		vid, pid string
		want     string
		wantOK   bool
	}{
		{"046D", "C077", "046D_C077", true},
		{"046d", " c077 ", "046D_C077", true},
		{Unknown, "C077", "", false},
		{"046D", "", "", false},
		{"46D", "C077", "", false},
	}
	for _, tt := range tests {
		got, ok := ModelKey(tt.vid, tt.pid)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ModelKey(%q, %q) = (%q, %v), want (%q, %v)", tt.vid, tt.pid, got, ok, tt.want, tt.wantOK)
		}
	}
}
