package scheduling

import (
	"encoding/json"
	"testing"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 9*60 + 30, false},
		{"23:59", 23*60 + 59, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"nope", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	tod, _ := ParseTimeOfDay("09:05")
	if tod.String() != "09:05" {
		t.Errorf("String() = %q, want 09:05", tod.String())
	}
}

func TestTimeOfDayAddNoRollover(t *testing.T) {
	// 23:30 + 60min compares past midnight rather than wrapping, so a window
	// ending at 23:59 correctly rejects the request.
	late, _ := ParseTimeOfDay("23:30")
	end := late.Add(60)
	if end <= late {
		t.Fatalf("23:30+60min = %d, should exceed start", end)
	}
	dayEnd, _ := ParseTimeOfDay("23:59")
	if end <= dayEnd {
		t.Error("23:30+60min should compare past 23:59")
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	var w TimeWindow
	if err := json.Unmarshal([]byte(`{"start":"08:00","end":"11:30","duration":30,"max_patients":3,"available":true}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.Start.String() != "08:00" || w.End.String() != "11:30" {
		t.Errorf("got %s-%s", w.Start, w.End)
	}
	out, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) == "" || !json.Valid(out) {
		t.Fatal("invalid json output")
	}
	var back TimeWindow
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if back != w {
		t.Errorf("round trip mismatch: %+v != %+v", back, w)
	}
}
