package monitor

import (
	"strings"
	"testing"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
)

func TestSafeFloat(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want *float64
	}{
		{"string number", "12.5", ptrFloat(12.5)},
		{"native number", 7.0, ptrFloat(7)},
		{"garbage", "brak", nil},
		{"empty", "", nil},
		{"nil", nil, nil},
	}
	for _, tc := range cases {
		got := safeFloat(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("%s: expected nil, got %v", tc.name, *got)
		case tc.want != nil && (got == nil || *got != *tc.want):
			t.Errorf("%s: expected %v, got %v", tc.name, *tc.want, got)
		}
	}
}

func TestSafeIntRejectsFractions(t *testing.T) {
	if got := safeInt("3.14"); got != nil {
		t.Fatalf("expected nil for fractional string, got %d", *got)
	}
	if got := safeInt("270"); got == nil || *got != 270 {
		t.Fatalf("expected 270, got %v", got)
	}
}

func TestParseSynopKeepsRecordWithBadField(t *testing.T) {
	obs := parseSynop(imgw.Record{
		"id_stacji":       "12375",
		"stacja":          "Warszawa",
		"temperatura":     "brak",
		"predkosc_wiatru": "3",
	})
	if obs.Temperature != nil {
		t.Error("unparsable temperature must become nil")
	}
	if obs.WindSpeed == nil || *obs.WindSpeed != 3 {
		t.Error("valid fields must survive a bad sibling")
	}
	if obs.Lat == nil || obs.Lon == nil {
		t.Error("synop coordinates must be filled from the station table")
	}
}

func TestParseHydroFlowKeyFallback(t *testing.T) {
	misspelled := parseHydro(imgw.Record{"przelyw": "120.5"})
	if misspelled.Flow == nil || *misspelled.Flow != 120.5 {
		t.Errorf("expected flow from misspelled key, got %v", misspelled.Flow)
	}
	corrected := parseHydro(imgw.Record{"przeplyw": "88"})
	if corrected.Flow == nil || *corrected.Flow != 88 {
		t.Errorf("expected flow from corrected key, got %v", corrected.Flow)
	}
}

func TestTruncateLongText(t *testing.T) {
	long := strings.Repeat("ą", 1000)
	got := truncate(long)
	if n := len([]rune(got)); n != maxTextLen {
		t.Fatalf("expected %d runes, got %d", maxTextLen, n)
	}
	short := "krótki tekst"
	if truncate(short) != short {
		t.Fatal("short text must pass through unchanged")
	}
}

func TestParseHydroWarningLevelKeyVariants(t *testing.T) {
	diacritic := parseHydroWarning(imgw.Record{"stopień": "2"})
	if diacritic.Level != 2 {
		t.Errorf("expected level 2 from diacritic key, got %d", diacritic.Level)
	}
	plain := parseHydroWarning(imgw.Record{"stopien": "3"})
	if plain.Level != 3 {
		t.Errorf("expected level 3 from plain key, got %d", plain.Level)
	}
	negative := parseHydroWarning(imgw.Record{"stopien": "-2"})
	if negative.Level != 2 {
		t.Errorf("expected magnitude 2 for negative level, got %d", negative.Level)
	}
}

func TestBuildMeteoWarningReport(t *testing.T) {
	report := buildMeteoWarningReport([]MeteoWarning{
		{Event: "frost", Level: 1, ValidFrom: "2026-01-02"},
		{Event: "storm", Level: 3, ValidFrom: "2026-01-03"},
		{Event: "wind", Level: 3, ValidFrom: "2026-01-01"},
	})

	if report.ActiveCount != 3 {
		t.Errorf("expected 3 active warnings, got %d", report.ActiveCount)
	}
	if report.MaxLevel != 3 {
		t.Errorf("expected max level 3, got %d", report.MaxLevel)
	}
	if report.Latest == nil || report.Latest.Event != "wind" {
		t.Errorf("expected highest level with earliest start first, got %+v", report.Latest)
	}
	if report.Warnings[2].Event != "frost" {
		t.Errorf("expected lowest level last, got %q", report.Warnings[2].Event)
	}
}

func TestBuildHydroWarningReportEmpty(t *testing.T) {
	report := buildHydroWarningReport(nil)
	if report.ActiveCount != 0 || report.MaxLevel != 0 || report.Latest != nil {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestParseIcon(t *testing.T) {
	cases := []struct {
		code string
		want Condition
	}{
		{"n0z00d", ConditionSunny},
		{"n1z00n", ConditionClearNight},
		{"n3z00d", ConditionPartlyCloudy},
		{"n5z00n", ConditionPartlyCloudy},
		{"n8z00d", ConditionCloudy},
		{"n6z00n", ConditionCloudy},
		{"n7z61d", ConditionRainy},
		{"n7z10d", ConditionRainy},
		{"n8z80d", ConditionPouring},
		{"n8z70d", ConditionSnowy},
		{"n8z95n", ConditionLightningRainy},
		{"n1z00dx", ConditionSunny},
		{"n0z0", ConditionUnknown},
		{"bogus", ConditionUnknown},
		{"", ConditionUnknown},
		{"x0z00d", ConditionUnknown},
	}
	for _, tc := range cases {
		if got := ParseIcon(tc.code); got != tc.want {
			t.Errorf("ParseIcon(%q) = %q, expected %q", tc.code, got, tc.want)
		}
	}
}

func TestConditionFromValues(t *testing.T) {
	cases := []struct {
		name                string
		precip, snow, cloud *float64
		night               bool
		want                Condition
	}{
		{"snow wins", ptrFloat(1), ptrFloat(2), ptrFloat(90), false, ConditionSnowy},
		{"heavy rain", ptrFloat(5), nil, nil, false, ConditionPouring},
		{"light rain", ptrFloat(0.5), nil, ptrFloat(80), false, ConditionRainy},
		{"clear day", nil, nil, ptrFloat(5), false, ConditionSunny},
		{"clear night", nil, nil, ptrFloat(5), true, ConditionClearNight},
		{"partly cloudy", nil, nil, ptrFloat(40), false, ConditionPartlyCloudy},
		{"overcast", nil, nil, ptrFloat(95), true, ConditionCloudy},
		{"no data", nil, nil, nil, false, ConditionUnknown},
	}
	for _, tc := range cases {
		if got := conditionFromValues(tc.precip, tc.snow, tc.cloud, tc.night); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func ptrFloat(f float64) *float64 { return &f }
