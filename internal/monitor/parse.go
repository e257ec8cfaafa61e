package monitor

import (
	"sort"
	"strconv"
	"strings"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
)

// maxTextLen bounds free-text fields copied into snapshots.
const maxTextLen = 500

// safeFloat converts a raw field to a float. Anything unparsable becomes
// nil; a bad value never drops the record it came from.
func safeFloat(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case string:
		if t == "" {
			return nil
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

// safeInt converts a raw field to an int, nil on failure. Strings must be
// whole numbers; "3.14" is not an int.
func safeInt(v any) *int {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		n := int(t)
		return &n
	case int:
		return &t
	case string:
		if t == "" {
			return nil
		}
		n, err := strconv.Atoi(t)
		if err != nil {
			return nil
		}
		return &n
	}
	return nil
}

// intOr is safeInt with a default for warning fields that must have a value.
func intOr(v any, def int) int {
	if n := safeInt(v); n != nil {
		return *n
	}
	return def
}

// truncate bounds unbounded upstream text to maxTextLen runes.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTextLen {
		return s
	}
	return string(runes[:maxTextLen])
}

func parseSynop(rec imgw.Record) SynopObservation {
	obs := SynopObservation{
		StationID:       rec.Str("id_stacji"),
		StationName:     rec.Str("stacja"),
		MeasurementDate: rec.Str("data_pomiaru"),
		MeasurementHour: rec.Str("godzina_pomiaru"),
		Temperature:     safeFloat(rec["temperatura"]),
		WindSpeed:       safeFloat(rec["predkosc_wiatru"]),
		WindDirection:   safeInt(rec["kierunek_wiatru"]),
		Humidity:        safeFloat(rec["wilgotnosc_wzgledna"]),
		Precipitation:   safeFloat(rec["suma_opadu"]),
		Pressure:        safeFloat(rec["cisnienie"]),
	}
	// The synop endpoint omits coordinates; fill from the static table.
	if c, ok := imgw.SynopStations[obs.StationID]; ok {
		lat, lon := c.Lat, c.Lon
		obs.Lat, obs.Lon = &lat, &lon
	}
	return obs
}

func parseHydro(rec imgw.Record) HydroObservation {
	flow := safeFloat(rec["przelyw"]) // upstream API misspells "przeplyw"
	if flow == nil {
		flow = safeFloat(rec["przeplyw"])
	}
	return HydroObservation{
		StationID:            rec.Str("id_stacji"),
		StationName:          rec.Str("stacja"),
		River:                rec.Str("rzeka"),
		Voivodeship:          rec.Str("wojewodztwo"),
		Lat:                  safeFloat(rec["lat"]),
		Lon:                  safeFloat(rec["lon"]),
		WaterLevel:           safeInt(rec["stan_wody"]),
		WaterLevelDate:       rec.Str("stan_wody_data_pomiaru"),
		WaterTemperature:     safeFloat(rec["temperatura_wody"]),
		WaterTemperatureDate: rec.Str("temperatura_wody_data_pomiaru"),
		Flow:                 flow,
		FlowDate:             rec.Str("przeplyw_data"),
		IcePhenomenon:        safeInt(rec["zjawisko_lodowe"]),
		IcePhenomenonDate:    rec.Str("zjawisko_lodowe_data_pomiaru"),
		OvergrowthPhenomenon: safeInt(rec["zjawisko_zarastania"]),
	}
}

func parseMeteo(rec imgw.Record) MeteoObservation {
	return MeteoObservation{
		StationCode:            rec.Str("kod_stacji"),
		StationName:            rec.Str("nazwa_stacji"),
		Lat:                    safeFloat(rec["lat"]),
		Lon:                    safeFloat(rec["lon"]),
		GroundTemperature:      safeFloat(rec["temperatura_gruntu"]),
		GroundTemperatureDate:  rec.Str("temperatura_gruntu_data"),
		AirTemperature:         safeFloat(rec["temperatura_powietrza"]),
		AirTemperatureDate:     rec.Str("temperatura_powietrza_data"),
		WindDirection:          safeInt(rec["wiatr_kierunek"]),
		WindDirectionDate:      rec.Str("wiatr_kierunek_data"),
		WindAvgSpeed:           safeFloat(rec["wiatr_srednia_predkosc"]),
		WindAvgSpeedDate:       rec.Str("wiatr_srednia_predkosc_data"),
		WindMaxSpeed:           safeFloat(rec["wiatr_predkosc_maksymalna"]),
		WindMaxSpeedDate:       rec.Str("wiatr_predkosc_maksymalna_data"),
		Humidity:               safeFloat(rec["wilgotnosc_wzgledna"]),
		HumidityDate:           rec.Str("wilgotnosc_wzgledna_data"),
		WindGust10Min:          safeFloat(rec["wiatr_poryw_10min"]),
		WindGust10MinDate:      rec.Str("wiatr_poryw_10min_data"),
		Precipitation10Min:     safeFloat(rec["opad_10min"]),
		Precipitation10MinDate: rec.Str("opad_10min_data"),
	}
}

func parseMeteoWarning(rec imgw.Record) MeteoWarning {
	return MeteoWarning{
		ID:          rec.Str("id"),
		Event:       rec.Str("nazwa_zdarzenia"),
		Level:       intOr(rec["stopien"], 0),
		Probability: intOr(rec["prawdopodobienstwo"], 0),
		ValidFrom:   rec.Str("obowiazuje_od"),
		ValidTo:     rec.Str("obowiazuje_do"),
		Published:   rec.Str("opublikowano"),
		Content:     truncate(rec.Str("tresc")),
		Comment:     truncate(rec.Str("komentarz")),
		Office:      rec.Str("biuro"),
		Teryt:       rec.Strings("teryt"),
	}
}

func parseHydroWarning(rec imgw.Record) HydroWarning {
	// The API is inconsistent about the level key: "stopień" with the
	// diacritic or plain "stopien". Levels may also be negative (drought
	// advisories); severity is the magnitude.
	levelRaw, ok := rec["stopień"]
	if !ok {
		levelRaw = rec["stopien"]
	}
	level := intOr(levelRaw, 0)
	if level < 0 {
		level = -level
	}

	areas := make([]string, 0, 2)
	for _, area := range rec.Records("obszary") {
		areas = append(areas, truncate(area.Str("opis")))
	}

	return HydroWarning{
		Number:      rec.Str("numer"),
		Event:       rec.Str("zdarzenie"),
		Level:       level,
		Probability: intOr(rec["prawdopodobienstwo"], 0),
		ValidFrom:   rec.Str("data_od"),
		ValidTo:     rec.Str("data_do"),
		Published:   rec.Str("opublikowano"),
		Description: truncate(rec.Str("przebieg")),
		Comment:     truncate(rec.Str("komentarz")),
		Office:      rec.Str("biuro"),
		Areas:       areas,
	}
}

func buildMeteoWarningReport(warnings []MeteoWarning) *MeteoWarningReport {
	sort.SliceStable(warnings, func(i, j int) bool {
		if warnings[i].Level != warnings[j].Level {
			return warnings[i].Level > warnings[j].Level
		}
		return warnings[i].ValidFrom < warnings[j].ValidFrom
	})

	report := &MeteoWarningReport{
		ActiveCount: len(warnings),
		Warnings:    warnings,
	}
	for i := range warnings {
		if warnings[i].Level > report.MaxLevel {
			report.MaxLevel = warnings[i].Level
		}
	}
	if len(warnings) > 0 {
		report.Latest = &warnings[0]
	}
	return report
}

func buildHydroWarningReport(warnings []HydroWarning) *HydroWarningReport {
	sort.SliceStable(warnings, func(i, j int) bool {
		if warnings[i].Level != warnings[j].Level {
			return warnings[i].Level > warnings[j].Level
		}
		return warnings[i].Published < warnings[j].Published
	})

	report := &HydroWarningReport{
		ActiveCount: len(warnings),
		Warnings:    warnings,
	}
	for i := range warnings {
		if warnings[i].Level > report.MaxLevel {
			report.MaxLevel = warnings[i].Level
		}
	}
	if len(warnings) > 0 {
		report.Latest = &warnings[0]
	}
	return report
}

// ParseIcon maps an IMGW icon code (n<cloud>z<code><d|n>, read from the
// first six characters) to a normalized condition. Returns ConditionUnknown
// for malformed or too-short codes.
func ParseIcon(code string) Condition {
	if len(code) < 6 || code[0] != 'n' || code[2] != 'z' {
		return ConditionUnknown
	}
	cloud, err := strconv.Atoi(code[1:2])
	if err != nil {
		return ConditionUnknown
	}
	weather, err := strconv.Atoi(code[3:5])
	if err != nil {
		return ConditionUnknown
	}
	night := code[5] == 'n'

	switch weather / 10 {
	case 0:
		if weather != 0 {
			return ConditionRainy
		}
		switch {
		case cloud <= 1:
			if night {
				return ConditionClearNight
			}
			return ConditionSunny
		case cloud <= 5:
			return ConditionPartlyCloudy
		default:
			return ConditionCloudy
		}
	case 7:
		return ConditionSnowy
	case 8:
		return ConditionPouring
	case 9:
		return ConditionLightningRainy
	default:
		return ConditionRainy
	}
}

// conditionFromValues derives a condition from raw measurements when no icon
// code is available.
func conditionFromValues(precip, snow, cloud *float64, night bool) Condition {
	if snow != nil && *snow > 0 {
		return ConditionSnowy
	}
	if precip != nil {
		if *precip > 2 {
			return ConditionPouring
		}
		if *precip > 0 {
			return ConditionRainy
		}
	}
	if cloud != nil {
		switch {
		case *cloud <= 10:
			if night {
				return ConditionClearNight
			}
			return ConditionSunny
		case *cloud <= 50:
			return ConditionPartlyCloudy
		default:
			return ConditionCloudy
		}
	}
	return ConditionUnknown
}

// containsFold reports a case-insensitive substring match.
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
