package imgw

// Voivodeships maps the 2-digit TERYT prefix to the voivodeship name.
// Powiat codes nest inside these prefixes (e.g. "1465" is in "14").
var Voivodeships = map[string]string{
	"02": "dolnośląskie",
	"04": "kujawsko-pomorskie",
	"06": "lubelskie",
	"08": "lubuskie",
	"10": "łódzkie",
	"12": "małopolskie",
	"14": "mazowieckie",
	"16": "opolskie",
	"18": "podkarpackie",
	"20": "podlaskie",
	"22": "pomorskie",
	"24": "śląskie",
	"26": "świętokrzyskie",
	"28": "warmińsko-mazurskie",
	"30": "wielkopolskie",
	"32": "zachodniopomorskie",
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// VoivodeshipCapitals holds capital-city coordinates per TERYT prefix, used
// as a fallback when reverse geocoding is unavailable.
var VoivodeshipCapitals = map[string]Coordinates{
	"02": {51.1079, 17.0385}, // Wrocław
	"04": {53.1235, 18.0084}, // Bydgoszcz
	"06": {51.2465, 22.5684}, // Lublin
	"08": {52.7368, 15.2288}, // Gorzów Wielkopolski
	"10": {51.7592, 19.4560}, // Łódź
	"12": {50.0647, 19.9450}, // Kraków
	"14": {52.2297, 21.0122}, // Warszawa
	"16": {50.6751, 17.9213}, // Opole
	"18": {50.0412, 21.9991}, // Rzeszów
	"20": {53.1325, 23.1688}, // Białystok
	"22": {54.3520, 18.6466}, // Gdańsk
	"24": {50.2649, 19.0238}, // Katowice
	"26": {50.8661, 20.6286}, // Kielce
	"28": {53.7784, 20.4801}, // Olsztyn
	"30": {52.4064, 16.9252}, // Poznań
	"32": {53.4285, 14.5528}, // Szczecin
}

// SynopStations maps synoptic station IDs to coordinates. The synop endpoint
// is the only one that omits lat/lon from its payload, so nearest-station
// resolution for synoptic data depends on this table.
var SynopStations = map[string]Coordinates{
	"12100": {54.1761, 15.5833}, // Kołobrzeg
	"12105": {54.2039, 16.1714}, // Koszalin
	"12115": {54.5881, 16.8547}, // Ustka
	"12120": {54.7536, 17.5344}, // Łeba
	"12135": {54.6036, 18.8114}, // Hel
	"12155": {54.1561, 19.4311}, // Elbląg
	"12160": {54.3775, 18.4697}, // Gdańsk-Rębiechowo
	"12185": {54.0675, 21.3744}, // Kętrzyn
	"12195": {54.1308, 22.9489}, // Suwałki
	"12200": {53.9233, 14.2403}, // Świnoujście
	"12205": {53.3953, 14.6228}, // Szczecin
	"12230": {53.1311, 16.7475}, // Piła
	"12235": {53.7153, 17.5325}, // Chojnice
	"12250": {53.0417, 18.5958}, // Toruń
	"12270": {53.1042, 20.3611}, // Mława
	"12272": {53.7731, 20.4219}, // Olsztyn
	"12280": {53.7889, 21.5892}, // Mikołajki
	"12295": {53.1072, 23.1622}, // Białystok
	"12300": {52.7408, 15.2772}, // Gorzów Wielkopolski
	"12310": {52.3481, 14.5989}, // Słubice
	"12330": {52.4208, 16.8264}, // Poznań
	"12345": {52.1989, 18.6553}, // Koło
	"12360": {52.5886, 19.7256}, // Płock
	"12375": {52.1628, 20.9611}, // Warszawa-Okęcie
	"12385": {52.1811, 22.2450}, // Siedlce
	"12399": {52.0786, 23.6219}, // Terespol
	"12400": {51.9300, 15.5300}, // Zielona Góra
	"12415": {51.1928, 16.2075}, // Legnica
	"12424": {51.1028, 16.8858}, // Wrocław
	"12435": {51.7814, 18.0817}, // Kalisz
	"12455": {51.2097, 18.5592}, // Wieluń
	"12465": {51.7219, 19.3981}, // Łódź-Lublinek
	"12495": {51.2169, 22.3933}, // Lublin-Radawiec
	"12497": {51.5533, 23.5297}, // Włodawa
	"12500": {50.9000, 15.7894}, // Jelenia Góra
	"12510": {50.7361, 15.7400}, // Śnieżka
	"12520": {50.4369, 16.6144}, // Kłodzko
	"12530": {50.6275, 17.9689}, // Opole
	"12540": {50.0583, 18.1936}, // Racibórz
	"12550": {50.8108, 19.0925}, // Częstochowa
	"12560": {50.2403, 19.0328}, // Katowice
	"12566": {50.0775, 19.7861}, // Kraków-Balice
	"12570": {50.8103, 20.6917}, // Kielce-Suków
	"12575": {50.0297, 20.9839}, // Tarnów
	"12580": {50.1100, 22.0394}, // Rzeszów-Jasionka
	"12585": {50.6975, 21.7158}, // Sandomierz
	"12595": {50.6981, 23.2047}, // Zamość
	"12600": {49.8058, 19.0019}, // Bielsko-Biała
	"12625": {49.2939, 19.9594}, // Zakopane
	"12650": {49.2317, 19.9817}, // Kasprowy Wierch
	"12660": {49.6272, 20.6892}, // Nowy Sącz
	"12690": {49.4664, 22.3419}, // Lesko
}
