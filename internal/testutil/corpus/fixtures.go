package corpus

// Row is one settlement in a fixture, in its flat form.
type Row struct {
	Place        string
	Participants []string
	Hour         int
	Amount       int64
}

// Fixture is a named, reusable settlement history.
type Fixture struct {
	Name        string
	Description string
	Rows        []Row
}

// Predefined fixtures for common test scenarios.
var (
	// FixtureCafe is the two-row history where Alice joined both settlements.
	FixtureCafe = Fixture{
		Name:        "Cafe",
		Description: "Two evening settlements at one cafe sharing a participant",
		Rows: []Row{
			{Place: "Cafe X", Hour: 18, Amount: 10000, Participants: []string{"Alice", "Bob"}},
			{Place: "Cafe X", Hour: 18, Amount: 10500, Participants: []string{"Alice", "Carol"}},
		},
	}

	// FixturePyeongchon is a small neighbourhood history with overlapping groups.
	FixturePyeongchon = Fixture{
		Name:        "Pyeongchon",
		Description: "Restaurant and cafe settlements around Pyeongchon and Beomgye",
		Rows: []Row{
			{Place: "평촌쪽갈비", Hour: 19, Amount: 72000, Participants: []string{"조세현", "김채희", "박민수"}},
			{Place: "평촌쪽갈비", Hour: 20, Amount: 65000, Participants: []string{"조세현", "김채희"}},
			{Place: "맥도날드 평촌점", Hour: 20, Amount: 28000, Participants: []string{"박민수", "이지현"}},
			{Place: "맥도날드 범계점", Hour: 13, Amount: 18000, Participants: []string{"이지현"}},
			{Place: "스타벅스 범계점", Hour: 18, Amount: 16000, Participants: []string{"김채희", "이지현"}},
			{Place: "스타벅스 평촌점", Hour: 10, Amount: 12000, Participants: []string{"조세현"}},
			{Place: "교촌치킨 평촌점", Hour: 19, Amount: 42000, Participants: []string{"조세현", "박민수", "최유진"}},
			{Place: "교촌치킨 평촌점", Hour: 21, Amount: 38000, Participants: []string{"박민수", "최유진"}},
		},
	}
)
