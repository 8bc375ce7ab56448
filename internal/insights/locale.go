package insights

import "time"

// Locale carries the display strings used for labels and relative times.
type Locale struct {
	Tag        string
	Weekdays   [7]string // indexed by time.Weekday
	WeekLabel  string    // fmt verb %d receives the 1-based week number
	Title7d    string
	Title30d   string
	JustNow    string
	MinutesAgo string
	HoursAgo   string
	DayAgo     string
	DaysAgo    string
	DateLayout string
}

var localePtBR = Locale{
	Tag:        "pt-BR",
	Weekdays:   [7]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"},
	WeekLabel:  "Sem %d",
	Title7d:    "Últimos 7 dias",
	Title30d:   "Últimos 30 dias",
	JustNow:    "agora",
	MinutesAgo: "há %d min",
	HoursAgo:   "há %d h",
	DayAgo:     "há 1 dia",
	DaysAgo:    "há %d dias",
	DateLayout: "02/01/2006",
}

var localeEn = Locale{
	Tag:        "en",
	Weekdays:   [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	WeekLabel:  "Week %d",
	Title7d:    "Last 7 days",
	Title30d:   "Last 30 days",
	JustNow:    "just now",
	MinutesAgo: "%d min ago",
	HoursAgo:   "%d h ago",
	DayAgo:     "1 day ago",
	DaysAgo:    "%d days ago",
	DateLayout: "Jan 2, 2006",
}

// LocaleFor returns the locale for tag, falling back to pt-BR.
func LocaleFor(tag string) Locale {
	switch tag {
	case "en", "en-US", "en-GB":
		return localeEn
	default:
		return localePtBR
	}
}

// WeekdayAbbrev returns the short weekday name for d.
func (l Locale) WeekdayAbbrev(d time.Weekday) string {
	return l.Weekdays[d]
}
