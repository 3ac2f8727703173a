package i18n

// Message keys. The English text doubles as the key.
const (
	MsgStartup        = "Program Startup"
	MsgSettingUpGPIO  = "Setting up GPIO"
	MsgCleaningUpGPIO = "Cleaning up GPIO"
	MsgSchedule       = "Schedule"
	MsgSyncTimestamps = "Sync timestamps"
	MsgClockStatus    = "Virtual clock"
	MsgNextBell       = "Next bell"
	MsgPreviousBell   = "Previous bell"
	MsgKind           = "Kind"
	MsgTime           = "Time"
	MsgDelta          = "Delta"
	MsgNow            = "Now"
	MsgLesson         = "Lesson"
	MsgStart          = "Start"
	MsgEnd            = "End"
	MsgWork           = "work"
	MsgBreak          = "break"
	MsgIn             = "in %s"
	MsgAgo            = "%s ago"
	MsgUsage          = "Usage: %s <language_code>"
)

// translations holds the Polish text per key.
var translations = map[string]string{
	MsgStartup:        "Uruchamianie programu",
	MsgSettingUpGPIO:  "Konfiguracja GPIO",
	MsgCleaningUpGPIO: "Zwalnianie GPIO",
	MsgSchedule:       "Plan lekcji",
	MsgSyncTimestamps: "Godziny synchronizacji",
	MsgClockStatus:    "Zegar wirtualny",
	MsgNextBell:       "Następny dzwonek",
	MsgPreviousBell:   "Poprzedni dzwonek",
	MsgKind:           "Rodzaj",
	MsgTime:           "Godzina",
	MsgDelta:          "Różnica",
	MsgNow:            "Teraz",
	MsgLesson:         "Lekcja",
	MsgStart:          "Początek",
	MsgEnd:            "Koniec",
	MsgWork:           "lekcja",
	MsgBreak:          "przerwa",
	MsgIn:             "za %s",
	MsgAgo:            "%s temu",
	MsgUsage:          "Użycie: %s <kod_języka>",
}
