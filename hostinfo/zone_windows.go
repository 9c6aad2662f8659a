//go:build windows

package hostinfo

import (
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sys/windows/registry"
)

const timeZoneInformationKey = `SYSTEM\CurrentControlSet\Control\TimeZoneInformation`

// windowsZones maps common Windows zone keys to IANA ids (CLDR windowsZones, territory 001).
var windowsZones = map[string]string{
	"Dateline Standard Time":          "Etc/GMT+12",
	"Hawaiian Standard Time":          "Pacific/Honolulu",
	"Alaskan Standard Time":           "America/Anchorage",
	"Pacific Standard Time":           "America/Los_Angeles",
	"Mountain Standard Time":          "America/Denver",
	"US Mountain Standard Time":       "America/Phoenix",
	"Central Standard Time":           "America/Chicago",
	"Eastern Standard Time":           "America/New_York",
	"Atlantic Standard Time":          "America/Halifax",
	"E. South America Standard Time":  "America/Sao_Paulo",
	"Argentina Standard Time":         "America/Buenos_Aires",
	"UTC":                             "Etc/UTC",
	"GMT Standard Time":               "Europe/London",
	"W. Europe Standard Time":         "Europe/Berlin",
	"Romance Standard Time":           "Europe/Paris",
	"Central Europe Standard Time":    "Europe/Budapest",
	"GTB Standard Time":               "Europe/Bucharest",
	"Egypt Standard Time":             "Africa/Cairo",
	"South Africa Standard Time":      "Africa/Johannesburg",
	"Turkey Standard Time":            "Europe/Istanbul",
	"Russian Standard Time":           "Europe/Moscow",
	"Arab Standard Time":              "Asia/Riyadh",
	"Arabian Standard Time":           "Asia/Dubai",
	"Iran Standard Time":              "Asia/Tehran",
	"Pakistan Standard Time":          "Asia/Karachi",
	"India Standard Time":             "Asia/Calcutta",
	"Bangladesh Standard Time":        "Asia/Dhaka",
	"SE Asia Standard Time":           "Asia/Bangkok",
	"Singapore Standard Time":         "Asia/Singapore",
	"China Standard Time":             "Asia/Shanghai",
	"Tokyo Standard Time":             "Asia/Tokyo",
	"Korea Standard Time":             "Asia/Seoul",
	"AUS Eastern Standard Time":       "Australia/Sydney",
	"New Zealand Standard Time":       "Pacific/Auckland",
	"W. Central Africa Standard Time": "Africa/Lagos",
	"Morocco Standard Time":           "Africa/Casablanca",
}

func platformZone() string {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, timeZoneInformationKey, registry.QUERY_VALUE)
	if err != nil {
		zlog.Debug().Err(err).Msg("open time zone registry key")
		return ""
	}
	defer key.Close()

	name, _, err := key.GetStringValue("TimeZoneKeyName")
	if err != nil {
		zlog.Debug().Err(err).Msg("read TimeZoneKeyName")
		return ""
	}
	return windowsZoneID(name)
}

// windowsZoneID returns the IANA id for a Windows zone key, or the key itself
// when it has no mapping.
func windowsZoneID(key string) string {
	if id, ok := windowsZones[key]; ok && validZone(id) {
		return id
	}
	return key
}
