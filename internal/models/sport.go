package models

import "strings"

// Sport classifies an activity.
type Sport string

const (
	SportRunning     Sport = "running"
	SportBiking      Sport = "biking"
	SportWalking     Sport = "walking"
	SportUltimate    Sport = "ultimate"
	SportElliptical  Sport = "elliptical"
	SportStairs      Sport = "stairs"
	SportLifting     Sport = "lifting"
	SportSwimming    Sport = "swimming"
	SportOther       Sport = "other"
	SportSnowshoeing Sport = "snowshoeing"
	SportSkiing      Sport = "skiing"

	// SportTotal labels sport-agnostic rollups. It is never the sport of a record.
	SportTotal Sport = "total"
)

// SportTypes lists the supported sports in report order.
var SportTypes = []Sport{
	SportRunning, SportBiking, SportWalking, SportUltimate, SportElliptical,
	SportStairs, SportLifting, SportSwimming, SportOther, SportSnowshoeing,
	SportSkiing,
}

var sportAliases = map[string]Sport{
	"run":                  SportRunning,
	"bike":                 SportBiking,
	"cycling":              SportBiking,
	"walk":                 SportWalking,
	"hiking":               SportWalking,
	"stair_climbing":       SportStairs,
	"strength_training":    SportLifting,
	"alpine_skiing":        SportSkiing,
	"cross_country_skiing": SportSkiing,
	"fitness_equipment":    SportOther,
	"training":             SportOther,
}

// Valid reports whether s is one of SportTypes.
func (s Sport) Valid() bool {
	for _, t := range SportTypes {
		if s == t {
			return true
		}
	}
	return false
}

// ParseSport maps a sport name as written by a device or file format onto
// the supported set. ok is false when the name is not recognized.
func ParseSport(name string) (sport Sport, ok bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "_")
	if s := Sport(key); s.Valid() {
		return s, true
	}
	if s, found := sportAliases[key]; found {
		return s, true
	}
	return "", false
}
