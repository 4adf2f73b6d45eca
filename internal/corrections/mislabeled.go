package corrections

import "github.com/sstent/garmin-summary/internal/models"

// mislabeledTimes lists activities recorded under the wrong sport.
var mislabeledTimes = map[models.Sport][]string{
	models.SportBiking: {
		"2010-11-20T14:55:34Z", "2011-05-07T15:43:08Z", "2011-08-29T18:12:18Z",
		"2011-12-20T13:43:56Z", "2011-08-06T13:59:30Z", "2016-06-30T12:02:39Z",
	},
	models.SportRunning: {
		"2010-08-16T18:56:12Z", "2010-08-25T17:52:44Z", "2010-10-31T15:55:51Z",
		"2011-01-02T16:23:19Z", "2011-05-24T18:13:36Z", "2011-06-27T17:15:29Z",
		"2012-05-04T17:27:02Z", "2014-02-09T14:26:59Z",
	},
	models.SportWalking: {
		"2012-04-28T11:28:09Z", "2012-05-19T10:35:38Z", "2012-05-19T10:40:29Z",
		"2012-12-31T15:40:05Z", "2017-04-29T10:04:04Z", "2017-07-01T09:47:14Z",
	},
	models.SportStairs:      {"2012-02-08T20:43:05Z"},
	models.SportSnowshoeing: {"2013-12-25T19:34:06Z"},
	models.SportSkiing:      {"2010-12-24T14:04:58Z", "2013-12-26T21:24:38Z", "2016-12-30T17:34:03Z"},
}

var mislabeledIndex = func() map[string]models.Sport {
	idx := make(map[string]models.Sport)
	for sport, times := range mislabeledTimes {
		for _, t := range times {
			idx[t] = sport
		}
	}
	return idx
}()

// MislabeledSport returns the correct sport for an activity known to be
// recorded under the wrong one.
func MislabeledSport(beginKey string) (models.Sport, bool) {
	s, ok := mislabeledIndex[beginKey]
	return s, ok
}
