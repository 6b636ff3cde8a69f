package storage

import "time"

// Cutoff returns the instant before which objects fall outside a retention
// window of the given number of days.
func Cutoff(now time.Time, retentionDays int) time.Time {
	return now.Add(-time.Duration(retentionDays) * 24 * time.Hour)
}

// SelectExpired returns the objects last modified strictly before cutoff.
// An object modified exactly at the cutoff is retained.
func SelectExpired(objects []Object, cutoff time.Time) []Object {
	var expired []Object
	for _, obj := range objects {
		if obj.LastModified.Before(cutoff) {
			expired = append(expired, obj)
		}
	}
	return expired
}
