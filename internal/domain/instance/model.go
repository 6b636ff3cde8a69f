package instance

import (
	"errors"
	"time"
)

// ErrNotFound is returned when the provider has no record of an instance
var ErrNotFound = errors.New("instance not found")

// Instance is a point-in-time snapshot of a compute instance. Snapshot holds
// the provider's full description and is what gets archived.
type Instance struct {
	ID               string      `json:"instance_id"`
	Name             string      `json:"name,omitempty"`
	State            string      `json:"state"`
	Type             string      `json:"instance_type,omitempty"`
	ImageID          string      `json:"image_id,omitempty"`
	LaunchTime       *time.Time  `json:"launch_time,omitempty"`
	AvailabilityZone string      `json:"availability_zone,omitempty"`
	PrivateIP        string      `json:"private_ip,omitempty"`
	PublicIP         string      `json:"public_ip,omitempty"`
	VpcID            string      `json:"vpc_id,omitempty"`
	SubnetID         string      `json:"subnet_id,omitempty"`
	Tags             []Tag       `json:"tags,omitempty"`
	Snapshot         interface{} `json:"snapshot,omitempty"`
}

// Tag is a key/value label on an instance. Kept as a list rather than a map
// so duplicate keys returned by the provider stay visible.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TagValues returns every value carried under key
func (i *Instance) TagValues(key string) []string {
	var values []string
	for _, t := range i.Tags {
		if t.Key == key {
			values = append(values, t.Value)
		}
	}
	return values
}

// BatchResult records the outcome of one call that targets several instances
type BatchResult struct {
	Attempted []string          `json:"attempted"`
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// FailAll marks every attempted id as failed with reason
func FailAll(ids []string, reason string) BatchResult {
	res := BatchResult{
		Attempted: append([]string(nil), ids...),
		Failed:    make(map[string]string, len(ids)),
	}
	for _, id := range ids {
		res.Failed[id] = reason
	}
	return res
}

// Merge appends other into r
func (r *BatchResult) Merge(other BatchResult) {
	r.Attempted = append(r.Attempted, other.Attempted...)
	r.Succeeded = append(r.Succeeded, other.Succeeded...)
	if len(other.Failed) == 0 {
		return
	}
	if r.Failed == nil {
		r.Failed = make(map[string]string, len(other.Failed))
	}
	for id, reason := range other.Failed {
		r.Failed[id] = reason
	}
}
