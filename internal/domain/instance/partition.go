package instance

// Plan is the disjoint split of tagged instances into action groups
type Plan struct {
	Stop      []string `json:"auto_stop"`
	Start     []string `json:"auto_start"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// Partition assigns each instance to the stop or start group according to
// the value of its key tag. An instance carrying both values under the same
// key cannot be placed safely; it lands in Conflicts and neither group acts
// on it. Input order is preserved within each group.
func Partition(instances []*Instance, key, stopValue, startValue string) Plan {
	plan := Plan{
		Stop:  []string{},
		Start: []string{},
	}
	seen := make(map[string]bool, len(instances))

	for _, inst := range instances {
		if inst == nil || seen[inst.ID] {
			continue
		}
		seen[inst.ID] = true

		var stop, start bool
		for _, v := range inst.TagValues(key) {
			switch v {
			case stopValue:
				stop = true
			case startValue:
				start = true
			}
		}

		switch {
		case stop && start:
			plan.Conflicts = append(plan.Conflicts, inst.ID)
		case stop:
			plan.Stop = append(plan.Stop, inst.ID)
		case start:
			plan.Start = append(plan.Start, inst.ID)
		}
	}

	return plan
}
