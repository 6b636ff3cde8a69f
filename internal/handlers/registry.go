package handlers

import (
	"fmt"
	"sort"

	"github.com/pratik-mahalle/ec2-automations/internal/pkg/errors"
)

// Handler names, as set in AUTOMATION_HANDLER or the Lambda handler field
const (
	NameAutoTag    = "auto-tag"
	NameScheduler  = "instance-scheduler"
	NameArchiver   = "state-archiver"
	NameLogCleaner = "log-cleaner"
	NameNotifier   = "state-notifier"
)

type registration struct {
	description string
	build       func(Deps) (Handler, error)
}

var registry = map[string]registration{
	NameAutoTag: {
		description: "Tag a launching instance with LaunchDate and Owner",
		build:       func(d Deps) (Handler, error) { return NewAutoTagger(d) },
	},
	NameScheduler: {
		description: "Stop Auto-Stop tagged instances and start Auto-Start tagged instances",
		build:       func(d Deps) (Handler, error) { return NewScheduler(d) },
	},
	NameArchiver: {
		description: "Archive the description of a shutting-down or terminated instance",
		build:       func(d Deps) (Handler, error) { return NewStateArchiver(d) },
	},
	NameLogCleaner: {
		description: "Delete bucket objects older than the retention window",
		build:       func(d Deps) (Handler, error) { return NewLogCleaner(d) },
	},
	NameNotifier: {
		description: "Publish instance state changes to a notification topic",
		build:       func(d Deps) (Handler, error) { return NewStateNotifier(d) },
	},
}

// Names returns every registered handler name in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Description returns the one line summary of a handler
func Description(name string) string {
	return registry[name].description
}

// New builds the named handler
func New(name string, deps Deps) (Handler, error) {
	reg, ok := registry[name]
	if !ok {
		return nil, errors.Configuration(fmt.Sprintf("unknown handler %q, expected one of %v", name, Names()))
	}
	h, err := reg.build(deps)
	if err != nil {
		return nil, err
	}
	return h, nil
}
