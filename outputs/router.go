package outputs

import (
	"feedwatch/config"
	"fmt"
)

// Builder turns an output descriptor into a sink
type Builder func(config.Output) (Sink, error)

// Resolve returns the sinks for a feed: outputs configured under the feed
// name first, then those under each tag in tag order. An output reachable
// through both a name and a tag is returned twice.
func Resolve(name string, tags []string, table map[string][]config.Output, build Builder) ([]Sink, error) {
	keys := append([]string{name}, tags...)

	var sinks []Sink
	for _, key := range keys {
		for i, cfg := range table[key] {
			sink, err := build(cfg)
			if err != nil {
				return nil, fmt.Errorf("outputs.%s[%d]: %w", key, i, err)
			}
			sinks = append(sinks, sink)
		}
	}
	return sinks, nil
}
