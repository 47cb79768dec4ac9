package subscribe

import (
	"context"
	"sort"

	"github.com/backkem/matter-bridge/pkg/bridge"
	"github.com/backkem/matter-bridge/pkg/events"
)

// AttributeReport is one attribute's current value together with the
// owning resource's data version at read time.
type AttributeReport struct {
	Path    bridge.AttributePath
	Version bridge.DataVersion
	Value   bridge.Value
}

// Report is the assembled payload for one subscription: the attributes of
// every covered resource whose version moved past the subscription's
// baseline, plus all pending events for covered resources.
type Report struct {
	SubscriptionID string
	Attributes     []AttributeReport
	Events         []events.Record
}

// Empty reports whether the report carries no data.
func (r Report) Empty() bool {
	return len(r.Attributes) == 0 && len(r.Events) == 0
}

// Assembler builds reports from the dispatcher's versioned state and the
// aggregated event queues.
type Assembler struct {
	dispatcher *bridge.Dispatcher
	aggregator *events.Aggregator
}

// NewAssembler creates an assembler over the given state sources.
func NewAssembler(dispatcher *bridge.Dispatcher, aggregator *events.Aggregator) *Assembler {
	return &Assembler{dispatcher: dispatcher, aggregator: aggregator}
}

// Assemble builds the report for sub and advances its baseline to the
// reported versions. Resources whose version matches the baseline are
// skipped entirely.
//
// The dirty mark is cleared before any resource is read: a change that
// races with assembly re-dirties the subscription and at worst costs one
// empty follow-up report, never a lost change.
func (a *Assembler) Assemble(ctx context.Context, sub *Subscription) (Report, error) {
	sub.clearDirty()

	report := Report{SubscriptionID: sub.ID}
	reported := make(map[bridge.ResourcePath]bridge.DataVersion)

	paths := a.dispatcher.Resources()
	sort.Slice(paths, func(i, j int) bool {
		if paths[i].Endpoint != paths[j].Endpoint {
			return paths[i].Endpoint < paths[j].Endpoint
		}
		return paths[i].Cluster < paths[j].Cluster
	})

	for _, path := range paths {
		if !sub.Filter.Matches(path) {
			continue
		}

		version, err := a.dispatcher.VersionOf(path)
		if err != nil {
			return Report{}, err
		}
		if baseline, ok := sub.baselineFor(path); ok && baseline == version {
			continue
		}

		cluster, err := a.dispatcher.ClusterAt(path)
		if err != nil {
			return Report{}, err
		}

		for _, attrID := range cluster.AttributeList() {
			req := bridge.ReadRequest{
				Path: bridge.AttributePath{
					Endpoint:  path.Endpoint,
					Cluster:   path.Cluster,
					Attribute: attrID,
				},
				Subject: bridge.Subject{
					FabricIndex: sub.Peer.FabricIndex,
					NodeID:      sub.Peer.NodeID,
				},
			}
			value, ver, err := a.dispatcher.ReadAttribute(ctx, req)
			if err != nil {
				return Report{}, err
			}
			report.Attributes = append(report.Attributes, AttributeReport{
				Path:    req.Path,
				Version: ver,
				Value:   value,
			})
			if cur, ok := reported[path]; !ok || ver > cur {
				reported[path] = ver
			}
		}
	}

	if a.aggregator != nil {
		report.Events = a.aggregator.DrainMatching(sub.Filter.Matches)
	}

	sub.commit(reported)
	return report, nil
}
