package bridge

import (
	"context"
	"sync"

	"github.com/pion/logging"
)

// Dispatcher routes read/write/invoke requests, addressed by
// (endpoint, cluster, item), to the registered cluster implementations,
// and owns every resource's data version.
//
// Synchronization is per-resource: each registered resource carries its
// own lock, so a slow mutation on one resource never blocks reads or
// writes on another. A reader always observes a consistent value/version
// pair: either the old value with the old version or the new value with
// the new version, never a mix.
type Dispatcher struct {
	mu        sync.RWMutex
	endpoints map[EndpointID]map[ClusterID]*resource
	listener  ChangeListener

	log logging.LeveledLogger
}

// resource pairs a cluster with its version and its own lock.
type resource struct {
	mu      sync.RWMutex
	cluster Cluster
	version DataVersion
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Listener is notified after a resource's version advances.
	// Optional; typically the subscription notifier.
	Listener ChangeListener

	// LoggerFactory creates the dispatcher's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		endpoints: make(map[EndpointID]map[ClusterID]*resource),
		listener:  config.Listener,
	}
	if config.LoggerFactory != nil {
		d.log = config.LoggerFactory.NewLogger("bridge")
	}
	return d
}

// SetChangeListener sets the listener notified on version advances.
// Only one listener can be set at a time.
func (d *Dispatcher) SetChangeListener(listener ChangeListener) {
	d.mu.Lock()
	d.listener = listener
	d.mu.Unlock()
}

// RegisterCluster registers a cluster at its endpoint and initializes the
// resource's data version to a random value. If the cluster's backing data
// source pushes asynchronous changes (ChangeNotifiable), the dispatcher
// wires the change notifier here, exactly once.
func (d *Dispatcher) RegisterCluster(cluster Cluster) {
	path := ResourcePath{Endpoint: cluster.EndpointID(), Cluster: cluster.ID()}

	d.mu.Lock()
	if d.endpoints[path.Endpoint] == nil {
		d.endpoints[path.Endpoint] = make(map[ClusterID]*resource)
	}
	d.endpoints[path.Endpoint][path.Cluster] = &resource{
		cluster: cluster,
		version: randomDataVersion(),
	}
	d.mu.Unlock()

	if n, ok := cluster.(ChangeNotifiable); ok {
		n.SetChangeNotifier(func() {
			d.NotifyChange(path)
		})
	}

	if d.log != nil {
		d.log.Debugf("registered cluster 0x%04X at endpoint %d", path.Cluster, path.Endpoint)
	}
}

// lookup finds the resource for a path, distinguishing unknown endpoints
// from unknown clusters.
func (d *Dispatcher) lookup(path ResourcePath) (*resource, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	clusters, ok := d.endpoints[path.Endpoint]
	if !ok {
		return nil, ErrUnsupportedEndpoint
	}
	r, ok := clusters[path.Cluster]
	if !ok {
		return nil, ErrUnsupportedCluster
	}
	return r, nil
}

// Resources returns all registered resource paths in unspecified order.
func (d *Dispatcher) Resources() []ResourcePath {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var paths []ResourcePath
	for ep, clusters := range d.endpoints {
		for cl := range clusters {
			paths = append(paths, ResourcePath{Endpoint: ep, Cluster: cl})
		}
	}
	return paths
}

// ClusterAt returns the cluster registered at path.
func (d *Dispatcher) ClusterAt(path ResourcePath) (Cluster, error) {
	r, err := d.lookup(path)
	if err != nil {
		return nil, err
	}
	return r.cluster, nil
}

// VersionOf returns the current data version of the resource at path.
func (d *Dispatcher) VersionOf(path ResourcePath) (DataVersion, error) {
	r, err := d.lookup(path)
	if err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version, nil
}

// ReadAttribute reads an attribute and returns the value together with
// the resource's data version at the time of the read.
func (d *Dispatcher) ReadAttribute(ctx context.Context, req ReadRequest) (Value, DataVersion, error) {
	r, err := d.lookup(req.Path.Resource())
	if err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	value, err := r.cluster.ReadAttribute(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	return value, r.version, nil
}

// WriteAttribute writes an attribute. On success the backing value and the
// resource's version advance as a single atomic step, then the change
// listener is signaled.
func (d *Dispatcher) WriteAttribute(ctx context.Context, req WriteRequest) error {
	r, err := d.lookup(req.Path.Resource())
	if err != nil {
		return err
	}

	r.mu.Lock()
	if err := r.cluster.WriteAttribute(ctx, req); err != nil {
		r.mu.Unlock()
		return err
	}
	r.version++
	version := r.version
	r.mu.Unlock()

	d.notifyListener(req.Path.Resource(), version)
	return nil
}

// InvokeCommand invokes a command. If the command mutated observable
// state, the resource's version advances atomically with the mutation and
// the change listener is signaled.
func (d *Dispatcher) InvokeCommand(ctx context.Context, req InvokeRequest) ([]byte, error) {
	r, err := d.lookup(req.Path.Resource())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	resp, changed, err := r.cluster.InvokeCommand(ctx, req)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	var version DataVersion
	if changed {
		r.version++
		version = r.version
	}
	r.mu.Unlock()

	if changed {
		d.notifyListener(req.Path.Resource(), version)
	}
	return resp, nil
}

// NotifyChange is the asynchronous-change path: a Capability Handler's
// change callback lands here via the notifier wired in RegisterCluster.
// The version advances under the resource lock; the listener is signaled
// after the lock is released.
func (d *Dispatcher) NotifyChange(path ResourcePath) {
	r, err := d.lookup(path)
	if err != nil {
		if d.log != nil {
			d.log.Warnf("change notification for unknown resource %v", path)
		}
		return
	}

	r.mu.Lock()
	r.version++
	version := r.version
	r.mu.Unlock()

	d.notifyListener(path, version)
}

// notifyListener signals the change listener outside any resource lock.
func (d *Dispatcher) notifyListener(path ResourcePath, version DataVersion) {
	d.mu.RLock()
	listener := d.listener
	d.mu.RUnlock()

	if listener != nil {
		listener.OnResourceChanged(path, version)
	}
}
