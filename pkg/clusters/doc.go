// Package clusters groups the cluster implementations of the bridge.
//
// # Architecture
//
// Clusters implement the bridge.Cluster interface and embed
// bridge.ClusterBase for identity and global attributes:
//
//	type MyCluster struct {
//	    *bridge.ClusterBase // Core identity, global attributes
//	}
//
// Clusters backed by a pushing data source additionally implement
// bridge.ChangeNotifiable so the dispatcher can wire the change callback
// at registration time.
//
// # Subpackages
//
// Individual cluster implementations are in subpackages:
//   - clusters/booleanstate: Boolean State Cluster (0x0045)
//   - clusters/onoff: On/Off Cluster (0x0006)
//   - clusters/genericswitch: Generic Switch Cluster (0x003B)
//   - clusters/occupancy: Occupancy Sensing Cluster (0x0406)
//   - clusters/temperature: Temperature Measurement Cluster (0x0402)
//   - clusters/icdmgmt: ICD Management Cluster (0x0046)
package clusters
