package types

// DiscoveredService is one proxy-enabled swarm service observed during a
// reconciliation cycle. It only lives long enough to be folded into the
// routing table.
type DiscoveredService struct {
	Name         string
	Domain       string
	Port         int
	Organization string
}
