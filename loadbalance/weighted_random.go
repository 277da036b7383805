package loadbalance

import (
	"fmt"
	"math/rand"

	"mcp-client/registry"
)

// WeightedRandomBalancer picks endpoints with probability proportional to
// their Weight. Endpoints with weight <= 0 count as weight 1 so a sloppy
// registration cannot starve a server out of rotation.
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(endpoints []registry.Endpoint) (*registry.Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints available")
	}

	totalWeight := 0
	for _, ep := range endpoints {
		totalWeight += effectiveWeight(ep)
	}

	r := rand.Intn(totalWeight)
	for i := range endpoints {
		r -= effectiveWeight(endpoints[i])
		if r < 0 {
			return &endpoints[i], nil
		}
	}

	return nil, fmt.Errorf("unexpected error in weighted random selection")
}

func effectiveWeight(ep registry.Endpoint) int {
	if ep.Weight <= 0 {
		return 1
	}
	return ep.Weight
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}
