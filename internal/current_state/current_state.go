// Package current_state reads the pools that exist in OCM for the managed clusters.
package current_state

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/ocm_client"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/planner"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of clusters fetched in parallel
const DefaultConcurrency = 4

// Resolver returns the OCM client serving a cluster
type Resolver interface {
	Client(cluster string) (ocm_client.Client, bool)
}

// Options tunes Fetch
type Options struct {
	// Concurrency bounds parallel cluster fetches; values below 1 use DefaultConcurrency
	Concurrency int
}

// Result is the observed state plus the clusters that could not be observed.
// Clusters in Failed or Skipped must be left out of the desired state so a
// missing observation is never planned as "create everything".
type Result struct {
	State   planner.CurrentState
	Failed  map[string]error
	Skipped []string
}

// Excluded returns every cluster name in Failed or Skipped
func (r *Result) Excluded() []string {
	names := make([]string, 0, len(r.Failed)+len(r.Skipped))
	for name := range r.Failed {
		names = append(names, name)
	}
	names = append(names, r.Skipped...)
	sort.Strings(names)
	return names
}

// Fetch lists the pools of every cluster through its resolved client.
// Node pools are read for ROSA HCP clusters, machine pools otherwise.
// Clusters without a client are skipped with a warning.
func Fetch(ctx context.Context, log logger.Logger, resolver Resolver, clusters []machinepool.ClusterInfo, opts Options) (*Result, error) {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	result := &Result{
		State:  planner.CurrentState{},
		Failed: map[string]error{},
	}
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for _, cluster := range clusters {
		clusterCtx := logger.WithCluster(egCtx, cluster.Name)
		clusterCtx = logger.WithClusterType(clusterCtx, string(cluster.Type))

		client, ok := resolver.Client(cluster.Name)
		if !ok {
			log.Warnf(clusterCtx, "No OCM client for cluster, skipping")
			result.Skipped = append(result.Skipped, cluster.Name)
			continue
		}

		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			pools, err := FetchCluster(clusterCtx, client, cluster)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Errorf(logger.WithErrorField(clusterCtx, err), "Failed to fetch current pools")
				result.Failed[cluster.Name] = err
				return nil
			}
			log.Debugf(clusterCtx, "Fetched %d pools", len(pools))
			result.State[cluster.Name] = pools
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(result.Skipped)
	return result, nil
}

// FetchCluster lists and converts the pools of a single cluster
func FetchCluster(ctx context.Context, client ocm_client.Client, cluster machinepool.ClusterInfo) ([]machinepool.Pool, error) {
	if cluster.Type.UsesNodePools() {
		items, err := client.GetNodePools(ctx, cluster.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to list node pools: %w", err)
		}
		return convert(items, cluster, nodePoolFromWire)
	}
	items, err := client.GetMachinePools(ctx, cluster.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list machine pools: %w", err)
	}
	return convert(items, cluster, machinePoolFromWire)
}

func convert(items []map[string]interface{}, cluster machinepool.ClusterInfo, fn func(map[string]interface{}, machinepool.ClusterInfo) (machinepool.Pool, error)) ([]machinepool.Pool, error) {
	pools := make([]machinepool.Pool, 0, len(items))
	for i, item := range items {
		pool, err := fn(item, cluster)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		pools = append(pools, pool)
	}
	return pools, nil
}
