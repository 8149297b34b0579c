package desired_state

import (
	"context"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/planner"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	"k8s.io/apimachinery/pkg/util/sets"
)

// IntegrationEnabled reports whether the cluster did not opt out of the integration
func IntegrationEnabled(integration string, c Cluster) bool {
	if c.Disable == nil || len(c.Disable.Integrations) == 0 {
		return true
	}
	return !sets.New(c.Disable.Integrations...).Has(integration)
}

// Compatible reports whether the cluster has an OCM reference and declares machinePools
func Compatible(c Cluster) bool {
	return c.OCM != nil && c.MachinePools != nil
}

// FilterClusters keeps the clusters the reconciler manages: integration
// enabled, compatible, and matched by the selector when one is given.
// A cluster the selector fails to evaluate is left out and reported.
func FilterClusters(ctx context.Context, log logger.Logger, clusters []Cluster, integration string, selector *Selector) ([]Cluster, []error) {
	if integration == "" {
		integration = DefaultIntegration
	}
	filtered := make([]Cluster, 0, len(clusters))
	var errs []error
	for _, c := range clusters {
		clusterCtx := logger.WithCluster(ctx, c.Name)
		if !IntegrationEnabled(integration, c) {
			log.Debugf(clusterCtx, "Integration %s disabled for cluster", integration)
			continue
		}
		if !Compatible(c) {
			continue
		}
		matched, err := selector.Matches(c)
		if err != nil {
			log.Warnf(logger.WithErrorField(clusterCtx, err), "Cluster selector failed, skipping cluster")
			errs = append(errs, planner.NewSelectorError(c.Name, err))
			continue
		}
		if !matched {
			log.Debugf(clusterCtx, "Cluster not matched by selector %q", selector.String())
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered, errs
}

// BuildDesiredState classifies every cluster declaring machinePools.
// Unclassifiable clusters are left out and reported as errors.
func BuildDesiredState(clusters []Cluster) (planner.DesiredState, []error) {
	desired := planner.DesiredState{}
	var errs []error
	for _, c := range clusters {
		if c.MachinePools == nil {
			continue
		}
		info, err := ClusterInfo(c)
		if err != nil {
			errs = append(errs, planner.NewUnclassifiableClusterError(c.Name, err))
			continue
		}
		desired[c.Name] = planner.DesiredClusterPools{
			ClusterName: info.Name,
			ClusterType: info.Type,
			CCS:         info.CCS,
			Pools:       c.MachinePools,
		}
	}
	return desired, errs
}
