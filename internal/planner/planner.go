// Package planner turns the difference between current and declared pools
// into an ordered list of actions and a list of rejected changes.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/differ"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
)

type desiredEntry struct {
	declared machinepool.DeclaredPool
	pool     machinepool.Pool
}

// CalculateDiff plans the actions needed to move current to desired.
//
// Declared pools that fail validation are reported and their keys are left
// out of both sides, so an invalid declaration never turns into a delete of
// the existing pool. Every partition is processed and all errors are
// accumulated. Actions are ordered creates, updates, deletes, each sorted by
// cluster and pool id.
func CalculateDiff(ctx context.Context, log logger.Logger, current CurrentState, desired DesiredState) *Plan {
	plan := &Plan{}

	desiredByKey := map[PoolKey]desiredEntry{}
	skipped := map[PoolKey]struct{}{}
	for _, cluster := range sortedClusters(desired) {
		dc := desired[cluster]
		if dc.ClusterName == "" {
			dc.ClusterName = cluster
		}
		seen := map[string]struct{}{}
		for _, declared := range dc.Pools {
			key := PoolKey{Cluster: dc.ClusterName, PoolID: declared.ID}
			if _, dup := seen[declared.ID]; dup {
				plan.Errors = append(plan.Errors, newValidationViolation(dc.ClusterName, declared,
					fmt.Errorf("duplicate pool id %s for cluster %s", declared.ID, dc.ClusterName)))
				skipped[key] = struct{}{}
				delete(desiredByKey, key)
				continue
			}
			seen[declared.ID] = struct{}{}

			pool, err := machinepool.FromDeclared(declared, dc.clusterInfo())
			if err != nil {
				plan.Errors = append(plan.Errors, newValidationViolation(dc.ClusterName, declared, err))
				skipped[key] = struct{}{}
				continue
			}
			desiredByKey[key] = desiredEntry{declared: declared, pool: pool}
		}
	}

	currentByKey := map[PoolKey]machinepool.Pool{}
	for cluster, pools := range current {
		for _, p := range pools {
			key := PoolKey{Cluster: cluster, PoolID: p.GetID()}
			if _, skip := skipped[key]; skip {
				continue
			}
			currentByKey[key] = p
		}
	}

	diff := differ.DiffMappings(
		currentByKey,
		desiredByKey,
		func(c machinepool.Pool, d desiredEntry) bool {
			return !c.HasDiff(ctx, log, d.declared)
		},
		PoolKey.Compare,
	)

	for _, add := range diff.Add {
		plan.Actions = append(plan.Actions, Action{Operation: OperationCreate, Pool: add.Value.pool})
	}

	for _, change := range diff.Change {
		if field := change.Current.InvalidDiff(change.Desired.declared); field != "" {
			plan.Errors = append(plan.Errors, newImmutableFieldViolation(field, change.Current, change.Desired.declared))
			continue
		}
		plan.Actions = append(plan.Actions, Action{Operation: OperationUpdate, Pool: change.Desired.pool})
	}

	for _, del := range diff.Delete {
		if len(desired[del.Key.Cluster].Pools) == 0 {
			plan.Errors = append(plan.Errors, newDeleteAllViolation(del.Value))
			continue
		}
		if !del.Value.Deletable() {
			plan.Errors = append(plan.Errors, newNotDeletableViolation(del.Value))
			continue
		}
		plan.Actions = append(plan.Actions, Action{Operation: OperationDelete, Pool: del.Value})
	}

	if log != nil {
		counts := plan.Count()
		log.Debugf(ctx, "Planned %d creates, %d updates, %d deletes with %d errors (%d unchanged)",
			counts[OperationCreate], counts[OperationUpdate], counts[OperationDelete], len(plan.Errors), len(diff.Identical))
	}

	return plan
}

func sortedClusters(desired DesiredState) []string {
	names := make([]string, 0, len(desired))
	for name := range desired {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func poolJSON(p machinepool.Pool) string {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%s/%s", p.GetCluster(), p.GetID())
	}
	return string(b)
}
