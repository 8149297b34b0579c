package ocm_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/errors"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
)

type clusterList struct {
	Items []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"items"`
}

type poolPage struct {
	Page  int                      `json:"page"`
	Size  int                      `json:"size"`
	Total int                      `json:"total"`
	Items []map[string]interface{} `json:"items"`
}

// GetClusterID looks the cluster up by name. Results are cached for the
// lifetime of the client and concurrent lookups of one name share a request.
func (c *HTTPClient) GetClusterID(ctx context.Context, clusterName string) (string, error) {
	c.clusterIDsMu.RLock()
	id, ok := c.clusterIDs[clusterName]
	c.clusterIDsMu.RUnlock()
	if ok {
		return id, nil
	}

	result, err, _ := c.clusterIDsSF.Do(clusterName, func() (interface{}, error) {
		c.clusterIDsMu.RLock()
		if id, ok := c.clusterIDs[clusterName]; ok {
			c.clusterIDsMu.RUnlock()
			return id, nil
		}
		c.clusterIDsMu.RUnlock()

		query := url.Values{}
		query.Set("search", fmt.Sprintf("name = '%s'", strings.ReplaceAll(clusterName, "'", "''")))
		query.Set("size", "1")
		resp, err := c.Get(ctx, c.config.BaseURL+clustersPath+"?"+query.Encode())
		if err != nil {
			return "", err
		}
		var list clusterList
		if err := json.Unmarshal(resp.Body, &list); err != nil {
			return "", apperrors.OCMAPIError("failed to decode cluster list: %v", err)
		}
		if len(list.Items) == 0 || list.Items[0].ID == "" {
			return "", apperrors.NotFound("cluster %s not found in OCM", clusterName)
		}

		c.clusterIDsMu.Lock()
		c.clusterIDs[clusterName] = list.Items[0].ID
		c.clusterIDsMu.Unlock()
		return list.Items[0].ID, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *HTTPClient) poolsURL(ctx context.Context, clusterName, collection string) (string, error) {
	id, err := c.GetClusterID(ctx, clusterName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s/%s/%s", c.config.BaseURL, clustersPath, url.PathEscape(id), collection), nil
}

// listAll follows OCM pagination until a short page is returned
func (c *HTTPClient) listAll(ctx context.Context, collectionURL string) ([]map[string]interface{}, error) {
	var items []map[string]interface{}
	for page := 1; ; page++ {
		resp, err := c.Get(ctx, fmt.Sprintf("%s?page=%d&size=%d", collectionURL, page, DefaultPageSize))
		if err != nil {
			return nil, err
		}
		var p poolPage
		if err := json.Unmarshal(resp.Body, &p); err != nil {
			return nil, apperrors.OCMAPIError("failed to decode %s: %v", collectionURL, err)
		}
		items = append(items, p.Items...)
		if len(p.Items) < DefaultPageSize || (p.Total > 0 && len(items) >= p.Total) {
			return items, nil
		}
	}
}

func (c *HTTPClient) GetMachinePools(ctx context.Context, clusterName string) ([]map[string]interface{}, error) {
	u, err := c.poolsURL(ctx, clusterName, "machine_pools")
	if err != nil {
		return nil, err
	}
	return c.listAll(ctx, u)
}

func (c *HTTPClient) GetNodePools(ctx context.Context, clusterName string) ([]map[string]interface{}, error) {
	u, err := c.poolsURL(ctx, clusterName, "node_pools")
	if err != nil {
		return nil, err
	}
	items, err := c.listAll(ctx, u)
	if err != nil {
		return nil, err
	}
	filtered := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		filtered = append(filtered, filterKeys(item, NodePoolDesiredKeys))
	}
	return filtered, nil
}

func filterKeys(item map[string]interface{}, keys []string) map[string]interface{} {
	out := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		if v, ok := item[k]; ok {
			out[k] = v
		}
	}
	return out
}

func (c *HTTPClient) CreateMachinePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return c.create(ctx, clusterName, "machine_pools", spec)
}

func (c *HTTPClient) UpdateMachinePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return c.update(ctx, clusterName, "machine_pools", spec)
}

func (c *HTTPClient) DeleteMachinePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return c.delete(ctx, clusterName, "machine_pools", spec)
}

func (c *HTTPClient) CreateNodePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return c.create(ctx, clusterName, "node_pools", spec)
}

func (c *HTTPClient) UpdateNodePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return c.update(ctx, clusterName, "node_pools", spec)
}

func (c *HTTPClient) DeleteNodePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return c.delete(ctx, clusterName, "node_pools", spec)
}

func (c *HTTPClient) create(ctx context.Context, clusterName, collection string, spec map[string]interface{}) error {
	u, err := c.poolsURL(ctx, clusterName, collection)
	if err != nil {
		return err
	}
	body, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal %s spec: %w", collection, err)
	}
	c.log.Debugf(logger.WithCluster(ctx, clusterName), "POST %s", u)
	_, err = c.Post(ctx, u, body)
	return err
}

func (c *HTTPClient) update(ctx context.Context, clusterName, collection string, spec map[string]interface{}) error {
	id, err := poolID(spec)
	if err != nil {
		return err
	}
	u, err := c.poolsURL(ctx, clusterName, collection)
	if err != nil {
		return err
	}
	body, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal %s spec: %w", collection, err)
	}
	_, err = c.Patch(ctx, u+"/"+url.PathEscape(id), body)
	return err
}

func (c *HTTPClient) delete(ctx context.Context, clusterName, collection string, spec map[string]interface{}) error {
	id, err := poolID(spec)
	if err != nil {
		return err
	}
	u, err := c.poolsURL(ctx, clusterName, collection)
	if err != nil {
		return err
	}
	_, err = c.Delete(ctx, u+"/"+url.PathEscape(id))
	return err
}

func poolID(spec map[string]interface{}) (string, error) {
	id, _ := spec["id"].(string)
	if id == "" {
		return "", apperrors.Validation("pool spec has no id")
	}
	return id, nil
}
