package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchIndexer bulk-indexes documents.
type ElasticsearchIndexer struct {
	client *elasticsearch.Client
}

func NewElasticsearchIndexer(client *elasticsearch.Client) *ElasticsearchIndexer {
	return &ElasticsearchIndexer{client: client}
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// Index returns the number of documents written. Any item failure fails the call.
func (i *ElasticsearchIndexer) Index(ctx context.Context, index string, docs []interface{}) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, doc := range docs {
		if err := enc.Encode(map[string]interface{}{"index": map[string]interface{}{}}); err != nil {
			return 0, err
		}
		if err := enc.Encode(doc); err != nil {
			return 0, fmt.Errorf("encode document: %w", err)
		}
	}

	req := esapi.BulkRequest{
		Index:   index,
		Body:    &body,
		Refresh: "wait_for",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("bulk request failed: %s", res.String())
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}
	if !parsed.Errors {
		return len(parsed.Items), nil
	}

	failed := 0
	reason := ""
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Error != nil {
				failed++
				if reason == "" {
					reason = op.Error.Type + ": " + op.Error.Reason
				}
			}
		}
	}
	return len(parsed.Items) - failed, fmt.Errorf("%d of %d documents failed (%s)", failed, len(parsed.Items), reason)
}
