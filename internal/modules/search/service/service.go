package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"anoa.com/coinexchange/internal/entity"
	"anoa.com/coinexchange/pkg/logger"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const RequestsIndex = "interaction_requests"

// MeiliSearchService mirrors open interaction requests into a Meilisearch index.
// The database stays the source of truth; search results are ids only.
type MeiliSearchService interface {
	IndexRequest(req *entity.InteractionRequest) error
	DeleteRequest(id uint64) error
	SearchRequests(query string, kind *entity.ActionKind, limit int) ([]uint64, error)
}

type meiliSearchService struct {
	client meilisearch.ServiceManager
}

func NewMeiliSearchService(client meilisearch.ServiceManager) MeiliSearchService {
	s := &meiliSearchService{client: client}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	filterable := []string{"action_kind", "owner_id"}
	filterableAny := make([]any, len(filterable))
	for i, v := range filterable {
		filterableAny[i] = v
	}
	if _, err := s.client.Index(RequestsIndex).UpdateFilterableAttributes(&filterableAny); err != nil {
		logger.Log.Warn("failed to update requests filterable attributes", zap.Error(err))
	}

	sortable := []string{"created_at", "cost_per_action"}
	if _, err := s.client.Index(RequestsIndex).UpdateSortableAttributes(&sortable); err != nil {
		logger.Log.Warn("failed to update requests sortable attributes", zap.Error(err))
	}
}

type requestDoc struct {
	ID            string `json:"id"`
	OwnerID       int64  `json:"owner_id"`
	PostRef       string `json:"post_ref"`
	PostCode      string `json:"post_code"`
	ActionKind    string `json:"action_kind"`
	CostPerAction int64  `json:"cost_per_action"`
	Remaining     int64  `json:"remaining"`
	CreatedAt     int64  `json:"created_at"`
}

func toRequestDoc(req *entity.InteractionRequest) requestDoc {
	return requestDoc{
		ID:            strconv.FormatUint(req.ID, 10),
		OwnerID:       req.OwnerID,
		PostRef:       req.PostRef,
		PostCode:      postCode(req.PostRef),
		ActionKind:    string(req.ActionKind),
		CostPerAction: req.CostPerAction,
		Remaining:     req.Remaining(),
		CreatedAt:     req.CreatedAt.Unix(),
	}
}

// postCode is the last path segment of a post URL, e.g. the shortcode of /p/<code>/.
func postCode(ref string) string {
	parts := strings.Split(strings.TrimRight(ref, "/"), "/")
	return parts[len(parts)-1]
}

func (s *meiliSearchService) IndexRequest(req *entity.InteractionRequest) error {
	if !req.IsOpen() {
		return s.DeleteRequest(req.ID)
	}

	pk := "id"
	task, err := s.client.Index(RequestsIndex).AddDocuments([]requestDoc{toRequestDoc(req)}, &pk)
	if err != nil {
		return err
	}
	logger.Log.Debug("indexed request", zap.Uint64("request_id", req.ID), zap.Int64("task_uid", task.TaskUID))
	return nil
}

func (s *meiliSearchService) DeleteRequest(id uint64) error {
	_, err := s.client.Index(RequestsIndex).DeleteDocument(strconv.FormatUint(id, 10))
	return err
}

func (s *meiliSearchService) SearchRequests(query string, kind *entity.ActionKind, limit int) ([]uint64, error) {
	req := &meilisearch.SearchRequest{
		Limit: int64(limit),
		Sort:  []string{"created_at:asc"},
	}
	if kind != nil {
		req.Filter = fmt.Sprintf("action_kind = %q", string(*kind))
	}

	raw, err := s.client.Index(RequestsIndex).SearchRaw(query, req)
	if err != nil {
		return nil, err
	}
	return decodeHitIDs(*raw)
}

func decodeHitIDs(raw []byte) ([]uint64, error) {
	var body struct {
		Hits []struct {
			ID string `json:"id"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(body.Hits))
	for _, hit := range body.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
