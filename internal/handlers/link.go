package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/serroba/link-registry/internal/audit"
	"github.com/serroba/link-registry/internal/shortener"
	"go.uber.org/zap"
)

// LinkHandler exposes the registry operations over HTTP.
type LinkHandler struct {
	registry *shortener.Registry
	baseURL  string
	events   audit.Publishers
	logger   *zap.Logger
	now      func() time.Time
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	registry *shortener.Registry,
	baseURL string,
	events audit.Publishers,
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		registry: registry,
		baseURL:  baseURL,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *LinkHandler) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	owner := shortener.Identity(req.Identity)

	var custom *shortener.ShortKey
	if req.Body.Key != nil {
		k := shortener.ShortKey(*req.Body.Key)
		custom = &k
	}

	key, err := h.registry.Create(ctx, owner, req.Body.URL, custom)
	if err != nil {
		return nil, h.statusError("create", derefKey(req.Body.Key), err)
	}

	event := &audit.LinkCreatedEvent{
		Key:         string(key),
		Destination: req.Body.URL,
		Owner:       req.Identity,
		Generated:   custom == nil,
		OccurredAt:  h.now(),
	}

	if record, err := h.registry.Record(ctx, key); err == nil {
		event.Ledger = uint32(record.CreatedAt)
	}

	if err := h.events.Created(ctx, event); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("key", event.Key),
			zap.Error(err),
		)
	}

	shortURL := fmt.Sprintf("%s/%s", h.baseURL, key)

	resp := &CreateLinkResponse{}
	resp.Location = shortURL
	resp.Body.Key = string(key)
	resp.Body.ShortURL = shortURL
	resp.Body.Destination = req.Body.URL

	return resp, nil
}

func (h *LinkHandler) UpdateLink(ctx context.Context, req *UpdateLinkRequest) (*struct{}, error) {
	err := h.registry.Update(ctx, shortener.Identity(req.Identity), shortener.ShortKey(req.Key), req.Body.URL)
	if err != nil {
		return nil, h.statusError("update", req.Key, err)
	}

	event := &audit.LinkUpdatedEvent{
		Key:         req.Key,
		Destination: req.Body.URL,
		Owner:       req.Identity,
		OccurredAt:  h.now(),
	}

	if err := h.events.Updated(ctx, event); err != nil {
		h.logger.Error("failed to publish link updated event",
			zap.String("key", event.Key),
			zap.Error(err),
		)
	}

	return nil, nil
}

func (h *LinkHandler) DeleteLink(ctx context.Context, req *DeleteLinkRequest) (*struct{}, error) {
	err := h.registry.Delete(ctx, shortener.Identity(req.Identity), shortener.ShortKey(req.Key))
	if err != nil {
		return nil, h.statusError("delete", req.Key, err)
	}

	event := &audit.LinkDeletedEvent{
		Key:        req.Key,
		Owner:      req.Identity,
		OccurredAt: h.now(),
	}

	if err := h.events.Deleted(ctx, event); err != nil {
		h.logger.Error("failed to publish link deleted event",
			zap.String("key", event.Key),
			zap.Error(err),
		)
	}

	return nil, nil
}

func (h *LinkHandler) GetLink(ctx context.Context, req *KeyRequest) (*LinkResponse, error) {
	record, err := h.registry.Record(ctx, shortener.ShortKey(req.Key))
	if err != nil {
		return nil, h.statusError("get_record", req.Key, err)
	}

	resp := &LinkResponse{}
	resp.Body.Key = req.Key
	resp.Body.Destination = record.DestinationURL
	resp.Body.CreatedAt = uint32(record.CreatedAt)
	resp.Body.Owner = string(record.Owner)

	return resp, nil
}

func (h *LinkHandler) GetOwner(ctx context.Context, req *KeyRequest) (*OwnerResponse, error) {
	owner, err := h.registry.Owner(ctx, shortener.ShortKey(req.Key))
	if err != nil {
		return nil, h.statusError("get_owner", req.Key, err)
	}

	resp := &OwnerResponse{}
	resp.Body.Key = req.Key
	resp.Body.Owner = string(owner)

	return resp, nil
}

func (h *LinkHandler) Redirect(ctx context.Context, req *KeyRequest) (*RedirectResponse, error) {
	destination, err := h.registry.Destination(ctx, shortener.ShortKey(req.Key))
	if err != nil {
		return nil, h.statusError("get_destination", req.Key, err)
	}

	return &RedirectResponse{
		Status:   http.StatusMovedPermanently,
		Location: destination,
	}, nil
}

func derefKey(k *string) string {
	if k == nil {
		return ""
	}

	return *k
}
