package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/handler/http/response"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"
)

// AuthorizeURLBuilder builds the marketplace consent URL for an OAuth state.
type AuthorizeURLBuilder interface {
	AuthCodeURL(state string) string
}

type MarketplaceHandler interface {
	AuthorizeURL(w http.ResponseWriter, r *http.Request)
	Connect(w http.ResponseWriter, r *http.Request)
}

type marketplaceHandlerImpl struct {
	syncService externalorder.SyncService
	authorizer  AuthorizeURLBuilder
}

func NewMarketplaceHandler(syncService externalorder.SyncService, authorizer AuthorizeURLBuilder) MarketplaceHandler {
	return &marketplaceHandlerImpl{syncService: syncService, authorizer: authorizer}
}

// AuthorizeURL returns the consent URL. The store id travels as the OAuth
// state so the callback can be posted back to Connect.
func (h *marketplaceHandlerImpl) AuthorizeURL(w http.ResponseWriter, r *http.Request) {
	storeID := r.URL.Query().Get("store_id")
	if validator.IsEmpty(storeID) {
		response.HandleError(w, validator.ValidationErrors{{Field: "store_id", Message: "is required"}})
		return
	}

	response.Success(w, map[string]string{
		"store_id": storeID,
		"url":      h.authorizer.AuthCodeURL(storeID),
	})
}

// Connect exchanges an authorization code for the store's marketplace tokens.
func (h *marketplaceHandlerImpl) Connect(w http.ResponseWriter, r *http.Request) {
	var req externalorder.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	cred, err := h.syncService.Connect(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Marketplace connected", cred)
}
