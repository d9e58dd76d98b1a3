package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers all link registry routes.
func RegisterRoutes(api huma.API, h *LinkHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-link",
		Method:        http.MethodPost,
		Path:          "/links",
		DefaultStatus: http.StatusCreated,
		Summary:       "Create link",
		Description:   "Files a destination URL under a custom or generated short key owned by the caller.",
		Tags:          []string{"Links"},
	}, h.CreateLink)

	huma.Register(api, huma.Operation{
		OperationID:   "update-link",
		Method:        http.MethodPut,
		Path:          "/links/{key}",
		DefaultStatus: http.StatusNoContent,
		Summary:       "Update link destination",
		Description:   "Replaces the destination URL. Only the owner may update a link.",
		Tags:          []string{"Links"},
	}, h.UpdateLink)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-link",
		Method:        http.MethodDelete,
		Path:          "/links/{key}",
		DefaultStatus: http.StatusNoContent,
		Summary:       "Delete link",
		Description:   "Removes the link and its owner entry. Only the owner may delete a link.",
		Tags:          []string{"Links"},
	}, h.DeleteLink)

	huma.Register(api, huma.Operation{
		OperationID: "get-link",
		Method:      http.MethodGet,
		Path:        "/links/{key}",
		Summary:     "Get link record",
		Tags:        []string{"Links"},
	}, h.GetLink)

	huma.Register(api, huma.Operation{
		OperationID: "get-link-owner",
		Method:      http.MethodGet,
		Path:        "/links/{key}/owner",
		Summary:     "Get link owner",
		Tags:        []string{"Links"},
	}, h.GetOwner)

	// GET /{key} - Redirect to destination
	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{key}",
		Summary:     "Redirect to destination",
		Description: "Redirects to the destination URL filed under the short key.",
		Tags:        []string{"Links"},
	}, h.Redirect)
}
