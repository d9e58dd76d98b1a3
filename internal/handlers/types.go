package handlers

// CreateLinkRequest is the request for filing a destination under a short key.
type CreateLinkRequest struct {
	Identity string `doc:"Identity creating the link (hex Ed25519 public key)" header:"X-Identity" required:"true"`
	Body     struct {
		URL string  `doc:"The destination URL"                           example:"https://example.com/very/long/path" json:"url"`
		Key *string `doc:"Custom short key; generated when omitted" json:"key,omitempty"`
	}
}

// CreateLinkResponse is the response for a successfully created link.
type CreateLinkResponse struct {
	Location string `doc:"The short URL location" header:"Location"`
	Body     struct {
		Key         string `doc:"The short key"      example:"mylink"                             json:"key"`
		ShortURL    string `doc:"The full short URL" example:"http://localhost:8888/mylink"       json:"shortUrl"`
		Destination string `doc:"The destination"    example:"https://example.com/very/long/path" json:"destination"`
	}
}

// UpdateLinkRequest is the request for changing a link's destination.
type UpdateLinkRequest struct {
	Identity string `doc:"Identity of the link owner" header:"X-Identity" required:"true"`
	Key      string `doc:"The short key"              example:"mylink"    path:"key"`
	Body     struct {
		URL string `doc:"The new destination URL" example:"https://example.com/new" json:"url"`
	}
}

// DeleteLinkRequest is the request for removing a link.
type DeleteLinkRequest struct {
	Identity string `doc:"Identity of the link owner" header:"X-Identity" required:"true"`
	Key      string `doc:"The short key"              example:"mylink"    path:"key"`
}

// KeyRequest addresses a link by its short key.
type KeyRequest struct {
	Key string `doc:"The short key" example:"mylink" path:"key"`
}

// LinkResponse is the full link record.
type LinkResponse struct {
	Body struct {
		Key         string `doc:"The short key"                   example:"mylink"                json:"key"`
		Destination string `doc:"The destination URL"             example:"https://example.com/x" json:"destination"`
		CreatedAt   uint32 `doc:"Ledger sequence at creation"     example:"1024"                  json:"createdAt"`
		Owner       string `doc:"Identity that created the link"                                  json:"owner"`
	}
}

// OwnerResponse is the owner of a link.
type OwnerResponse struct {
	Body struct {
		Key   string `doc:"The short key"                  example:"mylink" json:"key"`
		Owner string `doc:"Identity that created the link"                  json:"owner"`
	}
}

// RedirectResponse redirects to a link's destination.
type RedirectResponse struct {
	Status   int
	Location string `header:"Location"`
}
