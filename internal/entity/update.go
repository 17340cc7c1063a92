package entity

// Update is a typed partial update for one entity kind. Nil members are
// left unchanged; there is deliberately no generic field merge.
type Update interface {
	Kind() Kind
	Apply(r *Record)
}

// UserUpdate modifies a user profile.
type UserUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

func (UserUpdate) Kind() Kind { return KindUser }

func (u UserUpdate) Apply(r *Record) {
	if u.DisplayName != nil {
		r.DisplayName = *u.DisplayName
	}
	if u.Bio != nil {
		r.Fields.Bio = *u.Bio
	}
	if u.PhotoURL != nil {
		r.Fields.PhotoURL = *u.PhotoURL
	}
}

// BusinessUpdate modifies a business listing.
type BusinessUpdate struct {
	DisplayName *string   `json:"display_name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Services    *[]string `json:"services,omitempty"`
}

func (BusinessUpdate) Kind() Kind { return KindBusiness }

func (u BusinessUpdate) Apply(r *Record) {
	if u.DisplayName != nil {
		r.DisplayName = *u.DisplayName
	}
	if u.Description != nil {
		r.Fields.Description = *u.Description
	}
	if u.Services != nil {
		r.Fields.Services = *u.Services
	}
}

// ArticleUpdate modifies an article. Title doubles as the display name
// the slug derives from.
type ArticleUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

func (ArticleUpdate) Kind() Kind { return KindArticle }

func (u ArticleUpdate) Apply(r *Record) {
	if u.Title != nil {
		r.DisplayName = *u.Title
	}
	if u.Content != nil {
		r.Fields.Content = *u.Content
	}
}
