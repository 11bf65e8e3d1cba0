package books

type SearchBooksQuery struct {
	Query string `query:"query" json:"query,omitempty" validate:"omitempty,max=100"`
	Page  int    `query:"page" json:"page,omitempty" validate:"min=0"`
	Limit int    `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=50"`
}

type BookQuery struct {
	ID string `query:"id" json:"id" validate:"required,max=300"`
}

type FragmentQuery struct {
	ID   string `query:"id" json:"id" validate:"required,max=300"`
	Path int    `query:"path" json:"path,omitempty" validate:"min=0"`
}

type PopularBooksQuery struct {
	Limit int `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=50"`
}

type CardsPayload struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,max=300"`
}
